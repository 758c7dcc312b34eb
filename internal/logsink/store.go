package logsink

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/steady/internal/event"
	"github.com/roach88/steady/internal/store"
)

// Store persists events to the SQLite event log.
//
// Writes are synchronous and serialized; a failed write is reported to the
// fallback logger and dropped, never surfaced to the test that emitted the
// event.
type Store struct {
	mu     sync.Mutex
	store  *store.Store
	clock  *event.Clock
	logger *slog.Logger
}

// NewStore creates a sink over st. The clock resumes after the highest seq
// already stored so appending to an existing database keeps seq unique.
func NewStore(ctx context.Context, st *store.Store, logger *slog.Logger) (*Store, error) {
	maxSeq, err := st.MaxSeq(ctx)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{store: st, clock: event.NewClockAt(maxSeq), logger: logger}, nil
}

// LogEvent implements Sink.
func (s *Store) LogEvent(category, status string, fields event.Fields) {
	resolved := fields.Resolve()

	s.mu.Lock()
	defer s.mu.Unlock()

	ev := event.Event{
		Seq:        s.clock.Next(),
		TestID:     event.TestIDOf(resolved),
		Category:   category,
		Status:     status,
		Fields:     resolved,
		RecordedAt: time.Now(),
	}
	if err := s.store.WriteEvent(context.Background(), ev); err != nil {
		s.logger.Error("event not persisted", "seq", ev.Seq, "category", category, "status", status, "error", err)
	}
}

// LogException implements Sink.
func (s *Store) LogException(err error) {
	if err == nil {
		return
	}
	s.LogEvent(event.CategoryException, event.StatusError, exceptionFields(err))
}
