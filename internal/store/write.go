package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/steady/internal/event"
)

// WriteEvent appends an event to the log.
// Uses ON CONFLICT(seq) DO NOTHING for idempotency - rewriting an event
// with a seq that is already stored is silently ignored.
//
// Fields are resolved (lazy values computed) and serialized to canonical
// JSON before the insert.
func (s *Store) WriteEvent(ctx context.Context, ev event.Event) error {
	fieldsJSON, err := marshalFields(ev.Fields.Resolve())
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	recordedAt := ev.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events
		(seq, test_id, category, status, fields, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`,
		ev.Seq,
		ev.TestID,
		ev.Category,
		ev.Status,
		fieldsJSON,
		recordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	return nil
}
