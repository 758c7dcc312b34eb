package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/steady/internal/event"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEvent creates an event with minimal required fields.
func createTestEvent(seq int64, testID, category, status string, fields event.Fields) event.Event {
	return event.Event{
		Seq:        seq,
		TestID:     testID,
		Category:   category,
		Status:     status,
		Fields:     fields,
		RecordedAt: time.Date(2026, 10, 19, 12, 0, 0, int(seq), time.UTC),
	}
}
