package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/steady/internal/event"
)

// ReadEvents returns every event recorded for a test ID, ordered by seq.
//
// Returns an empty slice (not nil) if no events exist for the test.
func (s *Store) ReadEvents(ctx context.Context, testID string) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, test_id, category, status, fields, recorded_at
		FROM events
		WHERE test_id = ?
		ORDER BY seq ASC
	`, testID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return scanEvents(rows)
}

// ReadAll returns every event in the log, ordered by seq.
func (s *Store) ReadAll(ctx context.Context) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, test_id, category, status, fields, recorded_at
		FROM events
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return scanEvents(rows)
}

// MaxSeq returns the highest stored seq, or 0 for an empty log.
// Used to resume an event.Clock when appending to an existing database.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM events`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query max seq: %w", err)
	}
	return seq.Int64, nil
}

func scanEvents(rows *sql.Rows) ([]event.Event, error) {
	defer rows.Close()

	events := []event.Event{}
	for rows.Next() {
		var (
			ev         event.Event
			fieldsJSON string
			recordedAt string
		)
		if err := rows.Scan(&ev.Seq, &ev.TestID, &ev.Category, &ev.Status, &fieldsJSON, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}

		fields, err := unmarshalFields(fieldsJSON)
		if err != nil {
			return nil, fmt.Errorf("event seq=%d: %w", ev.Seq, err)
		}
		ev.Fields = fields

		ts, err := time.Parse(time.RFC3339Nano, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("event seq=%d: parse recorded_at: %w", ev.Seq, err)
		}
		ev.RecordedAt = ts

		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
