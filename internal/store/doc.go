// Package store provides SQLite-backed durable storage for test events.
//
// The store is an append-only log of event.Event records: every check,
// context mutation, resolution pass and lifecycle hook a run emits through
// a store-backed sink ends up here, keyed by test ID and ordered by seq.
//
// # Critical Patterns
//
// Logical ordering:
//   - All reads use ORDER BY seq ASC; recorded_at is informational only
//   - seq comes from the writing sink's event.Clock, which resumes after
//     MaxSeq when an existing log is reopened
//
// Canonical payloads:
//   - fields are stored as canonical JSON (event.MarshalCanonical), so two
//     runs that emit the same payload store byte-identical rows
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - Single open connection: SQLite supports one writer at a time
package store
