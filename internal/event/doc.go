// Package event defines the structured log events emitted by tests.
//
// Every assertion, context mutation and lifecycle hook produces an Event:
// a category ("check", "context", "lifecycle", "resolve", ...), a status
// ("pass", "fail", "store", "start", ...) and a payload of Fields. Events are
// correlated by test ID and ordered by a process-wide sequence Clock.
//
// This package imports nothing internal; sinks, the evaluation engine and
// the harness all build on it.
//
// Key design constraints:
//   - Fields may hold slog.LogValuer values that are resolved lazily
//   - MarshalCanonical gives byte-stable JSON for golden files and storage
//   - Sequence numbers, not timestamps, order events within a run
package event
