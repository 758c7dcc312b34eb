// Package logsink delivers structured test events to their destinations.
//
// A Sink is the only logging surface the evaluation engine, the context
// store, the resolver and the lifecycle hooks know about. Implementations
// fan events out to slog (Slog), memory (Recorder), the SQLite event log
// (Store) or several of those at once (Tee).
//
// Every Sink must be safe for concurrent use: tests running in parallel
// share one sink.
package logsink

import (
	"github.com/roach88/steady/internal/event"
	"github.com/roach88/steady/internal/fault"
)

// Sink receives structured events and exceptions.
type Sink interface {
	// LogEvent records one event. Fields may hold slog.LogValuer values;
	// sinks resolve them only when they actually render the event.
	LogEvent(category, status string, fields event.Fields)

	// LogException records an error raised during a test.
	LogException(err error)
}

// Discard is a Sink that drops everything.
type Discard struct{}

// LogEvent implements Sink.
func (Discard) LogEvent(string, string, event.Fields) {}

// LogException implements Sink.
func (Discard) LogException(error) {}

// Tee fans every call out to each sink in order.
type Tee []Sink

// LogEvent implements Sink.
func (t Tee) LogEvent(category, status string, fields event.Fields) {
	for _, s := range t {
		s.LogEvent(category, status, fields)
	}
}

// LogException implements Sink.
func (t Tee) LogException(err error) {
	for _, s := range t {
		s.LogException(err)
	}
}

// exceptionFields converts an error into the payload of an exception event.
func exceptionFields(err error) event.Fields {
	fields := event.Fields{event.KeyError: err.Error()}
	if fe, ok := fault.As(err); ok {
		fields[event.KeyCode] = string(fe.Code)
		if fe.TestID != "" {
			fields[event.KeyTestID] = fe.TestID
		}
	}
	return fields
}
