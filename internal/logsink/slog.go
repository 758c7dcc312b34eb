package logsink

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/steady/internal/event"
	"github.com/roach88/steady/internal/fault"
)

// Slog writes events to a *slog.Logger.
//
// Failures and errors log at WARN, everything else at INFO. Fields are
// handed to slog unresolved, so a lazily built description is computed
// only if the handler is enabled for the record's level.
type Slog struct {
	logger *slog.Logger
}

// NewSlog creates a Slog sink. A nil logger uses slog.Default().
func NewSlog(logger *slog.Logger) *Slog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Slog{logger: logger}
}

// LogEvent implements Sink.
func (s *Slog) LogEvent(category, status string, fields event.Fields) {
	level := slog.LevelInfo
	if status == event.StatusFail || status == event.StatusError {
		level = slog.LevelWarn
	}
	ctx := context.Background()
	if !s.logger.Enabled(ctx, level) {
		return
	}
	args := append([]any{"category", category, "status", status}, fields.Attrs()...)
	s.logger.Log(ctx, level, category+" "+status, args...)
}

// LogException implements Sink.
func (s *Slog) LogException(err error) {
	if err == nil {
		return
	}
	args := []any{"error", err.Error()}
	if fe, ok := fault.As(err); ok {
		args = append(args, "code", string(fe.Code))
		if fe.TestID != "" {
			args = append(args, event.KeyTestID, fe.TestID)
		}
	}
	s.logger.Error("exception", args...)
}

// NewLogger builds the process logger from configuration values.
// format is "text" or "json"; level is debug, info, warn or error.
func NewLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "", "info":
		lvl = slog.LevelInfo
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level %q", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
}
