package eval

import (
	"fmt"
	"log/slog"
)

// Description lazily produces the human-readable text of a check.
//
// It implements slog.LogValuer, so handing one to slog (directly or through
// event.Fields) defers rendering until a handler emits the record.
type Description func() string

// Describe wraps a fixed string.
func Describe(s string) Description {
	return func() string { return s }
}

// Describef formats on first use.
func Describef(format string, args ...any) Description {
	return func() string { return fmt.Sprintf(format, args...) }
}

// String renders the description. A nil Description renders empty; a
// panicking one renders a placeholder instead of propagating the panic.
func (d Description) String() (text string) {
	if d == nil {
		return ""
	}
	defer func() {
		if r := recover(); r != nil {
			text = fmt.Sprintf("<description unavailable: %v>", r)
		}
	}()
	return d()
}

// LogValue implements slog.LogValuer.
func (d Description) LogValue() slog.Value {
	return slog.StringValue(d.String())
}
