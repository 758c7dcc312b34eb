package event

import "time"

// Categories used across the module.
const (
	CategoryCheck     = "check"
	CategoryContext   = "context"
	CategoryLifecycle = "lifecycle"
	CategoryResolve   = "resolve"
	CategoryNavigate  = "navigate"
	CategoryException = "exception"
)

// Statuses used across the module.
const (
	StatusPass      = "pass"
	StatusFail      = "fail"
	StatusStore     = "store"
	StatusRemove    = "remove"
	StatusStart     = "start"
	StatusEnd       = "end"
	StatusSummary   = "summary"
	StatusMatch     = "match"
	StatusMiss      = "miss"
	StatusTransient = "transient"
	StatusError     = "error"
)

// Field keys shared by lifecycle instrumentation and sinks.
const (
	KeyTestID      = "testId"
	KeyClass       = "class"
	KeyMethod      = "method"
	KeyCount       = "count"
	KeyTotal       = "total"
	KeyStart       = "start"
	KeyEnd         = "end"
	KeyDuration    = "duration"
	KeyPass        = "pass"
	KeyFail        = "fail"
	KeyDescription = "description"
	KeyContext     = "context"
	KeyError       = "error"
	KeyCode        = "code"
	KeyKey         = "key"
	KeyValue       = "value"
)

// Event is one structured log record.
type Event struct {
	Seq        int64     `json:"seq"`
	TestID     string    `json:"test_id,omitempty"`
	Category   string    `json:"category"`
	Status     string    `json:"status"`
	Fields     Fields    `json:"fields,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// TestIDOf returns the test ID carried in fields, or "".
func TestIDOf(fields Fields) string {
	if fields == nil {
		return ""
	}
	if id, ok := fields[KeyTestID].(string); ok {
		return id
	}
	return ""
}
