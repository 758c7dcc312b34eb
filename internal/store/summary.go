package store

import (
	"context"
	"fmt"

	"github.com/roach88/steady/internal/event"
)

// Test outcomes reported by Summarize.
const (
	OutcomePass    = "pass"
	OutcomeFail    = "fail"
	OutcomeRunning = "running"
)

// TestSummary is the per-test digest of the event log.
type TestSummary struct {
	TestID   string   `json:"test_id"`
	Class    string   `json:"class,omitempty"`
	Method   string   `json:"method,omitempty"`
	Outcome  string   `json:"outcome"`
	Checks   int      `json:"checks"`
	Failures []string `json:"failures,omitempty"`
}

// Summary aggregates every test in the log.
type Summary struct {
	Tests   []TestSummary `json:"tests"`
	Passed  int           `json:"passed"`
	Failed  int           `json:"failed"`
	Running int           `json:"running"`
}

// Summarize folds the event log into per-test outcomes.
//
// A test is identified by its lifecycle "start" event; its outcome comes
// from the lifecycle "pass"/"fail" event (running if neither was written).
// Failed checks contribute "description: error" lines in seq order.
func (s *Store) Summarize(ctx context.Context) (*Summary, error) {
	events, err := s.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	index := make(map[string]int)
	summary := &Summary{Tests: []TestSummary{}}

	lookup := func(testID string) *TestSummary {
		i, ok := index[testID]
		if !ok {
			summary.Tests = append(summary.Tests, TestSummary{TestID: testID, Outcome: OutcomeRunning})
			i = len(summary.Tests) - 1
			index[testID] = i
		}
		return &summary.Tests[i]
	}

	for _, ev := range events {
		if ev.TestID == "" {
			continue
		}
		ts := lookup(ev.TestID)

		switch ev.Category {
		case event.CategoryLifecycle:
			switch ev.Status {
			case event.StatusStart:
				ts.Class = stringField(ev.Fields, event.KeyClass)
				ts.Method = stringField(ev.Fields, event.KeyMethod)
			case event.StatusPass:
				ts.Outcome = OutcomePass
			case event.StatusFail:
				ts.Outcome = OutcomeFail
			}
		case event.CategoryCheck:
			ts.Checks++
			if ev.Status == event.StatusFail {
				ts.Failures = append(ts.Failures, fmt.Sprintf("%s: %s",
					stringField(ev.Fields, event.KeyDescription),
					stringField(ev.Fields, event.KeyError)))
			}
		}
	}

	for _, ts := range summary.Tests {
		switch ts.Outcome {
		case OutcomePass:
			summary.Passed++
		case OutcomeFail:
			summary.Failed++
		default:
			summary.Running++
		}
	}

	return summary, nil
}

func stringField(fields event.Fields, key string) string {
	if v, ok := fields[key]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return ""
}
