package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/steady/internal/event"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	TestID       string       `json:"test_id,omitempty"`
	Pass         bool         `json:"pass"`
	Trace        []TraceEvent `json:"trace"`
	Errors       []string     `json:"errors,omitempty"`
}

// toCanonicalMap converts a TraceSnapshot to event.Fields for canonical
// JSON serialization.
func (s *TraceSnapshot) toCanonicalMap() event.Fields {
	traceList := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		entry := event.Fields{
			"seq":      ev.Seq,
			"category": ev.Category,
			"status":   ev.Status,
		}
		if len(ev.Fields) > 0 {
			entry["fields"] = ev.Fields
		}
		traceList[i] = entry
	}

	result := event.Fields{
		"scenario_name": s.ScenarioName,
		"pass":          s.Pass,
		"trace":         traceList,
	}
	if s.TestID != "" {
		result["test_id"] = s.TestID
	}
	if len(s.Errors) > 0 {
		errs := make([]any, len(s.Errors))
		for i, e := range s.Errors {
			errs[i] = e
		}
		result["errors"] = errs
	}
	return result
}

// MarshalTrace renders a scenario result as canonical JSON.
func MarshalTrace(scenario *Scenario, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenario.Name,
		TestID:       scenario.ID(),
		Pass:         result.Pass,
		Trace:        result.Trace,
		Errors:       result.Errors,
	}
	return event.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario, result)
}

// AssertGolden compares an existing result against the scenario's golden
// file without re-running it.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalTrace(scenario, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)

	return nil
}
