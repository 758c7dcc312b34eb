// Package harness is the fluent test surface: the per-test Context, the
// lifecycle hooks, the parallel Suite runner and declarative scenarios.
//
// # Context
//
// Every test gets a Context bound to one evaluator. Values go in with Store
// and come out through the evaluator with Load, LoadAs and the typed
// loaders, so a missing key either aborts the test (now policy) or is
// recorded for the end-of-test report (batch policy):
//
//	if err := c.Store("count", 1); err != nil {
//	    return err
//	}
//	if err := c.Expect("count is 1", "count == 1"); err != nil {
//	    return err
//	}
//
// Soft runs a block under the batch policy and returns the aggregate of
// whatever failed inside it.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	policy: batch            # or now (default)
//	test_id: scenario-1      # pinned correlation id for golden traces
//	store:
//	  - key: count
//	    value: 1
//	checks:
//	  - describe: count is 1
//	    expect: count == 1
//	remove:
//	  - count
//	expect_failures: 0
//	assertions:
//	  - type: trace_count
//	    event: check/fail
//	    count: 0
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - trace_contains: an event of the given category/status with matching fields exists
//   - trace_order: events appear in the specified order
//   - trace_count: an event appears exactly N times
//
// # Deterministic Testing
//
// Run executes a scenario with a virtual clock and the scenario's pinned
// test ID, and renumbers trace events from 1, so the same scenario always
// produces a byte-identical canonical JSON trace for golden comparison.
package harness
