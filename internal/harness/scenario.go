package harness

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/steady/internal/eval"
)

// Scenario is a declarative test: values to store, expressions to check,
// and keys to remove afterwards, run under one failure policy.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Policy is "now" (abort at the first failure) or "batch" (report all
	// failures at the end). Defaults to now.
	Policy string `yaml:"policy,omitempty"`

	// TestID pins the correlation ID for deterministic traces.
	// If empty, defaults to "test-<name>".
	TestID string `yaml:"test_id,omitempty"`

	// Store lists values to store, in order.
	Store []StoreStep `yaml:"store,omitempty"`

	// Checks are evaluated in order after the store steps.
	Checks []CheckStep `yaml:"checks"`

	// Remove lists keys to remove after the checks.
	Remove []string `yaml:"remove,omitempty"`

	// ExpectFailures, when set, is the exact number of test failures the
	// scenario is meant to produce. Unset means the scenario must pass.
	ExpectFailures *int `yaml:"expect_failures,omitempty"`

	// Assertions validate the resulting trace.
	// Supported types: trace_contains, trace_order, trace_count
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// StoreStep stores one value.
type StoreStep struct {
	Key   string `yaml:"key"`
	Value any    `yaml:"value"`
}

// CheckStep is one expression check.
type CheckStep struct {
	// Describe is the human-readable text logged with the check.
	Describe string `yaml:"describe"`

	// Expect is a boolean expression over the stored keys.
	Expect string `yaml:"expect"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "check:" vs "checks:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml file in dir, sorted by path.
func LoadScenarios(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	seen := make(map[string]string)
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		if prev, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("%s: scenario %q already defined in %s", p, s.Name, prev)
		}
		seen[s.Name] = p
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if _, err := eval.ParsePolicy(s.Policy); err != nil {
		return err
	}

	if len(s.Checks) == 0 {
		return fmt.Errorf("checks list is required and must be non-empty")
	}

	for i, step := range s.Store {
		if step.Key == "" {
			return fmt.Errorf("store[%d]: key is required", i)
		}
	}

	for i, check := range s.Checks {
		if check.Describe == "" {
			return fmt.Errorf("checks[%d]: describe is required", i)
		}
		if check.Expect == "" {
			return fmt.Errorf("checks[%d]: expect is required", i)
		}
	}

	for i, key := range s.Remove {
		if key == "" {
			return fmt.Errorf("remove[%d]: key is required", i)
		}
	}

	if s.ExpectFailures != nil && *s.ExpectFailures < 0 {
		return fmt.Errorf("expect_failures must be non-negative")
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// ID returns the pinned test ID, or "test-<name>".
func (s *Scenario) ID() string {
	if s.TestID != "" {
		return s.TestID
	}
	return "test-" + s.Name
}

// Satisfied reports whether result is what the scenario expects: a pass,
// or exactly ExpectFailures test failures and no failed assertions.
func (s *Scenario) Satisfied(result *Result) bool {
	if s.ExpectFailures == nil {
		return result.Pass
	}
	return result.Failures == *s.ExpectFailures && len(result.Errors) == result.Failures
}

// Case converts the scenario into a suite case.
func (s *Scenario) Case() (Case, error) {
	policy, err := eval.ParsePolicy(s.Policy)
	if err != nil {
		return Case{}, err
	}
	return Case{
		Class:  "scenario",
		Method: s.Name,
		Policy: policy,
		TestID: s.ID(),
		Run:    s.run,
	}, nil
}

// run executes store, check and remove steps. Under the now policy the
// first failure stops the scenario; under batch every step runs.
func (s *Scenario) run(_ context.Context, c *Context) error {
	for _, step := range s.Store {
		if err := c.Store(step.Key, step.Value); err != nil {
			return err
		}
	}
	for _, check := range s.Checks {
		if err := c.Expect(check.Describe, check.Expect); err != nil {
			return err
		}
	}
	for _, key := range s.Remove {
		if _, err := c.RemoveStored(key); err != nil {
			return err
		}
	}
	return nil
}
