package cli

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/steady/internal/counters"
	"github.com/roach88/steady/internal/harness"
	"github.com/roach88/steady/internal/logsink"
	"github.com/roach88/steady/internal/store"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update   bool   // regenerate golden files
	Filter   string // scenario name glob
	DB       string // event database; overrides report_db
	NoDB     bool
	Parallel int    // overrides parallel when > 0
	Metrics  string // prometheus text file
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name     string   `json:"name"`
	TestID   string   `json:"test_id"`
	Pass     bool     `json:"pass"`
	Failures int      `json:"failures,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult  `json:"scenarios"`
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
	Total     int               `json:"total"`
	Counters  counters.Snapshot `json:"counters"`
}

func (r TestResult) String() string {
	var b strings.Builder
	for _, s := range r.Scenarios {
		if s.Pass {
			fmt.Fprintf(&b, "✓ %s\n", s.Name)
			continue
		}
		fmt.Fprintf(&b, "✗ %s\n", s.Name)
		for _, e := range s.Errors {
			fmt.Fprintf(&b, "  %s\n", strings.ReplaceAll(e, "\n", "\n  "))
		}
	}
	fmt.Fprintf(&b, "\nTest Summary: %d passed, %d failed, %d total", r.Passed, r.Failed, r.Total)
	return b.String()
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run YAML test scenarios",
		Long: `Run every scenario file (*.yaml, *.yml) in a directory as one suite.

Scenarios run in parallel and their events are persisted to the event
database. A scenario passes when its checks pass, or when it fails exactly
expect_failures times, and its trace assertions hold. When
<scenarios-dir>/golden/<name>.golden exists the scenario's deterministic
trace must match it.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  steady test ./scenarios
  steady test ./scenarios --filter "login-*"
  steady test ./scenarios --update
  steady test ./scenarios --db out/events.db --metrics out/steady.prom`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by name glob")
	cmd.Flags().StringVar(&opts.DB, "db", "", "event database (default from config)")
	cmd.Flags().BoolVar(&opts.NoDB, "no-db", false, "do not persist events")
	cmd.Flags().IntVarP(&opts.Parallel, "parallel", "p", 0, "max scenarios running at once (default from config)")
	cmd.Flags().StringVar(&opts.Metrics, "metrics", "", "write test counters to this file in Prometheus text format")

	return cmd
}

func runTests(cmd *cobra.Command, opts *TestOptions, dir string) error {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}
	cfg, logger, err := opts.runtime(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	out := opts.formatter(cmd)

	all, err := harness.LoadScenarios(dir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenarios", err)
	}
	scenarios, err := filterScenarios(all, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}
	if len(scenarios) == 0 {
		if opts.Format == "json" {
			return out.Success(TestResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}
	for _, s := range scenarios {
		if s.Policy == "" {
			s.Policy = cfg.Policy
		}
	}

	sinks := logsink.Tee{logsink.NewSlog(logger)}
	dbPath := opts.DB
	if dbPath == "" {
		dbPath = cfg.ReportDB
	}
	if !opts.NoDB && dbPath != "" {
		st, err := openStore(dbPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open event database", err)
		}
		defer st.Close()
		persist, err := logsink.NewStore(cmd.Context(), st, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open event database", err)
		}
		sinks = append(sinks, persist)
		out.VerboseLog("persisting events to %s", dbPath)
	}

	ctrs := counters.New()
	reg := prometheus.NewRegistry()
	if err := ctrs.Register(reg); err != nil {
		return fmt.Errorf("register counters: %w", err)
	}

	parallel := cfg.Parallel
	if opts.Parallel > 0 {
		parallel = opts.Parallel
	}
	results, err := harness.RunScenarios(cmd.Context(), scenarios, harness.RunOptions{
		Sink:     sinks,
		Parallel: parallel,
		Counters: ctrs,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenarios", err)
	}

	summary := TestResult{
		Scenarios: make([]ScenarioResult, len(scenarios)),
		Total:     len(scenarios),
	}
	goldenDir := filepath.Join(dir, "golden")
	for i, s := range scenarios {
		sr := judge(s, results[i])
		if sr.Pass {
			if msg := checkGolden(goldenDir, s, opts.Update, logger); msg != "" {
				sr.Pass = false
				sr.Errors = append(sr.Errors, msg)
			}
		}
		if sr.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
		summary.Scenarios[i] = sr
	}
	summary.Counters = ctrs.Snapshot()

	if opts.Metrics != "" {
		if err := prometheus.WriteToTextfile(opts.Metrics, reg); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
	}

	if summary.Failed > 0 {
		msg := fmt.Sprintf("%d scenario(s) failed", summary.Failed)
		if err := out.Failure("E_TEST_FAILED", msg, summary); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}
	if opts.Format == "json" {
		return out.Success(summary)
	}
	fmt.Fprintln(cmd.OutOrStdout(), summary)
	fmt.Fprintln(cmd.OutOrStdout(), "✓ All scenarios passed")
	return nil
}

func filterScenarios(all []*harness.Scenario, pattern string) ([]*harness.Scenario, error) {
	if pattern == "" {
		return all, nil
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, err
	}
	var out []*harness.Scenario
	for _, s := range all {
		if ok, _ := filepath.Match(pattern, s.Name); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func openStore(path string) (*store.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return store.Open(path)
}

// judge applies the scenario's expectation to a live result. A scenario
// that expects failures passes when it fails exactly that often.
func judge(s *harness.Scenario, result *harness.Result) ScenarioResult {
	sr := ScenarioResult{
		Name:     s.Name,
		TestID:   s.ID(),
		Failures: result.Failures,
		Pass:     s.Satisfied(result),
	}
	if sr.Pass {
		return sr
	}
	sr.Errors = result.Errors
	if s.ExpectFailures != nil && result.Failures != *s.ExpectFailures {
		sr.Errors = append(sr.Errors,
			fmt.Sprintf("expected %d failure(s), got %d", *s.ExpectFailures, result.Failures))
	}
	return sr
}

// checkGolden re-runs the scenario on a virtual clock and compares the
// trace with goldenDir/<name>.golden, or rewrites it when update is set.
// Scenarios without a golden file are skipped. It returns a failure
// message, or "" when the trace matches.
func checkGolden(goldenDir string, s *harness.Scenario, update bool, logger *slog.Logger) string {
	path := filepath.Join(goldenDir, s.Name+".golden")
	if !update {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return ""
		}
	}

	result, err := harness.Run(s)
	if err != nil {
		return fmt.Sprintf("golden run failed: %v", err)
	}
	got, err := harness.MarshalTrace(s, result)
	if err != nil {
		return fmt.Sprintf("failed to marshal trace: %v", err)
	}

	if update {
		if err := os.MkdirAll(goldenDir, 0o755); err != nil {
			return fmt.Sprintf("failed to create golden directory: %v", err)
		}
		if err := os.WriteFile(path, got, 0o644); err != nil {
			return fmt.Sprintf("failed to write golden file: %v", err)
		}
		logger.Info("golden file updated", "scenario", s.Name, "path", path)
		return ""
	}

	want, err := os.ReadFile(path)
	if err != nil {
		return fmt.Sprintf("failed to read golden file: %v", err)
	}
	if !bytes.Equal(bytes.TrimSpace(want), bytes.TrimSpace(got)) {
		return "trace does not match golden file (run with --update to regenerate)"
	}
	return ""
}
