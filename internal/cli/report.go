package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/steady/internal/store"
)

// ReportResult is the summary printed by the report command.
type ReportResult struct {
	*store.Summary
}

func (r ReportResult) String() string {
	var b strings.Builder
	for _, t := range r.Tests {
		name := t.TestID
		if t.Class != "" || t.Method != "" {
			name = fmt.Sprintf("%s (%s.%s)", t.TestID, t.Class, t.Method)
		}
		switch t.Outcome {
		case store.OutcomePass:
			fmt.Fprintf(&b, "✓ %s, %d check(s)\n", name, t.Checks)
		case store.OutcomeFail:
			fmt.Fprintf(&b, "✗ %s, %d check(s)\n", name, t.Checks)
		default:
			fmt.Fprintf(&b, "… %s, %d check(s), no end event\n", name, t.Checks)
		}
		for _, f := range t.Failures {
			fmt.Fprintf(&b, "  %s\n", strings.ReplaceAll(f, "\n", "\n  "))
		}
	}
	fmt.Fprintf(&b, "\nReport: %d passed, %d failed, %d running, %d total",
		r.Passed, r.Failed, r.Running, len(r.Tests))
	return b.String()
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "report <db>",
		Short: "Summarize persisted test events",
		Long: `Summarize the events a test run persisted: one line per test with its
outcome and check count, followed by each failure message.

Exit codes:
  0 - No test failed
  1 - At least one test failed
  2 - Command error (database not found, etc.)

Examples:
  steady report steady.db
  steady report out/events.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, rootOpts, args[0])
		},
	}
}

func runReport(cmd *cobra.Command, opts *RootOptions, dbPath string) error {
	if _, err := os.Stat(dbPath); err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", dbPath))
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open event database", err)
	}
	defer st.Close()

	summary, err := st.Summarize(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to summarize events", err)
	}

	out := opts.formatter(cmd)
	result := ReportResult{Summary: summary}
	if summary.Failed > 0 {
		msg := fmt.Sprintf("%d test(s) failed", summary.Failed)
		if err := out.Failure("E_TEST_FAILED", msg, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}
	return out.Success(result)
}
