package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/steady/internal/browser"
	"github.com/roach88/steady/internal/catalog"
	"github.com/roach88/steady/internal/diag"
	"github.com/roach88/steady/internal/logsink"
	"github.com/roach88/steady/internal/navigate"
	"github.com/roach88/steady/internal/resolve"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	URL     string
	Timeout time.Duration // overrides resolve.timeout when > 0
}

// ResolveResult reports the shape a page resolved to.
type ResolveResult struct {
	URL      string   `json:"url"`
	Shape    string   `json:"shape"`
	Title    string   `json:"title,omitempty"`
	Expected []string `json:"expected"`
}

func (r ResolveResult) String() string {
	return fmt.Sprintf("✓ %s resolved to %q (title %q)", r.URL, r.Shape, r.Title)
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <catalog>",
		Short: "Report which catalog shape a page shows",
		Long: `Open a browser at --url and resolve which shape from the catalog the page
currently shows. The catalog's current shape, if any, is checked last.
When nothing resolves, a screenshot is written under the diagnostics
directory.

Exit codes:
  0 - A shape resolved
  1 - No shape resolved within the timeout
  2 - Command error (invalid catalog, browser unavailable, etc.)

Examples:
  steady resolve shapes.yaml --url https://app.test/
  steady resolve shapes.yaml --url https://app.test/ --timeout 20s --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.URL, "url", "", "page to open (required)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "resolution budget (default from config)")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}

func runResolve(cmd *cobra.Command, opts *ResolveOptions, catalogPath string) error {
	cfg, logger, err := opts.runtime(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	cat, err := catalog.Load(catalogPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load catalog", err)
	}
	timeout := cfg.Resolve.Timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	ctx := cmd.Context()
	dw := diag.NewWriter(diag.ReportPath(cfg.DiagnosticsDir))
	session, err := browser.Launch(ctx, cfg.Browser, dw, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start browser", err)
	}
	defer session.Close()

	if err := session.Navigate(ctx, opts.URL); err != nil {
		return WrapExitError(ExitCommandError, "failed to open "+opts.URL, err)
	}

	ropts := append(cfg.ResolverOptions(),
		resolve.WithEvents(logsink.NewSlog(logger)),
		resolve.WithLogger(logger),
	)
	graph, err := catalogGraph(cat, resolve.New(session.Accessor(), ropts...))
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid catalog", err)
	}

	out := opts.formatter(cmd)
	result := ResolveResult{URL: opts.URL, Expected: resolve.Names(graph.Order())}
	shape, err := graph.ResolveAndTransition(ctx, timeout)
	if err != nil {
		if err := out.Failure(ErrorCode(err), err.Error(), result); err != nil {
			return err
		}
		out.VerboseLog("diagnostics: %s", dw.Dir())
		return WrapExitError(ExitFailure, "no shape resolved", err)
	}

	result.Shape = shape.Name()
	if id, err := session.Accessor().Identify(ctx); err == nil {
		result.Title = id.Title
	}
	return out.Success(result)
}

// catalogGraph builds a graph with one stay-put path per catalog shape, so
// resolving it identifies the page without moving it.
func catalogGraph(cat *catalog.Catalog, r *resolve.Resolver) (*navigate.Graph, error) {
	g := navigate.New(r, cat.Current)
	for _, c := range cat.Candidates() {
		if err := g.AddPath(c, nil); err != nil {
			return nil, fmt.Errorf("shape %s: %w", c.Name, err)
		}
	}
	return g, nil
}
