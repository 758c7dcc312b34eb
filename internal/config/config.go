// Package config loads steady's settings: defaults, then an optional YAML
// file, then STEADY_* environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/roach88/steady/internal/browser"
	"github.com/roach88/steady/internal/eval"
	"github.com/roach88/steady/internal/resolve"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "STEADY_"

// Config is the complete runtime configuration.
type Config struct {
	Resolve Resolve `yaml:"resolve" envPrefix:"RESOLVE_"`

	// DiagnosticsDir receives screenshots captured on resolution misses.
	DiagnosticsDir string `yaml:"diagnostics_dir" env:"DIAGNOSTICS_DIR"`

	// ReportDB is the sqlite file events are persisted to. Empty disables
	// persistence.
	ReportDB string `yaml:"report_db" env:"REPORT_DB"`

	Logging Logging        `yaml:"logging" envPrefix:"LOG_"`
	Browser browser.Config `yaml:"browser" envPrefix:"BROWSER_"`

	// Parallel caps concurrently running tests.
	Parallel int `yaml:"parallel" env:"PARALLEL"`

	// Policy is the evaluation policy for scenarios that don't name one.
	Policy string `yaml:"policy" env:"POLICY"`
}

// Resolve holds state resolution timing.
type Resolve struct {
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	Settle  time.Duration `yaml:"settle" env:"SETTLE"`
	Poll    time.Duration `yaml:"poll" env:"POLL"`
}

// Logging selects the slog level and handler.
type Logging struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Resolve: Resolve{
			Timeout: 10 * time.Second,
			Settle:  resolve.DefaultSettleDelay,
			Poll:    resolve.DefaultPollInterval,
		},
		DiagnosticsDir: "reports",
		ReportDB:       "steady.db",
		Logging:        Logging{Level: "info", Format: "text"},
		Browser:        browser.DefaultConfig(),
		Parallel:       4,
		Policy:         eval.Immediate.String(),
	}
}

// Load builds a configuration from defaults, the YAML file at path (skipped
// when path is empty), and the process environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config YAML: %w", err)
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Resolve.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("resolve.timeout must be positive, got %s", c.Resolve.Timeout))
	}
	if c.Resolve.Settle < 0 {
		errs = append(errs, fmt.Errorf("resolve.settle must not be negative, got %s", c.Resolve.Settle))
	}
	if c.Resolve.Poll <= 0 {
		errs = append(errs, fmt.Errorf("resolve.poll must be positive, got %s", c.Resolve.Poll))
	}
	if c.Parallel < 1 {
		errs = append(errs, fmt.Errorf("parallel must be at least 1, got %d", c.Parallel))
	}
	if c.Browser.NavigationTimeout <= 0 {
		errs = append(errs, fmt.Errorf("browser.navigation_timeout must be positive, got %s", c.Browser.NavigationTimeout))
	}
	if c.Browser.ViewportWidth < 0 || c.Browser.ViewportHeight < 0 {
		errs = append(errs, fmt.Errorf("browser viewport must not be negative"))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q is not text or json", c.Logging.Format))
	}
	if _, err := eval.ParsePolicy(c.Policy); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// ResolverOptions returns the resolver options carried by the config.
func (c Config) ResolverOptions() []resolve.Option {
	return []resolve.Option{
		resolve.WithSettleDelay(c.Resolve.Settle),
		resolve.WithPollInterval(c.Resolve.Poll),
	}
}
