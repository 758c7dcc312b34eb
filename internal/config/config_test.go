package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/steady/internal/resolve"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, resolve.DefaultSettleDelay, cfg.Resolve.Settle)
	assert.Equal(t, "now", cfg.Policy)
	assert.True(t, cfg.Browser.Headless)
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	cfg, err := Load("testdata/steady.yaml")
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Resolve.Timeout)
	assert.Equal(t, 200*time.Millisecond, cfg.Resolve.Settle)
	assert.Equal(t, 100*time.Millisecond, cfg.Resolve.Poll)
	assert.Equal(t, "out/diag", cfg.DiagnosticsDir)
	assert.Equal(t, "out/events.db", cfg.ReportDB)
	assert.Equal(t, Logging{Level: "debug", Format: "json"}, cfg.Logging)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 1024, cfg.Browser.ViewportWidth)
	assert.Equal(t, 800, cfg.Browser.ViewportHeight, "unset keys keep defaults")
	assert.Equal(t, 2, cfg.Parallel)
	assert.Equal(t, "batch", cfg.Policy)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("STEADY_RESOLVE_TIMEOUT", "30s")
	t.Setenv("STEADY_PARALLEL", "8")
	t.Setenv("STEADY_LOG_LEVEL", "warn")
	t.Setenv("STEADY_BROWSER_CONTROL_URL", "ws://127.0.0.1:9222")

	cfg, err := Load("testdata/steady.yaml")
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Resolve.Timeout)
	assert.Equal(t, 8, cfg.Parallel)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "ws://127.0.0.1:9222", cfg.Browser.ControlURL)
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("resolve:\n  timeuot: 1s\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeuot")
}

func TestLoad_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("STEADY_PARALLEL", "many")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env")
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Resolve.Timeout = 0
	cfg.Parallel = 0
	cfg.Logging.Format = "xml"
	cfg.Policy = "later"

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "resolve.timeout must be positive")
	assert.Contains(t, msg, "parallel must be at least 1")
	assert.Contains(t, msg, `logging.format "xml"`)
	assert.Contains(t, msg, "later")
}

func TestResolverOptions(t *testing.T) {
	opts := Default().ResolverOptions()
	assert.Len(t, opts, 2)
}
