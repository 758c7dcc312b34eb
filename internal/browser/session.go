// Package browser adapts a Chromium page driven by go-rod to the resolver's
// Accessor capability.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/roach88/steady/internal/diag"
)

// Config controls how a browser is obtained.
type Config struct {
	// ControlURL attaches to an already running browser. Empty launches one.
	ControlURL string `yaml:"control_url" env:"CONTROL_URL"`

	// Bin is the browser executable used when launching. Empty lets the
	// launcher find or download one.
	Bin string `yaml:"bin" env:"BIN"`

	Headless bool `yaml:"headless" env:"HEADLESS"`

	// NavigationTimeout bounds Navigate.
	NavigationTimeout time.Duration `yaml:"navigation_timeout" env:"NAVIGATION_TIMEOUT"`

	ViewportWidth  int `yaml:"viewport_width" env:"VIEWPORT_WIDTH"`
	ViewportHeight int `yaml:"viewport_height" env:"VIEWPORT_HEIGHT"`
}

// DefaultConfig returns a headless configuration.
func DefaultConfig() Config {
	return Config{
		Headless:          true,
		NavigationTimeout: 30 * time.Second,
		ViewportWidth:     1280,
		ViewportHeight:    800,
	}
}

// Session owns one browser connection and one page.
type Session struct {
	cfg      Config
	browser  *rod.Browser
	page     *rod.Page
	launched *launcher.Launcher
	diag     *diag.Writer
	logger   *slog.Logger
}

// Launch connects to cfg.ControlURL or starts a new browser, and opens a
// blank page. The session lives until Close or until ctx is done.
// A nil diag writer disables diagnostic snapshots.
func Launch(ctx context.Context, cfg Config, dw *diag.Writer, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{cfg: cfg, diag: dw, logger: logger}

	controlURL := cfg.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(cfg.Headless)
		if cfg.Bin != "" {
			l = l.Bin(cfg.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		s.launched = l
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		s.kill()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}
	s.browser = browser

	page, err := browser.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}
	s.page = page

	if cfg.ViewportWidth > 0 && cfg.ViewportHeight > 0 {
		if err := (proto.EmulationSetDeviceMetricsOverride{
			Width:             cfg.ViewportWidth,
			Height:            cfg.ViewportHeight,
			DeviceScaleFactor: 1.0,
			Mobile:            false,
		}).Call(page); err != nil {
			logger.Warn("failed to set viewport", "error", err)
		}
	}

	logger.Debug("browser session ready", "control_url", controlURL)
	return s, nil
}

// Navigate loads url, bounded by the configured navigation timeout.
func (s *Session) Navigate(ctx context.Context, url string) error {
	page := s.page.Context(ctx)
	if s.cfg.NavigationTimeout > 0 {
		page = page.Timeout(s.cfg.NavigationTimeout)
	}
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// Page returns the underlying rod page.
func (s *Session) Page() *rod.Page { return s.page }

// Accessor returns the resolver capability for the session's page.
func (s *Session) Accessor() *Accessor {
	return &Accessor{page: s.page, diag: s.diag, logger: s.logger}
}

// Close disconnects and, if Launch started the browser, kills it.
func (s *Session) Close() error {
	var err error
	if s.browser != nil {
		err = s.browser.Close()
	}
	s.kill()
	return err
}

func (s *Session) kill() {
	if s.launched != nil {
		s.launched.Kill()
		s.launched = nil
	}
}

var errNoPage = errors.New("browser accessor has no page")
