package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"

	"github.com/roach88/steady/internal/diag"
	"github.com/roach88/steady/internal/resolve"
)

// Accessor implements resolve.Accessor over a rod page.
type Accessor struct {
	page   *rod.Page
	diag   *diag.Writer
	logger *slog.Logger
}

var _ resolve.Accessor = (*Accessor)(nil)

// NewAccessor wraps page. A nil diag writer disables snapshots.
func NewAccessor(page *rod.Page, dw *diag.Writer, logger *slog.Logger) *Accessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Accessor{page: page, diag: dw, logger: logger}
}

// WaitForBaseSignal waits for the page load event.
func (a *Accessor) WaitForBaseSignal(ctx context.Context, timeout time.Duration) bool {
	if a.page == nil || timeout <= 0 {
		return false
	}
	if err := a.page.Context(ctx).Timeout(timeout).WaitLoad(); err != nil {
		a.logger.Debug("page load not signalled", "timeout", timeout, "error", err)
		return false
	}
	return true
}

// CaptureDiagnostic saves a full-page screenshot named after name.
func (a *Accessor) CaptureDiagnostic(ctx context.Context, name string) error {
	if a.diag == nil {
		return nil
	}
	if a.page == nil {
		return errNoPage
	}
	png, err := a.page.Context(ctx).Screenshot(true, nil)
	if err != nil {
		return fmt.Errorf("screenshot %s: %w", name, err)
	}
	path, err := a.diag.Write(name, "png", png)
	if err != nil {
		return err
	}
	a.logger.Info("diagnostic captured", "name", name, "path", path)
	return nil
}

// Identify reports the page title and URL.
func (a *Accessor) Identify(ctx context.Context) (resolve.Identity, error) {
	if a.page == nil {
		return resolve.Identity{}, errNoPage
	}
	info, err := a.page.Context(ctx).Info()
	if err != nil {
		return resolve.Identity{}, fmt.Errorf("page info: %w", err)
	}
	return resolve.Identity{Title: info.Title, URL: info.URL}, nil
}
