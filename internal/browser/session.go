package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Option is one entry of a dropdown, in page order.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Session is a live browser tab.
type Session interface {
	// Navigate loads url and waits for the document to be ready.
	Navigate(ctx context.Context, url string) error
	// FindControl checks that an element with the given id exists.
	FindControl(ctx context.Context, id string) error
	// ReadOptions returns the options of the dropdown with the given id.
	ReadOptions(ctx context.Context, id string) ([]Option, error)
	// SelectOption selects the option with the given value and waits for
	// the page to react.
	SelectOption(ctx context.Context, id, value string) error
	// SelectOptionByLabel selects the option with the given visible text.
	SelectOptionByLabel(ctx context.Context, id, label string) error
	// Close ends the session and releases the browser.
	Close() error
}

// Engine names accepted by Open.
const (
	EngineChrome  = "chrome"
	EngineFirefox = "firefox"
)

// Options configures a session.
type Options struct {
	Engine       string
	Headless     bool
	WebDriverURL string
	UserAgent    string
	// Timeout bounds every single call.
	Timeout time.Duration
	// SettleDelay is waited after a selection so dependent dropdowns can load.
	SettleDelay time.Duration
	Logger      *slog.Logger
}

// Open starts a session with the backend named by opts.Engine.
func Open(ctx context.Context, opts Options) (Session, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	switch opts.Engine {
	case EngineChrome:
		return openChrome(ctx, opts)
	case EngineFirefox:
		return openWebDriver(ctx, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, opts.Engine)
	}
}

// settle waits d or until ctx is done.
func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
