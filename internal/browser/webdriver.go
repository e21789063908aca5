package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/firefox"
)

// webDriverSession drives Firefox through a remote W3C WebDriver endpoint.
// The client library has no context support, so each call runs in its own
// goroutine and the caller stops waiting when the per-call timeout or ctx
// expires.
type webDriverSession struct {
	wd          selenium.WebDriver
	timeout     time.Duration
	settleDelay time.Duration
	logger      *slog.Logger
}

func openWebDriver(ctx context.Context, opts Options) (*webDriverSession, error) {
	caps := selenium.Capabilities{"browserName": "firefox"}
	ff := firefox.Capabilities{}
	if opts.Headless {
		ff.Args = append(ff.Args, "-headless")
	}
	if opts.UserAgent != "" {
		ff.Prefs = map[string]any{"general.useragent.override": opts.UserAgent}
	}
	caps.AddFirefox(ff)

	type remote struct {
		wd  selenium.WebDriver
		err error
	}
	started := make(chan remote, 1)
	go func() {
		wd, err := selenium.NewRemote(caps, opts.WebDriverURL)
		started <- remote{wd: wd, err: err}
	}()

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	var r remote
	select {
	case r = <-started:
	case <-ctx.Done():
		// Quit a session that comes up after we stopped waiting.
		go func() {
			if late := <-started; late.wd != nil {
				_ = late.wd.Quit() //nolint:errcheck // nobody is left to report to
			}
		}()
		r.err = ctx.Err()
	}
	if r.err != nil {
		return nil, fmt.Errorf("%w: firefox at %s: %w", ErrStart, opts.WebDriverURL, r.err)
	}

	s := &webDriverSession{
		wd:          r.wd,
		timeout:     opts.Timeout,
		settleDelay: opts.SettleDelay,
		logger:      opts.Logger,
	}
	if err := s.wd.SetPageLoadTimeout(opts.Timeout); err != nil {
		s.logger.Warn("failed to set page load timeout", "engine", EngineFirefox, "error", err)
	}
	return s, nil
}

// do runs fn bounded by the per-call timeout and ctx.
func (s *webDriverSession) do(ctx context.Context, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("webdriver call abandoned: %w", ctx.Err())
	}
}

func (s *webDriverSession) execute(ctx context.Context, fn string, out any, args ...any) error {
	var raw any
	err := s.do(ctx, func() error {
		var err error
		raw, err = s.wd.ExecuteScript(applyScript(fn), args)
		return err
	})
	if err != nil {
		return err
	}
	return decodeResult(raw, out)
}

// Navigate implements Session.
func (s *webDriverSession) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("navigating", "engine", EngineFirefox, "url", url)
	return s.do(ctx, func() error { return s.wd.Get(url) })
}

// FindControl implements Session.
func (s *webDriverSession) FindControl(ctx context.Context, id string) error {
	err := s.do(ctx, func() error {
		_, err := s.wd.FindElement(selenium.ByID, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrControlNotFound, id, err)
	}
	return nil
}

// ReadOptions implements Session.
func (s *webDriverSession) ReadOptions(ctx context.Context, id string) ([]Option, error) {
	var res readOptionsResult
	if err := s.execute(ctx, readOptionsScript, &res, id); err != nil {
		return nil, err
	}
	if !res.Found {
		return nil, fmt.Errorf("%w: %s", ErrControlNotFound, id)
	}
	return res.Options, nil
}

// SelectOption implements Session.
func (s *webDriverSession) SelectOption(ctx context.Context, id, value string) error {
	return s.selectBy(ctx, id, value, false)
}

// SelectOptionByLabel implements Session.
func (s *webDriverSession) SelectOptionByLabel(ctx context.Context, id, label string) error {
	return s.selectBy(ctx, id, label, true)
}

func (s *webDriverSession) selectBy(ctx context.Context, id, wanted string, byLabel bool) error {
	var result string
	if err := s.execute(ctx, selectScript, &result, id, wanted, byLabel); err != nil {
		return err
	}
	if err := selectError(id, wanted, result); err != nil {
		return err
	}
	return settle(ctx, s.settleDelay)
}

// Close implements Session.
func (s *webDriverSession) Close() error {
	if s.wd == nil {
		return nil
	}
	if err := s.wd.Quit(); err != nil {
		return fmt.Errorf("failed to close firefox: %w", err)
	}
	return nil
}
