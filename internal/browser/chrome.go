package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"
)

// chromeSession drives a local Chrome over the DevTools protocol.
type chromeSession struct {
	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	timeout     time.Duration
	settleDelay time.Duration
	logger      *slog.Logger
}

func openChrome(ctx context.Context, opts Options) (*chromeSession, error) {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if !opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	// The browser outlives the Open call, so it hangs off a fresh context;
	// ctx only bounds the start-up below.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tab, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			opts.Logger.Debug(fmt.Sprintf(format, args...), "engine", EngineChrome)
		}),
	)

	s := &chromeSession{
		tab:         tab,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		timeout:     opts.Timeout,
		settleDelay: opts.SettleDelay,
		logger:      opts.Logger,
	}
	// An empty Run launches the browser and opens the first tab.
	if err := s.run(ctx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("%w: chrome: %w", ErrStart, err)
	}
	return s, nil
}

// run executes actions on the tab, bounded by the per-call timeout and by ctx.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	callCtx, cancel := context.WithTimeout(s.tab, s.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(callCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (s *chromeSession) evaluate(ctx context.Context, fn string, out any, args ...any) error {
	expr, err := callExpression(fn, args...)
	if err != nil {
		return err
	}
	return s.run(ctx, chromedp.Evaluate(expr, out))
}

// Navigate implements Session.
func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("navigating", "engine", EngineChrome, "url", url)
	return s.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// FindControl implements Session.
func (s *chromeSession) FindControl(ctx context.Context, id string) error {
	var found bool
	if err := s.evaluate(ctx, existsScript, &found, id); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrControlNotFound, id)
	}
	return nil
}

// ReadOptions implements Session.
func (s *chromeSession) ReadOptions(ctx context.Context, id string) ([]Option, error) {
	var res readOptionsResult
	if err := s.evaluate(ctx, readOptionsScript, &res, id); err != nil {
		return nil, err
	}
	if !res.Found {
		return nil, fmt.Errorf("%w: %s", ErrControlNotFound, id)
	}
	return res.Options, nil
}

// SelectOption implements Session.
func (s *chromeSession) SelectOption(ctx context.Context, id, value string) error {
	return s.selectBy(ctx, id, value, false)
}

// SelectOptionByLabel implements Session.
func (s *chromeSession) SelectOptionByLabel(ctx context.Context, id, label string) error {
	return s.selectBy(ctx, id, label, true)
}

func (s *chromeSession) selectBy(ctx context.Context, id, wanted string, byLabel bool) error {
	var result string
	if err := s.evaluate(ctx, selectScript, &result, id, wanted, byLabel); err != nil {
		return err
	}
	if err := selectError(id, wanted, result); err != nil {
		return err
	}
	return settle(ctx, s.settleDelay)
}

// Close implements Session.
func (s *chromeSession) Close() error {
	defer s.cancelAlloc()
	err := chromedp.Cancel(s.tab)
	s.cancelTab()
	if err != nil {
		return fmt.Errorf("failed to close chrome: %w", err)
	}
	return nil
}
