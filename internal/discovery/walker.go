package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nao1215/drivercatalog/internal/browser"
	"github.com/nao1215/drivercatalog/internal/catalog"
	"github.com/nao1215/drivercatalog/internal/config"
)

// Opener starts a browser session.
type Opener func(ctx context.Context) (browser.Session, error)

// BrowserOpener returns an Opener for the browser configured in cfg.
func BrowserOpener(cfg *config.Config, logger *slog.Logger) Opener {
	return func(ctx context.Context) (browser.Session, error) {
		return browser.Open(ctx, browser.Options{
			Engine:       cfg.Engine,
			Headless:     cfg.Headless,
			WebDriverURL: cfg.WebDriverURL,
			UserAgent:    cfg.UserAgent,
			Timeout:      cfg.BrowserTimeout,
			SettleDelay:  cfg.SettleDelay,
			Logger:       logger,
		})
	}
}

// Walker performs the depth-first walk. A Walker is not safe for
// concurrent use; one walk drives one browser tab.
type Walker struct {
	open     Opener
	startURL string
	controls [catalog.Depth]string
	filter   Filter
	logger   *slog.Logger

	skipped []error
}

// Option configures a Walker.
type Option func(*Walker)

// WithStartURL sets the configurator page.
func WithStartURL(u string) Option {
	return func(w *Walker) {
		if u != "" {
			w.startURL = u
		}
	}
}

// WithControls sets the dropdown element ids, root level first.
func WithControls(ids config.ControlIDs) Option {
	return func(w *Walker) {
		copy(w.controls[:], ids.Slice())
	}
}

// WithFilter sets the option filter.
func WithFilter(f Filter) Option {
	return func(w *Walker) {
		w.filter = f
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Walker) {
		w.logger = logger
	}
}

// New creates a Walker. Without options it walks the vendor page with the
// default controls and keeps English Windows drivers of consumer products.
func New(open Opener, opts ...Option) *Walker {
	w := &Walker{
		open:     open,
		startURL: config.DefaultStartURL,
		filter: Filter{
			ConsumerOnly:        true,
			ConsumerTypes:       config.DefaultConsumerTypes,
			WindowsOnly:         true,
			PrimaryLanguageOnly: true,
			PrimaryLanguage:     config.DefaultPrimaryLanguage,
		},
	}
	copy(w.controls[:], config.DefaultControlIDs().Slice())
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	return w
}

// ConfigOptions translates the discovery section of cfg into options.
func ConfigOptions(cfg *config.Config) []Option {
	return []Option{
		WithStartURL(cfg.StartURL),
		WithControls(cfg.Controls),
		WithFilter(FilterFromConfig(cfg)),
	}
}

// Walk discovers the option tree. It returns the tree, whose leaves are all
// Unresolved, and the key of every leaf in discovery order.
//
// Failing to open the session, load the start page or read the product type
// dropdown is fatal and wraps ErrSessionStart. Any deeper dropdown that
// cannot be read abandons only its branch; see Skipped.
func (w *Walker) Walk(ctx context.Context) (*catalog.Tree, []catalog.LookupKey, error) {
	w.skipped = nil

	session, err := w.open(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrSessionStart, err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			w.logger.Warn("failed to close browser session", "error", err)
		}
	}()

	if err := session.Navigate(ctx, w.startURL); err != nil {
		return nil, nil, fmt.Errorf("%w: load %s: %w", ErrSessionStart, w.startURL, err)
	}

	startTime := time.Now()
	wk := &walk{Walker: w, session: session, tree: catalog.NewTree()}
	if err := wk.level(ctx, catalog.ProductType, nil, nil); err != nil {
		return nil, nil, err
	}
	wk.tree.Prune()

	w.logger.Info("discovery complete",
		"leaves", len(wk.keys),
		"skipped_branches", len(w.skipped),
		"elapsed", time.Since(startTime),
	)
	return wk.tree, wk.keys, nil
}

// Skipped returns the branches abandoned by the last Walk. Every error
// wraps ErrBranchSkipped.
func (w *Walker) Skipped() []error {
	return w.skipped
}

// walk is the state of one Walk call.
type walk struct {
	*Walker
	session browser.Session
	tree    *catalog.Tree
	keys    []catalog.LookupKey
}

// level walks the dropdown of lvl below the selected path. It returns an
// error when ctx is done or the root dropdown is unreadable; every other
// failure skips a branch.
func (wk *walk) level(ctx context.Context, lvl catalog.Level, path, names []string) error {
	id := wk.controls[lvl]
	options, err := wk.session.ReadOptions(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if lvl == catalog.ProductType {
			return fmt.Errorf("%w: read %s: %w", ErrSessionStart, id, err)
		}
		wk.skip(lvl, path, fmt.Errorf("read %s: %w", id, err))
		return nil
	}

	if lvl == catalog.Language && wk.filter.PrimaryLanguageOnly {
		return wk.primaryLanguage(ctx, id, options, path, names)
	}

	for _, opt := range options {
		if opt.Value == "" {
			continue
		}
		if !wk.filter.Keep(lvl, opt.Label) {
			continue
		}
		if err := wk.session.SelectOption(ctx, id, opt.Value); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			wk.rejected(lvl, id, opt, err)
			continue
		}

		nextPath := append(path[:len(path):len(path)], opt.Value)
		nextNames := append(names[:len(names):len(names)], opt.Label)
		if lvl.IsLeaf() {
			if err := wk.record(nextPath, nextNames); err != nil {
				return err
			}
			continue
		}
		if err := wk.level(ctx, lvl+1, nextPath, nextNames); err != nil {
			return err
		}
	}
	return nil
}

// primaryLanguage selects the primary language by its label and records the
// single leaf.
func (wk *walk) primaryLanguage(ctx context.Context, id string, options []browser.Option, path, names []string) error {
	var value string
	for _, opt := range options {
		if opt.Label == wk.filter.PrimaryLanguage && opt.Value != "" {
			value = opt.Value
			break
		}
	}
	if value == "" {
		wk.logger.Info("primary language not offered",
			"path", strings.Join(path, "/"),
			"language", wk.filter.PrimaryLanguage,
		)
		return nil
	}
	if err := wk.session.SelectOptionByLabel(ctx, id, wk.filter.PrimaryLanguage); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		wk.rejected(catalog.Language, id, browser.Option{Value: value, Label: wk.filter.PrimaryLanguage}, err)
		return nil
	}
	return wk.record(append(path[:len(path):len(path)], value), append(names[:len(names):len(names)], wk.filter.PrimaryLanguage))
}

// record inserts a fully walked path with its labels.
func (wk *walk) record(path, names []string) error {
	for i := range path {
		if err := wk.tree.SetNode(path[:i+1], names[i]); err != nil {
			return err
		}
	}
	key, err := catalog.KeyFromPath(path)
	if err != nil {
		return err
	}
	wk.keys = append(wk.keys, key)
	wk.logger.Debug("leaf discovered", "key", key.String(), "language", names[len(names)-1])
	return nil
}

func (wk *walk) skip(lvl catalog.Level, path []string, cause error) {
	err := fmt.Errorf("%w at %s %q: %w", ErrBranchSkipped, lvl, strings.Join(path, "/"), cause)
	wk.skipped = append(wk.skipped, err)
	wk.logger.Warn("branch skipped", "level", lvl.String(), "path", strings.Join(path, "/"), "error", cause)
}

func (wk *walk) rejected(lvl catalog.Level, id string, opt browser.Option, err error) {
	if errors.Is(err, browser.ErrOptionRejected) {
		wk.logger.Debug("option rejected", "level", lvl.String(), "control", id, "value", opt.Value, "label", opt.Label)
		return
	}
	wk.logger.Warn("selection failed", "level", lvl.String(), "control", id, "value", opt.Value, "error", err)
}
