package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/nao1215/drivercatalog/internal/catalog"
	"github.com/nao1215/drivercatalog/internal/config"
	"github.com/nao1215/drivercatalog/internal/metrics"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ChunkHook is called after every chunk with the number of chunks done and
// the total. Returning an error stops the batch.
type ChunkHook func(ctx context.Context, done, total int) error

// Engine resolves lookup keys against the vendor endpoint.
// An Engine holds no per-batch state and can run several batches one after
// another.
type Engine struct {
	resolverURL string
	classifier  Classifier
	userAgent   string

	chunkSize   int
	maxInFlight int
	minDelay    time.Duration
	maxDelay    time.Duration
	timeout     time.Duration
	rateLimit   float64

	transport http.RoundTripper
	logger    *slog.Logger
	metrics   *metrics.Collectors
	onChunk   ChunkHook

	sleep func(ctx context.Context, d time.Duration) error
	randN func(n int64) int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithChunkSize sets the number of keys per chunk.
func WithChunkSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.chunkSize = n
		}
	}
}

// WithMaxInFlight sets the run-wide ceiling on concurrent requests.
func WithMaxInFlight(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxInFlight = n
		}
	}
}

// WithDelayWindow sets the bounds of the random pause before each chunk.
func WithDelayWindow(minDelay, maxDelay time.Duration) Option {
	return func(e *Engine) {
		if minDelay >= 0 && maxDelay >= minDelay {
			e.minDelay = minDelay
			e.maxDelay = maxDelay
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithResolverURL sets the endpoint queried per key.
func WithResolverURL(u string) Option {
	return func(e *Engine) {
		if u != "" {
			e.resolverURL = u
		}
	}
}

// WithClassifier replaces the download root and vendor marker.
func WithClassifier(c Classifier) Option {
	return func(e *Engine) {
		e.classifier = c
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(e *Engine) {
		e.userAgent = ua
	}
}

// WithTransport makes every batch use rt instead of a private connection pool.
func WithTransport(rt http.RoundTripper) Option {
	return func(e *Engine) {
		e.transport = rt
	}
}

// WithRateLimit caps the request rate across the batch. Zero disables it.
func WithRateLimit(perSecond float64) Option {
	return func(e *Engine) {
		if perSecond >= 0 {
			e.rateLimit = perSecond
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics records requests and chunks on c.
func WithMetrics(c *metrics.Collectors) Option {
	return func(e *Engine) {
		e.metrics = c
	}
}

// WithChunkHook registers a function called after each chunk.
func WithChunkHook(hook ChunkHook) Option {
	return func(e *Engine) {
		e.onChunk = hook
	}
}

// WithSleep replaces the pause function, mainly for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Engine) {
		if sleep != nil {
			e.sleep = sleep
		}
	}
}

// WithRandom replaces the source of the pause length. randN must return a
// value in [0, n).
func WithRandom(randN func(n int64) int64) Option {
	return func(e *Engine) {
		if randN != nil {
			e.randN = randN
		}
	}
}

// New creates an Engine with the default pacing: 20 keys per chunk, 20
// requests in flight, a 1s to 7s pause and a 10s timeout.
func New(opts ...Option) *Engine {
	e := &Engine{
		resolverURL: config.DefaultResolverURL,
		classifier:  DefaultClassifier,
		userAgent:   config.DefaultUserAgent,
		chunkSize:   config.DefaultChunkSize,
		maxInFlight: config.DefaultMaxInFlight,
		minDelay:    config.DefaultMinDelay,
		maxDelay:    config.DefaultMaxDelay,
		timeout:     config.DefaultRequestTimeout,
		sleep:       sleepContext,
		randN:       rand.Int64N,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// ConfigOptions translates the resolver section of cfg into options.
func ConfigOptions(cfg *config.Config) []Option {
	return []Option{
		WithResolverURL(cfg.ResolverURL),
		WithClassifier(Classifier{DownloadRoot: cfg.DownloadRoot, VendorMarker: cfg.VendorMarker}),
		WithUserAgent(cfg.UserAgent),
		WithChunkSize(cfg.ChunkSize),
		WithMaxInFlight(cfg.MaxInFlight),
		WithDelayWindow(cfg.MinDelay, cfg.MaxDelay),
		WithTimeout(cfg.RequestTimeout),
		WithRateLimit(cfg.RateLimit),
	}
}

// Resolve fills in the outcome of every key in tree.
//
// All keys are checked against the tree first; a key that does not address
// an existing leaf fails the call with catalog.ErrInvalidPath before any
// request is sent. When Resolve returns nil, no key of the batch is left
// Unresolved. A cancelled context stops the batch between requests and is
// returned as is; outcomes written so far stay in the tree.
func (e *Engine) Resolve(ctx context.Context, tree *catalog.Tree, keys []catalog.LookupKey) error {
	for _, key := range keys {
		if _, err := tree.Leaf(key); err != nil {
			return err
		}
	}
	if len(keys) == 0 {
		e.logger.Info("nothing to resolve")
		return nil
	}

	client, closeIdle := e.newClient()
	defer closeIdle()

	chunks := Chunk(keys, e.chunkSize)
	sem := semaphore.NewWeighted(int64(e.maxInFlight))
	var mu sync.Mutex

	e.logger.Info("starting resolution",
		"keys", len(keys),
		"chunks", len(chunks),
		"chunk_size", e.chunkSize,
		"max_in_flight", e.maxInFlight,
	)
	startTime := time.Now()

	for i, chunk := range chunks {
		wait := e.delay()
		e.logger.Info("waiting before chunk",
			"chunk", i+1,
			"total", len(chunks),
			"wait", wait,
		)
		if err := e.sleep(ctx, wait); err != nil {
			return err
		}
		e.metrics.ObserveChunk()

		g, gctx := errgroup.WithContext(ctx)
		for _, key := range chunk {
			g.Go(func() error {
				if err := sem.Acquire(gctx, 1); err != nil {
					return err
				}
				defer sem.Release(1)

				outcome := e.resolveOne(gctx, client, key)

				mu.Lock()
				defer mu.Unlock()
				return tree.SetLeafOutcome(key, outcome)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if e.onChunk != nil {
			if err := e.onChunk(ctx, i+1, len(chunks)); err != nil {
				return fmt.Errorf("chunk %d/%d hook failed: %w", i+1, len(chunks), err)
			}
		}
	}

	e.logger.Info("resolution complete",
		"keys", len(keys),
		"elapsed", time.Since(startTime),
	)
	return nil
}

// RequestURL builds the resolver URL for key. Parameters always appear in
// level order: dtcid, psid, pfid, osid, dtid, lid.
func (e *Engine) RequestURL(key catalog.LookupKey) string {
	var b strings.Builder
	b.WriteString(e.resolverURL)
	for i, level := range catalog.Levels {
		sep := "&"
		if i == 0 {
			sep = "?"
		}
		fmt.Fprintf(&b, "%s%s=%s", sep, level.Param(), url.QueryEscape(key.ID(level)))
	}
	return b.String()
}

func (e *Engine) resolveOne(ctx context.Context, client *resty.Client, key catalog.LookupKey) catalog.Outcome {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := e.metrics.TrackInFlight()
	defer done()

	target := e.RequestURL(key)
	start := time.Now()
	resp, err := client.R().SetContext(ctx).Get(target)

	var (
		status int
		body   string
	)
	if resp != nil {
		status = resp.StatusCode()
		body = resp.String()
	}
	outcome := e.classifier.Classify(status, body, err)
	e.metrics.ObserveRequest(outcome.Kind, time.Since(start))

	switch outcome.Kind {
	case catalog.Resolved:
		e.logger.Debug("resolved", "key", key.String(), "url", outcome.URL)
	case catalog.NotFound:
		e.logger.Debug("no download", "key", key.String(), "body", body)
	default:
		e.logger.Warn("resolution failed",
			"key", key.String(),
			"outcome", outcome.Kind.String(),
			"reason", outcome.Reason,
			"body", body,
		)
	}
	return outcome
}

// newClient returns a resty client over a connection pool scoped to one
// batch, and the function releasing that pool.
func (e *Engine) newClient() (*resty.Client, func()) {
	rt := e.transport
	if rt == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.MaxConnsPerHost = e.maxInFlight
		tr.MaxIdleConnsPerHost = e.maxInFlight
		rt = tr
	}
	closeIdle := func() {
		if c, ok := rt.(interface{ CloseIdleConnections() }); ok {
			c.CloseIdleConnections()
		}
	}

	client := resty.NewWithClient(&http.Client{Transport: rt}).
		SetTimeout(e.timeout).
		SetHeader("User-Agent", e.userAgent)

	if e.rateLimit > 0 {
		burst := max(1, int(e.rateLimit))
		limiter := rate.NewLimiter(rate.Limit(e.rateLimit), burst)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}
	return client, closeIdle
}

// delay picks the pause before a chunk, uniformly in [minDelay, maxDelay].
func (e *Engine) delay() time.Duration {
	if e.maxDelay <= e.minDelay {
		return e.minDelay
	}
	return e.minDelay + time.Duration(e.randN(int64(e.maxDelay-e.minDelay)+1))
}

// Chunk splits keys into consecutive groups of at most size keys,
// preserving order.
func Chunk(keys []catalog.LookupKey, size int) [][]catalog.LookupKey {
	if size <= 0 {
		size = 1
	}
	return slices.Collect(slices.Chunk(keys, size))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
