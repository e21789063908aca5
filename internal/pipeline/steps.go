package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/nao1215/drivercatalog/internal/catalog"
	"github.com/nao1215/drivercatalog/internal/metrics"
	"github.com/nao1215/drivercatalog/internal/resolver"
	"github.com/nao1215/drivercatalog/internal/store"
)

// Discoverer walks the vendor configurator and returns the discovered tree
// with the key of every leaf.
type Discoverer interface {
	Walk(ctx context.Context) (*catalog.Tree, []catalog.LookupKey, error)
}

// LoadStep replaces the run tree with the persisted one.
type LoadStep struct {
	store    store.Store
	required bool
	logger   *slog.Logger
}

// LoadStepOption configures a LoadStep.
type LoadStepOption func(*LoadStep)

// WithRequireCatalog makes the step fail with ErrEmptyCatalog when nothing
// was persisted yet.
func WithRequireCatalog() LoadStepOption {
	return func(s *LoadStep) {
		s.required = true
	}
}

// WithLoadLogger sets a custom logger for the load step.
func WithLoadLogger(logger *slog.Logger) LoadStepOption {
	return func(s *LoadStep) {
		s.logger = logger
	}
}

// NewLoadStep creates a step loading the tree from st.
func NewLoadStep(st store.Store, opts ...LoadStepOption) *LoadStep {
	s := &LoadStep{store: st, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *LoadStep) Name() string {
	return "load"
}

// Do executes the load step.
func (s *LoadStep) Do(ctx context.Context, run *Run) error {
	tree, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	if tree.IsEmpty() && s.required {
		return ErrEmptyCatalog
	}
	run.Tree = tree
	run.Discovered = false
	s.logger.Info("catalog loaded", "leaves", tree.Len())
	return nil
}

// DiscoverStep walks the configurator and replaces the run tree.
type DiscoverStep struct {
	discoverer  Discoverer
	onlyIfEmpty bool
	logger      *slog.Logger
}

// DiscoverStepOption configures a DiscoverStep.
type DiscoverStepOption func(*DiscoverStep)

// WithDiscoverOnlyIfEmpty skips the walk when the run already holds a tree,
// e.g. one loaded from the store.
func WithDiscoverOnlyIfEmpty() DiscoverStepOption {
	return func(s *DiscoverStep) {
		s.onlyIfEmpty = true
	}
}

// WithDiscoverLogger sets a custom logger for the discover step.
func WithDiscoverLogger(logger *slog.Logger) DiscoverStepOption {
	return func(s *DiscoverStep) {
		s.logger = logger
	}
}

// NewDiscoverStep creates a discovery step.
func NewDiscoverStep(d Discoverer, opts ...DiscoverStepOption) *DiscoverStep {
	s := &DiscoverStep{discoverer: d, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *DiscoverStep) Name() string {
	return "discover"
}

// Do executes the discovery step.
func (s *DiscoverStep) Do(ctx context.Context, run *Run) error {
	if s.onlyIfEmpty && !run.Tree.IsEmpty() {
		s.logger.Debug("using persisted catalog, discovery skipped", "leaves", run.Tree.Len())
		return nil
	}
	if s.onlyIfEmpty {
		s.logger.Info("no persisted catalog, discovering online")
	}
	tree, keys, err := s.discoverer.Walk(ctx)
	if err != nil {
		return err
	}
	if tree == nil || tree.IsEmpty() {
		return ErrNothingDiscovered
	}
	run.Tree = tree
	run.Keys = keys
	run.Discovered = true
	return nil
}

// CollectAllStep queues every leaf of the tree.
type CollectAllStep struct{}

// NewCollectAllStep creates a step queueing every leaf.
func NewCollectAllStep() *CollectAllStep {
	return &CollectAllStep{}
}

// Name returns the step name.
func (s *CollectAllStep) Name() string {
	return "collect_all"
}

// Do executes the collect step.
func (s *CollectAllStep) Do(_ context.Context, run *Run) error {
	run.Keys = run.Tree.Keys()
	return nil
}

// CollectRecoverableStep queues the leaves a reconciliation pass retries:
// AccessDenied and TransientError, plus Unresolved when includeUnresolved
// is set. Resolved and NotFound leaves are never queued.
type CollectRecoverableStep struct {
	includeUnresolved bool
	logger            *slog.Logger
}

// NewCollectRecoverableStep creates a step queueing recoverable leaves.
func NewCollectRecoverableStep(includeUnresolved bool, logger *slog.Logger) *CollectRecoverableStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &CollectRecoverableStep{includeUnresolved: includeUnresolved, logger: logger}
}

// Name returns the step name.
func (s *CollectRecoverableStep) Name() string {
	return "collect_recoverable"
}

// Do executes the collect step.
func (s *CollectRecoverableStep) Do(_ context.Context, run *Run) error {
	run.Keys = run.Tree.Recoverable(s.includeUnresolved)
	tally := run.Tree.Tally()
	s.logger.Info("collected recoverable leaves",
		"keys", len(run.Keys),
		"access_denied", tally[catalog.AccessDenied],
		"transient_error", tally[catalog.TransientError],
		"unresolved", tally[catalog.Unresolved],
	)
	return nil
}

// ResolveStep resolves the queued keys into the run tree.
type ResolveStep struct {
	opts       []resolver.Option
	checkpoint store.Store
	every      int
	metrics    *metrics.Collectors
	logger     *slog.Logger
}

// ResolveStepOption configures a ResolveStep.
type ResolveStepOption func(*ResolveStep)

// WithCheckpoint saves the tree to st after every `every` chunks, and once
// more when resolution stops early. every <= 0 disables periodic saves.
func WithCheckpoint(st store.Store, every int) ResolveStepOption {
	return func(s *ResolveStep) {
		s.checkpoint = st
		s.every = every
	}
}

// WithResolveMetrics records the final tree tally on c.
func WithResolveMetrics(c *metrics.Collectors) ResolveStepOption {
	return func(s *ResolveStep) {
		s.metrics = c
	}
}

// WithResolveLogger sets a custom logger for the resolve step.
func WithResolveLogger(logger *slog.Logger) ResolveStepOption {
	return func(s *ResolveStep) {
		s.logger = logger
	}
}

// NewResolveStep creates a resolve step. engineOpts configure the
// resolver.Engine built for each execution.
func NewResolveStep(engineOpts []resolver.Option, opts ...ResolveStepOption) *ResolveStep {
	s := &ResolveStep{opts: engineOpts, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *ResolveStep) Name() string {
	return "resolve"
}

// Do executes the resolve step. An empty queue sends no request.
func (s *ResolveStep) Do(ctx context.Context, run *Run) error {
	if len(run.Keys) == 0 {
		s.logger.Info("nothing to resolve", "run", run.ID)
		return nil
	}

	hook := func(ctx context.Context, done, total int) error {
		if s.checkpoint == nil || s.every <= 0 || done%s.every != 0 || done == total {
			return nil
		}
		s.logger.Debug("checkpoint", "chunks_done", done, "chunks", total)
		return s.checkpoint.Save(ctx, run.Tree)
	}
	engine := resolver.New(append(slices.Clone(s.opts), resolver.WithChunkHook(hook))...)

	err := engine.Resolve(ctx, run.Tree, run.Keys)
	s.metrics.ObserveTree(run.Tree)
	if err == nil {
		return nil
	}
	if s.checkpoint != nil && !errors.Is(err, catalog.ErrInvalidPath) {
		if saveErr := s.checkpoint.Save(context.WithoutCancel(ctx), run.Tree); saveErr != nil {
			s.logger.Error("failed to save partial catalog", "error", saveErr)
		} else {
			s.logger.Warn("resolution stopped early, partial catalog saved", "error", err)
		}
	}
	return err
}

// SaveStep persists the run tree.
type SaveStep struct {
	store              store.Store
	onlyAfterDiscovery bool
	logger             *slog.Logger
}

// SaveStepOption configures a SaveStep.
type SaveStepOption func(*SaveStep)

// WithSaveOnlyAfterDiscovery skips the save when the tree was loaded rather
// than discovered in this run.
func WithSaveOnlyAfterDiscovery() SaveStepOption {
	return func(s *SaveStep) {
		s.onlyAfterDiscovery = true
	}
}

// WithSaveLogger sets a custom logger for the save step.
func WithSaveLogger(logger *slog.Logger) SaveStepOption {
	return func(s *SaveStep) {
		s.logger = logger
	}
}

// NewSaveStep creates a step saving the tree to st.
func NewSaveStep(st store.Store, opts ...SaveStepOption) *SaveStep {
	s := &SaveStep{store: st, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *SaveStep) Name() string {
	return "save"
}

// Do executes the save step.
func (s *SaveStep) Do(ctx context.Context, run *Run) error {
	if s.onlyAfterDiscovery && !run.Discovered {
		return nil
	}
	if err := s.store.Save(ctx, run.Tree); err != nil {
		return fmt.Errorf("failed to save catalog: %w", err)
	}
	s.logger.Info("catalog saved", "leaves", run.Tree.Len())
	return nil
}
