package pipeline

import (
	"log/slog"

	"github.com/nao1215/drivercatalog/internal/config"
	"github.com/nao1215/drivercatalog/internal/metrics"
	"github.com/nao1215/drivercatalog/internal/resolver"
	"github.com/nao1215/drivercatalog/internal/store"
)

// Components are the collaborators the standard pipelines are built from.
type Components struct {
	Store      store.Store
	Discoverer Discoverer

	// Resolver configures the engine of the resolve step.
	Resolver []resolver.Option

	// CheckpointEvery is the number of chunks between checkpoint saves.
	CheckpointEvery int

	Metrics *metrics.Collectors
	Logger  *slog.Logger
}

func (c Components) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func (c Components) resolveStep() *ResolveStep {
	engineOpts := append([]resolver.Option{
		resolver.WithLogger(c.logger()),
		resolver.WithMetrics(c.Metrics),
	}, c.Resolver...)
	return NewResolveStep(engineOpts,
		WithCheckpoint(c.Store, c.CheckpointEvery),
		WithResolveMetrics(c.Metrics),
		WithResolveLogger(c.logger()),
	)
}

// NewScrape builds the full scrape.
//
// With source "online" it discovers the tree, saves it, resolves every
// discovered leaf and saves again. With source "cache" it loads the
// persisted tree and resolves all of its leaves, falling back to discovery
// when nothing was persisted yet.
func NewScrape(c Components, source string) *Pipeline {
	logger := c.logger()
	p := New(WithLogger(logger))

	if source == config.SourceOnline {
		p.AddSteps(
			NewDiscoverStep(c.Discoverer, WithDiscoverLogger(logger)),
			NewSaveStep(c.Store, WithSaveLogger(logger)),
			c.resolveStep(),
			NewSaveStep(c.Store, WithSaveLogger(logger)),
		)
		return p
	}

	p.AddSteps(
		NewLoadStep(c.Store, WithLoadLogger(logger)),
		NewDiscoverStep(c.Discoverer, WithDiscoverOnlyIfEmpty(), WithDiscoverLogger(logger)),
		NewSaveStep(c.Store, WithSaveOnlyAfterDiscovery(), WithSaveLogger(logger)),
		NewCollectAllStep(),
		c.resolveStep(),
		NewSaveStep(c.Store, WithSaveLogger(logger)),
	)
	return p
}

// NewReconcile builds the reconciliation pass: load the persisted tree,
// collect the recoverable leaves, resolve them as one batch and save.
// When nothing is collected no request is sent and the save rewrites the
// unchanged tree.
func NewReconcile(c Components, includeUnresolved bool) *Pipeline {
	logger := c.logger()
	p := New(WithLogger(logger))
	p.AddSteps(
		NewLoadStep(c.Store, WithRequireCatalog(), WithLoadLogger(logger)),
		NewCollectRecoverableStep(includeUnresolved, logger),
		c.resolveStep(),
		NewSaveStep(c.Store, WithSaveLogger(logger)),
	)
	return p
}
