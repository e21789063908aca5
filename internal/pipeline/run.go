package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/drivercatalog/internal/catalog"
)

// Run is the state shared by the steps of one pipeline execution.
type Run struct {
	// ID identifies the run in logs.
	ID string

	// Tree is the option tree being built. Steps replace or mutate it.
	Tree *catalog.Tree

	// Keys are the leaves queued for the next resolve step.
	Keys []catalog.LookupKey

	// Discovered is set when the tree came from a live walk rather than
	// the store.
	Discovered bool

	// StartedAt is when the run was created.
	StartedAt time.Time

	// Performed lists the steps that ran, in order.
	Performed []string

	// Timings holds the duration of every performed step.
	Timings map[string]time.Duration

	// Err is the last step error, if any.
	Err error
}

// NewRun returns an empty run with a fresh id.
func NewRun() *Run {
	return &Run{
		ID:        uuid.NewString(),
		Tree:      catalog.NewTree(),
		StartedAt: time.Now(),
		Timings:   make(map[string]time.Duration),
	}
}
