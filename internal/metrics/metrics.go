package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/drivercatalog/internal/catalog"
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "drivercatalog"

// Collectors wraps the metrics of one run with its own registry.
// All methods are safe on a nil receiver, so components can take an
// optional *Collectors without checking it.
type Collectors struct {
	registry *prometheus.Registry

	Requests        *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	InFlight        prometheus.Gauge
	Chunks          prometheus.Counter
	Leaves          *prometheus.GaugeVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Collectors {
	reg := prometheus.NewRegistry()
	c := &Collectors{
		registry: reg,
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "resolver_requests_total",
			Help:      "Resolver requests by classified outcome",
		}, []string{"outcome"}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "resolver_request_duration_seconds",
			Help:      "Duration of resolver requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "resolver_in_flight_requests",
			Help:      "Resolver requests currently in flight",
		}),
		Chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "resolver_chunks_total",
			Help:      "Chunks dispatched by the resolver",
		}),
		Leaves: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "catalog_leaves",
			Help:      "Catalog leaves by outcome after the last save",
		}, []string{"outcome"}),
	}
	reg.MustRegister(c.Requests, c.RequestDuration, c.InFlight, c.Chunks, c.Leaves)
	return c
}

// Registry returns the registry holding the collectors.
func (c *Collectors) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ObserveRequest records one finished request.
func (c *Collectors) ObserveRequest(kind catalog.OutcomeKind, d time.Duration) {
	if c == nil {
		return
	}
	c.Requests.WithLabelValues(kind.String()).Inc()
	c.RequestDuration.Observe(d.Seconds())
}

// TrackInFlight increments the in-flight gauge and returns the matching decrement.
func (c *Collectors) TrackInFlight() func() {
	if c == nil {
		return func() {}
	}
	c.InFlight.Inc()
	return c.InFlight.Dec
}

// ObserveChunk counts one dispatched chunk.
func (c *Collectors) ObserveChunk() {
	if c == nil {
		return
	}
	c.Chunks.Inc()
}

// ObserveTree sets the leaf gauges from the outcome tally of tree.
func (c *Collectors) ObserveTree(tree *catalog.Tree) {
	if c == nil {
		return
	}
	tally := tree.Tally()
	for _, kind := range catalog.OutcomeKinds {
		c.Leaves.WithLabelValues(kind.String()).Set(float64(tally[kind]))
	}
}

// WriteTextfile writes the registry in the Prometheus text format to path,
// creating the parent directory.
func (c *Collectors) WriteTextfile(path string) error {
	if c == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
