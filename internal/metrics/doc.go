// Package metrics holds the Prometheus collectors updated during resolution.
// A drivercatalog run is short-lived, so the registry is written to a
// node_exporter textfile at the end instead of being served over HTTP.
package metrics
