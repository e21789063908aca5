// Package config provides the configuration of drivercatalog: browser and
// discovery settings, resolver pacing and concurrency limits, and the store
// backend. Values come from defaults, a YAML file and CLI flags.
package config
