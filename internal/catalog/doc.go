// Package catalog defines the option tree that the driver catalog is built on.
//
// The tree has six fixed levels, each keyed by an opaque identifier assigned
// by the vendor's configurator:
//
//	ProductType -> ProductSeries -> Product -> OperatingSystem -> DownloadType -> Language
//
// Interior nodes (levels 0-4) carry a human-readable label and their children.
// Leaf nodes (level 5) carry a label and a resolution Outcome. A LookupKey is
// the six identifiers that address one leaf; it is also the unit of work the
// resolver consumes.
//
// Identifiers are never parsed numerically. "9" and "09" are different ids.
//
// The Tree itself is not safe for concurrent mutation. Callers that write
// leaves from several goroutines must serialize SetLeafOutcome.
package catalog
