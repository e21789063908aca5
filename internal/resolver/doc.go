// Package resolver turns catalog leaves into download locations.
//
// Engine.Resolve sends one GET per LookupKey to the vendor's resolver
// endpoint. Keys are split into fixed-size chunks; before each chunk the
// engine waits a random interval, then dispatches the whole chunk
// concurrently under a run-wide in-flight ceiling. Chunk i+1 starts only
// after every request of chunk i finished. Each answer is classified
// (see Classify) and written to the tree as soon as it arrives.
//
// Per-leaf failures never abort a batch; they become AccessDenied or
// TransientError outcomes which a later reconciliation pass retries.
package resolver
