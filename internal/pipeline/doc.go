// Package pipeline runs the phases of a catalog build in sequence.
//
// A Pipeline executes Steps against a shared Run: the option tree being
// built, the lookup keys queued for resolution and per-step timings. The
// two entry points are NewScrape, which discovers (or loads) the tree and
// resolves every leaf, and NewReconcile, which retries only the recoverable
// leaves of a persisted tree.
//
// Phases never overlap: discovery finishes before resolution starts, and the
// tree is saved between them.
package pipeline
