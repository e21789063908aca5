package pipeline

import "errors"

// ErrEmptyCatalog is returned by a load step that requires a persisted tree
// when none exists yet.
var ErrEmptyCatalog = errors.New("no persisted catalog: run scrape first")

// ErrNothingDiscovered is returned by a discover step whose walk found no
// combination. The persisted catalog is left untouched.
var ErrNothingDiscovered = errors.New("discovery found no driver combinations")
