package discovery

import "errors"

var (
	// ErrSessionStart is returned when the browser session cannot be
	// established or the start page cannot be loaded. It aborts the walk.
	ErrSessionStart = errors.New("discovery session failed")

	// ErrBranchSkipped marks a branch abandoned because its dropdown could not
	// be read. The walk continues with the next sibling.
	ErrBranchSkipped = errors.New("discovery branch skipped")
)
