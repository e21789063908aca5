package store

import "errors"

var (
	// ErrStoreIO is returned when the backing storage cannot be read or written.
	ErrStoreIO = errors.New("store I/O error")

	// ErrCorruptSnapshot is returned when a stored blob fails its digest check
	// or cannot be decoded.
	ErrCorruptSnapshot = errors.New("corrupt catalog snapshot")

	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown store backend")

	// ErrLegacyNotFound is returned by Migrate when the legacy JSON file does
	// not exist.
	ErrLegacyNotFound = errors.New("legacy catalog not found")

	// ErrLegacyFormat is returned when the legacy JSON does not follow the
	// nested six-level layout.
	ErrLegacyFormat = errors.New("malformed legacy catalog")
)
