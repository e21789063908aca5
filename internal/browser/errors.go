package browser

import "errors"

var (
	// ErrUnknownEngine is returned by Open for an engine name it does not know.
	ErrUnknownEngine = errors.New("unknown browser engine")

	// ErrStart is returned when the browser session cannot be established.
	ErrStart = errors.New("failed to start browser session")

	// ErrControlNotFound is returned when no element has the requested id.
	ErrControlNotFound = errors.New("control not found")

	// ErrOptionRejected is returned when a dropdown has no option with the
	// requested value or label.
	ErrOptionRejected = errors.New("option rejected")
)
