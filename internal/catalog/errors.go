package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPath is returned when a path does not address a node the tree can
// hold: wrong length, empty id, or an ancestor that was never created.
// It marks a programming-contract violation and should not be absorbed.
var ErrInvalidPath = errors.New("invalid catalog path")

// PathError records the operation and path that failed validation.
type PathError struct {
	Op     string
	Path   []string
	Reason string
}

// Error implements the error interface.
func (e *PathError) Error() string {
	return fmt.Sprintf("%s %q: %s: %s", e.Op, strings.Join(e.Path, "/"), ErrInvalidPath.Error(), e.Reason)
}

// Unwrap allows errors.Is(err, ErrInvalidPath).
func (e *PathError) Unwrap() error {
	return ErrInvalidPath
}

func pathError(op string, path []string, format string, args ...any) error {
	return &PathError{
		Op:     op,
		Path:   append([]string(nil), path...),
		Reason: fmt.Sprintf(format, args...),
	}
}
