package driverpage

import "errors"

var (
	// ErrVersionNotFound is returned when neither the URL nor the page names
	// a driver version.
	ErrVersionNotFound = errors.New("driver version not found")

	// ErrPageStatus is returned when the download page answers with an
	// error status.
	ErrPageStatus = errors.New("unexpected download page status")
)
