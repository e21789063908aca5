package config

import "errors"

// Configuration validation errors returned by Config.Validate.
// Callers can match them with errors.Is.
var (
	// ErrInvalidEngine is returned when the browser engine is neither chrome nor firefox.
	ErrInvalidEngine = errors.New("invalid engine: must be chrome or firefox")

	// ErrInvalidLanguageScope is returned for a language scope other than en or all.
	ErrInvalidLanguageScope = errors.New("invalid language scope: must be en or all")

	// ErrInvalidOSScope is returned for an OS scope other than windows or all.
	ErrInvalidOSScope = errors.New("invalid os scope: must be windows or all")

	// ErrInvalidSource is returned for a source other than cache or online.
	ErrInvalidSource = errors.New("invalid source: must be cache or online")

	// ErrMissingControlID is returned when a level has no dropdown element id.
	ErrMissingControlID = errors.New("missing control id: every level needs an element id")

	// ErrInvalidChunkSize is returned when the chunk size is not positive.
	ErrInvalidChunkSize = errors.New("invalid chunk size: must be positive")

	// ErrInvalidMaxInFlight is returned when the in-flight ceiling is not positive.
	ErrInvalidMaxInFlight = errors.New("invalid max in-flight: must be positive")

	// ErrInvalidDelayWindow is returned when the pacing window is negative or inverted.
	ErrInvalidDelayWindow = errors.New("invalid delay window: need 0 <= min_delay <= max_delay")

	// ErrInvalidTimeout is returned when a request or browser timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRateLimit is returned for a negative rate limit.
	ErrInvalidRateLimit = errors.New("invalid rate limit: must be non-negative")

	// ErrInvalidCheckpointEvery is returned for a negative checkpoint interval.
	ErrInvalidCheckpointEvery = errors.New("invalid checkpoint interval: must be non-negative")

	// ErrInvalidStoreBackend is returned for an unknown store backend.
	ErrInvalidStoreBackend = errors.New("invalid store backend: must be file, sqlite or s3")

	// ErrMissingStorePath is returned when a local backend has no location.
	ErrMissingStorePath = errors.New("missing store path")

	// ErrInvalidSnapshotsKept is returned when the sqlite retention is not positive.
	ErrInvalidSnapshotsKept = errors.New("invalid snapshots kept: must be positive")

	// ErrMissingS3Location is returned when the s3 backend has no bucket or key.
	ErrMissingS3Location = errors.New("missing s3 location: bucket and key are required")
)
