package dispatch

import "errors"

var (
	// ErrUnknownJobType is returned when decoding a job with an unrecognized type tag.
	ErrUnknownJobType = errors.New("unknown email job type")

	// ErrWorkerNotConfigured is returned by the spawn path when no worker
	// binary can be resolved. It triggers the synchronous fallback.
	ErrWorkerNotConfigured = errors.New("email worker binary not configured or found")
)
