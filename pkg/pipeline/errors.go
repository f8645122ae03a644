package pipeline

import "errors"

// Sentinel errors for pipeline lifecycle misuse.
var (
	// ErrAlreadyStarted is returned by Start on a running pipeline.
	ErrAlreadyStarted = errors.New("pipeline: already started")

	// ErrStopped is returned by Start after Stop. Pipelines are single-use.
	ErrStopped = errors.New("pipeline: stopped")
)
