package poller

import "errors"

var (
	// ErrNoSteps is returned by NewScheduler when no steps are given.
	ErrNoSteps = errors.New("poller: at least one step is required")

	// ErrInvalidInterval is returned by NewScheduler for a non-positive interval.
	ErrInvalidInterval = errors.New("poller: interval must be positive")
)
