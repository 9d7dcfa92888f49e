package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrUnknownPass is returned for a pass kind the scheduler does not run
	ErrUnknownPass = errors.New("unknown reconciliation pass")
)
