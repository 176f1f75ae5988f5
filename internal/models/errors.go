package models

import "errors"

// Error taxonomy for the engine. Each is a sentinel so callers can
// distinguish kinds with errors.Is while a wrapped message still carries
// detail (internal/models/goal.go wraps these with fmt.Errorf("%w: ...")).
var (
	ErrInvalidGoal            = errors.New("invalid goal")
	ErrInvalidProfile         = errors.New("invalid profile")
	ErrInvalidHorizon         = errors.New("invalid horizon")
	ErrScheduleMismatch       = errors.New("schedule length mismatch")
	ErrInsufficientTrials     = errors.New("trial count below configured minimum")
	ErrTrialCountExceedsLimit = errors.New("trial count exceeds configured limit")
	ErrDeadlineExceeded       = errors.New("analysis deadline exceeded")
	ErrBusyRejected           = errors.New("concurrent analysis cap exceeded")
	ErrCacheCorruption        = errors.New("cache snapshot corrupted")
	ErrDegenerateTrialRate    = errors.New("degenerate trial rate exceeds threshold")
)
