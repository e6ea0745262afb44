package alert

import "errors"

// Domain errors for alerts and events.
var (
	// ErrSessionMismatch means the reporting principal's active session is
	// bound to a different PC. RecordEvent reports it through Result.
	ErrSessionMismatch = errors.New("alert: event pc does not match active session")

	ErrInvalidEvent  = errors.New("alert: invalid event")
	ErrAlertNotFound = errors.New("alert: not found")
)
