package connsdk

import "errors"

var (
	// ErrRequestTimeout is recorded when a RequestProcess call exceeds the
	// artifact's Timeout and is abandoned by the runner.
	ErrRequestTimeout = errors.New("request timeout")

	// ErrRunnerStopped is returned by runner operations after Stop.
	ErrRunnerStopped = errors.New("runner stopped")

	// ErrQueueFull is returned by Submit when the external request queue is
	// at capacity.
	ErrQueueFull = errors.New("external request queue full")

	// ErrNoTarget is returned when an external request names a point that
	// was not returned by InitTargets.
	ErrNoTarget = errors.New("no such target")

	// ErrUnknownFamily is returned when no registered family serves a
	// device type.
	ErrUnknownFamily = errors.New("unknown device family")

	// ErrFamilyConflict is returned when two families claim the same
	// device-type name.
	ErrFamilyConflict = errors.New("device family conflict")
)
