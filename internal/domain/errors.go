package domain

import "errors"

var (
	// ErrUnsupportedEvent is returned for event types outside the
	// registered set. Fatal: logged and dropped, never retried.
	ErrUnsupportedEvent = errors.New("unsupported event type")

	// ErrValidation indicates a malformed payload. Fatal.
	ErrValidation = errors.New("payload validation failed")

	// ErrUpstreamUnavailable indicates a dependent service or store
	// timed out or refused the connection. Retryable.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrInvalidInput indicates bad domain arithmetic input, e.g. a
	// non-positive height passed to the BMI calculator.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidGoal indicates a goal whose progress is undefined
	// (target equals start while current differs).
	ErrInvalidGoal = errors.New("invalid goal")

	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when a caller may not act on the
	// requested user's data.
	ErrForbidden = errors.New("forbidden")

	// ErrUserNotFound is returned by the identity lookup for unknown users.
	ErrUserNotFound = errors.New("user not found")
)

// Retryable reports whether an event processing error should be retried
// rather than dead-lettered. Only upstream/store availability failures
// qualify; everything else would fail identically on replay.
func Retryable(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable)
}
