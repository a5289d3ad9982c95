package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrEventNotOpen  = errors.New("event is not open for registration")
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
	ErrTimeout       = errors.New("operation timed out")
	ErrCacheMiss     = errors.New("cache miss")

	ErrAlreadyRegistered    = errors.New("already registered for this event")
	ErrAlreadyWaitlisted    = errors.New("already on the waitlist for this event")
	ErrInsufficientCapacity = errors.New("insufficient capacity")

	ErrMissingName        = errors.New("guest name is required")
	ErrMissingEmail       = errors.New("guest email is required")
	ErrInvalidGuestDomain = errors.New("guest email must use an institutional address")
	ErrGuestLimitExceeded = errors.New("guest limit reached")

	ErrMissingRejectionReason = errors.New("a reason is required to reject")
	ErrAlreadyDecided         = errors.New("request has already been decided")
	ErrAlreadyPending         = errors.New("a request is already pending")
	ErrEventNotPending        = errors.New("event is not awaiting approval")

	ErrAlreadyCheckedIn = errors.New("attendee already checked in")
	ErrNotConfirmed     = errors.New("registration is not confirmed")

	ErrValidation = errors.New("validation failed")
)

// InsufficientCapacityError carries the seats left so callers can reduce
// guests or switch to the waitlist.
type InsufficientCapacityError struct {
	Remaining int
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("Only %d spot(s) remaining", e.Remaining)
}

func (e *InsufficientCapacityError) Is(target error) bool {
	return target == ErrInsufficientCapacity
}

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func Invalid(field, msg string) error { return &ValidationError{Field: field, Message: msg} }

// OperationFailed wraps a store or transport failure. The cause stays
// reachable through errors.Unwrap.
func OperationFailed(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
