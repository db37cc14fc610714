package entity

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the booking core wraps exactly one of them.
var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")
	ErrExhausted = errors.New("tickets exhausted")
	ErrInternal  = errors.New("internal error")
)

var (
	// Event errors
	ErrEventNotFound   = fmt.Errorf("event %w", ErrNotFound)
	ErrEventNameTaken  = fmt.Errorf("%w: event name already taken", ErrConflict)
	ErrTotalBelowSold  = fmt.Errorf("%w: total tickets below tickets already issued", ErrConflict)
	ErrEventNotDeleted = fmt.Errorf("%w: event is not deleted", ErrConflict)

	// Booking errors
	ErrBookingNotFound  = fmt.Errorf("booking %w", ErrNotFound)
	ErrAlreadyBooked    = fmt.Errorf("%w: owner already holds a ticket for this event", ErrConflict)
	ErrTicketsExhausted = fmt.Errorf("event has no free tickets: %w", ErrExhausted)

	// Waitlist errors
	ErrWaitlistEntryNotFound = fmt.Errorf("waitlist entry %w", ErrNotFound)
	ErrAlreadyWaitlisted     = fmt.Errorf("%w: owner is already on the waitlist for this event", ErrConflict)

	// General errors
	ErrInvalidInput = errors.New("invalid input")
)

type ErrorKind string

const (
	KindNone      ErrorKind = ""
	KindNotFound  ErrorKind = "not_found"
	KindConflict  ErrorKind = "conflict"
	KindExhausted ErrorKind = "exhausted"
	KindInvalid   ErrorKind = "invalid_input"
	KindInternal  ErrorKind = "internal"
)

// KindOf classifies err. Errors that carry no known kind are Internal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrExhausted):
		return KindExhausted
	case errors.Is(err, ErrInvalidInput):
		return KindInvalid
	default:
		return KindInternal
	}
}

// Internal wraps an unclassified failure so that it reports KindInternal.
// Errors that already carry a kind are returned unchanged.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindInternal || errors.Is(err, ErrInternal) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInternal, err)
}

// IsRetryable reports whether a failed job may succeed on a later attempt.
// Only Internal failures are transient.
func IsRetryable(err error) bool {
	return err != nil && KindOf(err) == KindInternal
}
