// internal/reservation/domain.go
package reservation

import "errors"

// Typed failures surfaced to the caller.
var (
	ErrBookNotFound         = errors.New("book not found")
	ErrMemberNotFound       = errors.New("member not found")
	ErrMemberBlocked        = errors.New("member is blocked")
	ErrDuplicateReservation = errors.New("member already has an active reservation for this book")
	ErrReservationNotFound  = errors.New("reservation not found")
	ErrAlreadyTerminal      = errors.New("reservation is already fulfilled or cancelled")
	ErrNotNotified          = errors.New("reservation is not in notified status")
)
