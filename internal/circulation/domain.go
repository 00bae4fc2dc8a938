// internal/circulation/domain.go
package circulation

import (
	"errors"

	"github.com/google/uuid"
)

// Typed failures surfaced to the caller. NotFound errors mean the
// entity is absent or soft-deleted; the rest are precondition
// rejections. A failed precondition never leaves a partial mutation.
var (
	ErrCopyNotFound               = errors.New("copy not found")
	ErrCopyUnavailable            = errors.New("copy is not available")
	ErrMemberNotFound             = errors.New("member not found")
	ErrMemberBlocked              = errors.New("member is blocked")
	ErrMemberInactive             = errors.New("member is not active")
	ErrLoanNotFound               = errors.New("loan not found")
	ErrAlreadyReturned            = errors.New("loan already returned")
	ErrLoanNotActive              = errors.New("loan is not active")
	ErrExtensionLimitReached      = errors.New("extension limit reached")
	ErrReservationBlocksExtension = errors.New("book has a waiting reservation, loan cannot be extended")
)

// MaxExtensions caps how many times a single loan may be extended.
const MaxExtensions = 2

// PickupWindowDays is how long a promoted reservation holds its copy.
const PickupWindowDays = 7

// ReturnResult reports the outcome of returning a loan. When the
// return hands the copy to a waiting reservation,
// NotifiedReservationID identifies it.
type ReturnResult struct {
	LoanID                uuid.UUID  `json:"loan_id"`
	NotifiedReservationID *uuid.UUID `json:"reservation_notified,omitempty"`
}
