// internal/notifier/domain.go
package notifier

import "github.com/google/uuid"

// Trigger types, each evaluated once per sweep.
const (
	TriggerDueTomorrow          = "due_tomorrow"
	TriggerDueToday             = "due_today"
	TriggerOverdueWeekly        = "overdue_weekly"
	TriggerReservationAvailable = "reservation_available"
	TriggerMembershipExpiring   = "membership_expiring"
	TriggerMembershipExpired    = "membership_expired"
)

// Entity kinds for the dedup ledger. The pair (kind, id) is the
// tagged reference a trigger fires against: due/overdue triggers
// reference loans, availability triggers reference reservations, and
// expiry triggers reference membership periods.
const (
	EntityLoan        = "loan"
	EntityReservation = "reservation"
	EntityMembership  = "membership"
)

// EntityRef is a typed reference to the entity a notification is
// about.
type EntityRef struct {
	Kind string
	ID   uuid.UUID
}

func LoanRef(id uuid.UUID) EntityRef        { return EntityRef{Kind: EntityLoan, ID: id} }
func ReservationRef(id uuid.UUID) EntityRef { return EntityRef{Kind: EntityReservation, ID: id} }
func MembershipRef(id uuid.UUID) EntityRef  { return EntityRef{Kind: EntityMembership, ID: id} }
