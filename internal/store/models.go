// internal/store/models.go
package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Copy statuses.
const (
	CopyAvailable = "available"
	CopyLoaned    = "loaned"
	CopyReserved  = "reserved"
	CopyDamaged   = "damaged"
	CopyLost      = "lost"
)

// Loan statuses.
const (
	LoanActive   = "active"
	LoanOverdue  = "overdue"
	LoanReturned = "returned"
	LoanLost     = "lost"
)

// Reservation statuses. Waiting and notified are the non-terminal ones.
const (
	ReservationWaiting   = "waiting"
	ReservationNotified  = "notified"
	ReservationFulfilled = "fulfilled"
	ReservationCancelled = "cancelled"
)

// Book is a catalogued title. Physical instances are Copy rows.
type Book struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title         string    `gorm:"not null" json:"title"`
	Author        string    `gorm:"not null" json:"author"`
	Publisher     string    `json:"publisher,omitempty"`
	YearPublished int       `json:"year_published,omitempty"`
	Genre         string    `json:"genre,omitempty"`
	Language      string    `json:"language,omitempty"`
	TotalCopies   int       `gorm:"default:0" json:"total_copies"`
	IsDeleted     bool      `gorm:"default:false;index" json:"is_deleted"`
	DeletedAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Copy is one physical, individually tracked instance of a Book.
type Copy struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LibraryNumber string    `gorm:"uniqueIndex;not null" json:"library_number"`
	BookID        uuid.UUID `gorm:"type:uuid;not null;index" json:"book_id"`
	Status        string    `gorm:"size:20;not null;default:'available'" json:"status"`
	ShelfLocation string    `json:"shelf_location,omitempty"`
	Condition     string    `gorm:"size:20;default:'good'" json:"condition"`
	IsDeleted     bool      `gorm:"default:false;index" json:"is_deleted"`
	DeletedAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Member is a registered library member.
type Member struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MemberNumber string    `gorm:"uniqueIndex;not null" json:"member_number"`
	FirstName    string    `gorm:"not null" json:"first_name"`
	LastName     string    `gorm:"not null" json:"last_name"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	IsBlocked    bool      `gorm:"default:false" json:"is_blocked"`
	BlockReason  string    `json:"block_reason,omitempty"`
	IsDeleted    bool      `gorm:"default:false;index" json:"is_deleted"`
	DeletedAt    *time.Time
	RegisteredAt time.Time `json:"registered_at"`
}

// Membership is one paid coverage period. A member may have several;
// the current one is the row with the latest ValidUntil.
type Membership struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	MemberID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"member_id"`
	Year       int        `gorm:"not null" json:"year"`
	AmountPaid float64    `gorm:"not null" json:"amount_paid"`
	PaidAt     time.Time  `json:"paid_at"`
	ValidFrom  time.Time  `gorm:"not null" json:"valid_from"`
	ValidUntil time.Time  `gorm:"not null;index" json:"valid_until"`
	RecordedBy *uuid.UUID `gorm:"type:uuid" json:"recorded_by,omitempty"`
	CreatedAt  time.Time
}

// Loan is a borrowing transaction against one copy. At most one loan
// per copy may be in an active or overdue state at any time.
type Loan struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CopyID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"copy_id"`
	MemberID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"member_id"`
	LoanedAt        time.Time  `json:"loaned_at"`
	DueDate         time.Time  `gorm:"not null;index" json:"due_date"`
	ReturnedAt      *time.Time `json:"returned_at,omitempty"`
	Status          string     `gorm:"size:20;not null;default:'active';index" json:"status"`
	ExtensionsCount int        `gorm:"default:0" json:"extensions_count"`
	IssuedBy        *uuid.UUID `gorm:"type:uuid" json:"issued_by,omitempty"`
	ReturnedTo      *uuid.UUID `gorm:"type:uuid" json:"returned_to,omitempty"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Reservation is a member's queued claim on the next free copy of a
// book. The queue is per title; HeldCopyID records which copy was put
// aside once the reservation is promoted to notified.
type Reservation struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	BookID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"book_id"`
	MemberID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"member_id"`
	ReservedAt    time.Time  `json:"reserved_at"`
	QueuePosition int        `gorm:"not null" json:"queue_position"`
	Status        string     `gorm:"size:20;not null;default:'waiting';index" json:"status"`
	NotifiedAt    *time.Time `json:"notified_at,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	HeldCopyID    *uuid.UUID `gorm:"type:uuid" json:"held_copy_id,omitempty"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Notification is one attempted outbound send. Rows are append-only
// and double as the dedup ledger: a successful row for a
// (trigger, entity kind, entity id) combination means that trigger
// already fired for that entity.
type Notification struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TriggerType  string    `gorm:"size:40;not null;index:idx_notif_dedup,priority:1" json:"trigger_type"`
	EntityKind   string    `gorm:"size:20;not null;index:idx_notif_dedup,priority:2" json:"entity_kind"`
	EntityID     uuid.UUID `gorm:"type:uuid;not null;index:idx_notif_dedup,priority:3" json:"entity_id"`
	MemberID     uuid.UUID `gorm:"type:uuid;not null" json:"member_id"`
	EmailTo      string    `gorm:"not null" json:"email_to"`
	Subject      string    `gorm:"not null" json:"subject"`
	Body         string    `gorm:"not null" json:"body"`
	Success      bool      `gorm:"not null" json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
	SentAt       time.Time `gorm:"index" json:"sent_at"`
}

// Setting is one runtime-tunable key/value pair.
type Setting struct {
	Key       string `gorm:"primaryKey"`
	Value     string
	UpdatedAt time.Time
	UpdatedBy *uuid.UUID `gorm:"type:uuid"`
}

// Staff identifies the person behind a circulation action. Credentials
// and permissions live outside this module.
type Staff struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	FullName  string    `gorm:"not null" json:"full_name"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time
}

// AuditEntry is one append-only record of a state-changing action.
type AuditEntry struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	StaffID   *uuid.UUID `gorm:"type:uuid" json:"staff_id,omitempty"`
	Action    string     `gorm:"not null" json:"action"`
	Entity    string     `gorm:"not null" json:"entity"`
	EntityID  *uuid.UUID `gorm:"type:uuid" json:"entity_id,omitempty"`
	OldValues string     `json:"old_values,omitempty"`
	NewValues string     `json:"new_values,omitempty"`
	CreatedAt time.Time
}

// BeforeCreate hooks assign IDs so callers may leave them zero.

func (b *Book) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

func (c *Copy) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (m *Member) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (m *Membership) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (l *Loan) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

func (r *Reservation) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

func (s *Staff) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (a *AuditEntry) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
