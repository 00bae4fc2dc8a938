// internal/membership/implementation.go
package membership

import (
	"context"
	"errors"

	"biblios/internal/audit"
	"biblios/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrMemberNotFound       = errors.New("member not found")
	ErrNoMembership         = errors.New("member has no membership on record")
	ErrInvalidPeriod        = errors.New("membership period is invalid")
	ErrMemberNotBlocked     = errors.New("member is not blocked")
	ErrMemberAlreadyBlocked = errors.New("member is already blocked")
)

type service struct {
	db       *gorm.DB
	recorder audit.Recorder
	logger   *zap.Logger
}

// NewService creates a new membership service instance.
func NewService(db *gorm.DB, recorder audit.Recorder, logger *zap.Logger) Service {
	return &service{db: db, recorder: recorder, logger: logger}
}

func (s *service) RegisterMember(ctx context.Context, member *store.Member, staffID *uuid.UUID) error {
	if member.RegisteredAt.IsZero() {
		member.RegisteredAt = s.db.NowFunc().UTC()
	}
	member.IsActive = true
	if err := s.db.WithContext(ctx).Create(member).Error; err != nil {
		return err
	}
	s.recorder.Record(ctx, audit.Entry{
		StaffID:  staffID,
		Action:   "CREATE",
		Entity:   "member",
		EntityID: member.ID,
		NewValues: map[string]any{
			"member_number": member.MemberNumber,
			"name":          member.FirstName + " " + member.LastName,
		},
	})
	return nil
}

func (s *service) GetMember(ctx context.Context, id uuid.UUID) (*store.Member, error) {
	var member store.Member
	if err := s.db.WithContext(ctx).First(&member, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	if member.IsDeleted {
		return nil, ErrMemberNotFound
	}
	return &member, nil
}

func (s *service) BlockMember(ctx context.Context, id uuid.UUID, reason string, staffID *uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member, err := s.lockMember(tx, id)
		if err != nil {
			return err
		}
		if member.IsBlocked {
			return ErrMemberAlreadyBlocked
		}
		return tx.Model(&store.Member{}).Where("id = ?", id).Updates(map[string]any{
			"is_blocked":   true,
			"block_reason": reason,
		}).Error
	})
	if err != nil {
		return err
	}
	s.recorder.Record(ctx, audit.Entry{
		StaffID:   staffID,
		Action:    "UPDATE",
		Entity:    "member",
		EntityID:  id,
		NewValues: map[string]any{"is_blocked": true, "block_reason": reason},
	})
	return nil
}

func (s *service) UnblockMember(ctx context.Context, id uuid.UUID, staffID *uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member, err := s.lockMember(tx, id)
		if err != nil {
			return err
		}
		if !member.IsBlocked {
			return ErrMemberNotBlocked
		}
		return tx.Model(&store.Member{}).Where("id = ?", id).Updates(map[string]any{
			"is_blocked":   false,
			"block_reason": "",
		}).Error
	})
	if err != nil {
		return err
	}
	s.recorder.Record(ctx, audit.Entry{
		StaffID:   staffID,
		Action:    "UPDATE",
		Entity:    "member",
		EntityID:  id,
		NewValues: map[string]any{"is_blocked": false},
	})
	return nil
}

// RecordMembership stores one paid coverage period. Periods are
// append-only; the current one is the row with the latest ValidUntil.
func (s *service) RecordMembership(ctx context.Context, m *store.Membership, staffID *uuid.UUID) error {
	if !m.ValidUntil.After(m.ValidFrom) {
		return ErrInvalidPeriod
	}
	m.ValidFrom = store.Day(m.ValidFrom)
	m.ValidUntil = store.Day(m.ValidUntil)
	m.RecordedBy = staffID

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.lockMember(tx, m.MemberID); err != nil {
			return err
		}
		return tx.Create(m).Error
	})
	if err != nil {
		return err
	}
	s.recorder.Record(ctx, audit.Entry{
		StaffID:  staffID,
		Action:   "CREATE",
		Entity:   "membership",
		EntityID: m.ID,
		NewValues: map[string]any{
			"member_id":   m.MemberID.String(),
			"year":        m.Year,
			"valid_until": m.ValidUntil.Format("2006-01-02"),
		},
	})
	return nil
}

func (s *service) CurrentMembership(ctx context.Context, memberID uuid.UUID) (*store.Membership, error) {
	var m store.Membership
	err := s.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("valid_until DESC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoMembership
		}
		return nil, err
	}
	return &m, nil
}

func (s *service) lockMember(tx *gorm.DB, id uuid.UUID) (*store.Member, error) {
	var member store.Member
	if err := store.ForUpdate(tx).First(&member, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	if member.IsDeleted {
		return nil, ErrMemberNotFound
	}
	return &member, nil
}
