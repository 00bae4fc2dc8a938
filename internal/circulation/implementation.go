// internal/circulation/implementation.go
package circulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"biblios/internal/audit"
	"biblios/internal/settings"
	"biblios/internal/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// service implements the Service interface. Every operation is a
// single transaction; the audit append happens after commit.
type service struct {
	db       *gorm.DB
	settings *settings.Service
	recorder audit.Recorder
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewService creates a new circulation service instance.
func NewService(db *gorm.DB, cfg *settings.Service, recorder audit.Recorder, logger *zap.Logger) Service {
	return &service{
		db:       db,
		settings: cfg,
		recorder: recorder,
		logger:   logger,
		tracer:   otel.Tracer("biblios/circulation"),
		now:      time.Now,
	}
}

// Issue lends a copy to a member. Preconditions are checked in order
// and the first failure wins; nothing is written unless all pass.
func (s *service) Issue(ctx context.Context, copyID, memberID uuid.UUID, staffID *uuid.UUID) (*store.Loan, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.Issue",
		trace.WithAttributes(attribute.String("copy_id", copyID.String())))
	defer span.End()

	duration := s.settings.LoanDurationDays(ctx)
	now := s.now().UTC()

	var loan store.Loan
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var copy store.Copy
		if err := store.ForUpdate(tx).First(&copy, "id = ?", copyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCopyNotFound
			}
			return err
		}
		if copy.IsDeleted {
			return ErrCopyNotFound
		}
		if copy.Status != store.CopyAvailable {
			return fmt.Errorf("%w (status: %s)", ErrCopyUnavailable, copy.Status)
		}

		var member store.Member
		if err := tx.First(&member, "id = ?", memberID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMemberNotFound
			}
			return err
		}
		if member.IsDeleted {
			return ErrMemberNotFound
		}
		if member.IsBlocked {
			return ErrMemberBlocked
		}
		if !member.IsActive {
			return ErrMemberInactive
		}

		loan = store.Loan{
			CopyID:   copyID,
			MemberID: memberID,
			LoanedAt: now,
			DueDate:  store.Day(now).AddDate(0, 0, duration),
			Status:   store.LoanActive,
			IssuedBy: staffID,
		}
		if err := tx.Create(&loan).Error; err != nil {
			return err
		}

		return tx.Model(&store.Copy{}).
			Where("id = ?", copyID).
			Update("status", store.CopyLoaned).Error
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.recorder.Record(ctx, audit.Entry{
		StaffID:  staffID,
		Action:   "CREATE",
		Entity:   "loan",
		EntityID: loan.ID,
		NewValues: map[string]any{
			"copy_id":   copyID.String(),
			"member_id": memberID.String(),
			"due_date":  loan.DueDate.Format("2006-01-02"),
		},
	})
	s.logger.Info("loan issued",
		zap.String("loan_id", loan.ID.String()),
		zap.String("copy_id", copyID.String()),
		zap.String("member_id", memberID.String()))
	return &loan, nil
}

// Return closes a loan and hands the copy over. If the book has a
// waiting reservation, the lowest queue position is promoted to
// notified with a pickup window and the copy is held for it; the
// hand-off happens in the same transaction as the return so a waiting
// member can never be stranded.
func (s *service) Return(ctx context.Context, loanID uuid.UUID, staffID *uuid.UUID) (*ReturnResult, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.Return",
		trace.WithAttributes(attribute.String("loan_id", loanID.String())))
	defer span.End()

	now := s.now().UTC()
	result := &ReturnResult{LoanID: loanID}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var loan store.Loan
		if err := store.ForUpdate(tx).First(&loan, "id = ?", loanID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLoanNotFound
			}
			return err
		}
		if loan.Status == store.LoanReturned {
			return ErrAlreadyReturned
		}

		updates := map[string]any{
			"returned_at": now,
			"status":      store.LoanReturned,
			"returned_to": staffID,
		}
		if err := tx.Model(&store.Loan{}).Where("id = ?", loan.ID).Updates(updates).Error; err != nil {
			return err
		}

		var copy store.Copy
		if err := store.ForUpdate(tx).First(&copy, "id = ?", loan.CopyID).Error; err != nil {
			return err
		}

		var next store.Reservation
		err := store.ForUpdate(tx).
			Where("book_id = ? AND status = ?", copy.BookID, store.ReservationWaiting).
			Order("queue_position").
			First(&next).Error
		switch {
		case err == nil:
			expires := now.AddDate(0, 0, PickupWindowDays)
			if err := tx.Model(&store.Reservation{}).Where("id = ?", next.ID).Updates(map[string]any{
				"status":       store.ReservationNotified,
				"notified_at":  now,
				"expires_at":   expires,
				"held_copy_id": copy.ID,
			}).Error; err != nil {
				return err
			}
			if err := tx.Model(&store.Copy{}).Where("id = ?", copy.ID).
				Update("status", store.CopyReserved).Error; err != nil {
				return err
			}
			id := next.ID
			result.NotifiedReservationID = &id
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Model(&store.Copy{}).Where("id = ?", copy.ID).
				Update("status", store.CopyAvailable).Error; err != nil {
				return err
			}
		default:
			return err
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.recorder.Record(ctx, audit.Entry{
		StaffID:  staffID,
		Action:   "UPDATE",
		Entity:   "loan",
		EntityID: loanID,
		NewValues: map[string]any{
			"status":      store.LoanReturned,
			"returned_at": now.Format(time.RFC3339),
		},
	})
	if result.NotifiedReservationID != nil {
		s.logger.Info("loan returned, reservation promoted",
			zap.String("loan_id", loanID.String()),
			zap.String("reservation_id", result.NotifiedReservationID.String()))
	} else {
		s.logger.Info("loan returned", zap.String("loan_id", loanID.String()))
	}
	return result, nil
}

// Extend pushes the due date forward by the configured loan duration.
// A loan may be extended at most MaxExtensions times and never while a
// reservation is waiting on the same title.
func (s *service) Extend(ctx context.Context, loanID uuid.UUID, staffID *uuid.UUID) (time.Time, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.Extend",
		trace.WithAttributes(attribute.String("loan_id", loanID.String())))
	defer span.End()

	duration := s.settings.LoanDurationDays(ctx)
	var newDue time.Time

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var loan store.Loan
		if err := store.ForUpdate(tx).First(&loan, "id = ?", loanID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLoanNotFound
			}
			return err
		}
		if loan.Status != store.LoanActive {
			return ErrLoanNotActive
		}
		if loan.ExtensionsCount >= MaxExtensions {
			return ErrExtensionLimitReached
		}

		var copy store.Copy
		if err := tx.First(&copy, "id = ?", loan.CopyID).Error; err != nil {
			return err
		}
		var waiting int64
		if err := tx.Model(&store.Reservation{}).
			Where("book_id = ? AND status = ?", copy.BookID, store.ReservationWaiting).
			Count(&waiting).Error; err != nil {
			return err
		}
		if waiting > 0 {
			return ErrReservationBlocksExtension
		}

		newDue = loan.DueDate.AddDate(0, 0, duration)
		return tx.Model(&store.Loan{}).Where("id = ?", loan.ID).Updates(map[string]any{
			"due_date":         newDue,
			"extensions_count": loan.ExtensionsCount + 1,
		}).Error
	})
	if err != nil {
		span.RecordError(err)
		return time.Time{}, err
	}

	s.recorder.Record(ctx, audit.Entry{
		StaffID:  staffID,
		Action:   "UPDATE",
		Entity:   "loan",
		EntityID: loanID,
		NewValues: map[string]any{
			"due_date": newDue.Format("2006-01-02"),
		},
	})
	return newDue, nil
}

// MarkOverdue flips active loans whose due date has passed to overdue.
// The notifier sweep runs this before evaluating triggers.
func (s *service) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&store.Loan{}).
		Where("status = ? AND due_date < ?", store.LoanActive, store.Day(now)).
		Update("status", store.LoanOverdue)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		s.logger.Info("loans marked overdue", zap.Int64("count", res.RowsAffected))
	}
	return res.RowsAffected, nil
}
