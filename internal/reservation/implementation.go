// internal/reservation/implementation.go
package reservation

import (
	"context"
	"errors"
	"time"

	"biblios/internal/audit"
	"biblios/internal/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// service implements the Service interface.
type service struct {
	db       *gorm.DB
	recorder audit.Recorder
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewService creates a new reservation service instance.
func NewService(db *gorm.DB, recorder audit.Recorder, logger *zap.Logger) Service {
	return &service{
		db:       db,
		recorder: recorder,
		logger:   logger,
		tracer:   otel.Tracer("biblios/reservation"),
		now:      time.Now,
	}
}

// Reserve appends a member to the tail of a book's waiting queue.
// Positions are 1 + count(waiting) at insertion, computed under a
// lock on the book's reservation set; existing positions are never
// renumbered, so while the queue grows assignment is strictly
// increasing and promotion by lowest position is FIFO.
func (s *service) Reserve(ctx context.Context, bookID, memberID uuid.UUID, staffID *uuid.UUID) (*store.Reservation, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.Reserve",
		trace.WithAttributes(attribute.String("book_id", bookID.String())))
	defer span.End()

	now := s.now().UTC()
	var res store.Reservation

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var book store.Book
		if err := tx.First(&book, "id = ?", bookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}
		if book.IsDeleted {
			return ErrBookNotFound
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

		var existing int64
		if err := store.ForUpdate(tx).Model(&store.Reservation{}).
			Where("book_id = ? AND member_id = ? AND status IN ?",
				bookID, memberID, []string{store.ReservationWaiting, store.ReservationNotified}).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrDuplicateReservation
		}

		var waiting int64
		if err := store.ForUpdate(tx).Model(&store.Reservation{}).
			Where("book_id = ? AND status = ?", bookID, store.ReservationWaiting).
			Count(&waiting).Error; err != nil {
			return err
		}

		res = store.Reservation{
			BookID:        bookID,
			MemberID:      memberID,
			ReservedAt:    now,
			QueuePosition: int(waiting) + 1,
			Status:        store.ReservationWaiting,
		}
		return tx.Create(&res).Error
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.recorder.Record(ctx, audit.Entry{
		StaffID:  staffID,
		Action:   "CREATE",
		Entity:   "reservation",
		EntityID: res.ID,
		NewValues: map[string]any{
			"book_id":        bookID.String(),
			"member_id":      memberID.String(),
			"queue_position": res.QueuePosition,
		},
	})
	s.logger.Info("reservation created",
		zap.String("reservation_id", res.ID.String()),
		zap.Int("queue_position", res.QueuePosition))
	return &res, nil
}

// Cancel terminates a waiting or notified reservation. A notified
// reservation holds a copy in reserved status; that copy reverts to
// available. The held copy is tracked on the reservation itself, so
// no book-wide scan is needed, but rows promoted before held-copy
// tracking fall back to releasing every reserved copy of the book.
func (s *service) Cancel(ctx context.Context, reservationID uuid.UUID, staffID *uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "reservation.Cancel",
		trace.WithAttributes(attribute.String("reservation_id", reservationID.String())))
	defer span.End()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var res store.Reservation
		if err := store.ForUpdate(tx).First(&res, "id = ?", reservationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReservationNotFound
			}
			return err
		}
		if res.Status == store.ReservationFulfilled || res.Status == store.ReservationCancelled {
			return ErrAlreadyTerminal
		}

		wasNotified := res.Status == store.ReservationNotified
		if err := tx.Model(&store.Reservation{}).Where("id = ?", res.ID).
			Update("status", store.ReservationCancelled).Error; err != nil {
			return err
		}

		if !wasNotified {
			return nil
		}
		return releaseHeldCopy(tx, &res)
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	s.recorder.Record(ctx, audit.Entry{
		StaffID:   staffID,
		Action:    "UPDATE",
		Entity:    "reservation",
		EntityID:  reservationID,
		NewValues: map[string]any{"status": store.ReservationCancelled},
	})
	return nil
}

// Fulfill marks a notified reservation as picked up and releases the
// held copy back to available, returning its ID. Issuing the loan is
// a separate call; the returned copy ID tells the caller exactly
// which copy was held so a second freed copy of the same title cannot
// be confused with it.
func (s *service) Fulfill(ctx context.Context, reservationID uuid.UUID, staffID *uuid.UUID) (uuid.UUID, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.Fulfill",
		trace.WithAttributes(attribute.String("reservation_id", reservationID.String())))
	defer span.End()

	var heldCopy uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var res store.Reservation
		if err := store.ForUpdate(tx).First(&res, "id = ?", reservationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReservationNotFound
			}
			return err
		}
		if res.Status != store.ReservationNotified {
			return ErrNotNotified
		}

		if err := tx.Model(&store.Reservation{}).Where("id = ?", res.ID).
			Update("status", store.ReservationFulfilled).Error; err != nil {
			return err
		}
		if res.HeldCopyID != nil {
			heldCopy = *res.HeldCopyID
		}
		return releaseHeldCopy(tx, &res)
	})
	if err != nil {
		span.RecordError(err)
		return uuid.Nil, err
	}

	s.recorder.Record(ctx, audit.Entry{
		StaffID:   staffID,
		Action:    "UPDATE",
		Entity:    "reservation",
		EntityID:  reservationID,
		NewValues: map[string]any{"status": store.ReservationFulfilled},
	})
	return heldCopy, nil
}

// ExpireLapsed cancels notified reservations whose pickup window has
// passed and releases their held copies. Run by the daily sweep.
func (s *service) ExpireLapsed(ctx context.Context, now time.Time) (int64, error) {
	var expired int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lapsed []store.Reservation
		if err := store.ForUpdate(tx).
			Where("status = ? AND expires_at < ?", store.ReservationNotified, now).
			Find(&lapsed).Error; err != nil {
			return err
		}
		for i := range lapsed {
			if err := tx.Model(&store.Reservation{}).Where("id = ?", lapsed[i].ID).
				Update("status", store.ReservationCancelled).Error; err != nil {
				return err
			}
			if err := releaseHeldCopy(tx, &lapsed[i]); err != nil {
				return err
			}
		}
		expired = int64(len(lapsed))
		return nil
	})
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		s.logger.Info("lapsed reservations expired", zap.Int64("count", expired))
	}
	return expired, nil
}

// releaseHeldCopy reverts the copy held by a notified reservation to
// available status.
func releaseHeldCopy(tx *gorm.DB, res *store.Reservation) error {
	if res.HeldCopyID != nil {
		return tx.Model(&store.Copy{}).
			Where("id = ? AND status = ?", *res.HeldCopyID, store.CopyReserved).
			Update("status", store.CopyAvailable).Error
	}
	return tx.Model(&store.Copy{}).
		Where("book_id = ? AND status = ? AND is_deleted = ?",
			res.BookID, store.CopyReserved, false).
		Update("status", store.CopyAvailable).Error
}
