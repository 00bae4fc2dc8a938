// internal/notifier/engine.go
package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"biblios/internal/circulation"
	"biblios/internal/reservation"
	"biblios/internal/settings"
	"biblios/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const unknownBookTitle = "Nepoznata knjiga"

// Engine evaluates the trigger catalogue against the current date and
// appends one notification record per attempted send. The record
// ledger is the only idempotency state: a successful record for a
// (trigger, entity) pair means the trigger already fired, so a
// duplicate or missed sweep is always safe to re-run. Failed attempts
// do not count as sent and are retried on the next sweep.
type Engine struct {
	db       *gorm.DB
	settings *settings.Service
	circ     circulation.Service
	resv     reservation.Service
	logger   *zap.Logger

	// Now and NewMailer are injection points for tests.
	Now       func() time.Time
	NewMailer func(settings.EmailConfig) Mailer
}

// NewEngine creates a notification policy engine.
func NewEngine(db *gorm.DB, cfg *settings.Service, circ circulation.Service, resv reservation.Service, logger *zap.Logger) *Engine {
	return &Engine{
		db:        db,
		settings:  cfg,
		circ:      circ,
		resv:      resv,
		logger:    logger,
		Now:       time.Now,
		NewMailer: NewSMTPMailer,
	}
}

// Sweep runs one full evaluation of every trigger. It is a no-op when
// outbound email is administratively disabled.
func (e *Engine) Sweep(ctx context.Context) error {
	cfg := e.settings.Email(ctx)
	if !cfg.Enabled {
		e.logger.Debug("email disabled, skipping notification sweep")
		return nil
	}

	now := e.Now().UTC()

	// Bring loan statuses and pickup holds up to date before
	// evaluating triggers against them.
	if _, err := e.circ.MarkOverdue(ctx, now); err != nil {
		return fmt.Errorf("failed to mark overdue loans: %w", err)
	}
	if _, err := e.resv.ExpireLapsed(ctx, now); err != nil {
		return fmt.Errorf("failed to expire lapsed reservations: %w", err)
	}

	mailer := e.NewMailer(cfg)
	libraryName := e.settings.LibraryName(ctx)

	for _, process := range []func(context.Context, Mailer, string, time.Time) error{
		e.processDueTomorrow,
		e.processDueToday,
		e.processOverdue,
		e.processReservationAvailable,
		e.processMembershipExpiring,
		e.processMembershipExpired,
	} {
		if err := process(ctx, mailer, libraryName, now); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) processDueTomorrow(ctx context.Context, mailer Mailer, libraryName string, now time.Time) error {
	tomorrow := store.Day(now).AddDate(0, 0, 1)
	var loans []store.Loan
	if err := e.db.WithContext(ctx).
		Where("status = ? AND due_date >= ? AND due_date < ?",
			store.LoanActive, tomorrow, tomorrow.AddDate(0, 0, 1)).
		Find(&loans).Error; err != nil {
		return err
	}

	for _, loan := range loans {
		ref := LoanRef(loan.ID)
		sent, err := e.alreadySent(ctx, TriggerDueTomorrow, ref)
		if err != nil {
			return err
		}
		if sent {
			continue
		}
		member, ok := e.memberWithEmail(ctx, loan.MemberID)
		if !ok {
			continue
		}
		subject, body := renderDueTomorrow(memberName(member), e.bookTitleForLoan(ctx, &loan), libraryName, tomorrow)
		e.attempt(ctx, mailer, TriggerDueTomorrow, ref, member, subject, body, now)
	}
	return nil
}

func (e *Engine) processDueToday(ctx context.Context, mailer Mailer, libraryName string, now time.Time) error {
	today := store.Day(now)
	var loans []store.Loan
	if err := e.db.WithContext(ctx).
		Where("status = ? AND due_date >= ? AND due_date < ?",
			store.LoanActive, today, today.AddDate(0, 0, 1)).
		Find(&loans).Error; err != nil {
		return err
	}

	for _, loan := range loans {
		ref := LoanRef(loan.ID)
		sent, err := e.alreadySent(ctx, TriggerDueToday, ref)
		if err != nil {
			return err
		}
		if sent {
			continue
		}
		member, ok := e.memberWithEmail(ctx, loan.MemberID)
		if !ok {
			continue
		}
		subject, body := renderDueToday(memberName(member), e.bookTitleForLoan(ctx, &loan), libraryName, today)
		e.attempt(ctx, mailer, TriggerDueToday, ref, member, subject, body, now)
	}
	return nil
}

func (e *Engine) processOverdue(ctx context.Context, mailer Mailer, libraryName string, now time.Time) error {
	today := store.Day(now)
	var loans []store.Loan
	if err := e.db.WithContext(ctx).
		Where("status IN ? AND due_date < ?",
			[]string{store.LoanActive, store.LoanOverdue}, today).
		Find(&loans).Error; err != nil {
		return err
	}

	weekAgo := now.AddDate(0, 0, -7)
	for _, loan := range loans {
		ref := LoanRef(loan.ID)
		sent, err := e.alreadySentSince(ctx, TriggerOverdueWeekly, ref, weekAgo)
		if err != nil {
			return err
		}
		if sent {
			continue
		}
		member, ok := e.memberWithEmail(ctx, loan.MemberID)
		if !ok {
			continue
		}
		due := store.Day(loan.DueDate)
		daysLate := int(today.Sub(due).Hours() / 24)
		subject, body := renderOverdue(memberName(member), e.bookTitleForLoan(ctx, &loan), libraryName, due, daysLate)
		e.attempt(ctx, mailer, TriggerOverdueWeekly, ref, member, subject, body, now)
	}
	return nil
}

func (e *Engine) processReservationAvailable(ctx context.Context, mailer Mailer, libraryName string, now time.Time) error {
	var reservations []store.Reservation
	if err := e.db.WithContext(ctx).
		Where("status = ?", store.ReservationNotified).
		Find(&reservations).Error; err != nil {
		return err
	}

	for _, res := range reservations {
		ref := ReservationRef(res.ID)
		sent, err := e.alreadySent(ctx, TriggerReservationAvailable, ref)
		if err != nil {
			return err
		}
		if sent {
			continue
		}
		member, ok := e.memberWithEmail(ctx, res.MemberID)
		if !ok {
			continue
		}
		title := unknownBookTitle
		var book store.Book
		if err := e.db.WithContext(ctx).First(&book, "id = ?", res.BookID).Error; err == nil {
			title = book.Title
		}
		subject, body := renderReservationAvailable(memberName(member), title, libraryName, res.ExpiresAt)
		e.attempt(ctx, mailer, TriggerReservationAvailable, ref, member, subject, body, now)
	}
	return nil
}

func (e *Engine) processMembershipExpiring(ctx context.Context, mailer Mailer, libraryName string, now time.Time) error {
	target := store.Day(now).AddDate(0, 0, 30)
	return e.processMembershipsDue(ctx, mailer, target, func(member *store.Member, m *store.Membership) (string, string, string) {
		subject, body := renderMembershipExpiring(memberName(member), libraryName, store.Day(m.ValidUntil))
		return TriggerMembershipExpiring, subject, body
	}, now)
}

func (e *Engine) processMembershipExpired(ctx context.Context, mailer Mailer, libraryName string, now time.Time) error {
	today := store.Day(now)
	return e.processMembershipsDue(ctx, mailer, today, func(member *store.Member, m *store.Membership) (string, string, string) {
		subject, body := renderMembershipExpired(memberName(member), libraryName, today)
		return TriggerMembershipExpired, subject, body
	}, now)
}

func (e *Engine) processMembershipsDue(ctx context.Context, mailer Mailer, target time.Time,
	render func(*store.Member, *store.Membership) (string, string, string), now time.Time) error {
	var memberships []store.Membership
	if err := e.db.WithContext(ctx).
		Where("valid_until >= ? AND valid_until < ?", target, target.AddDate(0, 0, 1)).
		Find(&memberships).Error; err != nil {
		return err
	}

	for i := range memberships {
		m := &memberships[i]
		member, ok := e.memberWithEmail(ctx, m.MemberID)
		if !ok {
			continue
		}
		trigger, subject, body := render(member, m)
		ref := MembershipRef(m.ID)
		sent, err := e.alreadySent(ctx, trigger, ref)
		if err != nil {
			return err
		}
		if sent {
			continue
		}
		e.attempt(ctx, mailer, trigger, ref, member, subject, body, now)
	}
	return nil
}

// attempt delivers one message and appends exactly one record with
// the outcome. The send happens outside any data transaction.
func (e *Engine) attempt(ctx context.Context, mailer Mailer, trigger string, ref EntityRef, member *store.Member, subject, body string, now time.Time) {
	sendErr := mailer.Send(ctx, member.Email, subject, body)

	row := store.Notification{
		TriggerType: trigger,
		EntityKind:  ref.Kind,
		EntityID:    ref.ID,
		MemberID:    member.ID,
		EmailTo:     member.Email,
		Subject:     subject,
		Body:        body,
		Success:     sendErr == nil,
		SentAt:      now,
	}
	if sendErr != nil {
		row.ErrorMessage = sendErr.Error()
		e.logger.Warn("notification send failed",
			zap.String("trigger", trigger),
			zap.String("entity_id", ref.ID.String()),
			zap.Error(sendErr))
	}
	if err := e.db.WithContext(ctx).Create(&row).Error; err != nil {
		e.logger.Error("notification record append failed",
			zap.String("trigger", trigger),
			zap.String("entity_id", ref.ID.String()),
			zap.Error(err))
	}
}

func (e *Engine) alreadySent(ctx context.Context, trigger string, ref EntityRef) (bool, error) {
	var count int64
	err := e.db.WithContext(ctx).Model(&store.Notification{}).
		Where("trigger_type = ? AND entity_kind = ? AND entity_id = ? AND success = ?",
			trigger, ref.Kind, ref.ID, true).
		Count(&count).Error
	return count > 0, err
}

func (e *Engine) alreadySentSince(ctx context.Context, trigger string, ref EntityRef, since time.Time) (bool, error) {
	var count int64
	err := e.db.WithContext(ctx).Model(&store.Notification{}).
		Where("trigger_type = ? AND entity_kind = ? AND entity_id = ? AND success = ? AND sent_at >= ?",
			trigger, ref.Kind, ref.ID, true, since).
		Count(&count).Error
	return count > 0, err
}

// memberWithEmail loads the member for an entity; entities whose
// member has no address are skipped without creating a record.
func (e *Engine) memberWithEmail(ctx context.Context, memberID uuid.UUID) (*store.Member, bool) {
	var member store.Member
	err := e.db.WithContext(ctx).First(&member, "id = ?", memberID).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			e.logger.Warn("member lookup failed", zap.String("member_id", memberID.String()), zap.Error(err))
		}
		return nil, false
	}
	if member.Email == "" {
		return nil, false
	}
	return &member, true
}

func (e *Engine) bookTitleForLoan(ctx context.Context, loan *store.Loan) string {
	var copy store.Copy
	if err := e.db.WithContext(ctx).First(&copy, "id = ?", loan.CopyID).Error; err != nil {
		return unknownBookTitle
	}
	var book store.Book
	if err := e.db.WithContext(ctx).First(&book, "id = ?", copy.BookID).Error; err != nil {
		return unknownBookTitle
	}
	return book.Title
}

func memberName(m *store.Member) string {
	return m.FirstName + " " + m.LastName
}
