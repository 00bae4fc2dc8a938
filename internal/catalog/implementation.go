// internal/catalog/implementation.go
package catalog

import (
	"context"
	"errors"
	"time"

	"biblios/internal/audit"
	"biblios/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrBookNotFound = errors.New("book not found")
	ErrCopyNotFound = errors.New("copy not found")
)

type service struct {
	db       *gorm.DB
	recorder audit.Recorder
	logger   *zap.Logger
}

// NewService creates a new catalog service instance.
func NewService(db *gorm.DB, recorder audit.Recorder, logger *zap.Logger) Service {
	return &service{db: db, recorder: recorder, logger: logger}
}

func (s *service) AddBook(ctx context.Context, book *store.Book, staffID *uuid.UUID) error {
	if err := s.db.WithContext(ctx).Create(book).Error; err != nil {
		return err
	}
	s.recorder.Record(ctx, audit.Entry{
		StaffID:   staffID,
		Action:    "CREATE",
		Entity:    "book",
		EntityID:  book.ID,
		NewValues: map[string]any{"title": book.Title, "author": book.Author},
	})
	return nil
}

func (s *service) AddCopy(ctx context.Context, copy *store.Copy, staffID *uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var book store.Book
		if err := tx.First(&book, "id = ?", copy.BookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}
		if book.IsDeleted {
			return ErrBookNotFound
		}
		if copy.Status == "" {
			copy.Status = store.CopyAvailable
		}
		if err := tx.Create(copy).Error; err != nil {
			return err
		}
		return tx.Model(&store.Book{}).Where("id = ?", book.ID).
			Update("total_copies", gorm.Expr("total_copies + 1")).Error
	})
	if err != nil {
		return err
	}
	s.recorder.Record(ctx, audit.Entry{
		StaffID:   staffID,
		Action:    "CREATE",
		Entity:    "copy",
		EntityID:  copy.ID,
		NewValues: map[string]any{"book_id": copy.BookID.String(), "library_number": copy.LibraryNumber},
	})
	return nil
}

// MarkCopyDamaged takes the copy out of circulation administratively.
// Allowed from any state; an active loan against it stays open until
// returned or written off.
func (s *service) MarkCopyDamaged(ctx context.Context, copyID uuid.UUID, staffID *uuid.UUID) error {
	return s.setCopyStatus(ctx, copyID, store.CopyDamaged, staffID)
}

func (s *service) MarkCopyLost(ctx context.Context, copyID uuid.UUID, staffID *uuid.UUID) error {
	return s.setCopyStatus(ctx, copyID, store.CopyLost, staffID)
}

func (s *service) setCopyStatus(ctx context.Context, copyID uuid.UUID, status string, staffID *uuid.UUID) error {
	var old string
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
		old = copy.Status
		return tx.Model(&store.Copy{}).Where("id = ?", copyID).Update("status", status).Error
	})
	if err != nil {
		return err
	}
	s.recorder.Record(ctx, audit.Entry{
		StaffID:   staffID,
		Action:    "UPDATE",
		Entity:    "copy",
		EntityID:  copyID,
		OldValues: map[string]any{"status": old},
		NewValues: map[string]any{"status": status},
	})
	return nil
}

func (s *service) RemoveCopy(ctx context.Context, copyID uuid.UUID, staffID *uuid.UUID) error {
	now := time.Now().UTC()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var copy store.Copy
		if err := tx.First(&copy, "id = ?", copyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCopyNotFound
			}
			return err
		}
		if copy.IsDeleted {
			return ErrCopyNotFound
		}
		if err := tx.Model(&store.Copy{}).Where("id = ?", copyID).Updates(map[string]any{
			"is_deleted": true,
			"deleted_at": now,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&store.Book{}).Where("id = ?", copy.BookID).
			Update("total_copies", gorm.Expr("total_copies - 1")).Error
	})
	if err != nil {
		return err
	}
	s.recorder.Record(ctx, audit.Entry{
		StaffID:   staffID,
		Action:    "DELETE",
		Entity:    "copy",
		EntityID:  copyID,
		NewValues: map[string]any{"is_deleted": true},
	})
	return nil
}

// RemoveBook soft-deletes a book together with its remaining copies.
// Loan and reservation history against them stays intact.
func (s *service) RemoveBook(ctx context.Context, bookID uuid.UUID, staffID *uuid.UUID) error {
	now := time.Now().UTC()
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
		if err := tx.Model(&store.Copy{}).
			Where("book_id = ? AND is_deleted = ?", bookID, false).
			Updates(map[string]any{"is_deleted": true, "deleted_at": now}).Error; err != nil {
			return err
		}
		return tx.Model(&store.Book{}).Where("id = ?", bookID).Updates(map[string]any{
			"is_deleted": true,
			"deleted_at": now,
		}).Error
	})
	if err != nil {
		return err
	}
	s.recorder.Record(ctx, audit.Entry{
		StaffID:   staffID,
		Action:    "DELETE",
		Entity:    "book",
		EntityID:  bookID,
		NewValues: map[string]any{"is_deleted": true},
	})
	return nil
}

func (s *service) GetBook(ctx context.Context, id uuid.UUID) (*store.Book, error) {
	var book store.Book
	if err := s.db.WithContext(ctx).First(&book, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	if book.IsDeleted {
		return nil, ErrBookNotFound
	}
	return &book, nil
}

func (s *service) GetCopy(ctx context.Context, id uuid.UUID) (*store.Copy, error) {
	var copy store.Copy
	if err := s.db.WithContext(ctx).First(&copy, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCopyNotFound
		}
		return nil, err
	}
	if copy.IsDeleted {
		return nil, ErrCopyNotFound
	}
	return &copy, nil
}
