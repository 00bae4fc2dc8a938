// internal/catalog/service.go
package catalog

import (
	"context"

	"biblios/internal/store"

	"github.com/google/uuid"
)

// Service defines the interface for catalog maintenance. Circulation
// never mutates books or copies except through their status field;
// everything here is administrative.
type Service interface {
	AddBook(ctx context.Context, book *store.Book, staffID *uuid.UUID) error
	AddCopy(ctx context.Context, copy *store.Copy, staffID *uuid.UUID) error
	MarkCopyDamaged(ctx context.Context, copyID uuid.UUID, staffID *uuid.UUID) error
	MarkCopyLost(ctx context.Context, copyID uuid.UUID, staffID *uuid.UUID) error
	RemoveCopy(ctx context.Context, copyID uuid.UUID, staffID *uuid.UUID) error
	RemoveBook(ctx context.Context, bookID uuid.UUID, staffID *uuid.UUID) error
	GetBook(ctx context.Context, id uuid.UUID) (*store.Book, error)
	GetCopy(ctx context.Context, id uuid.UUID) (*store.Copy, error)
}
