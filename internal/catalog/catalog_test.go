// internal/catalog/catalog_test.go
package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"biblios/internal/audit"
	"biblios/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))
	return db
}

func newTestService(t testing.TB, db *gorm.DB) Service {
	t.Helper()
	return NewService(db, audit.Nop(), zap.NewNop())
}

func addBook(t testing.TB, svc Service) *store.Book {
	t.Helper()
	book := &store.Book{Title: "Gorski vijenac", Author: "Petar II Petrović Njegoš"}
	require.NoError(t, svc.AddBook(context.Background(), book, nil))
	return book
}

func addCopy(t testing.TB, svc Service, bookID uuid.UUID) *store.Copy {
	t.Helper()
	copy := &store.Copy{LibraryNumber: "INV-" + uuid.NewString()[:8], BookID: bookID}
	require.NoError(t, svc.AddCopy(context.Background(), copy, nil))
	return copy
}

func TestAddCopy(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newTestService(t, db)
	book := addBook(t, svc)

	copy := addCopy(t, svc, book.ID)
	assert.Equal(t, store.CopyAvailable, copy.Status)

	addCopy(t, svc, book.ID)
	got, err := svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalCopies)

	t.Run("unknown book", func(t *testing.T) {
		bad := &store.Copy{LibraryNumber: "INV-x", BookID: uuid.New()}
		require.ErrorIs(t, svc.AddCopy(ctx, bad, nil), ErrBookNotFound)
	})
}

func TestMarkCopyDamagedAndLost(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newTestService(t, db)
	book := addBook(t, svc)
	copy := addCopy(t, svc, book.ID)

	require.NoError(t, svc.MarkCopyDamaged(ctx, copy.ID, nil))
	got, err := svc.GetCopy(ctx, copy.ID)
	require.NoError(t, err)
	assert.Equal(t, store.CopyDamaged, got.Status)

	// Administrative transitions are allowed from any state.
	require.NoError(t, svc.MarkCopyLost(ctx, copy.ID, nil))
	got, err = svc.GetCopy(ctx, copy.ID)
	require.NoError(t, err)
	assert.Equal(t, store.CopyLost, got.Status)

	require.ErrorIs(t, svc.MarkCopyDamaged(ctx, uuid.New(), nil), ErrCopyNotFound)
}

func TestRemoveCopy(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newTestService(t, db)
	book := addBook(t, svc)
	copy := addCopy(t, svc, book.ID)
	addCopy(t, svc, book.ID)

	require.NoError(t, svc.RemoveCopy(ctx, copy.ID, nil))

	_, err := svc.GetCopy(ctx, copy.ID)
	require.ErrorIs(t, err, ErrCopyNotFound)

	gotBook, err := svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, gotBook.TotalCopies)

	// The row survives for loan history, only hidden.
	var raw store.Copy
	require.NoError(t, db.First(&raw, "id = ?", copy.ID).Error)
	assert.True(t, raw.IsDeleted)
	require.NotNil(t, raw.DeletedAt)

	require.ErrorIs(t, svc.RemoveCopy(ctx, copy.ID, nil), ErrCopyNotFound)
}

func TestRemoveBook(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newTestService(t, db)
	book := addBook(t, svc)
	copy := addCopy(t, svc, book.ID)

	require.NoError(t, svc.RemoveBook(ctx, book.ID, nil))

	_, err := svc.GetBook(ctx, book.ID)
	require.ErrorIs(t, err, ErrBookNotFound)
	_, err = svc.GetCopy(ctx, copy.ID)
	require.ErrorIs(t, err, ErrCopyNotFound, "copies go with the book")

	require.ErrorIs(t, svc.RemoveBook(ctx, book.ID, nil), ErrBookNotFound)
}
