// internal/settings/settings_test.go
package settings

import (
	"context"
	"path/filepath"
	"testing"

	"biblios/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))
	return db
}

func TestLoanDurationDays(t *testing.T) {
	ctx := context.Background()
	svc := NewService(setupTestDB(t))

	assert.Equal(t, 30, svc.LoanDurationDays(ctx))

	require.NoError(t, svc.Set(ctx, KeyLoanDurationDays, "14"))
	assert.Equal(t, 14, svc.LoanDurationDays(ctx))

	// Garbage falls back to the default rather than breaking loans.
	require.NoError(t, svc.Set(ctx, KeyLoanDurationDays, "soon"))
	assert.Equal(t, 30, svc.LoanDurationDays(ctx))
	require.NoError(t, svc.Set(ctx, KeyLoanDurationDays, "-5"))
	assert.Equal(t, 30, svc.LoanDurationDays(ctx))
}

func TestEmailConfig(t *testing.T) {
	ctx := context.Background()
	svc := NewService(setupTestDB(t))

	cfg := svc.Email(ctx)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 587, cfg.Port)

	require.NoError(t, svc.Set(ctx, KeyEmailEnabled, "true"))
	require.NoError(t, svc.Set(ctx, KeyEmailHost, "smtp.example.com"))
	require.NoError(t, svc.Set(ctx, KeyEmailPort, "2525"))
	require.NoError(t, svc.Set(ctx, KeyEmailUser, "biblioteka"))

	cfg = svc.Email(ctx)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "smtp.example.com", cfg.Host)
	assert.Equal(t, 2525, cfg.Port)
	assert.Equal(t, "biblioteka", cfg.User)
}

func TestSetOverwrites(t *testing.T) {
	ctx := context.Background()
	svc := NewService(setupTestDB(t))

	require.NoError(t, svc.Set(ctx, KeyLibraryName, "Biblioteka A"))
	require.NoError(t, svc.Set(ctx, KeyLibraryName, "Biblioteka B"))
	assert.Equal(t, "Biblioteka B", svc.LibraryName(ctx))
}
