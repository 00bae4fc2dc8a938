// internal/membership/membership_test.go
package membership

import (
	"context"
	"path/filepath"
	"testing"
	"time"

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

func registerMember(t testing.TB, svc Service) *store.Member {
	t.Helper()
	member := &store.Member{
		MemberNumber: "M-" + uuid.NewString()[:8],
		FirstName:    "Petar",
		LastName:     "Petrović",
	}
	require.NoError(t, svc.RegisterMember(context.Background(), member, nil))
	return member
}

func TestRegisterMember(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	member := registerMember(t, svc)
	assert.NotEqual(t, uuid.Nil, member.ID)
	assert.True(t, member.IsActive)
	assert.False(t, member.RegisteredAt.IsZero())

	got, err := svc.GetMember(context.Background(), member.ID)
	require.NoError(t, err)
	assert.Equal(t, member.MemberNumber, got.MemberNumber)
}

func TestGetMemberHidesDeleted(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	member := registerMember(t, svc)
	require.NoError(t, db.Model(member).Update("is_deleted", true).Error)

	_, err := svc.GetMember(context.Background(), member.ID)
	require.ErrorIs(t, err, ErrMemberNotFound)
}

func TestBlockUnblock(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newTestService(t, db)
	member := registerMember(t, svc)

	require.NoError(t, svc.BlockMember(ctx, member.ID, "izgubljene knjige", nil))
	got, err := svc.GetMember(ctx, member.ID)
	require.NoError(t, err)
	assert.True(t, got.IsBlocked)
	assert.Equal(t, "izgubljene knjige", got.BlockReason)

	require.ErrorIs(t, svc.BlockMember(ctx, member.ID, "again", nil), ErrMemberAlreadyBlocked)

	require.NoError(t, svc.UnblockMember(ctx, member.ID, nil))
	got, err = svc.GetMember(ctx, member.ID)
	require.NoError(t, err)
	assert.False(t, got.IsBlocked)
	assert.Empty(t, got.BlockReason)

	require.ErrorIs(t, svc.UnblockMember(ctx, member.ID, nil), ErrMemberNotBlocked)
}

func TestRecordMembership(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newTestService(t, db)
	member := registerMember(t, svc)

	from := time.Date(2026, 1, 1, 10, 15, 0, 0, time.UTC)
	m := &store.Membership{
		MemberID:   member.ID,
		Year:       2026,
		AmountPaid: 1500,
		PaidAt:     from,
		ValidFrom:  from,
		ValidUntil: from.AddDate(1, 0, 0),
	}
	require.NoError(t, svc.RecordMembership(ctx, m, nil))

	// Dates are normalized to calendar days.
	assert.Equal(t, store.Day(from), m.ValidFrom)
	assert.Equal(t, 0, m.ValidUntil.Hour())

	t.Run("rejects inverted period", func(t *testing.T) {
		bad := &store.Membership{
			MemberID:   member.ID,
			Year:       2026,
			ValidFrom:  from,
			ValidUntil: from.AddDate(0, 0, -1),
		}
		require.ErrorIs(t, svc.RecordMembership(ctx, bad, nil), ErrInvalidPeriod)
	})

	t.Run("rejects unknown member", func(t *testing.T) {
		bad := &store.Membership{
			MemberID:   uuid.New(),
			Year:       2026,
			ValidFrom:  from,
			ValidUntil: from.AddDate(1, 0, 0),
		}
		require.ErrorIs(t, svc.RecordMembership(ctx, bad, nil), ErrMemberNotFound)
	})
}

func TestCurrentMembership(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newTestService(t, db)
	member := registerMember(t, svc)

	_, err := svc.CurrentMembership(ctx, member.ID)
	require.ErrorIs(t, err, ErrNoMembership)

	for _, year := range []int{2024, 2026, 2025} {
		from := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, svc.RecordMembership(ctx, &store.Membership{
			MemberID:   member.ID,
			Year:       year,
			AmountPaid: 1500,
			PaidAt:     from,
			ValidFrom:  from,
			ValidUntil: from.AddDate(1, 0, 0),
		}, nil))
	}

	current, err := svc.CurrentMembership(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, 2026, current.Year, "the period with the latest valid_until wins regardless of insertion order")
}
