// internal/membership/service.go
package membership

import (
	"context"

	"biblios/internal/store"

	"github.com/google/uuid"
)

// Service defines the interface for member administration and paid
// membership periods.
type Service interface {
	RegisterMember(ctx context.Context, member *store.Member, staffID *uuid.UUID) error
	GetMember(ctx context.Context, id uuid.UUID) (*store.Member, error)
	BlockMember(ctx context.Context, id uuid.UUID, reason string, staffID *uuid.UUID) error
	UnblockMember(ctx context.Context, id uuid.UUID, staffID *uuid.UUID) error
	RecordMembership(ctx context.Context, m *store.Membership, staffID *uuid.UUID) error
	CurrentMembership(ctx context.Context, memberID uuid.UUID) (*store.Membership, error)
}
