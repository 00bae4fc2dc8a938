// internal/reservation/service.go
package reservation

import (
	"context"
	"time"

	"biblios/internal/store"

	"github.com/google/uuid"
)

// Service defines the interface for the per-title reservation queue.
type Service interface {
	Reserve(ctx context.Context, bookID, memberID uuid.UUID, staffID *uuid.UUID) (*store.Reservation, error)
	Cancel(ctx context.Context, reservationID uuid.UUID, staffID *uuid.UUID) error
	Fulfill(ctx context.Context, reservationID uuid.UUID, staffID *uuid.UUID) (uuid.UUID, error)
	ExpireLapsed(ctx context.Context, now time.Time) (int64, error)
}
