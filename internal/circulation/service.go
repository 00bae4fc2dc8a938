// internal/circulation/service.go
package circulation

import (
	"context"
	"time"

	"biblios/internal/store"

	"github.com/google/uuid"
)

// Service defines the interface for the loan ledger.
type Service interface {
	Issue(ctx context.Context, copyID, memberID uuid.UUID, staffID *uuid.UUID) (*store.Loan, error)
	Return(ctx context.Context, loanID uuid.UUID, staffID *uuid.UUID) (*ReturnResult, error)
	Extend(ctx context.Context, loanID uuid.UUID, staffID *uuid.UUID) (time.Time, error)
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}
