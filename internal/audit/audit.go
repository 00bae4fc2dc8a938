// internal/audit/audit.go
package audit

import (
	"context"
	"encoding/json"
	"time"

	"biblios/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Entry is the audit side effect a state-changing operation produces.
// Operations build entries; a Recorder persists them after the
// operation's transaction has committed.
type Entry struct {
	StaffID   *uuid.UUID
	Action    string // CREATE|UPDATE|DELETE
	Entity    string // loan|reservation|copy|book|member|membership
	EntityID  uuid.UUID
	OldValues map[string]any
	NewValues map[string]any
}

// Recorder persists audit entries. A recorder failure must never undo
// the operation that produced the entry.
type Recorder interface {
	Record(ctx context.Context, entries ...Entry)
}

type storeRecorder struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewRecorder returns a Recorder backed by the audit_entries table.
func NewRecorder(db *gorm.DB, logger *zap.Logger) Recorder {
	return &storeRecorder{db: db, logger: logger}
}

func (r *storeRecorder) Record(ctx context.Context, entries ...Entry) {
	for _, e := range entries {
		row := store.AuditEntry{
			StaffID:   e.StaffID,
			Action:    e.Action,
			Entity:    e.Entity,
			OldValues: marshalValues(e.OldValues),
			NewValues: marshalValues(e.NewValues),
			CreatedAt: time.Now().UTC(),
		}
		if e.EntityID != uuid.Nil {
			id := e.EntityID
			row.EntityID = &id
		}
		if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
			// Surfaced to operations, not to the caller.
			r.logger.Error("audit append failed",
				zap.String("action", e.Action),
				zap.String("entity", e.Entity),
				zap.Error(err))
		}
	}
}

func marshalValues(v map[string]any) string {
	if len(v) == 0 {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Nop returns a Recorder that discards entries. Used in tests.
func Nop() Recorder {
	return nopRecorder{}
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, ...Entry) {}
