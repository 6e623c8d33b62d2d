// Package audit records who changed what in the KPI lifecycle and in
// financial uploads.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kpiplatform/backend/internal/domain/shared"
)

// Actions recorded in the log
const (
	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionApprove  = "approve"
	ActionReject   = "reject"
	ActionFinalize = "finalize"
	ActionReset    = "reset"
	ActionClose    = "close"
	ActionUpload   = "upload"
	ActionGenerate = "generate"
)

// Entry is one audit log line
type Entry struct {
	shared.BaseEntity
	Action    string
	ModelName string
	ObjectID  uuid.UUID
	UserID    string
	Changes   map[string]any
	Timestamp time.Time
}

// NewEntry creates an entry stamped now
func NewEntry(userID, action, model string, objectID uuid.UUID, changes map[string]any) *Entry {
	base := shared.NewBaseEntity()
	return &Entry{
		BaseEntity: base,
		Action:     action,
		ModelName:  model,
		ObjectID:   objectID,
		UserID:     userID,
		Changes:    changes,
		Timestamp:  base.CreatedAt,
	}
}

// Repository persists audit entries
type Repository interface {
	Save(ctx context.Context, e *Entry) error
	FindByObject(ctx context.Context, model string, objectID uuid.UUID) ([]Entry, error)
}
