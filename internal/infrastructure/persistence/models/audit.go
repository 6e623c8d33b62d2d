package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/kpiplatform/backend/internal/domain/audit"
)

// AuditLogModel is the persistence model for an audit entry
type AuditLogModel struct {
	BaseModel
	Action    string    `gorm:"type:varchar(20);not null"`
	ModelName string    `gorm:"type:varchar(100);not null;index:idx_audit_object,priority:1"`
	ObjectID  uuid.UUID `gorm:"type:uuid;not null;index:idx_audit_object,priority:2"`
	UserID    string    `gorm:"type:varchar(255);not null;default:''"`
	Changes   string    `gorm:"type:jsonb;not null;default:'{}'"`
	Timestamp time.Time `gorm:"column:logged_at;not null;index"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// ToDomain converts the persistence model to a domain audit Entry
func (m *AuditLogModel) ToDomain() audit.Entry {
	e := audit.Entry{
		BaseEntity: m.BaseModel.ToDomain(),
		Action:     m.Action,
		ModelName:  m.ModelName,
		ObjectID:   m.ObjectID,
		UserID:     m.UserID,
		Timestamp:  m.Timestamp,
	}
	if m.Changes != "" {
		_ = json.Unmarshal([]byte(m.Changes), &e.Changes)
	}
	return e
}

// FromDomainEntry populates the persistence model from a domain audit Entry
func (m *AuditLogModel) FromDomainEntry(e *audit.Entry) error {
	m.FromDomainBaseEntity(e.BaseEntity)
	m.Action = e.Action
	m.ModelName = e.ModelName
	m.ObjectID = e.ObjectID
	m.UserID = e.UserID
	m.Timestamp = e.Timestamp
	m.Changes = "{}"
	if len(e.Changes) > 0 {
		data, err := json.Marshal(e.Changes)
		if err != nil {
			return err
		}
		m.Changes = string(data)
	}
	return nil
}
