package analytics

import (
	"strings"

	"github.com/kpiplatform/backend/internal/domain/shared"
)

// Entity is an organizational branch or the headquarters unit that
// financial records are reported for.
type Entity struct {
	shared.BaseEntity
	Name string
	IsHQ bool
}

// NewEntity creates a new reporting entity
func NewEntity(name string, isHQ bool) (*Entity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Entity name cannot be empty")
	}
	if len([]rune(name)) > 255 {
		return nil, shared.NewDomainError("INVALID_NAME", "Entity name cannot exceed 255 characters")
	}
	return &Entity{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		IsHQ:       isHQ,
	}, nil
}

// Rename changes the display name
func (e *Entity) Rename(name string, isHQ bool) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Entity name cannot be empty")
	}
	e.Name = name
	e.IsHQ = isHQ
	e.Touch()
	return nil
}
