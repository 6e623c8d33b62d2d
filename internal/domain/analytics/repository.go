package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EntityRepository persists reporting entities
type EntityRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Entity, error)
	FindAll(ctx context.Context) ([]Entity, error)
	Save(ctx context.Context, entity *Entity) error
}

// CategoryRepository persists P&L categories
type CategoryRepository interface {
	FindAll(ctx context.Context) ([]Category, error)
	FindByKey(ctx context.Context, key string) (*Category, error)
	Save(ctx context.Context, category *Category) error
}

// PnLRepository persists P&L records
type PnLRepository interface {
	// Upsert inserts records or overwrites plan/fact on key conflict
	Upsert(ctx context.Context, records []PnLRecord) error
	CreateBatch(ctx context.Context, records []PnLRecord) error
	DeleteByEntityAndPeriods(ctx context.Context, entityID uuid.UUID, periods []time.Time) (int64, error)
	ExistsForEntityPeriods(ctx context.Context, entityID uuid.UUID, periods []time.Time) (bool, error)
	CountByEntityAndPeriods(ctx context.Context, entityID uuid.UUID, periods []time.Time) (int64, error)
	FindByPeriod(ctx context.Context, period time.Time) ([]PnLRecord, error)
	FindFactsByEntityAndPeriod(ctx context.Context, entityID uuid.UUID, period time.Time) ([]CategoryFact, error)
	// FindFacts returns category facts for all periods, optionally for one entity
	FindFacts(ctx context.Context, entityID *uuid.UUID) ([]CategoryFact, error)
	ListPeriods(ctx context.Context, entityID *uuid.UUID) ([]time.Time, error)
	ListEntityPeriods(ctx context.Context, year int) ([]EntityPeriod, error)
}

// TrialBalanceRepository persists trial-balance records
type TrialBalanceRepository interface {
	Upsert(ctx context.Context, records []TrialBalanceRecord) error
	DeleteByEntityAndPeriods(ctx context.Context, entityID uuid.UUID, periods []time.Time) (int64, error)
	ExistsForEntityPeriods(ctx context.Context, entityID uuid.UUID, periods []time.Time) (bool, error)
	FindByPeriod(ctx context.Context, period time.Time) ([]TrialBalanceRecord, error)
	// FindAll returns every record, optionally for one entity
	FindAll(ctx context.Context, entityID *uuid.UUID) ([]TrialBalanceRecord, error)
	ListPeriods(ctx context.Context) ([]time.Time, error)
	ListEntityPeriods(ctx context.Context, year int) ([]EntityPeriod, error)
}
