// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
//   - base.go: BaseModel shared by every table
//   - analytics.go: entities, categories, P&L and trial-balance records
//   - kpi.go: scorecards, indicators, bonuses and month closing state
//   - audit.go: audit log
//
// Decimal amounts are stored as decimal(18,2). Periods and KPI months are
// stored as the first day of the month.
package models
