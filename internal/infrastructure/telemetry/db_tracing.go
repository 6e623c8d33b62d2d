package telemetry

import (
	"errors"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled bool
	// LogFullSQL keeps bound variables in the recorded statement
	LogFullSQL bool
	DBName     string
}

// RegisterDBTracing installs the otelgorm plugin plus a callback that adds
// row counts and table names to the statement span before otelgorm ends it.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		logger.Debug("database tracing disabled")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	cb := db.Callback()
	registrations := []error{
		cb.Create().After("gorm:create").Before("otel:after:create").Register("kpi_trace:after_create", annotateSpan),
		cb.Query().After("gorm:query").Before("otel:after:query").Register("kpi_trace:after_query", annotateSpan),
		cb.Update().After("gorm:update").Before("otel:after:update").Register("kpi_trace:after_update", annotateSpan),
		cb.Delete().After("gorm:delete").Before("otel:after:delete").Register("kpi_trace:after_delete", annotateSpan),
		cb.Row().After("gorm:row").Before("otel:after:row").Register("kpi_trace:after_row", annotateSpan),
		cb.Raw().After("gorm:raw").Before("otel:after:raw").Register("kpi_trace:after_raw", annotateSpan),
	}
	if err := errors.Join(registrations...); err != nil {
		return err
	}

	logger.Info("database tracing enabled",
		zap.String("db_name", cfg.DBName),
		zap.Bool("log_full_sql", cfg.LogFullSQL),
	)
	return nil
}

// annotateSpan runs after each statement; ErrRecordNotFound is not a failure
func annotateSpan(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}
}
