package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kpiplatform/backend/internal/infrastructure/logger"
	"github.com/kpiplatform/backend/internal/infrastructure/telemetry"
	"github.com/kpiplatform/backend/internal/interfaces/http/handler"
	"github.com/kpiplatform/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Handlers groups the HTTP handlers served by the API
type Handlers struct {
	System *handler.SystemHandler
	Entity *handler.EntityHandler
	Upload *handler.UploadHandler
	Report *handler.ReportHandler
	KPI    *handler.KPIHandler
}

// EngineConfig controls the middleware chain
type EngineConfig struct {
	ServiceName    string
	TracingEnabled bool
	MaxBodySize    int64
	TrustedProxies []string
	Metrics        *telemetry.MeterProvider
}

// NewEngine builds the gin engine with the middleware chain and every API
// route. Middleware order matters: the request ID is needed by the access
// log and the tracer, and the identity must be in the request context
// before handlers write audit entries.
func NewEngine(cfg EngineConfig, log *zap.Logger, h Handlers) (*gin.Engine, error) {
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}
	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.ServiceName,
			Enabled:     cfg.TracingEnabled,
		}),
		logger.GinMiddleware(log),
		middleware.HTTPMetrics(cfg.Metrics),
		middleware.Identity(),
		middleware.SpanAttributes(),
	)
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}

	engine.GET("/health", h.System.Health)

	NewRouter(engine).Register(Groups(h)...).Setup()
	return engine, nil
}

// Groups returns the API route groups, mounted under /api/v1
func Groups(h Handlers) []RouteRegistrar {
	system := NewDomainGroup("system", "/system").
		GET("/info", h.System.GetSystemInfo)

	entities := NewDomainGroup("entities", "/entities").
		GET("", h.Entity.List).
		POST("", h.Entity.Create).
		PUT("/:id", h.Entity.Update)

	uploads := NewDomainGroup("uploads", "/uploads").
		POST("", h.Upload.Upload)

	reports := NewDomainGroup("reports", "/reports").
		GET("/periods", h.Report.Periods).
		GET("/consolidated/pnl", h.Report.ConsolidatedPnL).
		GET("/consolidated/trial-balance", h.Report.ConsolidatedTrialBalance).
		GET("/branch", h.Report.Branch).
		GET("/annual", h.Report.Annual).
		GET("/upload-audit", h.Report.UploadAudit)

	kpis := NewDomainGroup("kpis", "/kpis").
		GET("", h.KPI.List).
		POST("", h.KPI.Create).
		POST("/generate-next-month", h.KPI.GenerateNextMonth).
		GET("/:id", h.KPI.Get).
		GET("/:id/score", h.KPI.Score).
		POST("/:id/indicators", h.KPI.AddIndicator).
		PUT("/:id/bonus", h.KPI.ConfigureBonus).
		POST("/:id/bonus/finalize", h.KPI.FinalizeBonus).
		POST("/:id/bonus/reset", h.KPI.ResetBonus).
		POST("/:id/versions", h.KPI.CreateVersion)

	indicators := NewDomainGroup("indicators", "/indicators").
		POST("/:id/fact", h.KPI.SubmitFact).
		POST("/:id/approve", h.KPI.Approve).
		POST("/:id/reject", h.KPI.Reject)

	months := NewDomainGroup("months", "/months").
		GET("/:month/summary", h.KPI.MonthSummary).
		POST("/:month/close", h.KPI.CloseMonth)

	return []RouteRegistrar{system, entities, uploads, reports, kpis, indicators, months}
}
