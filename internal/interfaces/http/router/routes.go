package router

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/estatehub/backend/internal/infrastructure/logger"
	"github.com/estatehub/backend/internal/interfaces/http/handler"
	"github.com/estatehub/backend/internal/interfaces/http/middleware"
)

// Handlers are the HTTP handlers mounted by NewEngine
type Handlers struct {
	Identifier     *handler.IdentifierHandler
	Status         *handler.StatusHandler
	Revenue        *handler.RevenueHandler
	Reconciliation *handler.ReconciliationHandler
	Health         *handler.HealthHandler
}

// EngineConfig controls the middleware stack
type EngineConfig struct {
	ServiceName    string
	TracingEnabled bool
	Meter          metric.Meter
	MaxBodyBytes   int64
	TrustedProxies []string
}

// NewEngine builds the gin engine with the middleware stack and every route
// under /api/v1.
func NewEngine(cfg EngineConfig, h Handlers, log *zap.Logger) (*gin.Engine, error) {
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	httpMetrics, err := middleware.HTTPMetrics(cfg.Meter)
	if err != nil {
		return nil, err
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	engine.Use(logger.Recovery(log), logger.GinMiddleware(log))
	engine.Use(middleware.Tracing(cfg.ServiceName, cfg.TracingEnabled)...)
	engine.Use(httpMetrics, middleware.BodyLimit(maxBody))

	r := NewRouter(engine)
	r.Register(NewDomainGroup("health", "/health").GET("", h.Health.Health))

	r.Register(NewDomainGroup("identifiers", "/identifiers").
		POST("", h.Identifier.Issue).
		GET("/:value", h.Identifier.Exists).
		DELETE("/:value", h.Identifier.Retire))

	r.Register(NewDomainGroup("leases", "/leases").POST("/:id/status", h.Status.Lease))
	r.Register(NewDomainGroup("invoices", "/invoices").POST("/:id/status", h.Status.Invoice))
	r.Register(NewDomainGroup("listings", "/listings").POST("/:id/status", h.Status.Listing))

	landlords := NewDomainGroup("landlords", "/landlords")
	landlords.Group("revenue", "/:id/revenue").
		GET("", h.Revenue.Stored).
		POST("/calculate", h.Revenue.Calculate).
		GET("/trend", h.Revenue.Trend).
		GET("/export", h.Revenue.Export)
	r.Register(landlords)

	r.Register(NewDomainGroup("reconciliation", "/reconciliation").
		POST("/daily", h.Reconciliation.RunDaily).
		POST("/revenue", h.Reconciliation.RunRevenue).
		POST("/backlog", h.Reconciliation.RunBacklog).
		GET("/status", h.Reconciliation.Status))

	r.Setup()
	return engine, nil
}
