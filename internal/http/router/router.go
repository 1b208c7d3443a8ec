package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/straye-as/renovation-api/internal/config"
	"github.com/straye-as/renovation-api/internal/database"
	"github.com/straye-as/renovation-api/internal/http/handler"
	"github.com/straye-as/renovation-api/internal/http/middleware"
	"github.com/straye-as/renovation-api/internal/service"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/straye-as/renovation-api/docs" // Import generated swagger docs
)

type Router struct {
	cfg             *config.Config
	logger          *zap.Logger
	db              *gorm.DB
	rateLimiter     *middleware.RateLimiter
	metrics         http.Handler
	customerHandler *handler.CustomerHandler
	dealHandler     *handler.DealHandler
	projectHandler  *handler.ProjectHandler
	bulkHandler     *handler.BulkHandler
	snapshotHandler *handler.SnapshotHandler
}

// NewRouter wires the handlers. metrics may be nil when metrics are disabled.
func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	rateLimiter *middleware.RateLimiter,
	metrics http.Handler,
	customerHandler *handler.CustomerHandler,
	dealHandler *handler.DealHandler,
	projectHandler *handler.ProjectHandler,
	bulkHandler *handler.BulkHandler,
	snapshotHandler *handler.SnapshotHandler,
) *Router {
	return &Router{
		cfg:             cfg,
		logger:          logger,
		db:              db,
		rateLimiter:     rateLimiter,
		metrics:         metrics,
		customerHandler: customerHandler,
		dealHandler:     dealHandler,
		projectHandler:  projectHandler,
		bulkHandler:     bulkHandler,
		snapshotHandler: snapshotHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.Limit)
	if timeout := rt.cfg.Server.RequestTimeoutDuration(); timeout > 0 {
		r.Use(chimw.Timeout(timeout))
	}

	// Health check (liveness)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Database health check (readiness with pool stats)
	r.Get("/health/db", rt.databaseHealth)

	if rt.metrics != nil {
		r.Handle(rt.metricsPath(), rt.metrics)
	}

	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/customers", func(r chi.Router) {
			r.Get("/", rt.customerHandler.List)
			r.Post("/", rt.customerHandler.Create)
			r.Post("/find-or-create", rt.customerHandler.FindOrCreate)
			r.Post("/import", rt.customerHandler.Import)
			r.Get("/bulk-actions", rt.bulkHandler.Actions(service.BulkEntityCustomers))
			r.Post("/bulk", rt.bulkHandler.Execute(service.BulkEntityCustomers))
			r.Get("/{id}", rt.customerHandler.GetByID)
			r.Put("/{id}", rt.customerHandler.Update)
			r.Delete("/{id}", rt.customerHandler.Delete)
		})

		r.Route("/deals", func(r chi.Router) {
			r.Get("/", rt.dealHandler.List)
			r.Post("/", rt.dealHandler.Create)
			r.Get("/stats", rt.dealHandler.PipelineStats)
			r.Post("/import", rt.dealHandler.Import)
			r.Get("/bulk-actions", rt.bulkHandler.Actions(service.BulkEntityDeals))
			r.Post("/bulk", rt.bulkHandler.Execute(service.BulkEntityDeals))
			r.Get("/{id}", rt.dealHandler.GetByID)
			r.Put("/{id}", rt.dealHandler.Update)
			r.Delete("/{id}", rt.dealHandler.Delete)
			r.Put("/{id}/stage", rt.dealHandler.ChangeStage)
			r.Post("/{id}/convert", rt.dealHandler.Convert)
			r.Get("/{id}/history", rt.dealHandler.GetStageHistory)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", rt.projectHandler.List)
			r.Post("/", rt.projectHandler.Create)
			r.Get("/bulk-actions", rt.bulkHandler.Actions(service.BulkEntityProjects))
			r.Post("/bulk", rt.bulkHandler.Execute(service.BulkEntityProjects))
			r.Get("/{id}", rt.projectHandler.GetByID)
			r.Put("/{id}", rt.projectHandler.Update)
			r.Put("/{id}/status", rt.projectHandler.UpdateStatus)
			r.Delete("/{id}", rt.projectHandler.Delete)
		})

		r.Get("/snapshot", rt.snapshotHandler.Snapshot)
		r.Post("/exports", rt.snapshotHandler.Export)
	})

	return r
}

func (rt *Router) metricsPath() string {
	if rt.cfg.Metrics.Path == "" {
		return "/metrics"
	}
	return rt.cfg.Metrics.Path
}

func (rt *Router) databaseHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	stats, err := database.HealthCheckWithStats(rt.db)
	if err != nil {
		rt.logger.Error("Database health check failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "unhealthy",
			"error":   err.Error(),
			"service": "database",
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "healthy",
		"service": "database",
		"driver":  rt.db.Dialector.Name(),
		"stats": map[string]interface{}{
			"max_open_connections": stats.MaxOpenConnections,
			"open_connections":     stats.OpenConnections,
			"in_use":               stats.InUse,
			"idle":                 stats.Idle,
			"wait_count":           stats.WaitCount,
			"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
		},
	})
}
