package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/klevu/catalog-sync/pkg/health"
	"github.com/klevu/catalog-sync/pkg/middleware"
)

// NewRouter creates the chi router with all routes registered.
func NewRouter(handler *SyncHandler, healthHandler *health.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("catalog-sync"))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/drift/evaluate", handler.EvaluateDrift)
		r.Get("/items/{id}/indexability", handler.Indexability)
		r.Post("/audit/run", handler.RunAudit)

		r.Route("/rows", func(r chi.Router) {
			r.Get("/", handler.ListRows)
			r.Post("/", handler.CreateRow)
			r.Delete("/{id}", handler.DeleteRow)
		})
	})

	return r
}
