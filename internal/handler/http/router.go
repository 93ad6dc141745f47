package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/najeemsuhail/ecommerce-store-sub000/pkg/health"
	"github.com/najeemsuhail/ecommerce-store-sub000/pkg/middleware"
)

const serviceName = "catalog"

// NewRouter creates a chi router with all catalog routes registered.
func NewRouter(deps Dependencies, healthHandler *health.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	catalog := NewCatalogHandler(deps, logger)

	r.Route("/api/v1/products", func(r chi.Router) {
		r.With(chimw.Compress(5), chimw.Timeout(30*time.Second)).Get("/", catalog.Search)

		// Imports can run for minutes; they are bounded by the caller.
		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Post("/import", catalog.Import)
			r.Post("/import/chunk", catalog.ImportChunk)
			r.Post("/import/file", catalog.ImportFile)
			r.Post("/sync", catalog.Sync)
		})
	})

	r.Post("/api/v1/search/reindex", catalog.Reindex)

	return r
}
