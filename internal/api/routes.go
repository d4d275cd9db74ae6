package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yegors/maintlog/internal/config"
	"github.com/yegors/maintlog/pkg/logger"
)

// Router is the API router
type Router struct {
	handler    *Handler
	middleware *Middleware
	config     *config.Config
	logger     *logger.Logger
}

// NewRouter creates a new API router. records may be nil when storage is disabled.
func NewRouter(runner AnalysisRunner, records RecordQuerier, config *config.Config, logger *logger.Logger) *Router {
	mw := NewMiddleware(config.Server.CORSAllowedOrigins, logger)
	return &Router{
		handler:    NewHandler(runner, records, mw, config, logger),
		middleware: mw,
		config:     config,
		logger:     logger.Named("api-router"),
	}
}

// Routes returns the API routes
func (r *Router) Routes() http.Handler {
	router := chi.NewRouter()

	router.Use(r.middleware.RequestID)
	router.Use(r.middleware.Logger)
	router.Use(r.middleware.Recoverer)
	router.Use(r.middleware.CORS)

	router.Route("/api/v1", func(router chi.Router) {
		// Analysis runs
		router.Post("/analyses", r.handler.StreamAnalysis)
		router.Handle("/analyses/ws", r.handler.AnalysisWebSocket())

		// Stored maintenance records
		router.Get("/records", r.handler.GetRecords)

		router.Get("/health", r.handler.GetHealth)
	})

	if r.config.Metrics.Enabled {
		router.Handle(r.config.Metrics.Path, promhttp.Handler())
	}

	router.Handle("/*", NewStaticFileHandler(r.config.Server.StaticFilesDir, r.logger))

	return router
}
