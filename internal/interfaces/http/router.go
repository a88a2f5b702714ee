// Package http assembles the gin route tree and the HTTP server around the
// valuation API.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/motorintel/comparables/internal/infrastructure/monitoring/logging"
	"github.com/motorintel/comparables/internal/interfaces/http/handlers"
	"github.com/motorintel/comparables/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and cross-cutting dependencies of the
// route tree.
type RouterConfig struct {
	Valuation *handlers.ValuationHandler
	Health    *handlers.HealthHandler

	Logger logging.Logger

	// MetricsObserver receives per-request observations; nil disables the
	// metrics middleware.
	MetricsObserver middleware.HTTPObserver

	// MetricsHandler is mounted at /metrics; nil leaves the route out.
	MetricsHandler http.Handler
}

// NewRouter wires middleware, probes and the versioned API group into one
// engine.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	if cfg.MetricsObserver != nil {
		r.Use(middleware.Metrics(cfg.MetricsObserver))
	}
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogging(cfg.Logger, middleware.DefaultLoggingConfig()))
	}

	if cfg.Health != nil {
		r.GET("/healthz", cfg.Health.Liveness)
		r.GET("/readyz", cfg.Health.Readiness)
	}
	if cfg.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	api := r.Group("/api/v1")
	if cfg.Valuation != nil {
		api.GET("/listings/:id/valuation", cfg.Valuation.Evaluate)
		api.GET("/listings/:id/comparison", cfg.Valuation.Compare)
		api.POST("/valuations/batch", cfg.Valuation.EvaluateBatch)
	}

	return r
}
