package router

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freightx/internal/config"
	"freightx/internal/handler"
	"freightx/internal/metrics"
	"freightx/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware. ctx bounds background
// work started by middleware.
func Setup(
	ctx context.Context,
	cfg *config.Config,
	m *metrics.Metrics,
	logger *zap.Logger,
	extractH *handler.ExtractHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(m.Middleware())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)
	r.GET("/metrics", gin.WrapH(m.Handler()))

	limit := middleware.RateLimit(ctx, cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)

	// Unversioned path kept for the browser client.
	r.POST("/api/extract", limit, extractH.Extract)

	v1 := r.Group("/api/v1")
	v1.POST("/extract", limit, extractH.Extract)
	v1.GET("/providers", extractH.Providers)

	return r
}
