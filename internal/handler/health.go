package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck reports whether one dependency is reachable
type HealthCheck func(ctx context.Context) error

// NewHealthHandler serves /health, which runs every check and answers 503 if
// any fails, and /metrics
func NewHealthHandler(checks map[string]HealthCheck, log *zap.Logger) http.Handler {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				log.Warn("Health check failed", zap.String("check", name), zap.Error(err))
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "unhealthy"
		}
		c.JSON(status, gin.H{
			"status": overall,
			"checks": results,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
