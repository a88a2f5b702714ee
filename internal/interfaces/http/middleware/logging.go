package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/motorintel/comparables/internal/infrastructure/monitoring/logging"
)

// LoggingConfig tunes the request logging middleware.
type LoggingConfig struct {
	// SkipPaths are high-frequency paths left out of the log stream.
	SkipPaths []string

	// SlowThreshold promotes requests above this duration to WARN.
	SlowThreshold time.Duration
}

// DefaultLoggingConfig skips the probe endpoints and flags requests slower
// than one second.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipPaths:     []string{"/healthz", "/readyz", "/metrics"},
		SlowThreshold: time.Second,
	}
}

// RequestLogging emits one structured entry per completed request.  Severity
// follows the outcome: 5xx at ERROR, 4xx and slow requests at WARN, the rest
// at INFO.
func RequestLogging(logger logging.Logger, cfg LoggingConfig) gin.HandlerFunc {
	log := logger.Named("http")
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		status := c.Writer.Status()
		fields := []logging.Field{
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.Int("status", status),
			logging.Duration("duration", duration),
			logging.String("request_id", GetRequestID(c)),
		}

		switch {
		case status >= 500:
			log.Error("request failed", fields...)
		case status >= 400:
			log.Warn("request rejected", fields...)
		case cfg.SlowThreshold > 0 && duration > cfg.SlowThreshold:
			log.Warn("slow request", fields...)
		default:
			log.Info("request served", fields...)
		}
	}
}
