package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/motorintel/comparables/internal/infrastructure/monitoring/logging"
)

// probeTimeout bounds each dependency check of a readiness probe.
const probeTimeout = 2 * time.Second

// CorpusProbe reports the corpus version; a working read path implies a
// reachable corpus.
type CorpusProbe interface {
	Version(ctx context.Context) (string, error)
}

// CacheProbe reports cache reachability.
type CacheProbe interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.  The cache probe is
// optional: the engine degrades to direct computation without it, so a cache
// fault marks the component degraded but keeps readiness green.
type HealthHandler struct {
	corpus CorpusProbe
	cache  CacheProbe
	logger logging.Logger
}

// NewHealthHandler builds the handler.  cache may be nil when no result cache
// is configured.
func NewHealthHandler(corpus CorpusProbe, cache CacheProbe, logger logging.Logger) *HealthHandler {
	return &HealthHandler{corpus: corpus, cache: cache, logger: logger.Named("handler.health")}
}

// Liveness handles GET /healthz.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz.  The corpus is the only hard dependency.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	components := gin.H{}
	ready := true

	version, err := h.corpus.Version(ctx)
	if err != nil {
		h.logger.Warn("corpus probe failed", logging.Err(err))
		components["corpus"] = "unavailable"
		ready = false
	} else {
		components["corpus"] = "ok"
		components["corpus_version"] = version
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			h.logger.Warn("cache probe failed", logging.Err(err))
			components["cache"] = "degraded"
		} else {
			components["cache"] = "ok"
		}
	}

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "not_ready"
	}
	c.JSON(status, gin.H{"status": state, "components": components})
}
