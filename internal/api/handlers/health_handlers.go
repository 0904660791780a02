package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/risk-service/risk_service/internal/infrastructure/cache"
)

// HealthHandlers contains the health and readiness HTTP handlers
type HealthHandlers struct {
	db       *sqlx.DB
	runCache *cache.RunCache
	started  time.Time
}

// NewHealthHandlers creates a new instance of health handlers. runCache may
// be nil when Redis is not configured.
func NewHealthHandlers(db *sqlx.DB, runCache *cache.RunCache) *HealthHandlers {
	return &HealthHandlers{
		db:       db,
		runCache: runCache,
		started:  time.Now(),
	}
}

// Health handles GET /health
func (h *HealthHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.started).String(),
	})
}

// Live handles GET /health/live
func (h *HealthHandlers) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// Ready handles GET /health/ready and verifies the service's dependencies
func (h *HealthHandlers) Ready(c *gin.Context) {
	checks := gin.H{}
	healthy := true

	if err := h.db.PingContext(c.Request.Context()); err != nil {
		checks["database"] = err.Error()
		healthy = false
	} else {
		checks["database"] = "ok"
	}

	if h.runCache != nil {
		if err := h.runCache.Ping(c.Request.Context()); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"checks": checks})
}
