package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagecrawl/cache"
	"github.com/use-agent/pagecrawl/models"
	"github.com/use-agent/pagecrawl/robots"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
func Health(pc *cache.Cache[*robots.Policy], startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		cached := 0
		if pc != nil {
			cached = pc.Len()
		}
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:         "healthy",
			Uptime:         time.Since(startTime).Round(time.Second).String(),
			Version:        Version,
			CachedPolicies: cached,
		})
	}
}
