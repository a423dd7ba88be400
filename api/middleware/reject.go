package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagecrawl/models"
)

// identityKey holds the caller identity set by Auth.
const identityKey = "api_key"

// reject aborts the request with the error body the crawl handlers use.
func reject(c *gin.Context, status int, err *models.ScrapeError) {
	c.AbortWithStatusJSON(status, models.CrawlResponse{
		Success: false,
		Error:   err.ToDetail(),
	})
}

// identity is the API key when Auth accepted one, else the client IP.
func identity(c *gin.Context) string {
	if key := c.GetString(identityKey); key != "" {
		return key
	}
	return c.ClientIP()
}
