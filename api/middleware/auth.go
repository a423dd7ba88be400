package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagecrawl/models"
)

// Auth returns API-key authentication middleware for the crawl endpoints.
//
// The key is read from
//
//	X-API-Key: <key>
//	Authorization: Bearer <key>
//
// and becomes the identity the rate limiter charges. With no configured
// keys every caller is let through and charged by IP.
func Auth(apiKeys []string) gin.HandlerFunc {
	keys := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys[k] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		if len(keys) == 0 {
			c.Next()
			return
		}

		key := apiKey(c.Request)
		if key == "" {
			reject(c, http.StatusUnauthorized, models.NewScrapeError(models.ErrCodeUnauthorized,
				"missing API key: send X-API-Key or Authorization: Bearer <key>", nil))
			return
		}
		if _, ok := keys[key]; !ok {
			reject(c, http.StatusUnauthorized, models.NewScrapeError(models.ErrCodeUnauthorized, "invalid API key", nil))
			return
		}

		c.Set(identityKey, key)
		c.Next()
	}
}

// apiKey tries X-API-Key first, then Authorization: Bearer.
func apiKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
