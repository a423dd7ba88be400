package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagecrawl/config"
	"github.com/use-agent/pagecrawl/models"
	"golang.org/x/time/rate"
)

// maxPeekBytes bounds the body PageBudget reads.
const maxPeekBytes = 1 << 20

// Cost returns the page budget a request spends.
type Cost func(c *gin.Context) int

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket of pages per identity (API key or IP).
// Buckets unused for an hour are dropped by a sweep every 5 minutes.
type Limiter struct {
	perSecond rate.Limit
	burst     int

	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewLimiter creates a Limiter and starts its sweep goroutine.
func NewLimiter(cfg config.RateLimitConfig) *Limiter {
	l := &Limiter{
		perSecond: rate.Limit(cfg.RequestsPerSecond),
		burst:     max(cfg.Burst, 1),
		buckets:   make(map[string]*bucket),
	}
	go l.sweep()
	return l
}

func (l *Limiter) bucket(id string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[id]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.perSecond, l.burst)}
		l.buckets[id] = b
	}
	b.lastSeen = time.Now()
	return b.limiter
}

func (l *Limiter) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-1 * time.Hour)
		l.mu.Lock()
		for id, b := range l.buckets {
			if b.lastSeen.Before(cutoff) {
				delete(l.buckets, id)
			}
		}
		l.mu.Unlock()
	}
}

// Charge returns middleware that takes cost(c) pages from the caller's
// bucket, or one page when cost is nil. Budgets above the burst size are
// charged the burst size.
func (l *Limiter) Charge(cost Cost) gin.HandlerFunc {
	return func(c *gin.Context) {
		n := 1
		if cost != nil {
			n = max(cost(c), 1)
		}
		n = min(n, l.burst)

		if !l.bucket(identity(c)).AllowN(time.Now(), n) {
			reject(c, http.StatusTooManyRequests, models.NewScrapeError(models.ErrCodeRateLimited,
				fmt.Sprintf("rate limit exceeded: request needs a budget of %d pages", n), nil))
			return
		}
		c.Next()
	}
}

// PageBudget reads a positive integer field from the JSON body, falling back
// when it is absent, zero or unreadable. The body is left intact for the
// handler.
func PageBudget(field string, fallback int) Cost {
	return func(c *gin.Context) int {
		if c.Request.Body == nil {
			return fallback
		}
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPeekBytes))
		c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), c.Request.Body))
		if err != nil {
			return fallback
		}

		var fields map[string]json.RawMessage
		if json.Unmarshal(body, &fields) != nil {
			return fallback
		}
		var n int
		if raw, ok := fields[field]; ok && json.Unmarshal(raw, &n) == nil && n > 0 {
			return n
		}
		return fallback
	}
}
