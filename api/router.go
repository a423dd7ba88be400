package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagecrawl/api/handler"
	"github.com/use-agent/pagecrawl/api/middleware"
	"github.com/use-agent/pagecrawl/cache"
	"github.com/use-agent/pagecrawl/config"
	"github.com/use-agent/pagecrawl/crawler"
	"github.com/use-agent/pagecrawl/fetcher"
	"github.com/use-agent/pagecrawl/robots"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → Limiter.Charge (per route page budget)
//
// Health endpoint is outside auth so monitoring probes always work.
func NewRouter(cr *crawler.Crawler, f fetcher.Fetcher, gate *robots.Gate, pc *cache.Cache[*robots.Policy], cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	v1.GET("/health", handler.Health(pc, startTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	limiter := middleware.NewLimiter(cfg.RateLimit)

	protected.POST("/crawl",
		limiter.Charge(middleware.PageBudget("max_pages", cfg.Crawl.APIMaxPages)),
		handler.PostCrawl(cr, cfg.Crawl.APIMaxPages))
	protected.POST("/books",
		limiter.Charge(middleware.PageBudget("pages", cfg.Books.Pages)),
		handler.PostBooks(f, cfg.Books))
	protected.GET("/robots", limiter.Charge(nil), handler.GetRobots(gate))

	return r
}
