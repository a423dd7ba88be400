package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagecrawl/config"
	"github.com/use-agent/pagecrawl/crawler"
	"github.com/use-agent/pagecrawl/fetcher"
	"github.com/use-agent/pagecrawl/models"
)

// PostBooks returns a handler for POST /api/v1/books.
//
// Pages that fail are skipped; the response lists whatever the remaining
// pages yielded.
func PostBooks(f fetcher.Fetcher, cfg config.BooksConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		var req models.BooksRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		req.Defaults(cfg.Pages, cfg.Template)

		opts := crawler.BookOptionsFromConfig(cfg)
		opts.Pages = req.Pages
		opts.Template = req.Template
		opts.Reporter = crawler.NewLogReporter(nil)

		res, err := crawler.NewBookScraper(f, opts).Run(c.Request.Context())
		if err != nil {
			respondError(c, err, models.TimingInfo{TotalMs: time.Since(totalStart).Milliseconds()})
			return
		}
		respondResult(c, req.Format, res, totalStart)
	}
}
