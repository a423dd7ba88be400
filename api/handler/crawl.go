package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagecrawl/config"
	"github.com/use-agent/pagecrawl/crawler"
	"github.com/use-agent/pagecrawl/models"
	"github.com/use-agent/pagecrawl/output"
)

// PostCrawl returns a handler for POST /api/v1/crawl.
//
// The crawl runs synchronously within the request:
//  1. Bind and validate the request, build the extraction rule.
//  2. Run the crawler (robots check, then fetch/extract/next).
//  3. Respond with JSON records, or CSV when format is "csv".
//
// A robots.txt denial yields 403 POLICY_DENIED. A fetch failure after the
// first page still returns 200 with the partial records and last_error.
// Requests without max_pages are capped at maxPages.
func PostCrawl(cr *crawler.Crawler, maxPages int) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		var req models.CrawlRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		req.Defaults(maxPages)

		job, err := crawler.JobFromConfig(config.Job{
			URL:      req.URL,
			Mode:     req.Mode,
			Tag:      req.Tag,
			Class:    req.Class,
			MaxPages: req.MaxPages,
		})
		if err != nil {
			respondError(c, err, models.TimingInfo{TotalMs: time.Since(totalStart).Milliseconds()})
			return
		}

		run := cr
		if req.WebhookURL != "" {
			run = cr.WithReporter(crawler.NewWebhookReporter(req.WebhookURL, req.WebhookSecret, "crawl-"+randomID()))
		}

		res, err := run.Run(c.Request.Context(), job)
		if err != nil {
			respondError(c, err, models.TimingInfo{TotalMs: time.Since(totalStart).Milliseconds()})
			return
		}

		slog.Info("crawl finished",
			"url", req.URL,
			"rule", job.Rule.String(),
			"pages", res.Pages,
			"records", len(res.Records),
			"stop_reason", string(res.StopReason),
		)
		respondResult(c, req.Format, res, totalStart)
	}
}

// respondResult writes a crawler.Result as JSON or CSV.
func respondResult(c *gin.Context, format string, res *crawler.Result, totalStart time.Time) {
	if format == "csv" {
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Status(http.StatusOK)
		if err := output.EncodeCSV(c.Writer, res.Fields, res.Records); err != nil {
			slog.Warn("csv response write failed", "error", err)
		}
		return
	}

	records := res.Records
	if records == nil {
		records = []models.Record{}
	}
	c.JSON(http.StatusOK, models.CrawlResponse{
		Success:    true,
		Pages:      res.Pages,
		Fields:     res.Fields,
		Records:    records,
		Total:      len(records),
		StopReason: string(res.StopReason),
		LastError:  detailOf(res.LastError),
		Timing: models.TimingInfo{
			TotalMs: time.Since(totalStart).Milliseconds(),
			FetchMs: res.FetchTime.Milliseconds(),
		},
	})
}
