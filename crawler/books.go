package crawler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/use-agent/pagecrawl/config"
	"github.com/use-agent/pagecrawl/extractor"
	"github.com/use-agent/pagecrawl/fetcher"
	"github.com/use-agent/pagecrawl/models"
)

// DefaultBookTemplate is the listing page URL; "{}" is the page number.
const DefaultBookTemplate = "https://books.toscrape.com/catalogue/page-{}.html"

// PageURL substitutes n for every "{}" in template.
func PageURL(template string, n int) string {
	return strings.ReplaceAll(template, "{}", strconv.Itoa(n))
}

// BookOptions configures a BookScraper.
type BookOptions struct {
	Template string
	Pages    int
	Timeout  time.Duration
	Reporter Reporter
}

// BookOptionsFromConfig maps the books section of the app config.
func BookOptionsFromConfig(cfg config.BooksConfig) BookOptions {
	return BookOptions{Template: cfg.Template, Pages: cfg.Pages, Timeout: cfg.Timeout}
}

// BookScraper scrapes a fixed number of book-listing pages.
type BookScraper struct {
	fetcher  fetcher.Fetcher
	template string
	pages    int
	timeout  time.Duration
	reporter Reporter
}

// NewBookScraper creates a BookScraper fetching with f.
func NewBookScraper(f fetcher.Fetcher, opts BookOptions) *BookScraper {
	b := &BookScraper{
		fetcher:  f,
		template: opts.Template,
		pages:    opts.Pages,
		timeout:  opts.Timeout,
		reporter: opts.Reporter,
	}
	if b.template == "" {
		b.template = DefaultBookTemplate
	}
	if b.pages <= 0 {
		b.pages = 5
	}
	if b.reporter == nil {
		b.reporter = nopReporter{}
	}
	return b
}

// Run scrapes pages 1..N. A page that fails is reported and skipped; the
// run always attempts every page unless ctx is cancelled.
func (b *BookScraper) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{Fields: models.BookFields, StopReason: StopCompleted}

	for n := 1; n <= b.pages; n++ {
		if ctx.Err() != nil {
			res.StopReason = StopCancelled
			res.LastError = ctx.Err()
			break
		}

		pageURL := PageURL(b.template, n)
		fr, err := b.fetcher.Fetch(ctx, &fetcher.Request{URL: pageURL, Timeout: b.timeout})
		if err != nil {
			res.Failures = append(res.Failures, PageFailure{URL: pageURL, Err: err})
			b.emit(ctx, Event{Type: EventPageFailed, URL: pageURL, Page: n, Err: err, Total: len(res.Records)})
			continue
		}
		res.Pages++
		res.FetchTime += fr.Duration
		b.emit(ctx, Event{Type: EventPageFetched, URL: pageURL, Page: n, Duration: fr.Duration, Total: len(res.Records)})

		doc, err := extractor.Parse(fr.Body)
		if err != nil {
			res.Failures = append(res.Failures, PageFailure{URL: pageURL, Err: err})
			b.emit(ctx, Event{Type: EventPageFailed, URL: pageURL, Page: n, Err: err, Total: len(res.Records)})
			continue
		}
		books := extractor.ExtractBooks(doc)
		res.Records = append(res.Records, books...)
		b.emit(ctx, Event{Type: EventRecordsExtracted, URL: pageURL, Page: n, Count: len(books), Total: len(res.Records)})
	}

	res.Duration = time.Since(start)
	b.emit(ctx, Event{
		Type:       EventDone,
		URL:        b.template,
		Page:       res.Pages,
		Total:      len(res.Records),
		StopReason: res.StopReason,
		Err:        res.LastError,
		Duration:   res.Duration,
	})
	return res, nil
}

func (b *BookScraper) emit(ctx context.Context, ev Event) {
	ev.Time = time.Now()
	b.reporter.Report(ctx, ev)
}
