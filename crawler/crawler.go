// Package crawler drives the fetch, extract and paginate loop of the site
// crawler and the fixed-count book scraper.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/pagecrawl/config"
	"github.com/use-agent/pagecrawl/extractor"
	"github.com/use-agent/pagecrawl/fetcher"
	"github.com/use-agent/pagecrawl/models"
	"github.com/use-agent/pagecrawl/robots"
)

// ErrPolicyDenied is wrapped by the error Run returns when robots.txt
// disallows the starting URL.
var ErrPolicyDenied = errors.New("disallowed by robots.txt")

// State is a step of the crawl loop.
type State int

const (
	StateAwaitingFetch State = iota
	StateParsing
	StateExtracting
	StateDiscoveringNext
	StateDone
)

func (s State) String() string {
	switch s {
	case StateAwaitingFetch:
		return "AWAITING_FETCH"
	case StateParsing:
		return "PARSING"
	case StateExtracting:
		return "EXTRACTING"
	case StateDiscoveringNext:
		return "DISCOVERING_NEXT"
	case StateDone:
		return "DONE"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// StopReason explains why a run ended.
type StopReason string

const (
	StopNoNextPage     StopReason = "no_next_page"
	StopFetchFailed    StopReason = "fetch_failed"
	StopParseFailed    StopReason = "parse_failed"
	StopMaxPages       StopReason = "max_pages"
	StopNextDisallowed StopReason = "next_disallowed"
	StopCancelled      StopReason = "cancelled"
	StopCompleted      StopReason = "completed"
)

// Job is one validated site crawl.
type Job struct {
	URL  string
	Rule extractor.Rule

	// MaxPages bounds the number of fetched pages. 0 means unbounded.
	MaxPages int
}

// JobFromConfig validates a job read from a file or assembled from flags.
func JobFromConfig(j config.Job) (Job, error) {
	rule, err := extractor.ParseRule(j.Mode, j.Tag, j.Class)
	if err != nil {
		return Job{}, err
	}
	if j.MaxPages < 0 {
		return Job{}, models.NewScrapeError(models.ErrCodeInvalidInput, "max_pages must not be negative", nil)
	}
	return Job{URL: j.URL, Rule: rule, MaxPages: j.MaxPages}, nil
}

// PageFailure records a page that could not be fetched or parsed.
type PageFailure struct {
	URL string
	Err error
}

// Result is the outcome of a run. Records are in page order, then
// document order.
type Result struct {
	Fields  []string
	Records []models.Record

	// Pages is the number of pages fetched successfully.
	Pages int

	Failures   []PageFailure
	StopReason StopReason

	// LastError is the failure that ended the run, if any.
	LastError error

	Duration time.Duration

	// FetchTime is the time spent in successful fetches.
	FetchTime time.Duration
}

// Options configures a Crawler.
type Options struct {
	// Timeout bounds each page fetch.
	Timeout time.Duration

	// Gate checks the starting URL. Nil disables the check.
	Gate *robots.Gate

	// RecheckPages applies the starting URL's policy to every discovered
	// next page of the same origin.
	RecheckPages bool

	Reporter Reporter
}

// Crawler runs site crawls. It is safe for concurrent use; each Run is
// sequential.
type Crawler struct {
	fetcher  fetcher.Fetcher
	gate     *robots.Gate
	timeout  time.Duration
	recheck  bool
	reporter Reporter
}

// New creates a Crawler fetching with f.
func New(f fetcher.Fetcher, opts Options) *Crawler {
	c := &Crawler{
		fetcher:  f,
		gate:     opts.Gate,
		timeout:  opts.Timeout,
		recheck:  opts.RecheckPages,
		reporter: opts.Reporter,
	}
	if c.reporter == nil {
		c.reporter = nopReporter{}
	}
	return c
}

// WithReporter returns a copy of c that also reports to r.
func (c *Crawler) WithReporter(r Reporter) *Crawler {
	cp := *c
	cp.reporter = Reporters{c.reporter, r}
	return &cp
}

// Run checks the starting URL against robots.txt once, then fetches,
// extracts and follows "Next" links until none remain, a fetch fails or
// MaxPages is reached.
//
// A policy denial is the only error for a valid job: nothing is fetched and
// no result is returned. Fetch failures end the run with the records
// gathered so far.
func (c *Crawler) Run(ctx context.Context, job Job) (*Result, error) {
	start := time.Now()

	u, err := url.Parse(job.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, fmt.Sprintf("invalid URL %q", job.URL), err)
	}

	var policy *robots.Policy
	if c.gate != nil {
		allowed, p, err := c.gate.Check(ctx, job.URL)
		if err != nil {
			return nil, err
		}
		c.emit(ctx, Event{Type: EventPolicyChecked, URL: job.URL, Allowed: allowed})
		if !allowed {
			return nil, models.NewScrapeError(models.ErrCodePolicyDenied,
				fmt.Sprintf("scraping %s is not allowed", job.URL), ErrPolicyDenied)
		}
		policy = p
	}

	res := &Result{Fields: models.DataFields}
	state := StateAwaitingFetch
	current := job.URL
	base := job.URL
	var body []byte
	var doc *goquery.Document

	for state != StateDone {
		switch state {
		case StateAwaitingFetch:
			if job.MaxPages > 0 && res.Pages >= job.MaxPages {
				res.StopReason = StopMaxPages
				state = StateDone
				continue
			}
			page := res.Pages + 1
			fr, err := c.fetcher.Fetch(ctx, &fetcher.Request{URL: current, Timeout: c.timeout})
			if err != nil {
				res.Failures = append(res.Failures, PageFailure{URL: current, Err: err})
				res.LastError = err
				res.StopReason = StopFetchFailed
				if ctx.Err() != nil {
					res.StopReason = StopCancelled
				}
				c.emit(ctx, Event{Type: EventPageFailed, URL: current, Page: page, Err: err, Total: len(res.Records)})
				state = StateDone
				continue
			}
			res.Pages = page
			res.FetchTime += fr.Duration
			body = fr.Body
			base = current
			if fr.FinalURL != "" {
				base = fr.FinalURL
			}
			c.emit(ctx, Event{Type: EventPageFetched, URL: current, Page: page, Duration: fr.Duration, Total: len(res.Records)})
			state = StateParsing

		case StateParsing:
			doc, err = extractor.Parse(body)
			if err != nil {
				res.Failures = append(res.Failures, PageFailure{URL: current, Err: err})
				res.LastError = err
				res.StopReason = StopParseFailed
				state = StateDone
				continue
			}
			state = StateExtracting

		case StateExtracting:
			records := extractor.Extract(doc, job.Rule)
			res.Records = append(res.Records, records...)
			c.emit(ctx, Event{Type: EventRecordsExtracted, URL: current, Page: res.Pages, Count: len(records), Total: len(res.Records)})
			state = StateDiscoveringNext

		case StateDiscoveringNext:
			next, ok := extractor.NextPage(doc, base)
			if !ok {
				res.StopReason = StopNoNextPage
				state = StateDone
				continue
			}
			if c.recheck && policy != nil && !c.allowedNext(policy, u, next) {
				res.StopReason = StopNextDisallowed
				state = StateDone
				continue
			}
			c.emit(ctx, Event{Type: EventNextDiscovered, URL: next, Page: res.Pages, Total: len(res.Records)})
			current = next
			state = StateAwaitingFetch
		}
	}

	res.Duration = time.Since(start)
	c.emit(ctx, Event{
		Type:       EventDone,
		URL:        job.URL,
		Page:       res.Pages,
		Total:      len(res.Records),
		StopReason: res.StopReason,
		Err:        res.LastError,
		Duration:   res.Duration,
	})
	return res, nil
}

// allowedNext applies policy to next when it shares start's origin.
// Other origins are not covered by the policy and are allowed.
func (c *Crawler) allowedNext(policy *robots.Policy, start *url.URL, next string) bool {
	nu, err := url.Parse(next)
	if err != nil {
		return false
	}
	if robots.Origin(nu) != robots.Origin(start) {
		return true
	}
	return policy.IsAllowed(robots.Path(nu))
}

func (c *Crawler) emit(ctx context.Context, ev Event) {
	ev.Time = time.Now()
	c.reporter.Report(ctx, ev)
}
