package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/use-agent/pagecrawl/config"
	"github.com/use-agent/pagecrawl/models"
	"golang.org/x/time/rate"
)

const defaultMaxBody = 10 << 20

// HTTPFetcher performs plain GET requests with a fixed browser-like
// user agent. It is safe for concurrent use.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	maxBody   int64
	limiter   *rate.Limiter
}

// Options configures an HTTPFetcher.
type Options struct {
	UserAgent string

	// TLSFingerprint dials HTTPS with a Chrome ClientHello.
	TLSFingerprint bool

	// RequestsPerSecond paces successive fetches. 0 disables pacing.
	RequestsPerSecond float64

	MaxBodyBytes int64
}

// OptionsFromConfig maps the fetch section of the app config.
func OptionsFromConfig(cfg config.FetchConfig) Options {
	return Options{
		UserAgent:         cfg.UserAgent,
		TLSFingerprint:    cfg.TLSFingerprint,
		RequestsPerSecond: cfg.RequestsPerSecond,
		MaxBodyBytes:      cfg.MaxBodyBytes,
	}
}

// NewHTTPFetcher creates an HTTPFetcher. Redirects are followed up to 10 hops.
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.TLSFingerprint {
		transport.DialTLSContext = dialTLSChrome
		transport.ForceAttemptHTTP2 = false
	}

	f := &HTTPFetcher{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		userAgent: opts.UserAgent,
		maxBody:   opts.MaxBodyBytes,
	}
	if f.userAgent == "" {
		f.userAgent = config.DefaultUserAgent
	}
	if f.maxBody <= 0 {
		f.maxBody = defaultMaxBody
	}
	if opts.RequestsPerSecond > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return f
}

// Fetch issues one GET. Network errors, timeouts and non-2xx statuses are
// returned as *models.ScrapeError.
func (f *HTTPFetcher) Fetch(ctx context.Context, req *Request) (*Result, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, classify(req.URL, err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "build request for "+req.URL, err)
	}
	httpReq.Header.Set("User-Agent", f.userAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, classify(req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, models.NewScrapeError(
			models.ErrCodeHTTPStatus,
			fmt.Sprintf("HTTP %d %s for %s", resp.StatusCode, http.StatusText(resp.StatusCode), req.URL),
			nil,
		)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return nil, classify(req.URL, err)
	}

	return &Result{
		Body:       body,
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
		Duration:   time.Since(start),
	}, nil
}

// classify maps a transport error to a fetch failure code.
func classify(target string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return models.NewScrapeError(models.ErrCodeTimeout, "timed out fetching "+target, err)
	}
	return models.NewScrapeError(models.ErrCodeNetwork, "request failed for "+target, err)
}
