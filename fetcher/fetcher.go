package fetcher

import (
	"context"
	"time"
)

// Fetcher retrieves a single page. Implementations never retry.
type Fetcher interface {
	Fetch(ctx context.Context, req *Request) (*Result, error)
}

// Request contains everything a fetcher needs to retrieve a page.
type Request struct {
	URL     string
	Headers map[string]string

	// Timeout bounds the whole request including the body read.
	// Zero leaves the request bounded only by ctx.
	Timeout time.Duration
}

// Result is the output of a successful (2xx) fetch.
type Result struct {
	Body       []byte
	StatusCode int
	FinalURL   string
	Duration   time.Duration
}
