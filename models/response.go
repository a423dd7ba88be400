package models

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// FetchMs is the time spent waiting on page fetches.
	FetchMs int64 `json:"fetch_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`

	// CachedPolicies is the number of robots policies held in the cache.
	CachedPolicies int `json:"cached_policies"`
}

// ErrorResponse is the body of requests rejected before any crawl ran.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}
