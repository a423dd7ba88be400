package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultUserAgent is the browser-like user agent sent with every fetch.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Fetch     FetchConfig
	Robots    RobotsConfig
	Books     BooksConfig
	Crawl     CrawlConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// FetchConfig controls the page fetcher.
type FetchConfig struct {
	// UserAgent is sent as the User-Agent header.
	UserAgent string

	// Timeout bounds a single page fetch.
	Timeout time.Duration // default: 10s

	// TLSFingerprint dials HTTPS with a Chrome ClientHello (utls).
	TLSFingerprint bool // default: false

	// RequestsPerSecond paces successive fetches. 0 disables pacing.
	RequestsPerSecond float64 // default: 0

	// MaxBodyBytes caps the response body read.
	MaxBodyBytes int64 // default: 10 MB
}

// RobotsConfig controls the robots.txt policy gate.
type RobotsConfig struct {
	// Enabled toggles the gate for the site crawler.
	Enabled bool // default: true

	// Timeout bounds the robots.txt fetch.
	Timeout time.Duration // default: 5s

	// Scope is "union" (every Disallow line counts) or "agent"
	// (only the matching user-agent group, falling back to "*").
	Scope string // default: "union"

	// Agent is the product token matched against User-agent lines in
	// "agent" scope.
	Agent string // default: "pagecrawl"

	// RecheckPages applies the policy to every discovered next page.
	RecheckPages bool // default: false

	// CacheTTL is how long the server keeps a fetched policy per origin.
	CacheTTL time.Duration // default: 1h

	// CacheMaxEntries caps the number of cached policies.
	CacheMaxEntries int // default: 1000
}

// BooksConfig controls the fixed book-listing scraper.
type BooksConfig struct {
	// Template is the page URL; "{}" is replaced with the page number.
	Template string

	// Pages is the fixed number of pages to scrape.
	Pages int // default: 5

	// Output is the CSV file written at the end of the run.
	Output string // default: "products.csv"

	// Timeout bounds a single page fetch.
	Timeout time.Duration // default: 30s
}

// CrawlConfig controls the generic site crawler.
type CrawlConfig struct {
	// Output is the CSV file written at the end of the run.
	Output string // default: "scraped_data.csv"

	// MaxPages bounds the number of pages. 0 means unbounded.
	MaxPages int // default: 0

	// APIMaxPages bounds crawls started through the HTTP API that do not
	// set max_pages. It is also the page budget charged for them.
	APIMaxPages int // default: 100
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting. Requests are charged by
// the number of pages they may fetch; a robots check costs one.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained page budget per API key.
	RequestsPerSecond float64 // default: 2

	// Burst is the largest page budget a key can spend at once. A request
	// with a larger budget is charged Burst.
	Burst int // default: 100
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("PAGECRAWL_HOST", "0.0.0.0"),
			Port: envIntOr("PAGECRAWL_PORT", 8080),
			Mode: envOr("PAGECRAWL_MODE", "release"),
		},
		Fetch: FetchConfig{
			UserAgent:         envOr("PAGECRAWL_USER_AGENT", DefaultUserAgent),
			Timeout:           envDurationOr("PAGECRAWL_TIMEOUT", 10*time.Second),
			TLSFingerprint:    envBoolOr("PAGECRAWL_TLS_FINGERPRINT", false),
			RequestsPerSecond: envFloatOr("PAGECRAWL_FETCH_RPS", 0),
			MaxBodyBytes:      int64(envIntOr("PAGECRAWL_MAX_BODY_BYTES", 10<<20)),
		},
		Robots: RobotsConfig{
			Enabled:         envBoolOr("PAGECRAWL_ROBOTS", true),
			Timeout:         envDurationOr("PAGECRAWL_ROBOTS_TIMEOUT", 5*time.Second),
			Scope:           envOr("PAGECRAWL_ROBOTS_SCOPE", "union"),
			Agent:           envOr("PAGECRAWL_ROBOTS_AGENT", "pagecrawl"),
			RecheckPages:    envBoolOr("PAGECRAWL_ROBOTS_RECHECK", false),
			CacheTTL:        envDurationOr("PAGECRAWL_ROBOTS_CACHE_TTL", time.Hour),
			CacheMaxEntries: envIntOr("PAGECRAWL_ROBOTS_CACHE_MAX", 1000),
		},
		Books: BooksConfig{
			Template: envOr("PAGECRAWL_BOOKS_TEMPLATE", "https://books.toscrape.com/catalogue/page-{}.html"),
			Pages:    envIntOr("PAGECRAWL_BOOKS_PAGES", 5),
			Output:   envOr("PAGECRAWL_BOOKS_OUTPUT", "products.csv"),
			Timeout:  envDurationOr("PAGECRAWL_BOOKS_TIMEOUT", 30*time.Second),
		},
		Crawl: CrawlConfig{
			Output:      envOr("PAGECRAWL_OUTPUT", "scraped_data.csv"),
			MaxPages:    envIntOr("PAGECRAWL_MAX_PAGES", 0),
			APIMaxPages: envIntOr("PAGECRAWL_API_MAX_PAGES", 100),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("PAGECRAWL_AUTH_ENABLED", true),
			APIKeys: envSliceOr("PAGECRAWL_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("PAGECRAWL_RATE_RPS", 2.0),
			Burst:             envIntOr("PAGECRAWL_RATE_BURST", 100),
		},
		Log: LogConfig{
			Level:  envOr("PAGECRAWL_LOG_LEVEL", "info"),
			Format: envOr("PAGECRAWL_LOG_FORMAT", "text"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
