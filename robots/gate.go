package robots

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/use-agent/pagecrawl/cache"
	"github.com/use-agent/pagecrawl/config"
	"github.com/use-agent/pagecrawl/fetcher"
	"github.com/use-agent/pagecrawl/models"
)

// Gate retrieves robots.txt for an origin and builds its Policy.
// Retrieval failures fail open.
type Gate struct {
	fetcher fetcher.Fetcher
	timeout time.Duration
	scope   Scope
	agent   string
	cache   *cache.Cache[*Policy]
}

// GateOptions configures a Gate.
type GateOptions struct {
	Timeout time.Duration
	Scope   Scope
	Agent   string

	// Cache, if non-nil, keeps policies per origin across runs.
	Cache *cache.Cache[*Policy]
}

// GateOptionsFromConfig maps the robots section of the app config.
func GateOptionsFromConfig(cfg config.RobotsConfig) (GateOptions, error) {
	scope, err := ParseScope(cfg.Scope)
	if err != nil {
		return GateOptions{}, err
	}
	return GateOptions{Timeout: cfg.Timeout, Scope: scope, Agent: cfg.Agent}, nil
}

// NewGate creates a Gate that fetches with f.
func NewGate(f fetcher.Fetcher, opts GateOptions) *Gate {
	if opts.Scope == "" {
		opts.Scope = ScopeUnion
	}
	return &Gate{
		fetcher: f,
		timeout: opts.Timeout,
		scope:   opts.Scope,
		agent:   opts.Agent,
		cache:   opts.Cache,
	}
}

// Policy returns the policy for origin (scheme://host[:port]).
// It never fails: any fetch failure yields AllowAll.
func (g *Gate) Policy(ctx context.Context, origin string) *Policy {
	if g.cache != nil {
		if p, ok := g.cache.Get(origin); ok {
			return p
		}
	}

	robotsURL := origin + "/robots.txt"
	res, err := g.fetcher.Fetch(ctx, &fetcher.Request{URL: robotsURL, Timeout: g.timeout})
	if err != nil {
		slog.Info("robots.txt unavailable, allowing all paths", "url", robotsURL, "error", err)
		return AllowAll()
	}

	p := Parse(string(res.Body)).Policy(g.scope, g.agent)
	slog.Debug("robots.txt loaded", "url", robotsURL, "disallowed", len(p.disallowed), "scope", g.scope)
	if g.cache != nil {
		g.cache.Set(origin, p)
	}
	return p
}

// Check parses rawURL, loads its origin's policy and tests its path.
// The error is non-nil only when rawURL is not an absolute http(s) URL.
func (g *Gate) Check(ctx context.Context, rawURL string) (bool, *Policy, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false, nil, models.NewScrapeError(models.ErrCodeInvalidInput, fmt.Sprintf("invalid URL %q", rawURL), err)
	}
	p := g.Policy(ctx, Origin(u))
	return p.IsAllowed(Path(u)), p, nil
}

// Origin returns scheme://host[:port] of u.
func Origin(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}

// Path returns the part of u matched against Disallow prefixes.
func Path(u *url.URL) string {
	return u.RequestURI()
}
