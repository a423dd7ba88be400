// Package robots parses robots.txt files and decides whether a path may be
// crawled.
//
// Only Disallow rules are honoured. Allow, Crawl-delay and wildcard
// patterns are ignored; every rule is a plain path prefix.
package robots

import (
	"bufio"
	"fmt"
	"strings"
)

// Scope selects which Disallow lines apply to a crawler.
type Scope string

const (
	// ScopeUnion applies every Disallow line in the file, whichever
	// User-agent group it belongs to.
	ScopeUnion Scope = "union"

	// ScopeAgent applies only the groups naming the crawler's product
	// token, falling back to the "*" group when none do.
	ScopeAgent Scope = "agent"
)

// ParseScope validates a scope name.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case ScopeUnion, "":
		return ScopeUnion, nil
	case ScopeAgent:
		return ScopeAgent, nil
	}
	return "", fmt.Errorf("robots: unknown scope %q", s)
}

// Group is one User-agent block.
type Group struct {
	Agents   []string
	Disallow []string
}

// Rules is the parsed content of a robots.txt file.
type Rules struct {
	Groups []Group

	// all holds every non-empty Disallow value in file order, including
	// lines that precede any User-agent line.
	all []string
}

// Parse reads robots.txt text line by line. It never fails; unknown lines
// are skipped.
//
// An empty "Disallow:" contributes nothing, so it allows every path as in
// RFC 9309. Taking its value literally would add the prefix "" and block
// the whole site.
func Parse(text string) *Rules {
	r := &Rules{}
	var cur *Group
	inRules := false

	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "user-agent":
			if cur == nil || inRules {
				r.Groups = append(r.Groups, Group{})
				cur = &r.Groups[len(r.Groups)-1]
				inRules = false
			}
			cur.Agents = append(cur.Agents, strings.ToLower(value))
		case "disallow":
			inRules = true
			// An empty Disallow value allows everything.
			if value == "" {
				continue
			}
			r.all = append(r.all, value)
			if cur != nil {
				cur.Disallow = append(cur.Disallow, value)
			}
		default:
			if cur != nil {
				inRules = true
			}
		}
	}
	return r
}

// Disallowed returns the prefixes that apply to agent under scope.
func (r *Rules) Disallowed(scope Scope, agent string) []string {
	if scope != ScopeAgent {
		return append([]string(nil), r.all...)
	}

	agent = strings.ToLower(agent)
	var named, wildcard []string
	matched := false
	for _, g := range r.Groups {
		switch {
		case agent != "" && g.names(agent):
			matched = true
			named = append(named, g.Disallow...)
		case g.names("*"):
			wildcard = append(wildcard, g.Disallow...)
		}
	}
	if matched {
		return named
	}
	return wildcard
}

func (g Group) names(agent string) bool {
	for _, a := range g.Agents {
		if a == agent {
			return true
		}
	}
	return false
}

// Policy returns the immutable decision view for agent under scope.
func (r *Rules) Policy(scope Scope, agent string) *Policy {
	return &Policy{disallowed: r.Disallowed(scope, agent), fetched: true}
}

// Policy is a set of disallowed path prefixes.
type Policy struct {
	disallowed []string
	fetched    bool
}

// AllowAll is the policy used when robots.txt could not be retrieved.
func AllowAll() *Policy {
	return &Policy{}
}

// IsAllowed reports false iff path starts with a disallowed prefix.
// An empty path is treated as "/".
func (p *Policy) IsAllowed(path string) bool {
	if path == "" {
		path = "/"
	}
	for _, prefix := range p.disallowed {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}

// Disallowed returns a copy of the prefix set.
func (p *Policy) Disallowed() []string {
	return append([]string{}, p.disallowed...)
}

// Fetched reports whether the policy came from a retrieved robots.txt.
func (p *Policy) Fetched() bool {
	return p.fetched
}
