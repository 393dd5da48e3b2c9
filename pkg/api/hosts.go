package api

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
)

// HostMatcher restricts which hosts the API may be asked to open.
type HostMatcher struct {
	patterns []glob.Glob
}

// NewHostMatcher compiles glob patterns such as "*.example.com". An empty
// list allows nothing.
func NewHostMatcher(patterns []string) (*HostMatcher, error) {
	m := &HostMatcher{}
	for _, p := range patterns {
		g, err := glob.Compile(strings.ToLower(strings.TrimSpace(p)))
		if err != nil {
			return nil, fmt.Errorf("invalid host pattern %q: %w", p, err)
		}
		m.patterns = append(m.patterns, g)
	}
	return m, nil
}

// AllowURL reports whether the host of rawURL matches a pattern.
func (m *HostMatcher) AllowURL(rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false, fmt.Errorf("invalid url %q: only http and https are supported", rawURL)
	}
	if u.Hostname() == "" {
		return false, fmt.Errorf("invalid url %q: missing host", rawURL)
	}
	return m.Allow(u.Hostname()), nil
}

// Allow reports whether host matches a pattern.
func (m *HostMatcher) Allow(host string) bool {
	host = strings.ToLower(host)
	for _, g := range m.patterns {
		if g.Match(host) {
			return true
		}
	}
	return false
}
