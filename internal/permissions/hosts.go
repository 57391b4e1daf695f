package permissions

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/webfuse/extbridge/internal/types"
)

// AllURLs grants every origin
const AllURLs = "<all_urls>"

// Pattern is a parsed host match pattern of the form scheme://host/path,
// where scheme may be "*" (http or https), host may be "*" or "*.domain",
// and path is a glob.
type Pattern struct {
	Scheme string
	Host   string
	Path   string
	all    bool
}

// Parse parses a match pattern string
func Parse(raw string) (*Pattern, error) {
	if raw == AllURLs {
		return &Pattern{all: true}, nil
	}

	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return nil, fmt.Errorf("match pattern %q: missing scheme separator", raw)
	}
	switch scheme {
	case "*", "http", "https", "ws", "wss":
	default:
		return nil, fmt.Errorf("match pattern %q: unsupported scheme %q", raw, scheme)
	}

	host, path, ok := strings.Cut(rest, "/")
	if !ok {
		path = "*"
	}
	if host == "" {
		return nil, fmt.Errorf("match pattern %q: empty host", raw)
	}
	if strings.Contains(strings.TrimPrefix(host, "*."), "*") {
		return nil, fmt.Errorf("match pattern %q: wildcard only allowed as leading label", raw)
	}

	return &Pattern{
		Scheme: scheme,
		Host:   strings.ToLower(host),
		Path:   "/" + path,
	}, nil
}

// MatchURL reports whether the pattern covers a parsed URL
func (p *Pattern) MatchURL(u *url.URL) bool {
	if p.all {
		return true
	}
	if !p.matchScheme(u.Scheme) {
		return false
	}
	if !p.MatchHost(u.Hostname()) {
		return false
	}
	return p.matchPath(u.EscapedPath())
}

// MatchHost reports whether the pattern covers a bare hostname
func (p *Pattern) MatchHost(host string) bool {
	if p.all {
		return true
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	switch {
	case p.Host == "*":
		return true
	case strings.HasPrefix(p.Host, "*."):
		base := p.Host[2:]
		return host == base || strings.HasSuffix(host, "."+base)
	default:
		return host == p.Host
	}
}

func (p *Pattern) matchScheme(scheme string) bool {
	if p.Scheme == "*" {
		return scheme == "http" || scheme == "https"
	}
	return scheme == p.Scheme
}

func (p *Pattern) matchPath(path string) bool {
	if path == "" {
		path = "/"
	}
	// A trailing "/*" covers everything beneath the stem, including nested
	// segments; plain globs are segment-scoped.
	if strings.HasSuffix(p.Path, "/*") {
		stem := strings.TrimSuffix(p.Path, "*")
		if strings.HasPrefix(path, stem) || path == strings.TrimSuffix(stem, "/") {
			return true
		}
	}
	ok, err := doublestar.Match(p.Path, path)
	return err == nil && ok
}

// AllowedURL reports whether the extension's host permissions cover a URL.
// Malformed URLs are never allowed.
func AllowedURL(ext *types.Extension, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}
	for _, raw := range ext.HostPermissions {
		p, err := Parse(raw)
		if err != nil {
			continue
		}
		if p.MatchURL(u) {
			return true
		}
	}
	return false
}

// AllowedDomain reports whether the extension's host permissions cover a
// cookie domain. A leading dot is ignored, matching cookie-domain spelling.
func AllowedDomain(ext *types.Extension, domain string) bool {
	domain = strings.TrimPrefix(domain, ".")
	if domain == "" {
		return false
	}
	for _, raw := range ext.HostPermissions {
		p, err := Parse(raw)
		if err != nil {
			continue
		}
		if p.MatchHost(domain) {
			return true
		}
	}
	return false
}
