// Package cookies implements the shared cookie store collaborator.
//
// Records are kept in insertion order; the bridge treats that order as
// creation order when breaking best-match ties. Replacing a cookie (same
// name, domain, and path) keeps the original position so its creation
// rank survives value updates.
package cookies

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/webfuse/extbridge/internal/types"
)

// Store is an in-memory, insertion-ordered cookie store
type Store struct {
	mu      sync.RWMutex
	records []types.Cookie
}

// NewStore creates an empty cookie store
func NewStore() *Store {
	return &Store{}
}

// FetchForURL returns every cookie visible to a URL, in store order.
// Visibility follows domain-match, path-match, and the secure-channel rule.
func (s *Store) FetchForURL(ctx context.Context, rawURL string) ([]types.Cookie, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	host := strings.ToLower(u.Hostname())
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	secureChannel := u.Scheme == "https" || u.Scheme == "wss"

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Cookie
	for _, c := range s.records {
		if !DomainMatch(host, c.Domain) {
			continue
		}
		if !PathMatch(path, c.Path) {
			continue
		}
		if c.Secure && !secureChannel {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Add writes a cookie, replacing any record with the same name, domain,
// and path while keeping its position in store order
func (s *Store) Add(ctx context.Context, c types.Cookie) (types.Cookie, error) {
	if err := ctx.Err(); err != nil {
		return types.Cookie{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.records {
		if sameSlot(existing, c) {
			s.records[i] = c
			return c, nil
		}
	}
	s.records = append(s.records, c)
	return c, nil
}

// Delete removes the record matching a cookie's name, domain, and path
func (s *Store) Delete(ctx context.Context, c types.Cookie) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.records {
		if sameSlot(existing, c) {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return nil
}

// All returns a snapshot of every record, in store order
func (s *Store) All() []types.Cookie {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Cookie, len(s.records))
	copy(out, s.records)
	return out
}

func sameSlot(a, b types.Cookie) bool {
	return a.Name == b.Name &&
		strings.EqualFold(a.Domain, b.Domain) &&
		a.Path == b.Path
}

// DomainMatch reports whether a request host falls under a cookie domain,
// per RFC 6265 domain-match: exact host, or any subdomain of the cookie
// domain. A leading dot on the cookie domain is ignored.
func DomainMatch(host, cookieDomain string) bool {
	d := strings.ToLower(strings.TrimPrefix(cookieDomain, "."))
	host = strings.ToLower(host)
	if d == "" || host == "" {
		return false
	}
	return host == d || strings.HasSuffix(host, "."+d)
}

// PathMatch reports whether a request path falls under a cookie path,
// per RFC 6265 path-match
func PathMatch(requestPath, cookiePath string) bool {
	if cookiePath == "" {
		cookiePath = "/"
	}
	if requestPath == cookiePath {
		return true
	}
	if !strings.HasPrefix(requestPath, cookiePath) {
		return false
	}
	return strings.HasSuffix(cookiePath, "/") ||
		requestPath[len(cookiePath)] == '/'
}
