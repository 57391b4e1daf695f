package cookies

import (
	"sort"
	"strings"

	"github.com/webfuse/extbridge/internal/shared/jsonv"
	"github.com/webfuse/extbridge/internal/types"
)

// filter is the compiled getAll predicate. Absent fields stay nil/empty
// and match everything.
type filter struct {
	name    *string
	domain  *string
	path    *string
	secure  *bool
	session *bool
}

func newFilter(details jsonv.Object) *filter {
	f := &filter{
		secure:  jsonv.OptBool(details, "secure"),
		session: jsonv.OptBool(details, "session"),
	}
	if s, ok := jsonv.String(details, "name"); ok {
		f.name = &s
	}
	if s, ok := jsonv.String(details, "domain"); ok {
		f.domain = &s
	}
	if s, ok := jsonv.String(details, "path"); ok {
		f.path = &s
	}
	return f
}

func (f *filter) match(c *types.Cookie) bool {
	if f.name != nil && c.Name != *f.name {
		return false
	}
	// Domain filtering uses domain-match, not equality: the filter value
	// covers the named domain and every subdomain beneath it.
	if f.domain != nil && !domainUnder(c.Domain, *f.domain) {
		return false
	}
	if f.path != nil && c.Path != *f.path {
		return false
	}
	if f.secure != nil && c.Secure != *f.secure {
		return false
	}
	if f.session != nil && c.Session() != *f.session {
		return false
	}
	return true
}

// domainUnder reports whether a cookie domain falls under a filter domain
func domainUnder(cookieDomain, filterDomain string) bool {
	cd := strings.ToLower(strings.TrimPrefix(cookieDomain, "."))
	fd := strings.ToLower(strings.TrimPrefix(filterDomain, "."))
	if cd == "" || fd == "" {
		return false
	}
	return cd == fd || strings.HasSuffix(cd, "."+fd)
}

// sortByPathLength orders cookies by non-increasing path length, keeping
// store order among equals
func sortByPathLength(cookies []types.Cookie) {
	sort.SliceStable(cookies, func(i, j int) bool {
		return len(cookies[i].Path) > len(cookies[j].Path)
	})
}

// defaultPath derives a cookie path from a URL path per RFC 6265 §5.1.4
func defaultPath(urlPath string) string {
	if urlPath == "" || !strings.HasPrefix(urlPath, "/") {
		return "/"
	}
	idx := strings.LastIndex(urlPath, "/")
	if idx == 0 {
		return "/"
	}
	return urlPath[:idx]
}

func parseSameSite(s string) types.SameSite {
	switch s {
	case string(types.SameSiteNone):
		return types.SameSiteNone
	case string(types.SameSiteStrict):
		return types.SameSiteStrict
	default:
		return types.SameSiteLax
	}
}
