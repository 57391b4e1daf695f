package cookies

import (
	"context"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/webfuse/extbridge/internal/infrastructure/logging"
	"github.com/webfuse/extbridge/internal/permissions"
	"github.com/webfuse/extbridge/internal/shared/jsonv"
	"github.com/webfuse/extbridge/internal/types"
)

// Store is the cookie store collaborator. Fetch results arrive in the
// store's natural order, which the bridge treats as creation order.
type Store interface {
	FetchForURL(ctx context.Context, url string) ([]types.Cookie, error)
	Add(ctx context.Context, c types.Cookie) (types.Cookie, error)
	Delete(ctx context.Context, c types.Cookie) error
}

// Provider implements the cookies namespace
type Provider struct {
	store  Store
	logger *logging.Logger
}

// NewProvider creates a cookies provider
func NewProvider(store Store, logger *logging.Logger) *Provider {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Provider{store: store, logger: logger}
}

// Definition returns namespace metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          types.NamespaceCookies,
		Name:        "Cookies",
		Description: "Query and modify cookies visible to granted hosts",
		Permission:  "cookies",
		Methods: []types.Method{
			{
				ID:          "cookies.get",
				Name:        "Get Cookie",
				Description: "Return the single best-matching cookie for a URL and name",
				Parameters: []types.Parameter{
					{Name: "details", Type: "object", Description: "{url, name}", Required: true},
				},
				Returns: "object|null",
			},
			{
				ID:          "cookies.getAll",
				Name:        "Get All Cookies",
				Description: "Return every cookie matching the given filters",
				Parameters: []types.Parameter{
					{Name: "details", Type: "object", Description: "{url, name?, domain?, path?, secure?, session?}", Required: true},
				},
				Returns: "array",
			},
			{
				ID:          "cookies.set",
				Name:        "Set Cookie",
				Description: "Write a cookie, resolving domain and path from the URL",
				Parameters: []types.Parameter{
					{Name: "details", Type: "object", Description: "{url, name, value, ...}", Required: true},
				},
				Returns: "object",
			},
			{
				ID:          "cookies.remove",
				Name:        "Remove Cookie",
				Description: "Delete the best-matching cookie for a URL and name",
				Parameters: []types.Parameter{
					{Name: "details", Type: "object", Description: "{url, name}", Required: true},
				},
				Returns: "object|null",
			},
		},
	}
}

// Execute runs a cookies operation
func (p *Provider) Execute(ctx context.Context, method string, args jsonv.Array, sender *types.Sender) (*types.Result, error) {
	details, ok := jsonv.Arg(args, 0)
	if !ok {
		return nil, types.InvalidArgument("missing details object")
	}

	switch method {
	case "cookies.get":
		return p.get(ctx, details, sender)
	case "cookies.getAll":
		return p.getAll(ctx, details, sender)
	case "cookies.set":
		return p.set(ctx, details, sender)
	case "cookies.remove":
		return p.remove(ctx, details, sender)
	default:
		return nil, types.NotImplemented(method)
	}
}

func (p *Provider) get(ctx context.Context, details jsonv.Object, sender *types.Sender) (*types.Result, error) {
	rawURL, name, err := urlAndName(details)
	if err != nil {
		return nil, err
	}
	if !permissions.AllowedURL(sender.Extension, rawURL) {
		return nil, types.HostPermissionDenied(rawURL)
	}

	best, found, err := p.bestMatch(ctx, rawURL, name)
	if err != nil {
		return nil, err
	}
	if !found {
		return types.OK(nil), nil
	}
	return types.OK(best.Wire()), nil
}

func (p *Provider) getAll(ctx context.Context, details jsonv.Object, sender *types.Sender) (*types.Result, error) {
	rawURL, ok := jsonv.String(details, "url")
	if !ok || rawURL == "" {
		return nil, types.InvalidArgument("missing url")
	}
	if !permissions.AllowedURL(sender.Extension, rawURL) {
		return nil, types.HostPermissionDenied(rawURL)
	}
	if domain := jsonv.StringOr(details, "domain", ""); domain != "" && !permissions.AllowedDomain(sender.Extension, domain) {
		return nil, types.HostPermissionDenied(domain)
	}

	candidates, err := p.store.FetchForURL(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	filter := newFilter(details)
	matched := make([]types.Cookie, 0, len(candidates))
	for _, c := range candidates {
		if filter.match(&c) {
			matched = append(matched, c)
		}
	}
	sortByPathLength(matched)

	wire := make([]map[string]any, 0, len(matched))
	for i := range matched {
		wire = append(wire, matched[i].Wire())
	}
	return types.OK(wire), nil
}

func (p *Provider) set(ctx context.Context, details jsonv.Object, sender *types.Sender) (*types.Result, error) {
	rawURL, ok := jsonv.String(details, "url")
	if !ok || rawURL == "" {
		return nil, types.InvalidArgument("missing url")
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, types.InvalidArgument("malformed url %q", rawURL)
	}
	if !permissions.AllowedURL(sender.Extension, rawURL) {
		return nil, types.HostPermissionDenied(rawURL)
	}

	domain := jsonv.StringOr(details, "domain", "")
	if domain != "" && !permissions.AllowedDomain(sender.Extension, domain) {
		return nil, types.HostPermissionDenied(domain)
	}
	if domain == "" {
		domain = strings.ToLower(u.Hostname())
	}
	if suffix, icann := publicsuffix.PublicSuffix(strings.TrimPrefix(domain, ".")); icann && suffix == strings.TrimPrefix(domain, ".") {
		return nil, types.InvalidArgument("refusing to set cookie on public suffix %q", domain)
	}

	path := jsonv.StringOr(details, "path", "")
	if path == "" {
		path = defaultPath(u.EscapedPath())
	}

	cookie := types.Cookie{
		Name:     jsonv.StringOr(details, "name", ""),
		Value:    jsonv.StringOr(details, "value", ""),
		Domain:   domain,
		Path:     path,
		Secure:   jsonv.BoolOr(details, "secure", false),
		HTTPOnly: jsonv.BoolOr(details, "httpOnly", false),
		SameSite: parseSameSite(jsonv.StringOr(details, "sameSite", "")),
	}
	if exp, ok := jsonv.Float(details, "expirationDate"); ok {
		cookie.Expires = time.UnixMilli(int64(exp * 1000))
		cookie.HasExpires = true
	}

	stored, err := p.store.Add(ctx, cookie)
	if err != nil {
		return nil, err
	}
	return types.OK(stored.Wire()), nil
}

func (p *Provider) remove(ctx context.Context, details jsonv.Object, sender *types.Sender) (*types.Result, error) {
	rawURL, name, err := urlAndName(details)
	if err != nil {
		return nil, err
	}
	if !permissions.AllowedURL(sender.Extension, rawURL) {
		return nil, types.HostPermissionDenied(rawURL)
	}

	best, found, err := p.bestMatch(ctx, rawURL, name)
	if err != nil {
		return nil, err
	}
	if !found {
		// Nothing to remove is not a failure.
		return types.OK(nil), nil
	}
	if err := p.store.Delete(ctx, best); err != nil {
		return nil, err
	}
	return types.OK(best.Wire()), nil
}

// bestMatch selects among the name-equal cookies visible to a URL: the
// longest path wins, ties broken by earliest store order
func (p *Provider) bestMatch(ctx context.Context, rawURL, name string) (types.Cookie, bool, error) {
	candidates, err := p.store.FetchForURL(ctx, rawURL)
	if err != nil {
		return types.Cookie{}, false, err
	}

	var best types.Cookie
	found := false
	for _, c := range candidates {
		if c.Name != name {
			continue
		}
		// Strictly longer paths win; equal lengths keep the earlier record.
		if !found || len(c.Path) > len(best.Path) {
			best = c
			found = true
		}
	}
	return best, found, nil
}

func urlAndName(details jsonv.Object) (string, string, error) {
	rawURL, ok := jsonv.String(details, "url")
	if !ok || rawURL == "" {
		return "", "", types.InvalidArgument("missing url")
	}
	name, ok := jsonv.String(details, "name")
	if !ok {
		return "", "", types.InvalidArgument("missing name")
	}
	return rawURL, name, nil
}
