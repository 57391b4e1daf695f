package types

import "time"

// SameSite is the cookie same-site enforcement mode, in wire spelling
type SameSite string

const (
	SameSiteNone   SameSite = "no_restriction"
	SameSiteLax    SameSite = "lax"
	SameSiteStrict SameSite = "strict"
)

// Cookie is the bridge's projection of a store-owned cookie record.
// The bridge never caches these across calls.
type Cookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain"`
	Path     string    `json:"path"`
	Secure   bool      `json:"secure"`
	HTTPOnly bool      `json:"http_only"`
	SameSite SameSite  `json:"same_site"`
	Expires  time.Time `json:"expires,omitempty"`
	// HasExpires distinguishes a session cookie from a zero expiry.
	HasExpires bool `json:"has_expires"`
}

// Session reports whether the cookie has no expiry date
func (c *Cookie) Session() bool {
	return !c.HasExpires
}

// Wire returns the JSON projection sent back to extension scripts
func (c *Cookie) Wire() map[string]any {
	w := map[string]any{
		"name":     c.Name,
		"value":    c.Value,
		"domain":   c.Domain,
		"path":     c.Path,
		"secure":   c.Secure,
		"httpOnly": c.HTTPOnly,
		"sameSite": string(c.SameSite),
		"session":  c.Session(),
	}
	if c.HasExpires {
		w["expirationDate"] = float64(c.Expires.UnixMilli()) / 1000.0
	}
	return w
}
