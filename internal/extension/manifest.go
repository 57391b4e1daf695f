package extension

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/webfuse/extbridge/internal/permissions"
	"github.com/webfuse/extbridge/internal/types"
)

// Manifest is the declarative description shipped inside an extension
// package. Parsed once at load; the resulting Extension is immutable.
type Manifest struct {
	Name            string                     `json:"name"`
	Version         string                     `json:"version"`
	Permissions     []string                   `json:"permissions"`
	HostPermissions []string                   `json:"host_permissions"`
	Commands        map[string]ManifestCommand `json:"commands"`
}

// ManifestCommand declares a named command with an optional suggested key
type ManifestCommand struct {
	Description  string `json:"description"`
	SuggestedKey struct {
		Default string `json:"default"`
	} `json:"suggested_key"`
}

// ParseManifest decodes and validates a manifest JSON document
func ParseManifest(raw []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("manifest parse failed: %w", err)
	}
	if m.Name == "" {
		return nil, fmt.Errorf("manifest missing name")
	}
	return &m, nil
}

// build converts the manifest into an immutable extension identity.
// Host match patterns listed under "permissions" (the older manifest
// layout) are split out from capability strings.
func (m *Manifest) build(guid string) *types.Extension {
	ext := &types.Extension{
		GUID:    guid,
		Name:    m.Name,
		Version: m.Version,
	}

	for _, p := range m.Permissions {
		if isHostPattern(p) {
			ext.HostPermissions = append(ext.HostPermissions, p)
		} else {
			ext.Permissions = append(ext.Permissions, p)
		}
	}
	ext.HostPermissions = append(ext.HostPermissions, m.HostPermissions...)

	// Manifest commands decode as a map; order defaults by name so two
	// loads of the same package agree.
	names := make([]string, 0, len(m.Commands))
	for name := range m.Commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cmd := m.Commands[name]
		ext.Commands = append(ext.Commands, types.CommandDefault{
			Name:        name,
			Description: cmd.Description,
			Shortcut:    cmd.SuggestedKey.Default,
		})
	}

	return ext
}

func isHostPattern(p string) bool {
	return p == permissions.AllURLs || strings.Contains(p, "://")
}
