package types

// Extension is the identity and declared grant set of a loaded extension
// package. Immutable while the extension is live.
type Extension struct {
	GUID    string `json:"guid"`
	Name    string `json:"name"`
	Version string `json:"version"`

	// Permissions holds the capability strings declared in the manifest.
	Permissions []string `json:"permissions"`
	// HostPermissions holds match patterns granting access to origins.
	HostPermissions []string `json:"host_permissions"`

	// Commands are the manifest-declared command defaults, in manifest order.
	Commands []CommandDefault `json:"commands,omitempty"`
}

// HasPermission reports whether the extension declared a capability
func (e *Extension) HasPermission(capability string) bool {
	for _, p := range e.Permissions {
		if p == capability {
			return true
		}
	}
	return false
}

// CommandDefault is a manifest-declared command, parsed once at load
type CommandDefault struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Shortcut    string `json:"shortcut"`
}

// Sender identifies the origin of an inbound call
type Sender struct {
	Extension *Extension `json:"extension"`
	// ContextID identifies the script context the call came from, when known.
	ContextID string `json:"context_id,omitempty"`
}
