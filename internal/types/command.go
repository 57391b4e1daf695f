package types

// Command is an active (mutable) command entry in the accelerator registry.
// Name is unique within its extension and stable for the command's lifetime.
type Command struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	// Shortcut is the portable key-description syntax as supplied by the
	// extension; Accelerator is the translated platform syntax, empty when
	// the command holds no binding.
	Shortcut    string `json:"shortcut"`
	Accelerator string `json:"accelerator"`
}

// Wire returns the JSON projection sent back to extension scripts
func (c *Command) Wire() map[string]any {
	return map[string]any{
		"name":        c.Name,
		"description": c.Description,
		"shortcut":    c.Shortcut,
	}
}
