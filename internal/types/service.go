package types

// Namespace identifies an API namespace exposed to extension scripts
type Namespace string

const (
	NamespaceCommands      Namespace = "commands"
	NamespaceCookies       Namespace = "cookies"
	NamespaceDownloads     Namespace = "downloads"
	NamespaceNotifications Namespace = "notifications"
)

// Service describes a namespace's dispatch surface
type Service struct {
	ID          Namespace `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	// Permission is the capability an extension must declare before any
	// method in this namespace dispatches. Empty means no gate.
	Permission string   `json:"permission,omitempty"`
	Methods    []Method `json:"methods"`
	Events     []string `json:"events,omitempty"`
}

// Method describes a single dispatchable method
type Method struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
	Returns     string      `json:"returns"`
}

// Parameter describes a positional method argument
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Result represents the outcome of a dispatched call
type Result struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *CallError `json:"error,omitempty"`
}

// OK builds a successful result carrying a JSON-encodable payload
func OK(data any) *Result {
	return &Result{Success: true, Data: data}
}

// Fail builds a failed result from a typed call error
func Fail(err *CallError) *Result {
	return &Result{Success: false, Error: err}
}
