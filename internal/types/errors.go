package types

import "fmt"

// ErrorKind classifies a call failure
type ErrorKind string

const (
	ErrInvalidArgument  ErrorKind = "invalid_argument"
	ErrPermissionDenied ErrorKind = "permission_denied"
	ErrNotImplemented   ErrorKind = "not_implemented"
	ErrCancelled        ErrorKind = "cancelled"
	ErrCollaborator     ErrorKind = "collaborator"
)

// CallError is the typed error returned to extension scripts
type CallError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	cause   error
}

func (e *CallError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying collaborator error, if any
func (e *CallError) Unwrap() error {
	return e.cause
}

// InvalidArgument reports a malformed or missing argument
func InvalidArgument(format string, args ...any) *CallError {
	return &CallError{Kind: ErrInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// PermissionDenied reports a missing capability for a namespace
func PermissionDenied(namespace Namespace) *CallError {
	return &CallError{Kind: ErrPermissionDenied, Message: fmt.Sprintf("missing %q permission", namespace)}
}

// HostPermissionDenied reports a missing host permission for a target
func HostPermissionDenied(target string) *CallError {
	return &CallError{Kind: ErrPermissionDenied, Message: fmt.Sprintf("no host permission for %q", target)}
}

// NotImplemented reports an unrecognized namespace or method
func NotImplemented(method string) *CallError {
	return &CallError{Kind: ErrNotImplemented, Message: fmt.Sprintf("no such method %q", method)}
}

// Cancelled reports a call abandoned because its extension unloaded
func Cancelled() *CallError {
	return &CallError{Kind: ErrCancelled, Message: "extension unloaded before completion"}
}

// CollaboratorError propagates a store or filesystem failure verbatim,
// preserving the underlying cause for errors.Is/As
func CollaboratorError(err error) *CallError {
	return &CallError{Kind: ErrCollaborator, Message: err.Error(), cause: err}
}
