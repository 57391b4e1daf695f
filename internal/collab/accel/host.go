// Package accel implements the application-wide accelerator/action host:
// a table binding global keyboard accelerator strings to named actions.
//
// The table is application-global on purpose: the first binding of an
// accelerator wins, no matter which extension (or the application itself)
// registered it. Callers query Bound before registering.
package accel

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/webfuse/extbridge/internal/infrastructure/logging"
)

// Host owns the accelerator→action binding table
type Host struct {
	mu       sync.RWMutex
	byAccel  map[string]string // accelerator -> action
	byAction map[string]string // action -> accelerator ("" for unbound actions)
	activate func(action string)
	logger   *logging.Logger
}

// NewHost creates an accelerator host
func NewHost(logger *logging.Logger) *Host {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Host{
		byAccel:  make(map[string]string),
		byAction: make(map[string]string),
		logger:   logger,
	}
}

// SetActivationHandler wires action activation back into the application
func (h *Host) SetActivationHandler(fn func(action string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.activate = fn
}

// Bound returns the action an accelerator is currently bound to
func (h *Host) Bound(accelerator string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	action, ok := h.byAccel[accelerator]
	return action, ok
}

// Register binds an accelerator to a named action. An empty accelerator
// registers the action without a binding. Registering an accelerator
// already bound elsewhere fails; the existing binding is untouched.
func (h *Host) Register(action, accelerator string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if accelerator != "" {
		if existing, ok := h.byAccel[accelerator]; ok && existing != action {
			return fmt.Errorf("accelerator %q already bound to %q", accelerator, existing)
		}
		h.byAccel[accelerator] = action
	}
	h.byAction[action] = accelerator
	h.logger.Debug("action registered",
		zap.String("action", action),
		zap.String("accelerator", accelerator),
	)
	return nil
}

// Unregister removes an action and frees its accelerator, if any
func (h *Host) Unregister(action string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if accel, ok := h.byAction[action]; ok {
		if accel != "" && h.byAccel[accel] == action {
			delete(h.byAccel, accel)
		}
		delete(h.byAction, action)
	}
}

// Press simulates a keystroke on a bound accelerator
func (h *Host) Press(accelerator string) bool {
	h.mu.RLock()
	action, ok := h.byAccel[accelerator]
	fn := h.activate
	h.mu.RUnlock()

	if !ok || fn == nil {
		return false
	}
	fn(action)
	return true
}

// Activate invokes a registered action by name
func (h *Host) Activate(action string) bool {
	h.mu.RLock()
	_, ok := h.byAction[action]
	fn := h.activate
	h.mu.RUnlock()

	if !ok || fn == nil {
		return false
	}
	fn(action)
	return true
}
