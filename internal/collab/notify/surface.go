// Package notify implements the notification-delivery surface: it sends
// and withdraws desktop notifications by opaque string identifier and
// routes click/button activations back into the application.
//
// Sending under an already-live identifier replaces the displayed
// notification instead of duplicating it, matching the platform surface
// the bridge targets.
package notify

import (
	"sync"

	"go.uber.org/zap"

	"github.com/webfuse/extbridge/internal/infrastructure/logging"
	"github.com/webfuse/extbridge/internal/types"
)

// Surface holds live notifications keyed by opaque identifier
type Surface struct {
	mu      sync.RWMutex
	active  map[string]types.Notification
	handler func(id string, buttonIndex int)
	logger  *logging.Logger
}

// NewSurface creates a notification surface
func NewSurface(logger *logging.Logger) *Surface {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Surface{
		active: make(map[string]types.Notification),
		logger: logger,
	}
}

// SetActionHandler wires activation callbacks back into the application.
// Button index -1 is the default body click.
func (s *Surface) SetActionHandler(fn func(id string, buttonIndex int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = fn
}

// Send displays a notification, replacing any live one with the same id
func (s *Surface) Send(id string, n types.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active[id] = n
	s.logger.Debug("notification sent",
		zap.String("id", id),
		zap.String("title", n.Title),
		zap.Int("buttons", len(n.Buttons)),
	)
	return nil
}

// Withdraw removes a notification. The surface gives no existence
// confirmation, so unknown ids are silently accepted.
func (s *Surface) Withdraw(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, id)
}

// Click simulates a user activation on a live notification
func (s *Surface) Click(id string, buttonIndex int) bool {
	s.mu.RLock()
	_, live := s.active[id]
	fn := s.handler
	s.mu.RUnlock()

	if !live || fn == nil {
		return false
	}
	fn(id, buttonIndex)
	return true
}

// Get returns a live notification by id
func (s *Surface) Get(id string) (types.Notification, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.active[id]
	return n, ok
}

// Live returns the number of displayed notifications
func (s *Surface) Live() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.active)
}
