package extension

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/webfuse/extbridge/internal/infrastructure/logging"
	"github.com/webfuse/extbridge/internal/infrastructure/monitoring"
	"github.com/webfuse/extbridge/internal/types"
)

// Hook observes extension load and unload
type Hook func(ext *types.Extension)

// Manager owns the set of loaded extensions. Each extension carries a
// lifetime context; unloading cancels it, which abandons every call the
// extension still has in flight.
type Manager struct {
	mu       sync.RWMutex
	loaded   map[string]*entry
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	onLoad   []Hook
	onUnload []Hook
}

type entry struct {
	ext    *types.Extension
	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates an extension manager
func NewManager(logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		loaded: make(map[string]*entry),
		logger: logger,
	}
}

// WithMetrics attaches a metrics collector
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// OnLoad registers a hook fired after an extension loads.
// Hooks must be registered before the first Load.
func (m *Manager) OnLoad(h Hook) {
	m.onLoad = append(m.onLoad, h)
}

// OnUnload registers a hook fired before an extension's context cancels
func (m *Manager) OnUnload(h Hook) {
	m.onUnload = append(m.onUnload, h)
}

// Load parses a manifest and brings the extension live under a fresh GUID
func (m *Manager) Load(manifest []byte) (*types.Extension, error) {
	parsed, err := ParseManifest(manifest)
	if err != nil {
		return nil, err
	}
	return m.LoadManifest(parsed, uuid.NewString())
}

// LoadManifest brings a parsed manifest live under an explicit GUID
func (m *Manager) LoadManifest(parsed *Manifest, guid string) (*types.Extension, error) {
	m.mu.Lock()
	if _, exists := m.loaded[guid]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("extension %s already loaded", guid)
	}

	ext := parsed.build(guid)
	ctx, cancel := context.WithCancel(context.Background())
	m.loaded[guid] = &entry{ext: ext, ctx: ctx, cancel: cancel}
	count := len(m.loaded)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.ExtensionsLoaded.Set(float64(count))
	}
	m.logger.Info("extension loaded",
		zap.String("guid", guid),
		zap.String("name", ext.Name),
		zap.Strings("permissions", ext.Permissions),
	)

	for _, h := range m.onLoad {
		h(ext)
	}
	return ext, nil
}

// Unload tears an extension down: hooks run first (accelerator teardown),
// then the lifetime context cancels, abandoning outstanding tasks.
func (m *Manager) Unload(guid string) error {
	m.mu.Lock()
	e, ok := m.loaded[guid]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("extension %s not loaded", guid)
	}
	delete(m.loaded, guid)
	count := len(m.loaded)
	m.mu.Unlock()

	for _, h := range m.onUnload {
		h(e.ext)
	}
	e.cancel()

	if m.metrics != nil {
		m.metrics.ExtensionsLoaded.Set(float64(count))
	}
	m.logger.Info("extension unloaded", zap.String("guid", guid))
	return nil
}

// Get retrieves a loaded extension
func (m *Manager) Get(guid string) (*types.Extension, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.loaded[guid]
	if !ok {
		return nil, false
	}
	return e.ext, true
}

// Context returns an extension's lifetime context. A cancelled background
// context is returned for unknown GUIDs so callers fail fast.
func (m *Manager) Context(guid string) context.Context {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.loaded[guid]; ok {
		return e.ctx
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// All returns every loaded extension
func (m *Manager) All() []*types.Extension {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*types.Extension, 0, len(m.loaded))
	for _, e := range m.loaded {
		out = append(out, e.ext)
	}
	return out
}
