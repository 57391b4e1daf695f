package downloads

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/webfuse/extbridge/internal/infrastructure/logging"
	"github.com/webfuse/extbridge/internal/types"
)

// Config defines manager behavior
type Config struct {
	// Dir is the downloads root; every destination resolves under it.
	Dir string
	// Client is the HTTP client used to fetch; a default is built when nil.
	Client *resty.Client
	// Concurrency caps simultaneous fetches; further downloads queue
	// until a slot frees. Zero or negative means 4.
	Concurrency int
}

// Manager owns download records and their lifecycle. IDs are assigned
// monotonically and never reused for the process lifetime.
type Manager struct {
	mu      sync.RWMutex
	records map[int32]*types.Download
	order   []int32
	cancels map[int32]context.CancelFunc

	nextID atomic.Int32
	dir    string
	client *resty.Client
	slots  chan struct{}
	logger *logging.Logger

	sigMu     sync.RWMutex
	onCreated []func(types.Download)
	onChanged []func(types.Download)
	onErased  []func(id int32)
}

// NewManager creates a download manager rooted at cfg.Dir
func NewManager(cfg Config, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	client := cfg.Client
	if client == nil {
		client = resty.New().
			SetRetryCount(2).
			SetTimeout(5 * time.Minute)
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Manager{
		records: make(map[int32]*types.Download),
		cancels: make(map[int32]context.CancelFunc),
		dir:     cfg.Dir,
		client:  client,
		slots:   make(chan struct{}, concurrency),
		logger:  logger,
	}
}

// Dir returns the downloads root directory
func (m *Manager) Dir() string {
	return m.dir
}

// OnCreated registers a created-signal observer
func (m *Manager) OnCreated(fn func(types.Download)) {
	m.sigMu.Lock()
	defer m.sigMu.Unlock()
	m.onCreated = append(m.onCreated, fn)
}

// OnChanged registers a changed-signal observer
func (m *Manager) OnChanged(fn func(types.Download)) {
	m.sigMu.Lock()
	defer m.sigMu.Unlock()
	m.onChanged = append(m.onChanged, fn)
}

// OnErased registers an erased-signal observer
func (m *Manager) OnErased(fn func(id int32)) {
	m.sigMu.Lock()
	defer m.sigMu.Unlock()
	m.onErased = append(m.onErased, fn)
}

// All returns a snapshot of every record, in creation order
func (m *Manager) All() []types.Download {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Download, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.records[id])
	}
	return out
}

// Get returns a snapshot of one record
func (m *Manager) Get(id int32) (types.Download, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.records[id]
	if !ok {
		return types.Download{}, false
	}
	return *d, true
}

// Start creates a record and begins fetching asynchronously. The record
// (with its assigned id) is returned immediately.
func (m *Manager) Start(ctx context.Context, opts types.DownloadOptions) (types.Download, error) {
	dest, err := m.resolveDestination(opts.Filename, opts.URL, opts.ConflictAction)
	if err != nil {
		return types.Download{}, err
	}

	d := &types.Download{
		ID:            m.nextID.Add(1),
		URL:           opts.URL,
		Filename:      dest,
		State:         types.DownloadInProgress,
		StartTime:     time.Now(),
		ExtensionGUID: opts.ExtensionGUID,
		Danger:        dangerous(dest),
	}

	fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	m.mu.Lock()
	m.records[d.ID] = d
	m.order = append(m.order, d.ID)
	m.cancels[d.ID] = cancel
	snapshot := *d
	m.mu.Unlock()

	m.emitCreated(snapshot)
	go m.fetch(fetchCtx, d.ID)

	return snapshot, nil
}

// Insert restores a record without fetching, assigning a fresh id.
// Used to seed history and by tests.
func (m *Manager) Insert(d types.Download) types.Download {
	d.ID = m.nextID.Add(1)
	if d.StartTime.IsZero() {
		d.StartTime = time.Now()
	}

	m.mu.Lock()
	stored := d
	m.records[d.ID] = &stored
	m.order = append(m.order, d.ID)
	m.mu.Unlock()

	m.emitCreated(d)
	return d
}

// Cancel interrupts an active download. Unknown or finished ids no-op.
func (m *Manager) Cancel(id int32) {
	m.mu.Lock()
	cancel := m.cancels[id]
	d, ok := m.records[id]
	transitioned := ok && d.State == types.DownloadInProgress
	var snapshot types.Download
	if transitioned {
		d.State = types.DownloadInterrupted
		d.Error = "USER_CANCELED"
		now := time.Now()
		d.EndTime = now
		d.HasEndTime = true
		d.Paused = false
		snapshot = *d
	}
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if transitioned {
		m.emitChanged(snapshot)
	}
}

// Pause suspends an in-progress download
func (m *Manager) Pause(id int32) error {
	return m.setPaused(id, true)
}

// Resume continues a paused download
func (m *Manager) Resume(id int32) error {
	return m.setPaused(id, false)
}

func (m *Manager) setPaused(id int32, paused bool) error {
	m.mu.Lock()
	d, ok := m.records[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("download %d not found", id)
	}
	if d.State != types.DownloadInProgress {
		m.mu.Unlock()
		return fmt.Errorf("download %d is not active", id)
	}
	d.Paused = paused
	snapshot := *d
	m.mu.Unlock()

	m.emitChanged(snapshot)
	return nil
}

// OpenFile opens a completed download with the platform handler.
// Without a desktop session this logs the intent.
func (m *Manager) OpenFile(id int32) error {
	d, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("download %d not found", id)
	}
	if d.State != types.DownloadComplete || !d.Exists {
		return fmt.Errorf("download %d has no openable file", id)
	}
	m.logger.Info("open download", zap.Int32("id", id), zap.String("file", d.Filename))
	return nil
}

// ShowInFolder reveals a download in the file manager
func (m *Manager) ShowInFolder(id int32) error {
	d, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("download %d not found", id)
	}
	m.logger.Info("show download", zap.Int32("id", id), zap.String("file", d.Filename))
	return nil
}

// RemoveFile deletes the downloaded file from disk, keeping the record
func (m *Manager) RemoveFile(id int32) error {
	m.mu.Lock()
	d, ok := m.records[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("download %d not found", id)
	}
	filename := d.Filename
	m.mu.Unlock()

	if err := os.Remove(filename); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", filename, err)
	}

	m.mu.Lock()
	d, ok = m.records[id]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	d.Exists = false
	snapshot := *d
	m.mu.Unlock()

	m.emitChanged(snapshot)
	return nil
}

// Erase drops a record entirely, cancelling it first if still active
func (m *Manager) Erase(id int32) {
	m.mu.RLock()
	d, ok := m.records[id]
	active := ok && d.State == types.DownloadInProgress
	m.mu.RUnlock()
	if !ok {
		return
	}
	if active {
		m.Cancel(id)
	}

	m.mu.Lock()
	delete(m.records, id)
	delete(m.cancels, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	m.emitErased(id)
}

// fetch drives one download to completion. Fetches beyond the
// concurrency cap queue here until a slot frees.
func (m *Manager) fetch(ctx context.Context, id int32) {
	select {
	case m.slots <- struct{}{}:
		defer func() { <-m.slots }()
	case <-ctx.Done():
		// Cancelled while queued; Cancel already transitioned the record.
		return
	}

	m.mu.RLock()
	d, ok := m.records[id]
	if !ok {
		m.mu.RUnlock()
		return
	}
	rawURL, dest := d.URL, d.Filename
	m.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		m.finish(id, fmt.Errorf("FILE_FAILED: %w", err))
		return
	}

	resp, err := m.client.R().
		SetContext(ctx).
		SetOutput(dest).
		Get(rawURL)
	switch {
	case ctx.Err() != nil:
		// Cancel already transitioned the record.
		return
	case err != nil:
		m.finish(id, fmt.Errorf("NETWORK_FAILED: %w", err))
		return
	case resp.IsError():
		m.finish(id, fmt.Errorf("SERVER_FAILED: status %d", resp.StatusCode()))
		return
	}

	contentType := ""
	if mt, err := mimetype.DetectFile(dest); err == nil {
		contentType = mt.String()
	}
	var size int64
	if fi, err := os.Stat(dest); err == nil {
		size = fi.Size()
	}

	m.mu.Lock()
	d, ok = m.records[id]
	if !ok {
		// Erased while the fetch was in flight.
		m.mu.Unlock()
		return
	}
	d.State = types.DownloadComplete
	d.BytesReceived = size
	d.TotalBytes = size
	d.ContentType = contentType
	d.Exists = true
	d.Paused = false
	now := time.Now()
	d.EndTime = now
	d.HasEndTime = true
	snapshot := *d
	m.mu.Unlock()

	m.emitChanged(snapshot)
}

func (m *Manager) finish(id int32, ferr error) {
	m.mu.Lock()
	d, ok := m.records[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	d.State = types.DownloadInterrupted
	d.Error = ferr.Error()
	d.Paused = false
	now := time.Now()
	d.EndTime = now
	d.HasEndTime = true
	snapshot := *d
	m.mu.Unlock()

	m.logger.Warn("download failed", zap.Int32("id", id), zap.Error(ferr))
	m.emitChanged(snapshot)
}

// resolveDestination turns an optional relative filename into an absolute
// path under the downloads root, applying the conflict action
func (m *Manager) resolveDestination(filename, rawURL string, conflict types.ConflictAction) (string, error) {
	if filename == "" {
		filename = filepath.Base(strings.SplitN(rawURL, "?", 2)[0])
		if filename == "." || filename == "/" || filename == "" {
			filename = "download"
		}
	}

	dest := filepath.Join(m.dir, filepath.Clean(filename))
	rel, err := filepath.Rel(m.dir, dest)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("filename %q escapes the downloads directory", filename)
	}

	if conflict != types.ConflictOverwrite {
		dest = uniquify(dest)
	}
	return dest, nil
}

// uniquify appends " (n)" before the extension until the path is free
func uniquify(dest string) string {
	if _, err := os.Stat(dest); os.IsNotExist(err) {
		return dest
	}
	ext := filepath.Ext(dest)
	stem := strings.TrimSuffix(dest, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// dangerous flags destinations the platform treats as executable content
func dangerous(dest string) bool {
	switch strings.ToLower(filepath.Ext(dest)) {
	case ".exe", ".msi", ".bat", ".cmd", ".sh", ".com", ".scr", ".js", ".jar", ".app":
		return true
	}
	return false
}

func (m *Manager) emitCreated(d types.Download) {
	m.sigMu.RLock()
	defer m.sigMu.RUnlock()
	for _, fn := range m.onCreated {
		fn(d)
	}
}

func (m *Manager) emitChanged(d types.Download) {
	m.sigMu.RLock()
	defer m.sigMu.RUnlock()
	for _, fn := range m.onChanged {
		fn(d)
	}
}

func (m *Manager) emitErased(id int32) {
	m.sigMu.RLock()
	defer m.sigMu.RUnlock()
	for _, fn := range m.onErased {
		fn(id)
	}
}
