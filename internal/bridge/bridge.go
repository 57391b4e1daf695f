package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/webfuse/extbridge/internal/infrastructure/logging"
	"github.com/webfuse/extbridge/internal/infrastructure/monitoring"
	"github.com/webfuse/extbridge/internal/shared/jsonv"
	"github.com/webfuse/extbridge/internal/types"
)

// Handler implements one API namespace
type Handler interface {
	Definition() types.Service
	Execute(ctx context.Context, method string, args jsonv.Array, sender *types.Sender) (*types.Result, error)
}

// Bridge routes inbound extension calls to namespace handlers behind the
// permission gate. Handlers run on their own goroutine; the returned task
// completes exactly once.
type Bridge struct {
	handlers map[types.Namespace]Handler
	logger   *logging.Logger
	metrics  *monitoring.Metrics
}

// New creates a bridge
func New(logger *logging.Logger) *Bridge {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Bridge{
		handlers: make(map[types.Namespace]Handler),
		logger:   logger,
	}
}

// WithMetrics attaches a metrics collector
func (b *Bridge) WithMetrics(m *monitoring.Metrics) *Bridge {
	b.metrics = m
	return b
}

// Register adds a namespace handler
func (b *Bridge) Register(h Handler) error {
	def := h.Definition()
	if def.ID == "" {
		return fmt.Errorf("namespace ID cannot be empty")
	}
	b.handlers[def.ID] = h
	return nil
}

// Get retrieves a handler by namespace
func (b *Bridge) Get(ns types.Namespace) (Handler, bool) {
	h, ok := b.handlers[ns]
	return h, ok
}

// List returns all registered namespace definitions
func (b *Bridge) List() []types.Service {
	out := make([]types.Service, 0, len(b.handlers))
	for _, h := range b.handlers {
		out = append(out, h.Definition())
	}
	return out
}

// Dispatch answers an inbound call asynchronously. Method is the wire form
// "namespace.method". The context must be the calling extension's lifetime
// context; cancellation completes the task with a Cancelled error.
func (b *Bridge) Dispatch(ctx context.Context, sender *types.Sender, method string, args jsonv.Array) *Task {
	task := newTask()
	start := time.Now()

	nsName, _, ok := strings.Cut(method, ".")
	if !ok || sender == nil || sender.Extension == nil {
		task.Complete(types.Fail(types.NotImplemented(method)))
		return task
	}
	ns := types.Namespace(nsName)

	handler, found := b.handlers[ns]
	if !found {
		b.recordCall(ns, method, "not_implemented", start)
		task.Complete(types.Fail(types.NotImplemented(method)))
		return task
	}

	// Capability gate runs before any handler code, synchronously.
	def := handler.Definition()
	if def.Permission != "" && !sender.Extension.HasPermission(def.Permission) {
		b.metrics.RecordDenial(string(ns))
		b.recordCall(ns, method, "permission_denied", start)
		b.logger.Debug("permission denied",
			zap.String("extension", sender.Extension.GUID),
			zap.String("method", method),
		)
		task.Complete(types.Fail(types.PermissionDenied(ns)))
		return task
	}

	go func() {
		result, err := handler.Execute(ctx, method, args, sender)
		if err != nil {
			result = types.Fail(asCallError(ctx, err))
		} else if result == nil {
			result = types.Fail(types.NotImplemented(method))
		}

		status := "ok"
		if result.Error != nil {
			status = string(result.Error.Kind)
		}
		b.recordCall(ns, method, status, start)
		task.Complete(result)
	}()

	// Cancellation races handler completion; first resolution wins.
	go func() {
		select {
		case <-ctx.Done():
			task.Complete(types.Fail(types.Cancelled()))
		case <-task.Done():
		}
	}()

	return task
}

func (b *Bridge) recordCall(ns types.Namespace, method, status string, start time.Time) {
	b.metrics.RecordCall(string(ns), method, status, time.Since(start))
}

// asCallError normalizes handler errors into the typed taxonomy,
// preserving collaborator causes verbatim
func asCallError(ctx context.Context, err error) *types.CallError {
	var ce *types.CallError
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return types.Cancelled()
	}
	return types.CollaboratorError(err)
}
