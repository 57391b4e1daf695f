package bridge

import (
	"context"
	"sync"

	"github.com/webfuse/extbridge/internal/types"
)

// Task is the single-result future answering one dispatched call.
// It completes exactly once; later completions are dropped.
type Task struct {
	done   chan struct{}
	once   sync.Once
	result *types.Result
}

func newTask() *Task {
	return &Task{done: make(chan struct{})}
}

// Complete resolves the task. The first call wins.
func (t *Task) Complete(result *types.Result) {
	t.once.Do(func() {
		t.result = result
		close(t.done)
	})
}

// Done returns a channel closed when the task has a result
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Result waits for the task to complete or the waiter's context to end
func (t *Task) Result(ctx context.Context) (*types.Result, error) {
	select {
	case <-t.done:
		return t.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
