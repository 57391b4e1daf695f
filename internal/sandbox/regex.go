package sandbox

import (
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// Config defines evaluator limits
type Config struct {
	Timeout time.Duration // per-test execution timeout
}

// DefaultConfig returns evaluator defaults
func DefaultConfig() Config {
	return Config{Timeout: 250 * time.Millisecond}
}

// Evaluator tests ECMA-262 regular expressions inside a stripped-down JS
// runtime. The VM exposes nothing beyond RegExp construction and string
// testing; extensions author their patterns against this dialect.
type Evaluator struct {
	vm     *goja.Runtime
	config Config
	mu     sync.Mutex
}

// NewEvaluator creates a sandboxed regex evaluator
func NewEvaluator(config Config) (*Evaluator, error) {
	e := &Evaluator{
		vm:     goja.New(),
		config: config,
	}
	if err := e.setupGlobals(); err != nil {
		return nil, err
	}
	return e, nil
}

// Test reports whether pattern matches subject. Pattern compile failures
// and runaway patterns surface as errors.
func (e *Evaluator) Test(pattern, subject string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.vm.Set("__pattern", pattern); err != nil {
		return false, err
	}
	if err := e.vm.Set("__subject", subject); err != nil {
		return false, err
	}

	timer := time.AfterFunc(e.config.Timeout, func() {
		e.vm.Interrupt("regex evaluation timeout exceeded")
	})
	defer timer.Stop()

	val, err := e.vm.RunString("new RegExp(__pattern).test(__subject)")
	if err != nil {
		e.vm.ClearInterrupt()
		return false, fmt.Errorf("regex evaluation failed: %w", err)
	}
	return val.ToBoolean(), nil
}

// setupGlobals removes every ambient capability from the runtime
func (e *Evaluator) setupGlobals() error {
	for _, name := range []string{
		"require", "process", "module", "exports",
		"eval", "Function", "setTimeout", "setInterval",
	} {
		if err := e.vm.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}
	e.vm.SetMaxCallStackSize(256)
	return nil
}

// Reset discards the runtime state
func (e *Evaluator) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.vm = goja.New()
	return e.setupGlobals()
}
