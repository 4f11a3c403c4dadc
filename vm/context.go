package vm

import (
	"context"
	"time"

	"github.com/loomphp/loom/registry"
	"github.com/loomphp/loom/symtab"
	"github.com/loomphp/loom/values"
)

// RequestHost is the set of per-request services (output buffering,
// error reporting, superglobals, resource table) the dispatcher needs
// but does not own — they live in the runtime package (components M, N,
// O, P). Declaring the interface here, rather than importing runtime
// directly, keeps vm free of a dependency on runtime's extension/
// exception machinery, which itself depends on vm; the concrete *runtime.RequestContext is wired in by whatever
// bootstraps a request (cmd/loom, pkg/fpm).
type RequestHost interface {
	Echo(s string)
	TriggerError(level string, message string)
	Superglobal(name string) *values.Value
	SetSuperglobal(name string, v *values.Value)
	StoreResource(typeName string, v interface{}) int
	FetchResource(typeName string, id int) (interface{}, bool)
	// Silence toggles the `@`-suppressed region BEGIN_SILENCE/END_SILENCE
	// delimit (spec §4.J): while on, TriggerError drops every level below
	// Error instead of reporting it.
	Silence(on bool)
}

// ExecutionContext is the request-scoped state the dispatcher reads and
// mutates while running a chunk: the value heap, call stack, registry,
// interner, and a handle to the host services.
type ExecutionContext struct {
	Heap     *values.Heap
	Calls    *CallStackManager
	Registry *registry.Registry
	Interner *symtab.Interner
	Host     RequestHost

	// globals holds the handles for top-level (script-global) variable
	// slots. Execute installs this map as the {main} frame's Locals, and
	// the `global` keyword binds to its cells, so top-level code and
	// `global $x;` share one cell per name. $GLOBALS reads are built
	// from this map (see GlobalsArray); writes into that array do not
	// reach it.
	globals map[string]values.Handle

	ctx      context.Context
	cancel   context.CancelFunc
	deadline time.Time
	hasLimit bool

	CallDepth    int
	MaxCallDepth int
}

// NewExecutionContext constructs a fresh per-request context. callDepth
// defaults to 256, matching common PHP xdebug.max_nesting_level-style
// guards against runaway recursion exhausting the Go call stack the
// dispatcher itself recurses on for nested DO_FCALL.
func NewExecutionContext(reg *registry.Registry, interner *symtab.Interner, host RequestHost) *ExecutionContext {
	registerGeneratorClass(reg)
	return &ExecutionContext{
		Heap:         values.NewHeap(),
		Calls:        newCallStackManager(),
		Registry:     reg,
		Interner:     interner,
		Host:         host,
		globals:      make(map[string]values.Handle),
		ctx:          context.Background(),
		MaxCallDepth: 256,
	}
}

// SetTimeLimit arms a wall-clock deadline for the request, mirroring
// PHP's max_execution_time. A zero duration disables the limit.
func (ec *ExecutionContext) SetTimeLimit(d time.Duration) {
	if ec.cancel != nil {
		ec.cancel()
	}
	if d <= 0 {
		ec.hasLimit = false
		ec.ctx, ec.cancel = context.Background(), func() {}
		return
	}
	ec.hasLimit = true
	ec.deadline = time.Now().Add(d)
	ec.ctx, ec.cancel = context.WithDeadline(context.Background(), ec.deadline)
}

// CheckTimeout reports ErrTimeout once the armed deadline has passed.
// Run calls this before dispatching every instruction.
func (ec *ExecutionContext) CheckTimeout() error {
	if !ec.hasLimit {
		return nil
	}
	select {
	case <-ec.ctx.Done():
		return ErrTimeout
	default:
		return nil
	}
}

// Cancel releases the context's timer resources at request end.
func (ec *ExecutionContext) Cancel() {
	if ec.cancel != nil {
		ec.cancel()
	}
}

// ensureGlobal returns the handle for top-level variable name, allocating
// a fresh Null cell on first reference.
func (ec *ExecutionContext) ensureGlobal(name string) values.Handle {
	if h, ok := ec.globals[name]; ok {
		return h
	}
	h := ec.Heap.Alloc(values.NewNull())
	ec.globals[name] = h
	return h
}

// GlobalHandle exposes ensureGlobal for $GLOBALS array materialization
// and the `global $x;` binding opcode.
func (ec *ExecutionContext) GlobalHandle(name string) values.Handle {
	return ec.ensureGlobal(name)
}

// BindGlobal aliases a frame-local slot to the top-level variable of the
// same name, implementing `global $x;`.
func (ec *ExecutionContext) BindGlobal(frame *CallFrame, name string) {
	h := ec.ensureGlobal(name)
	ec.Heap.Retain(h)
	frame.Locals[name] = h
}

// GlobalsArray materializes a snapshot array view of all top-level
// variables, backing the `$GLOBALS` superglobal read path. The array is
// rebuilt on every read, so it reflects the current values. It is a
// detached copy: a write such as `$GLOBALS['x'] = ...` changes only that
// array, not the top-level `$x`, since no store opcode writes through
// to the global cells.
func (ec *ExecutionContext) GlobalsArray() *values.Value {
	arr := values.NewArrayData()
	for name, h := range ec.globals {
		zval := ec.Heap.Get(h)
		arr.Set(values.StrKey(name), zval.Value)
	}
	return values.NewArrayFrom(arr)
}
