package vm

import (
	"github.com/loomphp/loom/chunk"
	"github.com/loomphp/loom/registry"
	"github.com/loomphp/loom/values"
)

// TryEntry is one row of a frame's try-chain: the instruction range it
// guards, where its catch block(s) begin, and where its finally block
// (if any) begins. The dispatcher scans a frame's try-chain innermost
// (highest StartIP <= current ip) first when an exception is thrown.
type TryEntry struct {
	StartIP   int
	EndIP     int
	CatchIP   int // -1 if this try has no catch (finally-only)
	FinallyIP int // -1 if this try has no finally
	// CatchTypes lists the class names this entry's catch block accepts,
	// parallel semantics to a multi-catch `catch (A|B $e)`.
	CatchTypes []string
}

// PendingCall accumulates INIT_FCALL..SEND_*..DO_FCALL state: the callee
// being resolved and the arguments queued so far, consumed by the
// matching DO_* opcode.
type PendingCall struct {
	FuncName   string
	Func       *registry.Function
	Method     *registry.Method
	Closure    *values.Closure
	This       *values.Value
	ClassScope string
	Args       []*values.Value
	ArgRefs    []values.Handle
	HasRefs    []bool
	// MagicCallName is set when Method resolved to the class's __call
	// fallback rather than the originally requested name: execDoCall
	// repackages Args into __call's (string $name, array $arguments)
	// signature instead of binding them directly.
	MagicCallName string
}

// CallFrame is one activation record: its own operand stack, local
// variable slots, try-chain, and late-static-binding scope.
type CallFrame struct {
	FuncName string
	Chunk    *chunk.Chunk
	IP       int

	// Fn is the registered function/method this frame is executing, when
	// known — nil for the top-level {main} frame. BIND_STATIC uses it to
	// find the shared StaticHandles table for `static $x` locals.
	Fn *registry.Function

	Locals map[string]values.Handle
	Stack  []*values.Value

	This        *values.Value
	ClassScope  string // self:: resolves here
	CalledScope string // static:: resolves here (late static binding)

	TryChain []TryEntry

	// PendingException is non-nil while a THROW is propagating through
	// this frame's finally blocks (the "exception pending" marker named
	// in spec §4.J): RETHROW_IF_PENDING re-raises it once finally exits
	// normally, instead of swallowing it.
	PendingException *values.Value

	Pending *PendingCall

	StaticVars map[string]*values.Value

	// ReturnValue is set by OP_RETURN/OP_GENERATOR_RETURN before the
	// frame unwinds.
	ReturnValue *values.Value

	// Gen is non-nil when this frame is a generator body: OP_YIELD/
	// OP_YIELD_FROM suspend by blocking on Gen's channels rather than
	// unwinding the Go call stack (see generator.go).
	Gen *Generator

	// Iterators backs FE_RESET/FE_FETCH/FE_FREE; entries are pushed on
	// FE_RESET and addressed by stack-discipline index so nested foreach
	// loops nest correctly without an explicit iterator-id operand.
	Iterators []*feIterator
}

func newCallFrame(name string, c *chunk.Chunk, entry int) *CallFrame {
	return &CallFrame{
		FuncName: name,
		Chunk:    c,
		IP:       entry,
		Locals:   make(map[string]values.Handle),
	}
}

func (f *CallFrame) push(v *values.Value) {
	f.Stack = append(f.Stack, v)
}

func (f *CallFrame) pop() (*values.Value, error) {
	n := len(f.Stack)
	if n == 0 {
		return nil, ErrStackUnderflow
	}
	v := f.Stack[n-1]
	f.Stack = f.Stack[:n-1]
	return v, nil
}

func (f *CallFrame) peek() (*values.Value, error) {
	n := len(f.Stack)
	if n == 0 {
		return nil, ErrStackUnderflow
	}
	return f.Stack[n-1], nil
}
