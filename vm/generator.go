package vm

import (
	"sync"

	"github.com/loomphp/loom/chunk"
	"github.com/loomphp/loom/registry"
	"github.com/loomphp/loom/values"
)

// Generator is the runtime object behind a function declared with `yield`
// in its body (component I). Rather than capturing and replaying an
// explicit continuation, the generator's frame runs on its own goroutine
// and OP_YIELD suspends it by blocking on a pair of unbuffered channels —
// the idiomatic Go analogue of the reference engine's fiber/ucontext
// switch, and a natural fit since the dispatcher is already a plain
// recursive Go call per frame.
type Generator struct {
	mu sync.Mutex

	frame *CallFrame

	yieldCh  chan genSignal
	resumeCh chan genResume

	started  bool
	finished bool
	current  genSignal
	retVal   *values.Value
	runErr   error

	autoKey int64
}

type genSignal struct {
	key, val *values.Value
	done     bool
	err      error
}

type genResume struct {
	sent  *values.Value
	throw *values.Value
}

func newGenerator(frame *CallFrame) *Generator {
	return &Generator{
		frame:    frame,
		yieldCh:  make(chan genSignal),
		resumeCh: make(chan genResume),
	}
}

// newGeneratorObject wraps frame (a call frame already built and
// argument-bound, but not yet run) as a Generator value. The frame's
// body does not execute a single instruction until the caller's first
// current()/valid()/next()/rewind()/send() call.
func newGeneratorObject(frame *CallFrame) *values.Value {
	payload := values.NewObjPayload("Generator")
	payload.Internal = newGenerator(frame)
	return &values.Value{Type: values.Object, Data: payload}
}

// ensureStarted launches the generator body on first access. Until then
// the body has not executed a single instruction, matching PHP's lazy
// generator-start semantics (the function's own top-level side effects
// only happen once the caller asks for the first value).
func (g *Generator) ensureStarted(ec *ExecutionContext) {
	g.mu.Lock()
	if g.started {
		g.mu.Unlock()
		return
	}
	g.started = true
	g.mu.Unlock()

	g.frame.Gen = g
	go func() {
		result, err := ec.Run(g.frame)
		g.yieldCh <- genSignal{done: true, val: result, err: err}
	}()
	g.pull()
}

func (g *Generator) pull() {
	sig := <-g.yieldCh
	g.mu.Lock()
	defer g.mu.Unlock()
	if sig.done {
		g.finished = true
		g.retVal = sig.val
		g.runErr = sig.err
		return
	}
	g.current = sig
}

// advance resumes a suspended generator with a sent value, running it
// until its next yield or completion.
func (g *Generator) advance(ec *ExecutionContext, sent *values.Value) {
	g.ensureStarted(ec)
	g.mu.Lock()
	finished := g.finished
	g.mu.Unlock()
	if finished {
		return
	}
	g.resumeCh <- genResume{sent: sent}
	g.pull()
}

func (g *Generator) throwInto(ec *ExecutionContext, exc *values.Value) {
	g.ensureStarted(ec)
	g.mu.Lock()
	finished := g.finished
	g.mu.Unlock()
	if finished {
		return
	}
	g.resumeCh <- genResume{throw: exc}
	g.pull()
}

func (g *Generator) valid(ec *ExecutionContext) bool {
	g.ensureStarted(ec)
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.finished
}

func (g *Generator) currentValue(ec *ExecutionContext) *values.Value {
	g.ensureStarted(ec)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.finished || g.current.val == nil {
		return values.NewNull()
	}
	return g.current.val
}

func (g *Generator) currentKey(ec *ExecutionContext) *values.Value {
	g.ensureStarted(ec)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.finished || g.current.key == nil {
		return values.NewNull()
	}
	return g.current.key
}

func (g *Generator) returnValue() *values.Value {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.retVal == nil {
		return values.NewNull()
	}
	return g.retVal
}

// doYield is the suspension point OP_YIELD/OP_YIELD_FROM call from inside
// the generator's own goroutine: it hands a value upstream and blocks
// until the consumer resumes it (possibly by throwing into it, per
// Generator::throw semantics).
func (ec *ExecutionContext) doYield(frame *CallFrame, val *values.Value) (*values.Value, error) {
	gen := frame.Gen
	if gen == nil {
		return nil, newEngineError("yield", "yield used outside a generator body")
	}
	key := values.NewInt(gen.autoKey)
	gen.autoKey++
	gen.yieldCh <- genSignal{key: key, val: val}
	resume := <-gen.resumeCh
	if resume.throw != nil {
		return nil, &ThrownError{Value: resume.throw}
	}
	if resume.sent == nil {
		return values.NewNull(), nil
	}
	return resume.sent, nil
}

// doYieldFrom forwards every element of an array, or every yielded value
// of another Generator, as its own yields, returning the delegate's final
// return value for `$x = yield from $gen;` per the GENERATOR_RETURN
// invariant.
func (ec *ExecutionContext) doYieldFrom(frame *CallFrame, src *values.Value) (*values.Value, error) {
	if src.IsArray() {
		arr := src.AsArray()
		for _, v := range arr.Values() {
			if _, err := ec.doYield(frame, v); err != nil {
				return nil, err
			}
		}
		return values.NewNull(), nil
	}
	if src.IsObject() {
		if payload, ok := src.Data.(*values.ObjPayload); ok {
			if sub, ok := payload.Internal.(*Generator); ok {
				for sub.valid(ec) {
					if _, err := ec.doYield(frame, sub.currentValue(ec)); err != nil {
						return nil, err
					}
					sub.advance(ec, nil)
				}
				return sub.returnValue(), nil
			}
		}
	}
	return values.NewNull(), nil
}

// registerGeneratorClass installs the built-in Generator class (current/
// key/next/valid/rewind/send/getReturn) once per Registry. It is safe to
// call on every ExecutionContext construction since a Registry may be
// shared across requests.
func registerGeneratorClass(reg *registry.Registry) {
	if _, ok := reg.GetClass("Generator"); ok {
		return
	}
	method := func(name string, fn registry.BuiltinFunc) *registry.Method {
		return &registry.Method{
			Function:       registry.Function{Name: name, Builtin: fn},
			Visibility:     chunk.Public,
			DeclaringClass: "Generator",
		}
	}
	genOf := func(ctx registry.CallContext) (*Generator, *builtinCallContext, bool) {
		bc, ok := ctx.(*builtinCallContext)
		if !ok || bc.this == nil || !bc.this.IsObject() {
			return nil, nil, false
		}
		payload, ok := bc.this.Data.(*values.ObjPayload)
		if !ok {
			return nil, nil, false
		}
		g, ok := payload.Internal.(*Generator)
		return g, bc, ok
	}
	reg.RegisterClass(&registry.Class{
		Name: "Generator",
		Methods: map[string]*registry.Method{
			"current": method("current", func(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
				g, bc, ok := genOf(ctx)
				if !ok {
					return values.NewNull(), nil
				}
				return g.currentValue(bc.ec), nil
			}),
			"key": method("key", func(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
				g, bc, ok := genOf(ctx)
				if !ok {
					return values.NewNull(), nil
				}
				return g.currentKey(bc.ec), nil
			}),
			"next": method("next", func(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
				g, bc, ok := genOf(ctx)
				if ok {
					g.advance(bc.ec, nil)
				}
				return values.NewNull(), nil
			}),
			"valid": method("valid", func(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
				g, bc, ok := genOf(ctx)
				if !ok {
					return values.NewBool(false), nil
				}
				return values.NewBool(g.valid(bc.ec)), nil
			}),
			"rewind": method("rewind", func(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
				g, bc, ok := genOf(ctx)
				if ok {
					g.ensureStarted(bc.ec)
				}
				return values.NewNull(), nil
			}),
			"send": method("send", func(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
				g, bc, ok := genOf(ctx)
				if !ok {
					return values.NewNull(), nil
				}
				var sent *values.Value
				if len(args) > 0 {
					sent = args[0]
				}
				g.advance(bc.ec, sent)
				return g.currentValue(bc.ec), nil
			}),
			"getreturn": method("getReturn", func(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
				g, _, ok := genOf(ctx)
				if !ok {
					return values.NewNull(), nil
				}
				return g.returnValue(), nil
			}),
		},
		Properties:  map[string]*chunk.PropertyDecl{},
		Constants:   map[string]*chunk.ConstantDecl{},
		StaticProps: map[string]*values.Value{},
	})
}
