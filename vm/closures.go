package vm

import (
	"fmt"

	"github.com/loomphp/loom/opcodes"
	"github.com/loomphp/loom/registry"
	"github.com/loomphp/loom/values"
)

// execCreateClosure builds a Closure value bound to the declaring
// function named by Op1 (a synthetic `{closure}` entry the declaring
// chunk registered like any other function) and pushes it. $this and the
// lexical class scope are captured implicitly the way PHP closures
// capture them automatically; `use`-clause variables are captured one at
// a time by the BIND_USE_VAR instructions that follow, which mutate this
// same object still sitting on top of the stack.
func (ec *ExecutionContext) execCreateClosure(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	fnName := ec.symName(frame, inst.Op1)
	fn, ok := ec.Registry.GetFunction(fnName)
	if !ok {
		return 0, false, newEngineError("closure", fmt.Sprintf("closure body %q not found", fnName))
	}
	cl := &values.Closure{Func: fn, Bound: make(map[string]*values.Value), This: frame.This, BoundCls: frame.ClassScope}
	payload := values.NewObjPayload("Closure")
	payload.Internal = cl
	frame.push(&values.Value{Type: values.Object, Data: payload})
	return frame.IP + 1, false, nil
}

// execBindUseVar captures a `use ($x)` variable by value into the
// closure object left on top of the stack by the preceding
// CREATE_CLOSURE. Capture is always by value: by-reference `use (&$x)`
// would need the closure to share the outer frame's Handle rather than a
// copied *Value, which the Closure type does not carry.
func (ec *ExecutionContext) execBindUseVar(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	top, err := frame.peek()
	if err != nil {
		return 0, false, err
	}
	payload, ok := top.Data.(*values.ObjPayload)
	if !ok {
		return 0, false, newEngineError("closure", "BIND_USE_VAR target is not a closure")
	}
	cl, ok := payload.Internal.(*values.Closure)
	if !ok {
		return 0, false, newEngineError("closure", "BIND_USE_VAR target is not a closure")
	}
	name := ec.symName(frame, inst.Op1)
	var v *values.Value
	if h, ok := frame.Locals[name]; ok {
		v = ec.Heap.Get(h).Value
	} else {
		v = values.NewNull()
	}
	cp := *v
	cl.Bound[name] = &cp
	return frame.IP + 1, false, nil
}

// execInitDynamicCall resolves the callee a DO_FCALL will later invoke
// when it is not known at compile time: a Closure value, or a string
// naming a function (the `$fn()`/call_user_func-style dynamic call
// forms).
func (ec *ExecutionContext) execInitDynamicCall(frame *CallFrame) (int, bool, error) {
	callee, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	if callee.IsObject() {
		if payload, ok := callee.Data.(*values.ObjPayload); ok {
			if cl, ok := payload.Internal.(*values.Closure); ok {
				frame.Pending = &PendingCall{Closure: cl}
				return frame.IP + 1, false, nil
			}
		}
		return 0, false, &ThrownError{Value: newThrowable("Error", "Value of type object is not callable")}
	}
	if callee.IsString() {
		name := callee.AsString()
		fn, ok := ec.Registry.GetFunction(name)
		if !ok {
			return 0, false, &ThrownError{Value: newThrowable("Error", fmt.Sprintf("Call to undefined function %s()", name))}
		}
		frame.Pending = &PendingCall{FuncName: name, Func: fn}
		return frame.IP + 1, false, nil
	}
	return 0, false, &ThrownError{Value: newThrowable("TypeError", "Value is not callable")}
}

// invokeClosure runs a Closure's captured function body with its bound
// use-variables pre-seeded into the new frame's locals.
func (ec *ExecutionContext) invokeClosure(cl *values.Closure, args []*values.Value) (*values.Value, error) {
	fn, ok := cl.Func.(*registry.Function)
	if !ok {
		return nil, newEngineError("closure", "closure carries no callable body")
	}
	if fn.Builtin != nil {
		return callBuiltin(ec, fn.Builtin, args, cl.This)
	}
	if ec.Calls.Depth() >= ec.MaxCallDepth {
		return nil, ErrMaxCallDepth
	}
	if fn.UserChunk == nil {
		return nil, newEngineError("closure", "closure has neither builtin nor chunk body")
	}
	frame := newCallFrame("{closure}", fn.UserChunk, fn.UserEntry)
	frame.Fn = fn
	frame.This = cl.This
	frame.ClassScope = cl.BoundCls
	frame.CalledScope = cl.BoundCls
	for name, v := range cl.Bound {
		frame.Locals[name] = ec.Heap.Alloc(v)
	}
	if err := bindArguments(ec, frame, fn.Params, args, fn.UserChunk.StrictTypes, "{closure}"); err != nil {
		return nil, err
	}
	if fn.IsGenerator {
		return newGeneratorObject(frame), nil
	}
	return ec.Run(frame)
}
