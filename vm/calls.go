package vm

import (
	"fmt"

	"github.com/loomphp/loom/opcodes"
	"github.com/loomphp/loom/registry"
	"github.com/loomphp/loom/values"
)

// execDoCall consumes the frame's PendingCall (built up by INIT_FCALL/
// INIT_METHOD_CALL + SEND_*) and dispatches to either a built-in, a
// user-declared function/method, or a closure invocation, enforcing the
// engine's call-depth guard (component H + Non-goal: no ABI compat, so
// the guard is a simple counter rather than a native stack-probe).
func (ec *ExecutionContext) execDoCall(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	pending := frame.Pending
	frame.Pending = nil
	if pending == nil {
		return 0, false, newEngineError("call", "DO_FCALL with no pending call")
	}

	if pending.Method != nil {
		args := pending.Args
		if pending.MagicCallName != "" {
			argArr := values.NewArrayData()
			for _, a := range args {
				argArr.Append(a)
			}
			args = []*values.Value{values.NewString(pending.MagicCallName), values.NewArrayFrom(argArr)}
		}
		result, err := ec.invokeMethod(pending.This, pending.ClassScope, pending.Method, args)
		if err != nil {
			return 0, false, err
		}
		frame.push(result)
		return frame.IP + 1, false, nil
	}

	if pending.Closure != nil {
		result, err := ec.invokeClosure(pending.Closure, pending.Args)
		if err != nil {
			return 0, false, err
		}
		frame.push(result)
		return frame.IP + 1, false, nil
	}

	if pending.Func != nil {
		result, err := ec.invokeFunction(pending.Func, pending.Args, nil, "")
		if err != nil {
			return 0, false, err
		}
		frame.push(result)
		return frame.IP + 1, false, nil
	}

	fn, ok := ec.Registry.GetFunction(pending.FuncName)
	if !ok {
		return 0, false, &ThrownError{Value: newThrowable("Error", fmt.Sprintf("Call to undefined function %s()", pending.FuncName))}
	}
	result, err := ec.invokeFunction(fn, pending.Args, nil, "")
	if err != nil {
		return 0, false, err
	}
	frame.push(result)
	return frame.IP + 1, false, nil
}

func (ec *ExecutionContext) invokeFunction(fn *registry.Function, args []*values.Value, this *values.Value, classScope string) (*values.Value, error) {
	if fn.Builtin != nil {
		return callBuiltin(ec, fn.Builtin, args, this)
	}
	if ec.Calls.Depth() >= ec.MaxCallDepth {
		return nil, ErrMaxCallDepth
	}
	if fn.UserChunk == nil {
		return nil, newEngineError("call", "function has neither builtin nor chunk body")
	}
	frame := newCallFrame(fn.Name, fn.UserChunk, fn.UserEntry)
	frame.Fn = fn
	frame.This = this
	frame.ClassScope = classScope
	frame.CalledScope = classScope
	if err := bindArguments(ec, frame, fn.Params, args, fn.UserChunk.StrictTypes, fn.Name); err != nil {
		return nil, err
	}
	if fn.IsGenerator {
		return newGeneratorObject(frame), nil
	}
	return ec.Run(frame)
}

func (ec *ExecutionContext) invokeMethod(this *values.Value, classScope string, m *registry.Method, args []*values.Value) (*values.Value, error) {
	if m.Builtin != nil {
		return callBuiltin(ec, m.Builtin, args, this)
	}
	if ec.Calls.Depth() >= ec.MaxCallDepth {
		return nil, ErrMaxCallDepth
	}
	if m.UserChunk == nil {
		return nil, newEngineError("call", "method has neither builtin nor chunk body")
	}
	frame := newCallFrame(m.DeclaringClass+"::"+m.Name, m.UserChunk, m.UserEntry)
	frame.Fn = &m.Function
	frame.This = this
	frame.ClassScope = m.DeclaringClass
	frame.CalledScope = classScope
	label := m.DeclaringClass + "::" + m.Name
	if err := bindArguments(ec, frame, m.Params, args, m.UserChunk.StrictTypes, label); err != nil {
		return nil, err
	}
	if m.IsGenerator {
		return newGeneratorObject(frame), nil
	}
	return ec.Run(frame)
}

// callBuiltin invokes a built-in, recovering a panic raised by
// CallContext.Throw (the built-in's way of signaling a script-level
// exception without threading an error return through every stdlib
// function) back into the same *ThrownError the dispatcher's THROW
// opcode path produces.
func callBuiltin(ec *ExecutionContext, fn registry.BuiltinFunc, args []*values.Value, this *values.Value) (result *values.Value, err error) {
	bc := &builtinCallContext{ec: ec, args: args, this: this}
	defer func() {
		if r := recover(); r != nil {
			if te, ok := r.(*ThrownError); ok {
				err = te
				return
			}
			panic(r)
		}
	}()
	return fn(bc, args)
}

// builtinCallContext adapts an ExecutionContext to registry.CallContext
// for built-in function invocation.
type builtinCallContext struct {
	ec   *ExecutionContext
	args []*values.Value
	this *values.Value
}

func (b *builtinCallContext) Arg(i int) *values.Value {
	if i < 0 || i >= len(b.args) {
		return values.NewNull()
	}
	return b.args[i]
}

func (b *builtinCallContext) ArgCount() int { return len(b.args) }

func (b *builtinCallContext) This() *values.Value { return b.this }

func (b *builtinCallContext) Throw(classAndMessage ...string) {
	class, msg := "Exception", ""
	if len(classAndMessage) > 0 {
		class = classAndMessage[0]
	}
	if len(classAndMessage) > 1 {
		msg = classAndMessage[1]
	}
	panic(&ThrownError{Value: newThrowable(class, msg)})
}

func (b *builtinCallContext) Echo(s string) { b.ec.Host.Echo(s) }
