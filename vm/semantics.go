package vm

import (
	"github.com/loomphp/loom/opcodes"
	"github.com/loomphp/loom/values"
)

// execJmpExtended implements JMPZ_EX/JMPNZ_EX: unlike JMPZ/JMPNZ (used
// for `if`/`while` conditions, which only need the branch), these leave
// the boolean-coerced condition on the stack, which is what a chained
// `$a && $b && $c` expression needs to produce a usable value when it
// short-circuits partway through.
func (ec *ExecutionContext) execJmpExtended(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	v, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	b := v.ToBool()
	frame.push(values.NewBool(b))
	jump := (inst.Opcode == opcodes.OP_JMPZ_EX && !b) || (inst.Opcode == opcodes.OP_JMPNZ_EX && b)
	if jump {
		return int(inst.Op1), false, nil
	}
	return frame.IP + 1, false, nil
}

// execCaseCompare implements CASE/CASE_STRICT/SWITCH_LONG/SWITCH_STRING/
// MATCH: all five pop one arm value and compare it against the subject
// still sitting on top of the stack (left there by the switch/match
// expression so every arm can test it in turn), pushing the bool result
// for the following JMPNZ to act on. MATCH and the strict-typed SWITCH
// forms use identity comparison; plain CASE uses PHP's loose equality.
func (ec *ExecutionContext) execCaseCompare(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	arm, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	subject, err := frame.peek()
	if err != nil {
		return 0, false, err
	}
	var result bool
	switch inst.Opcode {
	case opcodes.OP_CASE:
		result = values.Equal(subject, arm)
	default:
		result = values.Identical(subject, arm)
	}
	frame.push(values.NewBool(result))
	return frame.IP + 1, false, nil
}

func (ec *ExecutionContext) execIssetDim(frame *CallFrame) (int, bool, error) {
	key, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	container, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	isset := false
	if container.IsArray() {
		if v, ok := container.AsArray().Get(values.ValueToKey(key)); ok {
			isset = !v.IsNull()
		}
	}
	frame.push(values.NewBool(isset))
	return frame.IP + 1, false, nil
}

func (ec *ExecutionContext) execIssetProp(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	propName := ec.symName(frame, inst.Op1)
	obj, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	isset := false
	if obj.IsObject() {
		if payload, ok := obj.Data.(*values.ObjPayload); ok {
			if v, ok := payload.Get(propName); ok {
				isset = !v.IsNull()
			}
		}
	}
	frame.push(values.NewBool(isset))
	return frame.IP + 1, false, nil
}

func (ec *ExecutionContext) execUnsetObj(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	propName := ec.symName(frame, inst.Op1)
	obj, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	if obj.IsObject() {
		if payload, ok := obj.Data.(*values.ObjPayload); ok {
			payload.Unset(propName)
		}
	}
	return frame.IP + 1, false, nil
}

// execFetchDynamicVar implements `$$name` / `${expr}`: the variable name
// comes from a popped string value instead of a compile-time symbol.
func (ec *ExecutionContext) execFetchDynamicVar(frame *CallFrame) (int, bool, error) {
	nameVal, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	name := nameVal.ToString()
	h, ok := frame.Locals[name]
	if !ok {
		h = ec.Heap.Alloc(values.NewNull())
		frame.Locals[name] = h
	}
	frame.push(ec.Heap.Get(h).Value)
	return frame.IP + 1, false, nil
}

func (ec *ExecutionContext) execAddArrayUnpack(frame *CallFrame) (int, bool, error) {
	src, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	arrVal, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	dst := arrVal.AsArray()
	if src.IsArray() {
		for _, k := range src.AsArray().Keys() {
			v, _ := src.AsArray().Get(k)
			if k.IsInt {
				dst.Append(v)
			} else {
				dst.Set(k, v)
			}
		}
	}
	frame.push(arrVal)
	return frame.IP + 1, false, nil
}

func (ec *ExecutionContext) execInArray(frame *CallFrame) (int, bool, error) {
	haystack, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	needle, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	found := false
	if haystack.IsArray() {
		for _, v := range haystack.AsArray().Values() {
			if values.Equal(needle, v) {
				found = true
				break
			}
		}
	}
	frame.push(values.NewBool(found))
	return frame.IP + 1, false, nil
}

// execSendUnpack spreads an iterable argument (`f(...$args)`) across the
// pending call's argument list in one step.
func (ec *ExecutionContext) execSendUnpack(frame *CallFrame) (int, bool, error) {
	v, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	if frame.Pending == nil {
		return 0, false, newEngineError("call", "SEND_UNPACK with no pending call")
	}
	if v.IsArray() {
		frame.Pending.Args = append(frame.Pending.Args, v.AsArray().Values()...)
	}
	return frame.IP + 1, false, nil
}

// execCastObject implements `(object) $v`: arrays become a stdClass
// whose dynamic properties are the array's entries in order; any other
// scalar becomes a stdClass with a single "scalar" property, matching
// PHP's (object) cast on non-array values.
func (ec *ExecutionContext) execCastObject(frame *CallFrame) (int, bool, error) {
	v, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	if v.IsObject() {
		frame.push(v)
		return frame.IP + 1, false, nil
	}
	payload := values.NewObjPayload("stdClass")
	if v.IsArray() {
		for _, k := range v.AsArray().Keys() {
			pv, _ := v.AsArray().Get(k)
			payload.Set(k.String(), pv)
			payload.DynamicProperties[k.String()] = true
		}
	} else if !v.IsNull() {
		payload.Set("scalar", v)
		payload.DynamicProperties["scalar"] = true
	}
	frame.push(&values.Value{Type: values.Object, Data: payload})
	return frame.IP + 1, false, nil
}

// execBindStatic implements `static $x = ...;`: the variable's heap
// handle is shared across every call to this function within the
// request via Fn.StaticHandles, so writes made in one call are visible
// on the next.
func (ec *ExecutionContext) execBindStatic(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	name := ec.symName(frame, inst.Op1)
	if frame.Fn == nil {
		return frame.IP + 1, false, nil
	}
	if frame.Fn.StaticHandles == nil {
		frame.Fn.StaticHandles = make(map[string]values.Handle)
	}
	h, ok := frame.Fn.StaticHandles[name]
	if !ok {
		h = ec.Heap.Alloc(values.NewNull())
		frame.Fn.StaticHandles[name] = h
	}
	frame.Locals[name] = h
	return frame.IP + 1, false, nil
}

// execRethrowIfPending re-raises the exception a finally block's
// enclosing try stashed in frame.PendingException, implementing the
// "finally does not swallow" invariant (§4.J) once the finally body
// itself completes normally.
func (ec *ExecutionContext) execRethrowIfPending(frame *CallFrame) (int, bool, error) {
	if frame.PendingException == nil {
		return frame.IP + 1, false, nil
	}
	exc := frame.PendingException
	frame.PendingException = nil
	return 0, false, &ThrownError{Value: exc}
}
