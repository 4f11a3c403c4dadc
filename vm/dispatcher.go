// Package vm is the bytecode dispatcher (component G): a single
// fetch-decode-execute loop over a Chunk's instruction stream, operating
// on stack-machine operands (values are pushed/popped off the current
// frame's operand stack) plus named-variable operands addressed by
// interned symbol for FETCH/ASSIGN-family opcodes.
package vm

import (
	"fmt"

	"github.com/loomphp/loom/opcodes"
	"github.com/loomphp/loom/symtab"
	"github.com/loomphp/loom/values"
)

// Run executes frame to completion (normal return, uncaught exception,
// or engine error), looping until the frame's IP runs past the end of
// its chunk's code or a RETURN/THROW unwinds it. It is called both for
// the top-level {main} frame and recursively for each user-function
// call DO_FCALL enters, mirroring the teacher's recursive call-then-run
// structure.
func (ec *ExecutionContext) Run(frame *CallFrame) (*values.Value, error) {
	ec.Calls.Push(frame)
	defer func() {
		ec.Calls.Pop()
		ec.Heap.MaybeReclaim()
	}()

	code := frame.Chunk.Code
	for frame.IP < len(code) {
		if err := ec.CheckTimeout(); err != nil {
			return nil, err
		}
		inst := &code[frame.IP]
		next, ret, err := ec.step(frame, inst)
		if err != nil {
			if thrown, ok := err.(*ThrownError); ok {
				handled, nip, herr := ec.handleThrow(frame, thrown.Value)
				if herr != nil {
					return nil, herr
				}
				if handled {
					frame.IP = nip
					continue
				}
			}
			return nil, err
		}
		if ret {
			return frame.ReturnValue, nil
		}
		frame.IP = next
	}
	return values.NewNull(), nil
}

// step executes a single instruction and returns the next IP (when not
// otherwise jumping) plus whether the frame is returning.
func (ec *ExecutionContext) step(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	switch inst.Opcode {
	case opcodes.OP_NOP:
		return frame.IP + 1, false, nil

	case opcodes.OP_PUSH_CONST:
		if int(inst.Op1) >= len(frame.Chunk.Constants) {
			return 0, false, newEngineError("const", "constant index out of range")
		}
		frame.push(frame.Chunk.Constants[inst.Op1])
		return frame.IP + 1, false, nil

	case opcodes.OP_DUP:
		v, err := frame.peek()
		if err != nil {
			return 0, false, err
		}
		frame.push(v)
		return frame.IP + 1, false, nil

	case opcodes.OP_POP:
		if _, err := frame.pop(); err != nil {
			return 0, false, err
		}
		return frame.IP + 1, false, nil

	case opcodes.OP_ADD, opcodes.OP_SUB, opcodes.OP_MUL, opcodes.OP_DIV, opcodes.OP_MOD, opcodes.OP_POW,
		opcodes.OP_CONCAT, opcodes.OP_BW_AND, opcodes.OP_BW_OR, opcodes.OP_BW_XOR, opcodes.OP_SL, opcodes.OP_SR:
		return ec.execBinaryArith(frame, inst)

	case opcodes.OP_PLUS, opcodes.OP_MINUS, opcodes.OP_NOT, opcodes.OP_BW_NOT:
		return ec.execUnary(frame, inst)

	case opcodes.OP_PRE_INC, opcodes.OP_PRE_DEC, opcodes.OP_POST_INC, opcodes.OP_POST_DEC:
		return ec.execIncDec(frame, inst)

	case opcodes.OP_IS_EQUAL, opcodes.OP_IS_NOT_EQUAL, opcodes.OP_IS_IDENTICAL, opcodes.OP_IS_NOT_IDENTICAL,
		opcodes.OP_IS_SMALLER, opcodes.OP_IS_SMALLER_OR_EQUAL, opcodes.OP_IS_GREATER, opcodes.OP_IS_GREATER_OR_EQUAL,
		opcodes.OP_SPACESHIP:
		return ec.execComparison(frame, inst)

	case opcodes.OP_BOOLEAN_AND, opcodes.OP_BOOLEAN_OR, opcodes.OP_LOGICAL_XOR:
		return ec.execLogical(frame, inst)

	case opcodes.OP_JMP:
		return int(inst.Op1), false, nil
	case opcodes.OP_JMPZ_EX, opcodes.OP_JMPNZ_EX:
		return ec.execJmpExtended(frame, inst)
	case opcodes.OP_CASE, opcodes.OP_CASE_STRICT, opcodes.OP_SWITCH_LONG, opcodes.OP_SWITCH_STRING, opcodes.OP_MATCH:
		return ec.execCaseCompare(frame, inst)
	case opcodes.OP_JMPZ:
		v, err := frame.pop()
		if err != nil {
			return 0, false, err
		}
		if !v.ToBool() {
			return int(inst.Op1), false, nil
		}
		return frame.IP + 1, false, nil
	case opcodes.OP_JMPNZ:
		v, err := frame.pop()
		if err != nil {
			return 0, false, err
		}
		if v.ToBool() {
			return int(inst.Op1), false, nil
		}
		return frame.IP + 1, false, nil

	case opcodes.OP_FE_RESET:
		return ec.execFeReset(frame, inst)
	case opcodes.OP_FE_FETCH:
		return ec.execFeFetch(frame, inst)
	case opcodes.OP_FE_FREE:
		return ec.execFeFree(frame)

	case opcodes.OP_COALESCE:
		v, err := frame.pop()
		if err != nil {
			return 0, false, err
		}
		if !v.IsNull() {
			frame.push(v)
			return int(inst.Op1), false, nil
		}
		return frame.IP + 1, false, nil

	case opcodes.OP_ASSIGN:
		return ec.execAssign(frame, inst)
	case opcodes.OP_ASSIGN_OP:
		return ec.execAssignOp(frame, inst)
	case opcodes.OP_ASSIGN_DIM_OP:
		return ec.execAssignDimOp(frame, inst)
	case opcodes.OP_ASSIGN_OBJ_OP:
		return ec.execAssignObjOp(frame, inst)
	case opcodes.OP_ASSIGN_REF:
		// Reference assignment (`$a =& $b`) is approximated as a value
		// copy: the stack-machine's FETCH opcodes carry dereferenced
		// values rather than handles, so true alias semantics are only
		// supported for `global $x;` (BindGlobal), not for arbitrary
		// `=&` between two local variables; closure use-vars are
		// captured by value as well.
		return ec.execAssign(frame, inst)
	case opcodes.OP_QM_ASSIGN:
		v, err := frame.peek()
		if err != nil {
			return 0, false, err
		}
		_ = v
		return frame.IP + 1, false, nil

	case opcodes.OP_FETCH_R, opcodes.OP_FETCH_W, opcodes.OP_FETCH_RW, opcodes.OP_FETCH_IS, opcodes.OP_FETCH_UNSET:
		return ec.execFetchVar(frame, inst)
	case opcodes.OP_FETCH_R_DYNAMIC:
		return ec.execFetchDynamicVar(frame)

	case opcodes.OP_FETCH_DIM_R, opcodes.OP_FETCH_DIM_IS, opcodes.OP_FETCH_DIM_W, opcodes.OP_FETCH_DIM_RW, opcodes.OP_FETCH_DIM_UNSET:
		return ec.execFetchDimRead(frame, inst)
	case opcodes.OP_ASSIGN_DIM:
		return ec.execAssignDim(frame, inst)
	case opcodes.OP_UNSET_DIM:
		return ec.execUnsetDim(frame, inst)
	case opcodes.OP_ISSET_ISEMPTY_DIM:
		return ec.execIssetDim(frame)

	case opcodes.OP_FETCH_OBJ_R, opcodes.OP_FETCH_OBJ_IS, opcodes.OP_FETCH_OBJ_W, opcodes.OP_FETCH_OBJ_RW, opcodes.OP_FETCH_OBJ_UNSET:
		return ec.execFetchObjRead(frame, inst)
	case opcodes.OP_ASSIGN_OBJ:
		return ec.execAssignObj(frame, inst)
	case opcodes.OP_ISSET_ISEMPTY_PROP:
		return ec.execIssetProp(frame, inst)
	case opcodes.OP_UNSET_OBJ:
		return ec.execUnsetObj(frame, inst)

	case opcodes.OP_UNSET_VAR:
		name := ec.symName(frame, inst.Op1)
		delete(frame.Locals, name)
		return frame.IP + 1, false, nil

	case opcodes.OP_ISSET_ISEMPTY_VAR:
		name := ec.symName(frame, inst.Op1)
		h, ok := frame.Locals[name]
		isset := ok && !ec.Heap.Get(h).Value.IsNull()
		frame.push(values.NewBool(isset))
		return frame.IP + 1, false, nil

	case opcodes.OP_BIND_STATIC:
		return ec.execBindStatic(frame, inst)

	case opcodes.OP_INIT_ARRAY:
		frame.push(values.NewArray())
		return frame.IP + 1, false, nil
	case opcodes.OP_ADD_ARRAY_ELEMENT:
		return ec.execAddArrayElement(frame, inst)

	case opcodes.OP_ADD_ARRAY_UNPACK:
		return ec.execAddArrayUnpack(frame)
	case opcodes.OP_IN_ARRAY:
		return ec.execInArray(frame)

	case opcodes.OP_COUNT:
		v, err := frame.pop()
		if err != nil {
			return 0, false, err
		}
		if v.IsArray() {
			frame.push(values.NewInt(int64(v.AsArray().Len())))
		} else {
			frame.push(values.NewInt(1))
		}
		return frame.IP + 1, false, nil

	case opcodes.OP_ARRAY_KEY_EXISTS:
		key, err := frame.pop()
		if err != nil {
			return 0, false, err
		}
		arr, err := frame.pop()
		if err != nil {
			return 0, false, err
		}
		_, exists := arr.AsArray().Get(values.ValueToKey(key))
		frame.push(values.NewBool(exists))
		return frame.IP + 1, false, nil

	case opcodes.OP_CAST_BOOL, opcodes.OP_CAST_LONG, opcodes.OP_CAST_DOUBLE, opcodes.OP_CAST_STRING,
		opcodes.OP_CAST_ARRAY:
		return ec.execCast(frame, inst)
	case opcodes.OP_CAST_OBJECT:
		return ec.execCastObject(frame)

	case opcodes.OP_ECHO, opcodes.OP_PRINT:
		v, err := frame.pop()
		if err != nil {
			return 0, false, err
		}
		s, err := ec.stringify(v)
		if err != nil {
			return 0, false, err
		}
		ec.Host.Echo(s)
		if inst.Opcode == opcodes.OP_PRINT {
			frame.push(values.NewInt(1))
		}
		return frame.IP + 1, false, nil

	case opcodes.OP_FETCH_GLOBALS:
		frame.push(ec.GlobalsArray())
		return frame.IP + 1, false, nil
	case opcodes.OP_BIND_GLOBAL:
		ec.BindGlobal(frame, ec.symName(frame, inst.Op1))
		return frame.IP + 1, false, nil

	case opcodes.OP_FETCH_CONSTANT:
		name := ec.symName(frame, inst.Op1)
		v, ok := ec.Registry.GetConstant(name)
		if !ok {
			return 0, false, &ThrownError{Value: newThrowable("Error", fmt.Sprintf("Undefined constant %q", name))}
		}
		frame.push(v)
		return frame.IP + 1, false, nil

	case opcodes.OP_INIT_FCALL, opcodes.OP_INIT_NS_FCALL:
		frame.Pending = &PendingCall{FuncName: ec.symName(frame, inst.Op1)}
		return frame.IP + 1, false, nil
	case opcodes.OP_INIT_FCALL_BY_NAME:
		return ec.execInitDynamicCall(frame)
	case opcodes.OP_INIT_METHOD_CALL:
		return ec.execMethodCallInit(frame, inst)
	case opcodes.OP_INIT_STATIC_METHOD_CALL:
		return ec.execStaticMethodCallInit(frame, inst)

	case opcodes.OP_CREATE_CLOSURE:
		return ec.execCreateClosure(frame, inst)
	case opcodes.OP_BIND_USE_VAR:
		return ec.execBindUseVar(frame, inst)
	case opcodes.OP_SEND_VAL, opcodes.OP_SEND_VAR, opcodes.OP_SEND_VAR_NO_REF, opcodes.OP_SEND_REF, opcodes.OP_SEND_NAMED:
		v, err := frame.pop()
		if err != nil {
			return 0, false, err
		}
		if frame.Pending == nil {
			return 0, false, newEngineError("call", "SEND with no pending call")
		}
		frame.Pending.Args = append(frame.Pending.Args, v)
		return frame.IP + 1, false, nil
	case opcodes.OP_SEND_UNPACK:
		return ec.execSendUnpack(frame)
	case opcodes.OP_DO_FCALL, opcodes.OP_DO_UCALL, opcodes.OP_DO_ICALL:
		return ec.execDoCall(frame, inst)

	case opcodes.OP_RECV, opcodes.OP_RECV_INIT, opcodes.OP_RECV_VARIADIC:
		// Parameter binding happens wholesale in bindArguments before the
		// callee frame starts running; these opcodes, if a body carries
		// them, are confirmations that already happened.
		return frame.IP + 1, false, nil

	case opcodes.OP_RETURN, opcodes.OP_GENERATOR_RETURN:
		v, err := frame.pop()
		if err != nil {
			v = values.NewNull()
		}
		if inst.Opcode == opcodes.OP_RETURN {
			v, err = coerceReturnType(frame, v)
			if err != nil {
				return 0, false, err
			}
		}
		frame.ReturnValue = v
		return frame.IP, true, nil

	case opcodes.OP_YIELD:
		v, err := frame.pop()
		if err != nil {
			return 0, false, err
		}
		sent, err := ec.doYield(frame, v)
		if err != nil {
			return 0, false, err
		}
		frame.push(sent)
		return frame.IP + 1, false, nil

	case opcodes.OP_YIELD_FROM:
		v, err := frame.pop()
		if err != nil {
			return 0, false, err
		}
		ret, err := ec.doYieldFrom(frame, v)
		if err != nil {
			return 0, false, err
		}
		frame.push(ret)
		return frame.IP + 1, false, nil

	case opcodes.OP_THROW:
		v, err := frame.pop()
		if err != nil {
			return 0, false, err
		}
		return 0, false, &ThrownError{Value: v}

	case opcodes.OP_CATCH, opcodes.OP_FINALLY_BEGIN:
		// Block-entry markers: handleThrow has already jumped here and
		// pushed the exception (for CATCH) or set PendingException (for
		// FINALLY_BEGIN); the instructions that follow do the real work.
		return frame.IP + 1, false, nil
	case opcodes.OP_FINALLY_END, opcodes.OP_RETHROW_IF_PENDING:
		return ec.execRethrowIfPending(frame)

	case opcodes.OP_NEW:
		return ec.execNew(frame, inst)
	case opcodes.OP_METHOD_CALL:
		return ec.execMethodCallInit(frame, inst)
	case opcodes.OP_STATIC_METHOD_CALL:
		return ec.execStaticMethodCallInit(frame, inst)
	case opcodes.OP_FETCH_CLASS_CONSTANT:
		return ec.execFetchClassConstant(frame, inst)
	case opcodes.OP_FETCH_STATIC_PROP_R, opcodes.OP_FETCH_STATIC_PROP_W:
		return ec.execFetchStaticProp(frame, inst)
	case opcodes.OP_ASSIGN_STATIC_PROP, opcodes.OP_ASSIGN_STATIC_PROP_OP:
		return ec.execAssignStaticProp(frame, inst)

	case opcodes.OP_CLONE:
		v, err := frame.pop()
		if err != nil {
			return 0, false, err
		}
		frame.push(cloneObject(v))
		return frame.IP + 1, false, nil

	case opcodes.OP_INSTANCEOF:
		return ec.execInstanceof(frame)

	case opcodes.OP_BEGIN_SILENCE:
		ec.Host.Silence(true)
		return frame.IP + 1, false, nil
	case opcodes.OP_END_SILENCE:
		ec.Host.Silence(false)
		return frame.IP + 1, false, nil

	case opcodes.OP_VERIFY_ARG_TYPE, opcodes.OP_VERIFY_RETURN_TYPE, opcodes.OP_VERIFY_ABSTRACT_CLASS:
		// bindArguments already enforces parameter type hints,
		// OP_RETURN's coerceReturnType enforces return types, and NEW
		// already rejects abstract classes; these opcodes are a
		// compiler's defensive re-confirmation and are no-ops here.
		return frame.IP + 1, false, nil

	case opcodes.OP_DECLARE_FUNCTION, opcodes.OP_DECLARE_CLASS, opcodes.OP_DECLARE_INTERFACE,
		opcodes.OP_DECLARE_TRAIT, opcodes.OP_USE_TRAIT, opcodes.OP_DECLARE_CONST:
		// Top-level declarations are merged into the registry before
		// Run starts (see mergeDeclarations in vm.go), matching PHP's
		// hoisting of unconditional declarations; these opcodes are
		// no-ops when they do appear (e.g. for conditional declarations
		// inside an if-block, which this engine does not special-case).
		return frame.IP + 1, false, nil

	case opcodes.OP_EXIT:
		msg := ""
		if v, err := frame.pop(); err == nil && v.IsString() {
			msg = v.AsString()
		}
		frame.ReturnValue = values.NewNull()
		if msg != "" {
			ec.Host.Echo(msg)
		}
		return frame.IP, true, nil

	default:
		return 0, false, fmt.Errorf("%w: %s", ErrUnknownOpcode, inst.Opcode)
	}
}

func (ec *ExecutionContext) symName(frame *CallFrame, id uint32) string {
	return ec.Interner.Name(symtab.Symbol(id))
}

// handleThrow scans frame's try-chain innermost-first for an entry whose
// range covers the current IP and whose CatchTypes match v's class
// (empty CatchTypes means finally-only, not a match). It returns whether
// the exception was handled in this frame and, if so, the IP to resume
// at.
func (ec *ExecutionContext) handleThrow(frame *CallFrame, v *values.Value) (bool, int, error) {
	className := "Exception"
	if p, ok := v.Data.(*values.ObjPayload); ok {
		className = p.ClassName
	}
	for i := len(frame.TryChain) - 1; i >= 0; i-- {
		entry := frame.TryChain[i]
		if frame.IP < entry.StartIP || frame.IP > entry.EndIP {
			continue
		}
		for _, t := range entry.CatchTypes {
			if t == "" || ec.Registry.IsInstanceOf(className, t) {
				frame.Stack = append(frame.Stack, v)
				return true, entry.CatchIP, nil
			}
		}
		if entry.FinallyIP >= 0 {
			frame.PendingException = v
			return true, entry.FinallyIP, nil
		}
	}
	return false, 0, nil
}

func cloneObject(v *values.Value) *values.Value {
	if !v.IsObject() {
		return v
	}
	src := v.Data.(*values.ObjPayload)
	dst := values.NewObjPayload(src.ClassName)
	for _, name := range src.PropOrder {
		pv := src.Properties[name]
		cp := *pv
		dst.Set(name, &cp)
	}
	return &values.Value{Type: values.Object, Data: dst}
}
