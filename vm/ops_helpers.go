package vm

import (
	"fmt"

	"github.com/loomphp/loom/opcodes"
	"github.com/loomphp/loom/values"
)

func (ec *ExecutionContext) execBinaryArith(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	b, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	a, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	var result *values.Value
	switch inst.Opcode {
	case opcodes.OP_ADD:
		result, err = values.Add(a, b)
	case opcodes.OP_SUB:
		result, err = values.Sub(a, b)
	case opcodes.OP_MUL:
		result, err = values.Mul(a, b)
	case opcodes.OP_DIV:
		result, err = values.Div(a, b)
	case opcodes.OP_MOD:
		result, err = values.Mod(a, b)
	case opcodes.OP_POW:
		result, err = values.Pow(a, b)
	case opcodes.OP_CONCAT:
		result, err = ec.concat(a, b)
	case opcodes.OP_BW_AND:
		result = values.BitAnd(a, b)
	case opcodes.OP_BW_OR:
		result = values.BitOr(a, b)
	case opcodes.OP_BW_XOR:
		result = values.BitXor(a, b)
	case opcodes.OP_SL:
		result = values.Shl(a, b)
	case opcodes.OP_SR:
		result = values.Shr(a, b)
	}
	if err != nil {
		if err == values.ErrDivisionByZero {
			return 0, false, &ThrownError{Value: newThrowable("DivisionByZeroError", "Division by zero")}
		}
		return 0, false, err
	}
	frame.push(result)
	return frame.IP + 1, false, nil
}

func (ec *ExecutionContext) execUnary(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	a, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	var result *values.Value
	switch inst.Opcode {
	case opcodes.OP_PLUS:
		result = values.NewFloat(a.ToFloat())
		if a.IsInt() {
			result = values.NewInt(a.AsInt())
		}
	case opcodes.OP_MINUS:
		result = values.Neg(a)
	case opcodes.OP_NOT:
		result = values.NewBool(!a.ToBool())
	case opcodes.OP_BW_NOT:
		result = values.BitNot(a)
	}
	frame.push(result)
	return frame.IP + 1, false, nil
}

func (ec *ExecutionContext) execIncDec(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	name := ec.symName(frame, inst.Op1)
	h, ok := frame.Locals[name]
	if !ok {
		h = ec.Heap.Alloc(values.NewNull())
		frame.Locals[name] = h
	}
	cell := ec.Heap.Get(h)
	old := cell.Value
	var next *values.Value
	switch inst.Opcode {
	case opcodes.OP_PRE_INC, opcodes.OP_POST_INC:
		next, _ = values.Add(old, values.NewInt(1))
	case opcodes.OP_PRE_DEC, opcodes.OP_POST_DEC:
		next, _ = values.Sub(old, values.NewInt(1))
	}
	cell.Value = next
	if inst.Opcode == opcodes.OP_PRE_INC || inst.Opcode == opcodes.OP_PRE_DEC {
		frame.push(next)
	} else {
		frame.push(old)
	}
	return frame.IP + 1, false, nil
}

func (ec *ExecutionContext) execComparison(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	b, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	a, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	var result *values.Value
	switch inst.Opcode {
	case opcodes.OP_IS_EQUAL:
		result = values.NewBool(values.Equal(a, b))
	case opcodes.OP_IS_NOT_EQUAL:
		result = values.NewBool(!values.Equal(a, b))
	case opcodes.OP_IS_IDENTICAL:
		result = values.NewBool(values.Identical(a, b))
	case opcodes.OP_IS_NOT_IDENTICAL:
		result = values.NewBool(!values.Identical(a, b))
	case opcodes.OP_IS_SMALLER:
		result = values.NewBool(values.Compare(a, b) < 0)
	case opcodes.OP_IS_SMALLER_OR_EQUAL:
		result = values.NewBool(values.Compare(a, b) <= 0)
	case opcodes.OP_IS_GREATER:
		result = values.NewBool(values.Compare(a, b) > 0)
	case opcodes.OP_IS_GREATER_OR_EQUAL:
		result = values.NewBool(values.Compare(a, b) >= 0)
	case opcodes.OP_SPACESHIP:
		result = values.NewInt(int64(values.Compare(a, b)))
	}
	frame.push(result)
	return frame.IP + 1, false, nil
}

func (ec *ExecutionContext) execLogical(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	b, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	a, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	var result bool
	switch inst.Opcode {
	case opcodes.OP_BOOLEAN_AND:
		result = a.ToBool() && b.ToBool()
	case opcodes.OP_BOOLEAN_OR:
		result = a.ToBool() || b.ToBool()
	case opcodes.OP_LOGICAL_XOR:
		result = a.ToBool() != b.ToBool()
	}
	frame.push(values.NewBool(result))
	return frame.IP + 1, false, nil
}

// execAssign implements `$var = value`. value may be the same *Value (and
// so the same *values.ArrayData) already held by another variable's cell
// — e.g. `$b = $a;`, where the RHS came straight off $a's heap slot — so
// an array value is marked shared before landing in its new home. The
// next opcode that mutates either holder's array clones first (see
// values.Heap.ArrayForWrite), giving arrays PHP's copy-on-write semantics
// without copying on every assignment.
func (ec *ExecutionContext) execAssign(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	v, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	if v.IsArray() {
		v.AsArray().MarkShared()
	}
	name := ec.symName(frame, inst.Op1)
	if h, ok := frame.Locals[name]; ok {
		ec.Heap.Get(h).Value = v
	} else {
		frame.Locals[name] = ec.Heap.Alloc(v)
	}
	frame.push(v)
	return frame.IP + 1, false, nil
}

func (ec *ExecutionContext) execAssignOp(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	rhs, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	name := ec.symName(frame, inst.Op1)
	h, ok := frame.Locals[name]
	if !ok {
		h = ec.Heap.Alloc(values.NewNull())
		frame.Locals[name] = h
	}
	cell := ec.Heap.Get(h)
	result, err := ec.combineOp(opcodes.Opcode(inst.Op2), cell.Value, rhs)
	if err != nil {
		if err == values.ErrDivisionByZero {
			return 0, false, &ThrownError{Value: newThrowable("DivisionByZeroError", "Division by zero")}
		}
		return 0, false, err
	}
	cell.Value = result
	frame.push(result)
	return frame.IP + 1, false, nil
}

func (ec *ExecutionContext) combineOp(op opcodes.Opcode, a, b *values.Value) (*values.Value, error) {
	switch op {
	case opcodes.OP_ADD:
		return values.Add(a, b)
	case opcodes.OP_SUB:
		return values.Sub(a, b)
	case opcodes.OP_MUL:
		return values.Mul(a, b)
	case opcodes.OP_DIV:
		return values.Div(a, b)
	case opcodes.OP_MOD:
		return values.Mod(a, b)
	case opcodes.OP_POW:
		return values.Pow(a, b)
	case opcodes.OP_CONCAT:
		return ec.concat(a, b)
	case opcodes.OP_BW_AND:
		return values.BitAnd(a, b), nil
	case opcodes.OP_BW_OR:
		return values.BitOr(a, b), nil
	case opcodes.OP_BW_XOR:
		return values.BitXor(a, b), nil
	case opcodes.OP_SL:
		return values.Shl(a, b), nil
	case opcodes.OP_SR:
		return values.Shr(a, b), nil
	default:
		return nil, newEngineError("assign_op", "unsupported compound operator")
	}
}

func (ec *ExecutionContext) execFetchVar(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	name := ec.symName(frame, inst.Op1)
	h, ok := frame.Locals[name]
	if !ok {
		if inst.Opcode == opcodes.OP_FETCH_IS {
			frame.push(values.NewBool(false))
			return frame.IP + 1, false, nil
		}
		h = ec.Heap.Alloc(values.NewNull())
		frame.Locals[name] = h
	}
	if inst.Opcode == opcodes.OP_FETCH_IS {
		frame.push(values.NewBool(!ec.Heap.Get(h).Value.IsNull()))
		return frame.IP + 1, false, nil
	}
	frame.push(ec.Heap.Get(h).Value)
	return frame.IP + 1, false, nil
}

func (ec *ExecutionContext) execFetchDimRead(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	key, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	container, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	if !container.IsArray() {
		if inst.Opcode == opcodes.OP_FETCH_DIM_IS {
			frame.push(values.NewBool(false))
			return frame.IP + 1, false, nil
		}
		frame.push(values.NewNull())
		return frame.IP + 1, false, nil
	}
	v, ok := container.AsArray().Get(values.ValueToKey(key))
	if inst.Opcode == opcodes.OP_FETCH_DIM_IS {
		frame.push(values.NewBool(ok && !v.IsNull()))
		return frame.IP + 1, false, nil
	}
	if !ok {
		frame.push(values.NewNull())
		return frame.IP + 1, false, nil
	}
	frame.push(v)
	return frame.IP + 1, false, nil
}

// execAssignDim implements `$var[key] = value` and `$var[] = value`
// (an AppendPlaceholder key pushed by the compiler for the latter).
func (ec *ExecutionContext) execAssignDim(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	v, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	key, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	name := ec.symName(frame, inst.Op1)
	h, ok := frame.Locals[name]
	if !ok || ec.Heap.Get(h).Value.Type != values.Array {
		newArr := values.NewArray()
		if ok {
			ec.Heap.Get(h).Value = newArr
		} else {
			h = ec.Heap.Alloc(newArr)
			frame.Locals[name] = h
		}
	}
	if v.IsArray() {
		v.AsArray().MarkShared()
	}
	arr := ec.Heap.ArrayForWrite(h)
	if key.Type == values.AppendPlaceholder {
		arr.Append(v)
	} else {
		arr.Set(values.ValueToKey(key), v)
	}
	frame.push(v)
	return frame.IP + 1, false, nil
}

// execAssignDimOp implements `$var[key] op= value`: Result carries the
// base operator (mirroring ASSIGN_OP's use of Op2), since Op1 already
// names the target variable here.
func (ec *ExecutionContext) execAssignDimOp(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	rhs, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	key, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	name := ec.symName(frame, inst.Op1)
	h, ok := frame.Locals[name]
	if !ok || ec.Heap.Get(h).Value.Type != values.Array {
		newArr := values.NewArray()
		if ok {
			ec.Heap.Get(h).Value = newArr
		} else {
			h = ec.Heap.Alloc(newArr)
			frame.Locals[name] = h
		}
	}
	arr := ec.Heap.ArrayForWrite(h)
	k := values.ValueToKey(key)
	cur, ok := arr.Get(k)
	if !ok {
		cur = values.NewNull()
	}
	result, err := ec.combineOp(opcodes.Opcode(inst.Result), cur, rhs)
	if err != nil {
		if err == values.ErrDivisionByZero {
			return 0, false, &ThrownError{Value: newThrowable("DivisionByZeroError", "Division by zero")}
		}
		return 0, false, err
	}
	arr.Set(k, result)
	frame.push(result)
	return frame.IP + 1, false, nil
}

// execAssignObjOp implements `$obj->prop op= value`, analogous to
// execAssignDimOp for object properties.
func (ec *ExecutionContext) execAssignObjOp(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	rhs, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	obj, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	if !obj.IsObject() {
		return 0, false, newEngineError("assign_obj_op", "attempt to assign property on non-object")
	}
	propName := ec.symName(frame, inst.Op1)
	payload := obj.Data.(*values.ObjPayload)
	cur, ok := payload.Get(propName)
	if !ok {
		cur = values.NewNull()
	}
	result, err := ec.combineOp(opcodes.Opcode(inst.Result), cur, rhs)
	if err != nil {
		if err == values.ErrDivisionByZero {
			return 0, false, &ThrownError{Value: newThrowable("DivisionByZeroError", "Division by zero")}
		}
		return 0, false, err
	}
	payload.Set(propName, result)
	frame.push(result)
	return frame.IP + 1, false, nil
}

func (ec *ExecutionContext) execUnsetDim(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	key, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	name := ec.symName(frame, inst.Op1)
	if h, ok := frame.Locals[name]; ok {
		if ec.Heap.Get(h).Value.IsArray() {
			ec.Heap.ArrayForWrite(h).Unset(values.ValueToKey(key))
		}
	}
	return frame.IP + 1, false, nil
}

// execFetchObjRead implements `$obj->prop` (and `isset($obj->prop)` via
// OP_FETCH_OBJ_IS). A declared-but-inaccessible property and a wholly
// undeclared one both consult __get before giving up, matching the
// magic-method fallback the call protocol already applies to methods.
func (ec *ExecutionContext) execFetchObjRead(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	propName := ec.symName(frame, inst.Op1)
	obj, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	isIsset := inst.Opcode == opcodes.OP_FETCH_OBJ_IS
	if !obj.IsObject() {
		if isIsset {
			frame.push(values.NewBool(false))
			return frame.IP + 1, false, nil
		}
		frame.push(values.NewNull())
		return frame.IP + 1, false, nil
	}
	payload := obj.Data.(*values.ObjPayload)
	class, hasClass := ec.Registry.GetClass(payload.ClassName)

	tryMagicGet := func() (*values.Value, bool, error) {
		if !hasClass {
			return nil, false, nil
		}
		getter, ok := ec.Registry.ResolveMethod(class, "__get")
		if !ok {
			return nil, false, nil
		}
		result, err := ec.invokeMethod(obj, class.Name, getter, []*values.Value{values.NewString(propName)})
		if err != nil {
			return nil, false, err
		}
		return result, true, nil
	}

	if v, ok := payload.Get(propName); ok {
		if hasClass {
			if decl, declOk := ec.Registry.ResolveProperty(class, propName); declOk &&
				!checkVisibility(ec.Registry, decl.Visibility, decl.DeclaringClass, frame.ClassScope) {
				if result, handled, err := tryMagicGet(); err != nil {
					return 0, false, err
				} else if handled {
					v = result
				} else {
					return 0, false, &ThrownError{Value: newThrowable("Error", visibilityError(decl.Visibility, "property", decl.DeclaringClass, "::", propName).Error())}
				}
			}
		}
		if isIsset {
			frame.push(values.NewBool(!v.IsNull()))
			return frame.IP + 1, false, nil
		}
		frame.push(v)
		return frame.IP + 1, false, nil
	}

	result, handled, err := tryMagicGet()
	if err != nil {
		return 0, false, err
	}
	if handled {
		if isIsset {
			frame.push(values.NewBool(!result.IsNull()))
			return frame.IP + 1, false, nil
		}
		frame.push(result)
		return frame.IP + 1, false, nil
	}
	if isIsset {
		frame.push(values.NewBool(false))
		return frame.IP + 1, false, nil
	}
	frame.push(values.NewNull())
	return frame.IP + 1, false, nil
}

// execAssignObj implements `$obj->prop = value`. Writing to a declared
// but inaccessible property, or to an undeclared one on a class that
// does not allow dynamic properties, consults __set before giving up;
// otherwise the assignment lands directly on the payload as before.
func (ec *ExecutionContext) execAssignObj(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	v, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	obj, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	if !obj.IsObject() {
		return 0, false, newEngineError("assign_obj", "attempt to assign property on non-object")
	}
	if v.IsArray() {
		v.AsArray().MarkShared()
	}
	propName := ec.symName(frame, inst.Op1)
	payload := obj.Data.(*values.ObjPayload)

	if class, ok := ec.Registry.GetClass(payload.ClassName); ok {
		if decl, declOk := ec.Registry.ResolveProperty(class, propName); declOk {
			if !checkVisibility(ec.Registry, decl.Visibility, decl.DeclaringClass, frame.ClassScope) {
				if setter, ok := ec.Registry.ResolveMethod(class, "__set"); ok {
					if _, err := ec.invokeMethod(obj, class.Name, setter, []*values.Value{values.NewString(propName), v}); err != nil {
						return 0, false, err
					}
					frame.push(v)
					return frame.IP + 1, false, nil
				}
				return 0, false, &ThrownError{Value: newThrowable("Error", visibilityError(decl.Visibility, "property", decl.DeclaringClass, "::", propName).Error())}
			}
		} else if _, exists := payload.Get(propName); !exists && !class.AllowsDynamicProperties {
			if setter, ok := ec.Registry.ResolveMethod(class, "__set"); ok {
				if _, err := ec.invokeMethod(obj, class.Name, setter, []*values.Value{values.NewString(propName), v}); err != nil {
					return 0, false, err
				}
				frame.push(v)
				return frame.IP + 1, false, nil
			}
		}
	}

	payload.Set(propName, v)
	frame.push(v)
	return frame.IP + 1, false, nil
}

func (ec *ExecutionContext) execAddArrayElement(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	v, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	key, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	arrVal, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	if v.IsArray() {
		v.AsArray().MarkShared()
	}
	arr := arrVal.AsArray()
	if key.Type == values.AppendPlaceholder {
		arr.Append(v)
	} else {
		arr.Set(values.ValueToKey(key), v)
	}
	frame.push(arrVal)
	return frame.IP + 1, false, nil
}

func (ec *ExecutionContext) execCast(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	v, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	var result *values.Value
	switch inst.Opcode {
	case opcodes.OP_CAST_BOOL:
		result = values.NewBool(v.ToBool())
	case opcodes.OP_CAST_LONG:
		result = values.NewInt(v.ToInt())
	case opcodes.OP_CAST_DOUBLE:
		result = values.NewFloat(v.ToFloat())
	case opcodes.OP_CAST_STRING:
		s, serr := ec.stringify(v)
		if serr != nil {
			return 0, false, serr
		}
		result = values.NewString(s)
	case opcodes.OP_CAST_ARRAY:
		if v.IsArray() {
			result = v
		} else if v.IsNull() {
			result = values.NewArray()
		} else {
			arr := values.NewArray()
			arr.AsArray().Append(v)
			result = arr
		}
	}
	frame.push(result)
	return frame.IP + 1, false, nil
}

func (ec *ExecutionContext) execInstanceof(frame *CallFrame) (int, bool, error) {
	className, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	obj, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	result := false
	if obj.IsObject() {
		result = ec.Registry.IsInstanceOf(obj.Data.(*values.ObjPayload).ClassName, className.ToString())
	}
	frame.push(values.NewBool(result))
	return frame.IP + 1, false, nil
}

func (ec *ExecutionContext) execNew(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	className := ec.symName(frame, inst.Op1)
	class, ok := ec.Registry.GetClass(className)
	if !ok {
		return 0, false, &ThrownError{Value: newThrowable("Error", fmt.Sprintf("Class %q not found", className))}
	}
	if class.IsAbstract {
		return 0, false, &ThrownError{Value: newThrowable("Error", fmt.Sprintf("Cannot instantiate abstract class %s", className))}
	}
	payload := values.NewObjPayload(class.Name)
	for cur := class; cur != nil; {
		for name, p := range cur.Properties {
			if _, exists := payload.Get(name); !exists {
				def := values.NewNull()
				if p.Default != nil {
					def = p.Default
				}
				payload.Set(name, def)
			}
		}
		if cur.ParentName == "" {
			break
		}
		parent, ok := ec.Registry.GetClass(cur.ParentName)
		if !ok {
			break
		}
		cur = parent
	}
	obj := &values.Value{Type: values.Object, Data: payload}

	// Op2 carries the constructor argument count: the compiler pushes
	// each `new Foo($a, $b)` argument in order before emitting NEW,
	// mirroring how ADD_ARRAY_ELEMENT takes its operands straight off
	// the stack rather than through the INIT_FCALL/SEND_*/DO_FCALL
	// multi-instruction call protocol (construction is always a single
	// known callee, so the two-phase protocol buys nothing here).
	argc := int(inst.Op2)
	args := make([]*values.Value, argc)
	for i := argc - 1; i >= 0; i-- {
		v, err := frame.pop()
		if err != nil {
			return 0, false, err
		}
		args[i] = v
	}

	if ctor, ok := ec.Registry.ResolveMethod(class, "__construct"); ok {
		if _, err := ec.invokeMethod(obj, class.Name, ctor, args); err != nil {
			return 0, false, err
		}
	}
	frame.push(obj)
	return frame.IP + 1, false, nil
}

func (ec *ExecutionContext) execMethodCallInit(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	methodName := ec.symName(frame, inst.Op1)
	obj, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	if !obj.IsObject() {
		return 0, false, &ThrownError{Value: newThrowable("Error", "Call to a member function "+methodName+"() on non-object")}
	}
	className := obj.Data.(*values.ObjPayload).ClassName
	class, ok := ec.Registry.GetClass(className)
	if !ok {
		return 0, false, &ThrownError{Value: newThrowable("Error", "Class "+className+" not found")}
	}
	m, viaMagic, err := resolveMethodWithVisibility(ec.Registry, class, methodName, frame.ClassScope)
	if err != nil {
		return 0, false, &ThrownError{Value: newThrowable("Error", err.Error())}
	}
	pending := &PendingCall{FuncName: methodName, Method: m, This: obj, ClassScope: className}
	if viaMagic {
		pending.MagicCallName = methodName
	}
	frame.Pending = pending
	return frame.IP + 1, false, nil
}
