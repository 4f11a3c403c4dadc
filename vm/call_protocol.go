package vm

import (
	"fmt"
	"strings"

	"github.com/loomphp/loom/chunk"
	"github.com/loomphp/loom/values"
)

// ThrownError wraps a script-level Throwable object being propagated by
// the dispatcher. It is the bridge between Go's error-return plumbing
// inside call_protocol helpers and the exception machinery's try-chain
// scan, which unwraps this back into the *values.Value it holds.
type ThrownError struct {
	Value *values.Value
}

func (t *ThrownError) Error() string {
	if t.Value == nil {
		return "thrown value"
	}
	if p, ok := t.Value.Data.(*values.ObjPayload); ok {
		if msg, ok := p.Get("message"); ok {
			return p.ClassName + ": " + msg.ToString()
		}
		return p.ClassName
	}
	return t.Value.ToString()
}

// newThrowable constructs a Throwable-shaped object value, used by
// call_protocol and arithmetic error paths to raise standardized engine
// exceptions (TypeError, ArgumentCountError, DivisionByZeroError, ...)
// without depending on the runtime package's exception class table.
func newThrowable(class, message string) *values.Value {
	p := values.NewObjPayload(class)
	p.Set("message", values.NewString(message))
	return &values.Value{Type: values.Object, Data: p}
}

// bindArguments implements the callee side of the call protocol
// (RECV/RECV_INIT/RECV_VARIADIC): it allocates heap cells for each
// declared parameter from the supplied arguments, applying defaults,
// variadic collection, and scalar type-hint coercion gated by the
// caller's strict_types mode (component H).
func bindArguments(ec *ExecutionContext, frame *CallFrame, params []chunk.Param, args []*values.Value, callerStrict bool, funcLabel string) error {
	required := 0
	for _, p := range params {
		if !p.HasDefault && !p.Variadic {
			required++
		}
	}
	if len(args) < required {
		return &ThrownError{Value: newThrowable("ArgumentCountError",
			fmt.Sprintf("Too few arguments to function %s(), %d passed and at least %d expected", funcLabel, len(args), required))}
	}

	for i, p := range params {
		if p.Variadic {
			rest := values.NewArray()
			arr := rest.AsArray()
			for j := i; j < len(args); j++ {
				if args[j].IsArray() {
					args[j].AsArray().MarkShared()
				}
				arr.Append(args[j])
			}
			frame.Locals[p.Name] = ec.Heap.Alloc(rest)
			return nil
		}
		var v *values.Value
		switch {
		case i < len(args):
			v = args[i]
		case p.HasDefault:
			v = p.Default
		default:
			return &ThrownError{Value: newThrowable("ArgumentCountError",
				fmt.Sprintf("Too few arguments to function %s(), %d passed and at least %d expected", funcLabel, len(args), required))}
		}
		coerced, err := coerceToTypeHint(v, p, callerStrict, p.Name, i+1)
		if err != nil {
			return err
		}
		// A by-value array parameter may alias the caller's own array
		// cell (the argument expression was a bare variable fetch); mark
		// it shared so the callee's first in-place mutation clones
		// instead of mutating the caller's array too.
		if !p.ByRef && coerced.IsArray() {
			coerced.AsArray().MarkShared()
		}
		frame.Locals[p.Name] = ec.Heap.Alloc(coerced)
	}
	return nil
}

// coerceToTypeHint implements §4.E/H's scalar type-juggling-at-the-
// boundary rule: under weak typing, scalar args are coerced to the
// declared hint when the conversion is lossless-ish (PHP's usual
// int/float/string/bool coercion table); under strict_types, only the
// standard-scalar-type-hierarchy (SSTH) exception of int->float widening
// is allowed, anything else mismatched throws a TypeError.
func coerceToTypeHint(v *values.Value, p chunk.Param, strict bool, paramName string, pos int) (*values.Value, error) {
	hint := strings.TrimPrefix(p.TypeHint, "?")
	if hint == "" {
		return v, nil
	}
	nullable := p.Nullable || strings.HasPrefix(p.TypeHint, "?")
	if v.IsNull() {
		if nullable || p.HasDefault {
			return v, nil
		}
		return nil, typeError(paramName, pos, hint, v)
	}

	switch hint {
	case "mixed":
		return v, nil
	case "int":
		if v.IsInt() {
			return v, nil
		}
		if strict {
			return nil, typeError(paramName, pos, hint, v)
		}
		if v.IsFloat() || v.IsString() || v.IsBool() {
			return values.NewInt(v.ToInt()), nil
		}
		return nil, typeError(paramName, pos, hint, v)
	case "float":
		if v.IsFloat() {
			return v, nil
		}
		if v.IsInt() {
			return values.NewFloat(v.ToFloat()), nil
		}
		if strict {
			return nil, typeError(paramName, pos, hint, v)
		}
		if v.IsString() || v.IsBool() {
			return values.NewFloat(v.ToFloat()), nil
		}
		return nil, typeError(paramName, pos, hint, v)
	case "string":
		if v.IsString() {
			return v, nil
		}
		if strict {
			return nil, typeError(paramName, pos, hint, v)
		}
		if v.IsInt() || v.IsFloat() || v.IsBool() {
			return values.NewString(v.ToString()), nil
		}
		return nil, typeError(paramName, pos, hint, v)
	case "bool":
		if v.IsBool() {
			return v, nil
		}
		if strict {
			return nil, typeError(paramName, pos, hint, v)
		}
		if v.IsInt() || v.IsFloat() || v.IsString() {
			return values.NewBool(v.ToBool()), nil
		}
		return nil, typeError(paramName, pos, hint, v)
	case "array":
		if v.IsArray() {
			return v, nil
		}
		return nil, typeError(paramName, pos, hint, v)
	default:
		// Class/interface type hint: any object is accepted and
		// non-objects are rejected. The object's class is not checked
		// against the hint, here or at the call site.
		if v.IsObject() {
			return v, nil
		}
		return nil, typeError(paramName, pos, hint, v)
	}
}

// typeError renders the standardized coercion-failure message: "Argument
// #<n> ($<name>) must be of type <T>, <got> given".
func typeError(paramName string, pos int, want string, got *values.Value) error {
	msg := fmt.Sprintf("Argument #%d ($%s) must be of type %s, %s given", pos, paramName, want, got.TypeName())
	return &ThrownError{Value: newThrowable("TypeError", msg)}
}
