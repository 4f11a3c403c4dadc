package vm

import (
	"fmt"
	"strings"

	"github.com/loomphp/loom/values"
)

// coerceReturnType validates (and, under weak typing, coerces) v against
// frame's declared return type before OP_RETURN hands it back to the
// caller, mirroring coerceToTypeHint's scalar-juggling table. A function
// with no declared return type, or whose frame isn't a registered
// user function (the {main} frame, a builtin trampoline), passes v
// through unchanged.
func coerceReturnType(frame *CallFrame, v *values.Value) (*values.Value, error) {
	if frame.Fn == nil || frame.Fn.ReturnType == "" {
		return v, nil
	}
	raw := frame.Fn.ReturnType
	hint := strings.TrimPrefix(raw, "?")
	strict := frame.Chunk != nil && frame.Chunk.StrictTypes

	if strings.EqualFold(hint, "void") {
		if !v.IsNull() {
			return nil, returnTypeError(frame.Fn.Name, "void", v)
		}
		return v, nil
	}

	nullable := raw != hint
	if v.IsNull() {
		if nullable {
			return v, nil
		}
		return nil, returnTypeError(frame.Fn.Name, hint, v)
	}

	switch hint {
	case "mixed":
		return v, nil
	case "int":
		if v.IsInt() {
			return v, nil
		}
		if strict {
			return nil, returnTypeError(frame.Fn.Name, hint, v)
		}
		if v.IsFloat() || v.IsString() || v.IsBool() {
			return values.NewInt(v.ToInt()), nil
		}
		return nil, returnTypeError(frame.Fn.Name, hint, v)
	case "float":
		if v.IsFloat() {
			return v, nil
		}
		if v.IsInt() {
			return values.NewFloat(v.ToFloat()), nil
		}
		if strict {
			return nil, returnTypeError(frame.Fn.Name, hint, v)
		}
		if v.IsString() || v.IsBool() {
			return values.NewFloat(v.ToFloat()), nil
		}
		return nil, returnTypeError(frame.Fn.Name, hint, v)
	case "string":
		if v.IsString() {
			return v, nil
		}
		if strict {
			return nil, returnTypeError(frame.Fn.Name, hint, v)
		}
		if v.IsInt() || v.IsFloat() || v.IsBool() {
			return values.NewString(v.ToString()), nil
		}
		return nil, returnTypeError(frame.Fn.Name, hint, v)
	case "bool":
		if v.IsBool() {
			return v, nil
		}
		if strict {
			return nil, returnTypeError(frame.Fn.Name, hint, v)
		}
		if v.IsInt() || v.IsFloat() || v.IsString() {
			return values.NewBool(v.ToBool()), nil
		}
		return nil, returnTypeError(frame.Fn.Name, hint, v)
	case "array":
		if v.IsArray() {
			return v, nil
		}
		return nil, returnTypeError(frame.Fn.Name, hint, v)
	default:
		// Class/interface return hint: any object is accepted and
		// non-objects are rejected. The object's class is not checked
		// against the hint, here or where the caller receives the value.
		if v.IsObject() {
			return v, nil
		}
		return nil, returnTypeError(frame.Fn.Name, hint, v)
	}
}

func returnTypeError(funcLabel, want string, got *values.Value) error {
	msg := fmt.Sprintf("%s(): Return value must be of type %s, %s returned", funcLabel, want, got.TypeName())
	return &ThrownError{Value: newThrowable("TypeError", msg)}
}
