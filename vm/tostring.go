package vm

import (
	"fmt"

	"github.com/loomphp/loom/values"
)

// stringify implements PHP's object-to-string coercion (values.Value.
// ToString handles every other type directly): an Object value resolves
// and calls its class's __toString method, and a class with none throws
// rather than falling back to the "<ClassName>" placeholder.
func (ec *ExecutionContext) stringify(v *values.Value) (string, error) {
	if !v.IsObject() {
		return v.ToString(), nil
	}
	payload := v.Data.(*values.ObjPayload)
	class, ok := ec.Registry.GetClass(payload.ClassName)
	if ok {
		if m, ok := ec.Registry.ResolveMethod(class, "__tostring"); ok {
			result, err := ec.invokeMethod(v, class.Name, m, nil)
			if err != nil {
				return "", err
			}
			return result.ToString(), nil
		}
	}
	return "", &ThrownError{Value: newThrowable("Error",
		fmt.Sprintf("Object of class %s could not be converted to string", payload.ClassName))}
}

// concat implements `.`/`.=`, routing either operand through stringify
// so an object with __toString participates instead of rendering as the
// bare "<ClassName>" placeholder values.Concat falls back to.
func (ec *ExecutionContext) concat(a, b *values.Value) (*values.Value, error) {
	as, err := ec.stringify(a)
	if err != nil {
		return nil, err
	}
	bs, err := ec.stringify(b)
	if err != nil {
		return nil, err
	}
	return values.NewString(as + bs), nil
}
