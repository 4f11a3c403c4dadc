package vm

import (
	"fmt"

	"github.com/loomphp/loom/chunk"
	"github.com/loomphp/loom/registry"
)

// resolveSelfParentStatic turns the `self`/`parent`/`static` class-name
// tokens a FETCH_CLASS_CONSTANT/NEW/STATIC_METHOD_CALL opcode may carry
// into a concrete class name, using the current frame's lexical scope
// (ClassScope, i.e. `self`) and late-static-binding scope (CalledScope,
// i.e. `static`).
func resolveSelfParentStatic(frame *CallFrame, reg *registry.Registry, name string) (string, error) {
	switch name {
	case "self":
		if frame.ClassScope == "" {
			return "", newEngineError("resolve", "self used outside class context")
		}
		return frame.ClassScope, nil
	case "static":
		if frame.CalledScope != "" {
			return frame.CalledScope, nil
		}
		return frame.ClassScope, nil
	case "parent":
		if frame.ClassScope == "" {
			return "", newEngineError("resolve", "parent used outside class context")
		}
		c, ok := reg.GetClass(frame.ClassScope)
		if !ok || c.ParentName == "" {
			return "", newEngineError("resolve", fmt.Sprintf("%s has no parent", frame.ClassScope))
		}
		return c.ParentName, nil
	default:
		return name, nil
	}
}

// checkVisibility enforces public/protected/private access rules for a
// method or property access originating from accessingClass (the class
// whose code is currently executing, "" for top-level/outside-any-class
// code). Private members are only visible from the exact declaring
// class; protected members are visible from the declaring class and any
// of its subclasses.
func checkVisibility(reg *registry.Registry, vis chunk.Visibility, declaringClass, accessingClass string) bool {
	switch vis {
	case chunk.Public:
		return true
	case chunk.Private:
		return accessingClass == declaringClass
	case chunk.Protected:
		if accessingClass == declaringClass {
			return true
		}
		if accessingClass == "" {
			return false
		}
		return reg.IsInstanceOf(accessingClass, declaringClass) || reg.IsInstanceOf(declaringClass, accessingClass)
	default:
		return false
	}
}

// resolveMethodWithVisibility finds the nearest-ancestor method named
// name on class c and checks it is callable from accessingClass,
// returning the standardized visibility-error wording when it is not. A
// miss (undeclared or inaccessible) consults the class's __call fallback
// before failing, per the magic-method dispatch rule; viaMagic
// reports whether the returned Method is __call standing in for name.
func resolveMethodWithVisibility(reg *registry.Registry, c *registry.Class, name, accessingClass string) (m *registry.Method, viaMagic bool, err error) {
	m, ok := reg.ResolveMethod(c, name)
	if !ok {
		if call, ok := reg.ResolveMethod(c, "__call"); ok {
			return call, true, nil
		}
		return nil, false, fmt.Errorf("Call to undefined method %s::%s()", c.Name, name)
	}
	if !checkVisibility(reg, m.Visibility, m.DeclaringClass, accessingClass) {
		if call, ok := reg.ResolveMethod(c, "__call"); ok {
			return call, true, nil
		}
		return nil, false, visibilityError(m.Visibility, "method", m.DeclaringClass, "::", name)
	}
	return m, false, nil
}

// visibilityError renders the standardized access-violation message:
// "Cannot access <vis> <kind> <Class><sep><member>", kind one of
// constant/method/property and sep "::" for methods/constants or "::$"
// for static properties.
func visibilityError(vis chunk.Visibility, kind, class, sep, member string) error {
	return fmt.Errorf("Cannot access %s %s %s%s%s", vis, kind, class, sep, member)
}
