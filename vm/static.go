package vm

import (
	"fmt"

	"github.com/loomphp/loom/chunk"
	"github.com/loomphp/loom/opcodes"
	"github.com/loomphp/loom/registry"
	"github.com/loomphp/loom/values"
)

// resolveStaticPropOwner finds the nearest ancestor (starting at c) that
// declares static property name, mirroring registry.ResolveProperty but
// over the StaticProps table so every subclass observes the same shared
// cell unless it redeclares the property itself.
func resolveStaticPropOwner(reg *registry.Registry, c *registry.Class, name string) (*registry.Class, bool) {
	for cur := c; cur != nil; {
		if _, ok := cur.StaticProps[name]; ok {
			return cur, true
		}
		if cur.ParentName == "" {
			return nil, false
		}
		parent, ok := reg.GetClass(cur.ParentName)
		if !ok {
			return nil, false
		}
		cur = parent
	}
	return nil, false
}

func resolveClassConstant(reg *registry.Registry, c *registry.Class, name string) (*chunk.ConstantDecl, bool) {
	for cur := c; cur != nil; {
		if v, ok := cur.Constants[name]; ok {
			return v, true
		}
		if cur.ParentName == "" {
			return nil, false
		}
		parent, ok := reg.GetClass(cur.ParentName)
		if !ok {
			return nil, false
		}
		cur = parent
	}
	return nil, false
}

func (ec *ExecutionContext) resolveClassOperand(frame *CallFrame, symID uint32) (*registry.Class, string, error) {
	name, err := resolveSelfParentStatic(frame, ec.Registry, ec.symName(frame, symID))
	if err != nil {
		return nil, "", err
	}
	c, ok := ec.Registry.GetClass(name)
	if !ok {
		return nil, "", &ThrownError{Value: newThrowable("Error", fmt.Sprintf("Class %q not found", name))}
	}
	return c, name, nil
}

func (ec *ExecutionContext) execFetchStaticProp(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	class, _, err := ec.resolveClassOperand(frame, inst.Op1)
	if err != nil {
		return 0, false, err
	}
	propName := ec.symName(frame, inst.Op2)
	if decl, ok := ec.Registry.ResolveProperty(class, propName); ok {
		if !checkVisibility(ec.Registry, decl.Visibility, decl.DeclaringClass, frame.ClassScope) {
			return 0, false, &ThrownError{Value: newThrowable("Error", visibilityError(decl.Visibility, "property", decl.DeclaringClass, "::$", propName).Error())}
		}
	}
	owner, ok := resolveStaticPropOwner(ec.Registry, class, propName)
	if !ok {
		if inst.Opcode == opcodes.OP_FETCH_STATIC_PROP_W {
			class.StaticProps[propName] = values.NewNull()
			owner = class
		} else {
			frame.push(values.NewNull())
			return frame.IP + 1, false, nil
		}
	}
	frame.push(owner.StaticProps[propName])
	return frame.IP + 1, false, nil
}

func (ec *ExecutionContext) execAssignStaticProp(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	v, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	class, _, err := ec.resolveClassOperand(frame, inst.Op1)
	if err != nil {
		return 0, false, err
	}
	propName := ec.symName(frame, inst.Op2)
	if decl, ok := ec.Registry.ResolveProperty(class, propName); ok {
		if !checkVisibility(ec.Registry, decl.Visibility, decl.DeclaringClass, frame.ClassScope) {
			return 0, false, &ThrownError{Value: newThrowable("Error", visibilityError(decl.Visibility, "property", decl.DeclaringClass, "::$", propName).Error())}
		}
	}
	owner, ok := resolveStaticPropOwner(ec.Registry, class, propName)
	if !ok {
		owner = class
	}
	if inst.Opcode == opcodes.OP_ASSIGN_STATIC_PROP_OP {
		cur := owner.StaticProps[propName]
		if cur == nil {
			cur = values.NewNull()
		}
		v, err = ec.combineOp(opcodes.Opcode(inst.Result), cur, v)
		if err != nil {
			if err == values.ErrDivisionByZero {
				return 0, false, &ThrownError{Value: newThrowable("DivisionByZeroError", "Division by zero")}
			}
			return 0, false, err
		}
	} else if v.IsArray() {
		v.AsArray().MarkShared()
	}
	owner.StaticProps[propName] = v
	frame.push(v)
	return frame.IP + 1, false, nil
}

func (ec *ExecutionContext) execFetchClassConstant(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	class, _, err := ec.resolveClassOperand(frame, inst.Op1)
	if err != nil {
		return 0, false, err
	}
	constName := ec.symName(frame, inst.Op2)
	decl, ok := resolveClassConstant(ec.Registry, class, constName)
	if !ok {
		return 0, false, &ThrownError{Value: newThrowable("Error", fmt.Sprintf("Undefined constant %s::%s", class.Name, constName))}
	}
	if !checkVisibility(ec.Registry, decl.Visibility, decl.DeclaringClass, frame.ClassScope) {
		return 0, false, &ThrownError{Value: newThrowable("Error", visibilityError(decl.Visibility, "constant", decl.DeclaringClass, "::", constName).Error())}
	}
	frame.push(decl.Value)
	return frame.IP + 1, false, nil
}

// execStaticMethodCallInit resolves `Class::method()` (including self::/
// parent::/static:: tokens) and stages a PendingCall the way
// execMethodCallInit does for instance calls. $this carries through
// unchanged so `parent::method()` inside an instance method still sees
// the calling object, matching PHP's forwarding-call semantics.
func (ec *ExecutionContext) execStaticMethodCallInit(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	class, className, err := ec.resolveClassOperand(frame, inst.Op1)
	if err != nil {
		return 0, false, err
	}
	methodName := ec.symName(frame, inst.Op2)
	m, viaMagic, err := resolveMethodWithVisibility(ec.Registry, class, methodName, frame.ClassScope)
	if err != nil {
		return 0, false, &ThrownError{Value: newThrowable("Error", err.Error())}
	}
	calledScope := className
	if frame.CalledScope != "" && ec.Registry.IsInstanceOf(frame.CalledScope, className) {
		calledScope = frame.CalledScope
	}
	pending := &PendingCall{FuncName: methodName, Method: m, This: frame.This, ClassScope: calledScope}
	if viaMagic {
		pending.MagicCallName = methodName
	}
	frame.Pending = pending
	return frame.IP + 1, false, nil
}
