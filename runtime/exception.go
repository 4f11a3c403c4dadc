package runtime

import (
	"fmt"

	"github.com/loomphp/loom/registry"
	"github.com/loomphp/loom/values"
)

// registerExceptionClasses builds the built-in Throwable hierarchy
// (spec §4.J): Exception and Error as independent roots (matching PHP's
// actual split — neither extends the other, both implement Throwable
// implicitly via registry.IsInstanceOf's special case), plus the common
// SPL/engine subtypes the dispatcher's newThrowable helper already
// raises by name (TypeError, ValueError, ArgumentCountError,
// DivisionByZeroError, ArithmeticError). Every class shares the same
// constructor/accessor methods, grounded on the teacher's
// exception.go/exception_helpers.go Throwable surface, adapted to this
// engine's ObjPayload-backed object representation instead of a
// dedicated exception struct.
func registerExceptionClasses(reg *registry.Registry) {
	exception := buildThrowableClass("Exception", "")
	reg.RegisterClass(exception)
	reg.RegisterClass(buildThrowableClass("RuntimeException", "Exception"))
	reg.RegisterClass(buildThrowableClass("LogicException", "Exception"))
	reg.RegisterClass(buildThrowableClass("InvalidArgumentException", "LogicException"))
	reg.RegisterClass(buildThrowableClass("OutOfRangeException", "LogicException"))
	reg.RegisterClass(buildThrowableClass("OutOfBoundsException", "RuntimeException"))
	reg.RegisterClass(buildThrowableClass("LengthException", "LogicException"))
	reg.RegisterClass(buildThrowableClass("DomainException", "LogicException"))
	reg.RegisterClass(buildThrowableClass("RangeException", "RuntimeException"))
	reg.RegisterClass(buildThrowableClass("OverflowException", "RuntimeException"))
	reg.RegisterClass(buildThrowableClass("UnderflowException", "RuntimeException"))
	reg.RegisterClass(buildThrowableClass("UnexpectedValueException", "RuntimeException"))

	err := buildThrowableClass("Error", "")
	reg.RegisterClass(err)
	reg.RegisterClass(buildThrowableClass("TypeError", "Error"))
	reg.RegisterClass(buildThrowableClass("ValueError", "Error"))
	reg.RegisterClass(buildThrowableClass("ArgumentCountError", "TypeError"))
	reg.RegisterClass(buildThrowableClass("ArithmeticError", "Error"))
	reg.RegisterClass(buildThrowableClass("DivisionByZeroError", "ArithmeticError"))
	reg.RegisterClass(buildThrowableClass("UnhandledMatchError", "Error"))
	reg.RegisterClass(buildThrowableClass("AssertionError", "Error"))
}

func throwableAccessor(prop string, def *values.Value) registry.BuiltinFunc {
	return func(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
		this := ctx.This()
		if this == nil || !this.IsObject() {
			return def, nil
		}
		payload, ok := this.Data.(*values.ObjPayload)
		if !ok {
			return def, nil
		}
		if v, ok := payload.Get(prop); ok {
			return v, nil
		}
		return def, nil
	}
}

func buildThrowableClass(name, parentName string) *registry.Class {
	c := &registry.Class{
		Name:        name,
		ParentName:  parentName,
		Methods:     make(map[string]*registry.Method),
		StaticProps: make(map[string]*values.Value),
	}

	construct := &registry.Method{DeclaringClass: name}
	construct.Name = "__construct"
	construct.Builtin = func(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
		this := ctx.This()
		if this == nil || !this.IsObject() {
			return values.NewNull(), nil
		}
		payload := this.Data.(*values.ObjPayload)
		message := values.NewString("")
		if ctx.ArgCount() > 0 {
			message = ctx.Arg(0)
		}
		code := values.NewInt(0)
		if ctx.ArgCount() > 1 {
			code = ctx.Arg(1)
		}
		previous := values.NewNull()
		if ctx.ArgCount() > 2 {
			previous = ctx.Arg(2)
		}
		payload.Set("message", message)
		payload.Set("code", code)
		payload.Set("previous", previous)
		payload.Set("file", values.NewString(""))
		payload.Set("line", values.NewInt(0))
		return values.NewNull(), nil
	}
	c.Methods["__construct"] = construct

	accessors := []struct {
		method, prop string
		def          *values.Value
	}{
		{"getmessage", "message", values.NewString("")},
		{"getcode", "code", values.NewInt(0)},
		{"getfile", "file", values.NewString("")},
		{"getline", "line", values.NewInt(0)},
		{"getprevious", "previous", values.NewNull()},
	}
	for _, a := range accessors {
		m := &registry.Method{DeclaringClass: name}
		m.Name = a.method
		m.Builtin = throwableAccessor(a.prop, a.def)
		c.Methods[a.method] = m
	}

	getTrace := &registry.Method{DeclaringClass: name}
	getTrace.Name = "gettrace"
	getTrace.Builtin = func(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
		return values.NewArray(), nil
	}
	c.Methods["gettrace"] = getTrace

	getTraceStr := &registry.Method{DeclaringClass: name}
	getTraceStr.Name = "gettraceasstring"
	getTraceStr.Builtin = func(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
		return values.NewString("#0 {main}"), nil
	}
	c.Methods["gettraceasstring"] = getTraceStr

	toString := &registry.Method{DeclaringClass: name}
	toString.Name = "__tostring"
	toString.Builtin = func(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
		this := ctx.This()
		msg := ""
		if this != nil && this.IsObject() {
			if payload, ok := this.Data.(*values.ObjPayload); ok {
				if v, ok := payload.Get("message"); ok {
					msg = v.ToString()
				}
			}
		}
		return values.NewString(fmt.Sprintf("%s: %s", name, msg)), nil
	}
	c.Methods["__tostring"] = toString

	return c
}
