package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomphp/loom/registry"
	"github.com/loomphp/loom/values"
)

// fakeCallContext is a minimal registry.CallContext for exercising
// built-in method bodies directly, without a running vm.ExecutionContext.
type fakeCallContext struct {
	args   []*values.Value
	this   *values.Value
	thrown []string
	echoed string
}

func (c *fakeCallContext) Arg(i int) *values.Value {
	if i < 0 || i >= len(c.args) {
		return values.NewNull()
	}
	return c.args[i]
}
func (c *fakeCallContext) ArgCount() int                   { return len(c.args) }
func (c *fakeCallContext) This() *values.Value             { return c.this }
func (c *fakeCallContext) Throw(classAndMessage ...string) { c.thrown = classAndMessage }
func (c *fakeCallContext) Echo(s string)                   { c.echoed += s }

func newThrowableInstance(t *testing.T, reg *registry.Registry, className string) *values.Value {
	t.Helper()
	_, ok := reg.GetClass(className)
	require.True(t, ok, "class %s not registered", className)
	payload := values.NewObjPayload(className)
	return &values.Value{Type: values.Object, Data: payload}
}

func TestRegisterExceptionClasses_HierarchyMatchesPHP(t *testing.T) {
	reg := registry.New()
	registerExceptionClasses(reg)

	assert.True(t, reg.IsInstanceOf("InvalidArgumentException", "LogicException"))
	assert.True(t, reg.IsInstanceOf("InvalidArgumentException", "Exception"))
	assert.True(t, reg.IsInstanceOf("DivisionByZeroError", "ArithmeticError"))
	assert.True(t, reg.IsInstanceOf("DivisionByZeroError", "Error"))
	assert.True(t, reg.IsInstanceOf("TypeError", "Throwable"))
	assert.True(t, reg.IsInstanceOf("Exception", "Throwable"))

	assert.False(t, reg.IsInstanceOf("Exception", "Error"))
	assert.False(t, reg.IsInstanceOf("Error", "Exception"))
}

func TestThrowableConstruct_SetsMessageCodeAndPrevious(t *testing.T) {
	reg := registry.New()
	registerExceptionClasses(reg)

	obj := newThrowableInstance(t, reg, "RuntimeException")
	class, _ := reg.GetClass("RuntimeException")
	construct, ok := reg.ResolveMethod(class, "__construct")
	require.True(t, ok)

	ctx := &fakeCallContext{this: obj, args: []*values.Value{values.NewString("boom"), values.NewInt(7)}}
	_, err := construct.Builtin(ctx, ctx.args)
	require.NoError(t, err)

	payload := obj.Data.(*values.ObjPayload)
	msg, _ := payload.Get("message")
	assert.Equal(t, "boom", msg.Data)
	code, _ := payload.Get("code")
	assert.Equal(t, int64(7), code.Data)
}

func TestThrowableAccessors_ReturnStoredValues(t *testing.T) {
	reg := registry.New()
	registerExceptionClasses(reg)

	obj := newThrowableInstance(t, reg, "Exception")
	class, _ := reg.GetClass("Exception")
	construct, _ := reg.ResolveMethod(class, "__construct")
	ctx := &fakeCallContext{this: obj, args: []*values.Value{values.NewString("oops")}}
	_, err := construct.Builtin(ctx, ctx.args)
	require.NoError(t, err)

	getMessage, ok := reg.ResolveMethod(class, "getmessage")
	require.True(t, ok)
	result, err := getMessage.Builtin(&fakeCallContext{this: obj}, nil)
	require.NoError(t, err)
	assert.Equal(t, "oops", result.Data)
}

func TestThrowableToString_IncludesClassNameAndMessage(t *testing.T) {
	reg := registry.New()
	registerExceptionClasses(reg)

	obj := newThrowableInstance(t, reg, "Exception")
	class, _ := reg.GetClass("Exception")
	construct, _ := reg.ResolveMethod(class, "__construct")
	ctx := &fakeCallContext{this: obj, args: []*values.Value{values.NewString("bad input")}}
	_, err := construct.Builtin(ctx, ctx.args)
	require.NoError(t, err)

	toString, ok := reg.ResolveMethod(class, "__tostring")
	require.True(t, ok)
	result, err := toString.Builtin(&fakeCallContext{this: obj}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Exception: bad input", result.Data)
}
