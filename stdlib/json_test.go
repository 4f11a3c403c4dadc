package stdlib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomphp/loom/values"
)

// fakeCallContext is a minimal registry.CallContext for exercising
// built-in function bodies directly, without a running VM.
type fakeCallContext struct {
	args []*values.Value
	this *values.Value
}

func (c *fakeCallContext) Arg(i int) *values.Value {
	if i < 0 || i >= len(c.args) {
		return values.NewNull()
	}
	return c.args[i]
}
func (c *fakeCallContext) ArgCount() int       { return len(c.args) }
func (c *fakeCallContext) This() *values.Value { return c.this }

// Throw panics with the class/message pair, mirroring the real
// builtinCallContext: builtins never return after calling it, relying on
// the dispatcher (here, the test itself via recover) to unwind.
func (c *fakeCallContext) Throw(classAndMessage ...string) { panic(classAndMessage) }
func (c *fakeCallContext) Echo(s string)                   {}

func TestJSONEncode_Scalars(t *testing.T) {
	ctx := &fakeCallContext{args: []*values.Value{values.NewString("hi")}}
	result, err := jsonEncode(ctx, ctx.args)
	require.NoError(t, err)
	assert.Equal(t, `"hi"`, result.Data)
}

func TestJSONEncode_ListArrayBecomesJSONArray(t *testing.T) {
	arr := values.NewArrayData()
	arr.Append(values.NewInt(1))
	arr.Append(values.NewInt(2))
	ctx := &fakeCallContext{args: []*values.Value{values.NewArrayFrom(arr)}}

	result, err := jsonEncode(ctx, ctx.args)
	require.NoError(t, err)
	assert.Equal(t, "[1,2]", result.Data)
}

func TestJSONEncode_AssocArrayPreservesKeyOrder(t *testing.T) {
	arr := values.NewArrayData()
	arr.Set(values.StrKey("b"), values.NewInt(2))
	arr.Set(values.StrKey("a"), values.NewInt(1))
	ctx := &fakeCallContext{args: []*values.Value{values.NewArrayFrom(arr)}}

	result, err := jsonEncode(ctx, ctx.args)
	require.NoError(t, err)
	assert.Equal(t, `{"b":2,"a":1}`, result.Data)
}

func TestJSONEncode_NoArgsReturnsFalse(t *testing.T) {
	ctx := &fakeCallContext{}
	result, err := jsonEncode(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, false, result.Data)
}

func TestJSONDecode_ArrayBecomesListValue(t *testing.T) {
	ctx := &fakeCallContext{args: []*values.Value{values.NewString("[1,2,3]")}}
	result, err := jsonDecode(ctx, ctx.args)
	require.NoError(t, err)
	require.Equal(t, values.Array, result.Type)
	assert.Equal(t, 3, result.AsArray().Len())
}

func TestJSONDecode_ObjectDefaultsToStdClass(t *testing.T) {
	ctx := &fakeCallContext{args: []*values.Value{values.NewString(`{"name":"loom"}`)}}
	result, err := jsonDecode(ctx, ctx.args)
	require.NoError(t, err)
	require.Equal(t, values.Object, result.Type)
	payload := result.Data.(*values.ObjPayload)
	v, ok := payload.Get("name")
	require.True(t, ok)
	assert.Equal(t, "loom", v.Data)
}

func TestJSONDecode_AssocTrueProducesArray(t *testing.T) {
	ctx := &fakeCallContext{args: []*values.Value{values.NewString(`{"name":"loom"}`), values.NewBool(true)}}
	result, err := jsonDecode(ctx, ctx.args)
	require.NoError(t, err)
	require.Equal(t, values.Array, result.Type)
	v, ok := result.AsArray().Get(values.StrKey("name"))
	require.True(t, ok)
	assert.Equal(t, "loom", v.Data)
}

func TestJSONDecode_IntegerFloatsBecomeIntValues(t *testing.T) {
	ctx := &fakeCallContext{args: []*values.Value{values.NewString("42")}}
	result, err := jsonDecode(ctx, ctx.args)
	require.NoError(t, err)
	assert.Equal(t, values.Int, result.Type)
	assert.Equal(t, int64(42), result.Data)
}

func TestJSONDecode_InvalidJSONReturnsNull(t *testing.T) {
	ctx := &fakeCallContext{args: []*values.Value{values.NewString("{not json")}}
	result, err := jsonDecode(ctx, ctx.args)
	require.NoError(t, err)
	assert.Equal(t, values.Null, result.Type)
}

func TestJSONEncode_RoundTripsNestedListInsideAssoc(t *testing.T) {
	inner := values.NewArrayData()
	inner.Append(values.NewInt(1))
	inner.Append(values.NewInt(2))
	outer := values.NewArrayData()
	outer.Set(values.StrKey("items"), values.NewArrayFrom(inner))
	ctx := &fakeCallContext{args: []*values.Value{values.NewArrayFrom(outer)}}

	encoded, err := jsonEncode(ctx, ctx.args)
	require.NoError(t, err)
	assert.Equal(t, `{"items":[1,2]}`, encoded.Data)
}
