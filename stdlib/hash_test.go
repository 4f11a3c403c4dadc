package stdlib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomphp/loom/values"
)

func TestHashFn_MD5KnownVector(t *testing.T) {
	ctx := &fakeCallContext{args: []*values.Value{values.NewString("md5"), values.NewString("")}}
	result, err := hashFn(ctx, ctx.args)
	require.NoError(t, err)
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", result.Data)
}

func TestHashFn_Sha256KnownVector(t *testing.T) {
	ctx := &fakeCallContext{args: []*values.Value{values.NewString("sha256"), values.NewString("abc")}}
	result, err := hashFn(ctx, ctx.args)
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", result.Data)
}

func TestHashFn_UnknownAlgorithmThrows(t *testing.T) {
	ctx := &fakeCallContext{args: []*values.Value{values.NewString("bogus"), values.NewString("x")}}

	var thrown interface{}
	func() {
		defer func() { thrown = recover() }()
		hashFn(ctx, ctx.args)
	}()

	require.NotNil(t, thrown)
	assert.Equal(t, []string{"ValueError", "Unknown hashing algorithm: bogus"}, thrown)
}

func TestHashHmac_HexByDefault(t *testing.T) {
	ctx := &fakeCallContext{args: []*values.Value{
		values.NewString("sha256"), values.NewString("message"), values.NewString("secret"),
	}}
	result, err := hashHmac(ctx, ctx.args)
	require.NoError(t, err)
	assert.Len(t, result.Data.(string), 64)
}

func TestHashHmac_RawOutputWhenRequested(t *testing.T) {
	ctx := &fakeCallContext{args: []*values.Value{
		values.NewString("sha256"), values.NewString("message"), values.NewString("secret"), values.NewBool(true),
	}}
	result, err := hashHmac(ctx, ctx.args)
	require.NoError(t, err)
	assert.Len(t, result.Data.(string), 32)
}

func TestPasswordHashAndVerify_RoundTrip(t *testing.T) {
	hashCtx := &fakeCallContext{args: []*values.Value{values.NewString("correct horse")}}
	hashed, err := passwordHash(hashCtx, hashCtx.args)
	require.NoError(t, err)

	verifyCtx := &fakeCallContext{args: []*values.Value{values.NewString("correct horse"), hashed}}
	ok, err := passwordVerify(verifyCtx, verifyCtx.args)
	require.NoError(t, err)
	assert.True(t, ok.AsBool())

	wrongCtx := &fakeCallContext{args: []*values.Value{values.NewString("wrong"), hashed}}
	ok, err = passwordVerify(wrongCtx, wrongCtx.args)
	require.NoError(t, err)
	assert.False(t, ok.AsBool())
}

func TestPasswordVerify_MalformedHashReturnsFalse(t *testing.T) {
	ctx := &fakeCallContext{args: []*values.Value{values.NewString("x"), values.NewString("not-a-hash")}}
	ok, err := passwordVerify(ctx, ctx.args)
	require.NoError(t, err)
	assert.False(t, ok.AsBool())
}
