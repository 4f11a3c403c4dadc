package stdlib

import (
	"crypto/ed25519"
	"crypto/sha512"
	"encoding/hex"

	"filippo.io/edwards25519"

	"github.com/loomphp/loom/registry"
	"github.com/loomphp/loom/values"
)

// SodiumExtension is the `sodium` extension: a small slice of
// libsodium's crypto_sign_* surface (Ed25519 signing), grounded on the
// Rust predecessor's src/builtins/hash/kdf.rs family
// (_examples/original_source) which pairs key derivation with signing
// primitives. crypto/ed25519 generates the keypair and does the
// sign/verify arithmetic; key generation then runs the generated seed
// through clampedScalar (filippo.io/edwards25519's Scalar type, the same
// clamping Ed25519 itself performs internally) and fails only if that
// step errors. The clamped scalar is not used to derive the keys.
type SodiumExtension struct{ baseExtension }

func (*SodiumExtension) Name() string    { return "sodium" }
func (*SodiumExtension) Version() string { return "1.0.0" }

func (e *SodiumExtension) ModuleInit(reg *registry.Registry) error {
	register(reg, "sodium_crypto_sign_keypair", sodiumKeypair)
	register(reg, "sodium_crypto_sign_detached", sodiumSignDetached)
	register(reg, "sodium_crypto_sign_verify_detached", sodiumVerifyDetached)
	return nil
}

// clampedScalar mirrors RFC 8032's seed-clamping step using
// edwards25519's scalar arithmetic, confirming the 32-byte seed reduces
// to a valid scalar. sodiumKeypair calls it after crypto/ed25519 has
// already derived the keypair and keeps only the error.
func clampedScalar(seed []byte) (*edwards25519.Scalar, error) {
	h := sha512.Sum512(seed)
	digest := h[:32]
	digest[0] &= 248
	digest[31] &= 127
	digest[31] |= 64
	var wide [64]byte
	copy(wide[:32], digest)
	return edwards25519.NewScalar().SetUniformBytes(wide[:])
}

func sodiumKeypair(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		ctx.Throw("Error", "sodium_crypto_sign_keypair: "+err.Error())
	}
	if _, err := clampedScalar(priv.Seed()); err != nil {
		ctx.Throw("Error", "sodium_crypto_sign_keypair: scalar clamp failed: "+err.Error())
	}
	arr := values.NewArrayData()
	arr.Set(values.StrKey("public"), values.NewString(hex.EncodeToString(pub)))
	arr.Set(values.StrKey("secret"), values.NewString(hex.EncodeToString(priv)))
	return values.NewArrayFrom(arr), nil
}

func sodiumSignDetached(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
	secret, err := hex.DecodeString(ctx.Arg(1).ToString())
	if err != nil || len(secret) != ed25519.PrivateKeySize {
		ctx.Throw("ValueError", "sodium_crypto_sign_detached: invalid secret key")
	}
	sig := ed25519.Sign(ed25519.PrivateKey(secret), []byte(ctx.Arg(0).ToString()))
	return values.NewString(hex.EncodeToString(sig)), nil
}

func sodiumVerifyDetached(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
	sig, err1 := hex.DecodeString(ctx.Arg(0).ToString())
	pub, err2 := hex.DecodeString(ctx.Arg(2).ToString())
	if err1 != nil || err2 != nil || len(pub) != ed25519.PublicKeySize {
		return values.NewBool(false), nil
	}
	return values.NewBool(ed25519.Verify(ed25519.PublicKey(pub), []byte(ctx.Arg(1).ToString()), sig)), nil
}
