package stdlib

import (
	"strings"

	"github.com/google/uuid"

	"github.com/loomphp/loom/registry"
	"github.com/loomphp/loom/values"
)

// IdentExtension is the `ident` extension: uniqid()/session id
// generation backed by google/uuid rather than the teacher's
// time-plus-random-digits uniqid formula, giving collision resistance
// across the concurrent-request FPM workers actually run under.
type IdentExtension struct{ baseExtension }

func (*IdentExtension) Name() string    { return "ident" }
func (*IdentExtension) Version() string { return "1.0.0" }

func (e *IdentExtension) ModuleInit(reg *registry.Registry) error {
	register(reg, "uniqid", uniqidFn)
	register(reg, "session_create_id", sessionCreateID)
	return nil
}

func uniqidFn(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
	prefix := ""
	if ctx.ArgCount() > 0 {
		prefix = ctx.Arg(0).ToString()
	}
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return values.NewString(prefix + id[:13]), nil
}

func sessionCreateID(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
	return values.NewString(uuid.New().String()), nil
}
