package stdlib

import (
	"github.com/loomphp/loom/registry"
	"github.com/loomphp/loom/runtime"
	"github.com/loomphp/loom/values"
)

// ExampleExtension is a template showing third-party extension authors
// the registration protocol (spec §4.K): a handful of functions plus a
// single counter that RequestInit increments once per request. The
// counter lives on the extension value for the engine's lifetime and is
// never reset. Grounded on the Rust predecessor's
// runtime/example_extension.rs (_examples/original_source), which
// exists purely as that same worked example rather than shipping any
// real functionality.
type ExampleExtension struct {
	baseExtension
	requests int
}

func (*ExampleExtension) Name() string           { return "example" }
func (*ExampleExtension) Version() string        { return "1.0.0" }
func (*ExampleExtension) Dependencies() []string { return nil }

func (e *ExampleExtension) ModuleInit(reg *registry.Registry) error {
	register(reg, "example_hello", exampleHello)
	register(reg, "example_request_count", func(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
		return values.NewInt(int64(e.requests)), nil
	})
	return nil
}

func (e *ExampleExtension) RequestInit(rc *runtime.RequestContext) error {
	e.requests++
	return nil
}

func exampleHello(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
	name := "world"
	if ctx.ArgCount() > 0 {
		name = ctx.Arg(0).ToString()
	}
	return values.NewString("hello, " + name), nil
}
