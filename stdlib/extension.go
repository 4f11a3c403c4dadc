// Package stdlib is the curated set of built-in extensions the engine
// ships, registered through the same Extension lifecycle (component K)
// a third-party extension author would use. It replaces the teacher's
// flat per-domain function-catalogue files (string.go, math.go, ...)
// with a small set of extensions grounded in the Rust predecessor's
// runtime/*_extension.rs split, wiring the DOMAIN STACK dependencies
// rather than reimplementing the full PHP standard library (out of
// scope: individual stdlib function bodies beyond the registration
// protocol itself).
package stdlib

import (
	"github.com/loomphp/loom/registry"
	"github.com/loomphp/loom/runtime"
)

// baseExtension supplies no-op RequestInit/RequestShutdown/
// ModuleShutdown/Dependencies so each concrete extension below only
// has to implement Name/Version/ModuleInit, mirroring how most of the
// teacher's extensions carried no per-request state either.
type baseExtension struct{}

func (baseExtension) Dependencies() []string                       { return nil }
func (baseExtension) RequestInit(rc *runtime.RequestContext) error { return nil }
func (baseExtension) RequestShutdown(rc *runtime.RequestContext)   {}
func (baseExtension) ModuleShutdown()                              {}

// register is a small helper so each extension's ModuleInit reads as a
// flat list of {name, builtin} pairs instead of repeating the
// registry.Function literal boilerplate.
func register(reg *registry.Registry, name string, fn registry.BuiltinFunc) {
	reg.RegisterFunction(&registry.Function{Name: name, Builtin: fn})
}

// Extensions returns every built-in extension this engine ships, in the
// order cmd/loom and pkg/fpm register them with a runtime.Engine. Order
// does not matter for correctness (ExtensionManager topologically
// sorts by Dependencies), but listing them together here gives
// bootstrap code a single import.
func Extensions() []runtime.Extension {
	return []runtime.Extension{
		&JSONExtension{},
		&MBStringExtension{},
		&ZlibExtension{},
		&ExampleExtension{},
		&HashExtension{},
		&PCREExtension{},
		&DateTimeExtension{},
		&MysqliExtension{},
		&SodiumExtension{},
		&FormatExtension{},
		&IdentExtension{},
	}
}
