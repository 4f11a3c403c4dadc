package runtime

import (
	"github.com/loomphp/loom/registry"
	"github.com/loomphp/loom/symtab"
)

// Engine is the process-lifetime object: one Registry and Extension set
// shared by every request it serves, mirroring the teacher's
// once-per-process Bootstrap/GlobalRegistry pair but instance-scoped
// instead of package-global so cmd/loom-fpm can run independent workers
// in one process without sharing mutable registry state across them.
type Engine struct {
	Registry   *registry.Registry
	Extensions *ExtensionManager
}

// NewEngine constructs a fresh process-lifetime engine: builds the
// registry, registers the built-in Throwable class hierarchy (spec
// §4.J's Error/Exception machinery), and loads every supplied
// extension's ModuleInit in dependency order.
func NewEngine(extensions ...Extension) (*Engine, error) {
	reg := registry.New()
	registerExceptionClasses(reg)

	mgr := NewExtensionManager()
	for _, ext := range extensions {
		if err := mgr.Register(ext); err != nil {
			return nil, err
		}
	}
	if err := mgr.LoadAll(reg); err != nil {
		return nil, err
	}
	return &Engine{Registry: reg, Extensions: mgr}, nil
}

// Shutdown runs every loaded extension's ModuleShutdown in reverse
// order, releasing process-lifetime resources (e.g. pooled DB handles)
// at engine drop.
func (e *Engine) Shutdown() {
	e.Extensions.ModuleShutdownAll()
}

// NewRequest builds a fresh RequestContext bound to this engine's shared
// registry but with its own interner, heap-backing ExecutionContext,
// output/error/superglobal/resource state — the per-request overlay
// spec §4.L describes. sapi supplies the inbound request tuple the
// superglobal manager seeds $_SERVER from.
func (e *Engine) NewRequest(sapi SAPIRequest, sink OutputSink) (*RequestContext, error) {
	interner := symtab.New()
	rc := newRequestContext(e.Registry, interner, sink, sapi)
	if err := e.Extensions.RequestInitAll(rc); err != nil {
		return nil, err
	}
	return rc, nil
}

// EndRequest runs request_shutdown for every extension in reverse order,
// flushes any buffers the user script left open, and drops every
// resource the request still holds, per spec §4.L's end-of-request
// contract.
func (e *Engine) EndRequest(rc *RequestContext) {
	e.Extensions.RequestShutdownAll(rc)
	rc.Output.FlushAll()
	rc.res.DropAll()
}
