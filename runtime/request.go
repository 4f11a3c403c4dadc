package runtime

import (
	"reflect"

	"github.com/loomphp/loom/registry"
	"github.com/loomphp/loom/symtab"
	"github.com/loomphp/loom/values"
	"github.com/loomphp/loom/vm"
)

// HeaderEntry is one recorded outbound HTTP header; per spec §4.L these
// are only recorded here, actual transmission is the SAPI's concern.
type HeaderEntry struct {
	Name  string
	Value string
}

// RequestContext is the per-request state of spec §4.L: it owns the
// request's interner, superglobal set, output/error/resource
// subsystems, the extension_data type-keyed store, and the
// vm.ExecutionContext user bytecode actually runs against. It
// implements vm.RequestHost directly, which is what lets
// vm.NewExecutionContext drive output/errors/superglobals/resources
// without vm importing this package (see vm/context.go's RequestHost
// doc comment on avoiding the import cycle).
type RequestContext struct {
	Registry *registry.Registry
	Interner *symtab.Interner
	Exec     *vm.ExecutionContext

	Output  *OutputBufferStack
	Errors  *ErrorReporter
	globals *superglobalSet
	res     *ResourceManager

	HTTPStatus int
	Headers    []HeaderEntry

	extData map[reflect.Type]interface{}
}

func newRequestContext(reg *registry.Registry, interner *symtab.Interner, sink OutputSink, sapi SAPIRequest) *RequestContext {
	rc := &RequestContext{
		Registry: reg,
		Interner: interner,
		Output:   newOutputBufferStack(sink),
		Errors:   newErrorReporter(writerAdaptor{sink}),
		globals:  installSuperglobals(sapi),
		res:      newResourceManager(),
		extData:  make(map[reflect.Type]interface{}),
	}
	rc.Exec = vm.NewExecutionContext(reg, interner, rc)
	return rc
}

// writerAdaptor lets the same OutputSink double as an ErrorSink; the
// CLI/FPM SAPIs that wire a RequestContext may choose to point these at
// different underlying streams by passing distinct sinks into
// Engine.NewRequest and overriding rc.Errors afterward.
type writerAdaptor struct{ OutputSink }

// ExtensionData retrieves this request's typed per-extension state,
// keyed by the pointer type of zero, matching spec §4.L's "type-keyed
// store" contract. ok is false the first time an extension asks.
func ExtensionData[T any](rc *RequestContext) (T, bool) {
	var zero T
	t := reflect.TypeOf(zero)
	v, ok := rc.extData[t]
	if !ok {
		return zero, false
	}
	return v.(T), true
}

// SetExtensionData stores v under its own type, for later retrieval by
// ExtensionData[T].
func SetExtensionData[T any](rc *RequestContext, v T) {
	rc.extData[reflect.TypeOf(v)] = v
}

// --- vm.RequestHost ---

func (rc *RequestContext) Echo(s string) { rc.Output.Write(s) }

func (rc *RequestContext) TriggerError(level string, message string) {
	rc.Errors.Report(errorLevelFromString(level), message)
}

func errorLevelFromString(level string) ErrorLevel {
	switch level {
	case "warning", "Warning":
		return LevelWarning
	case "deprecated", "Deprecated":
		return LevelDeprecated
	case "error", "Error":
		return LevelError
	default:
		return LevelNotice
	}
}

func (rc *RequestContext) Superglobal(name string) *values.Value {
	if v, ok := rc.globals.get(name); ok {
		return v
	}
	return values.NewNull()
}

// SetSuperglobal assigns a superglobal array wholesale; this setter is
// for the eight `$_NAME` arrays. It does not check for $GLOBALS, and no
// opcode in the dispatcher rejects a reassignment of $GLOBALS either.
func (rc *RequestContext) SetSuperglobal(name string, v *values.Value) {
	rc.globals.set(name, v)
}

func (rc *RequestContext) StoreResource(typeName string, v interface{}) int {
	return rc.res.Store(typeName, v)
}

func (rc *RequestContext) FetchResource(typeName string, id int) (interface{}, bool) {
	return rc.res.Fetch(typeName, id)
}

func (rc *RequestContext) Silence(on bool) { rc.Errors.Silence(on) }
