package vm

import (
	"strings"

	"github.com/loomphp/loom/chunk"
	"github.com/loomphp/loom/registry"
	"github.com/loomphp/loom/symtab"
	"github.com/loomphp/loom/values"
)

// VirtualMachine is the top-level handle a caller (the FPM worker, the
// CLI runner, a test) uses to run a compiled Chunk against a request's
// ExecutionContext. It carries no per-request state itself — everything
// request-scoped lives on ExecutionContext — so one VirtualMachine value
// can run many requests sequentially, matching the single-threaded-per-
// request model (spec §7: the engine/heap/interner need not be
// thread-safe across requests, only within the lifetime of one).
type VirtualMachine struct{}

// New constructs a VirtualMachine. It takes no configuration: all
// per-run parameters (call depth limit, timeout) live on the
// ExecutionContext passed to Execute.
func New() *VirtualMachine {
	return &VirtualMachine{}
}

// Execute merges c's top-level function/class declarations into reg,
// then runs c's top-level code as the {main} frame. Declarations merge
// before execution (rather than as DECLARE_* opcodes run) because a
// function/class is callable from anywhere in its declaring file
// regardless of textual position, matching PHP's hoisting behavior for
// unconditional top-level declarations.
func (vm *VirtualMachine) Execute(ec *ExecutionContext, c *chunk.Chunk) (*values.Value, error) {
	if c == nil {
		return nil, ErrNilChunk
	}
	mergeDeclarations(ec.Registry, c)

	frame := newCallFrame("{main}", c, 0)
	frame.Locals = ec.globals
	return ec.Run(frame)
}

func mergeDeclarations(reg *registry.Registry, c *chunk.Chunk) {
	for name, fn := range c.Functions {
		reg.RegisterFunction(&registry.Function{
			Name:        name,
			Params:      fn.Params,
			ReturnType:  fn.ReturnType,
			ByRefReturn: fn.ByRefReturn,
			IsGenerator: fn.IsGenerator,
			UserChunk:   c,
			UserEntry:   fn.EntryPoint,
		})
	}
	for _, cls := range c.Classes {
		rc := &registry.Class{
			Name:                    cls.Name,
			ParentName:              cls.ParentName,
			Interfaces:              cls.Interfaces,
			Traits:                  cls.Traits,
			IsInterface:             cls.IsInterface,
			IsTrait:                 cls.IsTrait,
			IsAbstract:              cls.IsAbstract,
			IsFinal:                 cls.IsFinal,
			IsEnum:                  cls.IsEnum,
			AllowsDynamicProperties: cls.AllowsDynamicProperties,
			Methods:                 make(map[string]*registry.Method),
			Properties:              cls.Properties,
			Constants:               cls.Constants,
			StaticProps:             make(map[string]*values.Value),
		}
		for pname, p := range cls.Properties {
			if !p.IsStatic {
				continue
			}
			if p.Default != nil {
				dv := *p.Default
				rc.StaticProps[pname] = &dv
			} else {
				rc.StaticProps[pname] = values.NewNull()
			}
		}
		for mname, m := range cls.Methods {
			rc.Methods[strings.ToLower(mname)] = &registry.Method{
				Function: registry.Function{
					Name:        m.Name,
					Params:      m.Params,
					ReturnType:  m.ReturnType,
					ByRefReturn: m.ByRefReturn,
					IsGenerator: m.IsGenerator,
					UserChunk:   c,
					UserEntry:   m.EntryPoint,
				},
				Visibility:     m.Visibility,
				IsStatic:       m.IsStatic,
				IsAbstract:     m.IsAbstract,
				IsFinal:        m.IsFinal,
				DeclaringClass: cls.Name,
			}
		}
		reg.RegisterClass(rc)
	}
}

// NewRequest wires a fresh Interner and ExecutionContext for one
// request. reg is used as-is, not copied: callers typically pass the
// same *registry.Registry across requests, so user declarations merged
// by Execute go into that shared registry and stay there, and a later
// declaration of the same name replaces an earlier one.
func NewRequest(reg *registry.Registry, host RequestHost) *ExecutionContext {
	return NewExecutionContext(reg, symtab.New(), host)
}
