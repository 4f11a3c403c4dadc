// Package runtime is the engine/request layer (components K-P) sitting
// above vm: the process-lifetime extension registry and engine, the
// per-request context that implements vm.RequestHost, and the output/
// error/superglobal/resource subsystems a request needs.
package runtime

import (
	"fmt"
	"sort"

	"github.com/loomphp/loom/registry"
)

// Extension is a process-lifetime module: native functions/classes it
// contributes register once at engine build time (ModuleInit), and it
// observes every request's start/end (RequestInit/RequestShutdown) to
// seed or tear down per-request state. Grounded on the teacher's
// Extension/ExtensionManager dependency-topology loader, simplified to
// the four lifecycle callbacks spec'd for the Extension Registry.
type Extension interface {
	Name() string
	Version() string
	Dependencies() []string
	ModuleInit(reg *registry.Registry) error
	RequestInit(rc *RequestContext) error
	RequestShutdown(rc *RequestContext)
	ModuleShutdown()
}

// ExtensionManager loads Extensions in dependency order and drives their
// lifecycle across the engine's and each request's lifetime.
type ExtensionManager struct {
	byName map[string]Extension
	order  []Extension
}

func NewExtensionManager() *ExtensionManager {
	return &ExtensionManager{byName: make(map[string]Extension)}
}

// Register adds ext to the manager. Load order is resolved lazily by
// LoadAll, once every extension has been registered, so dependencies may
// be registered in any order.
func (m *ExtensionManager) Register(ext Extension) error {
	if _, exists := m.byName[ext.Name()]; exists {
		return fmt.Errorf("extension already registered: %s", ext.Name())
	}
	m.byName[ext.Name()] = ext
	return nil
}

// LoadAll resolves a dependency-respecting load order and runs
// ModuleInit on every registered extension in that order. A missing
// dependency is a registration error, matching spec §4.K.
func (m *ExtensionManager) LoadAll(reg *registry.Registry) error {
	order, err := m.resolveOrder()
	if err != nil {
		return err
	}
	m.order = order
	for _, ext := range order {
		if err := ext.ModuleInit(reg); err != nil {
			return fmt.Errorf("module_init %s: %w", ext.Name(), err)
		}
	}
	return nil
}

func (m *ExtensionManager) resolveOrder() ([]Extension, error) {
	names := make([]string, 0, len(m.byName))
	for name := range m.byName {
		names = append(names, name)
	}
	sort.Strings(names)

	var order []Extension
	visited := make(map[string]int) // 0=unvisited 1=in-progress 2=done
	var visit func(name string) error
	visit = func(name string) error {
		switch visited[name] {
		case 2:
			return nil
		case 1:
			return fmt.Errorf("circular extension dependency at %s", name)
		}
		ext, ok := m.byName[name]
		if !ok {
			return fmt.Errorf("missing dependency: %s", name)
		}
		visited[name] = 1
		for _, dep := range ext.Dependencies() {
			if err := visit(dep); err != nil {
				return err
			}
		}
		visited[name] = 2
		order = append(order, ext)
		return nil
	}
	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// RequestInitAll runs RequestInit on every extension in load order,
// called once at the start of a request before user code runs.
func (m *ExtensionManager) RequestInitAll(rc *RequestContext) error {
	for _, ext := range m.order {
		if err := ext.RequestInit(rc); err != nil {
			return fmt.Errorf("request_init %s: %w", ext.Name(), err)
		}
	}
	return nil
}

// RequestShutdownAll runs RequestShutdown in reverse load order.
func (m *ExtensionManager) RequestShutdownAll(rc *RequestContext) {
	for i := len(m.order) - 1; i >= 0; i-- {
		m.order[i].RequestShutdown(rc)
	}
}

// ModuleShutdownAll runs ModuleShutdown in reverse load order, at engine
// drop.
func (m *ExtensionManager) ModuleShutdownAll() {
	for i := len(m.order) - 1; i >= 0; i-- {
		m.order[i].ModuleShutdown()
	}
}
