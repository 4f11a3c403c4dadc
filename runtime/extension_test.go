package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomphp/loom/registry"
)

type fakeExtension struct {
	name   string
	deps   []string
	events *[]string
}

func (e *fakeExtension) Name() string           { return e.name }
func (e *fakeExtension) Version() string        { return "1.0.0" }
func (e *fakeExtension) Dependencies() []string { return e.deps }

func (e *fakeExtension) ModuleInit(reg *registry.Registry) error {
	*e.events = append(*e.events, "init:"+e.name)
	return nil
}

func (e *fakeExtension) RequestInit(rc *RequestContext) error {
	*e.events = append(*e.events, "reqinit:"+e.name)
	return nil
}

func (e *fakeExtension) RequestShutdown(rc *RequestContext) {
	*e.events = append(*e.events, "reqshutdown:"+e.name)
}

func (e *fakeExtension) ModuleShutdown() {
	*e.events = append(*e.events, "shutdown:"+e.name)
}

func TestExtensionManager_LoadsInDependencyOrder(t *testing.T) {
	var events []string
	a := &fakeExtension{name: "a", events: &events}
	b := &fakeExtension{name: "b", deps: []string{"a"}, events: &events}
	c := &fakeExtension{name: "c", deps: []string{"b"}, events: &events}

	mgr := NewExtensionManager()
	require.NoError(t, mgr.Register(c))
	require.NoError(t, mgr.Register(a))
	require.NoError(t, mgr.Register(b))

	require.NoError(t, mgr.LoadAll(registry.New()))
	assert.Equal(t, []string{"init:a", "init:b", "init:c"}, events)
}

func TestExtensionManager_MissingDependencyErrors(t *testing.T) {
	mgr := NewExtensionManager()
	require.NoError(t, mgr.Register(&fakeExtension{name: "b", deps: []string{"a"}, events: &[]string{}}))

	err := mgr.LoadAll(registry.New())
	assert.Error(t, err)
}

func TestExtensionManager_CircularDependencyErrors(t *testing.T) {
	var events []string
	mgr := NewExtensionManager()
	require.NoError(t, mgr.Register(&fakeExtension{name: "a", deps: []string{"b"}, events: &events}))
	require.NoError(t, mgr.Register(&fakeExtension{name: "b", deps: []string{"a"}, events: &events}))

	err := mgr.LoadAll(registry.New())
	assert.Error(t, err)
}

func TestExtensionManager_DuplicateRegistrationErrors(t *testing.T) {
	var events []string
	mgr := NewExtensionManager()
	require.NoError(t, mgr.Register(&fakeExtension{name: "a", events: &events}))
	assert.Error(t, mgr.Register(&fakeExtension{name: "a", events: &events}))
}

func TestExtensionManager_ShutdownRunsInReverseOrder(t *testing.T) {
	var events []string
	a := &fakeExtension{name: "a", events: &events}
	b := &fakeExtension{name: "b", deps: []string{"a"}, events: &events}

	mgr := NewExtensionManager()
	require.NoError(t, mgr.Register(a))
	require.NoError(t, mgr.Register(b))
	require.NoError(t, mgr.LoadAll(registry.New()))

	events = nil
	mgr.ModuleShutdownAll()
	assert.Equal(t, []string{"shutdown:b", "shutdown:a"}, events)
}
