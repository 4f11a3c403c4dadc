package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceManager_StoreAndFetch(t *testing.T) {
	m := newResourceManager()
	id := m.Store("stream", "file-handle")

	v, ok := m.Fetch("stream", id)
	require.True(t, ok)
	assert.Equal(t, "file-handle", v)
}

func TestResourceManager_FetchFailsOnTypeMismatch(t *testing.T) {
	m := newResourceManager()
	id := m.Store("stream", "file-handle")

	_, ok := m.Fetch("mysqli link", id)
	assert.False(t, ok)
}

func TestResourceManager_FetchFailsOnUnknownID(t *testing.T) {
	m := newResourceManager()
	_, ok := m.Fetch("stream", 999)
	assert.False(t, ok)
}

func TestResourceManager_Release(t *testing.T) {
	m := newResourceManager()
	id := m.Store("stream", "x")
	m.Release(id)

	_, ok := m.Fetch("stream", id)
	assert.False(t, ok)
}

func TestResourceManager_DropAll(t *testing.T) {
	m := newResourceManager()
	id1 := m.Store("stream", "a")
	id2 := m.Store("stream", "b")
	m.DropAll()

	_, ok := m.Fetch("stream", id1)
	assert.False(t, ok)
	_, ok = m.Fetch("stream", id2)
	assert.False(t, ok)
}

func TestResourceManager_IDsAreMonotonicAndUnique(t *testing.T) {
	m := newResourceManager()
	id1 := m.Store("stream", "a")
	id2 := m.Store("stream", "b")
	assert.NotEqual(t, id1, id2)
}
