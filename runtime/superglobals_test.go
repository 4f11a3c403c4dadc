package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomphp/loom/values"
)

func TestInstallSuperglobals_PopulatesServerFromSAPIRequest(t *testing.T) {
	req := SAPIRequest{
		Host:       "example.test",
		Method:     "GET",
		URI:        "/index.php",
		Port:       8080,
		ScriptFile: "/var/www/index.php",
	}
	set := installSuperglobals(req)

	server, ok := set.get("_SERVER")
	require.True(t, ok)
	v, ok := server.AsArray().Get(values.StrKey("HTTP_HOST"))
	require.True(t, ok)
	assert.Equal(t, "example.test", v.Data)

	v, ok = server.AsArray().Get(values.StrKey("SERVER_PORT"))
	require.True(t, ok)
	assert.Equal(t, int64(8080), v.Data)
}

func TestInstallSuperglobals_PopulatesGetPostCookie(t *testing.T) {
	req := SAPIRequest{
		QueryParams: map[string]string{"a": "1"},
		PostParams:  map[string]string{"b": "2"},
		Cookies:     map[string]string{"c": "3"},
	}
	set := installSuperglobals(req)

	get, _ := set.get("_GET")
	v, ok := get.AsArray().Get(values.StrKey("a"))
	require.True(t, ok)
	assert.Equal(t, "1", v.Data)

	post, _ := set.get("_POST")
	v, ok = post.AsArray().Get(values.StrKey("b"))
	require.True(t, ok)
	assert.Equal(t, "2", v.Data)

	cookie, _ := set.get("_COOKIE")
	v, ok = cookie.AsArray().Get(values.StrKey("c"))
	require.True(t, ok)
	assert.Equal(t, "3", v.Data)
}

func TestInstallSuperglobals_RequestMergesGetPostCookie(t *testing.T) {
	req := SAPIRequest{
		QueryParams: map[string]string{"a": "1"},
		PostParams:  map[string]string{"b": "2"},
		Cookies:     map[string]string{"c": "3"},
	}
	set := installSuperglobals(req)

	request, ok := set.get("_REQUEST")
	require.True(t, ok)
	for key, want := range map[string]string{"a": "1", "b": "2", "c": "3"} {
		v, ok := request.AsArray().Get(values.StrKey(key))
		require.True(t, ok, "missing key %q", key)
		assert.Equal(t, want, v.Data)
	}
}

func TestInstallSuperglobals_FilesAndSessionStartEmpty(t *testing.T) {
	set := installSuperglobals(SAPIRequest{})

	files, ok := set.get("_FILES")
	require.True(t, ok)
	assert.Equal(t, 0, files.AsArray().Len())

	session, ok := set.get("_SESSION")
	require.True(t, ok)
	assert.Equal(t, 0, session.AsArray().Len())
}

func TestSuperglobalSet_SetOverwritesWholesale(t *testing.T) {
	set := installSuperglobals(SAPIRequest{})
	replacement := values.NewArray()
	replacement.AsArray().Set(values.StrKey("x"), values.NewInt(1))

	set.set("_GET", replacement)
	got, ok := set.get("_GET")
	require.True(t, ok)
	v, ok := got.AsArray().Get(values.StrKey("x"))
	require.True(t, ok)
	assert.Equal(t, int64(1), v.Data)
}
