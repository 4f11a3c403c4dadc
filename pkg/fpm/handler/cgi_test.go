package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSAPIRequest_BasicFields(t *testing.T) {
	params := map[string]string{
		"HTTP_HOST":       "example.test",
		"REQUEST_METHOD":  "GET",
		"REQUEST_URI":     "/index.php?a=1",
		"SERVER_PROTOCOL": "HTTP/1.1",
		"REMOTE_ADDR":     "10.0.0.1",
		"SCRIPT_NAME":     "/index.php",
		"SCRIPT_FILENAME": "/var/www/index.php",
		"SERVER_PORT":     "8080",
		"QUERY_STRING":    "a=1&b=2",
	}

	req := BuildSAPIRequest(params, nil)

	assert.Equal(t, "example.test", req.Host)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/index.php?a=1", req.URI)
	assert.Equal(t, "/var/www/index.php", req.ScriptFile)
	assert.Equal(t, 8080, req.Port)
	assert.Equal(t, "1", req.QueryParams["a"])
	assert.Equal(t, "2", req.QueryParams["b"])
}

func TestBuildSAPIRequest_PostOnlyParsedForFormEncodedWrites(t *testing.T) {
	params := map[string]string{
		"REQUEST_METHOD": "POST",
		"CONTENT_TYPE":   "application/x-www-form-urlencoded",
	}
	req := BuildSAPIRequest(params, []byte("name=loom&lang=go"))

	assert.Equal(t, "loom", req.PostParams["name"])
	assert.Equal(t, "go", req.PostParams["lang"])
}

func TestBuildSAPIRequest_IgnoresNonFormPostBody(t *testing.T) {
	params := map[string]string{
		"REQUEST_METHOD": "POST",
		"CONTENT_TYPE":   "application/json",
	}
	req := BuildSAPIRequest(params, []byte(`{"name":"loom"}`))

	assert.Empty(t, req.PostParams)
}

func TestBuildSAPIRequest_GetRequestHasNoPostParams(t *testing.T) {
	params := map[string]string{"REQUEST_METHOD": "GET"}
	req := BuildSAPIRequest(params, nil)
	assert.Empty(t, req.PostParams)
}

func TestParseCookieHeader(t *testing.T) {
	got := parseCookieHeader("session=abc123; theme=dark")
	assert.Equal(t, "abc123", got["session"])
	assert.Equal(t, "dark", got["theme"])
}

func TestParseCookieHeader_Empty(t *testing.T) {
	assert.Empty(t, parseCookieHeader(""))
}

func TestFlattenQuery_LastValueWins(t *testing.T) {
	got := flattenQuery("a=1&a=2")
	assert.Equal(t, "2", got["a"])
}
