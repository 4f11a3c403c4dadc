package handler

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/loomphp/loom/runtime"
)

// BuildSAPIRequest turns a FastCGI request's CGI params and stdin body
// into the runtime.SAPIRequest tuple Engine.NewRequest feeds to
// installSuperglobals, replacing the teacher's handler-local
// $_SERVER/$_GET/$_POST/$_COOKIE array construction with the shared
// superglobal path every SAPI (CLI included) now goes through.
func BuildSAPIRequest(params map[string]string, stdin []byte) runtime.SAPIRequest {
	now := time.Now()
	req := runtime.SAPIRequest{
		Host:        params["HTTP_HOST"],
		Method:      params["REQUEST_METHOD"],
		URI:         params["REQUEST_URI"],
		Protocol:    params["SERVER_PROTOCOL"],
		RemoteAddr:  params["REMOTE_ADDR"],
		ScriptName:  params["SCRIPT_NAME"],
		ScriptFile:  params["SCRIPT_FILENAME"],
		Time:        now.Unix(),
		TimeFloat:   float64(now.UnixNano()) / 1e9,
		QueryParams: flattenQuery(params["QUERY_STRING"]),
		Cookies:     parseCookieHeader(params["HTTP_COOKIE"]),
		Env:         params,
	}
	if port, err := strconv.Atoi(params["SERVER_PORT"]); err == nil {
		req.Port = port
	}
	switch req.Method {
	case "POST", "PUT", "PATCH":
		if strings.Contains(params["CONTENT_TYPE"], "application/x-www-form-urlencoded") {
			req.PostParams = flattenQuery(string(stdin))
		}
	}
	return req
}

// flattenQuery keeps the last value of any repeated key, matching the
// simplified single-value $_GET/$_POST model the superglobal set uses
// (multi-value form fields are out of scope for this engine).
func flattenQuery(raw string) map[string]string {
	out := make(map[string]string)
	if raw == "" {
		return out
	}
	parsed, err := url.ParseQuery(raw)
	if err != nil {
		return out
	}
	for k, vals := range parsed {
		if len(vals) > 0 {
			out[k] = vals[len(vals)-1]
		}
	}
	return out
}

func parseCookieHeader(header string) map[string]string {
	out := make(map[string]string)
	if header == "" {
		return out
	}
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		name := strings.TrimSpace(kv[0])
		value, err := url.QueryUnescape(strings.TrimSpace(kv[1]))
		if err != nil {
			value = kv[1]
		}
		out[name] = value
	}
	return out
}
