package runtime

import "github.com/loomphp/loom/values"

// SAPIRequest is the {host, method, uri, protocol, remote_addr, port,
// script_*, time, time_float} tuple spec §4.O says the SAPI supplies to
// seed $_SERVER. Every $_SERVER key is always set; a zero-value field
// appears as "" or 0 rather than being omitted.
type SAPIRequest struct {
	Host        string
	Method      string
	URI         string
	Protocol    string
	RemoteAddr  string
	Port        int
	ScriptName  string
	ScriptFile  string
	Time        int64
	TimeFloat   float64
	QueryParams map[string]string
	PostParams  map[string]string
	Cookies     map[string]string
	Env         map[string]string
}

// superglobalSet holds the eight `$_NAME` superglobal arrays spec §4.O
// names ($GLOBALS is not among them), keyed by their canonical spelling
// (sans the leading `$`).
type superglobalSet struct {
	vars map[string]*values.Value
}

// installSuperglobals builds the superglobal set from an inbound
// request tuple, matching spec §4.O's $_SERVER/$_GET/$_POST/$_FILES/
// $_COOKIE/$_REQUEST/$_ENV/$_SESSION population. $GLOBALS is handled
// separately by ExecutionContext.GlobalsArray (vm/context.go) since it
// is a live view over top-level variables, not a fixed snapshot.
func installSuperglobals(req SAPIRequest) *superglobalSet {
	server := values.NewArray()
	set := func(k, v string) { server.AsArray().Set(values.StrKey(k), values.NewString(v)) }
	set("HTTP_HOST", req.Host)
	set("REQUEST_METHOD", req.Method)
	set("REQUEST_URI", req.URI)
	set("SERVER_PROTOCOL", req.Protocol)
	set("REMOTE_ADDR", req.RemoteAddr)
	set("SCRIPT_NAME", req.ScriptName)
	set("SCRIPT_FILENAME", req.ScriptFile)
	server.AsArray().Set(values.StrKey("SERVER_PORT"), values.NewInt(int64(req.Port)))
	server.AsArray().Set(values.StrKey("REQUEST_TIME"), values.NewInt(req.Time))
	server.AsArray().Set(values.StrKey("REQUEST_TIME_FLOAT"), values.NewFloat(req.TimeFloat))

	get := values.NewArray()
	for k, v := range req.QueryParams {
		get.AsArray().Set(values.StrKey(k), values.NewString(v))
	}
	post := values.NewArray()
	for k, v := range req.PostParams {
		post.AsArray().Set(values.StrKey(k), values.NewString(v))
	}
	cookie := values.NewArray()
	for k, v := range req.Cookies {
		cookie.AsArray().Set(values.StrKey(k), values.NewString(v))
	}
	env := values.NewArray()
	for k, v := range req.Env {
		env.AsArray().Set(values.StrKey(k), values.NewString(v))
	}

	request := values.NewArray()
	for _, src := range []*values.Value{get, post, cookie} {
		for _, k := range src.AsArray().Keys() {
			v, _ := src.AsArray().Get(k)
			request.AsArray().Set(k, v)
		}
	}

	return &superglobalSet{vars: map[string]*values.Value{
		"_SERVER":  server,
		"_GET":     get,
		"_POST":    post,
		"_FILES":   values.NewArray(),
		"_COOKIE":  cookie,
		"_REQUEST": request,
		"_ENV":     env,
		"_SESSION": values.NewArray(),
	}}
}

func (s *superglobalSet) get(name string) (*values.Value, bool) {
	v, ok := s.vars[name]
	return v, ok
}

func (s *superglobalSet) set(name string, v *values.Value) {
	s.vars[name] = v
}
