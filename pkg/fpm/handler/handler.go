package handler

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/loomphp/loom/pkg/fastcgi"
	"github.com/loomphp/loom/runtime"
	"github.com/loomphp/loom/vm"
)

// RequestHandler drives one FastCGI request through the engine: it
// resolves SCRIPT_FILENAME to a Chunk via its loader, opens a
// RequestContext against the shared Engine, and executes the chunk's
// top-level code as that request's {main} frame.
type RequestHandler struct {
	engine *runtime.Engine
	load   ChunkLoader
}

func NewRequestHandler(engine *runtime.Engine, load ChunkLoader) *RequestHandler {
	return &RequestHandler{engine: engine, load: load}
}

func (h *RequestHandler) HandleRequest(ctx context.Context, proto *fastcgi.Protocol, req *fastcgi.Request) error {
	scriptFile, ok := req.Params["SCRIPT_FILENAME"]
	if !ok || scriptFile == "" {
		return h.sendError(proto, req.ID, "SCRIPT_FILENAME not provided")
	}

	if _, err := os.Stat(scriptFile); os.IsNotExist(err) {
		return h.sendError(proto, req.ID, fmt.Sprintf("File not found: %s", scriptFile))
	}

	c, err := h.load(scriptFile)
	if err != nil {
		return h.sendError(proto, req.ID, fmt.Sprintf("Failed to load chunk: %v", err))
	}

	var outBuf bytes.Buffer
	sapiReq := BuildSAPIRequest(req.Params, req.Stdin)
	rc, err := h.engine.NewRequest(sapiReq, runtime.WriterSink{W: &outBuf})
	if err != nil {
		return h.sendError(proto, req.ID, fmt.Sprintf("Failed to start request: %v", err))
	}
	defer h.engine.EndRequest(rc)

	_, runErr := vm.New().Execute(rc.Exec, c)

	var stderrBuf bytes.Buffer
	exitCode := 0
	if runErr != nil {
		stderrBuf.WriteString(fmt.Sprintf("Runtime error: %v\n", runErr))
		exitCode = 1
	}

	var response bytes.Buffer
	response.WriteString(formatHeaders(rc))
	response.Write(outBuf.Bytes())

	return proto.SendResponse(req.ID, response.Bytes(), stderrBuf.Bytes(), exitCode)
}

// formatHeaders renders the status line and any headers the script set
// on rc (via a future header()/http_response_code() builtin) into the
// CGI-style header block FastCGI responses are prefixed with.
func formatHeaders(rc *runtime.RequestContext) string {
	status := rc.HTTPStatus
	if status == 0 {
		status = 200
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "Status: %d\r\n", status)
	for _, h := range rc.Headers {
		fmt.Fprintf(&b, "%s: %s\r\n", h.Name, h.Value)
	}
	b.WriteString("\r\n")
	return b.String()
}

func (h *RequestHandler) sendError(proto *fastcgi.Protocol, requestID uint16, errMsg string) error {
	stderr := []byte(errMsg)
	stdout := []byte(fmt.Sprintf("Status: 500 Internal Server Error\r\nContent-Type: text/plain\r\n\r\n%s", errMsg))
	return proto.SendResponse(requestID, stdout, stderr, 1)
}
