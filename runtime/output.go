package runtime

import "strings"

// OutputSink is where output ultimately lands once every buffer has been
// popped — typically stdout for the CLI SAPI or the FastCGI response
// body for FPM. Tests substitute a capturing sink, per spec §4.M.
type OutputSink interface {
	Write(s string)
}

// WriterSink adapts anything with a Write([]byte) method (*os.File,
// bytes.Buffer, the FastCGI response writer) into an OutputSink.
type WriterSink struct {
	W interface{ Write(p []byte) (int, error) }
}

func (s WriterSink) Write(str string) { _, _ = s.W.Write([]byte(str)) }

// bufferFlags mirrors spec §4.M's CLEANABLE/FLUSHABLE/REMOVABLE buffer
// entry flags, set by Start's flags argument. They are stored on the
// buffer; no operation of this stack consults them.
type bufferFlags struct {
	cleanable bool
	flushable bool
	removable bool
}

func defaultBufferFlags() bufferFlags {
	return bufferFlags{cleanable: true, flushable: true, removable: true}
}

type outputBuffer struct {
	handler string
	content strings.Builder
	flags   bufferFlags
}

// OutputBufferStack is the output buffer stack (component M): Echo/Print
// write to the topmost buffer if one is open, else straight to the
// sink. Grounded on the teacher's ob_* function family in output.go,
// adapted from a free function catalogue into a single stateful type the
// RequestContext owns. No stdlib extension registers ob_* functions over
// it; Go callers use its methods directly.
type OutputBufferStack struct {
	sink          OutputSink
	stack         []*outputBuffer
	implicitFlush bool
}

func newOutputBufferStack(sink OutputSink) *OutputBufferStack {
	return &OutputBufferStack{sink: sink}
}

// Write sends s to the topmost buffer, or the sink if none is open.
func (s *OutputBufferStack) Write(str string) {
	if n := len(s.stack); n > 0 {
		top := s.stack[n-1]
		top.content.WriteString(str)
		if s.implicitFlush {
			s.Flush()
		}
		return
	}
	s.sink.Write(str)
}

// Start pushes a new buffer (ob_start).
func (s *OutputBufferStack) Start(handler string, flags bufferFlags) {
	s.stack = append(s.stack, &outputBuffer{handler: handler, flags: flags})
}

// Level reports the current buffer nesting depth (ob_get_level).
func (s *OutputBufferStack) Level() int { return len(s.stack) }

// Contents returns the topmost buffer's accumulated text without
// popping it (ob_get_contents), or ("", false) if no buffer is open.
func (s *OutputBufferStack) Contents() (string, bool) {
	if len(s.stack) == 0 {
		return "", false
	}
	return s.stack[len(s.stack)-1].content.String(), true
}

// Clean erases the topmost buffer's contents in place (ob_clean).
func (s *OutputBufferStack) Clean() bool {
	if n := len(s.stack); n > 0 {
		s.stack[n-1].content.Reset()
		return true
	}
	return false
}

// pop removes and returns the topmost buffer.
func (s *OutputBufferStack) pop() (*outputBuffer, bool) {
	n := len(s.stack)
	if n == 0 {
		return nil, false
	}
	top := s.stack[n-1]
	s.stack = s.stack[:n-1]
	return top, true
}

// EndClean pops the topmost buffer, discarding its contents
// (ob_end_clean).
func (s *OutputBufferStack) EndClean() bool {
	_, ok := s.pop()
	return ok
}

// EndFlush pops the topmost buffer, writing its contents to what is now
// the topmost buffer (or the sink) (ob_end_flush).
func (s *OutputBufferStack) EndFlush() bool {
	top, ok := s.pop()
	if !ok {
		return false
	}
	s.Write(top.content.String())
	return true
}

// Flush writes the topmost buffer's contents upward without popping it,
// then clears it (ob_flush).
func (s *OutputBufferStack) Flush() bool {
	n := len(s.stack)
	if n == 0 {
		return false
	}
	top := s.stack[n-1]
	text := top.content.String()
	top.content.Reset()
	s.stack = s.stack[:n-1]
	s.Write(text)
	s.stack = append(s.stack, top)
	return true
}

// GetClean pops the topmost buffer and returns its contents
// (ob_get_clean).
func (s *OutputBufferStack) GetClean() (string, bool) {
	top, ok := s.pop()
	if !ok {
		return "", false
	}
	return top.content.String(), true
}

// SetImplicitFlush toggles whether every Write additionally flushes the
// topmost buffer upward (ob_implicit_flush).
func (s *OutputBufferStack) SetImplicitFlush(on bool) { s.implicitFlush = on }

// FlushAll pops every remaining buffer at request end, flushing each to
// the sink in turn, per spec §4.L's "any open output buffers are
// flushed to the sink" end-of-request contract.
func (s *OutputBufferStack) FlushAll() {
	for len(s.stack) > 0 {
		s.EndFlush()
	}
}
