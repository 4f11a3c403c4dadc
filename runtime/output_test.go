package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type captureSink struct{ got string }

func (s *captureSink) Write(str string) { s.got += str }

func TestOutputBufferStack_WritesThroughToSinkWhenEmpty(t *testing.T) {
	sink := &captureSink{}
	s := newOutputBufferStack(sink)

	s.Write("hello")
	assert.Equal(t, "hello", sink.got)
}

func TestOutputBufferStack_BuffersWhenOpen(t *testing.T) {
	sink := &captureSink{}
	s := newOutputBufferStack(sink)

	s.Start("", defaultBufferFlags())
	s.Write("buffered")
	assert.Empty(t, sink.got)

	content, ok := s.Contents()
	assert.True(t, ok)
	assert.Equal(t, "buffered", content)
}

func TestOutputBufferStack_EndFlushWritesToParent(t *testing.T) {
	sink := &captureSink{}
	s := newOutputBufferStack(sink)

	s.Start("", defaultBufferFlags())
	s.Write("inner")
	assert.True(t, s.EndFlush())
	assert.Equal(t, "inner", sink.got)
	assert.Equal(t, 0, s.Level())
}

func TestOutputBufferStack_EndCleanDiscardsContent(t *testing.T) {
	sink := &captureSink{}
	s := newOutputBufferStack(sink)

	s.Start("", defaultBufferFlags())
	s.Write("discarded")
	assert.True(t, s.EndClean())
	assert.Empty(t, sink.got)
}

func TestOutputBufferStack_GetCleanReturnsAndPops(t *testing.T) {
	sink := &captureSink{}
	s := newOutputBufferStack(sink)

	s.Start("", defaultBufferFlags())
	s.Write("payload")
	content, ok := s.GetClean()
	assert.True(t, ok)
	assert.Equal(t, "payload", content)
	assert.Equal(t, 0, s.Level())
	assert.Empty(t, sink.got)
}

func TestOutputBufferStack_CleanResetsWithoutPopping(t *testing.T) {
	sink := &captureSink{}
	s := newOutputBufferStack(sink)

	s.Start("", defaultBufferFlags())
	s.Write("x")
	assert.True(t, s.Clean())
	content, _ := s.Contents()
	assert.Empty(t, content)
	assert.Equal(t, 1, s.Level())
}

func TestOutputBufferStack_FlushAllDrainsNestedBuffers(t *testing.T) {
	sink := &captureSink{}
	s := newOutputBufferStack(sink)

	s.Start("", defaultBufferFlags())
	s.Write("outer-")
	s.Start("", defaultBufferFlags())
	s.Write("inner")

	s.FlushAll()
	assert.Equal(t, "outer-inner", sink.got)
	assert.Equal(t, 0, s.Level())
}

func TestOutputBufferStack_NoOpenBufferReportsFalse(t *testing.T) {
	sink := &captureSink{}
	s := newOutputBufferStack(sink)

	assert.False(t, s.EndClean())
	assert.False(t, s.EndFlush())
	assert.False(t, s.Clean())
	_, ok := s.Contents()
	assert.False(t, ok)
	_, ok = s.GetClean()
	assert.False(t, ok)
}
