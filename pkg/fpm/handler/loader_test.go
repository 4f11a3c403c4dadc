package handler

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomphp/loom/chunk"
	"github.com/loomphp/loom/opcodes"
	"github.com/loomphp/loom/values"
)

func TestSaveChunk_GobChunkLoader_RoundTrip(t *testing.T) {
	c := chunk.New("/var/www/hello.php", true)
	c.Constants = []*values.Value{
		values.NewString("hello"),
		values.NewInt(42),
		values.NewFloat(3.5),
		values.NewBool(true),
	}
	c.Code = []opcodes.Instruction{
		{Opcode: opcodes.OP_PUSH_CONST, Op1: 0},
		{Opcode: opcodes.OP_POP},
	}
	c.SourceMap = []uint32{1, 1}
	c.Functions["greet"] = &chunk.Function{
		Name:       "greet",
		EntryPoint: 0,
		Params: []chunk.Param{
			{Name: "name", TypeHint: "string"},
		},
	}

	path := filepath.Join(t.TempDir(), "hello.loomc")
	require.NoError(t, SaveChunk(path, c))

	loaded, err := GobChunkLoader(path)
	require.NoError(t, err)

	assert.Equal(t, c.FilePath, loaded.FilePath)
	assert.True(t, loaded.StrictTypes)
	require.Len(t, loaded.Constants, 4)
	assert.Equal(t, "hello", loaded.Constants[0].Data)
	assert.Equal(t, int64(42), loaded.Constants[1].Data)
	assert.Equal(t, 3.5, loaded.Constants[2].Data)
	assert.Equal(t, true, loaded.Constants[3].Data)
	require.Len(t, loaded.Code, 2)
	assert.Equal(t, opcodes.OP_PUSH_CONST, loaded.Code[0].Opcode)
	require.Contains(t, loaded.Functions, "greet")
	assert.Equal(t, "name", loaded.Functions["greet"].Params[0].Name)
}

func TestGobChunkLoader_MissingFile(t *testing.T) {
	_, err := GobChunkLoader(filepath.Join(t.TempDir(), "missing.loomc"))
	assert.Error(t, err)
}
