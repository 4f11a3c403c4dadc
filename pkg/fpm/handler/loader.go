package handler

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/loomphp/loom/chunk"
)

// ChunkLoader resolves a SCRIPT_FILENAME into the compiled Chunk the VM
// executes. Compiling PHP source into a Chunk is a lexer/parser/emitter
// concern this engine does not implement (out of scope); every SAPI
// therefore depends on one of these rather than reading source off
// disk itself, so swapping in a real toolchain's output later is a
// one-line change at the call site.
type ChunkLoader func(scriptFile string) (*chunk.Chunk, error)

func init() {
	// Chunk.Constants holds *values.Value with an interface{} Data
	// field; encoding/gob needs every concrete type that can occupy it
	// registered up front. OP_PUSH_CONST only ever loads scalar
	// literals (arrays and objects are always built at run time by
	// their own opcodes, never placed in the constant pool), so the
	// scalar Go types are the whole set.
	gob.Register(bool(false))
	gob.Register(int64(0))
	gob.Register(float64(0))
	gob.Register("")
}

// GobChunkLoader reads a chunk previously serialized with SaveChunk,
// the reference precompiled-bytecode format this engine ships in lieu
// of a persistent compile cache (spec Non-goal) or an ahead-of-time
// compiler: scripts are shipped as ready-to-run Chunk artifacts and
// this engine only ever executes them.
func GobChunkLoader(scriptFile string) (*chunk.Chunk, error) {
	f, err := os.Open(scriptFile)
	if err != nil {
		return nil, fmt.Errorf("open chunk %s: %w", scriptFile, err)
	}
	defer f.Close()

	var c chunk.Chunk
	if err := gob.NewDecoder(f).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode chunk %s: %w", scriptFile, err)
	}
	return &c, nil
}

// SaveChunk writes c in GobChunkLoader's format, for tooling that
// produces Chunks out of process (tests, a future compiler front end).
func SaveChunk(path string, c *chunk.Chunk) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chunk %s: %w", path, err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encode chunk %s: %w", path, err)
	}
	return nil
}
