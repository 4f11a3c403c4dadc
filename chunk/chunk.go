// Package chunk defines the Code Chunk: the immutable product of
// compilation that the dispatcher executes. A Chunk is purely data — an
// instruction stream, its constant pool, the function/class tables it
// declares, and the metadata (file path, strict_types, source map) the
// VM and error reporter need at run time.
package chunk

import (
	"github.com/loomphp/loom/opcodes"
	"github.com/loomphp/loom/values"
)

// Chunk is one compiled unit: a whole script, an included file, or an
// eval'd string all produce their own Chunk.
type Chunk struct {
	// FilePath is the source path this chunk was compiled from, used in
	// error messages and debug_backtrace frames. Eval'd chunks use a
	// synthetic path like "<eval>".
	FilePath string

	// StrictTypes mirrors `declare(strict_types=1)`: it gates whether the
	// call protocol coerces scalar type-hint mismatches or rejects them
	// with a TypeError (§4.H).
	StrictTypes bool

	Code      []opcodes.Instruction
	Constants []*values.Value

	// Functions and Classes are declared at top level in this chunk; the
	// request context merges them into its global tables as the chunk's
	// declaration opcodes run.
	Functions map[string]*Function
	Classes   map[string]*Class

	// SourceMap maps instruction index to 1-based source line, parallel
	// to Code. It is consulted lazily (only on error paths), so it need
	// not be as compact as the instruction stream itself.
	SourceMap []uint32
}

// New returns an empty chunk ready to be populated by an Emitter.
func New(filePath string, strictTypes bool) *Chunk {
	return &Chunk{
		FilePath:    filePath,
		StrictTypes: strictTypes,
		Functions:   make(map[string]*Function),
		Classes:     make(map[string]*Class),
	}
}

// LineFor returns the source line recorded for instruction index ip, or 0
// if no source map entry exists (synthetic/generated instructions).
func (c *Chunk) LineFor(ip int) uint32 {
	if ip < 0 || ip >= len(c.SourceMap) {
		return 0
	}
	return c.SourceMap[ip]
}

// Param describes one declared parameter of a Function or Method.
type Param struct {
	Name       string
	TypeHint   string // "" when untyped; e.g. "int", "?string", "Foo"
	Nullable   bool
	HasDefault bool
	Default    *values.Value
	ByRef      bool
	Variadic   bool
}

// Function is a top-level (or closure) user function declared by a
// chunk: its entry point into the chunk's Code and its parameter list.
type Function struct {
	Name        string
	Params      []Param
	EntryPoint  int // instruction index where the function body begins
	ReturnType  string
	ByRefReturn bool
	IsGenerator bool
	StaticVars  map[string]*values.Value
}

// Class is a top-level class/interface/trait declared by a chunk.
type Class struct {
	Name       string
	ParentName string
	Interfaces []string
	Traits     []string

	IsInterface bool
	IsTrait     bool
	IsAbstract  bool
	IsFinal     bool
	IsEnum      bool

	AllowsDynamicProperties bool

	Methods    map[string]*Method
	Properties map[string]*PropertyDecl
	Constants  map[string]*ConstantDecl

	AbstractMethods []string
}

// Method is a member function of a Class.
type Method struct {
	Function
	Visibility     Visibility
	IsStatic       bool
	IsAbstract     bool
	IsFinal        bool
	DeclaringClass string
}

// PropertyDecl is a declared (not dynamic) property of a Class.
type PropertyDecl struct {
	Name           string
	Visibility     Visibility
	IsStatic       bool
	TypeHint       string
	Default        *values.Value
	DeclaringClass string
}

// ConstantDecl is a declared class constant, carrying the visibility and
// declaring-class metadata needed to enforce access the same way
// PropertyDecl does for properties.
type ConstantDecl struct {
	Value          *values.Value
	Visibility     Visibility
	DeclaringClass string
}

// Visibility is one of public/protected/private.
type Visibility byte

const (
	Public Visibility = iota
	Protected
	Private
)

func (v Visibility) String() string {
	switch v {
	case Protected:
		return "protected"
	case Private:
		return "private"
	default:
		return "public"
	}
}
