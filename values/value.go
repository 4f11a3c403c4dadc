// Package values implements the tagged value representation that the
// bytecode engine operates on: the PHP-style scalar/array/object union,
// insertion-ordered arrays with integer/string key canonicalization, and
// the handle-addressed object payload that gives objects reference
// semantics on top of an otherwise copy-on-write value model.
package values

import (
	"fmt"
	"strconv"
	"strings"
)

// Type is the tag of a Value's active variant.
type Type byte

const (
	Null Type = iota
	Bool
	Int
	Float
	String
	Array
	Object
	Resource
	// Uninitialized marks a local/temp slot that has never been written.
	// Never observable from script code; every read site treats it as Null.
	Uninitialized
	// AppendPlaceholder is pushed by FETCH_DIM_W against `$a[]` so that a
	// subsequent store opcode knows to append rather than overwrite.
	AppendPlaceholder
)

func (t Type) String() string {
	switch t {
	case Null:
		return "NULL"
	case Bool:
		return "boolean"
	case Int:
		return "integer"
	case Float:
		return "double"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	case Resource:
		return "resource"
	default:
		return "unknown"
	}
}

// Value is the tagged union stored in every heap cell and operand-stack
// slot. For an Object value Data holds a *ObjPayload pointer; two Object
// values holding the same pointer share that payload, which is what gives
// objects reference semantics.
type Value struct {
	Type Type
	Data interface{}
}

// Key is the normalized PHP array key: either an Int or a Str variant.
// String keys that parse as canonical decimal int64s are represented as
// Int keys per PHP's array-key coercion rule (see CanonicalizeKey).
type Key struct {
	IsInt bool
	Int   int64
	Str   string
}

func IntKey(i int64) Key  { return Key{IsInt: true, Int: i} }
func StrKey(s string) Key { return Key{Str: s} }

func (k Key) String() string {
	if k.IsInt {
		return strconv.FormatInt(k.Int, 10)
	}
	return k.Str
}

// CanonicalizeKey applies PHP's string-to-int key coercion: a string that
// parses as a canonical decimal representation of an int64 (no leading
// zeros, no leading '+', distinguishing "-0" which stays a string) is
// folded to an Int key. Any other string remains a Str key.
func CanonicalizeKey(s string) Key {
	if s == "0" {
		return IntKey(0)
	}
	neg := strings.HasPrefix(s, "-")
	digits := s
	if neg {
		digits = s[1:]
	}
	if digits == "" || digits[0] == '0' {
		return StrKey(s)
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return StrKey(s)
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return StrKey(s)
	}
	return IntKey(n)
}

// ValueToKey canonicalizes a Value used as an array subscript into a Key,
// following PHP's array-key coercion rules for each source type.
func ValueToKey(v *Value) Key {
	switch v.Type {
	case Int:
		return IntKey(v.AsInt())
	case String:
		return CanonicalizeKey(v.AsString())
	case Bool:
		if v.AsBool() {
			return IntKey(1)
		}
		return IntKey(0)
	case Float:
		return IntKey(int64(v.AsFloat()))
	case Null:
		return StrKey("")
	default:
		return StrKey(v.ToString())
	}
}

// ArrayData is the shared, insertion-ordered backing store for Array
// values. Two Value{Type: Array} cells that alias the same *ArrayData are
// COW-sharing; callers must Clone before mutating through an aliased
// handle (see heap.go for the copy-on-write contract).
type ArrayData struct {
	keys    []Key
	index   map[Key]int // key -> position in keys/vals
	vals    []*Value
	nextInt int64
	// shared marks that more than one Value cell may currently hold this
	// *ArrayData (set by MarkShared whenever a Value of Array type is
	// copied into a second home: variable assignment, argument passing,
	// property/static assignment). A mutating opcode must route through
	// CloneIfShared before writing so the other holder's view is
	// unaffected, then clear shared on the resulting (sole-owned) copy.
	shared bool
}

// NewArrayData constructs an empty, insertion-ordered array.
func NewArrayData() *ArrayData {
	return &ArrayData{index: make(map[Key]int)}
}

// Clone performs the shallow-element copy that COW requires: key order
// and per-element *Value pointers are duplicated, but referenced scalar
// Values are themselves copied by value (arrays/objects nested inside
// stay COW-shared via their own Data pointers until mutated).
func (a *ArrayData) Clone() *ArrayData {
	clone := &ArrayData{
		keys:    make([]Key, len(a.keys)),
		vals:    make([]*Value, len(a.vals)),
		index:   make(map[Key]int, len(a.index)),
		nextInt: a.nextInt,
	}
	copy(clone.keys, a.keys)
	for k, i := range a.index {
		clone.index[k] = i
	}
	for i, v := range a.vals {
		cp := *v
		clone.vals[i] = &cp
	}
	return clone
}

// MarkShared flags a as aliased by more than one Value cell. Call this
// whenever an Array value is copied into a second home without cloning
// (plain assignment, argument binding, property/static-prop store); the
// next mutation through either holder will Clone first.
func (a *ArrayData) MarkShared() { a.shared = true }

// CloneIfShared returns a itself if it is exclusively owned, or a fresh
// Clone (no longer marked shared) if another Value cell may alias it.
// Mutating opcodes call this immediately before writing through a heap
// handle's ArrayData, and must store the result back into the cell.
func (a *ArrayData) CloneIfShared() *ArrayData {
	if !a.shared {
		return a
	}
	clone := a.Clone()
	clone.shared = false
	return clone
}

func (a *ArrayData) Len() int { return len(a.keys) }

func (a *ArrayData) Get(k Key) (*Value, bool) {
	if i, ok := a.index[k]; ok {
		return a.vals[i], true
	}
	return nil, false
}

// Set inserts or overwrites k. New keys are appended, preserving
// insertion order; existing keys are updated in place.
func (a *ArrayData) Set(k Key, v *Value) {
	if i, ok := a.index[k]; ok {
		a.vals[i] = v
	} else {
		a.index[k] = len(a.keys)
		a.keys = append(a.keys, k)
		a.vals = append(a.vals, v)
	}
	if k.IsInt && k.Int >= a.nextInt {
		a.nextInt = k.Int + 1
	}
}

// Append inserts v at the array's next free integer key and returns the
// key used, implementing `$a[] = v`.
func (a *ArrayData) Append(v *Value) Key {
	k := IntKey(a.nextInt)
	a.Set(k, v)
	return k
}

func (a *ArrayData) Unset(k Key) {
	i, ok := a.index[k]
	if !ok {
		return
	}
	delete(a.index, k)
	a.keys = append(a.keys[:i], a.keys[i+1:]...)
	a.vals = append(a.vals[:i], a.vals[i+1:]...)
	for j := i; j < len(a.keys); j++ {
		a.index[a.keys[j]] = j
	}
}

// Keys returns the keys in insertion order. Callers must not mutate the
// returned slice.
func (a *ArrayData) Keys() []Key        { return a.keys }
func (a *ArrayData) Values() []*Value   { return a.vals }
func (a *ArrayData) NextFreeInt() int64 { return a.nextInt }

func (a *ArrayData) IsList() bool {
	for i, k := range a.keys {
		if !k.IsInt || k.Int != int64(i) {
			return false
		}
	}
	return true
}

// ObjPayload is the shared state of an Object value. Multiple
// Value{Type: Object} cells may hold the same *ObjPayload pointer in
// their Data field; all such cells observe the same payload,
// which is what gives objects reference semantics distinct from arrays.
type ObjPayload struct {
	ClassName  string
	Properties map[string]*Value
	// PropOrder preserves declaration/assignment order for var_dump,
	// foreach, and array casts.
	PropOrder         []string
	DynamicProperties map[string]bool
	// Internal holds opaque native state for built-in classes (e.g. a
	// Generator's paused frame, a PDO connection, a DateTime instant).
	Internal  interface{}
	Destroyed bool
}

func NewObjPayload(class string) *ObjPayload {
	return &ObjPayload{
		ClassName:         class,
		Properties:        make(map[string]*Value),
		DynamicProperties: make(map[string]bool),
	}
}

func (o *ObjPayload) Get(name string) (*Value, bool) {
	v, ok := o.Properties[name]
	return v, ok
}

func (o *ObjPayload) Set(name string, v *Value) {
	if _, exists := o.Properties[name]; !exists {
		o.PropOrder = append(o.PropOrder, name)
	}
	o.Properties[name] = v
}

func (o *ObjPayload) Unset(name string) {
	if _, exists := o.Properties[name]; !exists {
		return
	}
	delete(o.Properties, name)
	delete(o.DynamicProperties, name)
	for i, n := range o.PropOrder {
		if n == name {
			o.PropOrder = append(o.PropOrder[:i], o.PropOrder[i+1:]...)
			break
		}
	}
}

// Closure is the captured-state companion of a Value{Type: Object,
// ClassName: "Closure"}. Func is opaque here (it is a *registry.Function)
// to avoid an import cycle between values and registry; the vm package
// type-asserts it back when invoking the closure.
type Closure struct {
	Func     interface{}
	Bound    map[string]*Value
	This     *Value
	BoundCls string
}

// Constructors

func NewNull() *Value                  { return &Value{Type: Null} }
func NewBool(b bool) *Value            { return &Value{Type: Bool, Data: b} }
func NewInt(i int64) *Value            { return &Value{Type: Int, Data: i} }
func NewFloat(f float64) *Value        { return &Value{Type: Float, Data: f} }
func NewString(s string) *Value        { return &Value{Type: String, Data: s} }
func NewResource(r interface{}) *Value { return &Value{Type: Resource, Data: r} }
func NewUninitialized() *Value         { return &Value{Type: Uninitialized} }

// NewArray wraps a fresh, empty ArrayData.
func NewArray() *Value { return &Value{Type: Array, Data: NewArrayData()} }

// NewArrayFrom wraps an existing ArrayData (used by COW clone sites).
func NewArrayFrom(a *ArrayData) *Value { return &Value{Type: Array, Data: a} }

// Type predicates

func (v *Value) IsNull() bool     { return v.Type == Null }
func (v *Value) IsBool() bool     { return v.Type == Bool }
func (v *Value) IsInt() bool      { return v.Type == Int }
func (v *Value) IsFloat() bool    { return v.Type == Float }
func (v *Value) IsString() bool   { return v.Type == String }
func (v *Value) IsArray() bool    { return v.Type == Array }
func (v *Value) IsObject() bool   { return v.Type == Object }
func (v *Value) IsResource() bool { return v.Type == Resource }
func (v *Value) IsNumeric() bool  { return v.Type == Int || v.Type == Float }

func (v *Value) AsBool() bool        { return v.Data.(bool) }
func (v *Value) AsInt() int64        { return v.Data.(int64) }
func (v *Value) AsFloat() float64    { return v.Data.(float64) }
func (v *Value) AsString() string    { return v.Data.(string) }
func (v *Value) AsArray() *ArrayData { return v.Data.(*ArrayData) }

// TypeName renders the gettype()-style name of the value.
func (v *Value) TypeName() string { return v.Type.String() }

func isNaN(f float64) bool { return f != f }

// IsNumericString reports whether a string value would be treated as
// numeric-shaped for the purposes of loose comparison (§4.E).
func (v *Value) IsNumericString() bool {
	if v.Type != String {
		return false
	}
	_, _, ok := parseNumericString(v.AsString())
	return ok
}

// String implements fmt.Stringer for debug printing; it is not the
// PHP-visible to-string conversion (see ToString in convert.go).
func (v *Value) String() string {
	return fmt.Sprintf("%s(%v)", v.Type, v.Data)
}
