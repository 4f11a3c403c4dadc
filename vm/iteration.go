package vm

import (
	"github.com/loomphp/loom/opcodes"
	"github.com/loomphp/loom/values"
)

// feIterator backs a single foreach loop: a snapshot of an array's keys
// (so mutating the array mid-loop behaves like PHP's copy-on-write
// foreach, not a live view), a Generator being drained lazily, or an
// object's declared-order property walk.
type feIterator struct {
	keys []values.Key
	arr  *values.ArrayData
	pos  int

	gen *Generator
	ec  *ExecutionContext

	obj *values.ObjPayload
}

func (ec *ExecutionContext) newFeIterator(src *values.Value) *feIterator {
	if src.IsArray() {
		arr := src.AsArray()
		arr.MarkShared()
		keys := make([]values.Key, len(arr.Keys()))
		copy(keys, arr.Keys())
		return &feIterator{keys: keys, arr: arr}
	}
	if src.IsObject() {
		if payload, ok := src.Data.(*values.ObjPayload); ok {
			if gen, ok := payload.Internal.(*Generator); ok {
				return &feIterator{gen: gen, ec: ec}
			}
			return &feIterator{obj: payload}
		}
	}
	return &feIterator{}
}

func (it *feIterator) exhausted() bool {
	switch {
	case it.gen != nil:
		return !it.gen.valid(it.ec)
	case it.obj != nil:
		return it.pos >= len(it.obj.PropOrder)
	default:
		return it.pos >= len(it.keys)
	}
}

func (it *feIterator) next() (key, val *values.Value) {
	switch {
	case it.gen != nil:
		key = it.gen.currentKey(it.ec)
		val = it.gen.currentValue(it.ec)
		it.gen.advance(it.ec, nil)
		return
	case it.obj != nil:
		name := it.obj.PropOrder[it.pos]
		it.pos++
		v, _ := it.obj.Get(name)
		return values.NewString(name), v
	default:
		k := it.keys[it.pos]
		it.pos++
		v, _ := it.arr.Get(k)
		return keyToValue(k), v
	}
}

func keyToValue(k values.Key) *values.Value {
	if k.IsInt {
		return values.NewInt(k.Int)
	}
	return values.NewString(k.Str)
}

// setLocal writes v into frame's local named slot, allocating a fresh
// heap cell on first reference — the same write-through contract
// execAssign uses, factored out for the FE_FETCH key/value binds.
func (ec *ExecutionContext) setLocal(frame *CallFrame, name string, v *values.Value) {
	if h, ok := frame.Locals[name]; ok {
		ec.Heap.Get(h).Value = v
	} else {
		frame.Locals[name] = ec.Heap.Alloc(v)
	}
}

func (ec *ExecutionContext) execFeReset(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	src, err := frame.pop()
	if err != nil {
		return 0, false, err
	}
	it := ec.newFeIterator(src)
	frame.Iterators = append(frame.Iterators, it)
	frame.push(values.NewInt(int64(len(frame.Iterators) - 1)))
	return frame.IP + 1, false, nil
}

// execFeFetch peeks the iterator slot index left on the stack by
// FE_RESET, advancing it or jumping to Op2 (the loop-exit label) once
// exhausted. Op1 names the optional key-variable; Result names the
// value-variable.
func (ec *ExecutionContext) execFeFetch(frame *CallFrame, inst *opcodes.Instruction) (int, bool, error) {
	idxVal, err := frame.peek()
	if err != nil {
		return 0, false, err
	}
	idx := int(idxVal.AsInt())
	if idx < 0 || idx >= len(frame.Iterators) {
		return 0, false, newEngineError("foreach", "invalid iterator slot")
	}
	it := frame.Iterators[idx]
	if it.exhausted() {
		return int(inst.Op2), false, nil
	}
	key, val := it.next()
	if inst.Op1 != 0 {
		ec.setLocal(frame, ec.symName(frame, inst.Op1), key)
	}
	ec.setLocal(frame, ec.symName(frame, inst.Result), val)
	return frame.IP + 1, false, nil
}

func (ec *ExecutionContext) execFeFree(frame *CallFrame) (int, bool, error) {
	if _, err := frame.pop(); err != nil {
		return 0, false, err
	}
	return frame.IP + 1, false, nil
}
