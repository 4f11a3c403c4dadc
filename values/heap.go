package values

// Handle is an opaque index into a Heap's slot table. Handles are stable
// for the lifetime of the cell they name; a freed slot's handle is only
// reused after the generation counter distinguishes it from its prior
// occupant, so a stale handle held past a free is detectable rather than
// silently aliasing new data.
type Handle struct {
	index int
	gen   uint32
}

// Valid reports whether h was ever issued by a Heap (the zero Handle is
// never returned by Alloc).
func (h Handle) Valid() bool { return h.gen != 0 }

// Zval is the indirection cell the heap stores per handle: the value
// itself plus whether the cell is a PHP reference (`&$x`). A referenced
// cell is shared by every variable bound to it via `=&`; writing through
// one handle is observed by all of them. Non-referenced cells are
// conceptually owned by a single variable slot, though their Value may
// itself alias a COW ArrayData.
type Zval struct {
	Value *Value
	IsRef bool
	// refCount tracks how many variable slots currently point at this
	// cell. It is advisory bookkeeping for maybe_reclaim, not a
	// correctness requirement: a cell with refCount 0 is eligible for
	// reclamation at the next epoch boundary, but nothing panics if
	// reclamation runs late.
	refCount int
	live     bool
	gen      uint32
}

// Heap is the per-request arena of Zval cells. It has no tracing
// collector: cells become eligible for reuse only when their refCount
// drops to zero, which is checked in bulk at MaybeReclaim call sites
// (call/return/dispatch boundaries) rather than eagerly on every
// decrement. Reference cycles among objects are tolerated and released
// in bulk when the request's Heap is discarded.
type Heap struct {
	cells   []Zval
	freeIdx []int
	epoch   uint32
}

// NewHeap constructs an empty request-scoped heap.
func NewHeap() *Heap {
	return &Heap{}
}

// Alloc stores v in a fresh or recycled cell and returns its handle.
func (h *Heap) Alloc(v *Value) Handle {
	h.epoch++
	if n := len(h.freeIdx); n > 0 {
		idx := h.freeIdx[n-1]
		h.freeIdx = h.freeIdx[:n-1]
		cell := &h.cells[idx]
		cell.Value = v
		cell.IsRef = false
		cell.refCount = 1
		cell.live = true
		cell.gen++
		return Handle{index: idx, gen: cell.gen}
	}
	h.cells = append(h.cells, Zval{Value: v, refCount: 1, live: true, gen: 1})
	return Handle{index: len(h.cells) - 1, gen: 1}
}

// Get dereferences h. It panics on a stale or out-of-range handle: those
// indicate an engine bug (a dangling reference survived reclamation),
// never a script-level condition.
func (h *Heap) Get(handle Handle) *Zval {
	cell := h.cellFor(handle)
	return cell
}

func (h *Heap) cellFor(handle Handle) *Zval {
	if handle.index < 0 || handle.index >= len(h.cells) {
		panic("values: heap handle out of range")
	}
	cell := &h.cells[handle.index]
	if !cell.live || cell.gen != handle.gen {
		panic("values: stale heap handle")
	}
	return cell
}

// ArrayForWrite returns the ArrayData a caller may mutate in place at
// handle h: if the cell's current array is shared with another cell (see
// ArrayData.MarkShared), it is cloned first and the clone is written back
// into the cell so the original holder keeps observing the pre-mutation
// value. Panics if the cell does not currently hold an array.
func (h *Heap) ArrayForWrite(handle Handle) *ArrayData {
	cell := h.cellFor(handle)
	arr := cell.Value.AsArray()
	owned := arr.CloneIfShared()
	if owned != arr {
		cell.Value = NewArrayFrom(owned)
	}
	return owned
}

// Retain increments a cell's advisory reference count, used when a
// second variable slot is bound to the same handle (e.g. `$b =& $a`, or
// passing a reference into a call frame).
func (h *Heap) Retain(handle Handle) {
	h.cellFor(handle).refCount++
}

// Release decrements a cell's advisory reference count. It does not free
// the cell immediately; MaybeReclaim does that in bulk.
func (h *Heap) Release(handle Handle) {
	cell := h.cellFor(handle)
	if cell.refCount > 0 {
		cell.refCount--
	}
}

// MaybeReclaim sweeps zero-refcount cells into the free list. It is
// called at call/return and top-level-dispatch boundaries rather than on
// every Release, trading slightly delayed reclamation for avoiding a
// reclaim check on every single reference-count decrement.
func (h *Heap) MaybeReclaim() {
	for i := range h.cells {
		cell := &h.cells[i]
		if cell.live && cell.refCount <= 0 {
			cell.live = false
			cell.Value = nil
			h.freeIdx = append(h.freeIdx, i)
		}
	}
}

// Len reports the number of live cells, for soundness tests.
func (h *Heap) Len() int {
	n := 0
	for _, c := range h.cells {
		if c.live {
			n++
		}
	}
	return n
}
