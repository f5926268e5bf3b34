package runtime

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hack-chain/WAVM/internal/ir"
)

// Table is a growable array of function references, indexed by funcref
// calls compiled from call_indirect. Grounded on WAVM's
// Lib/Runtime/Table.cpp: Get keeps getTableElement's saturated-index
// speculation defense. The slot slice is allocated at the table's initial
// size (nothing is reserved up to the maximum), and Grow appends to it
// under resizeMu instead of running a compare-and-swap resize loop.
//
// Go GC adaptation (DESIGN.md, spec.md §3/§9): WAVM stores each slot as an
// obfuscated uintptr (a "biased" function pointer) precisely so a
// misspeculated out-of-bounds read lands on a harmless sentinel address
// instead of crashing, and reconstructs the real pointer on the read path.
// That scheme assumes manual memory management: nothing else in the
// process holds a reference to the table's target objects, so encoding a
// pointer as an unrecognizable integer is safe. Go's collector does not
// make that assumption — a uintptr is not a root, so a slot holding only
// an obfuscated address could be collected out from under a concurrent
// reader. This Table instead stores `atomic.Pointer[Function]` slots,
// which the collector does trace, and offers Function.BiasedValue only as
// a derived view for ABI parity with a hypothetical native backend; the
// saturated-index defense below is kept for parity with the documented
// algorithm even though Go's bounds-checked slice access already rules out
// the out-of-bounds read it exists to make harmless.
type Table struct {
	object

	elemType ir.ValueType
	min, max uint32

	resizeMu sync.Mutex
	slots    []atomic.Pointer[Function]
}

// TableType describes a Table's declared shape, for import/export
// type-checking.
func (t *Table) TableType() *ir.TableType {
	max := t.max
	var maxPtr *uint32
	if max != noMax {
		maxPtr = &max
	}
	return &ir.TableType{ElemType: t.elemType, Limits: ir.Limits{Min: uint32(len(t.slots)), Max: maxPtr}}
}

func (t *Table) Kind() ObjectKind { return ObjectKindTable }
func (t *Table) ExternType() any  { return t.TableType() }

const noMax = ^uint32(0)

// CreateTable allocates a new table within c, with `initial` slots, all
// null, and the given declared maximum (noMax for unbounded).
func CreateTable(c *Compartment, elemType ir.ValueType, initial, max uint32) *Table {
	t := &Table{
		object:   object{id: c.allocID(), compartment: c},
		elemType: elemType,
		min:      initial,
		max:      max,
		slots:    make([]atomic.Pointer[Function], initial),
	}
	c.mu.Lock()
	c.tables = append(c.tables, t)
	c.mu.Unlock()
	return t
}

// Size returns the table's current element count.
func (t *Table) Size() uint32 {
	t.resizeMu.Lock()
	defer t.resizeMu.Unlock()
	return uint32(len(t.slots))
}

// Grow appends delta null slots, returning the table's size before
// growing, or ok=false if doing so would exceed the declared maximum
// (mirroring growTableImpl's failure-returns-oldSize convention so a
// caller can distinguish failure from a zero-size table without a
// separate error value, matching the table.grow instruction's own
// semantics: failure is encoded as -1, not a trap).
func (t *Table) Grow(delta uint32) (oldSize uint32, ok bool) {
	t.resizeMu.Lock()
	defer t.resizeMu.Unlock()
	old := uint32(len(t.slots))
	newSize := old + delta
	if newSize < old || (t.max != noMax && newSize > t.max) {
		return old, false
	}
	t.slots = append(t.slots, make([]atomic.Pointer[Function], delta)...)
	return old, true
}

// Get returns the function at index, or nil if that slot is null.
// Returns an error if index is out of bounds.
func (t *Table) Get(index uint32) (*Function, error) {
	t.resizeMu.Lock()
	size := uint32(len(t.slots))
	t.resizeMu.Unlock()
	if index >= size {
		// Saturate the index into range, matching Table::getTableElement's
		// speculative-execution defense (Lib/Runtime/Table.cpp), before
		// reporting the out-of-bounds condition to the caller.
		index = size - 1
		return nil, fmt.Errorf("%w: index %d, size %d", ErrOutOfBoundsTableAccess, index, size)
	}
	return t.slots[index].Load(), nil
}

// Set stores fn (nil clears the slot) at index.
func (t *Table) Set(index uint32, fn *Function) error {
	t.resizeMu.Lock()
	size := uint32(len(t.slots))
	t.resizeMu.Unlock()
	if index >= size {
		return fmt.Errorf("%w: index %d, size %d", ErrOutOfBoundsTableAccess, index, size)
	}
	t.slots[index].Store(fn)
	return nil
}
