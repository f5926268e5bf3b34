package runtime

import (
	"sync"

	"github.com/hack-chain/WAVM/internal/ir"
	"github.com/hack-chain/WAVM/internal/platform"
)

// compartmentRegionSize and compartmentRegionAlign give every Compartment a
// 4GiB reservation aligned on a 4GiB (2^32) boundary, so a compartment's
// base address can be recovered from any address within it by masking off
// the low 32 bits (compartmentBase), the address-space layout spec.md 4.7
// describes for a WebAssembly32 sandbox.
const (
	compartmentRegionSize  = 1 << 32
	compartmentRegionAlign = 32
)

// Compartment is the sandboxing and resource-accounting unit spec.md 4.7
// describes: every Table, Memory, Global, ExceptionType, ModuleInstance,
// and Context created "in" a compartment is reachable only through objects
// the embedder explicitly handed out. This package has no operation that
// clones a whole compartment; CloneModuleInstance copies one module
// instance within a compartment.
//
// Grounded on WAVM's Lib/Runtime/Compartment.cpp. WAVM lays out a header
// page and a per-context runtime-data block so JIT-compiled code can reach
// compartment state through a single biased pointer; this module's only
// Backend is a tree-walking interpreter (jit/interp), which reaches
// compartment state through the jit.Host interface instead of raw memory
// offsets, so Compartment does not need that header layout. It still
// reserves the same 4GiB, 4GiB-aligned address range WAVM's compartment
// occupies (internal/platform.ReserveAligned), so an address anywhere in
// the compartment's own range can be mapped back to it by masking off the
// low 32 bits (compartmentBase) — each Memory created within the
// compartment reserves its own range the same way (see memory.go) rather
// than sub-allocating from this one, since nothing here yet needs them
// to share a single address space the way WAVM's biased pointers do. On
// an OS internal/platform has no backend for, region is nil and
// Compartment degrades to pure Go-struct bookkeeping with no
// address-masking support. See DESIGN.md's Go GC adaptation note for why
// Table's slots are never backed by region, unlike Memory's.
type Compartment struct {
	mu     sync.Mutex
	region *platform.Region // nil if this OS has no platform.ReserveAligned backend

	tables          []*Table
	memories        []*Memory
	globals         []*Global
	exceptionTypes  []*ExceptionType
	moduleInstances []*ModuleInstance
	contexts        []*Context

	// mutableGlobalsUsed tracks which per-context mutable-global array
	// slots are occupied; allocateMutableGlobalIndex takes the lowest
	// unoccupied slot the same way WAVM's getSmallestNonMember bitset scan
	// does (Lib/Runtime/Global.cpp). Nothing in this package marks a slot
	// unoccupied again, so each new mutable global gets a fresh slot.
	mutableGlobalsUsed []bool

	// initialContextMutableGlobals is the template every new Context's
	// mutable-globals array is copied from; createGlobal appends to it so
	// existing contexts only need their array grown, not rebuilt.
	initialContextMutableGlobals []ir.Value

	nextObjectID uint64
}

// NewCompartment creates an empty compartment, reserving its 4GiB address
// range up front. If internal/platform has no backend for the host OS, the
// compartment is still usable — it just has no region to mask addresses
// against or to back its memories' reservations with.
func NewCompartment() *Compartment {
	c := &Compartment{}
	if region, err := platform.ReserveAligned(compartmentRegionSize, compartmentRegionAlign); err == nil {
		c.region = region
	}
	return c
}

func (c *Compartment) allocID() uint64 {
	c.nextObjectID++
	return c.nextObjectID
}

// Base returns the address of the compartment's reserved 4GiB region, or
// (0, false) if no region was reserved (platform.ErrUnsupported).
func (c *Compartment) Base() (uintptr, bool) {
	if c.region == nil {
		return 0, false
	}
	return c.region.Addr, true
}

// compartmentBase masks addr down to the 4GiB-aligned boundary its owning
// compartment's region was reserved at, recovering the compartment's base
// address from any address within it.
func compartmentBase(addr uintptr) uintptr {
	return addr &^ uintptr(compartmentRegionSize-1)
}

// Release returns the compartment's reserved address range to the OS. The
// compartment and every object it owns must not be used afterward. A
// compartment whose region is nil (platform.ErrUnsupported) has nothing to
// release.
func (c *Compartment) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.region == nil {
		return nil
	}
	err := c.region.Release()
	c.region = nil
	return err
}

// allocateMutableGlobalIndex finds the lowest free slot in the per-context
// mutable-globals array, growing the bitset if every existing slot is in
// use. Must be called with c.mu held.
func (c *Compartment) allocateMutableGlobalIndex() int {
	for i, used := range c.mutableGlobalsUsed {
		if !used {
			c.mutableGlobalsUsed[i] = true
			return i
		}
	}
	c.mutableGlobalsUsed = append(c.mutableGlobalsUsed, true)
	c.initialContextMutableGlobals = append(c.initialContextMutableGlobals, ir.Value{})
	for _, ctx := range c.contexts {
		ctx.mutableGlobals = append(ctx.mutableGlobals, ir.Value{})
	}
	return len(c.mutableGlobalsUsed) - 1
}
