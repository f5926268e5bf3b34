package runtime

import (
	"fmt"
	"sync"

	"github.com/hack-chain/WAVM/internal/ir"
	"github.com/hack-chain/WAVM/internal/platform"
)

// WasmPageSize is the size of a single WebAssembly linear-memory page, the
// unit memory.grow and a memory's declared Limits operate in.
const WasmPageSize = 64 * 1024

// maxMemoryPages is the implementation limit Grow enforces regardless of a
// memory's declared maximum: 65536 pages, i.e. the full 4GiB a WebAssembly
// 1.0 linear memory's i32 address space can reach.
const maxMemoryPages = 65536

// Memory is a growable linear-memory buffer. Grounded on the teacher's
// internal/wasm/memory.go for the accessor naming and on spec.md 4.5's
// reserve-then-commit description: CreateMemory reserves the memory's
// maximum size up front via internal/platform.ReserveAligned, so growth
// commits additional pages into the same reservation rather than
// reallocating and copying — memory.grow never relocates the buffer or
// invalidates a pointer into it, matching the address stability a real JIT
// backend would depend on. On an OS internal/platform has no backend for,
// region is nil and Memory falls back to a plain growable []byte, which
// does not hold that address-stability guarantee but is otherwise
// behaviorally identical; see platform.ErrUnsupported.
type Memory struct {
	object

	mu     sync.Mutex
	region *platform.Region // nil if this OS has no platform.ReserveAligned backend
	buffer []byte
	max    uint32 // in pages; noMax for unbounded
}

func (m *Memory) Kind() ObjectKind { return ObjectKindMemory }
func (m *Memory) ExternType() any  { return m.MemoryType() }

func (m *Memory) MemoryType() *ir.MemoryType {
	m.mu.Lock()
	defer m.mu.Unlock()
	min := uint32(len(m.buffer) / WasmPageSize)
	var maxPtr *uint32
	if m.max != noMax {
		max := m.max
		maxPtr = &max
	}
	return &ir.Limits{Min: min, Max: maxPtr}
}

// CreateMemory allocates a new memory within c with `initial` pages.
func CreateMemory(c *Compartment, initial, max uint32) *Memory {
	m := &Memory{
		object: object{id: c.allocID(), compartment: c},
		max:    max,
	}

	reservePages := max
	if reservePages == noMax {
		reservePages = maxMemoryPages
	}
	if region, err := platform.ReserveAligned(uintptr(reservePages)*WasmPageSize, 0); err == nil {
		if err := region.Commit(0, uintptr(initial)*WasmPageSize); err == nil {
			m.region = region
			m.buffer = region.Base[:uintptr(initial)*WasmPageSize]
		} else {
			_ = region.Release()
		}
	}
	if m.buffer == nil {
		// platform has no backend for this OS, or the initial commit
		// failed; fall back to a plain growable slice.
		m.buffer = make([]byte, initial*WasmPageSize)
	}

	c.mu.Lock()
	c.memories = append(c.memories, m)
	c.mu.Unlock()
	return m
}

// Size returns the memory's current size, in pages.
func (m *Memory) Size() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint32(len(m.buffer) / WasmPageSize)
}

// Grow appends deltaPages pages to the memory, returning the size (in
// pages) before growing, or -1 if that would exceed the declared maximum
// or the implementation limit of 65536 pages (the memory.grow
// instruction's own failure convention, mirroring Table.Grow).
func (m *Memory) Grow(deltaPages uint32) int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := uint32(len(m.buffer) / WasmPageSize)
	newSize := old + deltaPages
	if newSize < old || newSize > maxMemoryPages || (m.max != noMax && newSize > m.max) {
		return -1
	}
	if m.region != nil {
		if err := m.region.Commit(uintptr(old)*WasmPageSize, uintptr(deltaPages)*WasmPageSize); err != nil {
			return -1
		}
		m.buffer = m.region.Base[:uintptr(newSize)*WasmPageSize]
	} else {
		m.buffer = append(m.buffer, make([]byte, deltaPages*WasmPageSize)...)
	}
	return int32(old)
}

// Read copies len(dst) bytes starting at offset into dst.
func (m *Memory) Read(offset uint32, dst []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	end := uint64(offset) + uint64(len(dst))
	if end > uint64(len(m.buffer)) {
		return fmt.Errorf("%w: offset %d, length %d, size %d", ErrOutOfBoundsMemoryAccess, offset, len(dst), len(m.buffer))
	}
	copy(dst, m.buffer[offset:end])
	return nil
}

// Write copies src into the memory starting at offset.
func (m *Memory) Write(offset uint32, src []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	end := uint64(offset) + uint64(len(src))
	if end > uint64(len(m.buffer)) {
		return fmt.Errorf("%w: offset %d, length %d, size %d", ErrOutOfBoundsMemoryAccess, offset, len(src), len(m.buffer))
	}
	copy(m.buffer[offset:end], src)
	return nil
}
