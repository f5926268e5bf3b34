// Package platform wraps the OS virtual-memory primitives the runtime
// package needs to reserve, commit, and release the large aligned address
// ranges a Compartment occupies: a single reservation big enough for every
// memory and every context the compartment will ever hold, committed
// page-by-page as WebAssembly memory.grow and context-creation calls
// demand.
//
// Grounded on the teacher's internal/platform/mmap_linux.go family, with
// the actual syscalls routed through golang.org/x/sys/unix rather than the
// raw syscall package the teacher uses for its narrower (executable code
// page) use case, since this package additionally needs aligned
// reservations and partial-range protection changes mmap_linux.go does not
// itself need.
package platform

import "fmt"

// PageSize is the unit of commit/decommit granularity. WebAssembly defines
// its own 64KiB page for memory.grow; PageSize is the much smaller OS page
// used underneath it for reservation bookkeeping.
const PageSize = 4096

// Region is a reserved range of virtual address space. No page within it
// is guaranteed readable/writable until Commit is called for that range.
type Region struct {
	Base []byte // len(Base) == Size; the whole reservation
	Addr uintptr
	Size uintptr
}

// ErrUnsupported is returned by every platform primitive on an OS this
// package has no backend for, matching the teacher's
// mmap_unsupported.go panic-on-use convention but as a returned error
// instead, since a failed reservation is a recoverable instantiation
// failure here rather than an unrecoverable codegen-time condition.
var ErrUnsupported = fmt.Errorf("platform: unsupported operating system")
