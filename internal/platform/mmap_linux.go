//go:build linux

package platform

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ReserveAligned reserves size bytes of address space aligned to
// 1<<alignLog2, with no read/write/execute permission (PROT_NONE) until
// Commit is called over sub-ranges of it. Mirrors the reserve-then-commit
// discipline spec.md 4.7 requires of the compartment's 4GiB region: a
// single large reservation up front means memory.grow never needs to
// relocate the buffer and invalidate outstanding pointers into it.
//
// Grounded on the teacher's mmap_linux.go, which reserves with
// unix.PROT_NONE and re-protects sub-ranges for its code-cache use case;
// the same reserve-wider-then-narrow technique is used here to get
// alignment mmap alone cannot guarantee (mmap only guarantees page
// alignment, not the much coarser alignment a compartment needs).
func ReserveAligned(size uintptr, alignLog2 uint) (*Region, error) {
	align := uintptr(1) << alignLog2
	// Over-reserve by one alignment unit so there is always an aligned
	// sub-range within [addr, addr+oversize) to trim down to.
	oversize := size + align
	data, err := unix.Mmap(-1, 0, int(oversize), unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("platform: reserve %d bytes: %w", oversize, err)
	}
	base := uintptr(unsafe.Pointer(&data[0]))
	alignedBase := (base + align - 1) &^ (align - 1)
	frontTrim := alignedBase - base
	tailTrim := oversize - frontTrim - size

	if frontTrim > 0 {
		if _, _, errno := unix.Syscall(unix.SYS_MUNMAP, base, frontTrim, 0); errno != 0 {
			return nil, fmt.Errorf("platform: trim front: %w", errno)
		}
	}
	if tailTrim > 0 {
		if _, _, errno := unix.Syscall(unix.SYS_MUNMAP, alignedBase+size, tailTrim, 0); errno != 0 {
			return nil, fmt.Errorf("platform: trim tail: %w", errno)
		}
	}
	aligned := data[frontTrim : frontTrim+size]
	return &Region{Base: aligned, Addr: alignedBase, Size: size}, nil
}

// Commit makes [offset, offset+length) within r readable and writable.
func (r *Region) Commit(offset, length uintptr) error {
	if err := unix.Mprotect(r.Base[offset:offset+length], unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return fmt.Errorf("platform: commit: %w", err)
	}
	return nil
}

// Decommit returns [offset, offset+length) to PROT_NONE, releasing the
// physical pages backing it without giving up the virtual address range.
func (r *Region) Decommit(offset, length uintptr) error {
	if err := unix.Madvise(r.Base[offset:offset+length], unix.MADV_DONTNEED); err != nil {
		return fmt.Errorf("platform: decommit: %w", err)
	}
	if err := unix.Mprotect(r.Base[offset:offset+length], unix.PROT_NONE); err != nil {
		return fmt.Errorf("platform: decommit: %w", err)
	}
	return nil
}

// Release gives up the entire reservation.
func (r *Region) Release() error {
	if _, _, errno := unix.Syscall(unix.SYS_MUNMAP, r.Addr, r.Size, 0); errno != 0 {
		return fmt.Errorf("platform: release: %w", errno)
	}
	return nil
}
