// Package memory is the guest memory manager: ELF segment loading,
// the fixed identity-offset guest↔host address translation, and the
// program-break allocator that backs the guest's dynamic memory and
// initial stack.
package memory

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// OFFSET places every guest virtual address in a high host address
// band that ordinary host mappings (heap, shared libraries, the Go
// runtime itself) never reach, so guest and host memory can coexist
// in one host address space without collision.
const OFFSET = 0x0000_8880_0000_0000

const pageSize = 4096

// ToHost translates a guest virtual address to the host virtual
// address it is mapped at.
func ToHost(addr uint64) uint64 { return addr + OFFSET }

// ToGuest is the inverse of ToHost.
func ToGuest(addr uint64) uint64 { return addr - OFFSET }

func roundDown(x, k uint64) uint64 { return x &^ (k - 1) }
func roundUp(x, k uint64) uint64   { return (x + k - 1) &^ (k - 1) }

// Permission is the read/write/execute triple a mapping is created
// with, independent of host `unix.PROT_*` constants so callers never
// need to import golang.org/x/sys/unix themselves.
type Permission byte

const (
	PermRead Permission = 1 << iota
	PermWrite
	PermExec
)

func (p Permission) prot() int {
	var prot int
	if p&PermRead != 0 {
		prot |= unix.PROT_READ
	}
	if p&PermWrite != 0 {
		prot |= unix.PROT_WRITE
	}
	if p&PermExec != 0 {
		prot |= unix.PROT_EXEC
	}
	return prot
}

// mmapFixed places a mapping at an exact host address. The high-level
// unix.Mmap helper always lets the kernel choose the address, so the
// identity-offset design (which must land guest segments at a precise
// host address) goes through the raw mmap(2) syscall directly, the
// same way unix.Mmap itself is implemented one layer down.
func mmapFixed(hostAddr, size uint64, prot int, fd int, offset int64) error {
	if size == 0 {
		return nil
	}
	flags := unix.MAP_FIXED | unix.MAP_PRIVATE
	if fd < 0 {
		flags |= unix.MAP_ANONYMOUS
	}
	_, _, errno := unix.Syscall6(unix.SYS_MMAP,
		uintptr(hostAddr), uintptr(size), uintptr(prot), uintptr(flags),
		uintptr(fd), uintptr(offset))
	if errno != 0 {
		return fmt.Errorf("mmap at %#x size %#x: %w", hostAddr, size, errno)
	}
	return nil
}

// munmapRange unmaps [hostAddr, hostAddr+size).
func munmapRange(hostAddr, size uint64) error {
	if size == 0 {
		return nil
	}
	_, _, errno := unix.Syscall(unix.SYS_MUNMAP, uintptr(hostAddr), uintptr(size), 0)
	if errno != 0 {
		return fmt.Errorf("munmap at %#x size %#x: %w", hostAddr, size, errno)
	}
	return nil
}

// mprotectRange changes protection on an existing mapping.
func mprotectRange(hostAddr, size uint64, prot int) error {
	b := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(hostAddr))), size)
	if err := unix.Mprotect(b, prot); err != nil {
		return fmt.Errorf("mprotect at %#x size %#x: %w", hostAddr, size, err)
	}
	return nil
}

// Manager holds the guest address-space bookkeeping. Four 64-bit guest
// addresses as specified: entry, host_alloc (mirrored here as the host
// address directly above all materialized host memory), base (the
// high-water mark of loaded ELF segments, below which the break may
// never fall) and alloc (the current break). The invariant
// base ≤ alloc ≤ ToGuest(hostAlloc) holds after every operation.
type Manager struct {
	Entry     uint64
	hostAlloc uint64
	Base      uint64
	Alloc     uint64
}

// NewManager returns an empty manager; call LoadELF before anything else.
func NewManager() *Manager {
	return &Manager{}
}

// HostAlloc reports the current top of materialized host memory, as a
// host address.
func (m *Manager) HostAlloc() uint64 { return m.hostAlloc }

// Reserve initializes the manager without an ELF image: Base, Alloc,
// and the host high-water mark are all set to a single page-aligned
// guest address, and that first page is materialized read/write/exec.
// LoadELF is the normal entry point; Reserve exists for callers (tests,
// or a future non-ELF guest loader) that want a bare address space.
func (m *Manager) Reserve(base uint64) error {
	base = roundUp(base, pageSize)
	if err := mmapFixed(ToHost(base), pageSize, unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC, -1, 0); err != nil {
		return err
	}
	m.Base = base
	m.Alloc = base
	m.hostAlloc = ToHost(base) + pageSize
	return nil
}

// extend grows host_alloc up to newTop (a host address), page-rounded,
// via an anonymous R/W mapping placed directly above the current
// host_alloc.
func (m *Manager) extend(newTop uint64) error {
	top := roundUp(newTop, pageSize)
	if top <= m.hostAlloc {
		return nil
	}
	if err := mmapFixed(m.hostAlloc, top-m.hostAlloc, unix.PROT_READ|unix.PROT_WRITE, -1, 0); err != nil {
		return err
	}
	m.hostAlloc = top
	return nil
}

// Brk implements the guest `brk` system call. addr == 0 returns the
// current break without mutation. Growing the break materializes new
// anonymous R/W host pages; shrinking it unmaps every whole page above
// the page-rounded new break. The new break can never fall below Base.
func (m *Manager) Brk(addr uint64) (uint64, error) {
	if addr == 0 {
		return m.Alloc, nil
	}
	if addr < m.Base {
		return m.Alloc, nil
	}

	sz := int64(addr) - int64(m.Alloc)
	switch {
	case sz > 0:
		if err := m.extend(ToHost(addr)); err != nil {
			return 0, err
		}
	case sz < 0:
		oldTop := roundUp(ToHost(m.Alloc), pageSize)
		newTop := roundUp(ToHost(addr), pageSize)
		if oldTop > newTop {
			if err := munmapRange(newTop, oldTop-newTop); err != nil {
				return 0, err
			}
			if newTop < m.hostAlloc {
				m.hostAlloc = newTop
			}
		}
	}
	m.Alloc = addr
	return m.Alloc, nil
}

// Mmap services a guest-anonymous mmap(2): it hands back length bytes
// of fresh, zeroed guest memory immediately above the current break
// with the requested protection, and advances the break past it. Only
// anonymous mappings are modeled -- file-backed mmap is out of scope,
// matching the simplified guest address space this manager implements.
func (m *Manager) Mmap(length uint64, perm Permission) (uint64, error) {
	addr := roundUp(m.Alloc, pageSize)
	size := roundUp(length, pageSize)
	if err := mmapFixed(ToHost(addr), size, perm.prot(), -1, 0); err != nil {
		return 0, err
	}
	top := ToHost(addr) + size
	if top > m.hostAlloc {
		m.hostAlloc = top
	}
	m.Alloc = addr + size
	return addr, nil
}

// Munmap releases a guest mapping previously returned by Mmap. The
// bump allocator backing Mmap never reclaims the address range (brk-
// style allocators do not either), so this only drops the host pages;
// Alloc is left where it was.
func (m *Manager) Munmap(addr, length uint64) error {
	size := roundUp(length, pageSize)
	return munmapRange(ToHost(addr), size)
}

// Mprotect changes the protection on a previously mapped guest range.
func (m *Manager) Mprotect(addr, length uint64, perm Permission) error {
	size := roundUp(length, pageSize)
	return mprotectRange(ToHost(addr), size, perm.prot())
}
