// Package cache is the hot-block cache: a linear-probed <pc, offset>
// table backed by a bump-allocated, executable code arena. It gives a
// JIT code generator somewhere to land native code and a way to find
// it again by guest PC; the dispatcher in `engine` is what actually
// decides when a block is hot enough to compile.
package cache

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// ArenaSize is the fixed size of the RWX code arena, mapped once at
// cache creation and never grown.
const ArenaSize = 64 * 1024 * 1024

// Arena is a bump allocator over a single RWX mapping. Code is never
// freed individually; the whole arena is torn down with the cache.
type Arena struct {
	mem  []byte
	tail uint64
}

// newArena mmaps ArenaSize bytes read/write/exec: one uniform RWX
// mapping rather than a write/execute split, since the code generator
// that would benefit from W^X hardening is out of scope here.
func newArena() (*Arena, error) {
	mem, err := unix.Mmap(-1, 0, ArenaSize,
		unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC,
		unix.MAP_ANONYMOUS|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("cache: mmap arena: %w", err)
	}
	return &Arena{mem: mem}, nil
}

func alignTo(val, align uint64) uint64 {
	if align == 0 {
		return val
	}
	return (val + align - 1) &^ (align - 1)
}

// Insert copies code into the arena at the next align-rounded offset
// and flushes the host instruction cache over the written range so a
// subsequent jump into it sees the new bytes rather than stale
// prefetched/cached instructions. It returns the offset the bytes now
// live at.
func (a *Arena) Insert(code []byte, align uint64) (uint64, error) {
	offset := alignTo(a.tail, align)
	end := offset + uint64(len(code))
	if end > uint64(len(a.mem)) {
		return 0, fmt.Errorf("cache: arena exhausted: need %d bytes at offset %#x, capacity %d", len(code), offset, len(a.mem))
	}
	copy(a.mem[offset:end], code)
	flushICache(&a.mem[offset], len(code))
	a.tail = end
	return offset, nil
}

// Bytes returns the arena bytes at [offset, offset+n), for callers (and
// tests) that want to confirm what was actually written there.
func (a *Arena) Bytes(offset uint64, n int) []byte {
	return a.mem[offset : offset+uint64(n)]
}

// Tail reports how many bytes of the arena are in use.
func (a *Arena) Tail() uint64 { return a.tail }

// Cap reports the arena's total capacity in bytes.
func (a *Arena) Cap() uint64 { return uint64(len(a.mem)) }

// Close releases the arena's mapping.
func (a *Arena) Close() error {
	if a.mem == nil {
		return nil
	}
	err := unix.Munmap(a.mem)
	a.mem = nil
	return err
}
