package cache

import (
	"fmt"
	"unsafe"
)

// Cache pairs the pc hash table with the code arena it indexes into.
type Cache struct {
	Table Table
	Arena *Arena
}

// New allocates a fresh cache with an empty table and a freshly mapped
// arena.
func New() (*Cache, error) {
	arena, err := newArena()
	if err != nil {
		return nil, err
	}
	return &Cache{Arena: arena}, nil
}

// Lookup reports whether pc has hot, compiled code cached, and if so
// the host address it starts at -- mirroring cache_lookup's contract
// of handing back a raw pointer a JIT caller would jump to.
func (c *Cache) Lookup(pc uint64) (addr uintptr, ok bool, err error) {
	offset, ok, err := c.Table.Lookup(pc)
	if err != nil || !ok {
		return 0, false, err
	}
	return c.Arena.addrAt(offset), true, nil
}

// Hot records a hit against pc and reports whether it just crossed (or
// had already crossed) the hot threshold.
func (c *Cache) Hot(pc uint64) (bool, error) {
	return c.Table.Hot(pc)
}

// Add inserts freshly generated code for pc into the arena and records
// its location in the table, returning the host address it now lives
// at.
func (c *Cache) Add(pc uint64, code []byte, align uint64) (uintptr, error) {
	offset, err := c.Arena.Insert(code, align)
	if err != nil {
		return 0, fmt.Errorf("cache: add pc %#x: %w", pc, err)
	}
	if err := c.Table.Insert(pc, offset); err != nil {
		return 0, err
	}
	return c.Arena.addrAt(offset), nil
}

// Close releases the cache's arena mapping.
func (c *Cache) Close() error {
	return c.Arena.Close()
}

func (a *Arena) addrAt(offset uint64) uintptr {
	return uintptr(unsafe.Pointer(&a.mem[offset]))
}
