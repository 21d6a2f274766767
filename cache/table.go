package cache

import "fmt"

// NumSlots is the hash table's fixed slot count; pc is hashed onto it
// by simple modulus and collisions resolved by linear probing.
const NumSlots = 65536

// MaxProbes bounds a linear probe: past this many slots without an
// empty one or a match, the table is considered pathologically full.
const MaxProbes = 32

// HotThreshold is the hit count a pc needs before it is considered hot
// enough to hand to the code generator.
const HotThreshold = 100000

type slot struct {
	pc      uint64
	hot     uint32
	offset  uint64
	hasCode bool
}

// Table is the <pc, arena offset> hash table. pc == 0 marks an empty
// slot -- guest PC 0 is never a valid
// fetch address in this emulator (the guest's entry point and every
// reachable jump target live well above the identity-offset base), so
// this is a safe sentinel rather than a real restriction.
type Table struct {
	slots [NumSlots]slot
}

func hashIndex(pc uint64) uint64 { return pc % NumSlots }

// find locates pc's slot: either an existing entry or the first empty
// slot on its probe chain. found is false in the latter case.
func (t *Table) find(pc uint64) (idx uint64, found bool, err error) {
	idx = hashIndex(pc)
	for probes := 0; probes < MaxProbes; probes++ {
		s := &t.slots[idx]
		if !s.hasSlot() {
			return idx, false, nil
		}
		if s.pc == pc {
			return idx, true, nil
		}
		idx = hashIndex(idx + 1)
	}
	return 0, false, fmt.Errorf("cache: probe sequence exceeded %d slots for pc %#x (table too full)", MaxProbes, pc)
}

func (s *slot) hasSlot() bool { return s.pc != 0 }

// Hot records a hit against pc, creating the entry on first sight, and
// reports whether pc has now crossed HotThreshold.
func (t *Table) Hot(pc uint64) (bool, error) {
	idx, found, err := t.find(pc)
	if err != nil {
		return false, err
	}
	s := &t.slots[idx]
	if !found {
		s.pc = pc
		s.hot = 1
		return false, nil
	}
	if s.hot < HotThreshold {
		s.hot++
	}
	return s.hot >= HotThreshold, nil
}

// Lookup returns the arena offset cached for pc, if pc is both present
// and hot enough to have compiled code.
func (t *Table) Lookup(pc uint64) (offset uint64, ok bool, err error) {
	idx, found, err := t.find(pc)
	if err != nil {
		return 0, false, err
	}
	if !found {
		return 0, false, nil
	}
	s := &t.slots[idx]
	if s.hot >= HotThreshold && s.hasCode {
		return s.offset, true, nil
	}
	return 0, false, nil
}

// Insert records the arena offset pc's compiled code now lives at,
// creating the table entry if cache_hot has not already done so.
func (t *Table) Insert(pc, offset uint64) error {
	idx, found, err := t.find(pc)
	if err != nil {
		return err
	}
	s := &t.slots[idx]
	if !found {
		s.pc = pc
		s.hot = 1
	}
	s.offset = offset
	s.hasCode = true
	return nil
}

// Stats reports coarse table occupancy for diagnostic tooling (the
// debugger's `cache` command): how many slots are tracking a pc at
// all, and how many hold compiled code.
func (t *Table) Stats() (tracked, compiled int) {
	for i := range t.slots {
		s := &t.slots[i]
		if s.hasSlot() {
			tracked++
		}
		if s.hasCode {
			compiled++
		}
	}
	return tracked, compiled
}
