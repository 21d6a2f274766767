package cache

import "testing"

func TestTableHotBecomesHotAtThreshold(t *testing.T) {
	var tbl Table
	const pc = 0x1000
	var hot bool
	var err error
	for i := 0; i < HotThreshold; i++ {
		hot, err = tbl.Hot(pc)
		if err != nil {
			t.Fatalf("Hot: %v", err)
		}
	}
	if !hot {
		t.Fatalf("pc should be hot after %d hits", HotThreshold)
	}
}

func TestTableHotNotYetAtThresholdMinusOne(t *testing.T) {
	var tbl Table
	const pc = 0x2000
	var hot bool
	for i := 0; i < HotThreshold-1; i++ {
		var err error
		hot, err = tbl.Hot(pc)
		if err != nil {
			t.Fatalf("Hot: %v", err)
		}
	}
	if hot {
		t.Fatal("pc should not be hot one hit short of the threshold")
	}
}

func TestTableLookupMissWithoutInsert(t *testing.T) {
	var tbl Table
	if _, ok, err := tbl.Lookup(0x3000); err != nil || ok {
		t.Fatalf("Lookup on empty table = (ok=%v err=%v), want (false, nil)", ok, err)
	}
}

func TestTableLookupRequiresHotAndCode(t *testing.T) {
	var tbl Table
	const pc = 0x4000
	if err := tbl.Insert(pc, 0x40); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	// Insert alone (without enough Hot calls) leaves hot at 1, well
	// under threshold, so Lookup must still report a miss.
	if _, ok, err := tbl.Lookup(pc); err != nil || ok {
		t.Fatalf("Lookup before hot = (ok=%v err=%v), want (false, nil)", ok, err)
	}
}

func TestTableCollisionLinearProbe(t *testing.T) {
	var tbl Table
	a := uint64(7)
	b := a + NumSlots // hashes to the same slot as a
	if _, _, err := tbl.find(a); err != nil {
		t.Fatalf("find a: %v", err)
	}
	if err := tbl.Insert(a, 10); err != nil {
		t.Fatalf("Insert a: %v", err)
	}
	if err := tbl.Insert(b, 20); err != nil {
		t.Fatalf("Insert b: %v", err)
	}
	idxA, foundA, err := tbl.find(a)
	if err != nil || !foundA {
		t.Fatalf("find a after insert: found=%v err=%v", foundA, err)
	}
	idxB, foundB, err := tbl.find(b)
	if err != nil || !foundB {
		t.Fatalf("find b after insert: found=%v err=%v", foundB, err)
	}
	if idxA == idxB {
		t.Fatal("a and b collided but probing gave them the same slot")
	}
}

func TestArenaInsertRoundTrip(t *testing.T) {
	a, err := newArena()
	if err != nil {
		t.Fatalf("newArena: %v", err)
	}
	defer a.Close()

	code := []byte{0xde, 0xad, 0xbe, 0xef}
	offset, err := a.Insert(code, 8)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if offset%8 != 0 {
		t.Fatalf("offset %#x not aligned to 8", offset)
	}
	got := a.Bytes(offset, len(code))
	for i, b := range code {
		if got[i] != b {
			t.Fatalf("arena byte %d = %#x, want %#x", i, got[i], b)
		}
	}
}

func TestArenaInsertRespectsAlignment(t *testing.T) {
	a, err := newArena()
	if err != nil {
		t.Fatalf("newArena: %v", err)
	}
	defer a.Close()

	off1, err := a.Insert([]byte{1, 2, 3}, 16)
	if err != nil {
		t.Fatalf("Insert 1: %v", err)
	}
	off2, err := a.Insert([]byte{4, 5}, 16)
	if err != nil {
		t.Fatalf("Insert 2: %v", err)
	}
	if off2 <= off1 {
		t.Fatalf("second insert offset %#x did not advance past first %#x", off2, off1)
	}
	if off2%16 != 0 {
		t.Fatalf("second offset %#x not 16-aligned", off2)
	}
}

func TestArenaExhaustionErrors(t *testing.T) {
	a, err := newArena()
	if err != nil {
		t.Fatalf("newArena: %v", err)
	}
	defer a.Close()

	huge := make([]byte, ArenaSize+1)
	if _, err := a.Insert(huge, 1); err == nil {
		t.Fatal("Insert larger than the arena should fail")
	}
}

func TestCacheEndToEnd(t *testing.T) {
	c, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	const pc = 0x5000
	code := []byte{0x67, 0x80, 0x00, 0x00} // a trivial trampoline-shaped blob

	for i := 0; i < HotThreshold-1; i++ {
		if hot, err := c.Hot(pc); err != nil || hot {
			t.Fatalf("Hot at iter %d = (%v,%v), want not hot yet", i, hot, err)
		}
	}
	hot, err := c.Hot(pc)
	if err != nil {
		t.Fatalf("Hot: %v", err)
	}
	if !hot {
		t.Fatal("pc should be hot now")
	}

	addr, err := c.Add(pc, code, 4)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if addr == 0 {
		t.Fatal("Add returned a zero address")
	}

	gotAddr, ok, err := c.Lookup(pc)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok {
		t.Fatal("Lookup should find the now-hot, now-compiled pc")
	}
	if gotAddr != addr {
		t.Fatalf("Lookup address %#x != Add address %#x", gotAddr, addr)
	}
}

func TestCacheLookupMissesWhenNotYetHot(t *testing.T) {
	c, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if _, err := c.Hot(0x6000); err != nil {
		t.Fatalf("Hot: %v", err)
	}
	if _, ok, err := c.Lookup(0x6000); err != nil || ok {
		t.Fatalf("Lookup on a cold pc = (ok=%v err=%v), want (false, nil)", ok, err)
	}
}
