package memory

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func TestTranslationRoundTrip(t *testing.T) {
	for _, addr := range []uint64{0, 1, 0x10000, 0xdead_beef, 0x7fff_ffff_f000} {
		if got := ToGuest(ToHost(addr)); got != addr {
			t.Errorf("ToGuest(ToHost(%#x)) = %#x, want identity", addr, got)
		}
	}
}

func TestBrkZeroReturnsCurrentWithoutMutation(t *testing.T) {
	m := NewManager()
	if err := m.Reserve(0x80000); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	before := m.Alloc
	got, err := m.Brk(0)
	if err != nil {
		t.Fatalf("Brk(0): %v", err)
	}
	if got != before || m.Alloc != before {
		t.Fatalf("Brk(0) = %#x (alloc now %#x), want unchanged %#x", got, m.Alloc, before)
	}
}

func TestBrkBelowBaseFails(t *testing.T) {
	m := NewManager()
	if err := m.Reserve(0x84000); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	before := m.Alloc
	got, err := m.Brk(m.Base - 0x1000)
	if err != nil {
		t.Fatalf("Brk below base: %v", err)
	}
	if got != before {
		t.Fatalf("Brk below base = %#x, want unchanged %#x", got, before)
	}
}

func TestBrkGrowMaterializesWritableMemory(t *testing.T) {
	m := NewManager()
	if err := m.Reserve(0x88000); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	target := m.Alloc + 3*pageSize
	got, err := m.Brk(target)
	if err != nil {
		t.Fatalf("Brk grow: %v", err)
	}
	if got != target {
		t.Fatalf("Brk = %#x, want %#x", got, target)
	}

	// The newly materialized pages must be readable and writable.
	probe := target - 8
	WriteU64(probe, 0x1122334455667788)
	if v := ReadU64(probe); v != 0x1122334455667788 {
		t.Fatalf("probe readback = %#x", v)
	}
}

func TestBrkShrinkUnmapsTrailingPages(t *testing.T) {
	m := NewManager()
	if err := m.Reserve(0x90000); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	grown, err := m.Brk(m.Alloc + 4*pageSize)
	if err != nil {
		t.Fatalf("Brk grow: %v", err)
	}
	shrunk, err := m.Brk(grown - 2*pageSize)
	if err != nil {
		t.Fatalf("Brk shrink: %v", err)
	}
	if shrunk != grown-2*pageSize {
		t.Fatalf("Brk shrink = %#x, want %#x", shrunk, grown-2*pageSize)
	}
	if m.Alloc != shrunk {
		t.Fatalf("Alloc = %#x after shrink, want %#x", m.Alloc, shrunk)
	}
}

func TestInitStackLayout(t *testing.T) {
	m := NewManager()
	if err := m.Reserve(0xa0000); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	argv := []string{"/bin/guest", "hello", "world"}
	sp, err := m.InitStack(argv, 0)
	if err != nil {
		t.Fatalf("InitStack: %v", err)
	}
	if sp%16 != 0 {
		t.Fatalf("sp %#x not 16-byte aligned", sp)
	}

	if argc := ReadU64(sp); argc != uint64(len(argv)) {
		t.Fatalf("argc at sp = %d, want %d", argc, len(argv))
	}
	for i, want := range argv {
		ptr := ReadU64(sp + 8 + uint64(i)*8)
		if ptr == 0 {
			t.Fatalf("argv[%d] pointer is null", i)
		}
		got := make([]byte, len(want))
		copy(got, GuestBytes(ptr, uint64(len(want))))
		if string(got) != want {
			t.Fatalf("argv[%d] = %q, want %q", i, got, want)
		}
		if ReadU8(ptr+uint64(len(want))) != 0 {
			t.Fatalf("argv[%d] missing NUL terminator", i)
		}
	}

	n := uint64(len(argv))
	if v := ReadU64(sp + 8 + n*8); v != 0 {
		t.Fatalf("argv terminator = %#x, want 0", v)
	}
	if v := ReadU64(sp + 8 + (n+1)*8); v != 0 {
		t.Fatalf("envp terminator = %#x, want 0", v)
	}
	if v := ReadU64(sp + 8 + (n+2)*8); v != 0 {
		t.Fatalf("auxv terminator = %#x, want 0", v)
	}
}

// writeTestELF builds a minimal two-segment static RV64 ELF: an R+X
// text segment and an R+W data segment whose memsz extends past filesz
// (a BSS tail crossing into a fresh page).
func writeTestELF(t *testing.T, path string) (entry uint64, textByte, dataByte byte) {
	t.Helper()

	const (
		textVaddr  = 0x10000
		textOffset = 0x1000
		textFilesz = 0x10
		dataVaddr  = 0x11000
		dataOffset = 0x2000
		dataFilesz = 0x10
		dataMemsz  = 0x2000 // BSS tail spills into the next page
	)
	textByte, dataByte = 0xAA, 0x55
	entry = textVaddr

	buf := make([]byte, dataOffset+dataFilesz)
	copy(buf, elfMagic)
	buf[4] = elfClass64
	buf[5] = elfDataLSB
	buf[6] = 1 // EV_CURRENT
	binary.LittleEndian.PutUint16(buf[16:], elfTypeExec)
	binary.LittleEndian.PutUint16(buf[18:], elfMachineRV)
	binary.LittleEndian.PutUint32(buf[20:], 1)
	binary.LittleEndian.PutUint64(buf[24:], entry)
	binary.LittleEndian.PutUint64(buf[32:], elfHeaderSize) // phoff
	binary.LittleEndian.PutUint16(buf[52:], elfHeaderSize)
	binary.LittleEndian.PutUint16(buf[54:], elfPhdrSize)
	binary.LittleEndian.PutUint16(buf[56:], 2) // phnum

	writePhdr := func(at int, offset, vaddr, filesz, memsz uint64, flags uint32) {
		binary.LittleEndian.PutUint32(buf[at:], elfPTLoad)
		binary.LittleEndian.PutUint32(buf[at+4:], flags)
		binary.LittleEndian.PutUint64(buf[at+8:], offset)
		binary.LittleEndian.PutUint64(buf[at+16:], vaddr)
		binary.LittleEndian.PutUint64(buf[at+24:], vaddr)
		binary.LittleEndian.PutUint64(buf[at+32:], filesz)
		binary.LittleEndian.PutUint64(buf[at+40:], memsz)
		binary.LittleEndian.PutUint64(buf[at+48:], pageSize)
	}
	writePhdr(elfHeaderSize, textOffset, textVaddr, textFilesz, textFilesz, elfPFRead|elfPFExec)
	writePhdr(elfHeaderSize+elfPhdrSize, dataOffset, dataVaddr, dataFilesz, dataMemsz, elfPFRead|elfPFWrite)

	for i := 0; i < textFilesz; i++ {
		buf[textOffset+i] = textByte
	}
	for i := 0; i < dataFilesz; i++ {
		buf[dataOffset+i] = dataByte
	}

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return entry, textByte, dataByte
}

func TestLoadELFRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guest.elf")
	entry, textByte, dataByte := writeTestELF(t, path)

	m := NewManager()
	if err := m.LoadELF(path); err != nil {
		t.Fatalf("LoadELF: %v", err)
	}
	if m.Entry != entry {
		t.Fatalf("Entry = %#x, want %#x", m.Entry, entry)
	}

	// Text bytes must equal the file contents.
	for i := uint64(0); i < 0x10; i++ {
		if b := ReadU8(0x10000 + i); b != textByte {
			t.Fatalf("text byte %d = %#x, want %#x", i, b, textByte)
		}
	}
	// Data bytes likewise.
	for i := uint64(0); i < 0x10; i++ {
		if b := ReadU8(0x11000 + i); b != dataByte {
			t.Fatalf("data byte %d = %#x, want %#x", i, b, dataByte)
		}
	}
	// The BSS tail reads as zero: both the partial-page slack directly
	// after filesz and the anonymous page past the file mapping.
	for _, addr := range []uint64{0x11010, 0x11800, 0x12000, 0x12ff8} {
		if v := ReadU64(addr); v != 0 {
			t.Fatalf("BSS at %#x = %#x, want 0", addr, v)
		}
	}

	// The break floor sits above the highest loaded segment.
	if m.Base < 0x13000 {
		t.Fatalf("Base = %#x, want >= 0x13000 (above the BSS tail)", m.Base)
	}
	if m.Alloc != m.Base {
		t.Fatalf("Alloc = %#x, want Base %#x at startup", m.Alloc, m.Base)
	}
}

func TestLoadELFRejectsWrongMachine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.elf")
	writeTestELF(t, path)

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	binary.LittleEndian.PutUint16(raw[18:], 62) // EM_X86_64
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	m := NewManager()
	if err := m.LoadELF(path); err == nil {
		t.Fatal("LoadELF should reject a non-RISC-V machine field")
	}
}
