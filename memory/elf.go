package memory

import (
	"encoding/binary"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const (
	elfMagic      = "\x7fELF"
	elfClass64    = 2
	elfDataLSB    = 1
	elfMachineRV  = 243 // EM_RISCV
	elfTypeExec   = 2   // ET_EXEC
	elfPTLoad     = 1
	elfPFExec     = 1 << 0
	elfPFWrite    = 1 << 1
	elfPFRead     = 1 << 2
	elfHeaderSize = 64
	elfPhdrSize   = 56
)

// elf64Header is the on-disk layout of an ELF64 file header.
type elf64Header struct {
	Ident     [16]byte
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint64
	Phoff     uint64
	Shoff     uint64
	Flags     uint32
	Ehsize    uint16
	Phentsize uint16
	Phnum     uint16
	Shentsize uint16
	Shnum     uint16
	Shstrndx  uint16
}

// elf64Phdr is the on-disk layout of an ELF64 program header.
type elf64Phdr struct {
	Type   uint32
	Flags  uint32
	Offset uint64
	Vaddr  uint64
	Paddr  uint64
	Filesz uint64
	Memsz  uint64
	Align  uint64
}

// LoadELF validates and maps a statically linked RV64 ET_EXEC
// executable: every PT_LOAD segment is mapped at
// TO_HOST(p_vaddr) page-rounded down, with permissions derived from
// p_flags, and any BSS tail (memsz > filesz) is covered by an
// anonymous mapping. Base/Alloc/HostAlloc are left at the page-rounded
// high-water mark of the loaded segments.
func (m *Manager) LoadELF(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("memory: open %s: %w", path, err)
	}
	defer f.Close()

	var hdr elf64Header
	raw := make([]byte, elfHeaderSize)
	if _, err := f.ReadAt(raw, 0); err != nil {
		return fmt.Errorf("memory: read ELF header: %w", err)
	}
	if err := decodeHeader(raw, &hdr); err != nil {
		return err
	}

	phdrs := make([]elf64Phdr, hdr.Phnum)
	phbuf := make([]byte, int(hdr.Phnum)*elfPhdrSize)
	if _, err := f.ReadAt(phbuf, int64(hdr.Phoff)); err != nil {
		return fmt.Errorf("memory: read program headers: %w", err)
	}
	for i := range phdrs {
		decodePhdr(phbuf[i*elfPhdrSize:], &phdrs[i])
	}

	m.Entry = hdr.Entry

	var high uint64
	loaded := false
	for _, ph := range phdrs {
		if ph.Type != elfPTLoad {
			continue
		}
		loaded = true
		if err := m.mapSegment(f, ph); err != nil {
			return err
		}
		if top := ph.Vaddr + ph.Memsz; top > high {
			high = top
		}
	}
	if !loaded {
		return fmt.Errorf("memory: %s has no PT_LOAD segment", path)
	}

	m.Base = roundUp(high, pageSize)
	m.Alloc = m.Base
	m.hostAlloc = roundUp(ToHost(high), pageSize)
	return nil
}

func decodeHeader(raw []byte, hdr *elf64Header) error {
	if len(raw) < elfHeaderSize || string(raw[:4]) != elfMagic {
		return fmt.Errorf("memory: bad ELF magic")
	}
	if raw[4] != elfClass64 {
		return fmt.Errorf("memory: not an ELFCLASS64 file")
	}
	if raw[5] != elfDataLSB {
		return fmt.Errorf("memory: not a little-endian ELF file")
	}
	copy(hdr.Ident[:], raw[:16])
	hdr.Type = binary.LittleEndian.Uint16(raw[16:])
	hdr.Machine = binary.LittleEndian.Uint16(raw[18:])
	hdr.Version = binary.LittleEndian.Uint32(raw[20:])
	hdr.Entry = binary.LittleEndian.Uint64(raw[24:])
	hdr.Phoff = binary.LittleEndian.Uint64(raw[32:])
	hdr.Shoff = binary.LittleEndian.Uint64(raw[40:])
	hdr.Flags = binary.LittleEndian.Uint32(raw[48:])
	hdr.Ehsize = binary.LittleEndian.Uint16(raw[52:])
	hdr.Phentsize = binary.LittleEndian.Uint16(raw[54:])
	hdr.Phnum = binary.LittleEndian.Uint16(raw[56:])
	hdr.Shentsize = binary.LittleEndian.Uint16(raw[58:])
	hdr.Shnum = binary.LittleEndian.Uint16(raw[60:])
	hdr.Shstrndx = binary.LittleEndian.Uint16(raw[62:])

	if hdr.Machine != elfMachineRV {
		return fmt.Errorf("memory: only EM_RISCV is supported, got machine %d", hdr.Machine)
	}
	if hdr.Type != elfTypeExec {
		return fmt.Errorf("memory: only ET_EXEC (static) executables are supported, got type %d", hdr.Type)
	}
	return nil
}

func decodePhdr(raw []byte, ph *elf64Phdr) {
	ph.Type = binary.LittleEndian.Uint32(raw[0:])
	ph.Flags = binary.LittleEndian.Uint32(raw[4:])
	ph.Offset = binary.LittleEndian.Uint64(raw[8:])
	ph.Vaddr = binary.LittleEndian.Uint64(raw[16:])
	ph.Paddr = binary.LittleEndian.Uint64(raw[24:])
	ph.Filesz = binary.LittleEndian.Uint64(raw[32:])
	ph.Memsz = binary.LittleEndian.Uint64(raw[40:])
	ph.Align = binary.LittleEndian.Uint64(raw[48:])
}

func phdrPermission(flags uint32) Permission {
	var p Permission
	if flags&elfPFRead != 0 {
		p |= PermRead
	}
	if flags&elfPFWrite != 0 {
		p |= PermWrite
	}
	if flags&elfPFExec != 0 {
		p |= PermExec
	}
	return p
}

// mapSegment maps one PT_LOAD segment. p_vaddr/p_offset need not be
// page-aligned, so the mapping is rounded down and the in-file length
// is widened to match; any memsz beyond the file-backed region (the
// BSS tail) is zero-filled by a trailing anonymous mapping.
func (m *Manager) mapSegment(f *os.File, ph elf64Phdr) error {
	vaddrStart := roundDown(ph.Vaddr, pageSize)
	hostStart := ToHost(vaddrStart)
	fileDelta := ph.Vaddr - vaddrStart
	offsetStart := ph.Offset - fileDelta
	fileMapLen := roundUp(ph.Filesz+fileDelta, pageSize)

	prot := phdrPermission(ph.Flags).prot() | unix.PROT_WRITE
	if ph.Filesz > 0 {
		if err := mmapFixed(hostStart, fileMapLen, prot, int(f.Fd()), int64(offsetStart)); err != nil {
			return fmt.Errorf("memory: map PT_LOAD segment at %#x: %w", ph.Vaddr, err)
		}
	}

	memEnd := roundUp(ph.Vaddr+ph.Memsz, pageSize)
	fileEnd := vaddrStart + fileMapLen
	if memEnd > fileEnd {
		if err := mmapFixed(ToHost(fileEnd), memEnd-fileEnd, prot, -1, 0); err != nil {
			return fmt.Errorf("memory: map BSS tail at %#x: %w", fileEnd, err)
		}
	}

	// The file mapping materializes whole pages, so the bytes between
	// p_filesz and the end of its last page hold whatever the file had
	// there. Any of them inside p_memsz are BSS and must read as zero.
	if bssStart := ph.Vaddr + ph.Filesz; ph.Memsz > ph.Filesz && bssStart < fileEnd {
		zeroEnd := ph.Vaddr + ph.Memsz
		if zeroEnd > fileEnd {
			zeroEnd = fileEnd
		}
		b := hostBytes(bssStart, zeroEnd-bssStart)
		for i := range b {
			b[i] = 0
		}
	}

	// Drop the write permission we forced above for the file-backed
	// mapping (needed so the trailing partial page's BSS bytes could
	// be zeroed) down to what p_flags actually grants.
	wantProt := phdrPermission(ph.Flags).prot()
	if wantProt != prot && ph.Filesz > 0 {
		if err := mprotectRange(hostStart, fileMapLen, wantProt); err != nil {
			return err
		}
	}
	return nil
}
