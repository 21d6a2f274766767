package memory

import (
	"encoding/binary"
	"unsafe"
)

// hostBytes views n bytes of guest memory starting at guestAddr as a
// host byte slice. The guest address space is just a translated view
// of real host mappings (see ToHost), so no bounds-checked copy is
// needed: out-of-range accesses fault the same way they would on bare
// hardware, via a host SIGSEGV.
func hostBytes(guestAddr uint64, n uint64) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ToHost(guestAddr)))), n)
}

// ReadU8/16/32/64 and WriteU8/16/32/64 give the interpreter's load/store
// handlers direct little-endian access to guest memory through the
// identity-offset translation.
// GuestBytes exposes n bytes of guest memory starting at addr as a
// host byte slice, for callers (the ecall layer's read/write family)
// that need to hand a raw buffer to a host syscall rather than go
// through the fixed-width Read/WriteUxx accessors.
func GuestBytes(addr uint64, n uint64) []byte { return hostBytes(addr, n) }

func ReadU8(addr uint64) uint8   { return hostBytes(addr, 1)[0] }
func ReadU16(addr uint64) uint16 { return binary.LittleEndian.Uint16(hostBytes(addr, 2)) }
func ReadU32(addr uint64) uint32 { return binary.LittleEndian.Uint32(hostBytes(addr, 4)) }
func ReadU64(addr uint64) uint64 { return binary.LittleEndian.Uint64(hostBytes(addr, 8)) }

func WriteU8(addr uint64, v uint8)   { hostBytes(addr, 1)[0] = v }
func WriteU16(addr uint64, v uint16) { binary.LittleEndian.PutUint16(hostBytes(addr, 2), v) }
func WriteU32(addr uint64, v uint32) { binary.LittleEndian.PutUint32(hostBytes(addr, 4), v) }
func WriteU64(addr uint64, v uint64) { binary.LittleEndian.PutUint64(hostBytes(addr, 8), v) }
