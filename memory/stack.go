package memory

import "encoding/binary"

// StackSize is the guest stack's default size, carved out of the
// program-break region at startup.
const StackSize = 32 * 1024 * 1024

// InitStack allocates a guest stack of size bytes (StackSize if zero)
// through Brk and pushes argv onto it, returning the initial stack
// pointer. The argv string bytes go at the top of the stack; below
// them, from sp upward, lie argc, the argv pointer array, an
// argv-terminator null, an envp terminator, and an auxv terminator --
// the layout a static libc's _start expects to find at the top of the
// stack.
func (m *Manager) InitStack(argv []string, size uint64) (uint64, error) {
	if size == 0 {
		size = StackSize
	}
	top, err := m.Brk(m.Alloc + size)
	if err != nil {
		return 0, err
	}

	// String blobs go at the very top of the region, immediately below
	// the new break, so they are unambiguously stack memory; sp then
	// descends from there.
	sp := top
	ptrs := make([]uint64, len(argv))
	for i := len(argv) - 1; i >= 0; i-- {
		s := argv[i]
		sp -= uint64(len(s) + 1)
		sp = roundDown(sp, 8)
		writeCString(sp, s)
		ptrs[i] = sp
	}

	// argc, argv[0..n-1], NULL, envp-terminator NULL, auxv-terminator NULL.
	n := uint64(len(ptrs))
	sp = roundDown(sp-8*(n+4), 16)
	cursor := sp
	writeU64(cursor, n)
	cursor += 8
	for _, p := range ptrs {
		writeU64(cursor, p)
		cursor += 8
	}
	writeU64(cursor, 0) // argv terminator
	cursor += 8
	writeU64(cursor, 0) // envp terminator (no environment forwarded)
	cursor += 8
	writeU64(cursor, 0) // auxv terminator (AT_NULL)

	return sp, nil
}

func writeCString(hostGuestAddr uint64, s string) {
	b := hostBytes(hostGuestAddr, uint64(len(s)+1))
	copy(b, s)
	b[len(s)] = 0
}

func writeU64(guestAddr uint64, v uint64) {
	b := hostBytes(guestAddr, 8)
	binary.LittleEndian.PutUint64(b, v)
}
