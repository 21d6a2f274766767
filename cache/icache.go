package cache

import (
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// flushICache makes bytes just written into the arena visible to
// instruction fetch. x86 hosts keep I/D caches coherent in hardware,
// so there is nothing to do there; everywhere else this falls back to
// a full memory barrier via membarrier(2), which is the closest
// portable approximation available without cgo's __builtin___clear_cache
// (a real JIT backend on a non-x86 host would need the per-architecture
// clear_cache call itself).
func flushICache(addr *byte, size int) {
	if size == 0 {
		return
	}
	switch runtime.GOARCH {
	case "amd64", "386":
		return
	}
	_ = unsafe.Pointer(addr)
	_, _, _ = unix.Syscall(unix.SYS_MEMBARRIER, 0, 0, 0)
}
