package debugger

import (
	"fmt"
	"sync"

	"github.com/lookbusy1344/rv64emu/machine"
	"github.com/lookbusy1344/rv64emu/memory"
)

// Watchpoint monitors a guest register or an 8-byte guest memory
// location for a value change. It detects any change rather than
// distinguishing reads from writes --
// RV64's identity-mapped guest memory gives the debugger no cheap hook
// into individual loads/stores, so polling the current value against
// the last-seen one is the only signal available without slowing the
// interpreter down for every instruction.
type Watchpoint struct {
	ID         int
	Expression string
	Address    uint64
	IsRegister bool
	Register   machine.Reg
	Enabled    bool
	LastValue  uint64
	HitCount   int
}

// WatchpointManager owns the set of active watchpoints.
type WatchpointManager struct {
	mu    sync.RWMutex
	byID  map[int]*Watchpoint
	serno int
}

// NewWatchpointManager returns an empty manager.
func NewWatchpointManager() *WatchpointManager {
	return &WatchpointManager{byID: make(map[int]*Watchpoint), serno: 1}
}

// AddRegister installs a watchpoint on a GPR.
func (wm *WatchpointManager) AddRegister(expr string, r machine.Reg) *Watchpoint {
	return wm.add(expr, 0, true, r)
}

// AddMemory installs a watchpoint on an 8-byte guest memory location.
func (wm *WatchpointManager) AddMemory(expr string, addr uint64) *Watchpoint {
	return wm.add(expr, addr, false, 0)
}

func (wm *WatchpointManager) add(expr string, addr uint64, isReg bool, r machine.Reg) *Watchpoint {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	wp := &Watchpoint{
		ID: wm.serno, Expression: expr, Address: addr,
		IsRegister: isReg, Register: r, Enabled: true,
	}
	wm.byID[wp.ID] = wp
	wm.serno++
	return wp
}

func (wm *WatchpointManager) currentValue(wp *Watchpoint, s *machine.State) uint64 {
	if wp.IsRegister {
		return s.GetGPR(wp.Register)
	}
	return memory.ReadU64(wp.Address)
}

// Arm records the present value of a freshly added watchpoint as its
// baseline, so the first Poll afterwards does not spuriously fire.
func (wm *WatchpointManager) Arm(id int, s *machine.State) error {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	wp, ok := wm.byID[id]
	if !ok {
		return fmt.Errorf("watchpoint %d not found", id)
	}
	wp.LastValue = wm.currentValue(wp, s)
	return nil
}

// Poll checks every enabled watchpoint against its last-seen value and
// returns the first one that changed, updating its baseline and hit
// count as a side effect.
func (wm *WatchpointManager) Poll(s *machine.State) (*Watchpoint, bool) {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	for _, wp := range wm.byID {
		if !wp.Enabled {
			continue
		}
		cur := wm.currentValue(wp, s)
		if cur != wp.LastValue {
			wp.LastValue = cur
			wp.HitCount++
			snapshot := *wp
			return &snapshot, true
		}
	}
	return nil, false
}

// Remove deletes a watchpoint by ID.
func (wm *WatchpointManager) Remove(id int) error {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	if _, ok := wm.byID[id]; !ok {
		return fmt.Errorf("watchpoint %d not found", id)
	}
	delete(wm.byID, id)
	return nil
}

// All returns every installed watchpoint, in no particular order.
func (wm *WatchpointManager) All() []*Watchpoint {
	wm.mu.RLock()
	defer wm.mu.RUnlock()

	out := make([]*Watchpoint, 0, len(wm.byID))
	for _, wp := range wm.byID {
		out = append(out, wp)
	}
	return out
}

// Clear removes every watchpoint.
func (wm *WatchpointManager) Clear() {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	wm.byID = make(map[int]*Watchpoint)
}

// Count reports how many watchpoints are installed.
func (wm *WatchpointManager) Count() int {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	return len(wm.byID)
}
