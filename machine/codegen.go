package machine

// CodeGenerator lowers the basic block starting at guest PC pc into a
// native code blob plus the byte alignment the hot-block cache should
// place it at. Instruction-to-native lowering is explicitly out of
// scope for this repository (see the docs on `engine.Runner`);
// CodeGenerator is the seam a real JIT backend would implement, and
// the dispatcher only ever calls it once a PC has been promoted hot.
type CodeGenerator func(s *State, pc uint64) (code []byte, align uint64, err error)
