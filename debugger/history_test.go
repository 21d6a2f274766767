package debugger

import "testing"

func TestCommandHistoryRecordAndLast(t *testing.T) {
	h := NewCommandHistory(10)

	h.Record("step")
	h.Record("continue")

	if got := h.Last(); got != "continue" {
		t.Errorf("Last() = %q, want continue", got)
	}
	if h.Len() != 2 {
		t.Errorf("Len() = %d, want 2", h.Len())
	}
}

func TestCommandHistoryIgnoresEmptyAndRepeats(t *testing.T) {
	h := NewCommandHistory(10)

	h.Record("")
	h.Record("step")
	h.Record("step")

	if h.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (empty and repeat should not grow history)", h.Len())
	}
}

func TestCommandHistoryCapsSize(t *testing.T) {
	h := NewCommandHistory(3)

	h.Record("a")
	h.Record("b")
	h.Record("c")
	h.Record("d")

	all := h.All()
	if len(all) != 3 {
		t.Fatalf("All() len = %d, want 3", len(all))
	}
	if all[0] != "b" || all[2] != "d" {
		t.Errorf("All() = %v, want [b c d]", all)
	}
}

func TestCommandHistoryRecall(t *testing.T) {
	h := NewCommandHistory(10)
	h.Record("step")
	h.Record("continue")
	h.Record("regs")

	if got := h.Recall(-1); got != "regs" {
		t.Errorf("Recall(-1) = %q, want regs", got)
	}
	if got := h.Recall(-1); got != "continue" {
		t.Errorf("Recall(-1) = %q, want continue", got)
	}
	if got := h.Recall(-1); got != "step" {
		t.Errorf("Recall(-1) = %q, want step", got)
	}
	if got := h.Recall(-1); got != "" {
		t.Errorf("Recall(-1) past the start = %q, want empty", got)
	}
	if got := h.Recall(1); got != "continue" {
		t.Errorf("Recall(1) = %q, want continue", got)
	}
}

func TestCommandHistoryClear(t *testing.T) {
	h := NewCommandHistory(10)
	h.Record("step")
	h.Clear()

	if h.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after Clear", h.Len())
	}
}

func TestCommandHistoryWithPrefix(t *testing.T) {
	h := NewCommandHistory(10)
	h.Record("break 0x1000")
	h.Record("break 0x2000")
	h.Record("step")

	matches := h.WithPrefix("break")
	if len(matches) != 2 {
		t.Fatalf("WithPrefix(break) returned %d entries, want 2", len(matches))
	}
}
