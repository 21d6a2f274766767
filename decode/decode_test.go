package decode

import "testing"

func TestDecode32Addi(t *testing.T) {
	// addi a0, zero, -1  => imm all-ones, rs1=x0, rd=x10(a0)
	w := uint32(0xfff00513)
	insn, err := Decode(w)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if insn.Op != OpAddi {
		t.Fatalf("Op = %v, want addi", insn.Op)
	}
	if insn.Rd != 10 || insn.Rs1 != 0 {
		t.Fatalf("rd=%d rs1=%d, want rd=10 rs1=0", insn.Rd, insn.Rs1)
	}
	if insn.Imm != -1 {
		t.Fatalf("imm = %d, want -1", insn.Imm)
	}
	if insn.RVC {
		t.Fatalf("RVC should be false for a 32-bit word")
	}
}

func TestDecodeJTypeSignExtension(t *testing.T) {
	// jal x0, -4  (w[31]=1 sign bit, encodes imm=-4)
	// Build it by hand: imm20=1, imm19_12=0xff, imm11=1, imm10_1=0x3fe
	w := uint32(1)<<31 | uint32(0xff)<<12 | uint32(1)<<20 | uint32(0x3fe)<<21 | (0x1b << 2) | 0x3
	insn, err := Decode(w)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if insn.Op != OpJal {
		t.Fatalf("Op = %v, want jal", insn.Op)
	}
	if insn.Imm != -4 {
		t.Fatalf("imm = %d, want -4", insn.Imm)
	}
}

func TestDecodeReservedEncodingIsFatal(t *testing.T) {
	if _, err := Decode(0); err == nil {
		t.Fatal("Decode(0) should report an error; all-zero is not a valid instruction")
	}
}

func TestDecodeCompressedSetsRVC(t *testing.T) {
	// c.li a0, 5: quadrant 1, funct3=010, rd=10, imm bits
	w := uint16(0x1) | uint16(0x2)<<13 | uint16(10)<<7 | uint16(5)<<2
	insn, err := Decode(uint32(w))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !insn.RVC {
		t.Fatal("RVC should be true for a compressed word")
	}
	if insn.Op != OpAddi || insn.Rd != 10 || insn.Rs1 != regZero || insn.Imm != 5 {
		t.Fatalf("got %+v, want addi x10, x0, 5", insn)
	}
}

func TestDecodeCBranchImmediateSignBit(t *testing.T) {
	// c.beqz s0(x8), -2: quadrant 1 funct3=110, rs1'=000 (x8). -2 is the
	// 9-bit offset 0x1fe, so every offset field is all-ones: imm8 (bit 12),
	// imm[4:3] (bits 11:10), imm[7:6] (bits 6:5), imm[2:1] (bits 4:3) and
	// imm5 (bit 2).
	w := uint16(0x1) | uint16(0x6)<<13 | uint16(0x1)<<12 | uint16(0x3)<<10 | uint16(0)<<7 | uint16(0x3)<<5 | uint16(0x3)<<3 | uint16(0x1)<<2
	insn, err := Decode(uint32(w))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if insn.Op != OpBeq {
		t.Fatalf("Op = %v, want beq", insn.Op)
	}
	if insn.Imm != -2 {
		t.Fatalf("imm = %d, want -2 (low offset bits must survive assembly)", insn.Imm)
	}
}

func TestDecodeTotalityOverOpcodeSpace(t *testing.T) {
	// Every base opcode byte (bits [6:2]) combined with a zero rest should
	// either decode cleanly or return a descriptive error -- Decode must
	// never panic.
	for opc := uint32(0); opc < 32; opc++ {
		w := (opc << 2) | 0x3
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Decode panicked on opcode %#x: %v", opc, r)
				}
			}()
			_, _ = Decode(w)
		}()
	}
}

func TestDecodeAddi4spnAliasesAddi(t *testing.T) {
	// c.addi4spn a0, sp, 16: quadrant 0, funct3 000, nzuimm[5:4]=01
	// (bits [12:11]), rd' = 010 (a0 = x8+2).
	w := uint16(1)<<11 | uint16(2)<<2
	insn, err := Decode(uint32(w))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if insn.Op != OpAddi {
		t.Fatalf("Op = %v, want the addi tag shared with the base form", insn.Op)
	}
	if insn.Rd != 10 || insn.Rs1 != regSP || insn.Imm != 16 {
		t.Fatalf("got rd=%d rs1=%d imm=%d, want addi a0, sp, 16", insn.Rd, insn.Rs1, insn.Imm)
	}
	if !insn.RVC {
		t.Fatal("RVC should be set for the compressed form")
	}
}
