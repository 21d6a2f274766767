package decode

// Compressed (RVC) encodings are 16 bits wide and alias a base RV64
// instruction; decode16 always returns a base Op plus full 5-bit
// register operands. Downstream, only the instruction's width depends
// on it having been compressed: Insn.RVC (set by the caller, Decode)
// makes the interpreter advance the PC, and compute link and return
// addresses, by 2 instead of 4.

// Register indices the compressed forms hard-wire: x0 (zero), x1 (the
// link register, ra) and x2 (the stack pointer, sp). decode has no
// dependency on the machine package, so these are plain ABI numbers,
// not machine.Reg values.
const (
	regZero int8 = 0
	regRA   int8 = 1
	regSP   int8 = 2
)

func cbits(w uint16, lo, n uint) uint16 {
	return (w >> lo) & ((1 << n) - 1)
}

// cReg maps a 3-bit compressed register field to the full x8-x15 (or
// f8-f15) range used by the C.*'s "prime" register forms.
func cReg(field uint16) int8 {
	return int8(field) + 8
}

func cSignExtend(v int32, bits uint) int32 {
	shift := 32 - bits
	return (v << shift) >> shift
}

func decode16(w uint16) (Insn, error) {
	ww := uint32(w)
	quadrant := w & 0x3
	funct3 := cbits(w, 13, 3)

	switch quadrant {
	case 0x0:
		rdp := cReg(cbits(w, 2, 3))
		rs1p := cReg(cbits(w, 7, 3))
		switch funct3 {
		case 0x0: // C.ADDI4SPN
			nzuimm := (cbits(w, 11, 2) << 4) | (cbits(w, 7, 4) << 6) |
				(cbits(w, 6, 1) << 2) | (cbits(w, 5, 1) << 3)
			if nzuimm == 0 {
				return Insn{}, unimplemented(ww)
			}
			return Insn{Op: OpAddi, Rd: rdp, Rs1: regSP, Rs2: noReg, Rs3: noReg, Imm: int32(nzuimm)}, nil
		case 0x1: // C.FLD
			imm := (cbits(w, 10, 3) << 3) | (cbits(w, 5, 2) << 6)
			return Insn{Op: OpFld, Rd: rdp, Rs1: rs1p, Rs2: noReg, Rs3: noReg, Imm: int32(imm)}, nil
		case 0x2: // C.LW
			imm := (cbits(w, 10, 3) << 3) | (cbits(w, 6, 1) << 2) | (cbits(w, 5, 1) << 6)
			return Insn{Op: OpLw, Rd: rdp, Rs1: rs1p, Rs2: noReg, Rs3: noReg, Imm: int32(imm)}, nil
		case 0x3: // C.LD
			imm := (cbits(w, 10, 3) << 3) | (cbits(w, 5, 2) << 6)
			return Insn{Op: OpLd, Rd: rdp, Rs1: rs1p, Rs2: noReg, Rs3: noReg, Imm: int32(imm)}, nil
		case 0x5: // C.FSD
			imm := (cbits(w, 10, 3) << 3) | (cbits(w, 5, 2) << 6)
			return Insn{Op: OpFsd, Rs1: rs1p, Rs2: rdp, Rd: noReg, Rs3: noReg, Imm: int32(imm)}, nil
		case 0x6: // C.SW
			imm := (cbits(w, 10, 3) << 3) | (cbits(w, 6, 1) << 2) | (cbits(w, 5, 1) << 6)
			return Insn{Op: OpSw, Rs1: rs1p, Rs2: rdp, Rd: noReg, Rs3: noReg, Imm: int32(imm)}, nil
		case 0x7: // C.SD
			imm := (cbits(w, 10, 3) << 3) | (cbits(w, 5, 2) << 6)
			return Insn{Op: OpSd, Rs1: rs1p, Rs2: rdp, Rd: noReg, Rs3: noReg, Imm: int32(imm)}, nil
		default:
			return Insn{}, unimplemented(ww)
		}

	case 0x1:
		rd := int8(cbits(w, 7, 5))
		switch funct3 {
		case 0x0: // C.ADDI / C.NOP
			imm := cSignExtend(int32((cbits(w, 12, 1)<<5)|cbits(w, 2, 5)), 6)
			return Insn{Op: OpAddi, Rd: rd, Rs1: rd, Rs2: noReg, Rs3: noReg, Imm: imm}, nil
		case 0x1: // C.ADDIW
			if rd == 0 {
				return Insn{}, unimplemented(ww)
			}
			imm := cSignExtend(int32((cbits(w, 12, 1)<<5)|cbits(w, 2, 5)), 6)
			return Insn{Op: OpAddiw, Rd: rd, Rs1: rd, Rs2: noReg, Rs3: noReg, Imm: imm}, nil
		case 0x2: // C.LI
			imm := cSignExtend(int32((cbits(w, 12, 1)<<5)|cbits(w, 2, 5)), 6)
			return Insn{Op: OpAddi, Rd: rd, Rs1: regZero, Rs2: noReg, Rs3: noReg, Imm: imm}, nil
		case 0x3:
			if rd == 2 { // C.ADDI16SP
				imm := cSignExtend(int32(
					(cbits(w, 12, 1)<<9)|(cbits(w, 3, 2)<<7)|
						(cbits(w, 5, 1)<<6)|(cbits(w, 2, 1)<<5)|(cbits(w, 6, 1)<<4)), 10)
				return Insn{Op: OpAddi, Rd: regSP, Rs1: regSP, Rs2: noReg, Rs3: noReg, Imm: imm}, nil
			}
			// C.LUI
			nzimm := cSignExtend(int32((cbits(w, 12, 1)<<17)|(cbits(w, 2, 5)<<12)), 18)
			if nzimm == 0 || rd == 0 {
				return Insn{}, unimplemented(ww)
			}
			return Insn{Op: OpLui, Rd: rd, Rs1: noReg, Rs2: noReg, Rs3: noReg, Imm: nzimm}, nil
		case 0x4:
			rdp := cReg(cbits(w, 7, 3))
			rs2p := cReg(cbits(w, 2, 3))
			switch cbits(w, 10, 2) {
			case 0x0: // C.SRLI
				shamt := (cbits(w, 12, 1) << 5) | cbits(w, 2, 5)
				return Insn{Op: OpSrli, Rd: rdp, Rs1: rdp, Rs2: noReg, Rs3: noReg, Imm: int32(shamt)}, nil
			case 0x1: // C.SRAI
				shamt := (cbits(w, 12, 1) << 5) | cbits(w, 2, 5)
				return Insn{Op: OpSrai, Rd: rdp, Rs1: rdp, Rs2: noReg, Rs3: noReg, Imm: int32(shamt)}, nil
			case 0x2: // C.ANDI
				imm := cSignExtend(int32((cbits(w, 12, 1)<<5)|cbits(w, 2, 5)), 6)
				return Insn{Op: OpAndi, Rd: rdp, Rs1: rdp, Rs2: noReg, Rs3: noReg, Imm: imm}, nil
			case 0x3:
				op2 := cbits(w, 5, 2)
				if cbits(w, 12, 1) == 0 {
					switch op2 {
					case 0x0:
						return Insn{Op: OpSub, Rd: rdp, Rs1: rdp, Rs2: rs2p, Rs3: noReg}, nil
					case 0x1:
						return Insn{Op: OpXor, Rd: rdp, Rs1: rdp, Rs2: rs2p, Rs3: noReg}, nil
					case 0x2:
						return Insn{Op: OpOr, Rd: rdp, Rs1: rdp, Rs2: rs2p, Rs3: noReg}, nil
					case 0x3:
						return Insn{Op: OpAnd, Rd: rdp, Rs1: rdp, Rs2: rs2p, Rs3: noReg}, nil
					}
				} else {
					switch op2 {
					case 0x0:
						return Insn{Op: OpSubw, Rd: rdp, Rs1: rdp, Rs2: rs2p, Rs3: noReg}, nil
					case 0x1:
						return Insn{Op: OpAddw, Rd: rdp, Rs1: rdp, Rs2: rs2p, Rs3: noReg}, nil
					}
				}
				return Insn{}, unimplemented(ww)
			}
			return Insn{}, unimplemented(ww)
		case 0x5: // C.J
			imm := cSignExtend(int32(
				(cbits(w, 3, 3)<<1)|(cbits(w, 11, 1)<<4)|(cbits(w, 2, 1)<<5)|
					(cbits(w, 7, 1)<<6)|(cbits(w, 6, 1)<<7)|(cbits(w, 9, 2)<<8)|
					(cbits(w, 8, 1)<<10)|(cbits(w, 12, 1)<<11)), 12)
			return Insn{Op: OpJal, Rd: regZero, Rs1: noReg, Rs2: noReg, Rs3: noReg, Imm: imm, Cont: true}, nil
		case 0x6, 0x7: // C.BEQZ / C.BNEZ
			rs1p := cReg(cbits(w, 7, 3))
			// imm8<<8 | imm76<<6 | imm5<<5 | imm43<<3 | imm21<<1, all
			// bitwise-or: every field contributes, including the low
			// offset bits.
			imm8 := cbits(w, 12, 1)
			imm76 := cbits(w, 5, 2)
			imm5 := cbits(w, 2, 1)
			imm43 := cbits(w, 10, 2)
			imm21 := cbits(w, 3, 2)
			imm := cSignExtend(int32((imm8<<8)|(imm76<<6)|(imm5<<5)|(imm43<<3)|(imm21<<1)), 9)
			op := OpBeq
			if funct3 == 0x7 {
				op = OpBne
			}
			return Insn{Op: op, Rs1: rs1p, Rs2: regZero, Rd: noReg, Rs3: noReg, Imm: imm, Cont: true}, nil
		}
		return Insn{}, unimplemented(ww)

	case 0x2:
		rd := int8(cbits(w, 7, 5))
		rs2 := int8(cbits(w, 2, 5))
		switch funct3 {
		case 0x0: // C.SLLI
			if rd == 0 {
				return Insn{}, unimplemented(ww)
			}
			shamt := (cbits(w, 12, 1) << 5) | cbits(w, 2, 5)
			return Insn{Op: OpSlli, Rd: rd, Rs1: rd, Rs2: noReg, Rs3: noReg, Imm: int32(shamt)}, nil
		case 0x1: // C.FLDSP
			imm := (cbits(w, 5, 2) << 3) | (cbits(w, 12, 1) << 5) | (cbits(w, 2, 3) << 6)
			return Insn{Op: OpFld, Rd: rd, Rs1: regSP, Rs2: noReg, Rs3: noReg, Imm: int32(imm)}, nil
		case 0x2: // C.LWSP
			if rd == 0 {
				return Insn{}, unimplemented(ww)
			}
			imm := (cbits(w, 4, 3) << 2) | (cbits(w, 12, 1) << 5) | (cbits(w, 2, 2) << 6)
			return Insn{Op: OpLw, Rd: rd, Rs1: regSP, Rs2: noReg, Rs3: noReg, Imm: int32(imm)}, nil
		case 0x3: // C.LDSP
			if rd == 0 {
				return Insn{}, unimplemented(ww)
			}
			imm := (cbits(w, 5, 2) << 3) | (cbits(w, 12, 1) << 5) | (cbits(w, 2, 3) << 6)
			return Insn{Op: OpLd, Rd: rd, Rs1: regSP, Rs2: noReg, Rs3: noReg, Imm: int32(imm)}, nil
		case 0x4:
			bit12 := cbits(w, 12, 1)
			if bit12 == 0 {
				if rs2 == 0 { // C.JR
					if rd == 0 {
						return Insn{}, unimplemented(ww)
					}
					return Insn{Op: OpJalr, Rd: regZero, Rs1: rd, Rs2: noReg, Rs3: noReg, Imm: 0, Cont: true}, nil
				}
				// C.MV
				return Insn{Op: OpAdd, Rd: rd, Rs1: regZero, Rs2: rs2, Rs3: noReg}, nil
			}
			if rd == 0 && rs2 == 0 { // C.EBREAK
				return Insn{Op: OpEbreak, Rd: noReg, Rs1: noReg, Rs2: noReg, Rs3: noReg, Cont: true}, nil
			}
			if rs2 == 0 { // C.JALR
				return Insn{Op: OpJalr, Rd: regRA, Rs1: rd, Rs2: noReg, Rs3: noReg, Imm: 0, Cont: true}, nil
			}
			// C.ADD
			return Insn{Op: OpAdd, Rd: rd, Rs1: rd, Rs2: rs2, Rs3: noReg}, nil
		case 0x5: // C.FSDSP
			imm := (cbits(w, 10, 3) << 3) | (cbits(w, 7, 3) << 6)
			return Insn{Op: OpFsd, Rs1: regSP, Rs2: rs2, Rd: noReg, Rs3: noReg, Imm: int32(imm)}, nil
		case 0x6: // C.SWSP
			imm := (cbits(w, 9, 4) << 2) | (cbits(w, 7, 2) << 6)
			return Insn{Op: OpSw, Rs1: regSP, Rs2: rs2, Rd: noReg, Rs3: noReg, Imm: int32(imm)}, nil
		case 0x7: // C.SDSP
			imm := (cbits(w, 10, 3) << 3) | (cbits(w, 7, 3) << 6)
			return Insn{Op: OpSd, Rs1: regSP, Rs2: rs2, Rd: noReg, Rs3: noReg, Imm: int32(imm)}, nil
		}
		return Insn{}, unimplemented(ww)
	}

	return Insn{}, unimplemented(ww)
}
