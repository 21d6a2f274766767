package decode

// Bit-field extractors for the 32-bit base encoding. Names follow the
// RISC-V manual's field names directly.
func opcodeField(w uint32) uint32 { return (w >> 2) & 0x1f }
func rdField(w uint32) int8      { return int8((w >> 7) & 0x1f) }
func rs1Field(w uint32) int8     { return int8((w >> 15) & 0x1f) }
func rs2Field(w uint32) int8     { return int8((w >> 20) & 0x1f) }
func rs3Field(w uint32) int8     { return int8((w >> 27) & 0x1f) }
func funct2Field(w uint32) uint32 { return (w >> 25) & 0x3 }
func funct3Field(w uint32) uint32 { return (w >> 12) & 0x7 }
func funct7Field(w uint32) uint32 { return (w >> 25) & 0x7f }
func csrField(w uint32) uint16   { return uint16(w >> 20) }

// signExtend sign-extends the low `bits` bits of v to a full int32.
func signExtend(v int32, bits uint) int32 {
	shift := 32 - bits
	return (v << shift) >> shift
}

func readUType(w uint32) Insn {
	return Insn{Imm: int32(w & 0xfffff000), Rd: rdField(w), Rs1: noReg, Rs2: noReg, Rs3: noReg}
}

func readIType(w uint32) Insn {
	imm := int32(w) >> 20
	return Insn{Imm: imm, Rd: rdField(w), Rs1: rs1Field(w), Rs2: noReg, Rs3: noReg}
}

func readJType(w uint32) Insn {
	imm20 := (w >> 31) & 0x1
	imm19_12 := (w >> 12) & 0xff
	imm11 := (w >> 20) & 0x1
	imm10_1 := (w >> 21) & 0x3ff
	imm := int32((imm20 << 20) | (imm19_12 << 12) | (imm11 << 11) | (imm10_1 << 1))
	imm = signExtend(imm, 21)
	return Insn{Imm: imm, Rd: rdField(w), Rs1: noReg, Rs2: noReg, Rs3: noReg}
}

func readBType(w uint32) Insn {
	imm12 := (w >> 31) & 0x1
	imm105 := (w >> 25) & 0x3f
	imm41 := (w >> 8) & 0xf
	imm11 := (w >> 7) & 0x1
	imm := int32((imm12 << 12) | (imm11 << 11) | (imm105 << 5) | (imm41 << 1))
	imm = signExtend(imm, 13)
	return Insn{Imm: imm, Rs1: rs1Field(w), Rs2: rs2Field(w), Rd: noReg, Rs3: noReg}
}

func readRType(w uint32) Insn {
	return Insn{Rs1: rs1Field(w), Rs2: rs2Field(w), Rd: rdField(w), Rs3: noReg}
}

func readSType(w uint32) Insn {
	imm115 := (w >> 25) & 0x7f
	imm40 := (w >> 7) & 0x1f
	imm := int32((imm115 << 5) | imm40)
	imm = signExtend(imm, 12)
	return Insn{Imm: imm, Rs1: rs1Field(w), Rs2: rs2Field(w), Rd: noReg, Rs3: noReg}
}

func readCSRType(w uint32) Insn {
	return Insn{CSR: csrField(w), Rs1: rs1Field(w), Rd: rdField(w), Rs2: noReg, Rs3: noReg}
}

func readR4Type(w uint32) Insn {
	return Insn{Rs1: rs1Field(w), Rs2: rs2Field(w), Rs3: rs3Field(w), Rd: rdField(w)}
}

func decode32(w uint32) (Insn, error) {
	switch opcodeField(w) {
	case 0x00: // LOAD
		insn := readIType(w)
		switch funct3Field(w) {
		case 0x0:
			insn.Op = OpLb
		case 0x1:
			insn.Op = OpLh
		case 0x2:
			insn.Op = OpLw
		case 0x3:
			insn.Op = OpLd
		case 0x4:
			insn.Op = OpLbu
		case 0x5:
			insn.Op = OpLhu
		case 0x6:
			insn.Op = OpLwu
		default:
			return Insn{}, unimplemented(w)
		}
		return insn, nil

	case 0x01: // LOAD-FP
		insn := readIType(w)
		switch funct3Field(w) {
		case 0x2:
			insn.Op = OpFlw
		case 0x3:
			insn.Op = OpFld
		default:
			return Insn{}, unimplemented(w)
		}
		return insn, nil

	case 0x03: // MISC-MEM
		switch funct3Field(w) {
		case 0x0:
			return Insn{Op: OpFence, Rs1: noReg, Rs2: noReg, Rd: noReg, Rs3: noReg}, nil
		case 0x1:
			return Insn{Op: OpFenceI, Rs1: noReg, Rs2: noReg, Rd: noReg, Rs3: noReg}, nil
		default:
			return Insn{}, unimplemented(w)
		}

	case 0x04: // OP-IMM
		insn := readIType(w)
		switch funct3Field(w) {
		case 0x0:
			insn.Op = OpAddi
		case 0x1:
			// The RV64 shamt is 6 bits wide, so bit 25 belongs to it and
			// only the upper six bits (funct6) select the operation.
			if funct7Field(w)>>1 != 0 {
				return Insn{}, unimplemented(w)
			}
			insn.Op = OpSlli
			insn.Imm = int32((w >> 20) & 0x3f)
		case 0x2:
			insn.Op = OpSlti
		case 0x3:
			insn.Op = OpSltiu
		case 0x4:
			insn.Op = OpXori
		case 0x5:
			switch funct7Field(w) >> 1 {
			case 0x00:
				insn.Op = OpSrli
			case 0x10:
				insn.Op = OpSrai
			default:
				return Insn{}, unimplemented(w)
			}
			insn.Imm = int32((w >> 20) & 0x3f)
		case 0x6:
			insn.Op = OpOri
		case 0x7:
			insn.Op = OpAndi
		default:
			return Insn{}, unimplemented(w)
		}
		return insn, nil

	case 0x05: // AUIPC
		insn := readUType(w)
		insn.Op = OpAuipc
		return insn, nil

	case 0x06: // OP-IMM-32
		insn := readIType(w)
		switch funct3Field(w) {
		case 0x0:
			insn.Op = OpAddiw
		case 0x1:
			insn.Op = OpSlliw
			insn.Imm = int32((w >> 20) & 0x1f)
		case 0x5:
			switch funct7Field(w) {
			case 0x00:
				insn.Op = OpSrliw
			case 0x20:
				insn.Op = OpSraiw
			default:
				return Insn{}, unimplemented(w)
			}
			insn.Imm = int32((w >> 20) & 0x1f)
		default:
			return Insn{}, unimplemented(w)
		}
		return insn, nil

	case 0x08: // STORE
		insn := readSType(w)
		switch funct3Field(w) {
		case 0x0:
			insn.Op = OpSb
		case 0x1:
			insn.Op = OpSh
		case 0x2:
			insn.Op = OpSw
		case 0x3:
			insn.Op = OpSd
		default:
			return Insn{}, unimplemented(w)
		}
		return insn, nil

	case 0x09: // STORE-FP
		insn := readSType(w)
		switch funct3Field(w) {
		case 0x2:
			insn.Op = OpFsw
		case 0x3:
			insn.Op = OpFsd
		default:
			return Insn{}, unimplemented(w)
		}
		return insn, nil

	case 0x0c: // OP
		insn := readRType(w)
		funct3 := funct3Field(w)
		switch funct7Field(w) {
		case 0x00:
			switch funct3 {
			case 0x0:
				insn.Op = OpAdd
			case 0x1:
				insn.Op = OpSll
			case 0x2:
				insn.Op = OpSlt
			case 0x3:
				insn.Op = OpSltu
			case 0x4:
				insn.Op = OpXor
			case 0x5:
				insn.Op = OpSrl
			case 0x6:
				insn.Op = OpOr
			case 0x7:
				insn.Op = OpAnd
			default:
				return Insn{}, unimplemented(w)
			}
		case 0x01:
			switch funct3 {
			case 0x0:
				insn.Op = OpMul
			case 0x1:
				insn.Op = OpMulh
			case 0x2:
				insn.Op = OpMulhsu
			case 0x3:
				insn.Op = OpMulhu
			case 0x4:
				insn.Op = OpDiv
			case 0x5:
				insn.Op = OpDivu
			case 0x6:
				insn.Op = OpRem
			case 0x7:
				insn.Op = OpRemu
			default:
				return Insn{}, unimplemented(w)
			}
		case 0x20:
			switch funct3 {
			case 0x0:
				insn.Op = OpSub
			case 0x5:
				insn.Op = OpSra
			default:
				return Insn{}, unimplemented(w)
			}
		default:
			return Insn{}, unimplemented(w)
		}
		return insn, nil

	case 0x0d: // LUI
		insn := readUType(w)
		insn.Op = OpLui
		return insn, nil

	case 0x0e: // OP-32
		insn := readRType(w)
		funct3 := funct3Field(w)
		switch funct7Field(w) {
		case 0x00:
			switch funct3 {
			case 0x0:
				insn.Op = OpAddw
			case 0x1:
				insn.Op = OpSllw
			case 0x5:
				insn.Op = OpSrlw
			default:
				return Insn{}, unimplemented(w)
			}
		case 0x01:
			switch funct3 {
			case 0x0:
				insn.Op = OpMulw
			case 0x4:
				insn.Op = OpDivw
			case 0x5:
				insn.Op = OpDivuw
			case 0x6:
				insn.Op = OpRemw
			case 0x7:
				insn.Op = OpRemuw
			default:
				return Insn{}, unimplemented(w)
			}
		case 0x20:
			switch funct3 {
			case 0x0:
				insn.Op = OpSubw
			case 0x5:
				insn.Op = OpSraw
			default:
				return Insn{}, unimplemented(w)
			}
		default:
			return Insn{}, unimplemented(w)
		}
		return insn, nil

	case 0x10, 0x11, 0x12, 0x13: // FMADD/FMSUB/FNMSUB/FNMADD
		insn := readR4Type(w)
		double := funct2Field(w) == 0x1
		switch opcodeField(w) {
		case 0x10:
			insn.Op = pick(double, OpFmaddD, OpFmaddS)
		case 0x11:
			insn.Op = pick(double, OpFmsubD, OpFmsubS)
		case 0x12:
			insn.Op = pick(double, OpFnmsubD, OpFnmsubS)
		case 0x13:
			insn.Op = pick(double, OpFnmaddD, OpFnmaddS)
		}
		return insn, nil

	case 0x14: // OP-FP
		insn := readRType(w)
		funct3 := funct3Field(w)
		switch funct7Field(w) {
		case 0x00:
			insn.Op = OpFaddS
		case 0x01:
			insn.Op = OpFaddD
		case 0x04:
			insn.Op = OpFsubS
		case 0x05:
			insn.Op = OpFsubD
		case 0x08:
			insn.Op = OpFmulS
		case 0x09:
			insn.Op = OpFmulD
		case 0x0c:
			insn.Op = OpFdivS
		case 0x0d:
			insn.Op = OpFdivD
		case 0x2c:
			insn.Op = OpFsqrtS
		case 0x2d:
			insn.Op = OpFsqrtD
		case 0x10:
			switch funct3 {
			case 0x0:
				insn.Op = OpFsgnjS
			case 0x1:
				insn.Op = OpFsgnjnS
			case 0x2:
				insn.Op = OpFsgnjxS
			default:
				return Insn{}, unimplemented(w)
			}
		case 0x11:
			switch funct3 {
			case 0x0:
				insn.Op = OpFsgnjD
			case 0x1:
				insn.Op = OpFsgnjnD
			case 0x2:
				insn.Op = OpFsgnjxD
			default:
				return Insn{}, unimplemented(w)
			}
		case 0x14:
			switch funct3 {
			case 0x0:
				insn.Op = OpFminS
			case 0x1:
				insn.Op = OpFmaxS
			default:
				return Insn{}, unimplemented(w)
			}
		case 0x15:
			switch funct3 {
			case 0x0:
				insn.Op = OpFminD
			case 0x1:
				insn.Op = OpFmaxD
			default:
				return Insn{}, unimplemented(w)
			}
		case 0x20:
			insn.Op = OpFcvtSD
		case 0x21:
			insn.Op = OpFcvtDS
		case 0x50:
			switch funct3 {
			case 0x0:
				insn.Op = OpFleS
			case 0x1:
				insn.Op = OpFltS
			case 0x2:
				insn.Op = OpFeqS
			default:
				return Insn{}, unimplemented(w)
			}
		case 0x51:
			switch funct3 {
			case 0x0:
				insn.Op = OpFleD
			case 0x1:
				insn.Op = OpFltD
			case 0x2:
				insn.Op = OpFeqD
			default:
				return Insn{}, unimplemented(w)
			}
		case 0x60:
			switch rs2Field(w) {
			case 0:
				insn.Op = OpFcvtWS
			case 1:
				insn.Op = OpFcvtWuS
			case 2:
				insn.Op = OpFcvtLS
			case 3:
				insn.Op = OpFcvtLuS
			default:
				return Insn{}, unimplemented(w)
			}
		case 0x61:
			switch rs2Field(w) {
			case 0:
				insn.Op = OpFcvtWD
			case 1:
				insn.Op = OpFcvtWuD
			case 2:
				insn.Op = OpFcvtLD
			case 3:
				insn.Op = OpFcvtLuD
			default:
				return Insn{}, unimplemented(w)
			}
		case 0x68:
			switch rs2Field(w) {
			case 0:
				insn.Op = OpFcvtSW
			case 1:
				insn.Op = OpFcvtSWu
			case 2:
				insn.Op = OpFcvtSL
			case 3:
				insn.Op = OpFcvtSLu
			default:
				return Insn{}, unimplemented(w)
			}
		case 0x69:
			switch rs2Field(w) {
			case 0:
				insn.Op = OpFcvtDW
			case 1:
				insn.Op = OpFcvtDWu
			case 2:
				insn.Op = OpFcvtDL
			case 3:
				insn.Op = OpFcvtDLu
			default:
				return Insn{}, unimplemented(w)
			}
		case 0x70:
			switch funct3 {
			case 0x0:
				insn.Op = OpFmvXW
			case 0x1:
				insn.Op = OpFclassS
			default:
				return Insn{}, unimplemented(w)
			}
		case 0x71:
			switch funct3 {
			case 0x0:
				insn.Op = OpFmvXD
			case 0x1:
				insn.Op = OpFclassD
			default:
				return Insn{}, unimplemented(w)
			}
		case 0x78:
			insn.Op = OpFmvWX
		case 0x79:
			insn.Op = OpFmvDX
		default:
			return Insn{}, unimplemented(w)
		}
		return insn, nil

	case 0x18: // BRANCH
		insn := readBType(w)
		switch funct3Field(w) {
		case 0x0:
			insn.Op = OpBeq
		case 0x1:
			insn.Op = OpBne
		case 0x4:
			insn.Op = OpBlt
		case 0x5:
			insn.Op = OpBge
		case 0x6:
			insn.Op = OpBltu
		case 0x7:
			insn.Op = OpBgeu
		default:
			return Insn{}, unimplemented(w)
		}
		insn.Cont = true
		return insn, nil

	case 0x19: // JALR
		insn := readIType(w)
		insn.Op = OpJalr
		insn.Cont = true
		return insn, nil

	case 0x1b: // JAL
		insn := readJType(w)
		insn.Op = OpJal
		insn.Cont = true
		return insn, nil

	case 0x1c: // SYSTEM
		if w == 0x73 {
			return Insn{Op: OpEcall, Rs1: noReg, Rs2: noReg, Rd: noReg, Rs3: noReg, Cont: true}, nil
		}
		if w == 0x00100073 {
			return Insn{Op: OpEbreak, Rs1: noReg, Rs2: noReg, Rd: noReg, Rs3: noReg, Cont: true}, nil
		}
		insn := readCSRType(w)
		switch funct3Field(w) {
		case 0x1:
			insn.Op = OpCsrrw
		case 0x2:
			insn.Op = OpCsrrs
		case 0x3:
			insn.Op = OpCsrrc
		case 0x5:
			insn.Op = OpCsrrwi
			insn.Rs1 = noReg
			insn.Imm = int32(rs1Field(w))
		case 0x6:
			insn.Op = OpCsrrsi
			insn.Rs1 = noReg
			insn.Imm = int32(rs1Field(w))
		case 0x7:
			insn.Op = OpCsrrci
			insn.Rs1 = noReg
			insn.Imm = int32(rs1Field(w))
		default:
			return Insn{}, unimplemented(w)
		}
		return insn, nil

	default:
		return Insn{}, unimplemented(w)
	}
}

func pick(cond bool, a, b Op) Op {
	if cond {
		return a
	}
	return b
}
