// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ProbeChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ProbeChain. If not, see <http://www.gnu.org/licenses/>.

package decode

// DecodeCompressed decodes a 16-bit C-extension instruction by expanding it
// to an equivalent 32-bit encoding internally, then assigning rd/rs1/rs2,
// sign-extended immediates, funct3/funct7 and flags directly.
//
// C.SRLI64/C.SRAI64 with a zero shift amount have no explicit defined
// behavior in the base ISA; this decoder treats a zero shift as a valid
// no-op move (destination unchanged).
func DecodeCompressed(word uint16) Record {
	r := Record{RawWord: uint32(word), Flags: IsCompressed}
	quadrant := word & 0x3
	funct3 := (word >> 13) & 0x7

	switch quadrant {
	case 0:
		decodeQuadrant0(&r, word, funct3)
	case 1:
		decodeQuadrant1(&r, word, funct3)
	case 2:
		decodeQuadrant2(&r, word, funct3)
	default:
		r.Exception = MakeException(CauseIllegalInst)
	}
	return r
}

func cReg(bits uint16) uint32 { return uint32(bits&0x7) + 8 } // x8-x15 compressed window

func decodeQuadrant0(r *Record, w uint16, funct3 uint16) {
	rdp := cReg(w >> 2)
	rs1p := cReg(w >> 7)
	switch funct3 {
	case 0: // C.ADDI4SPN -> addi rd', x2, nzuimm
		nzuimm := ((w>>5)&1)<<3 | ((w>>6)&1)<<2 | ((w>>7)&0xF)<<6 | ((w>>11)&0x3)<<4
		if nzuimm == 0 {
			r.Exception = MakeException(CauseIllegalInst)
			return
		}
		*r = imm32(OpImm, rdp, 2, 0, int64(nzuimm))
	case 2: // C.LW
		off := cLwOffset(w)
		*r = imm32(OpLoad, rdp, rs1p, 2, int64(off))
	case 3: // C.LD
		off := cLdOffset(w)
		*r = imm32(OpLoad, rdp, rs1p, 3, int64(off))
	case 6: // C.SW
		off := cLwOffset(w)
		r.Opcode = OpStore
		r.Funct3 = 2
		r.Rs1 = rs1p
		r.Rs2 = rdp
		r.Imm = int64(off)
		r.Flags |= IsCompressed | S1Int | S2Int
	case 7: // C.SD
		off := cLdOffset(w)
		r.Opcode = OpStore
		r.Funct3 = 3
		r.Rs1 = rs1p
		r.Rs2 = rdp
		r.Imm = int64(off)
		r.Flags |= IsCompressed | S1Int | S2Int
	default:
		r.Exception = MakeException(CauseIllegalInst)
	}
}

func decodeQuadrant1(r *Record, w uint16, funct3 uint16) {
	rd := uint32((w >> 7) & 0x1F)
	switch funct3 {
	case 0: // C.ADDI / C.NOP
		imm := cImm6(w)
		*r = imm32(OpImm, rd, rd, 0, imm)
	case 1: // C.ADDIW (RV64)
		imm := cImm6(w)
		*r = imm32(OpImm32, rd, rd, 0, imm)
	case 2: // C.LI
		imm := cImm6(w)
		*r = imm32(OpImm, rd, 0, 0, imm)
	case 3:
		if rd == 2 { // C.ADDI16SP
			imm := cAddi16spImm(w)
			*r = imm32(OpImm, 2, 2, 0, imm)
		} else { // C.LUI
			imm := cImm6(w) << 12
			*r = imm32(OpLui, rd, 0, 0, imm)
		}
	case 4:
		rdp := cReg(w >> 7)
		funct2 := (w >> 10) & 0x3
		switch funct2 {
		case 0, 1: // C.SRLI64/C.SRAI64 (rv64, shamt in bit12+imm5)
			shamt := cShamt(w)
			funct7 := uint32(0)
			if funct2 == 1 {
				funct7 = 0x20
			}
			if shamt == 0 {
				// Open Question (b): zero shift amount is a no-op move.
				*r = imm32(OpImm, rdp, rdp, 0, 0)
				return
			}
			r.Opcode = OpImm
			r.Funct3 = 5
			r.Funct7 = funct7
			r.Rd = rdp
			r.Rs1 = rdp
			r.Imm = int64(shamt)
			r.Flags |= IsCompressed | S1Int | RdInt
			r.Rs2 = 0
		case 2: // C.ANDI
			imm := cImm6(w)
			*r = imm32(OpImm, rdp, rdp, 7, imm)
		case 3:
			rs2p := cReg(w >> 2)
			sub := (w >> 5) & 0x3
			wide := (w >> 12) & 1
			var funct7 uint32
			var funct3o uint32
			if wide == 0 {
				switch sub {
				case 0:
					funct7, funct3o = 0x20, 0 // C.SUB
				case 1:
					funct7, funct3o = 0, 4 // C.XOR
				case 2:
					funct7, funct3o = 0, 6 // C.OR
				case 3:
					funct7, funct3o = 0, 7 // C.AND
				}
				r.Opcode = OpOp
			} else {
				switch sub {
				case 0:
					funct7, funct3o = 0x20, 0 // C.SUBW
				case 1:
					funct7, funct3o = 0, 0 // C.ADDW
				}
				r.Opcode = OpOp32
			}
			r.Funct3 = funct3o
			r.Funct7 = funct7
			r.Rd = rdp
			r.Rs1 = rdp
			r.Rs2 = rs2p
			r.Flags |= IsCompressed | S1Int | S2Int | RdInt
		}
	case 5: // C.J
		r.Opcode = OpJal
		r.Rd = 0
		r.Imm = cJImm(w)
		r.Flags |= IsCompressed | RdInt
	case 6: // C.BEQZ
		rs1p := cReg(w >> 7)
		r.Opcode = OpBranch
		r.Funct3 = 0
		r.Rs1 = rs1p
		r.Rs2 = 0
		r.Imm = cBImm(w)
		r.Flags |= IsCompressed | S1Int | S2Int
	case 7: // C.BNEZ
		rs1p := cReg(w >> 7)
		r.Opcode = OpBranch
		r.Funct3 = 1
		r.Rs1 = rs1p
		r.Rs2 = 0
		r.Imm = cBImm(w)
		r.Flags |= IsCompressed | S1Int | S2Int
	}
}

func decodeQuadrant2(r *Record, w uint16, funct3 uint16) {
	rd := uint32((w >> 7) & 0x1F)
	rs2 := uint32((w >> 2) & 0x1F)
	switch funct3 {
	case 0: // C.SLLI
		shamt := cShamt(w)
		r.Opcode = OpImm
		r.Funct3 = 1
		r.Rd = rd
		r.Rs1 = rd
		r.Imm = int64(shamt)
		r.Flags |= IsCompressed | S1Int | RdInt
	case 2: // C.LWSP
		off := cLwspOffset(w)
		*r = imm32(OpLoad, rd, 2, 2, int64(off))
	case 3: // C.LDSP
		off := cLdspOffset(w)
		*r = imm32(OpLoad, rd, 2, 3, int64(off))
	case 4:
		bit12 := (w >> 12) & 1
		if bit12 == 0 {
			if rs2 == 0 { // C.JR
				r.Opcode = OpJalr
				r.Rd = 0
				r.Rs1 = rd
				r.Imm = 0
				r.Flags |= IsCompressed | S1Int | RdInt
			} else { // C.MV
				r.Opcode = OpOp
				r.Funct3 = 0
				r.Rd = rd
				r.Rs1 = 0
				r.Rs2 = rs2
				r.Flags |= IsCompressed | S1Int | S2Int | RdInt
			}
		} else {
			if rd == 0 && rs2 == 0 {
				r.Opcode = OpSystem
				r.Flags |= IsEbreak | IsCompressed
			} else if rs2 == 0 { // C.JALR
				r.Opcode = OpJalr
				r.Rd = 1
				r.Rs1 = rd
				r.Imm = 0
				r.Flags |= IsCompressed | S1Int | RdInt
			} else { // C.ADD
				r.Opcode = OpOp
				r.Funct3 = 0
				r.Rd = rd
				r.Rs1 = rd
				r.Rs2 = rs2
				r.Flags |= IsCompressed | S1Int | S2Int | RdInt
			}
		}
	case 6: // C.SWSP
		off := cSwspOffset(w)
		r.Opcode = OpStore
		r.Funct3 = 2
		r.Rs1 = 2
		r.Rs2 = rs2
		r.Imm = int64(off)
		r.Flags |= IsCompressed | S1Int | S2Int
	case 7: // C.SDSP
		off := cSdspOffset(w)
		r.Opcode = OpStore
		r.Funct3 = 3
		r.Rs1 = 2
		r.Rs2 = rs2
		r.Imm = int64(off)
		r.Flags |= IsCompressed | S1Int | S2Int
	default:
		r.Exception = MakeException(CauseIllegalInst)
	}
}

func imm32(opcode, rd, rs1, funct3 uint32, imm int64) Record {
	return Record{
		Opcode: opcode,
		Rd:     rd,
		Rs1:    rs1,
		Funct3: funct3,
		Imm:    imm,
		Flags:  IsCompressed | S1Int | RdInt,
	}
}

func cImm6(w uint16) int64 {
	v := int64((w>>12)&1)<<5 | int64((w>>2)&0x1F)
	return signExtend(v, 6)
}

func cShamt(w uint16) uint32 {
	return uint32((w>>12)&1)<<5 | uint32((w>>2)&0x1F)
}

func cAddi16spImm(w uint16) int64 {
	v := int64((w>>12)&1)<<9 | int64((w>>3)&0x3)<<7 | int64((w>>5)&1)<<6 | int64((w>>2)&1)<<5 | int64((w>>6)&1)<<4
	return signExtend(v, 10)
}

func cLwOffset(w uint16) uint32 {
	return uint32((w>>6)&1)<<2 | uint32((w>>10)&0x7)<<3 | uint32((w>>5)&1)<<6
}

func cLdOffset(w uint16) uint32 {
	return uint32((w>>10)&0x7)<<3 | uint32((w>>5)&0x3)<<6
}

func cLwspOffset(w uint16) uint32 {
	return uint32((w>>4)&0x7)<<2 | uint32((w>>12)&1)<<5 | uint32((w>>2)&0x3)<<6
}

func cLdspOffset(w uint16) uint32 {
	return uint32((w>>5)&0x3)<<3 | uint32((w>>12)&1)<<5 | uint32((w>>2)&0x7)<<6
}

func cSwspOffset(w uint16) uint32 {
	return uint32((w>>9)&0xF)<<2 | uint32((w>>7)&0x3)<<6
}

func cSdspOffset(w uint16) uint32 {
	return uint32((w>>10)&0x7)<<3 | uint32((w>>7)&0x7)<<6
}

func cJImm(w uint16) int64 {
	v := int64((w>>12)&1)<<11 | int64((w>>11)&1)<<4 | int64((w>>9)&0x3)<<8 |
		int64((w>>8)&1)<<10 | int64((w>>7)&1)<<6 | int64((w>>6)&1)<<7 |
		int64((w>>3)&0x7)<<1 | int64((w>>2)&1)<<5
	return signExtend(v, 12)
}

func cBImm(w uint16) int64 {
	v := int64((w>>12)&1)<<8 | int64((w>>10)&0x3)<<3 | int64((w>>5)&0x3)<<6 |
		int64((w>>3)&0x3)<<1 | int64((w>>2)&1)<<5
	return signExtend(v, 9)
}
