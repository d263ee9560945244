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

// Decode32 decodes a full 32-bit RISC-V instruction word into a Record.
func Decode32(word uint32) Record {
	r := Record{RawWord: word}
	r.Opcode = word & 0x7F
	r.Rd = (word >> 7) & 0x1F
	r.Funct3 = (word >> 12) & 0x7
	r.Rs1 = (word >> 15) & 0x1F
	r.Rs2 = (word >> 20) & 0x1F
	r.Funct7 = (word >> 25) & 0x7F
	r.Rs3 = (word >> 27) & 0x1F

	switch r.Opcode {
	case OpLoad, OpLoadFp, OpImm, OpImm32, OpJalr:
		r.Imm = immI(word)
	case OpStore, OpStoreFp:
		r.Imm = immS(word)
	case OpBranch:
		r.Imm = immB(word)
	case OpLui, OpAuipc:
		r.Imm = immU(word)
	case OpJal:
		r.Imm = immJ(word)
	case OpAmo:
		// funct7[6:2] carries the AMO sub-op; bits [1:0] are aq/rl.
		r.Funct7 = (word >> 27) & 0x1F
	case OpMadd, OpMsub, OpNmsub, OpNmadd:
		// rs3/funct2 select width: funct7[1:0] 00=S,01=D.
		r.Funct7 = word >> 25
	case OpOpFp:
		// funct7[6:2] = funct5, funct7[1:0] = fmt (0=S,1=D).
	case OpSystem:
		r.Imm = int64((word >> 20) & 0xFFF) // CSR address / zimm
		if r.Funct3&0x4 != 0 {
			r.Flags |= UsesRs1AsImm
		}
		if word == 0x00000073 {
			r.Flags |= IsEcall
		} else if word == 0x00100073 {
			r.Flags |= IsEbreak
		}
	case OpMiscMem:
		switch r.Funct3 {
		case 0:
			r.Flags |= IsFence
			if word&0xF00 == 0x300 && (word>>20)&0xFF0 == 0x330 {
				r.Flags |= IsFenceTSO
			}
		case 1:
			r.Flags |= IsFenceI
		}
	}

	assignKinds(&r)

	if !validOpcode(r.Opcode) {
		r.Exception = MakeException(CauseIllegalInst)
	}
	return r
}

// assignKinds sets S1Int/S1Fp/S2Int/S2Fp/S3Fp/RdInt/RdFp according to the
// major opcode, and lifts fp register indices into the shared 32-63 range.
func assignKinds(r *Record) {
	switch r.Opcode {
	case OpLoadFp:
		r.Flags |= RdFp
		r.Rd += 32
	case OpStoreFp:
		r.Flags |= S2Fp
		r.Rs2 += 32
	case OpOpFp:
		assignFpKinds(r)
	case OpMadd, OpMsub, OpNmsub, OpNmadd:
		r.Flags |= S1Fp | S2Fp | S3Fp | RdFp
		r.Rs1 += 32
		r.Rs2 += 32
		r.Rs3 += 32
		r.Rd += 32
	case OpLoad, OpImm, OpImm32, OpJalr:
		r.Flags |= S1Int | RdInt
	case OpAuipc, OpLui, OpJal:
		r.Flags |= RdInt
	case OpBranch, OpStore:
		r.Flags |= S1Int | S2Int
	case OpOp, OpOp32, OpAmo:
		r.Flags |= S1Int | S2Int | RdInt
	case OpSystem:
		r.Flags |= S1Int | RdInt
	}
}

// OPFP funct5 selectors that need non-uniform source/dest register kinds;
// all other funct5 values (ADD/SUB/MUL/DIV/SQRT/SGNJ*/MIN/MAX/CMP) read fp
// rs1 (and, for the two-operand forms, fp rs2).
const (
	fpFunct5CvtI2F = 0x1A // FCVT.{S,D}.{W,WU,L,LU}: rs1 is an integer source
	fpFunct5CvtF2I = 0x18 // FCVT.{W,WU,L,LU}.{S,D}: rd is an integer dest
	fpFunct5MvI2F  = 0x1E // FMV.{W,D}.X: rs1 is an integer source
	fpFunct5MvF2I  = 0x1C // FMV.X.{W,D} / FCLASS: rd is an integer dest
	fpFunct5Cmp    = 0x14 // FEQ/FLT/FLE: rd is an integer dest
)

// assignFpKinds resolves OP-FP's source/destination register kinds, which
// vary by funct5: most ops are fp-in/fp-out, but the int<->float convert and
// move forms cross the integer/float register files, and compares always
// write an integer rd.
func assignFpKinds(r *Record) {
	funct5 := r.Funct7 >> 2
	switch funct5 {
	case fpFunct5CvtI2F:
		r.Flags |= S1Int | RdFp
		r.Rd += 32
	case fpFunct5MvI2F:
		r.Flags |= S1Int | RdFp
		r.Rd += 32
	case fpFunct5CvtF2I:
		r.Flags |= S1Fp | RdInt
		r.Rs1 += 32
	case fpFunct5MvF2I:
		r.Flags |= S1Fp | RdInt
		r.Rs1 += 32
	case fpFunct5Cmp:
		r.Flags |= S1Fp | S2Fp | RdInt
		r.Rs1 += 32
		r.Rs2 += 32
	default: // ADD, SUB, MUL, DIV, SQRT, SGNJ*, MIN, MAX
		r.Flags |= S1Fp | S2Fp | RdFp
		r.Rs1 += 32
		r.Rs2 += 32
		r.Rd += 32
	}
}

func validOpcode(op uint32) bool {
	switch op {
	case OpLoad, OpLoadFp, OpMiscMem, OpImm, OpAuipc, OpImm32, OpStore, OpStoreFp,
		OpAmo, OpOp, OpLui, OpOp32, OpMadd, OpMsub, OpNmsub, OpNmadd, OpOpFp,
		OpBranch, OpJalr, OpJal, OpSystem:
		return true
	}
	return false
}

func immI(w uint32) int64 {
	return signExtend(int64(w)>>20, 12)
}

func immS(w uint32) int64 {
	v := ((w >> 25) << 5) | ((w >> 7) & 0x1F)
	return signExtend(int64(v), 12)
}

func immB(w uint32) int64 {
	v := ((w >> 31) << 12) | (((w >> 7) & 1) << 11) | (((w >> 25) & 0x3F) << 5) | (((w >> 8) & 0xF) << 1)
	return signExtend(int64(v), 13)
}

func immU(w uint32) int64 {
	return int64(int32(w &^ 0xFFF))
}

func immJ(w uint32) int64 {
	v := ((w >> 31) << 20) | (((w >> 12) & 0xFF) << 12) | (((w >> 20) & 1) << 11) | (((w >> 21) & 0x3FF) << 1)
	return signExtend(int64(v), 21)
}

func signExtend(v int64, bits uint) int64 {
	shift := 64 - bits
	return (v << shift) >> shift
}
