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

// Package decode implements the RV64 32-bit and compressed (C-extension)
// instruction decoders. Both populate the same InstructionRecord.
package decode

// Flag is a bit in an InstructionRecord's flag set.
type Flag uint32

const (
	IsCompressed Flag = 1 << iota
	IsUnique
	IsFence
	IsFenceI
	IsFenceTSO
	IsSFence
	IsPause
	IsEcall
	IsEbreak
	S1Int
	S1Fp
	S2Int
	S2Fp
	S3Fp
	RdInt
	RdFp
	// usesRs1AsImm is internal: CSR instructions with funct3's top bit set
	// forward rs1 as an immediate rather than a register index.
	UsesRs1AsImm
)

// Major 7-bit RISC-V opcodes.
const (
	OpLoad     = 0x03
	OpLoadFp   = 0x07
	OpMiscMem  = 0x0F
	OpImm      = 0x13
	OpAuipc    = 0x17
	OpImm32    = 0x1B
	OpStore    = 0x23
	OpStoreFp  = 0x27
	OpAmo      = 0x2F
	OpOp       = 0x33
	OpLui      = 0x37
	OpOp32     = 0x3B
	OpMadd     = 0x43
	OpMsub     = 0x47
	OpNmsub    = 0x4B
	OpNmadd    = 0x4F
	OpOpFp     = 0x53
	OpBranch   = 0x63
	OpJalr     = 0x67
	OpJal      = 0x6F
	OpSystem   = 0x73
)

// Exception cause codes (low 30 bits of the exception slot; the slot itself
// is 0 for "no exception" or (1<<30)|cause otherwise).
const (
	CauseNone              = 0
	CauseIllegalInst        = 2
	CauseInstAddrMisaligned = 0
	CauseInstAccessFault    = 1
	CauseLoadAddrMisaligned = 4
	CauseLoadAccessFault    = 5
	CauseStoreAddrMisaligned = 6
	CauseStoreAccessFault   = 7
	CauseEcallFromU         = 8
	CauseBreakpoint         = 3
	CauseInstPageFault      = 12
	CauseLoadPageFault      = 13
	CauseStorePageFault     = 15
)

const exceptionBit = uint32(1) << 30

// MakeException packs a cause into the bundle's exception slot.
func MakeException(cause uint32) uint32 { return exceptionBit | cause }

// ExceptionCause unpacks the cause from an exception slot; ok is false if
// the slot carries no exception.
func ExceptionCause(slot uint32) (cause uint32, ok bool) {
	if slot&exceptionBit == 0 {
		return 0, false
	}
	return slot &^ exceptionBit, true
}

// Record is the uniform decode result shared by both decoders.
type Record struct {
	Opcode uint32
	Funct3 uint32
	Funct7 uint32
	Rd     uint32 // 0-31 int, 32-63 fp (lifted by RdFp flag)
	Rs1    uint32
	Rs2    uint32
	Rs3    uint32 // fused-multiply-add only
	Imm    int64  // sign-extended
	Flags  Flag
	Exception uint32
	RawWord   uint32
}

// Has reports whether all bits in mask are set.
func (r *Record) Has(mask Flag) bool { return r.Flags&mask == mask }
