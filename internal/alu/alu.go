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

// Package alu implements the RV64I/RV64M scalar integer ALU used by the EX
// stage for OP/OPIMM (64-bit) and OP32/OPIMM32 (32-bit) instructions.
package alu

import "github.com/probeum/rv64pipe/internal/bitops"

// Key packs funct7 and funct3 into the ALU's dispatch key, matching the
// convention used throughout the pipeline's decode/EX boundary.
func Key(funct7, funct3 uint32) uint32 {
	return (funct7 << 3) | funct3
}

const (
	keyAdd   = 0
	keySll   = 1
	keySlt   = 2
	keySltu  = 3
	keyXor   = 4
	keySrl   = 5
	keyOr    = 6
	keyAnd   = 7
	keyMul   = 8
	keyMulh  = 9
	keyMulhsu = 10
	keyMulhu = 11
	keyDiv   = 12
	keyDivu  = 13
	keyRem   = 14
	keyRemu  = 15
	keySub   = (0x20 << 3) | 0
	keySra   = (0x20 << 3) | 5
)

// Exec64 performs a 64-bit RV64I/M ALU op. a and b are the raw register
// bits of rs1/rs2 (or rs1/immediate for the *IMM forms). It returns the
// 64-bit result and whether the op signalled invalid-op.
//
// RISC-V mandates that integer division by zero produce a defined result
// (quotient all-ones, remainder = dividend), not a trap. This ALU
// deliberately signals invalid-op instead for DIV/DIVU/REM/REMU when the
// divisor is zero, as a documented deviation.
func Exec64(key uint32, a, b uint64) (result uint64, invalid bool) {
	sa, sb := int64(a), int64(b)
	switch key {
	case keyAdd:
		return a + b, false
	case keySub:
		return a - b, false
	case keySll:
		return a << (b & 63), false
	case keySlt:
		return boolToWord(sa < sb), false
	case keySltu:
		return boolToWord(a < b), false
	case keyXor:
		return a ^ b, false
	case keySrl:
		return a >> (b & 63), false
	case keySra:
		return uint64(sa >> (b & 63)), false
	case keyOr:
		return a | b, false
	case keyAnd:
		return a & b, false
	case keyMul:
		return a * b, false
	case keyMulh:
		return uint64(mulHighSigned(sa, sb)), false
	case keyMulhsu:
		return uint64(mulHighSignedUnsigned(sa, b)), false
	case keyMulhu:
		return mulHighUnsigned(a, b), false
	case keyDiv:
		if b == 0 {
			return 0, true
		}
		return uint64(sa / sb), false
	case keyDivu:
		if b == 0 {
			return 0, true
		}
		return a / b, false
	case keyRem:
		if b == 0 {
			return 0, true
		}
		return uint64(sa % sb), false
	case keyRemu:
		if b == 0 {
			return 0, true
		}
		return a % b, false
	default:
		return 0, true
	}
}

// Exec32 performs a 32-bit RV64I/M *W-suffixed ALU op, sign-extending the
// 32-bit result into the returned 64-bit word per RV64's W-instruction
// family semantics.
func Exec32(key uint32, a, b uint64) (result uint64, invalid bool) {
	a32, b32 := uint32(a), uint32(b)
	sa, sb := int32(a32), int32(b32)
	switch key {
	case keyAdd:
		return bitops.SignExtend32(uint64(a32 + b32)), false
	case keySub:
		return bitops.SignExtend32(uint64(a32 - b32)), false
	case keySll:
		return bitops.Sllw(a, uint32(b)), false
	case keySrl:
		return bitops.Srlw(a, uint32(b)), false
	case keySra:
		return bitops.Sraw(a, uint32(b)), false
	case keyMul:
		return bitops.SignExtend32(uint64(a32 * b32)), false
	case keyDiv:
		if b32 == 0 {
			return 0, true
		}
		return bitops.SignExtend32(uint64(uint32(sa / sb))), false
	case keyDivu:
		if b32 == 0 {
			return 0, true
		}
		return bitops.SignExtend32(uint64(a32 / b32)), false
	case keyRem:
		if b32 == 0 {
			return 0, true
		}
		return bitops.SignExtend32(uint64(uint32(sa % sb))), false
	case keyRemu:
		if b32 == 0 {
			return 0, true
		}
		return bitops.SignExtend32(uint64(a32 % b32)), false
	default:
		return 0, true
	}
}

func boolToWord(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func mulHighSigned(a, b int64) int64 {
	hi, _ := bitsMul64(uint64(a), uint64(b))
	if a < 0 {
		hi -= uint64(b)
	}
	if b < 0 {
		hi -= uint64(a)
	}
	return int64(hi)
}

func mulHighSignedUnsigned(a int64, b uint64) int64 {
	hi, _ := bitsMul64(uint64(a), b)
	if a < 0 {
		hi -= b
	}
	return int64(hi)
}

func mulHighUnsigned(a, b uint64) uint64 {
	hi, _ := bitsMul64(a, b)
	return hi
}

// bitsMul64 returns the 128-bit product of a*b as (high, low) 64-bit words.
func bitsMul64(a, b uint64) (hi, lo uint64) {
	const mask32 = 0xFFFFFFFF
	aLo, aHi := a&mask32, a>>32
	bLo, bHi := b&mask32, b>>32

	t := aLo * bLo
	w0 := t & mask32
	k := t >> 32

	t = aHi*bLo + k
	w1 := t & mask32
	w2 := t >> 32

	t = aLo*bHi + w1
	k = t >> 32

	hi = aHi*bHi + w2 + k
	lo = (t << 32) | w0
	return hi, lo
}
