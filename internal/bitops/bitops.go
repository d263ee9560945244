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

// Package bitops implements the shared bit-reinterpretation and
// sign-extension helpers used by the ALU, FPU and decoder. A 64-bit
// register slot can be read or written as u64, i64, u32, i32, f32 or f64
// without changing the underlying bits.
package bitops

import "math"

// AsU64 reinterprets v's bits as an unsigned 64-bit integer (identity).
func AsU64(v uint64) uint64 { return v }

// AsI64 reinterprets v's bits as a signed 64-bit integer.
func AsI64(v uint64) int64 { return int64(v) }

// AsU32 returns the low 32 bits of v.
func AsU32(v uint64) uint32 { return uint32(v) }

// AsI32 reinterprets the low 32 bits of v as a signed 32-bit integer.
func AsI32(v uint64) int32 { return int32(uint32(v)) }

// AsF32 reinterprets the low 32 bits of v as an IEEE-754 single.
func AsF32(v uint64) float32 { return math.Float32frombits(uint32(v)) }

// AsF64 reinterprets v's bits as an IEEE-754 double.
func AsF64(v uint64) float64 { return math.Float64frombits(v) }

// FromF32 packs f's bits into the low 32 bits of a 64-bit slot. The upper
// 32 bits follow the RISC-V NaN-boxing convention: all ones.
func FromF32(f float32) uint64 {
	return 0xFFFFFFFF00000000 | uint64(math.Float32bits(f))
}

// FromF64 packs f's bits into a full 64-bit slot.
func FromF64(f float64) uint64 { return math.Float64bits(f) }

// SignExtend8 sign-extends the low 8 bits of v to 64 bits.
func SignExtend8(v uint64) uint64 { return uint64(int64(int8(v))) }

// SignExtend16 sign-extends the low 16 bits of v to 64 bits.
func SignExtend16(v uint64) uint64 { return uint64(int64(int16(v))) }

// SignExtend32 sign-extends the low 32 bits of v to 64 bits.
func SignExtend32(v uint64) uint64 { return uint64(int64(int32(v))) }

// Srlw performs the RV64 SRLW shift: a 32-bit logical shift right on the low
// half of rs1, whose result is then sign-extended to 64 bits (the result's
// bit 31 fills bits 63:32) to match RV64I's W-suffixed instruction family.
func Srlw(rs1 uint64, shamt uint32) uint64 {
	res := uint32(rs1) >> (shamt & 31)
	return SignExtend32(uint64(res))
}

// Sllw performs the RV64 SLLW shift: 32-bit shift left, sign-extended result.
func Sllw(rs1 uint64, shamt uint32) uint64 {
	res := uint32(rs1) << (shamt & 31)
	return SignExtend32(uint64(res))
}

// Sraw performs the RV64 SRAW shift: 32-bit arithmetic shift right on the
// low half, sign-extended result.
func Sraw(rs1 uint64, shamt uint32) uint64 {
	res := int32(uint32(rs1)) >> (shamt & 31)
	return SignExtend32(uint64(uint32(res)))
}

// CanonicalNaN32 is the canonical quiet-NaN bit pattern for a single.
const CanonicalNaN32 uint32 = 0x7FC00000

// CanonicalNaN64 is the canonical quiet-NaN bit pattern for a double.
const CanonicalNaN64 uint64 = 0x7FF8000000000000

// CanonicalizeF32 rewrites any NaN result to the canonical quiet-NaN pattern.
func CanonicalizeF32(f float32) float32 {
	if f != f {
		return math.Float32frombits(CanonicalNaN32)
	}
	return f
}

// CanonicalizeF64 rewrites any NaN result to the canonical quiet-NaN pattern.
func CanonicalizeF64(f float64) float64 {
	if f != f {
		return math.Float64frombits(CanonicalNaN64)
	}
	return f
}

// FPFlags mirrors the sticky IEEE exception flags captured around a single
// float operation, in the order the fcsr packs them (bits 0-4: NX,UF,OF,DZ,NV).
type FPFlags struct {
	Inexact     bool
	Underflow   bool
	Overflow    bool
	DivByZero   bool
	Invalid     bool
}

// Mask packs the flag set into the fcsr update mask (bits 0-4).
func (f FPFlags) Mask() uint64 {
	var m uint64
	if f.Inexact {
		m |= 1 << 0
	}
	if f.Underflow {
		m |= 1 << 1
	}
	if f.Overflow {
		m |= 1 << 2
	}
	if f.DivByZero {
		m |= 1 << 3
	}
	if f.Invalid {
		m |= 1 << 4
	}
	return m
}
