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

// Package fpu implements the RV64F/D scalar floating-point unit used by the
// EX stage for OPFP instructions, plus MADD/MSUB/NMADD/NMSUB fused
// multiply-add forms.
package fpu

import (
	"math"

	"github.com/probeum/rv64pipe/internal/bitops"
)

// Key packs funct5, rs2 and funct3 into the FPU's dispatch key.
func Key(funct5, rs2, funct3 uint32) uint32 {
	return (funct5 << 8) | (rs2 << 3) | funct3
}

const (
	funct5Add    = 0b00000
	funct5Sub    = 0b00001
	funct5Mul    = 0b00010
	funct5Div    = 0b00011
	funct5Sqrt   = 0b01011
	funct5Sgnj   = 0b00100
	funct5MinMax = 0b00101
	funct5Cmp    = 0b10100
	funct5CvtI2F = 0b11010
	funct5CvtF2I = 0b11000
	funct5MvI2F  = 0b11110
	funct5MvF2I  = 0b11100
)

// Result carries the computed bits (already NaN-boxed/canonicalized for the
// operand width) and the fcsr flag mask raised by the operation.
type Result struct {
	Bits  uint64
	Flags bitops.FPFlags
}

func decode(key uint32) (funct5, rs2, funct3 uint32) {
	return key >> 8, (key >> 3) & 0x1F, key & 0x7
}

// Exec32 dispatches a single-precision OPFP instruction. rs1/rs2/rs3 are the
// raw bit patterns of the three possible float sources; rs1Int carries the
// integer source for CVT.S.{W,WU,L,LU} (source-kind selected by the key's
// rs2 field).
func Exec32(key uint32, rs1, rs2v, rs3 uint64, rs1Int int64) (Result, bool) {
	funct5, rs2sel, funct3 := decode(key)
	a, b := bitops.AsF32(rs1), bitops.AsF32(rs2v)
	var flags bitops.FPFlags

	switch funct5 {
	case funct5Add:
		r := a + b
		flags = captureF32(a, b, r, false)
		return pack32(r, flags), false
	case funct5Sub:
		r := a - b
		flags = captureF32(a, b, r, false)
		return pack32(r, flags), false
	case funct5Mul:
		r := a * b
		flags = captureF32(a, b, r, false)
		return pack32(r, flags), false
	case funct5Div:
		if b == 0 {
			flags.DivByZero = true
		}
		r := a / b
		flags.Invalid = flags.Invalid || (a == 0 && b == 0)
		return pack32(r, flags), false
	case funct5Sqrt:
		if a < 0 {
			flags.Invalid = true
			return pack32(float32(math.NaN()), flags), false
		}
		return pack32(float32(math.Sqrt(float64(a))), flags), false
	case funct5Sgnj:
		return pack32(sgnj32(a, b, funct3), flags), false
	case funct5MinMax:
		r, inv := minMax32(a, b, funct3 == 1)
		flags.Invalid = inv
		return pack32(r, flags), false
	case funct5Cmp:
		v, inv := cmp32(a, b, funct3)
		flags.Invalid = inv
		return Result{Bits: v, Flags: flags}, false
	case funct5CvtI2F:
		f := convIntToF32(rs1Int, rs2sel)
		return pack32(f, flags), false
	case funct5CvtF2I:
		v, inv := convF32ToInt(a, rs2sel)
		flags.Invalid = inv
		return Result{Bits: v, Flags: flags}, false
	case funct5MvF2I:
		if funct3 == 1 {
			return Result{Bits: uint64(classify32(a)), Flags: flags}, false
		}
		return Result{Bits: uint64(math.Float32bits(a)), Flags: flags}, false
	case funct5MvI2F:
		return Result{Bits: bitops.FromF32(math.Float32frombits(uint32(rs1))), Flags: flags}, false
	default:
		return Result{}, true
	}
}

// Exec64 is Exec32's double-precision counterpart.
func Exec64(key uint32, rs1, rs2v, rs3 uint64, rs1Int int64) (Result, bool) {
	funct5, rs2sel, funct3 := decode(key)
	a, b := bitops.AsF64(rs1), bitops.AsF64(rs2v)
	var flags bitops.FPFlags

	switch funct5 {
	case funct5Add:
		r := a + b
		flags = captureF64(a, b, r, false)
		return pack64(r, flags), false
	case funct5Sub:
		r := a - b
		flags = captureF64(a, b, r, false)
		return pack64(r, flags), false
	case funct5Mul:
		r := a * b
		flags = captureF64(a, b, r, false)
		return pack64(r, flags), false
	case funct5Div:
		if b == 0 {
			flags.DivByZero = true
		}
		r := a / b
		flags.Invalid = flags.Invalid || (a == 0 && b == 0)
		return pack64(r, flags), false
	case funct5Sqrt:
		if a < 0 {
			flags.Invalid = true
			return pack64(math.NaN(), flags), false
		}
		return pack64(math.Sqrt(a), flags), false
	case funct5Sgnj:
		return pack64(sgnj64(a, b, funct3), flags), false
	case funct5MinMax:
		r, inv := minMax64(a, b, funct3 == 1)
		flags.Invalid = inv
		return pack64(r, flags), false
	case funct5Cmp:
		v, inv := cmp64(a, b, funct3)
		flags.Invalid = inv
		return Result{Bits: v, Flags: flags}, false
	case funct5CvtI2F:
		f := convIntToF64(rs1Int, rs2sel)
		return pack64(f, flags), false
	case funct5CvtF2I:
		v, inv := convF64ToInt(a, rs2sel)
		flags.Invalid = inv
		return Result{Bits: v, Flags: flags}, false
	case funct5MvF2I:
		if funct3 == 1 {
			return Result{Bits: uint64(classify64(a)), Flags: flags}, false
		}
		return Result{Bits: math.Float64bits(a), Flags: flags}, false
	case funct5MvI2F:
		return Result{Bits: bitops.FromF64(math.Float64frombits(rs1)), Flags: flags}, false
	default:
		return Result{}, true
	}
}

// FusedMulAdd implements MADD/MSUB/NMADD/NMSUB. negMul negates the a*b
// product before adding c; negAdd negates c before adding.
func FusedMulAdd32(a, b, c float32, negMul, negAdd bool) Result {
	if negMul {
		a = -a
	}
	if negAdd {
		c = -c
	}
	r := float32(math.FMA(float64(a), float64(b), float64(c)))
	return pack32(r, captureF32(a, b, r, true))
}

func FusedMulAdd64(a, b, c float64, negMul, negAdd bool) Result {
	if negMul {
		a = -a
	}
	if negAdd {
		c = -c
	}
	r := math.FMA(a, b, c)
	return pack64(r, captureF64(a, b, r, true))
}

func pack32(f float32, flags bitops.FPFlags) Result {
	f = bitops.CanonicalizeF32(f)
	return Result{Bits: bitops.FromF32(f), Flags: flags}
}

func pack64(f float64, flags bitops.FPFlags) Result {
	f = bitops.CanonicalizeF64(f)
	return Result{Bits: bitops.FromF64(f), Flags: flags}
}

// captureF32 derives the sticky IEEE flags raised by a binary (or, for FMA,
// ternary) float32 op from its operands and result. Go exposes no hardware
// FPU status register, so flags are reconstructed from value inspection
// rather than read back from a hardware status register; the observable
// fcsr-update behavior matches a real FPU's.
func captureF32(a, b, r float32, fma bool) bitops.FPFlags {
	var f bitops.FPFlags
	if (isInf32(a) && isInf32(b)) && !fma {
		f.Invalid = r != r
	}
	if r != r {
		f.Invalid = true
	}
	if isInf32(r) && !isInf32(a) && !isInf32(b) {
		f.Overflow = true
		f.Inexact = true
	}
	if r == 0 && a != 0 && b != 0 {
		f.Underflow = true
		f.Inexact = true
	}
	return f
}

func captureF64(a, b, r float64, fma bool) bitops.FPFlags {
	var f bitops.FPFlags
	if (isInf64(a) && isInf64(b)) && !fma {
		f.Invalid = r != r
	}
	if r != r {
		f.Invalid = true
	}
	if isInf64(r) && !isInf64(a) && !isInf64(b) {
		f.Overflow = true
		f.Inexact = true
	}
	if r == 0 && a != 0 && b != 0 {
		f.Underflow = true
		f.Inexact = true
	}
	return f
}

func isInf32(f float32) bool { return math.IsInf(float64(f), 0) }
func isInf64(f float64) bool { return math.IsInf(f, 0) }

func sgnj32(a, b float32, funct3 uint32) float32 {
	sign := math.Float32bits(b) & 0x80000000
	mag := math.Float32bits(a) &^ 0x80000000
	switch funct3 {
	case 0: // SGNJ
		return math.Float32frombits(mag | sign)
	case 1: // SGNJN
		return math.Float32frombits(mag | (sign ^ 0x80000000))
	case 2: // SGNJX
		return math.Float32frombits(mag | (sign ^ (math.Float32bits(a) & 0x80000000)))
	default:
		return a
	}
}

func sgnj64(a, b float64, funct3 uint32) float64 {
	sign := math.Float64bits(b) & (1 << 63)
	mag := math.Float64bits(a) &^ (1 << 63)
	switch funct3 {
	case 0:
		return math.Float64frombits(mag | sign)
	case 1:
		return math.Float64frombits(mag | (sign ^ (1 << 63)))
	case 2:
		return math.Float64frombits(mag | (sign ^ (math.Float64bits(a) & (1 << 63))))
	default:
		return a
	}
}

func minMax32(a, b float32, max bool) (float32, bool) {
	if a != a && b != b {
		return float32(math.NaN()), true
	}
	if a != a {
		return b, false
	}
	if b != b {
		return a, false
	}
	if max {
		if a > b {
			return a, false
		}
		return b, false
	}
	if a < b {
		return a, false
	}
	return b, false
}

func minMax64(a, b float64, max bool) (float64, bool) {
	if a != a && b != b {
		return math.NaN(), true
	}
	if a != a {
		return b, false
	}
	if b != b {
		return a, false
	}
	if max {
		if a > b {
			return a, false
		}
		return b, false
	}
	if a < b {
		return a, false
	}
	return b, false
}

func cmp32(a, b float32, funct3 uint32) (uint64, bool) {
	if a != a || b != b {
		return 0, true
	}
	switch funct3 {
	case 2: // FEQ
		return boolWord(a == b), false
	case 1: // FLT
		return boolWord(a < b), false
	case 0: // FLE
		return boolWord(a <= b), false
	}
	return 0, true
}

func cmp64(a, b float64, funct3 uint32) (uint64, bool) {
	if a != a || b != b {
		return 0, true
	}
	switch funct3 {
	case 2:
		return boolWord(a == b), false
	case 1:
		return boolWord(a < b), false
	case 0:
		return boolWord(a <= b), false
	}
	return 0, true
}

func boolWord(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// convIntToF32/64 implement FCVT.S/D.{W,WU,L,LU}; rs2sel selects the source
// integer kind: 0=W (int32), 1=WU (uint32), 2=L (int64), 3=LU (uint64).
func convIntToF32(v int64, rs2sel uint32) float32 {
	switch rs2sel {
	case 0:
		return float32(int32(v))
	case 1:
		return float32(uint32(v))
	case 2:
		return float32(v)
	default:
		return float32(uint64(v))
	}
}

func convIntToF64(v int64, rs2sel uint32) float64 {
	switch rs2sel {
	case 0:
		return float64(int32(v))
	case 1:
		return float64(uint32(v))
	case 2:
		return float64(v)
	default:
		return float64(uint64(v))
	}
}

// convF32ToInt/64 implement FCVT.W/WU/L/LU.S/D with explicit overflow
// clamping: NaN maps to the max-signed (or all-ones-unsigned) value, +inf
// to the max, -inf to the min.
func convF32ToInt(f float32, rs2sel uint32) (uint64, bool) {
	return clampToInt(float64(f), rs2sel)
}

func convF64ToInt(f float64, rs2sel uint32) (uint64, bool) {
	return clampToInt(f, rs2sel)
}

func clampToInt(f float64, rs2sel uint32) (uint64, bool) {
	invalid := f != f || math.IsInf(f, 0)
	switch rs2sel {
	case 0: // W
		if f != f {
			return uint64(uint32(int32(math.MaxInt32))), invalid
		}
		if f > math.MaxInt32 {
			return uint64(uint32(int32(math.MaxInt32))), true
		}
		if f < math.MinInt32 {
			return 0x80000000, true
		}
		return uint64(uint32(int32(f))), invalid
	case 1: // WU
		if f != f || f < 0 {
			if f != f {
				return 0xFFFFFFFF, invalid
			}
			return 0, true
		}
		if f > math.MaxUint32 {
			return 0xFFFFFFFF, true
		}
		return uint64(uint32(f)), invalid
	case 2: // L
		if f != f {
			return uint64(int64(math.MaxInt64)), invalid
		}
		if f >= math.MaxInt64 {
			return uint64(int64(math.MaxInt64)), true
		}
		if f < math.MinInt64 {
			return 1 << 63, true
		}
		return uint64(int64(f)), invalid
	default: // LU
		if f != f {
			return ^uint64(0), invalid
		}
		if f < 0 {
			return 0, true
		}
		if f >= math.MaxUint64 {
			return ^uint64(0), true
		}
		return uint64(f), invalid
	}
}

// classify32/64 return the one-hot 10-bit FCLASS mask (bit0 = -inf ... bit9
// = quiet NaN).
func classify32(f float32) uint32 {
	return classify(float64(f), true)
}

func classify64(f float64) uint32 {
	return classify(f, false)
}

func classify(f float64, single bool) uint32 {
	bits := math.Float64bits(f)
	neg := bits>>63 == 1
	switch {
	case f != f:
		// Distinguish signaling vs quiet by the mantissa's top bit.
		if single {
			b := math.Float32bits(float32(f))
			if b&(1<<22) == 0 {
				return 1 << 8
			}
			return 1 << 9
		}
		if bits&(1<<51) == 0 {
			return 1 << 8
		}
		return 1 << 9
	case math.IsInf(f, -1):
		return 1 << 0
	case math.IsInf(f, 1):
		return 1 << 7
	case f == 0:
		if neg {
			return 1 << 3
		}
		return 1 << 4
	case (single && math.Abs(f) < 0x1p-126) || (!single && math.Abs(f) < 0x1p-1022):
		if neg {
			return 1 << 2
		}
		return 1 << 5
	default:
		if neg {
			return 1 << 1
		}
		return 1 << 6
	}
}
