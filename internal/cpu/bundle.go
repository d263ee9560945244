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

package cpu

import "github.com/probeum/rv64pipe/internal/decode"

// Bundle is the value passed between IF, ID, EX, Mem and WB. It is one
// concrete struct that grows the fields each stage cares about rather than
// four separate wire shapes: IF populates PC/RawWord/Exception; ID adds Rec;
// EX adds Src1-3/Arg0/Arg1; Mem adds MemResult. A stage that finds Exception
// non-zero passes the bundle through untouched except for its own identity
// fields.
type Bundle struct {
	PC        uint64
	RawWord   uint32
	Exception uint32

	Rec decode.Record // populated by ID

	// Populated by EX: the three operand reads (by decode.Record's S1/S2/S3
	// flags), and up to two stage-specific results (branch target/taken
	// flag, ALU result, computed address, CSR immediate, fcsr delta, ...).
	Src1 uint64
	Src2 uint64
	Src3 uint64
	Arg0 uint64
	Arg1 uint64

	// SignedLoad records whether Mem should sign-extend the value it reads,
	// set by EX for LOAD/LOADFP/AMO and consumed by Mem.
	SignedLoad bool

	// MemResult holds the value Mem produced (a load's value, or an AMO's
	// pre-image), ready for WB to write back.
	MemResult uint64
}

// HasException reports whether the bundle is carrying a fault that every
// downstream stage must pass through unmodified.
func (b *Bundle) HasException() bool { return b.Exception != 0 }
