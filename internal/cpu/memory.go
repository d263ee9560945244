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

// MemError is the outcome of a translate/cache call.
type MemError int

const (
	MemOK MemError = iota
	MemMiss
	MemBusy
	MemMisalign
	MemAccessFault
	MemPageFault
)

// AMOOp enumerates the RISC-V atomic memory operations.
type AMOOp int

const (
	AMOAdd AMOOp = iota
	AMOSwap
	AMOLR
	AMOSC
	AMOXor
	AMOAnd
	AMOOr
	AMOMin
	AMOMax
	AMOMinu
	AMOMaxu
)

// Memory is the contract the IF and Mem stages use for address translation
// and the instruction/data cache. Implementations live in package simmem;
// this interface lets the pipeline stages depend only on the shape they
// need.
type Memory interface {
	// Translate maps a virtual address to a physical one.
	Translate(vaddr uint64) (paddr uint64, err MemError)
	// ICacheRead fetches a 2 or 4 byte instruction half/word.
	ICacheRead(paddr uint64, size int) (word uint32, err MemError)
	// DCacheRead loads size bytes (1, 2, 4 or 8) from paddr.
	DCacheRead(paddr uint64, size int) (value uint64, err MemError)
	// DCacheWrite stores the low size bytes of value to paddr.
	DCacheWrite(paddr uint64, size int, value uint64) MemError
	// DCacheAMO performs an atomic read-modify-write of size bytes at
	// paddr, returning the pre-image value. res is consulted/updated for
	// LR/SC.
	DCacheAMO(op AMOOp, paddr uint64, size int, value uint64, res *ReservationSet) (old uint64, err MemError)
}
