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

// Package cpu assembles the bit/ALU/FPU/decode/pipe primitives into the
// five-stage RV64 pipeline: IF, ID, EX, Mem, WB connected by handshake
// channels, with a shared PC next-cell and register scoreboard.
package cpu

import "github.com/probeum/rv64pipe/internal/pipe"

// RegisterFile holds the 64 architectural registers: x0-x31 integer at
// indices 0-31 (x0 hardwired to zero) and f0-f31 floating point at indices
// 32-63, all stored as raw 64-bit patterns.
type RegisterFile struct {
	regs [64]uint64
}

// Read returns the raw bits at idx. Index 0 always reads as zero.
func (rf *RegisterFile) Read(idx uint32) uint64 {
	if idx == 0 {
		return 0
	}
	return rf.regs[idx&63]
}

// Write stores v at idx. Writes to index 0 are discarded.
func (rf *RegisterFile) Write(idx uint32, v uint64) {
	if idx == 0 {
		return
	}
	rf.regs[idx&63] = v
}

// FCSR is the 64-bit floating-point control/status register: bits 0-4 hold
// the sticky IEEE flags (NX,UF,OF,DZ,NV), bits 5-7 the rounding mode.
type FCSR struct {
	value uint64
}

const (
	fcsrFlagsMask = 0x1F
	fcsrRMShift   = 5
	fcsrRMMask    = 0x7
)

// Value returns the full 64-bit CSR contents.
func (f *FCSR) Value() uint64 { return f.value }

// SetValue overwrites the full CSR contents, as CSRRW does.
func (f *FCSR) SetValue(v uint64) { f.value = v }

// Flags returns the sticky fflags field (bits 0-4).
func (f *FCSR) Flags() uint64 { return f.value & fcsrFlagsMask }

// SetFlags replaces the fflags field, leaving the rounding mode untouched.
func (f *FCSR) SetFlags(flags uint64) {
	f.value = (f.value &^ fcsrFlagsMask) | (flags & fcsrFlagsMask)
}

// OrFlags ORs newly-raised IEEE flags into the sticky fflags field, as every
// floating-point retirement does.
func (f *FCSR) OrFlags(flags uint64) {
	f.value |= flags & fcsrFlagsMask
}

// RoundingMode returns the frm field (bits 5-7).
func (f *FCSR) RoundingMode() uint64 { return (f.value >> fcsrRMShift) & fcsrRMMask }

// ReservationSet tracks the single physical address held by an active LR
// reservation; zero means no reservation is held.
type ReservationSet struct {
	addr uint64
}

// Set records addr as the active reservation.
func (r *ReservationSet) Set(addr uint64) { r.addr = addr }

// Clear drops any active reservation.
func (r *ReservationSet) Clear() { r.addr = 0 }

// Matches reports whether addr is currently reserved.
func (r *ReservationSet) Matches(addr uint64) bool { return r.addr != 0 && r.addr == addr }

// SimulatorContext bundles all process-wide simulator state behind one
// value, rather than package-level globals: the register file, scoreboard,
// FCSR, reservation set, PC next-cell, inter-stage channels and the memory
// subsystem. Stage tick functions take a *SimulatorContext explicitly.
type SimulatorContext struct {
	Regs        RegisterFile
	Scoreboard  pipe.Scoreboard
	FCSR        FCSR
	Reservation ReservationSet

	PC *pipe.NextCell[uint64]

	IFtoID  *pipe.PipeChannel[Bundle]
	IDtoEX  *pipe.PipeChannel[Bundle]
	EXtoMem *pipe.PipeChannel[Bundle]
	MemToWB *pipe.PipeChannel[Bundle]

	Mem Memory

	Instret uint64
	Cycle   uint64

	// TrapVector is the default next-pc used by HandleException when
	// OnException is nil: every exception redirects here.
	TrapVector uint64
	// OnException, if set, overrides the default trap-vector redirect and
	// returns the next pc to resume at; used by the CLI/tests to observe or
	// emulate a real trap handler.
	OnException func(cause uint32, arg, pc uint64) uint64

	LastExceptionCause uint32
	LastExceptionArg   uint64
	LastExceptionPC    uint64

	wbGuard bool // prevents re-entrant retirement within one tick
}

// HandleException records the fault and returns the pc to resume at,
// delegating to OnException when set.
func (c *SimulatorContext) HandleException(cause uint32, arg, pc uint64) uint64 {
	c.LastExceptionCause = cause
	c.LastExceptionArg = arg
	c.LastExceptionPC = pc
	if c.OnException != nil {
		return c.OnException(cause, arg, pc)
	}
	return c.TrapVector
}

// NewSimulatorContext returns a context with the PC set to resetPC and all
// channels, registers and the scoreboard cleared.
func NewSimulatorContext(resetPC uint64, mem Memory) *SimulatorContext {
	return &SimulatorContext{
		PC:      pipe.NewNextCell(resetPC),
		IFtoID:  pipe.NewPipeChannel[Bundle](pipe.Handshake, 1),
		IDtoEX:  pipe.NewPipeChannel[Bundle](pipe.Handshake, 1),
		EXtoMem: pipe.NewPipeChannel[Bundle](pipe.Handshake, 1),
		MemToWB: pipe.NewPipeChannel[Bundle](pipe.Handshake, 1),
		Mem:     mem,
	}
}

// Priority constants for PC next-cell writes: a WB-driven redirect always
// wins over IF's sequential advance within the same tick.
const (
	PriorityRedirect = 0
	PrioritySequential = 1
)

// ClearPipeline discards every inter-stage channel's contents and schedules
// the busy mask to reset to all-zero, both committed atomically at the next
// ApplyTick.
func (c *SimulatorContext) ClearPipeline() {
	c.IFtoID.Clear()
	c.IDtoEX.Clear()
	c.EXtoMem.Clear()
	c.MemToWB.Clear()
	c.Scoreboard.Clear()
}

// ApplyTick commits every two-phase cell's staged state for this cycle and
// clears the WB re-entrancy guard for the next one.
func (c *SimulatorContext) ApplyTick() {
	c.PC.ApplyTick()
	c.IFtoID.ApplyTick()
	c.IDtoEX.ApplyTick()
	c.EXtoMem.ApplyTick()
	c.MemToWB.ApplyTick()
	c.Scoreboard.ApplyTick()
	c.wbGuard = false
}
