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

import (
	"math"

	"github.com/probeum/rv64pipe/internal/alu"
	"github.com/probeum/rv64pipe/internal/decode"
	"github.com/probeum/rv64pipe/internal/fpu"
)

// Tick advances every stage once, in WB..IF order so a downstream stage
// takes its input off a channel before the upstream stage pushes into it in
// the same cycle (register and PC reads still observe pre-tick state under
// the two-phase tick/apply-tick discipline), then commits every channel,
// the scoreboard and the PC with ApplyTick.
func (c *SimulatorContext) Tick() {
	c.TickWB()
	c.TickMem()
	c.TickEX()
	c.TickID()
	c.TickIF()
	c.Cycle++
	c.ApplyTick()
}

// TickIF fetches the next instruction (16 or 32 bits) from the address in
// PC, predicting the next PC inline for C.J/JAL and otherwise advancing
// sequentially. A cache MISS/BUSY is a soft stall: IF returns without
// advancing PC or pushing anything so the same fetch is retried next cycle.
func (c *SimulatorContext) TickIF() {
	if !c.IFtoID.CanPush() {
		return
	}
	pc := c.PC.Current()
	if pc == 0 {
		return
	}

	paddr, err := c.Mem.Translate(pc)
	if err == MemMiss || err == MemBusy {
		return
	}
	if err != MemOK {
		c.IFtoID.Push(Bundle{PC: pc, Exception: mapFetchFault(err)})
		return
	}
	lo, err := c.Mem.ICacheRead(paddr, 2)
	if err == MemMiss || err == MemBusy {
		return
	}
	if err != MemOK {
		c.IFtoID.Push(Bundle{PC: pc, Exception: mapFetchFault(err)})
		return
	}

	var raw uint32
	var size uint64
	if lo&0x3 == 0x3 {
		paddr2, err2 := c.Mem.Translate(pc + 2)
		if err2 == MemMiss || err2 == MemBusy {
			return
		}
		if err2 != MemOK {
			c.IFtoID.Push(Bundle{PC: pc, Exception: mapFetchFault(err2)})
			return
		}
		hi, err3 := c.Mem.ICacheRead(paddr2, 2)
		if err3 == MemMiss || err3 == MemBusy {
			return
		}
		if err3 != MemOK {
			c.IFtoID.Push(Bundle{PC: pc, Exception: mapFetchFault(err3)})
			return
		}
		raw = lo | (hi << 16)
		size = 4
	} else {
		raw = lo
		size = 2
	}

	c.PC.Set(predictNextPC(pc, raw, size), PrioritySequential)
	c.IFtoID.Push(Bundle{PC: pc, RawWord: raw})
}

// predictNextPC computes IF's cheap, speculative next-pc: C.J and JAL
// targets are trivially PC-relative, so IF decodes just far enough to spot
// them; everything else advances sequentially by the fetched size. WB's
// redirect (priority 0) always wins over this guess when it disagrees.
func predictNextPC(pc uint64, raw uint32, size uint64) uint64 {
	var rec decode.Record
	if size == 4 {
		rec = decode.Decode32(raw)
	} else {
		rec = decode.DecodeCompressed(uint16(raw))
	}
	if rec.Opcode == decode.OpJal {
		return uint64(int64(pc) + rec.Imm)
	}
	return pc + size
}

// TickID is one-shot: a fetch exception passes through untouched, otherwise
// the bundle's raw word is decoded by the 32-bit or compressed decoder
// selected by its low two bits.
func (c *SimulatorContext) TickID() {
	if !c.IFtoID.CanPop() || !c.IDtoEX.CanPush() {
		return
	}
	b := c.IFtoID.Top()
	if !b.HasException() {
		var rec decode.Record
		if b.RawWord&0x3 == 0x3 {
			rec = decode.Decode32(b.RawWord)
		} else {
			rec = decode.DecodeCompressed(uint16(b.RawWord))
		}
		b.Rec = rec
		if rec.Exception != 0 {
			b.Exception = rec.Exception
		}
	}
	c.IFtoID.Pop()
	c.IDtoEX.Push(b)
}

// TickEX reads up to three operands through the scoreboard, stalling
// (neither popping nor pushing) on a structural hazard, locks the
// destination register, and dispatches the operation.
func (c *SimulatorContext) TickEX() {
	if !c.IDtoEX.CanPop() || !c.EXtoMem.CanPush() {
		return
	}
	b := c.IDtoEX.Top()
	if b.HasException() {
		c.IDtoEX.Pop()
		c.EXtoMem.Push(b)
		return
	}

	rec := &b.Rec
	stall := false
	var src1, src2, src3 uint64

	if rec.Has(decode.S1Int) || rec.Has(decode.S1Fp) {
		if c.Scoreboard.IsBusy(rec.Rs1) {
			stall = true
		} else {
			src1 = c.Regs.Read(rec.Rs1)
		}
	}
	if !stall && (rec.Has(decode.S2Int) || rec.Has(decode.S2Fp)) {
		if c.Scoreboard.IsBusy(rec.Rs2) {
			stall = true
		} else {
			src2 = c.Regs.Read(rec.Rs2)
		}
	}
	if !stall && rec.Has(decode.S3Fp) {
		if c.Scoreboard.IsBusy(rec.Rs3) {
			stall = true
		} else {
			src3 = c.Regs.Read(rec.Rs3)
		}
	}
	if stall {
		return
	}

	if rec.Has(decode.RdInt) || rec.Has(decode.RdFp) {
		c.Scoreboard.Lock(rec.Rd)
	}

	b.Src1, b.Src2, b.Src3 = src1, src2, src3
	execStage(&b)

	c.IDtoEX.Pop()
	c.EXtoMem.Push(b)
}

func execStage(b *Bundle) {
	rec := &b.Rec
	instrSize := uint64(4)
	if rec.Has(decode.IsCompressed) {
		instrSize = 2
	}

	switch rec.Opcode {
	case decode.OpAuipc:
		b.Arg0 = uint64(int64(b.PC) + rec.Imm)
	case decode.OpLui:
		b.Arg0 = uint64(rec.Imm)
	case decode.OpJal:
		b.Arg0 = b.PC + instrSize
		b.Arg1 = uint64(int64(b.PC) + rec.Imm)
	case decode.OpJalr:
		b.Arg0 = b.PC + instrSize
		b.Arg1 = (b.Src1 + uint64(rec.Imm)) &^ 1
	case decode.OpBranch:
		taken := branchTaken(rec.Funct3, b.Src1, b.Src2)
		if taken {
			b.Arg0 = 1
		}
		b.Arg1 = uint64(int64(b.PC) + rec.Imm)
	case decode.OpLoad, decode.OpLoadFp:
		b.Arg0 = b.Src1 + uint64(rec.Imm)
		b.SignedLoad = rec.Funct3&0x4 == 0
	case decode.OpStore, decode.OpStoreFp:
		b.Arg0 = b.Src1 + uint64(rec.Imm)
		b.Arg1 = b.Src2
	case decode.OpAmo:
		b.Arg0 = b.Src1
		b.Arg1 = b.Src2
		b.SignedLoad = true
	case decode.OpImm, decode.OpImm32:
		execALU(b, rec.Opcode == decode.OpImm32, true)
	case decode.OpOp, decode.OpOp32:
		execALU(b, rec.Opcode == decode.OpOp32, false)
	case decode.OpMadd, decode.OpMsub, decode.OpNmsub, decode.OpNmadd:
		execFusedMulAdd(b, rec)
	case decode.OpOpFp:
		execFP(b, rec)
	case decode.OpSystem:
		b.Arg1 = uint64(rec.Imm)
		if rec.Has(decode.UsesRs1AsImm) {
			b.Arg0 = uint64(rec.Rs1)
		}
	default:
		b.Exception = decode.MakeException(decode.CauseIllegalInst)
	}
}

// execALU dispatches OP/OPIMM(32) to the scalar ALU. For the immediate
// forms, funct7 is only meaningful for the shift-immediate encodings
// (funct3 1 or 5); every other funct3 carries a genuine sign-extended
// immediate in the bits a real funct7 would occupy, so the key must not
// fold those bits in.
func execALU(b *Bundle, is32 bool, isImm bool) {
	rec := &b.Rec
	funct7 := rec.Funct7
	if isImm && rec.Funct3 != 1 && rec.Funct3 != 5 {
		funct7 = 0
	}
	key := alu.Key(funct7, rec.Funct3)

	b2 := b.Src2
	if isImm {
		b2 = uint64(rec.Imm)
	}

	var result uint64
	var invalid bool
	if is32 {
		result, invalid = alu.Exec32(key, b.Src1, b2)
	} else {
		result, invalid = alu.Exec64(key, b.Src1, b2)
	}
	if invalid {
		b.Exception = decode.MakeException(decode.CauseIllegalInst)
		return
	}
	b.Arg0 = result
}

func execFusedMulAdd(b *Bundle, rec *decode.Record) {
	double := rec.Funct7&0x3 == 1
	negMul := rec.Opcode == decode.OpNmsub || rec.Opcode == decode.OpNmadd
	negAdd := rec.Opcode == decode.OpMsub || rec.Opcode == decode.OpNmsub
	if double {
		r := fpu.FusedMulAdd64(bitsToF64(b.Src1), bitsToF64(b.Src2), bitsToF64(b.Src3), negMul, negAdd)
		b.Arg0 = r.Bits
		b.Arg1 = r.Flags.Mask()
		return
	}
	r := fpu.FusedMulAdd32(bitsToF32(b.Src1), bitsToF32(b.Src2), bitsToF32(b.Src3), negMul, negAdd)
	b.Arg0 = r.Bits
	b.Arg1 = r.Flags.Mask()
}

func execFP(b *Bundle, rec *decode.Record) {
	funct5 := rec.Funct7 >> 2
	fmtBit := rec.Funct7 & 0x3
	rs2sel := rec.Rs2 & 0x1F
	key := fpu.Key(funct5, rs2sel, rec.Funct3)

	var res fpu.Result
	var invalid bool
	if fmtBit == 1 {
		res, invalid = fpu.Exec64(key, b.Src1, b.Src2, b.Src3, int64(b.Src1))
	} else {
		res, invalid = fpu.Exec32(key, b.Src1, b.Src2, b.Src3, int64(b.Src1))
	}
	if invalid {
		b.Exception = decode.MakeException(decode.CauseIllegalInst)
		return
	}
	b.Arg0 = res.Bits
	b.Arg1 = res.Flags.Mask()
}

func branchTaken(funct3 uint32, a, b uint64) bool {
	sa, sb := int64(a), int64(b)
	switch funct3 {
	case 0: // BEQ
		return a == b
	case 1: // BNE
		return a != b
	case 4: // BLT
		return sa < sb
	case 5: // BGE
		return sa >= sb
	case 6: // BLTU
		return a < b
	case 7: // BGEU
		return a >= b
	}
	return false
}

// TickMem performs the load/store/AMO address access for the bundle at the
// front of EXtoMem. A MISS/BUSY is a soft stall; MISALIGN/ACCESS_FAULT/
// PAGE_FAULT become the matching load- or store-class exception.
func (c *SimulatorContext) TickMem() {
	if !c.EXtoMem.CanPop() || !c.MemToWB.CanPush() {
		return
	}
	b := c.EXtoMem.Top()
	if b.HasException() {
		c.EXtoMem.Pop()
		c.MemToWB.Push(b)
		return
	}

	rec := &b.Rec
	switch rec.Opcode {
	case decode.OpLoad, decode.OpLoadFp:
		size := accessSize(rec.Funct3)
		paddr, err := c.Mem.Translate(b.Arg0)
		if err == MemMiss || err == MemBusy {
			return
		}
		if err != MemOK {
			b.Exception = mapLoadFault(err)
			c.EXtoMem.Pop()
			c.MemToWB.Push(b)
			return
		}
		v, err := c.Mem.DCacheRead(paddr, size)
		if err == MemMiss || err == MemBusy {
			return
		}
		if err != MemOK {
			b.Exception = mapLoadFault(err)
			c.EXtoMem.Pop()
			c.MemToWB.Push(b)
			return
		}
		if b.SignedLoad {
			v = signExtendLoad(v, size)
		}
		b.MemResult = v
	case decode.OpStore, decode.OpStoreFp:
		size := accessSize(rec.Funct3)
		paddr, err := c.Mem.Translate(b.Arg0)
		if err == MemMiss || err == MemBusy {
			return
		}
		if err != MemOK {
			b.Exception = mapStoreFault(err)
			c.EXtoMem.Pop()
			c.MemToWB.Push(b)
			return
		}
		if err := c.Mem.DCacheWrite(paddr, size, b.Arg1); err == MemMiss || err == MemBusy {
			return
		} else if err != MemOK {
			b.Exception = mapStoreFault(err)
		}
	case decode.OpAmo:
		size := 4
		if rec.Funct3 == 3 {
			size = 8
		}
		paddr, err := c.Mem.Translate(b.Arg0)
		if err == MemMiss || err == MemBusy {
			return
		}
		if err != MemOK {
			b.Exception = mapStoreFault(err)
			c.EXtoMem.Pop()
			c.MemToWB.Push(b)
			return
		}
		op := amoOpFor(rec.Funct7)
		old, err := c.Mem.DCacheAMO(op, paddr, size, b.Arg1, &c.Reservation)
		if err == MemMiss || err == MemBusy {
			return
		}
		if err != MemOK {
			b.Exception = mapStoreFault(err)
			c.EXtoMem.Pop()
			c.MemToWB.Push(b)
			return
		}
		if b.SignedLoad {
			old = signExtendLoad(old, size)
		}
		b.MemResult = old
	}

	c.EXtoMem.Pop()
	c.MemToWB.Push(b)
}

func accessSize(funct3 uint32) int {
	switch funct3 & 0x3 {
	case 0:
		return 1
	case 1:
		return 2
	case 2:
		return 4
	default:
		return 8
	}
}

func signExtendLoad(v uint64, size int) uint64 {
	switch size {
	case 1:
		return uint64(int64(int8(v)))
	case 2:
		return uint64(int64(int16(v)))
	case 4:
		return uint64(int64(int32(v)))
	default:
		return v
	}
}

func amoOpFor(sub uint32) AMOOp {
	switch sub {
	case 0x00:
		return AMOAdd
	case 0x01:
		return AMOSwap
	case 0x02:
		return AMOLR
	case 0x03:
		return AMOSC
	case 0x04:
		return AMOXor
	case 0x0C:
		return AMOAnd
	case 0x08:
		return AMOOr
	case 0x10:
		return AMOMin
	case 0x14:
		return AMOMax
	case 0x18:
		return AMOMinu
	case 0x1C:
		return AMOMaxu
	default:
		return AMOAdd
	}
}

// TickWB retires at most one bundle per tick. An exception redirects via the
// handler and flushes; otherwise rd is written (clearing its busy bit),
// JAL/JALR/taken branches redirect and flush, OPFP ORs its flag delta into
// fcsr, and SYSTEM services ECALL/EBREAK (as exceptions) or the small CSR
// set.
func (c *SimulatorContext) TickWB() {
	if c.wbGuard || !c.MemToWB.CanPop() {
		return
	}
	b := c.MemToWB.Pop()
	c.wbGuard = true

	if b.HasException() {
		cause, _ := decode.ExceptionCause(b.Exception)
		arg := exceptionArg(cause, b)
		next := c.HandleException(cause, arg, b.PC)
		c.PC.Set(next, PriorityRedirect)
		c.ClearPipeline()
		return
	}

	rec := &b.Rec
	if rec.Has(decode.RdInt) || rec.Has(decode.RdFp) {
		value := b.Arg0
		switch rec.Opcode {
		case decode.OpLoad, decode.OpLoadFp, decode.OpAmo:
			value = b.MemResult
		}
		c.Regs.Write(rec.Rd, value)
		c.Scoreboard.Unlock(rec.Rd)
	}

	switch rec.Opcode {
	case decode.OpJal, decode.OpJalr:
		c.PC.Set(b.Arg1, PriorityRedirect)
		c.ClearPipeline()
	case decode.OpBranch:
		if b.Arg0 != 0 {
			c.PC.Set(b.Arg1, PriorityRedirect)
			c.ClearPipeline()
		}
	case decode.OpOpFp, decode.OpMadd, decode.OpMsub, decode.OpNmsub, decode.OpNmadd:
		c.FCSR.OrFlags(b.Arg1)
	case decode.OpSystem:
		c.retireSystem(&b)
	}

	c.Instret++
}

// exceptionArg picks the WB exception-handler argument for cause: illegal
// instruction reports the raw word, instruction-fetch faults report pc,
// everything else reports the faulting virtual address.
func exceptionArg(cause uint32, b Bundle) uint64 {
	switch cause {
	case decode.CauseIllegalInst:
		return uint64(b.RawWord)
	case decode.CauseInstAddrMisaligned, decode.CauseInstAccessFault, decode.CauseInstPageFault:
		return b.PC
	default:
		return b.Arg0
	}
}

func (c *SimulatorContext) retireSystem(b *Bundle) {
	rec := &b.Rec
	if rec.Has(decode.IsEcall) {
		next := c.HandleException(decode.CauseEcallFromU, 0, b.PC)
		c.PC.Set(next, PriorityRedirect)
		c.ClearPipeline()
		return
	}
	if rec.Has(decode.IsEbreak) {
		next := c.HandleException(decode.CauseBreakpoint, b.PC, b.PC)
		c.PC.Set(next, PriorityRedirect)
		c.ClearPipeline()
		return
	}

	// Limited CSR set: fcsr, frm, fflags, cycle, time, instret.
	csrAddr := b.Arg1
	var cur uint64
	switch csrAddr {
	case csrFCSR:
		cur = c.FCSR.Value()
	case csrFRM:
		cur = c.FCSR.RoundingMode()
	case csrFFlags:
		cur = c.FCSR.Flags()
	case csrCycle:
		cur = c.Cycle
	case csrTime:
		cur = c.Cycle
	case csrInstret:
		cur = c.Instret
	}

	operand := b.Src1
	if rec.Has(decode.UsesRs1AsImm) {
		operand = b.Arg0
	}

	var next uint64
	switch rec.Funct3 & 0x3 {
	case 1: // CSRRW(I)
		next = operand
	case 2: // CSRRS(I)
		next = cur | operand
	case 3: // CSRRC(I)
		next = cur &^ operand
	default:
		next = cur
	}

	switch csrAddr {
	case csrFCSR:
		c.FCSR.SetValue(next)
	case csrFRM:
		c.FCSR.SetValue((c.FCSR.Value() &^ (0x7 << 5)) | ((next & 0x7) << 5))
	case csrFFlags:
		c.FCSR.SetFlags(next)
	}

	if rec.Has(decode.RdInt) {
		c.Regs.Write(rec.Rd, cur)
	}
}

const (
	csrFFlags  = 0x001
	csrFRM     = 0x002
	csrFCSR    = 0x003
	csrCycle   = 0xC00
	csrTime    = 0xC01
	csrInstret = 0xC02
)

func bitsToF32(v uint64) float32 { return math.Float32frombits(uint32(v)) }
func bitsToF64(v uint64) float64 { return math.Float64frombits(v) }

func mapFetchFault(err MemError) uint32 {
	switch err {
	case MemMisalign:
		return decode.MakeException(decode.CauseInstAddrMisaligned)
	case MemPageFault:
		return decode.MakeException(decode.CauseInstPageFault)
	default:
		return decode.MakeException(decode.CauseInstAccessFault)
	}
}

func mapLoadFault(err MemError) uint32 {
	switch err {
	case MemMisalign:
		return decode.MakeException(decode.CauseLoadAddrMisaligned)
	case MemPageFault:
		return decode.MakeException(decode.CauseLoadPageFault)
	default:
		return decode.MakeException(decode.CauseLoadAccessFault)
	}
}

func mapStoreFault(err MemError) uint32 {
	switch err {
	case MemMisalign:
		return decode.MakeException(decode.CauseStoreAddrMisaligned)
	case MemPageFault:
		return decode.MakeException(decode.CauseStorePageFault)
	default:
		return decode.MakeException(decode.CauseStoreAccessFault)
	}
}
