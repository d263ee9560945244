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

// Package simmem implements the simulator's physical/device memory and the
// translate/icache/dcache contract the pipeline stages call through
// internal/cpu.Memory.
package simmem

import (
	"encoding/binary"
	"errors"

	"github.com/VictoriaMetrics/fastcache"
	lru "github.com/hashicorp/golang-lru"

	"github.com/probeum/rv64pipe/internal/cpu"
)

// DeviceBase is the first physical address routed to the device-memory
// back-end rather than the flat byte array.
const DeviceBase = 0xc000_0000_0000

const cacheLineSize = 64

// DeviceBackend services accesses at or above DeviceBase.
type DeviceBackend interface {
	Read(addr uint64, size int) (uint64, error)
	Write(addr uint64, size int, value uint64) error
}

// Memory is the flat-array + device-routed backing store for the simulated
// address space. Addresses in [Base, Base+Size) hit the mmap'd flat array;
// addresses at or above DeviceBase hit Device; anything else faults.
type Memory struct {
	Base uint64
	Size uint64

	flat   []byte
	region *mmapRegion
	device DeviceBackend

	// warmLines tracks which cache lines have already paid their one-tick
	// fill penalty: the first access to a line records it here and reports
	// a MISS; every later access to the same line is a cache HIT. This
	// models a single-fill-latency cache deterministically without a
	// wall-clock.
	warmLines *fastcache.Cache

	// tlb memoizes translate() results. Translation is the identity in
	// this core, but the memoization path still mirrors a real MMU's
	// hot-path shape and gives a real home to a TLB-shaped cache.
	tlb *lru.Cache
}

// New allocates a Memory backing [base, base+size) with an mmap'd flat
// array, a fastcache-backed warm-line tracker and an LRU translation cache.
func New(base, size uint64, device DeviceBackend) (*Memory, error) {
	region, flat, err := newMmapRegion(size)
	if err != nil {
		return nil, err
	}
	tlb, err := lru.New(4096)
	if err != nil {
		return nil, err
	}
	return &Memory{
		Base:      base,
		Size:      size,
		flat:      flat,
		region:    region,
		device:    device,
		warmLines: fastcache.New(1 << 20),
		tlb:       tlb,
	}, nil
}

// Close releases the mmap'd backing array.
func (m *Memory) Close() error {
	return m.region.Close()
}

// Translate maps vaddr to a physical address. Translation here is the
// identity; out-of-range and misaligned checks happen at the
// cache-read/write call sites instead.
func (m *Memory) Translate(vaddr uint64) (uint64, cpu.MemError) {
	if v, ok := m.tlb.Get(vaddr); ok {
		return v.(uint64), cpu.MemOK
	}
	paddr := vaddr
	m.tlb.Add(vaddr, paddr)
	return paddr, cpu.MemOK
}

func (m *Memory) touchLine(paddr uint64) (warm bool) {
	line := paddr &^ (cacheLineSize - 1)
	var key [8]byte
	binary.LittleEndian.PutUint64(key[:], line)
	if m.warmLines.Has(key[:]) {
		return true
	}
	m.warmLines.Set(key[:], nil)
	return false
}

// ICacheRead fetches size (2 or 4) bytes of instruction data at paddr.
func (m *Memory) ICacheRead(paddr uint64, size int) (uint32, cpu.MemError) {
	v, err := m.read(paddr, size)
	return uint32(v), err
}

// DCacheRead loads size (1, 2, 4 or 8) bytes of data at paddr.
func (m *Memory) DCacheRead(paddr uint64, size int) (uint64, cpu.MemError) {
	return m.read(paddr, size)
}

func (m *Memory) read(paddr uint64, size int) (uint64, cpu.MemError) {
	if err := checkSize(size); err != cpu.MemOK {
		return 0, err
	}
	if paddr%uint64(size) != 0 {
		return 0, cpu.MemMisalign
	}
	if paddr >= DeviceBase {
		if m.device == nil {
			return 0, cpu.MemAccessFault
		}
		v, err := m.device.Read(paddr, size)
		if err != nil {
			return 0, cpu.MemAccessFault
		}
		return v, cpu.MemOK
	}
	if paddr < m.Base || paddr+uint64(size) > m.Base+m.Size {
		return 0, cpu.MemAccessFault
	}
	if !m.touchLine(paddr) {
		return 0, cpu.MemMiss
	}
	off := paddr - m.Base
	return loadLE(m.flat[off:off+uint64(size)]), cpu.MemOK
}

// DCacheWrite stores the low size bytes of value at paddr.
func (m *Memory) DCacheWrite(paddr uint64, size int, value uint64) cpu.MemError {
	if err := checkSize(size); err != cpu.MemOK {
		return err
	}
	if paddr%uint64(size) != 0 {
		return cpu.MemMisalign
	}
	if paddr >= DeviceBase {
		if m.device == nil {
			return cpu.MemAccessFault
		}
		if err := m.device.Write(paddr, size, value); err != nil {
			return cpu.MemAccessFault
		}
		return cpu.MemOK
	}
	if paddr < m.Base || paddr+uint64(size) > m.Base+m.Size {
		return cpu.MemAccessFault
	}
	if !m.touchLine(paddr) {
		return cpu.MemMiss
	}
	off := paddr - m.Base
	storeLE(m.flat[off:off+uint64(size)], value)
	return cpu.MemOK
}

// DCacheAMO performs an atomic read-modify-write at paddr, returning the
// pre-image value. LR records the reservation; SC checks and clears it.
func (m *Memory) DCacheAMO(op cpu.AMOOp, paddr uint64, size int, value uint64, res *cpu.ReservationSet) (uint64, cpu.MemError) {
	if op == cpu.AMOLR {
		old, err := m.read(paddr, size)
		if err == cpu.MemOK {
			res.Set(paddr)
		}
		return old, err
	}
	if op == cpu.AMOSC {
		matched := res.Matches(paddr)
		res.Clear()
		if !matched {
			return 1, cpu.MemOK // failure
		}
		if err := m.DCacheWrite(paddr, size, value); err != cpu.MemOK {
			return 1, err
		}
		return 0, cpu.MemOK // success
	}

	old, err := m.read(paddr, size)
	if err != cpu.MemOK {
		return 0, err
	}
	next := amoCompute(op, old, value, size)
	if werr := m.DCacheWrite(paddr, size, next); werr != cpu.MemOK {
		return 0, werr
	}
	return old, cpu.MemOK
}

func amoCompute(op cpu.AMOOp, old, operand uint64, size int) uint64 {
	var a, b int64
	if size == 4 {
		a, b = int64(int32(old)), int64(int32(operand))
	} else {
		a, b = int64(old), int64(operand)
	}
	switch op {
	case cpu.AMOAdd:
		return old + operand
	case cpu.AMOSwap:
		return operand
	case cpu.AMOXor:
		return old ^ operand
	case cpu.AMOAnd:
		return old & operand
	case cpu.AMOOr:
		return old | operand
	case cpu.AMOMin:
		if a < b {
			return old
		}
		return operand
	case cpu.AMOMax:
		if a > b {
			return old
		}
		return operand
	case cpu.AMOMinu:
		if old < operand {
			return old
		}
		return operand
	case cpu.AMOMaxu:
		if old > operand {
			return old
		}
		return operand
	default:
		return old
	}
}

func checkSize(size int) cpu.MemError {
	switch size {
	case 1, 2, 4, 8:
		return cpu.MemOK
	default:
		return cpu.MemMisalign
	}
}

func loadLE(b []byte) uint64 {
	var buf [8]byte
	copy(buf[:], b)
	return binary.LittleEndian.Uint64(buf[:])
}

func storeLE(dst []byte, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	copy(dst, buf[:len(dst)])
}

var errShortMmap = errors.New("simmem: mmap region shorter than requested size")
