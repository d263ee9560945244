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

// Package logbus is the bounded ring buffer that fans a running
// simulation's log output out to the TCP log socket: many producers
// (rvlog handlers, simmgr's stdout/stderr readers) push lines in, one
// consumer (the socket writer) drains them.
package logbus

import (
	"sync"

	"github.com/probeum/rv64pipe/internal/rvlog"
)

// Capacity is the ring buffer's fixed size; the oldest unread entry is
// dropped to make room for a new one once full.
const Capacity = 4096

// Line is one bus entry.
type Line struct {
	Lvl rvlog.Lvl
	Msg string
}

// Bus is a bounded, single-consumer/multi-producer ring buffer with a
// level filter: entries below the configured minimum severity are dropped
// at the producer side before ever entering the ring.
type Bus struct {
	mu       sync.Mutex
	notEmpty *sync.Cond

	buf   []Line
	head  int // next read position
	count int

	minLevel rvlog.Lvl
	dropped  uint64
	closed   bool
}

// New returns an empty bus accepting every level at or above minLevel.
func New(minLevel rvlog.Lvl) *Bus {
	b := &Bus{buf: make([]Line, Capacity), minLevel: minLevel}
	b.notEmpty = sync.NewCond(&b.mu)
	return b
}

// Push is the producer entry point. A line below minLevel is silently
// discarded; otherwise it is appended, evicting the oldest unread line
// first if the ring is full.
func (b *Bus) Push(lvl rvlog.Lvl, msg string) {
	if lvl > b.minLevel {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	if b.count == Capacity {
		b.head = (b.head + 1) % Capacity
		b.count--
		b.dropped++
	}
	tail := (b.head + b.count) % Capacity
	b.buf[tail] = Line{Lvl: lvl, Msg: msg}
	b.count++
	b.notEmpty.Signal()
}

// Pop blocks until a line is available or the bus is closed, in which case
// ok is false.
func (b *Bus) Pop() (line Line, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.count == 0 && !b.closed {
		b.notEmpty.Wait()
	}
	if b.count == 0 {
		return Line{}, false
	}
	line = b.buf[b.head]
	b.head = (b.head + 1) % Capacity
	b.count--
	return line, true
}

// Dropped returns the number of lines evicted for overflow so far.
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close wakes any blocked consumer; subsequent Pop calls drain remaining
// buffered lines, then return ok=false.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.notEmpty.Broadcast()
}
