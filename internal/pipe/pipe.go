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

// Package pipe implements the two-phase tick/apply-tick primitives shared by
// every pipeline stage: inter-stage channels and the next-value cell used for
// the program counter and other values with multiple would-be writers in a
// single cycle.
package pipe

// Mode selects a PipeChannel's handshake discipline.
type Mode int

const (
	// Handshake requires both CanPush and CanPop to be true in the same
	// cycle for a transfer; an unconsumed value blocks the producer.
	Handshake Mode = iota
	// NonHandshake always accepts a push, silently dropping (bubbling) the
	// previous value if the consumer did not pop it in time.
	NonHandshake
	// Buffered queues up to a fixed depth before CanPush reports false.
	Buffered
)

// PipeChannel moves one value of type T between adjacent pipeline stages per
// cycle. Pushes staged during a cycle become visible to Pop only after
// ApplyTick, matching the simulator's two-phase tick/apply-tick scheduling.
type PipeChannel[T any] struct {
	mode  Mode
	depth int

	queue  []T
	staged []T
	hasCur bool
}

// NewPipeChannel constructs a channel in the given mode. depth is only
// meaningful for Buffered channels; it is ignored otherwise.
func NewPipeChannel[T any](mode Mode, depth int) *PipeChannel[T] {
	if mode == Buffered && depth < 1 {
		depth = 1
	}
	return &PipeChannel[T]{mode: mode, depth: depth}
}

// CanPush reports whether a producer may stage a value this cycle.
func (c *PipeChannel[T]) CanPush() bool {
	switch c.mode {
	case Handshake:
		return !c.hasCur && len(c.staged) == 0
	case Buffered:
		return len(c.queue)+len(c.staged) < c.depth
	default: // NonHandshake
		return len(c.staged) == 0
	}
}

// Push stages v for commit at the next ApplyTick. Callers must check
// CanPush first; Push does not itself enforce backpressure.
func (c *PipeChannel[T]) Push(v T) {
	c.staged = append(c.staged, v)
}

// CanPop reports whether Top/Pop may be used this cycle.
func (c *PipeChannel[T]) CanPop() bool {
	if c.mode == Buffered {
		return len(c.queue) > 0
	}
	return c.hasCur
}

// Top returns the currently visible value without consuming it.
func (c *PipeChannel[T]) Top() T {
	if c.mode == Buffered {
		return c.queue[0]
	}
	var zero T
	if !c.hasCur {
		return zero
	}
	return c.queue[0]
}

// Pop consumes the currently visible value. The slot is not refilled until
// the next ApplyTick commits a staged push.
func (c *PipeChannel[T]) Pop() T {
	v := c.Top()
	if c.mode == Buffered {
		c.queue = c.queue[1:]
	} else {
		c.hasCur = false
		c.queue = nil
	}
	return v
}

// ApplyTick commits staged pushes so they become visible to Pop on the next
// cycle, and clears the staging area.
func (c *PipeChannel[T]) ApplyTick() {
	switch c.mode {
	case Buffered:
		c.queue = append(c.queue, c.staged...)
	default:
		if len(c.staged) > 0 {
			c.queue = []T{c.staged[len(c.staged)-1]}
			c.hasCur = true
		}
	}
	c.staged = nil
}

// Clear discards all staged and committed contents, e.g. on a pipeline
// flush.
func (c *PipeChannel[T]) Clear() {
	c.queue = nil
	c.staged = nil
	c.hasCur = false
}

// pending holds one candidate next-value write with its priority.
type pending[T any] struct {
	value    T
	priority int
	set      bool
}

// NextCell holds a value along with a priority-arbitrated set of candidate
// writes for the following cycle. Multiple stages may call Set in the same
// cycle (e.g. IF advancing the PC sequentially and WB redirecting it on a
// taken branch); the highest-priority call wins at ApplyTick.
type NextCell[T any] struct {
	current T
	next     pending[T]
}

// NewNextCell constructs a cell initialized to v.
func NewNextCell[T any](v T) *NextCell[T] {
	return &NextCell[T]{current: v}
}

// Current returns the value visible to readers this cycle.
func (c *NextCell[T]) Current() T { return c.current }

// Set stages a candidate write for the next cycle. Lower priority numbers
// win; a tie keeps the first call this cycle. Callers in this simulator use
// priority 0 for the highest-precedence writer (e.g. a branch/exception
// redirect) and increasing numbers for lower-precedence writers (e.g. the
// sequential PC+4/2 advance).
func (c *NextCell[T]) Set(v T, priority int) {
	if !c.next.set || priority < c.next.priority {
		c.next = pending[T]{value: v, priority: priority, set: true}
	}
}

// ApplyTick commits the winning staged write (if any) as the new Current,
// and clears the staging area. If no write was staged this cycle, Current
// is left unchanged.
func (c *NextCell[T]) ApplyTick() {
	if c.next.set {
		c.current = c.next.value
	}
	c.next = pending[T]{}
}

// Clear resets the staging area without touching Current.
func (c *NextCell[T]) Clear() {
	c.next = pending[T]{}
}
