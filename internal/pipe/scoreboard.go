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

package pipe

// Scoreboard tracks in-flight destination registers across the flat 64-slot
// register space (integer x0-x31 at indices 0-31, fp f0-f31 at 32-63) with a
// single busy bitmask. Lock/unlock requests made during a cycle are staged
// and only take effect at ApplyTick, so every stage observes the same busy
// state regardless of call order within the cycle.
type Scoreboard struct {
	busy   uint64
	lock   uint64
	unlock uint64
}

// NewScoreboard returns an all-clear scoreboard.
func NewScoreboard() *Scoreboard { return &Scoreboard{} }

// IsBusy reports whether idx has an outstanding write in flight. x0 (the
// hardwired integer zero register) is never busy.
func (s *Scoreboard) IsBusy(idx uint32) bool {
	if idx == 0 {
		return false
	}
	return s.busy&(1<<idx) != 0
}

// Lock stages idx to become busy at the next ApplyTick. Locking x0 is a
// no-op since x0 is never observably busy.
func (s *Scoreboard) Lock(idx uint32) {
	if idx == 0 {
		return
	}
	s.lock |= 1 << idx
}

// Unlock stages idx to become free at the next ApplyTick, e.g. when WB
// retires the value that made it busy.
func (s *Scoreboard) Unlock(idx uint32) {
	if idx == 0 {
		return
	}
	s.unlock |= 1 << idx
}

// ApplyTick commits this cycle's staged lock/unlock requests. A register
// both locked and unlocked in the same cycle ends up unlocked, matching a
// same-cycle issue-then-retire ordering.
func (s *Scoreboard) ApplyTick() {
	s.busy = (s.busy | s.lock) &^ s.unlock
	s.lock = 0
	s.unlock = 0
}

// Clear resets all busy and staged state, e.g. on a pipeline flush.
func (s *Scoreboard) Clear() {
	s.busy = 0
	s.lock = 0
	s.unlock = 0
}
