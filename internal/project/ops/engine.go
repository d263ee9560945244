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

package ops

import (
	"fmt"
	"sync"

	"github.com/probeum/rv64pipe/internal/logbus"
	"github.com/probeum/rv64pipe/internal/project/modulelib"
	"github.com/probeum/rv64pipe/internal/rvconfig"
	"github.com/probeum/rv64pipe/internal/simmgr"
)

// Engine serializes operations against a single project: operations run
// single-threaded, the mutex below serializing them. Its undo/redo stacks
// are the direct generalization of an append/revert entry list to one
// entry per top-level operation instead of one per field mutation.
type Engine struct {
	mu      sync.Mutex
	Project *modulelib.Project

	undo []Operation
	redo []Operation

	// Sim, Cfg and Bus back the simulation.* family, which doesn't fit the
	// plain Operation shape (it needs to spawn a background task and
	// report live resource usage, not just mutate Project), so
	// DoOperation special-cases those names the same way it does
	// undo/redo/history.
	Sim *simmgr.Manager
	Cfg rvconfig.ProjectConfig
	Bus *logbus.Bus
}

// New returns an engine operating on p, with simulation support wired to
// mgr, cfg and bus.
func New(p *modulelib.Project, mgr *simmgr.Manager, cfg rvconfig.ProjectConfig, bus *logbus.Bus) *Engine {
	return &Engine{Project: p, Sim: mgr, Cfg: cfg, Bus: bus}
}

// DoOperation looks up name, builds an Operation from args, executes it,
// and on a zero-code result pushes it onto the undo stack (clearing redo)
// when it's undoable, or clears both stacks when it's modifying but not
// undoable.
func (e *Engine) DoOperation(name string, args Args) Response {
	switch name {
	case "undo":
		return e.UndoLast()
	case "redo":
		return e.RedoLast()
	case "history":
		return OK().WithList("operations", e.History())
	case "simulation.start":
		return e.simStart(args)
	case "simulation.cancel":
		return e.simCancel()
	case "simulation.state":
		return e.simState()
	case "simulation.list":
		return e.simList()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	op, err := Build(name, args)
	if err != nil {
		return Fail(CodeNotFound, err.Error())
	}
	resp := op.Execute(e.Project)
	if resp.Failed() {
		return resp
	}
	if op.Modifying() {
		if op.Undoable() {
			e.undo = append(e.undo, op)
			e.redo = nil
		} else {
			e.undo = nil
			e.redo = nil
		}
	}
	return resp
}

// UndoLast pops the most recent undoable operation, reverts it, and pushes
// it onto the redo stack.
func (e *Engine) UndoLast() Response {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.undo) == 0 {
		return Fail(CodeNothingToUndo, "nothing to undo")
	}
	op := e.undo[len(e.undo)-1]
	e.undo = e.undo[:len(e.undo)-1]
	op.Undo(e.Project)
	e.redo = append(e.redo, op)
	return OK()
}

// RedoLast re-executes the most recently undone operation and pushes it
// back onto the undo stack.
func (e *Engine) RedoLast() Response {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.redo) == 0 {
		return Fail(CodeNothingToRedo, "nothing to redo")
	}
	op := e.redo[len(e.redo)-1]
	e.redo = e.redo[:len(e.redo)-1]
	resp := op.Execute(e.Project)
	if resp.Failed() {
		// Put it back; a redo that fails against current state leaves the
		// redo stack untouched so the caller can inspect and retry.
		e.redo = append(e.redo, op)
		return resp
	}
	e.undo = append(e.undo, op)
	return resp
}

// History returns the names of undoable operations currently on the undo
// stack, oldest first, for the "history" operation.
func (e *Engine) History() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, len(e.undo))
	for i, op := range e.undo {
		names[i] = fmt.Sprintf("%T", op)
	}
	return names
}

// UndoDepth and RedoDepth report stack sizes, used by tests asserting undo
// idempotence.
func (e *Engine) UndoDepth() int { e.mu.Lock(); defer e.mu.Unlock(); return len(e.undo) }
func (e *Engine) RedoDepth() int { e.mu.Lock(); defer e.mu.Unlock(); return len(e.redo) }
