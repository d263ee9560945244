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
	"strconv"

	"github.com/probeum/rv64pipe/internal/simmgr"
)

// simStart kicks off a generate/compile/simulate run against the engine's
// current project, under the project lock so the snapshot it hands to
// simmgr can't be mutated mid-copy by a concurrent operation.
func (e *Engine) simStart(args Args) Response {
	if e.Sim == nil {
		return Fail(CodeGeneric, "ops: simulation manager not configured")
	}

	e.mu.Lock()
	proj := e.Project
	e.mu.Unlock()

	opts := simmgr.Options{
		Generate: args.Bool("generate", true),
		Compile:  args.Bool("compile", true),
		Simulate: args.Bool("simulate", true),
		Release:  args.Bool("release", false),
	}

	runID, err := e.Sim.Start(proj, e.Cfg, opts, e.Bus)
	if err != nil {
		if err == simmgr.ErrAlreadyRunning {
			return Fail(CodeAlreadyRunning, err.Error())
		}
		return Fail(CodeGeneric, err.Error())
	}
	return OK().WithResult("run_id", runID)
}

// simCancel requests cancellation of whatever task is currently running.
func (e *Engine) simCancel() Response {
	if e.Sim == nil {
		return Fail(CodeGeneric, "ops: simulation manager not configured")
	}
	if err := e.Sim.Cancel(); err != nil {
		return Fail(CodeNotFound, err.Error())
	}
	return OK()
}

// simState reports the current (or most recently finished) task's state.
func (e *Engine) simState() Response {
	if e.Sim == nil {
		return Fail(CodeGeneric, "ops: simulation manager not configured")
	}
	st, err := e.Sim.State()
	if err != nil {
		return Fail(CodeNotFound, err.Error())
	}
	return stateResponse(st)
}

// simList reports every retained task's state, oldest first.
func (e *Engine) simList() Response {
	if e.Sim == nil {
		return Fail(CodeGeneric, "ops: simulation manager not configured")
	}
	states := e.Sim.List()
	ids := make([]string, len(states))
	for i, st := range states {
		ids[i] = st.RunID
	}
	return OK().WithList("runs", ids)
}

func stateResponse(st simmgr.State) Response {
	return OK().
		WithResult("run_id", st.RunID).
		WithResult("stage", st.Stage.String()).
		WithResult("status", st.Status.String()).
		WithResult("err_code", st.ErrCode).
		WithResult("err_message", st.ErrMessage).
		WithResult("cpu_percent", fmt.Sprintf("%.2f", st.CPUPercent)).
		WithResult("rss_bytes", strconv.FormatUint(st.RSSBytes, 10)).
		WithResult("heap_bytes", strconv.FormatUint(st.HeapBytes, 10)).
		WithResult("log_dropped", strconv.FormatUint(st.LogDropped, 10))
}
