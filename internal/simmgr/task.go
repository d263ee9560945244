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

package simmgr

import (
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/probeum/rv64pipe/internal/logbus"
	"github.com/probeum/rv64pipe/internal/project/modulelib"
	"github.com/probeum/rv64pipe/internal/rvconfig"
	"github.com/probeum/rv64pipe/internal/rvlog"
)

// Task runs one generate/compile/simulate pipeline for a single project
// snapshot. It holds the project and config as they stood at Start: edits
// made through the operation engine after that point are not reflected in
// this run, the same way a build only ever reflects the sources it was
// given at invocation time.
type Task struct {
	RunID string
	Opts  Options

	proj *modulelib.Project
	cfg  rvconfig.ProjectConfig
	bus  *logbus.Bus

	cancelled int32 // atomic bool

	mu    sync.Mutex
	state State

	cmd *exec.Cmd // the running nullsim child, set only during simulation
}

func newTask(runID string, proj *modulelib.Project, cfg rvconfig.ProjectConfig, opts Options, bus *logbus.Bus) *Task {
	return &Task{
		RunID: runID,
		Opts:  opts,
		proj:  proj,
		cfg:   cfg,
		bus:   bus,
		state: State{RunID: runID, Status: StatusRunning},
	}
}

func (t *Task) runDir() string       { return filepath.Join(t.cfg.WorkDir, "runs", t.RunID) }
func (t *Task) generationDir() string { return filepath.Join(t.runDir(), "generation") }
func (t *Task) buildDir() string     { return filepath.Join(t.runDir(), "build") }

// cancelRequested reports whether Cancel has been called for this task.
func (t *Task) cancelRequested() bool { return atomic.LoadInt32(&t.cancelled) != 0 }

// cancel sets the cancellation flag; checked between stages and after each
// child-process wait.
func (t *Task) cancel() { atomic.StoreInt32(&t.cancelled, 1) }

func (t *Task) setStage(s Stage) {
	t.mu.Lock()
	t.state.Stage = s
	t.mu.Unlock()
}

func (t *Task) fail(code, message string) {
	t.mu.Lock()
	t.state.Status = StatusErrored
	t.state.ErrCode = code
	t.state.ErrMessage = message
	t.mu.Unlock()
}

func (t *Task) finish() {
	t.mu.Lock()
	if t.state.Status == StatusRunning {
		t.state.Status = StatusFinished
	}
	t.mu.Unlock()
}

func (t *Task) markCancelled() {
	t.mu.Lock()
	t.state.Status = StatusCancelled
	t.mu.Unlock()
}

// snapshot returns a copy of the task's current state, filling in live
// resource usage and dropped-log count.
func (t *Task) snapshot() State {
	t.mu.Lock()
	s := t.state
	cmd := t.cmd
	t.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		cpuPct, rss := sampleProcess(cmd.Process.Pid)
		s.CPUPercent = cpuPct
		s.RSSBytes = rss
	}
	s.HeapBytes = heapFootprint(t.proj)
	if t.bus != nil {
		s.LogDropped = t.bus.Dropped()
	}
	return s
}

func (t *Task) logInfo(category, msg string) {
	if t.bus != nil {
		t.bus.Push(rvlog.LvlInfo, "["+category+"] "+msg)
	}
}

func (t *Task) logWarn(category, msg string) {
	if t.bus != nil {
		t.bus.Push(rvlog.LvlWarn, "["+category+"] "+msg)
	}
}

// run executes every requested stage in order, stopping early on error or
// cancellation. It is always called on its own goroutine by Manager.Start.
func (t *Task) run() {
	defer t.finish()

	stages := []struct {
		enabled bool
		stage   Stage
		fn      func() error
	}{
		{t.Opts.Generate, StageGeneration, t.runGeneration},
		{t.Opts.Compile, StageCompilation, t.runCompilation},
		{t.Opts.Simulate, StageSimulation, t.runSimulation},
	}

	for _, s := range stages {
		if !s.enabled {
			continue
		}
		if t.cancelRequested() {
			t.markCancelled()
			return
		}
		t.setStage(s.stage)
		t.logInfo(s.stage.String(), "stage started")
		if err := s.fn(); err != nil {
			if t.cancelRequested() {
				t.markCancelled()
				return
			}
			t.fail("StageFailed", err.Error())
			t.logWarn(s.stage.String(), err.Error())
			return
		}
		t.logInfo(s.stage.String(), "stage finished")
	}
}
