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

// Package simmgr runs a project's generate -> compile -> simulate pipeline
// as a single background task, one at a time, with cancellation and
// resource-usage reporting.
package simmgr

import "fmt"

// Stage identifies one of the three pipeline phases.
type Stage int

const (
	StageGeneration Stage = iota
	StageCompilation
	StageSimulation
)

func (s Stage) String() string {
	switch s {
	case StageGeneration:
		return "generation"
	case StageCompilation:
		return "compilation"
	case StageSimulation:
		return "simulation"
	default:
		return "unknown"
	}
}

// Status is a task's overall lifecycle state.
type Status int

const (
	StatusRunning Status = iota
	StatusFinished
	StatusErrored
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusFinished:
		return "finished"
	case StatusErrored:
		return "errored"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Options selects which stages a task runs and how compilation is flagged.
type Options struct {
	Generate bool
	Compile  bool
	Simulate bool
	// Release selects -O3 -DNDEBUG over the default -O2 -g.
	Release bool
}

// BuildMode returns the compiler flag set this task's Release setting picks.
func (o Options) BuildMode() []string {
	if o.Release {
		return []string{"-O3", "-DNDEBUG"}
	}
	return []string{"-O2", "-g"}
}

// State is a snapshot of a task's current progress, returned by
// simulation.state.
type State struct {
	RunID       string
	Stage       Stage
	Status      Status
	ErrCode     string
	ErrMessage  string
	CPUPercent  float64
	RSSBytes    uint64
	HeapBytes   uint64
	LogDropped  uint64
}

// ErrAlreadyRunning is returned by Start when a task is already in flight.
var ErrAlreadyRunning = fmt.Errorf("simmgr: a task is already running")

// ErrNoActiveTask is returned by Cancel/State when nothing has ever run.
var ErrNoActiveTask = fmt.Errorf("simmgr: no active task")
