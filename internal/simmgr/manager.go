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
	"sync"

	"github.com/google/uuid"
	"github.com/probeum/rv64pipe/internal/logbus"
	"github.com/probeum/rv64pipe/internal/project/modulelib"
	"github.com/probeum/rv64pipe/internal/rvconfig"
)

// Manager runs at most one generate/compile/simulate task at a time,
// keeping a bounded history of finished ones for later inspection.
type Manager struct {
	mu      sync.Mutex
	current *Task
	history []*Task

	// MaxHistory bounds how many finished tasks State/List keep around; the
	// oldest is dropped once exceeded. Zero means unbounded.
	MaxHistory int
}

// NewManager returns an idle manager.
func NewManager() *Manager {
	return &Manager{MaxHistory: 32}
}

// Start begins a new task against the given project snapshot and config,
// returning its run ID. It fails with ErrAlreadyRunning if a task is still
// in flight.
func (m *Manager) Start(proj *modulelib.Project, cfg rvconfig.ProjectConfig, opts Options, bus *logbus.Bus) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && m.current.snapshot().Status == StatusRunning {
		return "", ErrAlreadyRunning
	}

	runID := uuid.New().String()
	t := newTask(runID, proj, cfg, opts, bus)
	if m.current != nil {
		m.history = append(m.history, m.current)
		if m.MaxHistory > 0 && len(m.history) > m.MaxHistory {
			m.history = m.history[len(m.history)-m.MaxHistory:]
		}
	}
	m.current = t
	go t.run()
	return runID, nil
}

// Cancel requests cancellation of the most recently started task, killing
// its simulation child if one is in flight. It returns ErrNoActiveTask only
// when no task has ever been started; on a task that has already finished
// it changes nothing and returns nil.
func (m *Manager) Cancel() error {
	m.mu.Lock()
	t := m.current
	m.mu.Unlock()
	if t == nil {
		return ErrNoActiveTask
	}
	t.cancel()
	t.killSimulation()
	return nil
}

// State returns the current (or, if none is running, the most recently
// finished) task's state.
func (m *Manager) State() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return m.current.snapshot(), nil
	}
	if len(m.history) > 0 {
		return m.history[len(m.history)-1].snapshot(), nil
	}
	return State{}, ErrNoActiveTask
}

// List returns every retained task's state, oldest first, current last.
func (m *Manager) List() []State {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]State, 0, len(m.history)+1)
	for _, t := range m.history {
		out = append(out, t.snapshot())
	}
	if m.current != nil {
		out = append(out, m.current.snapshot())
	}
	return out
}
