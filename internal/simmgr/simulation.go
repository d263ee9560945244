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
	"fmt"
	"os/exec"
	"path/filepath"
	"syscall"

	"golang.org/x/sync/errgroup"
)

// runSimulation spawns the run's compiled binary in its own process group
// so Cancel can kill the whole group, streams its stdout/stderr into the
// log bus, and waits for it to exit.
func (t *Task) runSimulation() error {
	buildDir := t.buildDir()
	bin := filepath.Join(buildDir, simBinaryName)

	cmd := exec.Command(bin)
	cmd.Dir = buildDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("simmgr: simulation: start %s: %w", bin, err)
	}

	t.mu.Lock()
	t.cmd = cmd
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		t.cmd = nil
		t.mu.Unlock()
	}()

	var g errgroup.Group
	g.Go(func() error { return streamLines(stdout, func(line string) { t.logInfo("sim", line) }) })
	g.Go(func() error { return streamLines(stderr, func(line string) { t.logWarn("sim", line) }) })
	_ = g.Wait()

	waitErr := cmd.Wait()
	if t.cancelRequested() {
		return errCancelled
	}
	if waitErr != nil {
		return fmt.Errorf("simmgr: simulation: %s: %w", bin, waitErr)
	}
	return nil
}

// killSimulation terminates the running child's whole process group, used
// by Cancel so a simulation that spawned its own children doesn't leave
// orphans behind.
func (t *Task) killSimulation() {
	t.mu.Lock()
	cmd := t.cmd
	t.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return
	}
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		_ = cmd.Process.Kill()
		return
	}
	_ = syscall.Kill(-pgid, syscall.SIGKILL)
}
