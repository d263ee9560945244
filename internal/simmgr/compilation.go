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
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

const simBinaryName = "nullsim"

// runCompilation invokes the configured compiler once per generated .cpp
// file, then links the resulting objects into the run's simulation binary.
// Every compiler invocation's stdout/stderr is streamed into the log bus as
// it happens rather than captured and replayed at the end.
func (t *Task) runCompilation() error {
	genDir := t.generationDir()
	buildDir := t.buildDir()
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return t.buildFail(buildDir, "MkdirFailed", err)
	}

	compiler := t.cfg.CompilerPath
	if compiler == "" {
		compiler = "c++"
	}

	sources, err := filepath.Glob(filepath.Join(genDir, "*.cpp"))
	if err != nil || len(sources) == 0 {
		return t.buildFail(buildDir, "NoSources", fmt.Errorf("no generated .cpp sources in %s", genDir))
	}

	var objects []string
	for _, src := range sources {
		if t.cancelRequested() {
			return errCancelled
		}
		obj := filepath.Join(buildDir, filepath.Base(src)+".o")
		args := append(append([]string{}, t.Opts.BuildMode()...), "-std=c++17", "-I", genDir, "-c", src, "-o", obj)
		if err := t.runToolchain(compiler, args); err != nil {
			return t.buildFail(buildDir, "CompileFailed", err)
		}
		objects = append(objects, obj)
	}

	bin := filepath.Join(buildDir, simBinaryName)
	linkArgs := append(append([]string{}, objects...), "-o", bin)
	if err := t.runToolchain(compiler, linkArgs); err != nil {
		return t.buildFail(buildDir, "LinkFailed", err)
	}

	return touchFinished(buildDir)
}

func (t *Task) buildFail(dir, code string, cause error) error {
	_ = touchError(dir, code, cause.Error())
	return fmt.Errorf("simmgr: compilation: %s: %w", code, cause)
}

// runToolchain runs name with args, streaming each output stream's lines
// into the task's log bus as they're produced.
func (t *Task) runToolchain(name string, args []string) error {
	cmd := exec.Command(name, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("simmgr: start %s: %w", name, err)
	}

	var g errgroup.Group
	g.Go(func() error { return streamLines(stdout, func(line string) { t.logInfo("compile", line) }) })
	g.Go(func() error { return streamLines(stderr, func(line string) { t.logWarn("compile", line) }) })
	_ = g.Wait()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("simmgr: %s %v: %w", name, args, err)
	}
	return nil
}

func streamLines(r interface{ Read([]byte) (int, error) }, push func(string)) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		push(sc.Text())
	}
	return sc.Err()
}

var errCancelled = errors.New("simmgr: task cancelled")
