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
	"os"
	"path/filepath"

	"github.com/rjeczalik/notify"
)

// touchFinished creates an empty ".finished" sentinel in dir.
func touchFinished(dir string) error {
	return touchSentinel(dir, ".finished", nil)
}

// touchError creates a ".error" sentinel in dir containing code and message.
func touchError(dir string, code, message string) error {
	return touchSentinel(dir, ".error", []byte(code+": "+message))
}

func touchSentinel(dir, name string, data []byte) error {
	return os.WriteFile(filepath.Join(dir, name), data, 0o644)
}

// WaitSentinel blocks until dir receives a ".finished" or ".error" file,
// using a filesystem watch rather than polling; it returns which one
// appeared. A caller that already knows the stage runs synchronously (the
// normal in-process case) has no need to call this — it exists for an
// external watcher (e.g. a console session) that wants to learn of stage
// completion without repeatedly stat-ing the directory.
func WaitSentinel(dir string) (errored bool, err error) {
	ch := make(chan notify.EventInfo, 4)
	if err := notify.Watch(dir, ch, notify.Create); err != nil {
		return false, fmt.Errorf("simmgr: watch %s: %w", dir, err)
	}
	defer notify.Stop(ch)

	if fi, statErr := os.Stat(filepath.Join(dir, ".error")); statErr == nil && fi != nil {
		return true, nil
	}
	if fi, statErr := os.Stat(filepath.Join(dir, ".finished")); statErr == nil && fi != nil {
		return false, nil
	}

	for ev := range ch {
		base := filepath.Base(ev.Path())
		switch base {
		case ".error":
			return true, nil
		case ".finished":
			return false, nil
		}
	}
	return false, fmt.Errorf("simmgr: watch on %s closed without a sentinel", dir)
}
