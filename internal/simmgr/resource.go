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
	"github.com/fjl/memsize"
	"github.com/probeum/rv64pipe/internal/project/modulelib"
	"github.com/shirou/gopsutil/process"
)

// sampleProcess reads a running child's instantaneous CPU percentage and
// resident set size. A failure to read (process already exited, permission
// denied) is reported as zero rather than propagated, since resource usage
// is diagnostic only.
func sampleProcess(pid int) (cpuPercent float64, rss uint64) {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return 0, 0
	}
	if pct, err := proc.CPUPercent(); err == nil {
		cpuPercent = pct
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		rss = mem.RSS
	}
	return cpuPercent, rss
}

// heapFootprint reports the in-memory size of the project snapshot a task
// is driving, letting a long-running generation/compilation stage surface
// how much of the simulator's own heap it's holding onto.
func heapFootprint(proj *modulelib.Project) uint64 {
	if proj == nil {
		return 0
	}
	sizes := memsize.Scan(proj)
	return uint64(sizes.Total)
}
