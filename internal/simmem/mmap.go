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

package simmem

import (
	"os"

	"github.com/edsrzf/mmap-go"
)

// mmapRegion backs the simulator's flat byte array with a memory-mapped,
// zero-filled temp file rather than a plain Go slice, so a large simulated
// address space doesn't live entirely resident in the Go heap.
type mmapRegion struct {
	file *os.File
	m    mmap.MMap
}

func newMmapRegion(size uint64) (*mmapRegion, []byte, error) {
	f, err := os.CreateTemp("", "rv64pipe-mem-*")
	if err != nil {
		return nil, nil, err
	}
	// Unlink immediately; the fd keeps the backing store alive for the
	// region's lifetime with no path left behind on exit or crash.
	name := f.Name()
	defer os.Remove(name)

	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, nil, err
	}

	m, err := mmap.MapRegion(f, int(size), mmap.RDWR, 0, 0)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if uint64(len(m)) < size {
		m.Unmap()
		f.Close()
		return nil, nil, errShortMmap
	}
	return &mmapRegion{file: f, m: m}, []byte(m), nil
}

// Close unmaps the region and closes its backing file descriptor.
func (r *mmapRegion) Close() error {
	if err := r.m.Unmap(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}
