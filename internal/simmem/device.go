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
	"encoding/binary"
	"fmt"
)

// NullDevice rejects every access; useful when a project has no modules
// wired to the device-memory window.
type NullDevice struct{}

func (NullDevice) Read(addr uint64, size int) (uint64, error) {
	return 0, fmt.Errorf("simmem: no device backend mapped at %#x", addr)
}

func (NullDevice) Write(addr uint64, size int, value uint64) error {
	return fmt.Errorf("simmem: no device backend mapped at %#x", addr)
}

// RAMDevice is a flat-map device backend for modules that just want
// byte-addressable scratch space above DeviceBase (e.g. a simulated MMIO
// peripheral register file in tests).
type RAMDevice struct {
	mem map[uint64][]byte
}

// NewRAMDevice returns an empty device backend; unread addresses read as
// zero.
func NewRAMDevice() *RAMDevice {
	return &RAMDevice{mem: make(map[uint64][]byte)}
}

func (d *RAMDevice) Read(addr uint64, size int) (uint64, error) {
	b, ok := d.mem[addr]
	if !ok || len(b) != size {
		return 0, nil
	}
	var buf [8]byte
	copy(buf[:], b)
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (d *RAMDevice) Write(addr uint64, size int, value uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	b := make([]byte, size)
	copy(b, buf[:size])
	d.mem[addr] = b
	return nil
}
