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

// Package wire implements the TCP command-socket and log-socket framing
// shared by every client of a running simulation: a 4-byte magic, a 4-byte
// big-endian payload length, then a JSON payload.
package wire

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Magic is the fixed 32-bit value that opens every frame on both the
// command socket and the log socket.
const Magic uint32 = 0x37549260

// MaxPayload bounds a single frame's JSON payload, guarding a malformed or
// hostile peer from requesting an unbounded allocation.
const MaxPayload = 16 << 20

var (
	// ErrBadMagic is returned when a frame's magic field doesn't match Magic.
	ErrBadMagic = errors.New("wire: bad frame magic")
	// ErrPayloadTooLarge is returned when a frame declares a payload larger
	// than MaxPayload.
	ErrPayloadTooLarge = errors.New("wire: payload exceeds maximum frame size")
)

// WriteFrame writes one magic/length/JSON-payload frame for v to w.
func WriteFrame(w io.Writer, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("wire: marshal payload: %w", err)
	}
	if len(payload) > MaxPayload {
		return ErrPayloadTooLarge
	}
	var header [8]byte
	binary.BigEndian.PutUint32(header[0:4], Magic)
	binary.BigEndian.PutUint32(header[4:8], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("wire: write header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("wire: write payload: %w", err)
	}
	return nil
}

// ReadFrame reads one frame from r and unmarshals its JSON payload into v.
func ReadFrame(r io.Reader, v interface{}) error {
	payload, err := ReadFrameRaw(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("wire: unmarshal payload: %w", err)
	}
	return nil
}

// ReadFrameRaw reads one frame from r and returns its raw JSON payload
// bytes without unmarshaling, for callers that need to inspect a
// discriminator field first.
func ReadFrameRaw(r io.Reader) ([]byte, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("wire: read header: %w", err)
	}
	magic := binary.BigEndian.Uint32(header[0:4])
	if magic != Magic {
		return nil, ErrBadMagic
	}
	length := binary.BigEndian.Uint32(header[4:8])
	if length > MaxPayload {
		return nil, ErrPayloadTooLarge
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("wire: read payload: %w", err)
	}
	return payload, nil
}
