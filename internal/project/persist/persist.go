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

// Package persist defines the opaque project-file codec boundary: the
// concrete XML/JSON file format is left to a Codec implementation, not
// fixed here. It also provides the content-hashing used to detect
// out-of-band edits to a project's files.
package persist

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// CurrentMajorVersion is the major version this build writes and the only
// one it accepts on load; a loader rejects a file whose major version
// differs.
const CurrentMajorVersion = 1

// FileKind enumerates which persisted artifact a Codec call concerns.
type FileKind int

const (
	KindManifest FileKind = iota // <project-name>.vul
	KindConfigLib
	KindBundleLib
	KindModule
)

// Codec is the opaque reader/writer boundary for one persisted project.
// Concrete XML/JSON implementations live outside this module; no package
// in this module implements or calls it.
type Codec interface {
	// Read returns the named artifact's raw bytes and Write stores them;
	// checking the major version (CheckVersion) and decoding the bytes into
	// project values are left to the caller.
	Read(kind FileKind, name string) ([]byte, error)
	Write(kind FileKind, name string, data []byte) error
}

// VersionOf extracts the major version recorded in a persisted file's
// leading `<version>` element. Concrete parsing is a Codec's job; this
// helper operates on the small header slice a Codec extracts first, so
// internal/project/ops doesn't need to know the file's encoding to enforce
// the version gate.
func VersionOf(header []byte) (int, error) {
	var major int
	if _, err := fmt.Sscanf(string(header), "%d", &major); err != nil {
		return 0, fmt.Errorf("persist: malformed version header: %w", err)
	}
	return major, nil
}

// CheckVersion rejects a load when the file's major version doesn't match
// CurrentMajorVersion.
func CheckVersion(header []byte) error {
	major, err := VersionOf(header)
	if err != nil {
		return err
	}
	if major != CurrentMajorVersion {
		return fmt.Errorf("persist: unsupported major version %d (expected %d)", major, CurrentMajorVersion)
	}
	return nil
}

// ContentHash returns the hex-encoded SHA3-256 digest of a persisted
// file's bytes, suitable for detecting external edits between project
// loads; no package in this module calls it.
func ContentHash(data []byte) string {
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
