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

// Package modulelib holds Module/ExternalModule definitions: child
// instances, request/service ports, pipe ports, storages, connections,
// sequence constraints and code blocks.
package modulelib

// TopInstance is the sentinel instance name referring to the enclosing
// module's own external port set when it appears in a connection.
const TopInstance = "__top__"

// StorageKind distinguishes the three storage flavours a module may carry.
type StorageKind int

const (
	StorageCommitted StorageKind = iota
	StorageNextCell
	StorageScratch
)

// PipeDirection is the direction of a module's own external pipe port.
type PipeDirection int

const (
	PipeIn PipeDirection = iota
	PipeOut
)

// Signature is a request/service port's typed arg/ret list plus an optional
// handshake flag; two ports may connect only when their signatures match.
type Signature struct {
	Args      []string // bundle or primitive type names, in order
	Rets      []string
	Handshake bool
}

// Equal reports whether s and o describe the same port signature.
func (s Signature) Equal(o Signature) bool {
	if s.Handshake != o.Handshake || len(s.Args) != len(o.Args) || len(s.Rets) != len(o.Rets) {
		return false
	}
	for i := range s.Args {
		if s.Args[i] != o.Args[i] {
			return false
		}
	}
	for i := range s.Rets {
		if s.Rets[i] != o.Rets[i] {
			return false
		}
	}
	return true
}

// RequestPort is a request or service port declaration.
type RequestPort struct {
	Name string
	Sig  Signature
	// MultiConnect is true when a request port may participate in more
	// than one connection at once; by default a source port may drive
	// only a single destination.
	MultiConnect bool
}

// PipePort is a module's own external pipe port declaration.
type PipePort struct {
	Name    string
	TypeRef string // bundle name or primitive type
	Dir     PipeDirection
}

// Instance is a named occurrence of another module inside this one.
type Instance struct {
	Name       string
	ModuleName string
	// ConfigOverrides maps a local-config name on the instantiated module
	// to an override expression evaluated in this module's scope.
	ConfigOverrides map[string]string
}

// Storage is one of a module's internal storage cells.
type Storage struct {
	Name    string
	TypeRef string
	Kind    StorageKind
}

// RequestConnection wires a src instance's request port to a dst instance's
// service port (either side may be TopInstance).
type RequestConnection struct {
	SrcInstance, SrcPort string
	DstInstance, DstPort string
}

// PipeConnection wires a src instance's output pipe port to a dst
// instance's input pipe port (either side may be TopInstance).
type PipeConnection struct {
	SrcInstance, SrcPort string
	DstInstance, DstPort string
}

// SequenceConstraint forces former to update before latter among otherwise
// unordered instances.
type SequenceConstraint struct {
	Former, Latter string
}

// LocalConfig is a module-scoped configuration item, evaluated the same way
// as a project-level config but visible only within this module.
type LocalConfig struct {
	Name  string
	Expr  string
	Value int64
}
