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

package modulelib

// Module is a fully editable, locally-defined module.
type Module struct {
	Name    string
	Comment string

	LocalConfigs map[string]*LocalConfig
	LocalBundles map[string]struct{} // names of bundles declared local to this module (full def lives in BundleLibrary under a module-qualified name, see ops)

	Instances map[string]*Instance
	Storages  map[string]*Storage

	Requests map[string]*RequestPort // ports this module calls out on
	Services map[string]*RequestPort // ports this module implements

	PipeIn  map[string]*PipePort
	PipeOut map[string]*PipePort

	RequestConns []RequestConnection
	PipeConns    []PipeConnection
	SeqConstrs   []SequenceConstraint

	// CodeBlocks maps a service-port name to its implementation body, an
	// outgoing-request handler name to its body, or the sentinel key
	// "__tick__" to the module's free-form per-tick code, each Base64
	// decoded already by the persistence layer.
	CodeBlocks map[string]string
}

// NewModule returns an empty local module definition named name.
func NewModule(name string) *Module {
	return &Module{
		Name:         name,
		LocalConfigs: make(map[string]*LocalConfig),
		LocalBundles: make(map[string]struct{}),
		Instances:    make(map[string]*Instance),
		Storages:     make(map[string]*Storage),
		Requests:     make(map[string]*RequestPort),
		Services:     make(map[string]*RequestPort),
		PipeIn:       make(map[string]*PipePort),
		PipeOut:      make(map[string]*PipePort),
		CodeBlocks:   make(map[string]string),
	}
}

// ExternalModule is a read-only view of a module imported from another
// project: only the public port surface is known, nothing editable.
type ExternalModule struct {
	Name     string
	Requests map[string]*RequestPort
	Services map[string]*RequestPort
	PipeIn   map[string]*PipePort
	PipeOut  map[string]*PipePort
}

// Entry is either a Local or an External module entry. Exactly one of
// Local/External is non-nil: Local for a module defined in this project,
// External for one pulled in from an import.
type Entry struct {
	Local    *Module
	External *ExternalModule
}

// IsExternal reports whether this entry is a read-only imported module.
func (e *Entry) IsExternal() bool { return e.External != nil }

// Name returns the entry's module name regardless of variant.
func (e *Entry) Name() string {
	if e.Local != nil {
		return e.Local.Name
	}
	return e.External.Name
}

func (e *Entry) requestPort(name string) (*RequestPort, bool) {
	if e.Local != nil {
		p, ok := e.Local.Requests[name]
		return p, ok
	}
	p, ok := e.External.Requests[name]
	return p, ok
}

func (e *Entry) servicePort(name string) (*RequestPort, bool) {
	if e.Local != nil {
		p, ok := e.Local.Services[name]
		return p, ok
	}
	p, ok := e.External.Services[name]
	return p, ok
}

func (e *Entry) pipeInPort(name string) (*PipePort, bool) {
	if e.Local != nil {
		p, ok := e.Local.PipeIn[name]
		return p, ok
	}
	p, ok := e.External.PipeIn[name]
	return p, ok
}

func (e *Entry) pipeOutPort(name string) (*PipePort, bool) {
	if e.Local != nil {
		p, ok := e.Local.PipeOut[name]
		return p, ok
	}
	p, ok := e.External.PipeOut[name]
	return p, ok
}
