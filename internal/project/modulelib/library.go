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

import (
	"fmt"
	"sort"

	"github.com/probeum/rv64pipe/internal/project/expr"
	"github.com/probeum/rv64pipe/internal/project/graph"
)

// Library is the set of all module entries plus the instance reference
// graph (module A references module B whenever A has an instance of B).
type Library struct {
	entries map[string]*Entry
	g       *graph.Graph
}

// New returns an empty module library.
func New() *Library {
	return &Library{entries: make(map[string]*Entry), g: graph.New()}
}

// Get returns the named module entry, or nil.
func (l *Library) Get(name string) *Entry {
	return l.entries[name]
}

// Has reports whether name is a defined module.
func (l *Library) Has(name string) bool {
	_, ok := l.entries[name]
	return ok
}

// List returns every module name in sorted order.
func (l *Library) List() []string {
	names := make([]string, 0, len(l.entries))
	for n := range l.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// AddLocal registers a new local module. It fails on a name collision or if
// any existing instance inside it, were the instance graph walked, would
// close a cycle (checked again more precisely whenever an instance is
// added via AddInstance).
func (l *Library) AddLocal(m *Module) error {
	if !expr.ValidIdent(m.Name) {
		return fmt.Errorf("modulelib: invalid identifier %q", m.Name)
	}
	if l.Has(m.Name) {
		return fmt.Errorf("modulelib: module %q already exists", m.Name)
	}
	l.entries[m.Name] = &Entry{Local: m}
	l.g.AddNode(m.Name)
	l.syncInstanceEdges(m.Name)
	if cyc := l.g.FindCycle(); cyc != nil {
		delete(l.entries, m.Name)
		l.g.RemoveNode(m.Name)
		return fmt.Errorf("modulelib: adding %q would cycle the module graph at %q", m.Name, cyc[0])
	}
	return nil
}

// AddExternal registers an imported, read-only module.
func (l *Library) AddExternal(m *ExternalModule) error {
	if !expr.ValidIdent(m.Name) {
		return fmt.Errorf("modulelib: invalid identifier %q", m.Name)
	}
	if l.Has(m.Name) {
		return fmt.Errorf("modulelib: module %q already exists", m.Name)
	}
	l.entries[m.Name] = &Entry{External: m}
	l.g.AddNode(m.Name)
	return nil
}

// Remove deletes a module. It fails if any other module still instantiates
// it.
func (l *Library) Remove(name string) error {
	if !l.Has(name) {
		return fmt.Errorf("modulelib: module %q not found", name)
	}
	if l.g.HasReferrers(name) {
		return fmt.Errorf("modulelib: module %q is still instantiated elsewhere", name)
	}
	delete(l.entries, name)
	l.g.RemoveNode(name)
	return nil
}

// Rename moves a module to a new name, cascading into every referrer's
// instance ModuleName fields.
func (l *Library) Rename(oldName, newName string) error {
	e, ok := l.entries[oldName]
	if !ok {
		return fmt.Errorf("modulelib: module %q not found", oldName)
	}
	if !expr.ValidIdent(newName) {
		return fmt.Errorf("modulelib: invalid identifier %q", newName)
	}
	if l.Has(newName) {
		return fmt.Errorf("modulelib: module %q already exists", newName)
	}
	referrers := l.g.Reverse(oldName)
	if e.Local != nil {
		e.Local.Name = newName
	} else {
		e.External.Name = newName
	}
	delete(l.entries, oldName)
	l.entries[newName] = e
	l.g.RenameNode(oldName, newName)

	for _, r := range referrers {
		re := l.entries[r]
		if re.Local == nil {
			continue
		}
		for _, inst := range re.Local.Instances {
			if inst.ModuleName == oldName {
				inst.ModuleName = newName
			}
		}
	}
	return nil
}

// syncInstanceEdges recomputes name's forward edges (the set of distinct
// module names it instantiates) from its current instance table.
func (l *Library) syncInstanceEdges(name string) {
	e := l.entries[name]
	if e == nil || e.Local == nil {
		return
	}
	seen := map[string]bool{}
	var refs []string
	for _, inst := range e.Local.Instances {
		if !seen[inst.ModuleName] {
			seen[inst.ModuleName] = true
			refs = append(refs, inst.ModuleName)
		}
	}
	l.g.SetForward(name, refs)
}

// AddInstance adds a child instance to a local module, refusing if it
// would close a cycle in the module instance graph.
func (l *Library) AddInstance(moduleName string, inst *Instance) error {
	e := l.entries[moduleName]
	if e == nil || e.Local == nil {
		return fmt.Errorf("modulelib: %q is not a local module", moduleName)
	}
	if !l.Has(inst.ModuleName) {
		return fmt.Errorf("modulelib: unknown module %q", inst.ModuleName)
	}
	if _, exists := e.Local.Instances[inst.Name]; exists {
		return fmt.Errorf("modulelib: instance %q already exists", inst.Name)
	}
	if l.g.WouldCycle(moduleName, inst.ModuleName) {
		return fmt.Errorf("modulelib: instantiating %q in %q would cycle the module graph", inst.ModuleName, moduleName)
	}
	e.Local.Instances[inst.Name] = inst
	l.syncInstanceEdges(moduleName)
	return nil
}

// RemoveInstance drops a child instance, along with any connection or
// sequence constraint mentioning it.
func (l *Library) RemoveInstance(moduleName, instName string) error {
	e := l.entries[moduleName]
	if e == nil || e.Local == nil {
		return fmt.Errorf("modulelib: %q is not a local module", moduleName)
	}
	if _, ok := e.Local.Instances[instName]; !ok {
		return fmt.Errorf("modulelib: instance %q not found", instName)
	}
	delete(e.Local.Instances, instName)

	m := e.Local
	filteredReq := m.RequestConns[:0]
	for _, c := range m.RequestConns {
		if c.SrcInstance != instName && c.DstInstance != instName {
			filteredReq = append(filteredReq, c)
		}
	}
	m.RequestConns = filteredReq

	filteredPipe := m.PipeConns[:0]
	for _, c := range m.PipeConns {
		if c.SrcInstance != instName && c.DstInstance != instName {
			filteredPipe = append(filteredPipe, c)
		}
	}
	m.PipeConns = filteredPipe

	filteredSeq := m.SeqConstrs[:0]
	for _, s := range m.SeqConstrs {
		if s.Former != instName && s.Latter != instName {
			filteredSeq = append(filteredSeq, s)
		}
	}
	m.SeqConstrs = filteredSeq

	l.syncInstanceEdges(moduleName)
	return nil
}

// TransitiveModules returns topName plus every module transitively reached
// through its instances, each name appearing once, in a BFS visiting order.
func (l *Library) TransitiveModules(topName string) ([]string, error) {
	if !l.Has(topName) {
		return nil, fmt.Errorf("modulelib: module %q not found", topName)
	}
	seen := map[string]bool{topName: true}
	order := []string{topName}
	queue := []string{topName}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		e := l.entries[name]
		if e == nil || e.Local == nil {
			continue
		}
		for _, inst := range e.Local.Instances {
			if !seen[inst.ModuleName] {
				seen[inst.ModuleName] = true
				order = append(order, inst.ModuleName)
				queue = append(queue, inst.ModuleName)
			}
		}
	}
	return order, nil
}

// resolveRequestPort looks up a request or service port on an instance (or on
// TopInstance using the opposite table, a request-connection's
// dst exposes the named service port "or __top__ exposes that request").
func (l *Library) resolveRequestPort(moduleName, instanceName, portName string) (Signature, bool, error) {
	if instanceName == TopInstance {
		e := l.entries[moduleName]
		p, ok := e.servicePort(portName)
		if !ok {
			return Signature{}, false, fmt.Errorf("modulelib: unknown __top__ service port %q", portName)
		}
		return p.Sig, p.MultiConnect, nil
	}
	e := l.entries[moduleName]
	inst, ok := e.Local.Instances[instanceName]
	if !ok {
		return Signature{}, false, fmt.Errorf("modulelib: unknown instance %q", instanceName)
	}
	target := l.entries[inst.ModuleName]
	p, ok := target.requestPort(portName)
	if !ok {
		return Signature{}, false, fmt.Errorf("modulelib: unknown request port %q on %q", portName, inst.ModuleName)
	}
	return p.Sig, p.MultiConnect, nil
}

func (l *Library) resolveServicePort(moduleName, instanceName, portName string) (Signature, bool, error) {
	if instanceName == TopInstance {
		e := l.entries[moduleName]
		p, ok := e.requestPort(portName)
		if !ok {
			return Signature{}, false, fmt.Errorf("modulelib: unknown __top__ request port %q", portName)
		}
		return p.Sig, false, nil
	}
	e := l.entries[moduleName]
	inst, ok := e.Local.Instances[instanceName]
	if !ok {
		return Signature{}, false, fmt.Errorf("modulelib: unknown instance %q", instanceName)
	}
	target := l.entries[inst.ModuleName]
	p, ok := target.servicePort(portName)
	if !ok {
		return Signature{}, false, fmt.Errorf("modulelib: unknown service port %q on %q", portName, inst.ModuleName)
	}
	return p.Sig, false, nil
}

// ErrSignatureMismatch is returned by Connect when the two ports' typed
// arg/ret lists or handshake flags differ.
var ErrSignatureMismatch = fmt.Errorf("modulelib: port signatures do not match")

// Connect validates and records a request connection inside moduleName. It
// enforces: both ports exist, their signatures match exactly, and the
// source request port isn't already single-connected.
func (l *Library) Connect(moduleName string, c RequestConnection) error {
	e := l.entries[moduleName]
	if e == nil || e.Local == nil {
		return fmt.Errorf("modulelib: %q is not a local module", moduleName)
	}
	srcSig, multi, err := l.resolveRequestPort(moduleName, c.SrcInstance, c.SrcPort)
	if err != nil {
		return err
	}
	dstSig, _, err := l.resolveServicePort(moduleName, c.DstInstance, c.DstPort)
	if err != nil {
		return err
	}
	if !srcSig.Equal(dstSig) {
		return ErrSignatureMismatch
	}
	if !multi {
		for _, ex := range e.Local.RequestConns {
			if ex.SrcInstance == c.SrcInstance && ex.SrcPort == c.SrcPort {
				return fmt.Errorf("modulelib: request port %s.%s is already connected", c.SrcInstance, c.SrcPort)
			}
		}
	}
	e.Local.RequestConns = append(e.Local.RequestConns, c)
	return nil
}

// Disconnect removes a previously-recorded request connection.
func (l *Library) Disconnect(moduleName string, c RequestConnection) error {
	e := l.entries[moduleName]
	if e == nil || e.Local == nil {
		return fmt.Errorf("modulelib: %q is not a local module", moduleName)
	}
	m := e.Local
	for i, ex := range m.RequestConns {
		if ex == c {
			m.RequestConns = append(m.RequestConns[:i], m.RequestConns[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("modulelib: connection not found")
}

// PipeConnect validates and records a pipe connection: port types must
// match, and when either side is TopInstance the direction of the two
// ports must agree.
func (l *Library) PipeConnect(moduleName string, c PipeConnection) error {
	e := l.entries[moduleName]
	if e == nil || e.Local == nil {
		return fmt.Errorf("modulelib: %q is not a local module", moduleName)
	}
	srcType, srcDir, err := l.resolvePipeOut(moduleName, c.SrcInstance, c.SrcPort)
	if err != nil {
		return err
	}
	dstType, dstDir, err := l.resolvePipeIn(moduleName, c.DstInstance, c.DstPort)
	if err != nil {
		return err
	}
	if srcType != dstType {
		return fmt.Errorf("modulelib: pipe type mismatch: %s vs %s", srcType, dstType)
	}
	if c.SrcInstance == TopInstance && srcDir != PipeIn {
		return fmt.Errorf("modulelib: __top__ pipe %q must be an input port to serve as a connection source", c.SrcPort)
	}
	if c.DstInstance == TopInstance && dstDir != PipeOut {
		return fmt.Errorf("modulelib: __top__ pipe %q must be an output port to serve as a connection destination", c.DstPort)
	}
	e.Local.PipeConns = append(e.Local.PipeConns, c)
	return nil
}

func (l *Library) resolvePipeOut(moduleName, instanceName, portName string) (string, PipeDirection, error) {
	e := l.entries[moduleName]
	if instanceName == TopInstance {
		p, ok := e.pipeInPort(portName)
		if !ok {
			return "", 0, fmt.Errorf("modulelib: unknown __top__ pipe port %q", portName)
		}
		return p.TypeRef, p.Dir, nil
	}
	inst, ok := e.Local.Instances[instanceName]
	if !ok {
		return "", 0, fmt.Errorf("modulelib: unknown instance %q", instanceName)
	}
	target := l.entries[inst.ModuleName]
	p, ok := target.pipeOutPort(portName)
	if !ok {
		return "", 0, fmt.Errorf("modulelib: unknown output pipe port %q on %q", portName, inst.ModuleName)
	}
	return p.TypeRef, p.Dir, nil
}

func (l *Library) resolvePipeIn(moduleName, instanceName, portName string) (string, PipeDirection, error) {
	e := l.entries[moduleName]
	if instanceName == TopInstance {
		p, ok := e.pipeOutPort(portName)
		if !ok {
			return "", 0, fmt.Errorf("modulelib: unknown __top__ pipe port %q", portName)
		}
		return p.TypeRef, p.Dir, nil
	}
	inst, ok := e.Local.Instances[instanceName]
	if !ok {
		return "", 0, fmt.Errorf("modulelib: unknown instance %q", instanceName)
	}
	target := l.entries[inst.ModuleName]
	p, ok := target.pipeInPort(portName)
	if !ok {
		return "", 0, fmt.Errorf("modulelib: unknown input pipe port %q on %q", portName, inst.ModuleName)
	}
	return p.TypeRef, p.Dir, nil
}

// PipeDisconnect removes a previously-recorded pipe connection.
func (l *Library) PipeDisconnect(moduleName string, c PipeConnection) error {
	e := l.entries[moduleName]
	if e == nil || e.Local == nil {
		return fmt.Errorf("modulelib: %q is not a local module", moduleName)
	}
	m := e.Local
	for i, ex := range m.PipeConns {
		if ex == c {
			m.PipeConns = append(m.PipeConns[:i], m.PipeConns[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("modulelib: pipe connection not found")
}

// AddSequenceConstraint forces former to update before latter, refusing if
// doing so would cycle the existing constraint set.
func (l *Library) AddSequenceConstraint(moduleName string, sc SequenceConstraint) error {
	e := l.entries[moduleName]
	if e == nil || e.Local == nil {
		return fmt.Errorf("modulelib: %q is not a local module", moduleName)
	}
	m := e.Local
	if _, ok := m.Instances[sc.Former]; !ok && sc.Former != TopInstance {
		return fmt.Errorf("modulelib: unknown instance %q", sc.Former)
	}
	if _, ok := m.Instances[sc.Latter]; !ok && sc.Latter != TopInstance {
		return fmt.Errorf("modulelib: unknown instance %q", sc.Latter)
	}
	cg := graph.New()
	names := make([]string, 0, len(m.Instances))
	for n := range m.Instances {
		names = append(names, n)
		cg.AddNode(n)
	}
	for _, s := range m.SeqConstrs {
		cg.SetForward(s.Former, append(cg.Forward(s.Former), s.Latter))
	}
	cg.SetForward(sc.Former, append(cg.Forward(sc.Former), sc.Latter))
	if _, err := graph.TopoSort(cg, names); err != nil {
		return fmt.Errorf("modulelib: sequence constraint %s->%s would cycle: %w", sc.Former, sc.Latter, err)
	}
	m.SeqConstrs = append(m.SeqConstrs, sc)
	return nil
}

// InstanceOrder returns a topological order of moduleName's instances
// satisfying every recorded sequence constraint, the order stage tick()
// calls are dispatched in.
func (l *Library) InstanceOrder(moduleName string) ([]string, error) {
	e := l.entries[moduleName]
	if e == nil || e.Local == nil {
		return nil, fmt.Errorf("modulelib: %q is not a local module", moduleName)
	}
	cg := graph.New()
	names := make([]string, 0, len(e.Local.Instances))
	for n := range e.Local.Instances {
		names = append(names, n)
		cg.AddNode(n)
	}
	for _, s := range e.Local.SeqConstrs {
		cg.SetForward(s.Latter, append(cg.Forward(s.Latter), s.Former))
	}
	return graph.TopoSort(cg, names)
}
