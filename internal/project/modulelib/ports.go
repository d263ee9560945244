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

	"github.com/probeum/rv64pipe/internal/project/expr"
)

func (l *Library) localEntry(moduleName string) (*Module, error) {
	e := l.entries[moduleName]
	if e == nil {
		return nil, fmt.Errorf("modulelib: module %q not found", moduleName)
	}
	if e.Local == nil {
		return nil, fmt.Errorf("modulelib: %q is external, cannot be edited", moduleName)
	}
	return e.Local, nil
}

func requestTable(m *Module, isService bool) map[string]*RequestPort {
	if isService {
		return m.Services
	}
	return m.Requests
}

// AddRequestPort declares a new request port (isService selects whether it's
// a port this module implements, as opposed to one it calls out on).
func (l *Library) AddRequestPort(moduleName string, port RequestPort, isService bool) error {
	m, err := l.localEntry(moduleName)
	if err != nil {
		return err
	}
	if !expr.ValidIdent(port.Name) {
		return fmt.Errorf("modulelib: invalid identifier %q", port.Name)
	}
	tbl := requestTable(m, isService)
	if _, exists := tbl[port.Name]; exists {
		return fmt.Errorf("modulelib: port %q already exists", port.Name)
	}
	p := port
	tbl[port.Name] = &p
	return nil
}

// UpdateRequestPort replaces an existing port's signature in place.
func (l *Library) UpdateRequestPort(moduleName, name string, sig Signature, multiConnect bool, isService bool) error {
	m, err := l.localEntry(moduleName)
	if err != nil {
		return err
	}
	tbl := requestTable(m, isService)
	p, ok := tbl[name]
	if !ok {
		return fmt.Errorf("modulelib: port %q not found", name)
	}
	p.Sig = sig
	p.MultiConnect = multiConnect
	return nil
}

// RemoveRequestPort deletes a port, refusing if any recorded connection still
// mentions it.
func (l *Library) RemoveRequestPort(moduleName, name string, isService bool) error {
	m, err := l.localEntry(moduleName)
	if err != nil {
		return err
	}
	tbl := requestTable(m, isService)
	if _, ok := tbl[name]; !ok {
		return fmt.Errorf("modulelib: port %q not found", name)
	}
	for _, c := range m.RequestConns {
		if (isService && c.DstInstance == TopInstance && c.DstPort == name) ||
			(!isService && c.SrcInstance == TopInstance && c.SrcPort == name) {
			return fmt.Errorf("modulelib: port %q is still connected", name)
		}
	}
	delete(tbl, name)
	return nil
}

// RenameRequestPort renames a port, cascading into any __top__ connection
// that names it.
func (l *Library) RenameRequestPort(moduleName, oldName, newName string, isService bool) error {
	m, err := l.localEntry(moduleName)
	if err != nil {
		return err
	}
	if !expr.ValidIdent(newName) {
		return fmt.Errorf("modulelib: invalid identifier %q", newName)
	}
	tbl := requestTable(m, isService)
	p, ok := tbl[oldName]
	if !ok {
		return fmt.Errorf("modulelib: port %q not found", oldName)
	}
	if _, exists := tbl[newName]; exists {
		return fmt.Errorf("modulelib: port %q already exists", newName)
	}
	p.Name = newName
	delete(tbl, oldName)
	tbl[newName] = p
	for i, c := range m.RequestConns {
		if isService && c.DstInstance == TopInstance && c.DstPort == oldName {
			m.RequestConns[i].DstPort = newName
		}
		if !isService && c.SrcInstance == TopInstance && c.SrcPort == oldName {
			m.RequestConns[i].SrcPort = newName
		}
	}
	return nil
}

// GetRequestPort returns the named port, or nil if it doesn't exist.
func (l *Library) GetRequestPort(moduleName, name string, isService bool) (*RequestPort, error) {
	m, err := l.localEntry(moduleName)
	if err != nil {
		return nil, err
	}
	return requestTable(m, isService)[name], nil
}

func pipeTable(m *Module, dir PipeDirection) map[string]*PipePort {
	if dir == PipeIn {
		return m.PipeIn
	}
	return m.PipeOut
}

// AddPipePort declares a new external pipe port.
func (l *Library) AddPipePort(moduleName string, port PipePort) error {
	m, err := l.localEntry(moduleName)
	if err != nil {
		return err
	}
	if !expr.ValidIdent(port.Name) {
		return fmt.Errorf("modulelib: invalid identifier %q", port.Name)
	}
	tbl := pipeTable(m, port.Dir)
	if _, exists := tbl[port.Name]; exists {
		return fmt.Errorf("modulelib: pipe port %q already exists", port.Name)
	}
	p := port
	tbl[port.Name] = &p
	return nil
}

// UpdatePipePort replaces an existing pipe port's type reference.
func (l *Library) UpdatePipePort(moduleName, name string, dir PipeDirection, typeRef string) error {
	m, err := l.localEntry(moduleName)
	if err != nil {
		return err
	}
	p, ok := pipeTable(m, dir)[name]
	if !ok {
		return fmt.Errorf("modulelib: pipe port %q not found", name)
	}
	p.TypeRef = typeRef
	return nil
}

// RemovePipePort deletes a pipe port, refusing if a pipe connection still
// references it via __top__.
func (l *Library) RemovePipePort(moduleName, name string, dir PipeDirection) error {
	m, err := l.localEntry(moduleName)
	if err != nil {
		return err
	}
	tbl := pipeTable(m, dir)
	if _, ok := tbl[name]; !ok {
		return fmt.Errorf("modulelib: pipe port %q not found", name)
	}
	for _, c := range m.PipeConns {
		if (dir == PipeIn && c.SrcInstance == TopInstance && c.SrcPort == name) ||
			(dir == PipeOut && c.DstInstance == TopInstance && c.DstPort == name) {
			return fmt.Errorf("modulelib: pipe port %q is still connected", name)
		}
	}
	delete(tbl, name)
	return nil
}

// RenamePipePort renames a pipe port, cascading into any __top__ pipe
// connection that names it.
func (l *Library) RenamePipePort(moduleName, oldName, newName string, dir PipeDirection) error {
	m, err := l.localEntry(moduleName)
	if err != nil {
		return err
	}
	if !expr.ValidIdent(newName) {
		return fmt.Errorf("modulelib: invalid identifier %q", newName)
	}
	tbl := pipeTable(m, dir)
	p, ok := tbl[oldName]
	if !ok {
		return fmt.Errorf("modulelib: pipe port %q not found", oldName)
	}
	if _, exists := tbl[newName]; exists {
		return fmt.Errorf("modulelib: pipe port %q already exists", newName)
	}
	p.Name = newName
	delete(tbl, oldName)
	tbl[newName] = p
	for i, c := range m.PipeConns {
		if dir == PipeIn && c.SrcInstance == TopInstance && c.SrcPort == oldName {
			m.PipeConns[i].SrcPort = newName
		}
		if dir == PipeOut && c.DstInstance == TopInstance && c.DstPort == oldName {
			m.PipeConns[i].DstPort = newName
		}
	}
	return nil
}

// GetPipePort returns the named pipe port, or nil if it doesn't exist.
func (l *Library) GetPipePort(moduleName, name string, dir PipeDirection) (*PipePort, error) {
	m, err := l.localEntry(moduleName)
	if err != nil {
		return nil, err
	}
	return pipeTable(m, dir)[name], nil
}

// SetStorage creates or replaces a storage cell declaration.
func (l *Library) SetStorage(moduleName string, s Storage) error {
	m, err := l.localEntry(moduleName)
	if err != nil {
		return err
	}
	if !expr.ValidIdent(s.Name) {
		return fmt.Errorf("modulelib: invalid identifier %q", s.Name)
	}
	cp := s
	m.Storages[s.Name] = &cp
	return nil
}

// GetStorage returns the named storage cell, or nil if it doesn't exist.
func (l *Library) GetStorage(moduleName, name string) (*Storage, error) {
	m, err := l.localEntry(moduleName)
	if err != nil {
		return nil, err
	}
	return m.Storages[name], nil
}

// RemoveStorage deletes a storage cell declaration.
func (l *Library) RemoveStorage(moduleName, name string) error {
	m, err := l.localEntry(moduleName)
	if err != nil {
		return err
	}
	if _, ok := m.Storages[name]; !ok {
		return fmt.Errorf("modulelib: storage %q not found", name)
	}
	delete(m.Storages, name)
	return nil
}

// SetLocalConfig creates or re-evaluates a module-scoped configuration item.
// resolve is handed the expression evaluator so a local config may reference
// both other local configs and project-level configs, composed by the
// caller.
func (l *Library) SetLocalConfig(moduleName, name, expression string, resolve expr.Resolver) error {
	m, err := l.localEntry(moduleName)
	if err != nil {
		return err
	}
	if !expr.ValidIdent(name) {
		return fmt.Errorf("modulelib: invalid identifier %q", name)
	}
	res, err := expr.Eval(expression, name, resolve)
	if err != nil {
		return fmt.Errorf("modulelib: %w", err)
	}
	m.LocalConfigs[name] = &LocalConfig{Name: name, Expr: expression, Value: res.Value}
	return nil
}

// GetLocalConfig returns the named local config, or nil if it doesn't exist.
func (l *Library) GetLocalConfig(moduleName, name string) (*LocalConfig, error) {
	m, err := l.localEntry(moduleName)
	if err != nil {
		return nil, err
	}
	return m.LocalConfigs[name], nil
}

// SetCodeBlock replaces the body for a service port, request handler, or the
// "__tick__" sentinel per-tick block.
func (l *Library) SetCodeBlock(moduleName, key, code string) error {
	m, err := l.localEntry(moduleName)
	if err != nil {
		return err
	}
	m.CodeBlocks[key] = code
	return nil
}

// GetCodeBlock returns a code block's body and whether it's set.
func (l *Library) GetCodeBlock(moduleName, key string) (string, bool, error) {
	m, err := l.localEntry(moduleName)
	if err != nil {
		return "", false, err
	}
	code, ok := m.CodeBlocks[key]
	return code, ok, nil
}

// LocalBundleRef returns the bundle library name a module-local bundle
// declaration is stored under (module-qualified, since a local bundle's
// full definition lives in the project's shared bundlelib.Library).
func (l *Library) LocalBundleRef(moduleName, bundleName string) (string, error) {
	m, err := l.localEntry(moduleName)
	if err != nil {
		return "", err
	}
	if _, ok := m.LocalBundles[bundleName]; !ok {
		return "", fmt.Errorf("modulelib: local bundle %q not found on %q", bundleName, moduleName)
	}
	return moduleName + "." + bundleName, nil
}

// RemoveSequenceConstraint deletes a previously recorded ordering constraint.
func (l *Library) RemoveSequenceConstraint(moduleName string, sc SequenceConstraint) error {
	m, err := l.localEntry(moduleName)
	if err != nil {
		return err
	}
	for i, s := range m.SeqConstrs {
		if s == sc {
			m.SeqConstrs = append(m.SeqConstrs[:i], m.SeqConstrs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("modulelib: sequence constraint %s->%s not found", sc.Former, sc.Latter)
}
