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
	"github.com/probeum/rv64pipe/internal/project/bundlelib"
	"github.com/probeum/rv64pipe/internal/project/configlib"
)

// Import is one imported external project reference.
type Import struct {
	Path            string
	ModuleName      string
	ConfigOverrides map[string]string
}

// ModifiedFlags tracks which parts of a project have unsaved changes.
type ModifiedFlags struct {
	Global  bool
	Configs bool
	Bundles bool
	Modules map[string]bool
}

// NewModifiedFlags returns a clear flag set.
func NewModifiedFlags() ModifiedFlags {
	return ModifiedFlags{Modules: make(map[string]bool)}
}

// Project is the full in-memory project state: top module, imports, the
// three libraries and modification tracking. The undo/redo stacks are not
// kept here: they are []Operation slices on ops.Engine, outside this
// package, to avoid an import cycle.
type Project struct {
	Name      string
	TopModule string
	Imports   []Import

	Configs *configlib.Library
	Bundles *bundlelib.Library
	Modules *Library

	Flags ModifiedFlags

	IsOpened bool
}

// NewProject returns an empty, opened project named name.
func NewProject(name string) *Project {
	p := &Project{Name: name, IsOpened: true, Flags: NewModifiedFlags()}
	p.Configs = configlib.New()
	p.Modules = New()
	p.Bundles = bundlelib.New(p.Configs.Resolve)
	return p
}

// MarkGlobalModified flags project-level metadata (name, top module,
// imports) as dirty.
func (p *Project) MarkGlobalModified() { p.Flags.Global = true }

// MarkConfigsModified flags the config library as dirty.
func (p *Project) MarkConfigsModified() { p.Flags.Configs = true }

// MarkBundlesModified flags the bundle library as dirty.
func (p *Project) MarkBundlesModified() { p.Flags.Bundles = true }

// MarkModuleModified flags a single module as dirty.
func (p *Project) MarkModuleModified(name string) { p.Flags.Modules[name] = true }

// ClearModified clears every modification flag, called after a successful
// save.
func (p *Project) ClearModified() {
	p.Flags = NewModifiedFlags()
}
