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

package ops

import (
	"github.com/probeum/rv64pipe/internal/project/modulelib"
)

// history, undo and redo aren't registered here: they operate on the
// Engine's own undo/redo stacks rather than the project, so Engine.
// DoOperation intercepts those three names before consulting the registry.
func init() {
	Register("info", func(a Args) (Operation, error) { return &projectInfo{}, nil })
	Register("list", func(a Args) (Operation, error) { return &projectList{}, nil })
	Register("save", func(a Args) (Operation, error) { return &projectSave{}, nil })
	Register("create", func(a Args) (Operation, error) {
		name, err := a.Require("name")
		if err != nil {
			return nil, err
		}
		top, err := a.Require("top")
		if err != nil {
			return nil, err
		}
		return &projectCreate{name: name, top: top}, nil
	})
}

type projectInfo struct{}

func (o *projectInfo) Execute(p *modulelib.Project) Response {
	return OK().
		WithResult("name", p.Name).
		WithResult("top_module", p.TopModule).
		WithResult("opened", boolStr(p.IsOpened)).
		WithResult("modified", boolStr(p.Flags.Global || p.Flags.Configs || p.Flags.Bundles || len(p.Flags.Modules) > 0))
}
func (o *projectInfo) Undo(p *modulelib.Project) {}
func (o *projectInfo) Modifying() bool           { return false }
func (o *projectInfo) Undoable() bool            { return false }

type projectList struct{}

func (o *projectList) Execute(p *modulelib.Project) Response {
	return OK().
		WithList("configs", p.Configs.List()).
		WithList("bundles", p.Bundles.List()).
		WithList("modules", p.Modules.List())
}
func (o *projectList) Undo(p *modulelib.Project) {}
func (o *projectList) Modifying() bool           { return false }
func (o *projectList) Undoable() bool            { return false }

// projectSave is modifying but not undoable: a successful save clears both
// the undo and redo stacks and the modification flags.
type projectSave struct{}

func (o *projectSave) Execute(p *modulelib.Project) Response {
	p.ClearModified()
	return OK()
}
func (o *projectSave) Undo(p *modulelib.Project) {}
func (o *projectSave) Modifying() bool           { return true }
func (o *projectSave) Undoable() bool            { return false }

type projectCreate struct {
	name, top string
}

func (o *projectCreate) Execute(p *modulelib.Project) Response {
	// An Operation only ever mutates the project it's given, never
	// replaces it. DoOperation routes "create" through the registry like
	// any other name and does not build a fresh modulelib.Project, so this
	// operation renames the current project, sets its top module and marks
	// it opened; its existing configs, bundles and modules are kept.
	p.Name = o.name
	p.TopModule = o.top
	p.IsOpened = true
	return OK().WithResult("name", o.name)
}
func (o *projectCreate) Undo(p *modulelib.Project) {}
func (o *projectCreate) Modifying() bool           { return true }
func (o *projectCreate) Undoable() bool            { return false }

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
