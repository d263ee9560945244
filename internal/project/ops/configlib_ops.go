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
	"github.com/probeum/rv64pipe/internal/project/configlib"
	"github.com/probeum/rv64pipe/internal/project/modulelib"
)

func init() {
	Register("configlib.add", func(a Args) (Operation, error) {
		name, err := a.Require("name")
		if err != nil {
			return nil, err
		}
		expr, err := a.Require("expr")
		if err != nil {
			return nil, err
		}
		return &configAdd{name: name, expr: expr, comment: a.Get("comment", "")}, nil
	})
	Register("configlib.update", func(a Args) (Operation, error) {
		name, err := a.Require("name")
		if err != nil {
			return nil, err
		}
		expr, err := a.Require("expr")
		if err != nil {
			return nil, err
		}
		return &configUpdate{name: name, newExpr: expr}, nil
	})
	Register("configlib.remove", func(a Args) (Operation, error) {
		name, err := a.Require("name")
		if err != nil {
			return nil, err
		}
		return &configRemove{name: name}, nil
	})
	Register("configlib.rename", func(a Args) (Operation, error) {
		oldName, err := a.Require("name")
		if err != nil {
			return nil, err
		}
		newName, err := a.Require("newname")
		if err != nil {
			return nil, err
		}
		return &configRename{oldName: oldName, newName: newName}, nil
	})
	Register("configlib.comment", func(a Args) (Operation, error) {
		name, err := a.Require("name")
		if err != nil {
			return nil, err
		}
		return &configComment{name: name, comment: a.Get("comment", "")}, nil
	})
	Register("configlib.list", func(a Args) (Operation, error) {
		return &configList{withRef: a.Bool("reference", false)}, nil
	})
	Register("configlib.listref", func(a Args) (Operation, error) {
		name, err := a.Require("name")
		if err != nil {
			return nil, err
		}
		return &configListRef{name: name}, nil
	})
}

type configAdd struct {
	name, expr, comment string
}

func (o *configAdd) Execute(p *modulelib.Project) Response {
	if err := p.Configs.Add(o.name, o.expr, o.comment, configlib.DefaultGroup); err != nil {
		return Fail(CodeInvalidExpr, err.Error())
	}
	p.MarkConfigsModified()
	return OK().WithResult("name", o.name)
}

func (o *configAdd) Undo(p *modulelib.Project) {
	_ = p.Configs.Remove(o.name)
}

func (o *configAdd) Modifying() bool { return true }
func (o *configAdd) Undoable() bool  { return true }

type configUpdate struct {
	name, newExpr string
	oldExpr       string
}

func (o *configUpdate) Execute(p *modulelib.Project) Response {
	it := p.Configs.Get(o.name)
	if it == nil {
		return Fail(CodeNotFound, "config not found: "+o.name)
	}
	o.oldExpr = it.Expr
	if err := p.Configs.Update(o.name, o.newExpr); err != nil {
		return Fail(CodeCycle, err.Error())
	}
	p.MarkConfigsModified()
	return OK().WithResult("name", o.name)
}

func (o *configUpdate) Undo(p *modulelib.Project) {
	_ = p.Configs.Update(o.name, o.oldExpr)
}

func (o *configUpdate) Modifying() bool { return true }
func (o *configUpdate) Undoable() bool  { return true }

type configRemove struct {
	name     string
	snapshot *configlib.Item
}

func (o *configRemove) Execute(p *modulelib.Project) Response {
	it := p.Configs.Get(o.name)
	if it == nil {
		return Fail(CodeNotFound, "config not found: "+o.name)
	}
	cp := *it
	o.snapshot = &cp
	if err := p.Configs.Remove(o.name); err != nil {
		return Fail(CodeStillReferenced, err.Error())
	}
	p.MarkConfigsModified()
	return OK()
}

func (o *configRemove) Undo(p *modulelib.Project) {
	_ = p.Configs.Add(o.snapshot.Name, o.snapshot.Expr, o.snapshot.Comment, o.snapshot.Group)
}

func (o *configRemove) Modifying() bool { return true }
func (o *configRemove) Undoable() bool  { return true }

type configRename struct {
	oldName, newName string
}

func (o *configRename) Execute(p *modulelib.Project) Response {
	if err := p.Configs.Rename(o.oldName, o.newName); err != nil {
		return Fail(CodeInvalidName, err.Error())
	}
	p.MarkConfigsModified()
	return OK().WithResult("name", o.newName)
}

func (o *configRename) Undo(p *modulelib.Project) {
	_ = p.Configs.Rename(o.newName, o.oldName)
}

func (o *configRename) Modifying() bool { return true }
func (o *configRename) Undoable() bool  { return true }

type configComment struct {
	name, comment string
	oldComment    string
}

func (o *configComment) Execute(p *modulelib.Project) Response {
	it := p.Configs.Get(o.name)
	if it == nil {
		return Fail(CodeNotFound, "config not found: "+o.name)
	}
	o.oldComment = it.Comment
	_ = p.Configs.Comment(o.name, o.comment)
	p.MarkConfigsModified()
	return OK()
}

func (o *configComment) Undo(p *modulelib.Project) {
	_ = p.Configs.Comment(o.name, o.oldComment)
}

func (o *configComment) Modifying() bool { return true }
func (o *configComment) Undoable() bool  { return true }

type configList struct {
	withRef bool
}

func (o *configList) Execute(p *modulelib.Project) Response {
	resp := OK().WithList("names", p.Configs.List())
	if o.withRef {
		fwdSum, revSum := p.Configs.ReferenceCounts()
		resp = resp.WithResult("forward_total", itoa(fwdSum)).WithResult("reverse_total", itoa(revSum))
	}
	return resp
}

func (o *configList) Undo(p *modulelib.Project) {}
func (o *configList) Modifying() bool           { return false }
func (o *configList) Undoable() bool            { return false }

type configListRef struct {
	name string
}

func (o *configListRef) Execute(p *modulelib.Project) Response {
	fwd, rev, err := p.Configs.ListRef(o.name)
	if err != nil {
		return Fail(CodeNotFound, err.Error())
	}
	return OK().WithList("forward", fwd).WithList("reverse", rev)
}

func (o *configListRef) Undo(p *modulelib.Project) {}
func (o *configListRef) Modifying() bool           { return false }
func (o *configListRef) Undoable() bool            { return false }
