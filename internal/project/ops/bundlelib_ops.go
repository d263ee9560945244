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
	"github.com/probeum/rv64pipe/internal/project/bundlelib"
	"github.com/probeum/rv64pipe/internal/project/modulelib"
)

func init() {
	Register("bundlelib.add", func(a Args) (Operation, error) {
		name, err := a.Require("name")
		if err != nil {
			return nil, err
		}
		return &bundleAdd{item: bundlelib.Item{Name: name, Comment: a.Get("comment", "")}}, nil
	})
	Register("bundlelib.update", func(a Args) (Operation, error) {
		name, err := a.Require("name")
		if err != nil {
			return nil, err
		}
		return &bundleUpdate{name: name}, nil
	})
	Register("bundlelib.remove", func(a Args) (Operation, error) {
		name, err := a.Require("name")
		if err != nil {
			return nil, err
		}
		return &bundleRemove{name: name}, nil
	})
	Register("bundlelib.rename", func(a Args) (Operation, error) {
		oldName, err := a.Require("name")
		if err != nil {
			return nil, err
		}
		newName, err := a.Require("newname")
		if err != nil {
			return nil, err
		}
		return &bundleRename{oldName: oldName, newName: newName}, nil
	})
	Register("bundlelib.comment", func(a Args) (Operation, error) {
		name, err := a.Require("name")
		if err != nil {
			return nil, err
		}
		return &bundleComment{name: name, comment: a.Get("comment", "")}, nil
	})
	Register("bundlelib.list", func(a Args) (Operation, error) {
		return &bundleList{}, nil
	})
	Register("bundlelib.listref", func(a Args) (Operation, error) {
		name, err := a.Require("name")
		if err != nil {
			return nil, err
		}
		return &bundleListRef{name: name}, nil
	})
}

// bundleAdd's item is built in the factory with just name/comment, so a
// bundle added through this operation has no members or enum values; no
// operation in this package fills them in afterwards.
type bundleAdd struct {
	item bundlelib.Item
}

func (o *bundleAdd) Execute(p *modulelib.Project) Response {
	if err := p.Bundles.Add(o.item); err != nil {
		return Fail(CodeInvalidExpr, err.Error())
	}
	p.MarkBundlesModified()
	return OK().WithResult("name", o.item.Name)
}

func (o *bundleAdd) Undo(p *modulelib.Project) {
	_ = p.Bundles.Remove(o.item.Name)
}

func (o *bundleAdd) Modifying() bool { return true }
func (o *bundleAdd) Undoable() bool  { return true }

// bundleUpdate swaps in a fully-formed replacement Item (members/values
// already assembled by the caller out of band, e.g. the console) and
// detects introduced cycles, refusing the update and naming the cycle per
// ("update must also detect introduced cycles").
type bundleUpdate struct {
	name     string
	newItem  bundlelib.Item
	oldItem  bundlelib.Item
}

func (o *bundleUpdate) Execute(p *modulelib.Project) Response {
	old := p.Bundles.Get(o.name)
	if old == nil {
		return Fail(CodeNotFound, "bundle not found: "+o.name)
	}
	o.oldItem = *old
	if o.newItem.Name == "" {
		o.newItem.Name = o.name
	}
	if err := p.Bundles.Update(o.newItem); err != nil {
		return Fail(CodeCycle, err.Error())
	}
	p.MarkBundlesModified()
	return OK()
}

func (o *bundleUpdate) Undo(p *modulelib.Project) {
	_ = p.Bundles.Update(o.oldItem)
}

func (o *bundleUpdate) Modifying() bool { return true }
func (o *bundleUpdate) Undoable() bool  { return true }

type bundleRemove struct {
	name     string
	snapshot bundlelib.Item
}

func (o *bundleRemove) Execute(p *modulelib.Project) Response {
	it := p.Bundles.Get(o.name)
	if it == nil {
		return Fail(CodeNotFound, "bundle not found: "+o.name)
	}
	o.snapshot = *it
	if err := p.Bundles.Remove(o.name); err != nil {
		return Fail(CodeStillReferenced, err.Error())
	}
	p.MarkBundlesModified()
	return OK()
}

func (o *bundleRemove) Undo(p *modulelib.Project) {
	_ = p.Bundles.Add(o.snapshot)
}

func (o *bundleRemove) Modifying() bool { return true }
func (o *bundleRemove) Undoable() bool  { return true }

type bundleRename struct {
	oldName, newName string
}

func (o *bundleRename) Execute(p *modulelib.Project) Response {
	if err := p.Bundles.Rename(o.oldName, o.newName); err != nil {
		return Fail(CodeInvalidName, err.Error())
	}
	p.MarkBundlesModified()
	return OK().WithResult("name", o.newName)
}

func (o *bundleRename) Undo(p *modulelib.Project) {
	_ = p.Bundles.Rename(o.newName, o.oldName)
}

func (o *bundleRename) Modifying() bool { return true }
func (o *bundleRename) Undoable() bool  { return true }

type bundleComment struct {
	name, comment string
	oldComment    string
}

func (o *bundleComment) Execute(p *modulelib.Project) Response {
	it := p.Bundles.Get(o.name)
	if it == nil {
		return Fail(CodeNotFound, "bundle not found: "+o.name)
	}
	o.oldComment = it.Comment
	_ = p.Bundles.Comment(o.name, o.comment)
	p.MarkBundlesModified()
	return OK()
}

func (o *bundleComment) Undo(p *modulelib.Project) {
	_ = p.Bundles.Comment(o.name, o.oldComment)
}

func (o *bundleComment) Modifying() bool { return true }
func (o *bundleComment) Undoable() bool  { return true }

type bundleList struct{}

func (o *bundleList) Execute(p *modulelib.Project) Response {
	return OK().WithList("names", p.Bundles.List())
}
func (o *bundleList) Undo(p *modulelib.Project) {}
func (o *bundleList) Modifying() bool           { return false }
func (o *bundleList) Undoable() bool            { return false }

type bundleListRef struct {
	name string
}

func (o *bundleListRef) Execute(p *modulelib.Project) Response {
	fwd, rev, cfgs, err := p.Bundles.ListRef(o.name)
	if err != nil {
		return Fail(CodeNotFound, err.Error())
	}
	return OK().WithList("forward", fwd).WithList("reverse", rev).WithList("configs", cfgs)
}
func (o *bundleListRef) Undo(p *modulelib.Project) {}
func (o *bundleListRef) Modifying() bool           { return false }
func (o *bundleListRef) Undoable() bool            { return false }
