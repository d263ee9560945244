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

func init() {
	Register("module.add", func(a Args) (Operation, error) {
		name, err := a.Require("name")
		if err != nil {
			return nil, err
		}
		return &moduleAdd{name: name, comment: a.Get("comment", "")}, nil
	})
	Register("module.remove", func(a Args) (Operation, error) {
		name, err := a.Require("name")
		if err != nil {
			return nil, err
		}
		return &moduleRemove{name: name}, nil
	})
	Register("module.rename", func(a Args) (Operation, error) {
		oldName, err := a.Require("name")
		if err != nil {
			return nil, err
		}
		newName, err := a.Require("newname")
		if err != nil {
			return nil, err
		}
		return &moduleRename{oldName: oldName, newName: newName}, nil
	})
	Register("module.info", func(a Args) (Operation, error) {
		name, err := a.Require("name")
		if err != nil {
			return nil, err
		}
		return &moduleInfo{name: name}, nil
	})
	Register("module.list", func(a Args) (Operation, error) {
		return &moduleList{}, nil
	})
	Register("module.instance.set", func(a Args) (Operation, error) {
		module, err := a.Require("module")
		if err != nil {
			return nil, err
		}
		instName, err := a.Require("instance")
		if err != nil {
			return nil, err
		}
		target, err := a.Require("target")
		if err != nil {
			return nil, err
		}
		return &moduleInstanceSet{module: module, inst: &modulelib.Instance{Name: instName, ModuleName: target, ConfigOverrides: map[string]string{}}}, nil
	})
	Register("module.connect", func(a Args) (Operation, error) {
		c, module, err := parseRequestConn(a)
		if err != nil {
			return nil, err
		}
		return &moduleConnect{module: module, conn: c}, nil
	})
	Register("module.disconn", func(a Args) (Operation, error) {
		c, module, err := parseRequestConn(a)
		if err != nil {
			return nil, err
		}
		return &moduleDisconn{module: module, conn: c}, nil
	})
	Register("module.pconn", func(a Args) (Operation, error) {
		c, module, err := parsePipeConn(a)
		if err != nil {
			return nil, err
		}
		return &modulePConn{module: module, conn: c}, nil
	})
	Register("module.pdisconn", func(a Args) (Operation, error) {
		c, module, err := parsePipeConn(a)
		if err != nil {
			return nil, err
		}
		return &modulePDisconn{module: module, conn: c}, nil
	})
	Register("module.uconn", func(a Args) (Operation, error) {
		module, err := a.Require("module")
		if err != nil {
			return nil, err
		}
		former, err := a.Require("former")
		if err != nil {
			return nil, err
		}
		latter, err := a.Require("latter")
		if err != nil {
			return nil, err
		}
		return &moduleUConn{module: module, sc: modulelib.SequenceConstraint{Former: former, Latter: latter}}, nil
	})
}

func parseRequestConn(a Args) (modulelib.RequestConnection, string, error) {
	module, err := a.Require("module")
	if err != nil {
		return modulelib.RequestConnection{}, "", err
	}
	srcInst, err := a.Require("src_instance")
	if err != nil {
		return modulelib.RequestConnection{}, "", err
	}
	srcPort, err := a.Require("src_port")
	if err != nil {
		return modulelib.RequestConnection{}, "", err
	}
	dstInst, err := a.Require("dst_instance")
	if err != nil {
		return modulelib.RequestConnection{}, "", err
	}
	dstPort, err := a.Require("dst_port")
	if err != nil {
		return modulelib.RequestConnection{}, "", err
	}
	return modulelib.RequestConnection{SrcInstance: srcInst, SrcPort: srcPort, DstInstance: dstInst, DstPort: dstPort}, module, nil
}

func parsePipeConn(a Args) (modulelib.PipeConnection, string, error) {
	module, err := a.Require("module")
	if err != nil {
		return modulelib.PipeConnection{}, "", err
	}
	srcInst, err := a.Require("src_instance")
	if err != nil {
		return modulelib.PipeConnection{}, "", err
	}
	srcPort, err := a.Require("src_port")
	if err != nil {
		return modulelib.PipeConnection{}, "", err
	}
	dstInst, err := a.Require("dst_instance")
	if err != nil {
		return modulelib.PipeConnection{}, "", err
	}
	dstPort, err := a.Require("dst_port")
	if err != nil {
		return modulelib.PipeConnection{}, "", err
	}
	return modulelib.PipeConnection{SrcInstance: srcInst, SrcPort: srcPort, DstInstance: dstInst, DstPort: dstPort}, module, nil
}

type moduleAdd struct {
	name, comment string
}

func (o *moduleAdd) Execute(p *modulelib.Project) Response {
	m := modulelib.NewModule(o.name)
	m.Comment = o.comment
	if err := p.Modules.AddLocal(m); err != nil {
		return Fail(CodeAlreadyExists, err.Error())
	}
	p.MarkModuleModified(o.name)
	return OK().WithResult("name", o.name)
}

func (o *moduleAdd) Undo(p *modulelib.Project) { _ = p.Modules.Remove(o.name) }
func (o *moduleAdd) Modifying() bool           { return true }
func (o *moduleAdd) Undoable() bool            { return true }

type moduleRemove struct {
	name     string
	snapshot *modulelib.Entry
}

func (o *moduleRemove) Execute(p *modulelib.Project) Response {
	e := p.Modules.Get(o.name)
	if e == nil {
		return Fail(CodeNotFound, "module not found: "+o.name)
	}
	o.snapshot = e
	if err := p.Modules.Remove(o.name); err != nil {
		return Fail(CodeStillReferenced, err.Error())
	}
	return OK()
}

func (o *moduleRemove) Undo(p *modulelib.Project) {
	if o.snapshot.Local != nil {
		_ = p.Modules.AddLocal(o.snapshot.Local)
	} else {
		_ = p.Modules.AddExternal(o.snapshot.External)
	}
}

func (o *moduleRemove) Modifying() bool { return true }
func (o *moduleRemove) Undoable() bool  { return true }

type moduleRename struct {
	oldName, newName string
}

func (o *moduleRename) Execute(p *modulelib.Project) Response {
	if err := p.Modules.Rename(o.oldName, o.newName); err != nil {
		return Fail(CodeInvalidName, err.Error())
	}
	return OK().WithResult("name", o.newName)
}

func (o *moduleRename) Undo(p *modulelib.Project) {
	_ = p.Modules.Rename(o.newName, o.oldName)
}

func (o *moduleRename) Modifying() bool { return true }
func (o *moduleRename) Undoable() bool  { return true }

type moduleInfo struct {
	name string
}

func (o *moduleInfo) Execute(p *modulelib.Project) Response {
	e := p.Modules.Get(o.name)
	if e == nil {
		return Fail(CodeNotFound, "module not found: "+o.name)
	}
	resp := OK().WithResult("name", e.Name())
	if e.Local != nil {
		instances := make([]string, 0, len(e.Local.Instances))
		for n := range e.Local.Instances {
			instances = append(instances, n)
		}
		resp = resp.WithList("instances", instances).WithResult("external", "false")
	} else {
		resp = resp.WithResult("external", "true")
	}
	return resp
}

func (o *moduleInfo) Undo(p *modulelib.Project) {}
func (o *moduleInfo) Modifying() bool           { return false }
func (o *moduleInfo) Undoable() bool            { return false }

type moduleList struct{}

func (o *moduleList) Execute(p *modulelib.Project) Response {
	return OK().WithList("names", p.Modules.List())
}
func (o *moduleList) Undo(p *modulelib.Project) {}
func (o *moduleList) Modifying() bool           { return false }
func (o *moduleList) Undoable() bool            { return false }

type moduleInstanceSet struct {
	module string
	inst   *modulelib.Instance
}

func (o *moduleInstanceSet) Execute(p *modulelib.Project) Response {
	e := p.Modules.Get(o.module)
	if e == nil {
		return Fail(CodeNotFound, "module not found: "+o.module)
	}
	if e.IsExternal() {
		return Fail(CodeExternal, "cannot modify external module "+o.module)
	}
	if err := p.Modules.AddInstance(o.module, o.inst); err != nil {
		return Fail(CodeCycle, err.Error())
	}
	p.MarkModuleModified(o.module)
	return OK().WithResult("instance", o.inst.Name)
}

func (o *moduleInstanceSet) Undo(p *modulelib.Project) {
	_ = p.Modules.RemoveInstance(o.module, o.inst.Name)
}

func (o *moduleInstanceSet) Modifying() bool { return true }
func (o *moduleInstanceSet) Undoable() bool  { return true }

type moduleConnect struct {
	module string
	conn   modulelib.RequestConnection
}

func (o *moduleConnect) Execute(p *modulelib.Project) Response {
	e := p.Modules.Get(o.module)
	if e == nil {
		return Fail(CodeNotFound, "module not found: "+o.module)
	}
	if e.IsExternal() {
		return Fail(CodeExternal, "cannot modify external module "+o.module)
	}
	if err := p.Modules.Connect(o.module, o.conn); err != nil {
		if err == modulelib.ErrSignatureMismatch {
			return Fail(CodeSignatureMismatch, err.Error())
		}
		return Fail(CodeGeneric, err.Error())
	}
	p.MarkModuleModified(o.module)
	return OK()
}

func (o *moduleConnect) Undo(p *modulelib.Project) {
	_ = p.Modules.Disconnect(o.module, o.conn)
}

func (o *moduleConnect) Modifying() bool { return true }
func (o *moduleConnect) Undoable() bool  { return true }

type moduleDisconn struct {
	module string
	conn   modulelib.RequestConnection
}

func (o *moduleDisconn) Execute(p *modulelib.Project) Response {
	if err := p.Modules.Disconnect(o.module, o.conn); err != nil {
		return Fail(CodeNotFound, err.Error())
	}
	p.MarkModuleModified(o.module)
	return OK()
}

func (o *moduleDisconn) Undo(p *modulelib.Project) {
	_ = p.Modules.Connect(o.module, o.conn)
}

func (o *moduleDisconn) Modifying() bool { return true }
func (o *moduleDisconn) Undoable() bool  { return true }

type modulePConn struct {
	module string
	conn   modulelib.PipeConnection
}

func (o *modulePConn) Execute(p *modulelib.Project) Response {
	if err := p.Modules.PipeConnect(o.module, o.conn); err != nil {
		return Fail(CodeGeneric, err.Error())
	}
	p.MarkModuleModified(o.module)
	return OK()
}

func (o *modulePConn) Undo(p *modulelib.Project) {
	_ = p.Modules.PipeDisconnect(o.module, o.conn)
}

func (o *modulePConn) Modifying() bool { return true }
func (o *modulePConn) Undoable() bool  { return true }

type modulePDisconn struct {
	module string
	conn   modulelib.PipeConnection
}

func (o *modulePDisconn) Execute(p *modulelib.Project) Response {
	if err := p.Modules.PipeDisconnect(o.module, o.conn); err != nil {
		return Fail(CodeNotFound, err.Error())
	}
	p.MarkModuleModified(o.module)
	return OK()
}

func (o *modulePDisconn) Undo(p *modulelib.Project) {
	_ = p.Modules.PipeConnect(o.module, o.conn)
}

func (o *modulePDisconn) Modifying() bool { return true }
func (o *modulePDisconn) Undoable() bool  { return true }

type moduleUConn struct {
	module string
	sc     modulelib.SequenceConstraint
}

func (o *moduleUConn) Execute(p *modulelib.Project) Response {
	if err := p.Modules.AddSequenceConstraint(o.module, o.sc); err != nil {
		return Fail(CodeCycle, err.Error())
	}
	p.MarkModuleModified(o.module)
	return OK()
}

func (o *moduleUConn) Undo(p *modulelib.Project) {
	e := p.Modules.Get(o.module)
	if e == nil || e.Local == nil {
		return
	}
	m := e.Local
	for i, s := range m.SeqConstrs {
		if s == o.sc {
			m.SeqConstrs = append(m.SeqConstrs[:i], m.SeqConstrs[i+1:]...)
			return
		}
	}
}

func (o *moduleUConn) Modifying() bool { return true }
func (o *moduleUConn) Undoable() bool  { return true }
