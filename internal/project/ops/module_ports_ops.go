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
	"fmt"
	"strings"

	"github.com/probeum/rv64pipe/internal/project/modulelib"
)

func init() {
	Register("module.req.add", func(a Args) (Operation, error) { return buildPortAdd(a, false) })
	Register("module.serv.add", func(a Args) (Operation, error) { return buildPortAdd(a, true) })
	Register("module.req.update", func(a Args) (Operation, error) { return buildPortUpdate(a, false) })
	Register("module.serv.update", func(a Args) (Operation, error) { return buildPortUpdate(a, true) })
	Register("module.req.remove", func(a Args) (Operation, error) { return buildPortRemove(a, false) })
	Register("module.serv.remove", func(a Args) (Operation, error) { return buildPortRemove(a, true) })
	Register("module.req.rename", func(a Args) (Operation, error) { return buildPortRename(a, false) })
	Register("module.serv.rename", func(a Args) (Operation, error) { return buildPortRename(a, true) })
	Register("module.req.get", func(a Args) (Operation, error) { return buildPortGet(a, false) })
	Register("module.serv.get", func(a Args) (Operation, error) { return buildPortGet(a, true) })

	Register("module.pipein.add", func(a Args) (Operation, error) { return buildPipeAdd(a, modulelib.PipeIn) })
	Register("module.pipeout.add", func(a Args) (Operation, error) { return buildPipeAdd(a, modulelib.PipeOut) })
	Register("module.pipein.update", func(a Args) (Operation, error) { return buildPipeUpdate(a, modulelib.PipeIn) })
	Register("module.pipeout.update", func(a Args) (Operation, error) { return buildPipeUpdate(a, modulelib.PipeOut) })
	Register("module.pipein.remove", func(a Args) (Operation, error) { return buildPipeRemove(a, modulelib.PipeIn) })
	Register("module.pipeout.remove", func(a Args) (Operation, error) { return buildPipeRemove(a, modulelib.PipeOut) })
	Register("module.pipein.rename", func(a Args) (Operation, error) { return buildPipeRename(a, modulelib.PipeIn) })
	Register("module.pipeout.rename", func(a Args) (Operation, error) { return buildPipeRename(a, modulelib.PipeOut) })
	Register("module.pipe.get", func(a Args) (Operation, error) { return buildPipeGet(a) })

	Register("module.storage.set", func(a Args) (Operation, error) {
		module, err := a.Require("module")
		if err != nil {
			return nil, err
		}
		name, err := a.Require("name")
		if err != nil {
			return nil, err
		}
		kind, err := parseStorageKind(a.Get("kind", "committed"))
		if err != nil {
			return nil, err
		}
		s := modulelib.Storage{Name: name, TypeRef: a.Get("type", ""), Kind: kind}
		return &moduleStorageSet{module: module, s: s}, nil
	})
	Register("module.storage.get", func(a Args) (Operation, error) {
		module, err := a.Require("module")
		if err != nil {
			return nil, err
		}
		name, err := a.Require("name")
		if err != nil {
			return nil, err
		}
		return &moduleStorageGet{module: module, name: name}, nil
	})
	Register("module.storage.remove", func(a Args) (Operation, error) {
		module, err := a.Require("module")
		if err != nil {
			return nil, err
		}
		name, err := a.Require("name")
		if err != nil {
			return nil, err
		}
		return &moduleStorageRemove{module: module, name: name}, nil
	})

	Register("module.config.set", func(a Args) (Operation, error) {
		module, err := a.Require("module")
		if err != nil {
			return nil, err
		}
		name, err := a.Require("name")
		if err != nil {
			return nil, err
		}
		expression, err := a.Require("expr")
		if err != nil {
			return nil, err
		}
		return &moduleConfigSet{module: module, name: name, expr: expression}, nil
	})

	Register("module.bundle.get", func(a Args) (Operation, error) {
		module, err := a.Require("module")
		if err != nil {
			return nil, err
		}
		name, err := a.Require("name")
		if err != nil {
			return nil, err
		}
		return &moduleBundleGet{module: module, name: name}, nil
	})

	Register("module.udisconn", func(a Args) (Operation, error) {
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
		return &moduleUDisconn{module: module, sc: modulelib.SequenceConstraint{Former: former, Latter: latter}}, nil
	})

	Register("code.update", func(a Args) (Operation, error) {
		module, err := a.Require("module")
		if err != nil {
			return nil, err
		}
		key, err := a.Require("key")
		if err != nil {
			return nil, err
		}
		code := a.Get("code", "")
		return &codeUpdate{module: module, key: key, newCode: code}, nil
	})
}

func parseStorageKind(s string) (modulelib.StorageKind, error) {
	switch strings.ToLower(s) {
	case "committed", "":
		return modulelib.StorageCommitted, nil
	case "nextcell", "next_cell":
		return modulelib.StorageNextCell, nil
	case "scratch":
		return modulelib.StorageScratch, nil
	default:
		return 0, fmt.Errorf("ops: unknown storage kind %q", s)
	}
}

func parseSignature(a Args) modulelib.Signature {
	var args, rets []string
	if s := a.Get("args", ""); s != "" {
		args = strings.Split(s, ",")
	}
	if s := a.Get("rets", ""); s != "" {
		rets = strings.Split(s, ",")
	}
	return modulelib.Signature{Args: args, Rets: rets, Handshake: a.Bool("handshake", false)}
}

func buildPortAdd(a Args, isService bool) (Operation, error) {
	module, err := a.Require("module")
	if err != nil {
		return nil, err
	}
	name, err := a.Require("name")
	if err != nil {
		return nil, err
	}
	port := modulelib.RequestPort{Name: name, Sig: parseSignature(a), MultiConnect: a.Bool("multiconnect", false)}
	return &portAdd{module: module, isService: isService, port: port}, nil
}

func buildPortUpdate(a Args, isService bool) (Operation, error) {
	module, err := a.Require("module")
	if err != nil {
		return nil, err
	}
	name, err := a.Require("name")
	if err != nil {
		return nil, err
	}
	return &portUpdate{module: module, isService: isService, name: name, newSig: parseSignature(a), newMulti: a.Bool("multiconnect", false)}, nil
}

func buildPortRemove(a Args, isService bool) (Operation, error) {
	module, err := a.Require("module")
	if err != nil {
		return nil, err
	}
	name, err := a.Require("name")
	if err != nil {
		return nil, err
	}
	return &portRemove{module: module, isService: isService, name: name}, nil
}

func buildPortRename(a Args, isService bool) (Operation, error) {
	module, err := a.Require("module")
	if err != nil {
		return nil, err
	}
	oldName, err := a.Require("name")
	if err != nil {
		return nil, err
	}
	newName, err := a.Require("newname")
	if err != nil {
		return nil, err
	}
	return &portRename{module: module, isService: isService, oldName: oldName, newName: newName}, nil
}

func buildPortGet(a Args, isService bool) (Operation, error) {
	module, err := a.Require("module")
	if err != nil {
		return nil, err
	}
	name, err := a.Require("name")
	if err != nil {
		return nil, err
	}
	return &portGet{module: module, isService: isService, name: name}, nil
}

func buildPipeAdd(a Args, dir modulelib.PipeDirection) (Operation, error) {
	module, err := a.Require("module")
	if err != nil {
		return nil, err
	}
	name, err := a.Require("name")
	if err != nil {
		return nil, err
	}
	typeRef, err := a.Require("type")
	if err != nil {
		return nil, err
	}
	return &pipeAdd{module: module, port: modulelib.PipePort{Name: name, TypeRef: typeRef, Dir: dir}}, nil
}

func buildPipeUpdate(a Args, dir modulelib.PipeDirection) (Operation, error) {
	module, err := a.Require("module")
	if err != nil {
		return nil, err
	}
	name, err := a.Require("name")
	if err != nil {
		return nil, err
	}
	typeRef, err := a.Require("type")
	if err != nil {
		return nil, err
	}
	return &pipeUpdate{module: module, dir: dir, name: name, newType: typeRef}, nil
}

func buildPipeRemove(a Args, dir modulelib.PipeDirection) (Operation, error) {
	module, err := a.Require("module")
	if err != nil {
		return nil, err
	}
	name, err := a.Require("name")
	if err != nil {
		return nil, err
	}
	return &pipeRemove{module: module, dir: dir, name: name}, nil
}

func buildPipeRename(a Args, dir modulelib.PipeDirection) (Operation, error) {
	module, err := a.Require("module")
	if err != nil {
		return nil, err
	}
	oldName, err := a.Require("name")
	if err != nil {
		return nil, err
	}
	newName, err := a.Require("newname")
	if err != nil {
		return nil, err
	}
	return &pipeRename{module: module, dir: dir, oldName: oldName, newName: newName}, nil
}

func buildPipeGet(a Args) (Operation, error) {
	module, err := a.Require("module")
	if err != nil {
		return nil, err
	}
	name, err := a.Require("name")
	if err != nil {
		return nil, err
	}
	dir := modulelib.PipeIn
	if strings.EqualFold(a.Get("dir", "in"), "out") {
		dir = modulelib.PipeOut
	}
	return &pipeGet{module: module, dir: dir, name: name}, nil
}

// --- request/service port operations ---

type portAdd struct {
	module    string
	isService bool
	port      modulelib.RequestPort
}

func (o *portAdd) Execute(p *modulelib.Project) Response {
	if err := p.Modules.AddRequestPort(o.module, o.port, o.isService); err != nil {
		return Fail(CodeAlreadyExists, err.Error())
	}
	p.MarkModuleModified(o.module)
	return OK().WithResult("name", o.port.Name)
}

func (o *portAdd) Undo(p *modulelib.Project) {
	_ = p.Modules.RemoveRequestPort(o.module, o.port.Name, o.isService)
}
func (o *portAdd) Modifying() bool { return true }
func (o *portAdd) Undoable() bool  { return true }

type portUpdate struct {
	module             string
	isService          bool
	name               string
	newSig             modulelib.Signature
	newMulti           bool
	oldSig             modulelib.Signature
	oldMulti           bool
}

func (o *portUpdate) Execute(p *modulelib.Project) Response {
	old, err := p.Modules.GetRequestPort(o.module, o.name, o.isService)
	if err != nil {
		return Fail(CodeNotFound, err.Error())
	}
	if old == nil {
		return Fail(CodeNotFound, "port not found: "+o.name)
	}
	o.oldSig, o.oldMulti = old.Sig, old.MultiConnect
	if err := p.Modules.UpdateRequestPort(o.module, o.name, o.newSig, o.newMulti, o.isService); err != nil {
		return Fail(CodeGeneric, err.Error())
	}
	p.MarkModuleModified(o.module)
	return OK()
}

func (o *portUpdate) Undo(p *modulelib.Project) {
	_ = p.Modules.UpdateRequestPort(o.module, o.name, o.oldSig, o.oldMulti, o.isService)
}
func (o *portUpdate) Modifying() bool { return true }
func (o *portUpdate) Undoable() bool  { return true }

type portRemove struct {
	module    string
	isService bool
	name      string
	snapshot  *modulelib.RequestPort
}

func (o *portRemove) Execute(p *modulelib.Project) Response {
	old, err := p.Modules.GetRequestPort(o.module, o.name, o.isService)
	if err != nil {
		return Fail(CodeNotFound, err.Error())
	}
	if old == nil {
		return Fail(CodeNotFound, "port not found: "+o.name)
	}
	snap := *old
	o.snapshot = &snap
	if err := p.Modules.RemoveRequestPort(o.module, o.name, o.isService); err != nil {
		return Fail(CodeConnectionLive, err.Error())
	}
	p.MarkModuleModified(o.module)
	return OK()
}

func (o *portRemove) Undo(p *modulelib.Project) {
	if o.snapshot == nil {
		return
	}
	_ = p.Modules.AddRequestPort(o.module, *o.snapshot, o.isService)
}
func (o *portRemove) Modifying() bool { return true }
func (o *portRemove) Undoable() bool  { return true }

type portRename struct {
	module             string
	isService          bool
	oldName, newName   string
}

func (o *portRename) Execute(p *modulelib.Project) Response {
	if err := p.Modules.RenameRequestPort(o.module, o.oldName, o.newName, o.isService); err != nil {
		return Fail(CodeInvalidName, err.Error())
	}
	p.MarkModuleModified(o.module)
	return OK().WithResult("name", o.newName)
}

func (o *portRename) Undo(p *modulelib.Project) {
	_ = p.Modules.RenameRequestPort(o.module, o.newName, o.oldName, o.isService)
}
func (o *portRename) Modifying() bool { return true }
func (o *portRename) Undoable() bool  { return true }

type portGet struct {
	module    string
	isService bool
	name      string
}

func (o *portGet) Execute(p *modulelib.Project) Response {
	port, err := p.Modules.GetRequestPort(o.module, o.name, o.isService)
	if err != nil {
		return Fail(CodeNotFound, err.Error())
	}
	if port == nil {
		return Fail(CodeNotFound, "port not found: "+o.name)
	}
	return OK().
		WithResult("name", port.Name).
		WithResult("handshake", boolStr(port.Sig.Handshake)).
		WithResult("multiconnect", boolStr(port.MultiConnect)).
		WithList("args", port.Sig.Args).
		WithList("rets", port.Sig.Rets)
}
func (o *portGet) Undo(p *modulelib.Project) {}
func (o *portGet) Modifying() bool           { return false }
func (o *portGet) Undoable() bool            { return false }

// --- pipe port operations ---

type pipeAdd struct {
	module string
	port   modulelib.PipePort
}

func (o *pipeAdd) Execute(p *modulelib.Project) Response {
	if err := p.Modules.AddPipePort(o.module, o.port); err != nil {
		return Fail(CodeAlreadyExists, err.Error())
	}
	p.MarkModuleModified(o.module)
	return OK().WithResult("name", o.port.Name)
}

func (o *pipeAdd) Undo(p *modulelib.Project) {
	_ = p.Modules.RemovePipePort(o.module, o.port.Name, o.port.Dir)
}
func (o *pipeAdd) Modifying() bool { return true }
func (o *pipeAdd) Undoable() bool  { return true }

type pipeUpdate struct {
	module  string
	dir     modulelib.PipeDirection
	name    string
	newType string
	oldType string
}

func (o *pipeUpdate) Execute(p *modulelib.Project) Response {
	old, err := p.Modules.GetPipePort(o.module, o.name, o.dir)
	if err != nil {
		return Fail(CodeNotFound, err.Error())
	}
	if old == nil {
		return Fail(CodeNotFound, "pipe port not found: "+o.name)
	}
	o.oldType = old.TypeRef
	if err := p.Modules.UpdatePipePort(o.module, o.name, o.dir, o.newType); err != nil {
		return Fail(CodeGeneric, err.Error())
	}
	p.MarkModuleModified(o.module)
	return OK()
}

func (o *pipeUpdate) Undo(p *modulelib.Project) {
	_ = p.Modules.UpdatePipePort(o.module, o.name, o.dir, o.oldType)
}
func (o *pipeUpdate) Modifying() bool { return true }
func (o *pipeUpdate) Undoable() bool  { return true }

type pipeRemove struct {
	module   string
	dir      modulelib.PipeDirection
	name     string
	snapshot *modulelib.PipePort
}

func (o *pipeRemove) Execute(p *modulelib.Project) Response {
	old, err := p.Modules.GetPipePort(o.module, o.name, o.dir)
	if err != nil {
		return Fail(CodeNotFound, err.Error())
	}
	if old == nil {
		return Fail(CodeNotFound, "pipe port not found: "+o.name)
	}
	snap := *old
	o.snapshot = &snap
	if err := p.Modules.RemovePipePort(o.module, o.name, o.dir); err != nil {
		return Fail(CodeConnectionLive, err.Error())
	}
	p.MarkModuleModified(o.module)
	return OK()
}

func (o *pipeRemove) Undo(p *modulelib.Project) {
	if o.snapshot == nil {
		return
	}
	_ = p.Modules.AddPipePort(o.module, *o.snapshot)
}
func (o *pipeRemove) Modifying() bool { return true }
func (o *pipeRemove) Undoable() bool  { return true }

type pipeRename struct {
	module           string
	dir              modulelib.PipeDirection
	oldName, newName string
}

func (o *pipeRename) Execute(p *modulelib.Project) Response {
	if err := p.Modules.RenamePipePort(o.module, o.oldName, o.newName, o.dir); err != nil {
		return Fail(CodeInvalidName, err.Error())
	}
	p.MarkModuleModified(o.module)
	return OK().WithResult("name", o.newName)
}

func (o *pipeRename) Undo(p *modulelib.Project) {
	_ = p.Modules.RenamePipePort(o.module, o.newName, o.oldName, o.dir)
}
func (o *pipeRename) Modifying() bool { return true }
func (o *pipeRename) Undoable() bool  { return true }

type pipeGet struct {
	module string
	dir    modulelib.PipeDirection
	name   string
}

func (o *pipeGet) Execute(p *modulelib.Project) Response {
	port, err := p.Modules.GetPipePort(o.module, o.name, o.dir)
	if err != nil {
		return Fail(CodeNotFound, err.Error())
	}
	if port == nil {
		return Fail(CodeNotFound, "pipe port not found: "+o.name)
	}
	return OK().WithResult("name", port.Name).WithResult("type", port.TypeRef)
}
func (o *pipeGet) Undo(p *modulelib.Project) {}
func (o *pipeGet) Modifying() bool           { return false }
func (o *pipeGet) Undoable() bool            { return false }

// --- storage operations ---

type moduleStorageSet struct {
	module   string
	s        modulelib.Storage
	existed  bool
	oldValue modulelib.Storage
}

func (o *moduleStorageSet) Execute(p *modulelib.Project) Response {
	if old, err := p.Modules.GetStorage(o.module, o.s.Name); err == nil && old != nil {
		o.existed = true
		o.oldValue = *old
	}
	if err := p.Modules.SetStorage(o.module, o.s); err != nil {
		return Fail(CodeGeneric, err.Error())
	}
	p.MarkModuleModified(o.module)
	return OK().WithResult("name", o.s.Name)
}

func (o *moduleStorageSet) Undo(p *modulelib.Project) {
	if o.existed {
		_ = p.Modules.SetStorage(o.module, o.oldValue)
	} else {
		_ = p.Modules.RemoveStorage(o.module, o.s.Name)
	}
}
func (o *moduleStorageSet) Modifying() bool { return true }
func (o *moduleStorageSet) Undoable() bool  { return true }

type moduleStorageGet struct {
	module, name string
}

func (o *moduleStorageGet) Execute(p *modulelib.Project) Response {
	s, err := p.Modules.GetStorage(o.module, o.name)
	if err != nil {
		return Fail(CodeNotFound, err.Error())
	}
	if s == nil {
		return Fail(CodeNotFound, "storage not found: "+o.name)
	}
	kind := "committed"
	switch s.Kind {
	case modulelib.StorageNextCell:
		kind = "nextcell"
	case modulelib.StorageScratch:
		kind = "scratch"
	}
	return OK().WithResult("name", s.Name).WithResult("type", s.TypeRef).WithResult("kind", kind)
}
func (o *moduleStorageGet) Undo(p *modulelib.Project) {}
func (o *moduleStorageGet) Modifying() bool           { return false }
func (o *moduleStorageGet) Undoable() bool            { return false }

type moduleStorageRemove struct {
	module, name string
	snapshot     *modulelib.Storage
}

func (o *moduleStorageRemove) Execute(p *modulelib.Project) Response {
	old, err := p.Modules.GetStorage(o.module, o.name)
	if err != nil {
		return Fail(CodeNotFound, err.Error())
	}
	if old == nil {
		return Fail(CodeNotFound, "storage not found: "+o.name)
	}
	snap := *old
	o.snapshot = &snap
	if err := p.Modules.RemoveStorage(o.module, o.name); err != nil {
		return Fail(CodeGeneric, err.Error())
	}
	p.MarkModuleModified(o.module)
	return OK()
}

func (o *moduleStorageRemove) Undo(p *modulelib.Project) {
	if o.snapshot == nil {
		return
	}
	_ = p.Modules.SetStorage(o.module, *o.snapshot)
}
func (o *moduleStorageRemove) Modifying() bool { return true }
func (o *moduleStorageRemove) Undoable() bool  { return true }

// --- module-local config ---

type moduleConfigSet struct {
	module, name, expr string
	existed            bool
	oldExpr            string
}

func (o *moduleConfigSet) Execute(p *modulelib.Project) Response {
	if old, err := p.Modules.GetLocalConfig(o.module, o.name); err == nil && old != nil {
		o.existed = true
		o.oldExpr = old.Expr
	}
	resolve := func(name string) (int64, bool) {
		if lc, err := p.Modules.GetLocalConfig(o.module, name); err == nil && lc != nil {
			return lc.Value, true
		}
		return p.Configs.Resolve(name)
	}
	if err := p.Modules.SetLocalConfig(o.module, o.name, o.expr, resolve); err != nil {
		return Fail(CodeInvalidExpr, err.Error())
	}
	p.MarkModuleModified(o.module)
	return OK().WithResult("name", o.name)
}

func (o *moduleConfigSet) Undo(p *modulelib.Project) {
	if !o.existed {
		return
	}
	resolve := func(name string) (int64, bool) {
		if lc, err := p.Modules.GetLocalConfig(o.module, name); err == nil && lc != nil {
			return lc.Value, true
		}
		return p.Configs.Resolve(name)
	}
	_ = p.Modules.SetLocalConfig(o.module, o.name, o.oldExpr, resolve)
}
func (o *moduleConfigSet) Modifying() bool { return true }
func (o *moduleConfigSet) Undoable() bool  { return true }

// --- module-local bundle lookup ---

type moduleBundleGet struct {
	module, name string
}

func (o *moduleBundleGet) Execute(p *modulelib.Project) Response {
	ref, err := p.Modules.LocalBundleRef(o.module, o.name)
	if err != nil {
		return Fail(CodeNotFound, err.Error())
	}
	return OK().WithResult("ref", ref)
}
func (o *moduleBundleGet) Undo(p *modulelib.Project) {}
func (o *moduleBundleGet) Modifying() bool           { return false }
func (o *moduleBundleGet) Undoable() bool            { return false }

// --- sequence constraint removal ---

type moduleUDisconn struct {
	module string
	sc     modulelib.SequenceConstraint
}

func (o *moduleUDisconn) Execute(p *modulelib.Project) Response {
	if err := p.Modules.RemoveSequenceConstraint(o.module, o.sc); err != nil {
		return Fail(CodeNotFound, err.Error())
	}
	p.MarkModuleModified(o.module)
	return OK()
}

func (o *moduleUDisconn) Undo(p *modulelib.Project) {
	_ = p.Modules.AddSequenceConstraint(o.module, o.sc)
}
func (o *moduleUDisconn) Modifying() bool { return true }
func (o *moduleUDisconn) Undoable() bool  { return true }

// --- code blocks ---

type codeUpdate struct {
	module, key, newCode string
	oldCode              string
	existed              bool
}

func (o *codeUpdate) Execute(p *modulelib.Project) Response {
	if code, ok, err := p.Modules.GetCodeBlock(o.module, o.key); err == nil {
		o.existed = ok
		o.oldCode = code
	}
	if err := p.Modules.SetCodeBlock(o.module, o.key, o.newCode); err != nil {
		return Fail(CodeNotFound, err.Error())
	}
	p.MarkModuleModified(o.module)
	return OK()
}

func (o *codeUpdate) Undo(p *modulelib.Project) {
	if o.existed {
		_ = p.Modules.SetCodeBlock(o.module, o.key, o.oldCode)
	}
}
func (o *codeUpdate) Modifying() bool { return true }
func (o *codeUpdate) Undoable() bool  { return true }
