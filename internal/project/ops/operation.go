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

	"github.com/probeum/rv64pipe/internal/project/modulelib"
)

// Arg is one named, ordered command argument, matching the wire protocol's
// `{index, name, value}` shape.
type Arg struct {
	Index int
	Name  string
	Value string
}

// Args is a lookup helper over a request's argument list.
type Args map[string]string

// ArgsFromList builds an Args lookup from an ordered Arg list.
func ArgsFromList(list []Arg) Args {
	a := make(Args, len(list))
	for _, v := range list {
		a[v.Name] = v.Value
	}
	return a
}

// Require returns the named argument or an error if absent.
func (a Args) Require(name string) (string, error) {
	v, ok := a[name]
	if !ok {
		return "", fmt.Errorf("ops: missing required argument %q", name)
	}
	return v, nil
}

// Get returns the named argument or def if absent.
func (a Args) Get(name, def string) string {
	if v, ok := a[name]; ok {
		return v
	}
	return def
}

// Bool parses a "true"/"false" argument, defaulting to def when absent or
// unparseable.
func (a Args) Bool(name string, def bool) bool {
	v, ok := a[name]
	if !ok {
		return def
	}
	switch v {
	case "true", "1":
		return true
	case "false", "0":
		return false
	}
	return def
}

// Operation is one named, executable, optionally undoable project
// mutation. A factory function builds one from its call-site arguments;
// Execute performs the action and (for an undoable, modifying operation)
// must leave enough state inside the Operation value for a later Undo call
// to exactly restore the pre-Execute project.
type Operation interface {
	// Execute performs the operation against p and returns its response.
	// A non-zero response code must leave p unmodified.
	Execute(p *modulelib.Project) Response

	// Undo reverts the effect of a previously successful Execute. Only
	// called when Modifying() && Undoable() && Execute returned code 0.
	Undo(p *modulelib.Project)

	// Modifying reports whether a successful Execute changes project
	// state (and thus should clear or extend the undo/redo stacks).
	Modifying() bool

	// Undoable reports whether Undo is meaningfully implemented; a
	// modifying-but-not-undoable operation (e.g. save) clears both stacks
	// on success instead of pushing.
	Undoable() bool
}

// Factory builds a fresh Operation instance from its call-site arguments.
type Factory func(args Args) (Operation, error)

// registry is the global operation-name -> factory map, populated by each
// concrete operation file's init().
var registry = make(map[string]Factory)

// Register adds name to the global registry. Called from init() in the
// files defining each operation family.
func Register(name string, f Factory) {
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("ops: operation %q already registered", name))
	}
	registry[name] = f
}

// Build looks up name and constructs an Operation from args.
func Build(name string, args Args) (Operation, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("ops: unknown operation %q", name)
	}
	return f(args)
}
