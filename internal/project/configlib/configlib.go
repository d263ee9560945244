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

// Package configlib holds the project's named configuration items: integer
// expressions that may reference each other, forming a DAG maintained via
// internal/project/graph.
package configlib

import (
	"fmt"
	"sort"

	"github.com/probeum/rv64pipe/internal/project/expr"
	"github.com/probeum/rv64pipe/internal/project/graph"
)

// DefaultGroup tags a config introduced directly in the project, as opposed
// to one pulled in by an imported module.
const DefaultGroup = ""

// Item is one configuration entry.
type Item struct {
	Name    string
	Expr    string
	Value   int64
	Comment string
	Group   string // DefaultGroup, or the importing module's name
}

// Library is the set of all configuration items plus their reference graph.
type Library struct {
	items map[string]*Item
	g     *graph.Graph
}

// New returns an empty configuration library.
func New() *Library {
	return &Library{items: make(map[string]*Item), g: graph.New()}
}

// Get returns the named item, or nil if it doesn't exist.
func (l *Library) Get(name string) *Item {
	return l.items[name]
}

// Has reports whether name is a defined config.
func (l *Library) Has(name string) bool {
	_, ok := l.items[name]
	return ok
}

// resolve is the expr.Resolver backing evaluation: a config resolves to its
// last-evaluated Value.
func (l *Library) resolve(name string) (int64, bool) {
	it, ok := l.items[name]
	if !ok {
		return 0, false
	}
	return it.Value, true
}

// Resolve is the exported form of resolve, handed to other libraries
// (bundlelib) that need to evaluate config references in their own
// expressions without importing configlib's internals.
func (l *Library) Resolve(name string) (int64, bool) {
	return l.resolve(name)
}

// Add creates a new config item. It fails if name is invalid, already
// exists, or the expression doesn't evaluate (undefined reference, self
// reference, or syntax error).
func (l *Library) Add(name, expression, comment, group string) error {
	if !expr.ValidIdent(name) {
		return fmt.Errorf("configlib: invalid identifier %q", name)
	}
	if l.Has(name) {
		return fmt.Errorf("configlib: config %q already exists", name)
	}
	res, err := expr.Eval(expression, name, l.resolve)
	if err != nil {
		return fmt.Errorf("configlib: %w", err)
	}
	l.items[name] = &Item{Name: name, Expr: expression, Value: res.Value, Comment: comment, Group: group}
	l.g.SetForward(name, res.Refs)
	return nil
}

// Update replaces an existing config's expression, re-evaluating it and any
// config that transitively depends on it.
func (l *Library) Update(name, expression string) error {
	it, ok := l.items[name]
	if !ok {
		return fmt.Errorf("configlib: config %q not found", name)
	}
	res, err := expr.Eval(expression, name, l.resolve)
	if err != nil {
		return fmt.Errorf("configlib: %w", err)
	}
	oldExpr, oldValue := it.Expr, it.Value
	it.Expr, it.Value = expression, res.Value
	l.g.SetForward(name, res.Refs)

	if cyc := l.g.FindCycle(); cyc != nil {
		it.Expr, it.Value = oldExpr, oldValue
		l.g.SetForward(name, refsOf(oldExpr, name, l.resolve))
		return fmt.Errorf("configlib: update introduces a cycle at %q", cyc[0])
	}
	l.reevaluateDependents(name)
	return nil
}

// refsOf recovers the reference set of a previously-valid expression, used
// to restore graph edges after a rejected update.
func refsOf(expression, self string, resolve expr.Resolver) []string {
	res, err := expr.Eval(expression, self, resolve)
	if err != nil {
		return nil
	}
	return res.Refs
}

// reevaluateDependents re-runs Eval for every config that (transitively)
// references changed, in topological order, propagating new values.
func (l *Library) reevaluateDependents(changed string) {
	affected := l.transitiveReferrers(changed)
	order, err := graph.TopoSort(l.g, append(affected, changed))
	if err != nil {
		return
	}
	for _, name := range order {
		if name == changed {
			continue
		}
		it := l.items[name]
		res, err := expr.Eval(it.Expr, name, l.resolve)
		if err != nil {
			continue
		}
		it.Value = res.Value
	}
}

func (l *Library) transitiveReferrers(name string) []string {
	visited := make(map[string]bool)
	var walk func(string)
	var out []string
	walk = func(n string) {
		for _, r := range l.g.Reverse(n) {
			if !visited[r] {
				visited[r] = true
				out = append(out, r)
				walk(r)
			}
		}
	}
	walk(name)
	return out
}

// Rename moves a config to a new name, cascading the rename into every
// referring config's expression text and the graph.
func (l *Library) Rename(oldName, newName string) error {
	it, ok := l.items[oldName]
	if !ok {
		return fmt.Errorf("configlib: config %q not found", oldName)
	}
	if !expr.ValidIdent(newName) {
		return fmt.Errorf("configlib: invalid identifier %q", newName)
	}
	if l.Has(newName) {
		return fmt.Errorf("configlib: config %q already exists", newName)
	}
	referrers := l.g.Reverse(oldName)
	it.Name = newName
	delete(l.items, oldName)
	l.items[newName] = it
	l.g.RenameNode(oldName, newName)

	for _, r := range referrers {
		ref := l.items[r]
		ref.Expr = renameIdent(ref.Expr, oldName, newName)
	}
	return nil
}

// Remove deletes a config. It fails if anything still references it.
func (l *Library) Remove(name string) error {
	if !l.Has(name) {
		return fmt.Errorf("configlib: config %q not found", name)
	}
	if l.g.HasReferrers(name) {
		return fmt.Errorf("configlib: config %q is still referenced", name)
	}
	delete(l.items, name)
	l.g.RemoveNode(name)
	return nil
}

// Comment updates a config's free-form comment only.
func (l *Library) Comment(name, comment string) error {
	it, ok := l.items[name]
	if !ok {
		return fmt.Errorf("configlib: config %q not found", name)
	}
	it.Comment = comment
	return nil
}

// List returns every config name in sorted order.
func (l *Library) List() []string {
	names := make([]string, 0, len(l.items))
	for n := range l.items {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ListRef returns name plus its forward and reverse reference names, used
// by configlib.listref.
func (l *Library) ListRef(name string) (forward, reverse []string, err error) {
	if !l.Has(name) {
		return nil, nil, fmt.Errorf("configlib: config %q not found", name)
	}
	return l.g.Forward(name), l.g.Reverse(name), nil
}

// ReferenceCounts returns the sum of forward-set sizes and the sum of
// reverse-set sizes across every config; these must always match, since
// every forward edge has a corresponding reverse edge.
func (l *Library) ReferenceCounts() (forwardSum, reverseSum int) {
	for n := range l.items {
		forwardSum += l.g.ForwardCount(n)
		reverseSum += l.g.ReverseCount(n)
	}
	return
}

// renameIdent performs a token-aware replace of oldName with newName inside
// an expression string, never touching a substring that's part of a larger
// identifier.
func renameIdent(expression, oldName, newName string) string {
	var out []byte
	i, n := 0, len(expression)
	for i < n {
		c := expression[i]
		if isIdentStart(c) {
			start := i
			for i < n && isIdentPart(expression[i]) {
				i++
			}
			tok := expression[start:i]
			if tok == oldName {
				out = append(out, newName...)
			} else {
				out = append(out, tok...)
			}
			continue
		}
		out = append(out, c)
		i++
	}
	return string(out)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
