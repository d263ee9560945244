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

// Package bundlelib holds the project's named data-layout bundles (struct,
// alias and enum variants) and their reference graph, mirroring configlib's
// shape but with a richer member list per item.
package bundlelib

import (
	"fmt"
	"sort"

	"github.com/probeum/rv64pipe/internal/project/expr"
	"github.com/probeum/rv64pipe/internal/project/graph"
)

// Variant enumerates the three bundle shapes.
type Variant int

const (
	Struct Variant = iota
	Alias
	Enum
)

// Member is one struct/alias field: a name, a type reference (either
// another bundle's name or an integer bit-width expression), optional array
// dimension expressions, and an optional default-value expression.
type Member struct {
	Name       string
	TypeRef    string // non-empty when the member's type is another bundle
	WidthExpr  string // non-empty when the member's type is a raw bit-width
	DimExprs   []string
	DefaultExpr string
}

// EnumValue is one (name, value-expression) pair of an Enum bundle.
type EnumValue struct {
	Name string
	Expr string
}

// Item is one bundle definition.
type Item struct {
	Name    string
	Variant Variant
	Comment string
	Members []Member    // Struct, Alias
	Values  []EnumValue // Enum
}

// Library is the set of all bundle items plus their reference graph (to
// other bundles, and to configs through bit-width/dim/value expressions).
type Library struct {
	items   map[string]*Item
	g       *graph.Graph          // bundle -> bundle edges
	configG map[string][]string   // bundle -> referenced config names
	resolve expr.Resolver
}

// New returns an empty bundle library. resolveConfig looks up a config's
// current value by name, used to evaluate width/dim/default expressions.
func New(resolveConfig expr.Resolver) *Library {
	return &Library{
		items:   make(map[string]*Item),
		g:       graph.New(),
		configG: make(map[string][]string),
		resolve: resolveConfig,
	}
}

// Get returns the named bundle, or nil.
func (l *Library) Get(name string) *Item {
	return l.items[name]
}

// Has reports whether name is a defined bundle.
func (l *Library) Has(name string) bool {
	_, ok := l.items[name]
	return ok
}

// exprRefs evaluates expression under the config resolver and returns the
// config names it referenced. A bundle name has no integer value, so a
// bundle name inside a width/dim/default/value expression fails as an
// undefined reference: these expressions may reference configs only,
// never other bundles.
func (l *Library) exprRefs(expression, selfBundle string) ([]string, error) {
	res, err := expr.Eval(expression, "", l.resolve)
	if err != nil {
		return nil, fmt.Errorf("bundlelib: in %q: %w", selfBundle, err)
	}
	return res.Refs, nil
}

func (l *Library) memberRefs(name string, members []Member) (bundleRefs, configRefs []string, err error) {
	for _, m := range members {
		if m.TypeRef != "" {
			bundleRefs = append(bundleRefs, m.TypeRef)
		}
		if m.WidthExpr != "" {
			refs, e := l.exprRefs(m.WidthExpr, name)
			if e != nil {
				return nil, nil, e
			}
			configRefs = append(configRefs, refs...)
		}
		for _, d := range m.DimExprs {
			refs, e := l.exprRefs(d, name)
			if e != nil {
				return nil, nil, e
			}
			configRefs = append(configRefs, refs...)
		}
		if m.DefaultExpr != "" {
			refs, e := l.exprRefs(m.DefaultExpr, name)
			if e != nil {
				return nil, nil, e
			}
			configRefs = append(configRefs, refs...)
		}
	}
	return bundleRefs, configRefs, nil
}

func (l *Library) valueRefs(name string, values []EnumValue) (configRefs []string, err error) {
	for _, v := range values {
		refs, e := l.exprRefs(v.Expr, name)
		if e != nil {
			return nil, e
		}
		configRefs = append(configRefs, refs...)
	}
	return configRefs, nil
}

// Add creates a new bundle, validating identifier uniqueness and every
// member/value expression, and rejects the insertion if it would close a
// cycle in the bundle reference graph.
func (l *Library) Add(item Item) error {
	if !expr.ValidIdent(item.Name) {
		return fmt.Errorf("bundlelib: invalid identifier %q", item.Name)
	}
	if l.Has(item.Name) {
		return fmt.Errorf("bundlelib: bundle %q already exists", item.Name)
	}
	bundleRefs, configRefs, err := l.refsFor(item)
	if err != nil {
		return err
	}
	l.items[item.Name] = &item
	l.g.SetForward(item.Name, bundleRefs)
	l.configG[item.Name] = configRefs

	if cyc := l.g.FindCycle(); cyc != nil {
		delete(l.items, item.Name)
		l.g.RemoveNode(item.Name)
		delete(l.configG, item.Name)
		return fmt.Errorf("bundlelib: adding %q introduces a cycle at %q", item.Name, cyc[0])
	}
	return nil
}

func (l *Library) refsFor(item Item) (bundleRefs, configRefs []string, err error) {
	switch item.Variant {
	case Struct, Alias:
		return l.memberRefs(item.Name, item.Members)
	case Enum:
		refs, err := l.valueRefs(item.Name, item.Values)
		return nil, refs, err
	default:
		return nil, nil, fmt.Errorf("bundlelib: unknown variant %d", item.Variant)
	}
}

// Update replaces an existing bundle's contents, refusing (and leaving the
// library untouched) if the new contents would introduce a cycle.
func (l *Library) Update(item Item) error {
	old, ok := l.items[item.Name]
	if !ok {
		return fmt.Errorf("bundlelib: bundle %q not found", item.Name)
	}
	bundleRefs, configRefs, err := l.refsFor(item)
	if err != nil {
		return err
	}
	oldForward := l.g.Forward(item.Name)
	oldConfigRefs := l.configG[item.Name]
	l.items[item.Name] = &item
	l.g.SetForward(item.Name, bundleRefs)
	l.configG[item.Name] = configRefs

	if cyc := l.g.FindCycle(); cyc != nil {
		l.items[item.Name] = old
		l.g.SetForward(item.Name, oldForward)
		l.configG[item.Name] = oldConfigRefs
		return fmt.Errorf("bundlelib: updating %q introduces a cycle at %q", item.Name, cyc[0])
	}
	return nil
}

// Rename moves a bundle to a new name, cascading into every referring
// bundle's member type references.
func (l *Library) Rename(oldName, newName string) error {
	it, ok := l.items[oldName]
	if !ok {
		return fmt.Errorf("bundlelib: bundle %q not found", oldName)
	}
	if !expr.ValidIdent(newName) {
		return fmt.Errorf("bundlelib: invalid identifier %q", newName)
	}
	if l.Has(newName) {
		return fmt.Errorf("bundlelib: bundle %q already exists", newName)
	}
	referrers := l.g.Reverse(oldName)
	it.Name = newName
	delete(l.items, oldName)
	l.items[newName] = it
	l.configG[newName] = l.configG[oldName]
	delete(l.configG, oldName)
	l.g.RenameNode(oldName, newName)

	for _, r := range referrers {
		ref := l.items[r]
		for i := range ref.Members {
			if ref.Members[i].TypeRef == oldName {
				ref.Members[i].TypeRef = newName
			}
		}
	}
	return nil
}

// Remove deletes a bundle. It fails if anything still references it.
func (l *Library) Remove(name string) error {
	if !l.Has(name) {
		return fmt.Errorf("bundlelib: bundle %q not found", name)
	}
	if l.g.HasReferrers(name) {
		return fmt.Errorf("bundlelib: bundle %q is still referenced", name)
	}
	delete(l.items, name)
	delete(l.configG, name)
	l.g.RemoveNode(name)
	return nil
}

// Comment updates a bundle's free-form comment only.
func (l *Library) Comment(name, comment string) error {
	it, ok := l.items[name]
	if !ok {
		return fmt.Errorf("bundlelib: bundle %q not found", name)
	}
	it.Comment = comment
	return nil
}

// List returns every bundle name in sorted order.
func (l *Library) List() []string {
	names := make([]string, 0, len(l.items))
	for n := range l.items {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ListRef returns name's forward bundle references, reverse bundle
// referrers, and referenced config names.
func (l *Library) ListRef(name string) (bundleForward, bundleReverse, configs []string, err error) {
	if !l.Has(name) {
		return nil, nil, nil, fmt.Errorf("bundlelib: bundle %q not found", name)
	}
	return l.g.Forward(name), l.g.Reverse(name), l.configG[name], nil
}
