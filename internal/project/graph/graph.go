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

// Package graph is the reference graph shared by configlib, bundlelib and
// modulelib: a named-node DAG with explicit forward and reverse edge sets,
// cycle detection and topological ordering over an arbitrary node subset.
package graph

import (
	"fmt"

	mapset "github.com/deckarep/golang-set"
)

// Graph tracks, for every named node, the set of other nodes it references
// (forward) and the set of nodes that reference it (reverse). Both sides are
// kept in lockstep by SetForward, RemoveNode and RenameNode so a structural
// change is atomic.
type Graph struct {
	forward map[string]mapset.Set
	reverse map[string]mapset.Set
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		forward: make(map[string]mapset.Set),
		reverse: make(map[string]mapset.Set),
	}
}

// AddNode registers name with no edges, if not already present.
func (g *Graph) AddNode(name string) {
	if _, ok := g.forward[name]; !ok {
		g.forward[name] = mapset.NewSet()
	}
	if _, ok := g.reverse[name]; !ok {
		g.reverse[name] = mapset.NewSet()
	}
}

// RemoveNode drops name and every edge touching it. It does not check for
// remaining references; callers enforce the orphan-check invariant
// themselves before calling this.
func (g *Graph) RemoveNode(name string) {
	for other := range g.forward[name].Iter() {
		g.reverse[other.(string)].Remove(name)
	}
	for other := range g.reverse[name].Iter() {
		g.forward[other.(string)].Remove(name)
	}
	delete(g.forward, name)
	delete(g.reverse, name)
}

// SetForward replaces from's entire forward reference set with refs,
// maintaining the reverse side for both the removed and the added edges.
func (g *Graph) SetForward(from string, refs []string) {
	g.AddNode(from)
	old := g.forward[from]
	next := mapset.NewSet()
	for _, r := range refs {
		next.Add(r)
	}
	for removed := range old.Difference(next).Iter() {
		if rs, ok := g.reverse[removed.(string)]; ok {
			rs.Remove(from)
		}
	}
	for added := range next.Difference(old).Iter() {
		g.AddNode(added.(string))
		g.reverse[added.(string)].Add(from)
	}
	g.forward[from] = next
}

// Forward returns the forward-reference names of name, order unspecified.
func (g *Graph) Forward(name string) []string {
	return setStrings(g.forward[name])
}

// Reverse returns the reverse-reference (referrer) names of name, order
// unspecified.
func (g *Graph) Reverse(name string) []string {
	return setStrings(g.reverse[name])
}

// ForwardCount and ReverseCount report set sizes without allocating a slice,
// used to verify a config library's forward and reverse edge counts stay balanced.
func (g *Graph) ForwardCount(name string) int { return g.forward[name].Cardinality() }
func (g *Graph) ReverseCount(name string) int { return g.reverse[name].Cardinality() }

// HasReferrers reports whether any node still references name, i.e. whether
// removing name would orphan a dangling reference.
func (g *Graph) HasReferrers(name string) bool {
	return g.reverse[name].Cardinality() > 0
}

// RenameNode moves every edge touching old onto neu. Callers must already
// have validated that neu doesn't collide with an existing node.
func (g *Graph) RenameNode(old, neu string) {
	fwd := g.forward[old]
	rev := g.reverse[old]
	delete(g.forward, old)
	delete(g.reverse, old)
	g.forward[neu] = fwd
	g.reverse[neu] = rev

	for other := range fwd.Iter() {
		rs := g.reverse[other.(string)]
		rs.Remove(old)
		rs.Add(neu)
	}
	for other := range rev.Iter() {
		fs := g.forward[other.(string)]
		fs.Remove(old)
		fs.Add(neu)
	}
}

// WouldCycle reports whether adding an edge from -> to would close a cycle,
// by checking if from is reachable from to in the current forward graph.
func (g *Graph) WouldCycle(from, to string) bool {
	if from == to {
		return true
	}
	visited := mapset.NewSet()
	var walk func(n string) bool
	walk = func(n string) bool {
		if n == from {
			return true
		}
		if visited.Contains(n) {
			return false
		}
		visited.Add(n)
		for next := range g.forward[n].Iter() {
			if walk(next.(string)) {
				return true
			}
		}
		return false
	}
	return walk(to)
}

// FindCycle does a bounded depth-first walk from every node and returns the
// node names forming the first cycle it encounters, or nil if the graph is
// currently a DAG.
func (g *Graph) FindCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.forward))
	var stack []string
	var cyclePath []string

	var visit func(n string) bool
	visit = func(n string) bool {
		color[n] = gray
		stack = append(stack, n)
		for next := range g.forward[n].Iter() {
			name := next.(string)
			switch color[name] {
			case white:
				if visit(name) {
					return true
				}
			case gray:
				// Found the back-edge; extract the cycle suffix of stack.
				idx := 0
				for i, s := range stack {
					if s == name {
						idx = i
						break
					}
				}
				cyclePath = append([]string{}, stack[idx:]...)
				return true
			}
		}
		stack = stack[:len(stack)-1]
		color[n] = black
		return false
	}

	for n := range g.forward {
		if color[n] == white {
			if visit(n) {
				return cyclePath
			}
		}
	}
	return nil
}

// TopoSort returns nodes (restricted to the given subset, in subset order
// for ties) in a valid topological order of the forward-reference edges, or
// an error naming one cycle member if the induced subgraph isn't a DAG.
func TopoSort(g *Graph, nodes []string) ([]string, error) {
	set := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		set[n] = true
	}
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(nodes))
	var order []string

	var visit func(n string) error
	visit = func(n string) error {
		color[n] = gray
		for next := range g.forward[n].Iter() {
			name := next.(string)
			if !set[name] {
				continue
			}
			switch color[name] {
			case white:
				if err := visit(name); err != nil {
					return err
				}
			case gray:
				return fmt.Errorf("graph: cycle detected at node %q", name)
			}
		}
		color[n] = black
		order = append(order, n)
		return nil
	}

	for _, n := range nodes {
		if color[n] == white {
			if err := visit(n); err != nil {
				return nil, err
			}
		}
	}
	return order, nil
}

func setStrings(s mapset.Set) []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, s.Cardinality())
	for v := range s.Iter() {
		out = append(out, v.(string))
	}
	return out
}
