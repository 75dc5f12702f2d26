// SPDX-License-Identifier: Apache-2.0

// Package depgraph tracks object-to-dependency edges and answers transitive
// dependent queries for the invalidation orchestrator.
package depgraph

import (
	"sync"

	"github.com/nuetzliches/xtraq/pkg/schema"
)

// Graph is an in-memory bidirectional adjacency map: forward[x] is the set
// of objects x depends on, reverse[x] is the set of objects that depend on
// x. It is safe for concurrent use.
type Graph struct {
	mu      sync.RWMutex
	forward map[string]map[string]schema.Ref
	reverse map[string]map[string]schema.Ref
	refs    map[string]schema.Ref
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		forward: map[string]map[string]schema.Ref{},
		reverse: map[string]map[string]schema.Ref{},
		refs:    map[string]schema.Ref{},
	}
}

// SetDependencies atomically replaces every outgoing edge from x with deps.
// Previous edges from x that are absent from deps are removed from the
// reverse map of their targets; edges are never partially merged.
func (g *Graph) SetDependencies(x schema.Ref, deps []schema.Ref) {
	g.mu.Lock()
	defer g.mu.Unlock()

	xKey := x.Key()
	g.refs[xKey] = x

	if old, ok := g.forward[xKey]; ok {
		for depKey := range old {
			if rev, ok := g.reverse[depKey]; ok {
				delete(rev, xKey)
				if len(rev) == 0 {
					delete(g.reverse, depKey)
				}
			}
		}
	}

	newForward := make(map[string]schema.Ref, len(deps))
	for _, dep := range deps {
		depKey := dep.Key()
		newForward[depKey] = dep
		g.refs[depKey] = dep

		rev, ok := g.reverse[depKey]
		if !ok {
			rev = map[string]schema.Ref{}
			g.reverse[depKey] = rev
		}
		rev[xKey] = x
	}
	g.forward[xKey] = newForward
}

// GetDependents returns the direct dependents of x (objects whose forward
// edges point at x).
func (g *Graph) GetDependents(x schema.Ref) []schema.Ref {
	g.mu.RLock()
	defer g.mu.RUnlock()

	rev, ok := g.reverse[x.Key()]
	if !ok {
		return nil
	}
	out := make([]schema.Ref, 0, len(rev))
	for _, ref := range rev {
		out = append(out, ref)
	}
	return out
}

// TraverseDependents returns every transitive dependent of x via
// breadth-first search with a visited set, so cycles terminate the
// traversal instead of looping forever. x itself is never included, even
// when it is reachable as a dependent of one of its own dependents (a cycle).
func (g *Graph) TraverseDependents(x schema.Ref) []schema.Ref {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := map[string]struct{}{x.Key(): {}}
	queue := []schema.Ref{x}
	var out []schema.Ref

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		rev, ok := g.reverse[cur.Key()]
		if !ok {
			continue
		}
		for depKey, dep := range rev {
			if _, seen := visited[depKey]; seen {
				continue
			}
			visited[depKey] = struct{}{}
			out = append(out, dep)
			queue = append(queue, dep)
		}
	}
	return out
}

// Remove deletes x and every edge touching it, in either direction.
func (g *Graph) Remove(x schema.Ref) {
	g.mu.Lock()
	defer g.mu.Unlock()

	xKey := x.Key()

	if fwd, ok := g.forward[xKey]; ok {
		for depKey := range fwd {
			if rev, ok := g.reverse[depKey]; ok {
				delete(rev, xKey)
				if len(rev) == 0 {
					delete(g.reverse, depKey)
				}
			}
		}
		delete(g.forward, xKey)
	}

	if rev, ok := g.reverse[xKey]; ok {
		for depKey := range rev {
			if fwd, ok := g.forward[depKey]; ok {
				delete(fwd, xKey)
				if len(fwd) == 0 {
					delete(g.forward, depKey)
				}
			}
		}
		delete(g.reverse, xKey)
	}

	delete(g.refs, xKey)
}
