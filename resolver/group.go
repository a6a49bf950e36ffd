// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Unikraft GmbH. All rights reserved.

// Package resolver implements the three-phase decision solver of spec.md
// §4.5-§4.7: the dependency grouper, upward Expand, Apply, and the
// downward informed-oldconfig fixpoint.
package resolver

import (
	"sort"

	"kconfigure.sh/kconfig"
)

// graph is the "possibly depends on" graph of spec.md §4.5: edge a -> b
// iff b appears in a's dir_dep or rev_dep symbol references. No graph
// library was found anywhere in the retrieved example pack (see
// DESIGN.md), so Tarjan's SCC algorithm and Kahn-style level layering are
// implemented directly against kconfig.Table.
type graph struct {
	table *kconfig.Table
	index map[string]int // symbol name -> Table.IterAll() position, for tie-breaks
	edges map[string][]string
	nodes []string // vertex set, in discovery (BFS) order
}

// buildGraph computes the vertex set (the seeds ∪ the transitive closure of
// their dir_dep/rev_dep references) and its edges.
func buildGraph(table *kconfig.Table, seeds []string) *graph {
	g := &graph{
		table: table,
		index: make(map[string]int, table.Len()),
		edges: make(map[string][]string),
	}
	for i, s := range table.IterAll() {
		g.index[s.Name] = i
	}

	seen := make(map[string]bool)
	queue := append([]string{}, seeds...)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if seen[name] {
			continue
		}
		seen[name] = true
		g.nodes = append(g.nodes, name)

		sym, ok := table.ByName(name)
		if !ok {
			continue
		}

		deps := make(map[string]bool)
		if sym.DirDep != nil {
			collectDeps(sym.DirDep, deps)
		}
		if sym.RevDep != nil {
			collectDeps(sym.RevDep, deps)
		}

		var out []string
		for dep := range deps {
			if dep == name {
				continue
			}
			if _, ok := table.ByName(dep); !ok {
				continue // tristate constants n/m/y, or an out-of-tree symbol
			}
			out = append(out, dep)
			if !seen[dep] {
				queue = append(queue, dep)
			}
		}
		sort.Slice(out, func(i, j int) bool { return g.index[out[i]] < g.index[out[j]] })
		g.edges[name] = out
	}

	return g
}

// collectDeps exposes kconfig.Expr's unexported collectDeps through the
// package's own public Expr methods: String()/Eval() don't give us the
// symbol set, so it delegates to the exported kconfig.CollectExprDeps.
func collectDeps(e kconfig.Expr, out map[string]bool) {
	kconfig.CollectExprDeps(e, out)
}

// scc is one strongly connected component: its members in Table order, and
// the name used to index it in the condensation graph (the member with the
// lowest Table index, for deterministic tie-breaking).
type scc struct {
	members []string
	repr    string
}

// tarjanSCC runs Tarjan's algorithm over g, returning SCCs in an order
// consistent with reverse-postorder discovery (not yet topologically
// sorted relative to inter-SCC edges; layerize does that).
func tarjanSCC(g *graph) []*scc {
	index := make(map[string]int)
	low := make(map[string]int)
	onStack := make(map[string]bool)
	var stack []string
	counter := 0
	var sccs []*scc

	var strongconnect func(v string)
	strongconnect = func(v string) {
		index[v] = counter
		low[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges[v] {
			if _, visited := index[w]; !visited {
				strongconnect(w)
				if low[w] < low[v] {
					low[v] = low[w]
				}
			} else if onStack[w] {
				if index[w] < low[v] {
					low[v] = index[w]
				}
			}
		}

		if low[v] == index[v] {
			var members []string
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				members = append(members, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, newSCC(g, members))
		}
	}

	for _, v := range g.nodes {
		if _, visited := index[v]; !visited {
			strongconnect(v)
		}
	}

	return sccs
}

func newSCC(g *graph, members []string) *scc {
	sort.Slice(members, func(i, j int) bool { return g.index[members[i]] < g.index[members[j]] })
	return &scc{members: members, repr: members[0]}
}

// layers is the final product of §4.5: an ordered list of symbol groups,
// layers[0] depending on nobody, layers[len-1] the "top".
type layers [][]string

// layerize collapses g into SCCs and assigns each one a layer index via
// Kahn-style level peeling over the condensation graph: a node's layer is
// one more than the maximum layer among its dependencies (nodes with no
// dependencies land in layer 0). Ties within a layer are broken by the
// lowest Table index among the SCC's members.
func layerize(g *graph) layers {
	sccs := tarjanSCC(g)

	memberOf := make(map[string]*scc, len(g.nodes))
	for _, s := range sccs {
		for _, m := range s.members {
			memberOf[m] = s
		}
	}

	// condensation edges: repr(s) -> repr(dep-scc), deduplicated.
	condEdges := make(map[string]map[string]bool)
	indegree := make(map[string]int)
	for _, s := range sccs {
		condEdges[s.repr] = make(map[string]bool)
		indegree[s.repr] = 0
	}
	for _, s := range sccs {
		for _, m := range s.members {
			for _, dep := range g.edges[m] {
				depSCC := memberOf[dep]
				if depSCC == nil || depSCC == s {
					continue
				}
				if !condEdges[s.repr][depSCC.repr] {
					condEdges[s.repr][depSCC.repr] = true
				}
			}
		}
	}
	// Build reverse edges (dep -> dependent) for Kahn peeling, and count
	// in-degree as "number of not-yet-placed prerequisites".
	reverse := make(map[string][]string)
	for from, tos := range condEdges {
		for to := range tos {
			reverse[to] = append(reverse[to], from)
			indegree[from]++
		}
	}

	byRepr := make(map[string]*scc, len(sccs))
	for _, s := range sccs {
		byRepr[s.repr] = s
	}

	var out layers
	remaining := make(map[string]bool, len(sccs))
	for _, s := range sccs {
		remaining[s.repr] = true
	}

	for len(remaining) > 0 {
		var frontier []string
		for repr := range remaining {
			if indegree[repr] == 0 {
				frontier = append(frontier, repr)
			}
		}
		sort.Slice(frontier, func(i, j int) bool { return g.index[frontier[i]] < g.index[frontier[j]] })

		var layerMembers []string
		for _, repr := range frontier {
			layerMembers = append(layerMembers, byRepr[repr].members...)
			delete(remaining, repr)
			for _, dependent := range reverse[repr] {
				indegree[dependent]--
			}
		}
		sort.Slice(layerMembers, func(i, j int) bool { return g.index[layerMembers[i]] < g.index[layerMembers[j]] })
		out = append(out, layerMembers)
	}

	return out
}
