package callgraph

import (
	"github.com/takin-dev/takin/ir"
)

// Edge is a resolved call: a call site of some kind targeting a callee.
type Edge[S comparable, M comparable] struct {
	Kind   ir.CallKind
	Site   S
	Callee M
}

// Graph is a call graph over call sites S and methods M. Both the CHA
// builder (sites are invokes, methods are IR methods) and the pointer
// analysis (context-sensitive sites and methods) instantiate it.
// All additions are idempotent and preserve insertion order, so
// iteration is deterministic.
type Graph[S comparable, M comparable] struct {
	entries   []M
	reachable map[M]bool
	methods   []M
	edgeSet   map[Edge[S, M]]bool
	edges     []Edge[S, M]
	callees   map[S][]M
}

func NewGraph[S comparable, M comparable]() *Graph[S, M] {
	return &Graph[S, M]{
		reachable: make(map[M]bool),
		edgeSet:   make(map[Edge[S, M]]bool),
		callees:   make(map[S][]M),
	}
}

// AddEntry registers an entry method.
func (g *Graph[S, M]) AddEntry(m M) {
	g.entries = append(g.entries, m)
}

// Entries returns the entry methods.
func (g *Graph[S, M]) Entries() []M { return g.entries }

// AddReachableMethod marks m reachable and reports whether it was new.
func (g *Graph[S, M]) AddReachableMethod(m M) bool {
	if g.reachable[m] {
		return false
	}
	g.reachable[m] = true
	g.methods = append(g.methods, m)
	return true
}

// Contains reports whether m is reachable.
func (g *Graph[S, M]) Contains(m M) bool { return g.reachable[m] }

// ReachableMethods returns the reachable methods in discovery order.
func (g *Graph[S, M]) ReachableMethods() []M { return g.methods }

// AddEdge inserts a call edge and reports whether it was new.
func (g *Graph[S, M]) AddEdge(e Edge[S, M]) bool {
	if g.edgeSet[e] {
		return false
	}
	g.edgeSet[e] = true
	g.edges = append(g.edges, e)
	g.callees[e.Site] = append(g.callees[e.Site], e.Callee)
	return true
}

// Edges returns all call edges in insertion order.
func (g *Graph[S, M]) Edges() []Edge[S, M] { return g.edges }

// CalleesOf returns the resolved callees of a call site.
func (g *Graph[S, M]) CalleesOf(site S) []M { return g.callees[site] }
