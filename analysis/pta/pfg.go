package pta

import (
	"github.com/takin-dev/takin/analysis/defs"
)

// PointerFlowGraph is the directed graph over pointers whose edges
// u → v assert pts(u) ⊆ pts(v) at the fixed point.
type PointerFlowGraph struct {
	succs   map[defs.Pointer][]defs.Pointer
	edgeSet map[pfgEdge]bool
	nodes   []defs.Pointer
	nodeSet map[defs.Pointer]bool
}

type pfgEdge struct {
	source defs.Pointer
	target defs.Pointer
}

func NewPointerFlowGraph() *PointerFlowGraph {
	return &PointerFlowGraph{
		succs:   make(map[defs.Pointer][]defs.Pointer),
		edgeSet: make(map[pfgEdge]bool),
		nodeSet: make(map[defs.Pointer]bool),
	}
}

// AddEdge inserts the edge source → target, reporting whether it was
// new. Idempotent.
func (g *PointerFlowGraph) AddEdge(source, target defs.Pointer) bool {
	e := pfgEdge{source, target}
	if g.edgeSet[e] {
		return false
	}
	g.edgeSet[e] = true
	g.succs[source] = append(g.succs[source], target)
	g.addNode(source)
	g.addNode(target)
	return true
}

func (g *PointerFlowGraph) addNode(p defs.Pointer) {
	if !g.nodeSet[p] {
		g.nodeSet[p] = true
		g.nodes = append(g.nodes, p)
	}
}

// SuccsOf returns the successors of p in insertion order.
func (g *PointerFlowGraph) SuccsOf(p defs.Pointer) []defs.Pointer { return g.succs[p] }

// Nodes returns every pointer that occurs on some edge.
func (g *PointerFlowGraph) Nodes() []defs.Pointer { return g.nodes }
