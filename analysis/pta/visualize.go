package pta

import (
	"fmt"

	"github.com/takin-dev/takin/analysis/defs"
	"github.com/takin-dev/takin/utils/dot"
)

// Visualize creates a dot graph of the pointer-flow graph, with one
// node per pointer annotated by its points-to set size.
func (g *PointerFlowGraph) Visualize() *dot.DotGraph {
	G := &dot.DotGraph{
		Title: "pfg",
		Options: map[string]string{
			"rankdir": "LR",
		},
	}

	nodeOf := make(map[defs.Pointer]*dot.DotNode)
	for _, p := range g.Nodes() {
		n := &dot.DotNode{
			ID: p.String(),
			Attrs: dot.DotAttrs{
				"label": fmt.Sprintf("%s (%d)", p, p.PointsToSet().Len()),
				"shape": shapeOf(p),
			},
		}
		nodeOf[p] = n
		G.Nodes = append(G.Nodes, n)
	}
	for _, p := range g.Nodes() {
		for _, succ := range g.SuccsOf(p) {
			G.Edges = append(G.Edges, &dot.DotEdge{From: nodeOf[p], To: nodeOf[succ]})
		}
	}
	return G
}

func shapeOf(p defs.Pointer) string {
	switch p.(type) {
	case *defs.CSVar:
		return "ellipse"
	case *defs.StaticField:
		return "diamond"
	default:
		return "box"
	}
}
