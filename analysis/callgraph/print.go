package callgraph

import (
	"bytes"
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/takin-dev/takin/ir"
)

// Dump renders the call graph as stable text: reachable methods first,
// then edges, both in sorted order.
func Dump(g *Graph[*ir.Invoke, *ir.Method]) []byte {
	var buf bytes.Buffer

	methods := make([]string, 0, len(g.ReachableMethods()))
	for _, m := range g.ReachableMethods() {
		methods = append(methods, m.String())
	}
	slices.Sort(methods)
	fmt.Fprintf(&buf, "reachable (%d):\n", len(methods))
	for _, m := range methods {
		fmt.Fprintf(&buf, "  %s\n", m)
	}

	edges := make([]string, 0, len(g.Edges()))
	for _, e := range g.Edges() {
		edges = append(edges, fmt.Sprintf("  %s -> %s [%s]\n", e.Site.SiteString(), e.Callee, e.Kind))
	}
	slices.Sort(edges)
	fmt.Fprintf(&buf, "edges (%d):\n", len(edges))
	for _, e := range edges {
		buf.WriteString(e)
	}
	return buf.Bytes()
}
