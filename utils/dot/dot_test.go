package dot

import (
	"strings"
	"testing"
)

func TestDotGraphWrite(t *testing.T) {
	a := &DotNode{ID: "a", Attrs: DotAttrs{"shape": "box"}}
	b := &DotNode{ID: "b", Attrs: DotAttrs{"shape": "ellipse", "label": "B"}}
	g := &DotGraph{
		Title:   "g",
		Options: map[string]string{"rankdir": "LR"},
		Nodes:   []*DotNode{a, b},
		Edges:   []*DotEdge{{From: a, To: b, Attrs: DotAttrs{"style": "bold"}}},
	}

	out := g.String()
	for _, want := range []string{
		"digraph \"g\" {",
		"rankdir=\"LR\";",
		"\"a\" [shape=\"box\"];",
		"\"b\" [label=\"B\" shape=\"ellipse\"];",
		"\"a\" -> \"b\" [style=\"bold\"];",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dot output misses %q:\n%s", want, out)
		}
	}
}
