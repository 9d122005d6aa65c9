package dot

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-graphviz"
)

// DotAttrs maps attribute names to values on a node or an edge.
type DotAttrs map[string]string

func (p DotAttrs) List() []string {
	l := []string{}
	for k, v := range p {
		l = append(l, fmt.Sprintf("%s=%q", k, v))
	}
	sort.Strings(l)
	return l
}

func (p DotAttrs) String() string {
	return strings.Join(p.List(), " ")
}

type DotNode struct {
	ID    string
	Attrs DotAttrs
}

func (n *DotNode) String() string {
	return fmt.Sprintf("%q [%s]", n.ID, n.Attrs)
}

type DotEdge struct {
	From  *DotNode
	To    *DotNode
	Attrs DotAttrs
}

type DotGraph struct {
	Title   string
	Options map[string]string
	Nodes   []*DotNode
	Edges   []*DotEdge
}

// Write renders the graph in the dot format.
func (g *DotGraph) Write(w *bytes.Buffer) {
	fmt.Fprintf(w, "digraph %q {\n", g.Title)
	for _, k := range sortedKeys(g.Options) {
		fmt.Fprintf(w, "\t%s=%q;\n", k, g.Options[k])
	}
	for _, n := range g.Nodes {
		fmt.Fprintf(w, "\t%s;\n", n)
	}
	for _, e := range g.Edges {
		fmt.Fprintf(w, "\t%q -> %q [%s];\n", e.From.ID, e.To.ID, e.Attrs)
	}
	fmt.Fprintln(w, "}")
}

func (g *DotGraph) String() string {
	var buf bytes.Buffer
	g.Write(&buf)
	return buf.String()
}

func sortedKeys(mp map[string]string) []string {
	keys := make([]string, 0, len(mp))
	for k := range mp {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DotToImage renders the given dot source to an image file with the
// requested format, returning the path of the written file.
func DotToImage(outfname string, format string, dot []byte) (string, error) {
	g := graphviz.New()
	graph, err := graphviz.ParseBytes(dot)
	if err != nil {
		return "", fmt.Errorf("could not parse dot source: %w", err)
	}

	img := fmt.Sprintf("%s.%s", outfname, format)
	if err := g.RenderFilename(graph, graphviz.Format(format), img); err != nil {
		return "", fmt.Errorf("could not render %s: %w", img, err)
	}
	return img, nil
}
