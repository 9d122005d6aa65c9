package cfg

import (
	"fmt"

	"github.com/takin-dev/takin/ir"
)

// EdgeKind classifies intra-procedural control-flow edges.
type EdgeKind uint8

const (
	KindEntry EdgeKind = iota
	KindFallThrough
	KindGoto
	KindIfTrue
	KindIfFalse
	KindSwitchCase
	KindSwitchDefault
	KindReturn
)

func (k EdgeKind) String() string {
	switch k {
	case KindEntry:
		return "entry"
	case KindFallThrough:
		return "fall-through"
	case KindGoto:
		return "goto"
	case KindIfTrue:
		return "if-true"
	case KindIfFalse:
		return "if-false"
	case KindSwitchCase:
		return "switch-case"
	case KindSwitchDefault:
		return "switch-default"
	default:
		return "return"
	}
}

// Edge is a control-flow edge between two statements. CaseValue is
// only meaningful on switch-case edges.
type Edge struct {
	Kind      EdgeKind
	CaseValue int32
	Source    ir.Stmt
	Target    ir.Stmt
}

// Cfg is the control-flow graph of a single method body, with
// synthetic entry and exit nodes that carry no behavior.
type Cfg struct {
	method *ir.Method
	entry  ir.Stmt
	exit   ir.Stmt
	nodes  []ir.Stmt
	out    map[ir.Stmt][]*Edge
	in     map[ir.Stmt][]*Edge
}

func (g *Cfg) Method() *ir.Method { return g.method }
func (g *Cfg) Entry() ir.Stmt     { return g.entry }
func (g *Cfg) Exit() ir.Stmt      { return g.exit }

// Nodes returns all nodes: entry, the statements in order, exit.
func (g *Cfg) Nodes() []ir.Stmt { return g.nodes }

func (g *Cfg) OutEdgesOf(s ir.Stmt) []*Edge { return g.out[s] }
func (g *Cfg) InEdgesOf(s ir.Stmt) []*Edge  { return g.in[s] }

func (g *Cfg) SuccsOf(s ir.Stmt) []ir.Stmt {
	succs := make([]ir.Stmt, 0, len(g.out[s]))
	for _, e := range g.out[s] {
		succs = append(succs, e.Target)
	}
	return succs
}

func (g *Cfg) PredsOf(s ir.Stmt) []ir.Stmt {
	preds := make([]ir.Stmt, 0, len(g.in[s]))
	for _, e := range g.in[s] {
		preds = append(preds, e.Source)
	}
	return preds
}

// IsEntryOrExit reports whether s is one of the synthetic nodes.
func (g *Cfg) IsEntryOrExit(s ir.Stmt) bool { return s == g.entry || s == g.exit }

func (g *Cfg) addEdge(kind EdgeKind, caseValue int32, from, to ir.Stmt) {
	e := &Edge{Kind: kind, CaseValue: caseValue, Source: from, Target: to}
	g.out[from] = append(g.out[from], e)
	g.in[to] = append(g.in[to], e)
}

// Build constructs the CFG of a method body. Branch targets are
// statement indices; a target one past the last statement flows to the
// exit node.
func Build(m *ir.Method) *Cfg {
	stmts := m.Stmts()
	g := &Cfg{
		method: m,
		entry:  ir.NewSyntheticNop(-1),
		exit:   ir.NewSyntheticNop(len(stmts)),
		out:    make(map[ir.Stmt][]*Edge),
		in:     make(map[ir.Stmt][]*Edge),
	}
	g.nodes = append(g.nodes, g.entry)
	g.nodes = append(g.nodes, stmts...)
	g.nodes = append(g.nodes, g.exit)

	at := func(i int) ir.Stmt {
		if i < 0 || i > len(stmts) {
			panic(fmt.Sprintf("%s: branch target %d out of range", m, i))
		}
		if i == len(stmts) {
			return g.exit
		}
		return stmts[i]
	}

	if len(stmts) == 0 {
		g.addEdge(KindEntry, 0, g.entry, g.exit)
		return g
	}
	g.addEdge(KindEntry, 0, g.entry, stmts[0])

	for i, s := range stmts {
		switch s := s.(type) {
		case *ir.If:
			g.addEdge(KindIfTrue, 0, s, at(s.Target))
			g.addEdge(KindIfFalse, 0, s, at(i+1))
		case *ir.Goto:
			g.addEdge(KindGoto, 0, s, at(s.Target))
		case *ir.Switch:
			for _, cs := range s.Cases {
				g.addEdge(KindSwitchCase, cs.Value, s, at(cs.Target))
			}
			g.addEdge(KindSwitchDefault, 0, s, at(s.Default))
		case *ir.Return:
			g.addEdge(KindReturn, 0, s, g.exit)
		default:
			g.addEdge(KindFallThrough, 0, s, at(i+1))
		}
	}
	return g
}
