package cfg

import (
	"github.com/takin-dev/takin/analysis/callgraph"
	"github.com/takin-dev/takin/ir"
)

// ICFGEdgeKind classifies inter-procedural control-flow edges.
type ICFGEdgeKind uint8

const (
	EdgeNormal ICFGEdgeKind = iota
	EdgeCall
	EdgeCallToReturn
	EdgeReturn
)

func (k ICFGEdgeKind) String() string {
	switch k {
	case EdgeNormal:
		return "normal"
	case EdgeCall:
		return "call"
	case EdgeCallToReturn:
		return "call-to-return"
	default:
		return "return"
	}
}

// ICFGEdge is an edge of the inter-procedural CFG. Call edges carry
// the callee and the call site; call-to-return edges carry the call
// site; return edges carry the callee, the call site and the return
// variables of the callee.
type ICFGEdge struct {
	Kind   ICFGEdgeKind
	Source ir.Stmt
	Target ir.Stmt

	Callee     *ir.Method // call and return edges
	CallSite   *ir.Invoke // call, call-to-return and return edges
	ReturnVars []*ir.Var  // return edges
}

// ICFG glues the CFGs of all reachable methods together along the
// call-graph edges.
type ICFG struct {
	cfgs       map[*ir.Method]*Cfg
	nodes      []ir.Stmt
	out        map[ir.Stmt][]*ICFGEdge
	in         map[ir.Stmt][]*ICFGEdge
	containing map[ir.Stmt]*ir.Method
	entries    []*ir.Method
}

// BuildICFG assembles the ICFG of all methods reachable in the given
// call graph.
func BuildICFG(cg *callgraph.Graph[*ir.Invoke, *ir.Method]) *ICFG {
	g := &ICFG{
		cfgs:       make(map[*ir.Method]*Cfg),
		out:        make(map[ir.Stmt][]*ICFGEdge),
		in:         make(map[ir.Stmt][]*ICFGEdge),
		containing: make(map[ir.Stmt]*ir.Method),
		entries:    cg.Entries(),
	}

	for _, m := range cg.ReachableMethods() {
		if m.IsAbstract() {
			continue
		}
		c := Build(m)
		g.cfgs[m] = c
		for _, n := range c.Nodes() {
			g.nodes = append(g.nodes, n)
			g.containing[n] = m
		}
	}

	// Intra-procedural edges: edges out of a call site become
	// call-to-return edges, everything else is normal.
	for _, m := range cg.ReachableMethods() {
		c := g.cfgs[m]
		if c == nil {
			continue
		}
		for _, n := range c.Nodes() {
			for _, e := range c.OutEdgesOf(n) {
				kind := EdgeNormal
				var site *ir.Invoke
				if inv, ok := n.(*ir.Invoke); ok {
					kind = EdgeCallToReturn
					site = inv
				}
				g.addEdge(&ICFGEdge{Kind: kind, Source: e.Source, Target: e.Target, CallSite: site})
			}
		}
	}

	// Inter-procedural edges from the call graph.
	for _, e := range cg.Edges() {
		calleeCfg := g.cfgs[e.Callee]
		if calleeCfg == nil {
			continue
		}
		callerCfg := g.cfgs[e.Site.Container()]
		g.addEdge(&ICFGEdge{
			Kind:     EdgeCall,
			Source:   e.Site,
			Target:   calleeCfg.Entry(),
			Callee:   e.Callee,
			CallSite: e.Site,
		})
		for _, retSite := range callerCfg.SuccsOf(e.Site) {
			g.addEdge(&ICFGEdge{
				Kind:       EdgeReturn,
				Source:     calleeCfg.Exit(),
				Target:     retSite,
				Callee:     e.Callee,
				CallSite:   e.Site,
				ReturnVars: e.Callee.ReturnVars(),
			})
		}
	}
	return g
}

func (g *ICFG) addEdge(e *ICFGEdge) {
	g.out[e.Source] = append(g.out[e.Source], e)
	g.in[e.Target] = append(g.in[e.Target], e)
}

// Nodes returns all ICFG nodes in deterministic order.
func (g *ICFG) Nodes() []ir.Stmt { return g.nodes }

// EntryMethods returns the entry methods of the program.
func (g *ICFG) EntryMethods() []*ir.Method { return g.entries }

// EntryOf returns the entry node of a method's CFG.
func (g *ICFG) EntryOf(m *ir.Method) ir.Stmt { return g.cfgs[m].Entry() }

// CfgOf returns the intra-procedural CFG of m.
func (g *ICFG) CfgOf(m *ir.Method) *Cfg { return g.cfgs[m] }

// ContainingMethodOf returns the method whose CFG contains the node.
func (g *ICFG) ContainingMethodOf(s ir.Stmt) *ir.Method { return g.containing[s] }

func (g *ICFG) OutEdgesOf(s ir.Stmt) []*ICFGEdge { return g.out[s] }
func (g *ICFG) InEdgesOf(s ir.Stmt) []*ICFGEdge  { return g.in[s] }

func (g *ICFG) SuccsOf(s ir.Stmt) []ir.Stmt {
	succs := make([]ir.Stmt, 0, len(g.out[s]))
	for _, e := range g.out[s] {
		succs = append(succs, e.Target)
	}
	return succs
}
