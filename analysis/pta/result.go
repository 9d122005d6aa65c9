package pta

import (
	"github.com/takin-dev/takin/analysis/callgraph"
	"github.com/takin-dev/takin/analysis/defs"
	"github.com/takin-dev/takin/analysis/heap"
	"github.com/takin-dev/takin/ir"
)

// Result exposes the pointer analysis facts: points-to sets by
// variable or context-qualified variable, the call graph in both the
// context-sensitive and collapsed views, and a store for auxiliary
// results keyed by id. Only queried after Solve has returned.
type Result struct {
	mgr *defs.CSManager
	pfg *PointerFlowGraph
	cg  *callgraph.Graph[*defs.CSCallSite, *defs.CSMethod]

	ciCG *callgraph.Graph[*ir.Invoke, *ir.Method]
	aux  map[string]any
}

func newResult(mgr *defs.CSManager, pfg *PointerFlowGraph,
	cg *callgraph.Graph[*defs.CSCallSite, *defs.CSMethod]) *Result {
	return &Result{mgr: mgr, pfg: pfg, cg: cg, aux: make(map[string]any)}
}

// CSManager returns the canonicalization manager of the solve.
func (r *Result) CSManager() *defs.CSManager { return r.mgr }

// PFG returns the pointer-flow graph.
func (r *Result) PFG() *PointerFlowGraph { return r.pfg }

// CallGraph returns the context-sensitive call graph.
func (r *Result) CallGraph() *callgraph.Graph[*defs.CSCallSite, *defs.CSMethod] { return r.cg }

// PtsCSVar returns the points-to set of a context-qualified variable.
func (r *Result) PtsCSVar(p *defs.CSVar) []*defs.CSObj { return p.PointsToSet().Objects() }

// PtsVar returns the context-merged points-to set of a variable.
func (r *Result) PtsVar(v *ir.Var) []*defs.CSObj {
	merged := r.mgr.NewPointsToSet()
	for _, p := range r.mgr.CSVarsOf(v) {
		p.PointsToSet().ForEach(func(o *defs.CSObj) { merged.AddObject(o) })
	}
	return merged.Objects()
}

// PtsObjs returns the distinct heap objects a variable may point to,
// with heap contexts stripped.
func (r *Result) PtsObjs(v *ir.Var) []*heap.Obj {
	seen := make(map[*heap.Obj]bool)
	var objs []*heap.Obj
	for _, o := range r.PtsVar(v) {
		if !seen[o.Obj()] {
			seen[o.Obj()] = true
			objs = append(objs, o.Obj())
		}
	}
	return objs
}

// Vars returns every variable that received a pointer during the
// solve, in discovery order.
func (r *Result) Vars() []*ir.Var {
	seen := make(map[*ir.Var]bool)
	var vars []*ir.Var
	for _, p := range r.mgr.CSVars() {
		if !seen[p.Var()] {
			seen[p.Var()] = true
			vars = append(vars, p.Var())
		}
	}
	return vars
}

// CSVars returns every context-qualified variable, in discovery order.
func (r *Result) CSVars() []*defs.CSVar { return r.mgr.CSVars() }

// CIResult is the context-collapsed view of a pointer analysis:
// the pointer-flow graph plus a call graph over plain call sites and
// methods.
type CIResult struct {
	PFG       *PointerFlowGraph
	CallGraph *callgraph.Graph[*ir.Invoke, *ir.Method]
}

// CI returns the context-collapsed view, building it on first use.
func (r *Result) CI() *CIResult {
	return &CIResult{PFG: r.pfg, CallGraph: r.CICallGraph()}
}

// CICallGraph collapses the context-sensitive call graph onto plain
// call sites and methods.
func (r *Result) CICallGraph() *callgraph.Graph[*ir.Invoke, *ir.Method] {
	if r.ciCG != nil {
		return r.ciCG
	}
	g := callgraph.NewGraph[*ir.Invoke, *ir.Method]()
	for _, m := range r.cg.Entries() {
		g.AddEntry(m.Method())
	}
	for _, m := range r.cg.ReachableMethods() {
		g.AddReachableMethod(m.Method())
	}
	for _, e := range r.cg.Edges() {
		g.AddEdge(callgraph.Edge[*ir.Invoke, *ir.Method]{
			Kind:   e.Kind,
			Site:   e.Site.Site(),
			Callee: e.Callee.Method(),
		})
	}
	r.ciCG = g
	return g
}

// StoreResult saves an auxiliary result (e.g. taint flows) under id.
func (r *Result) StoreResult(id string, v any) { r.aux[id] = v }

// GetResult fetches an auxiliary result by id.
func (r *Result) GetResult(id string) (any, bool) {
	v, ok := r.aux[id]
	return v, ok
}
