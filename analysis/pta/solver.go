package pta

import (
	log "github.com/sirupsen/logrus"

	"github.com/takin-dev/takin/analysis/callgraph"
	"github.com/takin-dev/takin/analysis/defs"
	"github.com/takin-dev/takin/analysis/heap"
	"github.com/takin-dev/takin/ir"
	"github.com/takin-dev/takin/utils/worklist"
)

// ID under which results of the analysis register.
const ID = "pta"

// WorklistEntry pairs a pointer with a points-to delta to absorb.
type WorklistEntry struct {
	Ptr defs.Pointer
	Pts *defs.PointsToSet
}

// Plugin hooks into the solver at call sites and variable updates. The
// taint pipeline is the one implementation; a nil plugin disables the
// hooks.
type Plugin interface {
	// ProcessSource yields the taint objects produced by a call site.
	ProcessSource(invoke *ir.Invoke) []*defs.CSObj
	// ProcessTransfer applies the transfer rules of a call site. recv
	// and result may be nil.
	ProcessTransfer(ctx *defs.Context, recv *ir.Var, result *ir.Var, invoke *ir.Invoke)
	// OnFinish runs after the fixed point has been reached.
	OnFinish(res *Result)
}

// Solver is the context-sensitive pointer analysis: a monotone fixed
// point over the pointer-flow graph, discovering callees, reachable
// methods and points-to facts mutually. The context-insensitive
// variant is this solver under the context-insensitive selector.
type Solver struct {
	program   *ir.Program
	heapModel *heap.Model
	selector  defs.ContextSelector
	resolver  *callgraph.Resolver

	mgr  *defs.CSManager
	cg   *callgraph.Graph[*defs.CSCallSite, *defs.CSMethod]
	pfg  *PointerFlowGraph
	work worklist.Worklist[WorklistEntry]

	plugin Plugin

	// call sites by argument variable, and receiver variables by call
	// site; maintained for the taint re-transfer rules
	argInvokes    map[*ir.Var][]*ir.Invoke
	argInvokeSeen map[argSiteKey]bool
	invokeBases   map[*ir.Invoke][]*ir.Var
	invokeBaseSet map[argBaseKey]bool

	result *Result
}

type argSiteKey struct {
	v   *ir.Var
	inv *ir.Invoke
}

type argBaseKey struct {
	inv *ir.Invoke
	v   *ir.Var
}

func NewSolver(program *ir.Program, heapModel *heap.Model, selector defs.ContextSelector) *Solver {
	return &Solver{
		program:       program,
		heapModel:     heapModel,
		selector:      selector,
		resolver:      callgraph.NewResolver(),
		mgr:           defs.NewCSManager(),
		cg:            callgraph.NewGraph[*defs.CSCallSite, *defs.CSMethod](),
		pfg:           NewPointerFlowGraph(),
		argInvokes:    make(map[*ir.Var][]*ir.Invoke),
		argInvokeSeen: make(map[argSiteKey]bool),
		invokeBases:   make(map[*ir.Invoke][]*ir.Var),
		invokeBaseSet: make(map[argBaseKey]bool),
	}
}

// SetPlugin installs the call-site plugin. Must happen before Solve.
func (s *Solver) SetPlugin(p Plugin) { s.plugin = p }

func (s *Solver) Program() *ir.Program           { return s.program }
func (s *Solver) CSManager() *defs.CSManager     { return s.mgr }
func (s *Solver) Selector() defs.ContextSelector { return s.selector }
func (s *Solver) HeapModel() *heap.Model         { return s.heapModel }

// AddEntry enqueues objects for a pointer; used by the plugin to
// inject taint objects. Nil arguments are ignored.
func (s *Solver) AddEntry(ptr defs.Pointer, objs ...*defs.CSObj) {
	if ptr == nil || len(objs) == 0 {
		return
	}
	s.work.Add(WorklistEntry{ptr, s.mgr.NewPointsToSet(objs...)})
}

// Solve runs the analysis from the program entry to its fixed point.
func (s *Solver) Solve() *Result {
	entry := s.program.Entry()
	if entry == nil {
		panic("pta: program has no entry method")
	}
	log.Debugf("pointer analysis starting from %s", entry)

	csEntry := s.mgr.GetCSMethod(s.selector.EmptyContext(), entry)
	s.cg.AddEntry(csEntry)
	s.addReachable(csEntry)
	s.analyze()

	s.result = newResult(s.mgr, s.pfg, s.cg)
	if s.plugin != nil {
		s.plugin.OnFinish(s.result)
	}
	log.Debugf("pointer analysis done: %d reachable methods, %d call edges",
		len(s.cg.ReachableMethods()), len(s.cg.Edges()))
	return s.result
}

// Result returns the analysis result; only valid after Solve.
func (s *Solver) Result() *Result { return s.result }

// addReachable marks a context-sensitive method reachable and visits
// its statements once, linking the context-free part of the PFG.
// Non-static field and array accesses and dynamic calls are deferred
// until the points-to set of their base variable grows.
func (s *Solver) addReachable(csMethod *defs.CSMethod) {
	if !s.cg.AddReachableMethod(csMethod) {
		return
	}
	ctx := csMethod.Context()
	for _, stmt := range csMethod.Method().Stmts() {
		switch stmt := stmt.(type) {
		case *ir.New:
			obj := s.heapModel.GetObj(stmt)
			hctx := s.selector.SelectHeapContext(csMethod, obj)
			s.work.Add(WorklistEntry{
				s.mgr.GetCSVar(ctx, stmt.L),
				s.mgr.NewPointsToSet(s.mgr.GetCSObj(hctx, obj)),
			})
		case *ir.Copy:
			s.addPFGEdge(s.mgr.GetCSVar(ctx, stmt.R), s.mgr.GetCSVar(ctx, stmt.L))
		case *ir.LoadField:
			if stmt.IsStatic() {
				s.addPFGEdge(s.mgr.GetStaticField(stmt.Field), s.mgr.GetCSVar(ctx, stmt.L))
			}
		case *ir.StoreField:
			if stmt.IsStatic() {
				s.addPFGEdge(s.mgr.GetCSVar(ctx, stmt.R), s.mgr.GetStaticField(stmt.Field))
			}
		case *ir.Invoke:
			for _, arg := range stmt.Args {
				s.recordArgInvoke(arg, stmt)
			}
			if stmt.Kind == ir.CallStatic {
				s.processSingleCall(ctx, stmt, nil, nil)
			}
		}
	}
}

// addPFGEdge inserts a PFG edge; on a genuinely new edge the current
// points-to snapshot of the source flows to the target.
func (s *Solver) addPFGEdge(source, target defs.Pointer) {
	if !s.pfg.AddEdge(source, target) {
		return
	}
	if !source.PointsToSet().IsEmpty() {
		snapshot := s.mgr.NewPointsToSet()
		source.PointsToSet().ForEach(func(o *defs.CSObj) { snapshot.AddObject(o) })
		s.work.Add(WorklistEntry{target, snapshot})
	}
}

// analyze drains the worklist to the fixed point.
func (s *Solver) analyze() {
	for !s.work.IsEmpty() {
		entry := s.work.GetNext()
		delta := s.propagate(entry.Ptr, entry.Pts)

		varPtr, ok := entry.Ptr.(*defs.CSVar)
		if !ok {
			continue
		}
		v, ctx := varPtr.Var(), varPtr.Context()
		delta.ForEach(func(csObj *defs.CSObj) {
			for _, st := range v.StoreFields() {
				s.addPFGEdge(s.mgr.GetCSVar(ctx, st.R), s.mgr.GetInstanceField(csObj, st.Field))
			}
			for _, ld := range v.LoadFields() {
				s.addPFGEdge(s.mgr.GetInstanceField(csObj, ld.Field), s.mgr.GetCSVar(ctx, ld.L))
			}
			for _, st := range v.StoreArrays() {
				s.addPFGEdge(s.mgr.GetCSVar(ctx, st.R), s.mgr.GetArrayIndex(csObj))
			}
			for _, ld := range v.LoadArrays() {
				s.addPFGEdge(s.mgr.GetArrayIndex(csObj), s.mgr.GetCSVar(ctx, ld.L))
			}
			s.processCall(varPtr, csObj)
		})

		// Re-run the transfer rules of every call site that takes the
		// updated variable as an argument.
		if s.plugin != nil {
			for _, inv := range s.argInvokes[v] {
				for _, recvVar := range s.invokeBases[inv] {
					s.plugin.ProcessTransfer(ctx, recvVar, inv.L, inv)
				}
				s.plugin.ProcessTransfer(ctx, nil, inv.L, inv)
			}
		}
	}
}

// propagate absorbs pts into the pointer's set and forwards the true
// delta to the PFG successors. Returns the delta.
func (s *Solver) propagate(ptr defs.Pointer, pts *defs.PointsToSet) *defs.PointsToSet {
	target := ptr.PointsToSet()
	delta := s.mgr.NewPointsToSet()
	pts.ForEach(func(o *defs.CSObj) {
		if !target.Contains(o) {
			delta.AddObject(o)
		}
	})
	if !delta.IsEmpty() {
		delta.ForEach(func(o *defs.CSObj) { target.AddObject(o) })
		for _, succ := range s.pfg.SuccsOf(ptr) {
			s.work.Add(WorklistEntry{succ, delta})
		}
	}
	return delta
}

// processCall handles the dynamic call sites of a receiver variable
// for one newly discovered receiver object.
func (s *Solver) processCall(recv *defs.CSVar, recvObj *defs.CSObj) {
	for _, invoke := range recv.Var().Invokes() {
		s.recordInvokeBase(invoke, recv.Var())
		s.processSingleCall(recv.Context(), invoke, recvObj, recv)
	}
}

// processSingleCall resolves one (call site, receiver object) pair,
// discovers the callee context, links arguments and returns, and runs
// the taint source and transfer rules. recvObj and recvVar are nil for
// static calls.
func (s *Solver) processSingleCall(ctx *defs.Context, invoke *ir.Invoke, recvObj *defs.CSObj, recvVar *defs.CSVar) {
	var recvType ir.Type
	if recvObj != nil {
		recvType = recvObj.Obj().Type()
	}
	callee := s.resolver.ResolveCallee(recvType, invoke)
	if callee != nil {
		csCallSite := s.mgr.GetCSCallSite(ctx, invoke)
		var targetCtx *defs.Context
		if recvObj != nil {
			targetCtx = s.selector.SelectContext(csCallSite, recvObj, callee)
		} else {
			targetCtx = s.selector.SelectStaticContext(csCallSite, callee)
		}
		csCallee := s.mgr.GetCSMethod(targetCtx, callee)

		if recvObj != nil {
			s.work.Add(WorklistEntry{
				s.mgr.GetCSVar(targetCtx, callee.This()),
				s.mgr.NewPointsToSet(recvObj),
			})
		}

		edge := callgraph.Edge[*defs.CSCallSite, *defs.CSMethod]{
			Kind: invoke.Kind, Site: csCallSite, Callee: csCallee,
		}
		if s.cg.AddEdge(edge) {
			s.addReachable(csCallee)
			params := callee.Params()
			if len(invoke.Args) != len(params) {
				panic("pta: argument count differs from parameter count at " + invoke.SiteString())
			}
			for i, arg := range invoke.Args {
				s.addPFGEdge(s.mgr.GetCSVar(ctx, arg), s.mgr.GetCSVar(targetCtx, params[i]))
			}
			if invoke.L != nil {
				for _, ret := range callee.ReturnVars() {
					s.addPFGEdge(s.mgr.GetCSVar(targetCtx, ret), s.mgr.GetCSVar(ctx, invoke.L))
				}
			}
		}
	}

	if s.plugin != nil {
		if invoke.L != nil {
			resultPtr := s.mgr.GetCSVar(ctx, invoke.L)
			for _, taintObj := range s.plugin.ProcessSource(invoke) {
				s.work.Add(WorklistEntry{resultPtr, s.mgr.NewPointsToSet(taintObj)})
			}
		}
		var recv *ir.Var
		if recvVar != nil {
			recv = recvVar.Var()
		}
		s.plugin.ProcessTransfer(ctx, recv, invoke.L, invoke)
	}
}

func (s *Solver) recordArgInvoke(arg *ir.Var, invoke *ir.Invoke) {
	key := argSiteKey{arg, invoke}
	if s.argInvokeSeen[key] {
		return
	}
	s.argInvokeSeen[key] = true
	s.argInvokes[arg] = append(s.argInvokes[arg], invoke)
}

func (s *Solver) recordInvokeBase(invoke *ir.Invoke, base *ir.Var) {
	key := argBaseKey{invoke, base}
	if s.invokeBaseSet[key] {
		return
	}
	s.invokeBaseSet[key] = true
	s.invokeBases[invoke] = append(s.invokeBases[invoke], base)
}
