package taint

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"github.com/takin-dev/takin/analysis/defs"
	"github.com/takin-dev/takin/analysis/pta"
	"github.com/takin-dev/takin/ir"
)

// ID under which the taint flows register in the pointer analysis
// result store.
const ID = "taint"

// Flow is a detected taint flow: a taint object born at Source reached
// argument Index of the Sink call.
type Flow struct {
	Source *ir.Invoke
	Sink   *ir.Invoke
	Index  int
}

func (f Flow) String() string {
	return fmt.Sprintf("%s -> %s arg %d", f.Source.SiteString(), f.Sink.SiteString(), f.Index)
}

// Analysis is the taint pipeline. It co-iterates with the
// context-sensitive pointer analysis as its plugin: sources inject
// taint objects at call results, transfers forward them along
// points-to facts, and sinks are collected once the solver finishes.
type Analysis struct {
	cfg    *Config
	solver *pta.Solver
	mgr    *defs.CSManager
	empty  *defs.Context
}

// New loads the taint configuration and attaches the pipeline to the
// solver.
func New(solver *pta.Solver, configPath string) (*Analysis, error) {
	cfg, err := LoadConfig(configPath, solver.Program())
	if err != nil {
		return nil, err
	}
	a := &Analysis{
		cfg:    cfg,
		solver: solver,
		mgr:    solver.CSManager(),
		empty:  solver.Selector().EmptyContext(),
	}
	solver.SetPlugin(a)
	return a, nil
}

// declaredCallee resolves the call-site reference without dispatch;
// source, transfer and sink rules match on the declared method.
func declaredCallee(invoke *ir.Invoke) *ir.Method {
	return invoke.Ref.Declared()
}

// ProcessSource returns the taint objects born at a call site: one per
// matching source rule, placed under the empty heap context.
func (a *Analysis) ProcessSource(invoke *ir.Invoke) []*defs.CSObj {
	callee := declaredCallee(invoke)
	if callee == nil {
		return nil
	}
	var objs []*defs.CSObj
	for _, src := range a.cfg.Sources {
		if src.method == callee && src.typ == callee.ReturnType() {
			taintObj := a.solver.HeapModel().MakeTaint(invoke, src.typ)
			objs = append(objs, a.mgr.GetCSObj(a.empty, taintObj))
		}
	}
	return objs
}

// ProcessTransfer applies the matching transfer rules at a call site:
// base-to-result, argument-to-base and argument-to-result. Taint found
// in the source position's points-to set is re-tagged and enqueued at
// the target pointer.
func (a *Analysis) ProcessTransfer(ctx *defs.Context, recv *ir.Var, result *ir.Var, invoke *ir.Invoke) {
	callee := declaredCallee(invoke)
	if callee == nil {
		return
	}
	for _, tf := range a.cfg.Transfers {
		if tf.method != callee {
			continue
		}
		switch {
		case tf.From == PosBase && tf.To == PosResult:
			if recv != nil && result != nil {
				a.transfer(a.mgr.GetCSVar(ctx, recv), a.mgr.GetCSVar(ctx, result), tf.typ)
			}
		case tf.From >= 0 && tf.To == PosBase:
			if recv != nil && int(tf.From) < len(invoke.Args) {
				a.transfer(
					a.mgr.GetCSVar(ctx, invoke.Args[tf.From]),
					a.mgr.GetCSVar(ctx, recv), tf.typ)
			}
		case tf.From >= 0 && tf.To == PosResult:
			if result != nil && int(tf.From) < len(invoke.Args) {
				a.transfer(
					a.mgr.GetCSVar(ctx, invoke.Args[tf.From]),
					a.mgr.GetCSVar(ctx, result), tf.typ)
			}
		}
	}
}

// transfer re-tags every taint object in from's points-to set and
// enqueues it at to.
func (a *Analysis) transfer(from, to *defs.CSVar, typ ir.Type) {
	from.PointsToSet().ForEach(func(csObj *defs.CSObj) {
		obj := csObj.Obj()
		if !obj.IsTaint() {
			return
		}
		retagged := a.solver.HeapModel().MakeTaint(obj.SourceCall(), typ)
		a.solver.AddEntry(to, a.mgr.GetCSObj(a.empty, retagged))
	})
}

// OnFinish collects the taint flows into the result store.
func (a *Analysis) OnFinish(res *pta.Result) {
	flows := a.collectFlows(res)
	res.StoreResult(ID, flows)
	log.Debugf("taint analysis found %d flows", len(flows))
}

func (a *Analysis) collectFlows(res *pta.Result) []Flow {
	seen := make(map[Flow]bool)
	var flows []Flow
	for _, edge := range res.CallGraph().Edges() {
		for _, sink := range a.cfg.Sinks {
			if sink.method != edge.Callee.Method() {
				continue
			}
			sinkCall := edge.Site.Site()
			if sink.Index >= len(sinkCall.Args) {
				continue
			}
			arg := a.mgr.GetCSVar(edge.Site.Context(), sinkCall.Args[sink.Index])
			arg.PointsToSet().ForEach(func(csObj *defs.CSObj) {
				obj := csObj.Obj()
				if !obj.IsTaint() {
					return
				}
				f := Flow{Source: obj.SourceCall(), Sink: sinkCall, Index: sink.Index}
				if !seen[f] {
					seen[f] = true
					flows = append(flows, f)
				}
			})
		}
	}
	slices.SortFunc(flows, func(a, b Flow) bool {
		if a.Source != b.Source {
			return a.Source.SiteString() < b.Source.SiteString()
		}
		if a.Sink != b.Sink {
			return a.Sink.SiteString() < b.Sink.SiteString()
		}
		return a.Index < b.Index
	})
	return flows
}
