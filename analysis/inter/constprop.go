package inter

import (
	"fmt"

	"github.com/takin-dev/takin/analysis/cfg"
	"github.com/takin-dev/takin/analysis/constprop"
	"github.com/takin-dev/takin/analysis/heap"
	"github.com/takin-dev/takin/analysis/lattice"
	"github.com/takin-dev/takin/analysis/pta"
	"github.com/takin-dev/takin/analysis/registry"
	"github.com/takin-dev/takin/ir"
)

// ID under which results of the analysis register.
const ID = "inter-constprop"

// ConstProp is inter-procedural constant propagation over the ICFG,
// with alias-aware field and array values backed by the
// context-insensitive points-to result.
type ConstProp struct {
	cp  *constprop.Analysis
	pta *pta.Result

	// reverse points-to and per-variable points-to sets
	rPts   map[*heap.Obj][]*ir.Var
	ptsSet map[*ir.Var]map[*heap.Obj]bool
	objs   []*heap.Obj

	aliases *aliasClasses

	// abstract heap values; the nil object keys static fields
	objFieldConst     map[objFieldKey]lattice.Value
	fieldAccessConst  map[*ir.LoadField]lattice.Value
	staticStoreToLoad map[*ir.Field][]*ir.LoadField
	objElemConst      map[objElemKey]lattice.Value

	// (object, index value) pairs observed by each array load
	observed    map[*ir.LoadArray][]objElemKey
	observedSet map[loadPairKey]bool

	// wired by the inter solver before draining
	enqueue func(ir.Stmt)
}

type objFieldKey struct {
	obj   *heap.Obj
	field *ir.Field
}

type objElemKey struct {
	obj   *heap.Obj
	index lattice.Value
}

type loadPairKey struct {
	load *ir.LoadArray
	pair objElemKey
}

// NewConstProp builds the analysis from the options bag. The `pta` key
// names a prior pointer analysis result in the registry; it is a
// configuration error when missing. Unrecognized keys are ignored.
func NewConstProp(reg *registry.Registry, opts registry.Options) (*ConstProp, error) {
	ptaID, ok := opts.String("pta")
	if !ok {
		return nil, fmt.Errorf("inter-constprop: missing pta option")
	}
	res, ok := reg.Get(ptaID)
	if !ok {
		return nil, fmt.Errorf("inter-constprop: no analysis result with id %q", ptaID)
	}
	ptaRes, ok := res.(*pta.Result)
	if !ok {
		return nil, fmt.Errorf("inter-constprop: result %q is not a pointer analysis result", ptaID)
	}
	a := &ConstProp{
		pta:               ptaRes,
		rPts:              make(map[*heap.Obj][]*ir.Var),
		ptsSet:            make(map[*ir.Var]map[*heap.Obj]bool),
		objFieldConst:     make(map[objFieldKey]lattice.Value),
		fieldAccessConst:  make(map[*ir.LoadField]lattice.Value),
		staticStoreToLoad: make(map[*ir.Field][]*ir.LoadField),
		objElemConst:      make(map[objElemKey]lattice.Value),
		observed:          make(map[*ir.LoadArray][]objElemKey),
		observedSet:       make(map[loadPairKey]bool),
	}
	a.cp = constprop.NewInter(a)
	return a, nil
}

// initialize builds the reverse points-to map, the alias classes and
// the static store-to-load index over the ICFG.
func (a *ConstProp) initialize(icfg *cfg.ICFG) {
	for _, v := range a.pta.Vars() {
		for _, o := range a.pta.PtsObjs(v) {
			if _, ok := a.ptsSet[v]; !ok {
				a.ptsSet[v] = make(map[*heap.Obj]bool)
			}
			if !a.ptsSet[v][o] {
				a.ptsSet[v][o] = true
				if len(a.rPts[o]) == 0 {
					a.objs = append(a.objs, o)
				}
				a.rPts[o] = append(a.rPts[o], v)
			}
		}
	}
	a.aliases = buildAliasClasses(a.rPts, a.objs)

	var staticLoads []*ir.LoadField
	for _, n := range icfg.Nodes() {
		if ld, ok := n.(*ir.LoadField); ok && ld.IsStatic() {
			staticLoads = append(staticLoads, ld)
		}
	}
	done := make(map[*ir.Field]bool)
	for _, n := range icfg.Nodes() {
		st, ok := n.(*ir.StoreField)
		if !ok || !st.IsStatic() || done[st.Field] {
			continue
		}
		done[st.Field] = true
		for _, ld := range staticLoads {
			if ld.Field == st.Field {
				a.staticStoreToLoad[st.Field] = append(a.staticStoreToLoad[st.Field], ld)
			}
		}
	}
}

func (a *ConstProp) pts(v *ir.Var) []*heap.Obj { return a.pta.PtsObjs(v) }

// EvalLoadField reads the abstract value of a field load.
func (a *ConstProp) EvalLoadField(s *ir.LoadField, in *lattice.CPFact) lattice.Value {
	if s.IsStatic() {
		return a.objFieldConst[objFieldKey{nil, s.Field}]
	}
	return a.fieldAccessConst[s]
}

// EvalLoadArray reads the abstract value of an array load: the meet of
// the cells observed at aliasing indices. An UNDEF index reads nothing.
func (a *ConstProp) EvalLoadArray(s *ir.LoadArray, in *lattice.CPFact) lattice.Value {
	iv := constprop.Evaluate(s.Idx, in)
	if iv.IsUndef() {
		return lattice.Undef()
	}
	res := lattice.Undef()
	for _, pair := range a.observed[s] {
		if aliasIndex(iv, pair.index) {
			res = lattice.Meet(res, a.getElem(pair.obj, iv))
		}
	}
	return res
}

// getElem reads the abstract array cell of obj at the given index
// value, folding in the NAC cell and the wildcard cell as required for
// soundness.
func (a *ConstProp) getElem(obj *heap.Obj, iv lattice.Value) lattice.Value {
	switch {
	case iv.IsUndef():
		return lattice.Undef()
	case iv.IsNAC():
		return lattice.Meet(
			a.objElemConst[objElemKey{obj, lattice.NAC()}],
			a.objElemConst[objElemKey{obj, lattice.Undef()}],
		)
	default:
		return lattice.Meet(
			a.objElemConst[objElemKey{obj, lattice.NAC()}],
			a.objElemConst[objElemKey{obj, iv}],
		)
	}
}

// aliasIndex is the commutative may-alias predicate on index values.
func aliasIndex(a, b lattice.Value) bool {
	switch {
	case a.IsUndef() || b.IsUndef():
		return false
	case a.IsNAC() || b.IsNAC():
		return true
	default:
		return a.Constant() == b.Constant()
	}
}

// OnStoreField absorbs an instance or static field store into the
// abstract heap and requeues the loads that may observe it.
func (a *ConstProp) OnStoreField(s *ir.StoreField, in *lattice.CPFact) {
	rv := constprop.Evaluate(s.R, in)

	if s.IsStatic() {
		key := objFieldKey{nil, s.Field}
		nv := lattice.Meet(a.objFieldConst[key], rv)
		if a.objFieldConst[key] == nv {
			return
		}
		a.objFieldConst[key] = nv
		for _, ld := range a.staticStoreToLoad[s.Field] {
			a.enqueue(ld)
		}
		return
	}

	for _, obj := range a.pts(s.Base) {
		key := objFieldKey{obj, s.Field}
		nv := lattice.Meet(a.objFieldConst[key], rv)
		if a.objFieldConst[key] == nv {
			continue
		}
		a.objFieldConst[key] = nv
		for _, ld := range a.aliases.loadFieldsOf(s.Base) {
			if ld.Field != s.Field || !a.ptsSet[ld.Base][obj] {
				continue
			}
			a.fieldAccessConst[ld] = lattice.Meet(a.fieldAccessConst[ld], nv)
			a.enqueue(ld)
		}
	}
}

// OnStoreArray absorbs an array store into the abstract heap. A store
// with an UNDEF index propagates nothing; a constant-indexed store
// also meets into the wildcard cell, which unknown-index reads
// consult.
func (a *ConstProp) OnStoreArray(s *ir.StoreArray, in *lattice.CPFact) {
	iv := constprop.Evaluate(s.Idx, in)
	if iv.IsUndef() {
		return
	}
	rv := constprop.Evaluate(s.R, in)

	for _, obj := range a.pts(s.Base) {
		key := objElemKey{obj, iv}
		nv := lattice.Meet(a.objElemConst[key], rv)
		if a.objElemConst[key] == nv {
			continue
		}
		a.objElemConst[key] = nv
		if iv.IsConstant() {
			wkey := objElemKey{obj, lattice.Undef()}
			a.objElemConst[wkey] = lattice.Meet(a.objElemConst[wkey], nv)
		}
		for _, ld := range a.aliases.loadArraysOf(s.Base) {
			if !a.ptsSet[ld.Base][obj] {
				continue
			}
			pk := loadPairKey{ld, key}
			if !a.observedSet[pk] {
				a.observedSet[pk] = true
				a.observed[ld] = append(a.observed[ld], key)
			}
			a.enqueue(ld)
		}
	}
}

// TransferEdge applies the edge transfer to the out fact of the edge
// source.
func (a *ConstProp) TransferEdge(e *cfg.ICFGEdge, out *lattice.CPFact) *lattice.CPFact {
	switch e.Kind {
	case cfg.EdgeNormal:
		return out
	case cfg.EdgeCallToReturn:
		newOut := out.Copy()
		if e.CallSite.L != nil {
			newOut.Remove(e.CallSite.L)
		}
		return newOut
	case cfg.EdgeCall:
		calleeIn := lattice.NewCPFact()
		params := e.Callee.Params()
		if len(e.CallSite.Args) != len(params) {
			panic("inter-constprop: argument count differs from parameter count at " + e.CallSite.SiteString())
		}
		for i, p := range params {
			calleeIn.Update(p, out.Get(e.CallSite.Args[i]))
		}
		return calleeIn
	default: // return edge
		callerIn := lattice.NewCPFact()
		if lhs := e.CallSite.L; lhs != nil {
			res := lattice.Undef()
			for _, ret := range e.ReturnVars {
				res = lattice.Meet(res, out.Get(ret))
			}
			callerIn.Update(lhs, res)
		}
		return callerIn
	}
}

// TransferNode applies the node transfer: identity at call nodes (the
// edges move the values), the intra transfer elsewhere.
func (a *ConstProp) TransferNode(s ir.Stmt, in, out *lattice.CPFact) bool {
	if _, isCall := s.(*ir.Invoke); isCall {
		if out.Equals(in) {
			return false
		}
		out.CopyFrom(in)
		return true
	}
	return a.cp.TransferNode(s, in, out)
}

// MeetInto delegates to the pointwise fact meet.
func (a *ConstProp) MeetInto(fact, target *lattice.CPFact) { a.cp.MeetInto(fact, target) }

// NewInitialFact returns the empty fact.
func (a *ConstProp) NewInitialFact() *lattice.CPFact { return lattice.NewCPFact() }

// NewBoundaryFact returns the entry fact of the inter-procedural
// analysis: empty, since parameters receive their values across call
// edges.
func (a *ConstProp) NewBoundaryFact() *lattice.CPFact { return lattice.NewCPFact() }
