package inter

import (
	uf "github.com/spakin/disjoint"

	"github.com/takin-dev/takin/analysis/heap"
	"github.com/takin-dev/takin/ir"
)

// aliasClasses partitions pointer variables into union-find classes:
// two variables land in the same class whenever they share a points-to
// object (transitively). A store only needs to consider load sites in
// the class of its base variable; the precise per-object check still
// runs afterwards, the classes just prune the scan.
type aliasClasses struct {
	elems      map[*ir.Var]*uf.Element
	roots      map[*uf.Element][]*ir.Var
	loadFields map[*uf.Element][]*ir.LoadField
	loadArrays map[*uf.Element][]*ir.LoadArray
}

// buildAliasClasses unions the variables of every reverse points-to
// bucket and indexes the load statements per class.
func buildAliasClasses(rPts map[*heap.Obj][]*ir.Var, objs []*heap.Obj) *aliasClasses {
	a := &aliasClasses{
		elems:      make(map[*ir.Var]*uf.Element),
		roots:      make(map[*uf.Element][]*ir.Var),
		loadFields: make(map[*uf.Element][]*ir.LoadField),
		loadArrays: make(map[*uf.Element][]*ir.LoadArray),
	}
	elem := func(v *ir.Var) *uf.Element {
		e, ok := a.elems[v]
		if !ok {
			e = uf.NewElement()
			a.elems[v] = e
		}
		return e
	}
	for _, o := range objs {
		vars := rPts[o]
		for i := 1; i < len(vars); i++ {
			uf.Union(elem(vars[0]), elem(vars[i]))
		}
		if len(vars) == 1 {
			elem(vars[0])
		}
	}
	for v, e := range a.elems {
		root := e.Find()
		a.roots[root] = append(a.roots[root], v)
	}
	for root, vars := range a.roots {
		for _, v := range vars {
			a.loadFields[root] = append(a.loadFields[root], v.LoadFields()...)
			a.loadArrays[root] = append(a.loadArrays[root], v.LoadArrays()...)
		}
	}
	return a
}

// loadFieldsOf returns the field loads that may alias stores through
// base.
func (a *aliasClasses) loadFieldsOf(base *ir.Var) []*ir.LoadField {
	e, ok := a.elems[base]
	if !ok {
		return nil
	}
	return a.loadFields[e.Find()]
}

// loadArraysOf returns the array loads that may alias stores through
// base.
func (a *aliasClasses) loadArraysOf(base *ir.Var) []*ir.LoadArray {
	e, ok := a.elems[base]
	if !ok {
		return nil
	}
	return a.loadArrays[e.Find()]
}
