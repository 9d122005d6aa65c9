package defs

import (
	"fmt"

	"golang.org/x/tools/container/intsets"

	"github.com/takin-dev/takin/analysis/heap"
	"github.com/takin-dev/takin/ir"
)

// CSObj is a context-qualified heap object. Canonical per (heap
// context, object); its id is the handle used in points-to bitsets.
type CSObj struct {
	id  int
	ctx *Context
	obj *heap.Obj
}

func (o *CSObj) ID() int           { return o.id }
func (o *CSObj) Context() *Context { return o.ctx }
func (o *CSObj) Obj() *heap.Obj    { return o.obj }

func (o *CSObj) String() string { return fmt.Sprintf("%s:%s", o.ctx, o.obj) }

// CSMethod is a context-qualified method.
type CSMethod struct {
	ctx *Context
	m   *ir.Method
}

func (m *CSMethod) Context() *Context  { return m.ctx }
func (m *CSMethod) Method() *ir.Method { return m.m }

func (m *CSMethod) String() string { return fmt.Sprintf("%s:%s", m.ctx, m.m) }

// CSCallSite is a context-qualified call site.
type CSCallSite struct {
	ctx  *Context
	site *ir.Invoke
}

func (c *CSCallSite) Context() *Context { return c.ctx }
func (c *CSCallSite) Site() *ir.Invoke  { return c.site }

func (c *CSCallSite) String() string { return fmt.Sprintf("%s:%s", c.ctx, c.site.SiteString()) }

// Pointer is a node of the pointer-flow graph. Every pointer owns its
// mutable points-to set. The four variants below are canonicalized by
// the CSManager, so pointers compare with ==.
type Pointer interface {
	PointsToSet() *PointsToSet
	String() string
}

// CSVar is a context-qualified variable pointer.
type CSVar struct {
	ctx *Context
	v   *ir.Var
	pts *PointsToSet
}

func (p *CSVar) Context() *Context         { return p.ctx }
func (p *CSVar) Var() *ir.Var              { return p.v }
func (p *CSVar) PointsToSet() *PointsToSet { return p.pts }

func (p *CSVar) String() string { return fmt.Sprintf("%s:%s", p.ctx, p.v) }

// InstanceField is the field pointer of a context-qualified object.
type InstanceField struct {
	obj   *CSObj
	field *ir.Field
	pts   *PointsToSet
}

func (p *InstanceField) Base() *CSObj              { return p.obj }
func (p *InstanceField) Field() *ir.Field          { return p.field }
func (p *InstanceField) PointsToSet() *PointsToSet { return p.pts }

func (p *InstanceField) String() string { return fmt.Sprintf("%s.%s", p.obj, p.field.Name()) }

// ArrayIndex is the single abstract cell shared by all indices of a
// context-qualified array object.
type ArrayIndex struct {
	obj *CSObj
	pts *PointsToSet
}

func (p *ArrayIndex) Base() *CSObj              { return p.obj }
func (p *ArrayIndex) PointsToSet() *PointsToSet { return p.pts }

func (p *ArrayIndex) String() string { return fmt.Sprintf("%s[*]", p.obj) }

// StaticField is the pointer of a static field.
type StaticField struct {
	field *ir.Field
	pts   *PointsToSet
}

func (p *StaticField) Field() *ir.Field          { return p.field }
func (p *StaticField) PointsToSet() *PointsToSet { return p.pts }

func (p *StaticField) String() string { return p.field.String() }

// PointsToSet is a set of context-sensitive objects, backed by a
// sparse bitset over the canonical object handles. Iteration is in
// ascending handle order, hence deterministic.
type PointsToSet struct {
	mgr  *CSManager
	bits intsets.Sparse
}

// Contains reports membership.
func (s *PointsToSet) Contains(o *CSObj) bool { return s.bits.Has(o.id) }

// AddObject inserts o and reports whether the set grew.
func (s *PointsToSet) AddObject(o *CSObj) bool { return s.bits.Insert(o.id) }

func (s *PointsToSet) IsEmpty() bool { return s.bits.IsEmpty() }

func (s *PointsToSet) Len() int { return s.bits.Len() }

// Objects returns the members in ascending handle order.
func (s *PointsToSet) Objects() []*CSObj {
	ids := s.bits.AppendTo(nil)
	objs := make([]*CSObj, len(ids))
	for i, id := range ids {
		objs[i] = s.mgr.objList[id]
	}
	return objs
}

// ForEach visits the members in ascending handle order.
func (s *PointsToSet) ForEach(visit func(*CSObj)) {
	for _, o := range s.Objects() {
		visit(o)
	}
}

func (s *PointsToSet) String() string { return fmt.Sprint(s.Objects()) }

// CSManager canonicalizes every context-sensitive element: at most one
// record exists per identity, so all comparisons are pointer identity.
type CSManager struct {
	csVars      map[csVarKey]*CSVar
	varsOf      map[*ir.Var][]*CSVar
	varList     []*CSVar
	csObjs      map[csObjKey]*CSObj
	objList     []*CSObj
	csMethods   map[csMethodKey]*CSMethod
	csCallSites map[csCallKey]*CSCallSite
	instFields  map[instFieldKey]*InstanceField
	arrayCells  map[*CSObj]*ArrayIndex
	statFields  map[*ir.Field]*StaticField
}

type (
	csVarKey struct {
		ctx *Context
		v   *ir.Var
	}
	csObjKey struct {
		ctx *Context
		obj *heap.Obj
	}
	csMethodKey struct {
		ctx *Context
		m   *ir.Method
	}
	csCallKey struct {
		ctx  *Context
		site *ir.Invoke
	}
	instFieldKey struct {
		obj   *CSObj
		field *ir.Field
	}
)

func NewCSManager() *CSManager {
	return &CSManager{
		csVars:      make(map[csVarKey]*CSVar),
		varsOf:      make(map[*ir.Var][]*CSVar),
		csObjs:      make(map[csObjKey]*CSObj),
		csMethods:   make(map[csMethodKey]*CSMethod),
		csCallSites: make(map[csCallKey]*CSCallSite),
		instFields:  make(map[instFieldKey]*InstanceField),
		arrayCells:  make(map[*CSObj]*ArrayIndex),
		statFields:  make(map[*ir.Field]*StaticField),
	}
}

// NewPointsToSet returns a fresh empty set bound to this manager.
func (mgr *CSManager) NewPointsToSet(objs ...*CSObj) *PointsToSet {
	s := &PointsToSet{mgr: mgr}
	for _, o := range objs {
		s.AddObject(o)
	}
	return s
}

// GetCSVar returns the canonical variable pointer for (ctx, v).
func (mgr *CSManager) GetCSVar(ctx *Context, v *ir.Var) *CSVar {
	key := csVarKey{ctx, v}
	if p, ok := mgr.csVars[key]; ok {
		return p
	}
	p := &CSVar{ctx: ctx, v: v, pts: mgr.NewPointsToSet()}
	mgr.csVars[key] = p
	mgr.varsOf[v] = append(mgr.varsOf[v], p)
	mgr.varList = append(mgr.varList, p)
	return p
}

// GetCSObj returns the canonical context-sensitive object for (ctx, obj).
func (mgr *CSManager) GetCSObj(ctx *Context, obj *heap.Obj) *CSObj {
	key := csObjKey{ctx, obj}
	if o, ok := mgr.csObjs[key]; ok {
		return o
	}
	o := &CSObj{id: len(mgr.objList), ctx: ctx, obj: obj}
	mgr.csObjs[key] = o
	mgr.objList = append(mgr.objList, o)
	return o
}

// GetCSMethod returns the canonical context-sensitive method.
func (mgr *CSManager) GetCSMethod(ctx *Context, m *ir.Method) *CSMethod {
	key := csMethodKey{ctx, m}
	if c, ok := mgr.csMethods[key]; ok {
		return c
	}
	c := &CSMethod{ctx: ctx, m: m}
	mgr.csMethods[key] = c
	return c
}

// GetCSCallSite returns the canonical context-sensitive call site.
func (mgr *CSManager) GetCSCallSite(ctx *Context, site *ir.Invoke) *CSCallSite {
	key := csCallKey{ctx, site}
	if c, ok := mgr.csCallSites[key]; ok {
		return c
	}
	c := &CSCallSite{ctx: ctx, site: site}
	mgr.csCallSites[key] = c
	return c
}

// GetInstanceField returns the canonical field pointer of obj.f.
func (mgr *CSManager) GetInstanceField(obj *CSObj, field *ir.Field) *InstanceField {
	key := instFieldKey{obj, field}
	if p, ok := mgr.instFields[key]; ok {
		return p
	}
	p := &InstanceField{obj: obj, field: field, pts: mgr.NewPointsToSet()}
	mgr.instFields[key] = p
	return p
}

// GetArrayIndex returns the canonical array cell pointer of obj.
func (mgr *CSManager) GetArrayIndex(obj *CSObj) *ArrayIndex {
	if p, ok := mgr.arrayCells[obj]; ok {
		return p
	}
	p := &ArrayIndex{obj: obj, pts: mgr.NewPointsToSet()}
	mgr.arrayCells[obj] = p
	return p
}

// GetStaticField returns the canonical pointer of a static field.
func (mgr *CSManager) GetStaticField(field *ir.Field) *StaticField {
	if p, ok := mgr.statFields[field]; ok {
		return p
	}
	p := &StaticField{field: field, pts: mgr.NewPointsToSet()}
	mgr.statFields[field] = p
	return p
}

// CSVarsOf returns all context-qualified pointers of v created so far.
func (mgr *CSManager) CSVarsOf(v *ir.Var) []*CSVar { return mgr.varsOf[v] }

// CSVars returns every variable pointer in creation order.
func (mgr *CSManager) CSVars() []*CSVar { return mgr.varList }

// CSObjs returns every context-sensitive object in handle order.
func (mgr *CSManager) CSObjs() []*CSObj { return mgr.objList }
