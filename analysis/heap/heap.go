package heap

import (
	"fmt"

	"github.com/takin-dev/takin/ir"
)

// Obj is an abstract heap object. Ordinary objects are keyed by their
// allocation site; taint objects are synthetic and keyed by the source
// call and the tainted type. Objects carry small integer ids usable as
// handles in sparse sets.
type Obj struct {
	id   int
	typ  ir.Type
	site *ir.New    // allocation-site objects
	src  *ir.Invoke // taint objects
}

func (o *Obj) ID() int       { return o.id }
func (o *Obj) Type() ir.Type { return o.typ }

// Site returns the allocation site, nil for taint objects.
func (o *Obj) Site() *ir.New { return o.site }

// IsTaint reports whether o is a synthetic taint object.
func (o *Obj) IsTaint() bool { return o.src != nil }

// SourceCall returns the call site that produced a taint object.
func (o *Obj) SourceCall() *ir.Invoke { return o.src }

func (o *Obj) String() string {
	if o.IsTaint() {
		return fmt.Sprintf("taint[%s: %s]", o.src.SiteString(), o.typ.TypeName())
	}
	return fmt.Sprintf("%s@%s/%d", o.typ.TypeName(), o.site.L.Method(), o.site.Index())
}

// Model is the allocation-site heap abstraction: one canonical object
// per allocation site, plus the synthetic taint objects.
type Model struct {
	objs   map[*ir.New]*Obj
	taints map[taintKey]*Obj
	all    []*Obj
}

type taintKey struct {
	src *ir.Invoke
	typ ir.Type
}

func NewModel() *Model {
	return &Model{
		objs:   make(map[*ir.New]*Obj),
		taints: make(map[taintKey]*Obj),
	}
}

// GetObj returns the canonical object of an allocation site.
func (h *Model) GetObj(site *ir.New) *Obj {
	if o, ok := h.objs[site]; ok {
		return o
	}
	o := &Obj{id: len(h.all), typ: site.T, site: site}
	h.objs[site] = o
	h.all = append(h.all, o)
	return o
}

// MakeTaint returns the canonical taint object for a source call and
// tainted type.
func (h *Model) MakeTaint(src *ir.Invoke, typ ir.Type) *Obj {
	key := taintKey{src, typ}
	if o, ok := h.taints[key]; ok {
		return o
	}
	o := &Obj{id: len(h.all), typ: typ, src: src}
	h.taints[key] = o
	h.all = append(h.all, o)
	return o
}

// Objs returns all objects created so far, in creation order.
func (h *Model) Objs() []*Obj { return h.all }
