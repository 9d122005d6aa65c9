package callgraph

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/takin-dev/takin/ir"
	"github.com/takin-dev/takin/utils/worklist"
)

// Resolver resolves call sites against the class hierarchy. The
// transitive subtype enumeration is memoized (the hierarchy is a DAG,
// diamonds would otherwise blow up), and dispatch results are held in
// an LRU cache keyed by (class, subsignature).
type Resolver struct {
	subtypes map[*ir.Class][]*ir.Class
	dispatch *lru.Cache
}

type dispatchKey struct {
	class  *ir.Class
	subsig string
}

const dispatchCacheSize = 4096

func NewResolver() *Resolver {
	cache, _ := lru.New(dispatchCacheSize)
	return &Resolver{
		subtypes: make(map[*ir.Class][]*ir.Class),
		dispatch: cache,
	}
}

// Dispatch looks up the declared, non-abstract method with the given
// subsignature on class, walking up the superclass chain. Returns nil
// when nothing is found; callers skip such misses silently.
func (r *Resolver) Dispatch(class *ir.Class, subsig string) *ir.Method {
	if class == nil {
		return nil
	}
	key := dispatchKey{class, subsig}
	if m, ok := r.dispatch.Get(key); ok {
		return m.(*ir.Method)
	}
	var res *ir.Method
	if m := class.DeclaredMethod(subsig); m != nil && !m.IsAbstract() {
		res = m
	} else {
		res = r.Dispatch(class.Super(), subsig)
	}
	r.dispatch.Add(key, res)
	return res
}

// AllSubtypes returns the transitive subtypes of class, including the
// class itself, its subclasses, subinterfaces and implementors.
func (r *Resolver) AllSubtypes(class *ir.Class) []*ir.Class {
	if cached, ok := r.subtypes[class]; ok {
		return cached
	}
	var all []*ir.Class
	seen := make(map[*ir.Class]bool)
	worklist.Start(class, func(c *ir.Class, add func(*ir.Class)) {
		if seen[c] {
			return
		}
		seen[c] = true
		all = append(all, c)
		for _, sub := range c.DirectSubclasses() {
			add(sub)
		}
		for _, sub := range c.DirectSubinterfaces() {
			add(sub)
		}
		for _, impl := range c.DirectImplementors() {
			add(impl)
		}
	})
	r.subtypes[class] = all
	return all
}

// ResolveCHA resolves the possible callees of a call site using class
// hierarchy analysis.
func (r *Resolver) ResolveCHA(invoke *ir.Invoke) []*ir.Method {
	switch invoke.Kind {
	case ir.CallStatic:
		if m := invoke.Ref.Class.DeclaredMethod(invoke.Ref.Subsig); m != nil {
			return []*ir.Method{m}
		}
		return nil
	case ir.CallSpecial:
		if m := r.Dispatch(invoke.Ref.Class, invoke.Ref.Subsig); m != nil {
			return []*ir.Method{m}
		}
		return nil
	default: // virtual, interface
		var callees []*ir.Method
		seen := make(map[*ir.Method]bool)
		for _, sub := range r.AllSubtypes(invoke.Ref.Class) {
			m := r.Dispatch(sub, invoke.Ref.Subsig)
			if m == nil || seen[m] {
				continue
			}
			seen[m] = true
			callees = append(callees, m)
		}
		return callees
	}
}

// ResolveCallee resolves the single callee of a call site during the
// pointer analysis: virtual and interface calls dispatch on the type
// of the receiver object instead of the declared class. Returns nil on
// a dispatch miss.
func (r *Resolver) ResolveCallee(recvType ir.Type, invoke *ir.Invoke) *ir.Method {
	switch invoke.Kind {
	case ir.CallStatic:
		return invoke.Ref.Class.DeclaredMethod(invoke.Ref.Subsig)
	case ir.CallSpecial:
		return r.Dispatch(invoke.Ref.Class, invoke.Ref.Subsig)
	default:
		ct, ok := recvType.(*ir.ClassType)
		if !ok {
			return nil
		}
		return r.Dispatch(ct.Class(), invoke.Ref.Subsig)
	}
}

// BuildCHA constructs a whole-program call graph from the entry method
// with class hierarchy analysis.
func BuildCHA(entry *ir.Method) *Graph[*ir.Invoke, *ir.Method] {
	r := NewResolver()
	g := NewGraph[*ir.Invoke, *ir.Method]()
	g.AddEntry(entry)

	worklist.Start(entry, func(m *ir.Method, add func(*ir.Method)) {
		if !g.AddReachableMethod(m) {
			return
		}
		for _, s := range m.Stmts() {
			invoke, ok := s.(*ir.Invoke)
			if !ok {
				continue
			}
			for _, callee := range r.ResolveCHA(invoke) {
				g.AddEdge(Edge[*ir.Invoke, *ir.Method]{Kind: invoke.Kind, Site: invoke, Callee: callee})
				add(callee)
			}
		}
	})
	return g
}
