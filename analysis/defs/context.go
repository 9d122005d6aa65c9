package defs

import (
	"fmt"
	"strings"

	"github.com/benbjohnson/immutable"

	"github.com/takin-dev/takin/analysis/heap"
	"github.com/takin-dev/takin/ir"
	"github.com/takin-dev/takin/utils"
	"github.com/takin-dev/takin/utils/hmap"
)

// Context is a canonical calling context: a bounded string of context
// elements (call sites or heap objects). Contexts are hash-consed, so
// equality is pointer identity, and the creation id gives them a total
// order. The empty context is distinguished.
type Context struct {
	id    int
	elems []any
}

// Compare orders contexts by creation id.
func (c *Context) Compare(other *Context) int { return c.id - other.id }

// Len returns the context depth.
func (c *Context) Len() int { return len(c.elems) }

func (c *Context) String() string {
	if len(c.elems) == 0 {
		return "[]"
	}
	parts := make([]string, len(c.elems))
	for i, e := range c.elems {
		switch e := e.(type) {
		case *ir.Invoke:
			parts[i] = e.SiteString()
		case *heap.Obj:
			parts[i] = e.String()
		default:
			parts[i] = fmt.Sprint(e)
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// contextHasher hashes context element sequences by the identity of
// each element for the hash-consing map.
type contextHasher struct{}

func (contextHasher) Hash(elems []any) uint32 {
	hs := make([]uint32, len(elems))
	for i, e := range elems {
		hs[i] = utils.PointerHasher[any]{}.Hash(e)
	}
	return utils.HashCombine(hs...)
}

func (contextHasher) Equal(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var _ immutable.Hasher[[]any] = contextHasher{}

// ContextTable hash-conses contexts.
type ContextTable struct {
	table *hmap.Map[[]any, *Context]
	empty *Context
	next  int
}

func NewContextTable() *ContextTable {
	t := &ContextTable{table: hmap.NewMap[*Context, []any](contextHasher{})}
	t.empty = t.get(nil)
	return t
}

func (t *ContextTable) Empty() *Context { return t.empty }

func (t *ContextTable) get(elems []any) *Context {
	c, _ := t.table.GetOrPut(elems, func() *Context {
		c := &Context{id: t.next, elems: elems}
		t.next++
		return c
	})
	return c
}

// Append extends base with elem, truncated to the last k elements.
func (t *ContextTable) Append(base *Context, elem any, k int) *Context {
	if k <= 0 {
		return t.empty
	}
	elems := append(append([]any(nil), base.elems...), elem)
	if len(elems) > k {
		elems = elems[len(elems)-k:]
	}
	return t.get(elems)
}

// Truncate returns the suffix of c of length at most k.
func (t *ContextTable) Truncate(c *Context, k int) *Context {
	if len(c.elems) <= k {
		return c
	}
	if k <= 0 {
		return t.empty
	}
	return t.get(append([]any(nil), c.elems[len(c.elems)-k:]...))
}

// ContextSelector chooses contexts for methods and heap objects. The
// static-call variant omits the receiver object.
type ContextSelector interface {
	EmptyContext() *Context
	SelectHeapContext(csMethod *CSMethod, obj *heap.Obj) *Context
	SelectStaticContext(csCallSite *CSCallSite, callee *ir.Method) *Context
	SelectContext(csCallSite *CSCallSite, recv *CSObj, callee *ir.Method) *Context
}

// NewCISelector returns the context-insensitive selector: a singleton
// context universe.
func NewCISelector() ContextSelector {
	return &ciSelector{table: NewContextTable()}
}

type ciSelector struct {
	table *ContextTable
}

func (s *ciSelector) EmptyContext() *Context { return s.table.Empty() }

func (s *ciSelector) SelectHeapContext(*CSMethod, *heap.Obj) *Context { return s.table.Empty() }

func (s *ciSelector) SelectStaticContext(*CSCallSite, *ir.Method) *Context { return s.table.Empty() }

func (s *ciSelector) SelectContext(*CSCallSite, *CSObj, *ir.Method) *Context {
	return s.table.Empty()
}

// NewKCallSelector returns the k-limited call-site-sensitive selector
// with k-1 heap contexts.
func NewKCallSelector(k int) ContextSelector {
	return &kCallSelector{table: NewContextTable(), k: k}
}

type kCallSelector struct {
	table *ContextTable
	k     int
}

func (s *kCallSelector) EmptyContext() *Context { return s.table.Empty() }

func (s *kCallSelector) SelectHeapContext(csMethod *CSMethod, _ *heap.Obj) *Context {
	return s.table.Truncate(csMethod.Context(), s.k-1)
}

func (s *kCallSelector) SelectStaticContext(csCallSite *CSCallSite, _ *ir.Method) *Context {
	return s.table.Append(csCallSite.Context(), csCallSite.Site(), s.k)
}

func (s *kCallSelector) SelectContext(csCallSite *CSCallSite, _ *CSObj, _ *ir.Method) *Context {
	return s.table.Append(csCallSite.Context(), csCallSite.Site(), s.k)
}

// NewKObjSelector returns the k-limited object-sensitive selector.
func NewKObjSelector(k int) ContextSelector {
	return &kObjSelector{table: NewContextTable(), k: k}
}

type kObjSelector struct {
	table *ContextTable
	k     int
}

func (s *kObjSelector) EmptyContext() *Context { return s.table.Empty() }

func (s *kObjSelector) SelectHeapContext(csMethod *CSMethod, _ *heap.Obj) *Context {
	return s.table.Truncate(csMethod.Context(), s.k-1)
}

func (s *kObjSelector) SelectStaticContext(csCallSite *CSCallSite, _ *ir.Method) *Context {
	// Static calls inherit the caller context.
	return csCallSite.Context()
}

func (s *kObjSelector) SelectContext(_ *CSCallSite, recv *CSObj, _ *ir.Method) *Context {
	return s.table.Append(recv.Context(), recv.Obj(), s.k)
}
