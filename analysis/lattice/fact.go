package lattice

import (
	"fmt"
	"sort"
	"strings"

	"github.com/takin-dev/takin/ir"
)

// CPFact maps variables to constant lattice values. Absent keys read
// as UNDEF, and updating a key to UNDEF removes it; a fact therefore
// never stores ⊥ explicitly.
type CPFact struct {
	m map[*ir.Var]Value
}

func NewCPFact() *CPFact {
	return &CPFact{m: make(map[*ir.Var]Value)}
}

// Get returns the value bound to v, UNDEF when absent.
func (f *CPFact) Get(v *ir.Var) Value {
	if val, ok := f.m[v]; ok {
		return val
	}
	return undef
}

// Update binds v to val and reports whether the fact changed.
func (f *CPFact) Update(v *ir.Var, val Value) bool {
	old, ok := f.m[v]
	if val.IsUndef() {
		if ok {
			delete(f.m, v)
		}
		return ok
	}
	f.m[v] = val
	return !ok || old != val
}

// Remove drops the binding for v.
func (f *CPFact) Remove(v *ir.Var) {
	delete(f.m, v)
}

// Copy returns an independent copy of the fact.
func (f *CPFact) Copy() *CPFact {
	g := NewCPFact()
	for v, val := range f.m {
		g.m[v] = val
	}
	return g
}

// CopyFrom overwrites the fact with the contents of other.
func (f *CPFact) CopyFrom(other *CPFact) {
	f.m = make(map[*ir.Var]Value, len(other.m))
	for v, val := range other.m {
		f.m[v] = val
	}
}

// Equals compares facts pointwise.
func (f *CPFact) Equals(other *CPFact) bool {
	if len(f.m) != len(other.m) {
		return false
	}
	for v, val := range f.m {
		if o, ok := other.m[v]; !ok || o != val {
			return false
		}
	}
	return true
}

// MeetInto mutates target to target ⊓ f over the union of keys.
func (f *CPFact) MeetInto(target *CPFact) {
	for v, val := range f.m {
		target.Update(v, Meet(target.Get(v), val))
	}
	// Keys only in target meet UNDEF: NAC and constants are unchanged,
	// so only the shared keys above matter.
}

// ForEach visits all explicit (non-UNDEF) bindings.
func (f *CPFact) ForEach(visit func(*ir.Var, Value)) {
	for v, val := range f.m {
		visit(v, val)
	}
}

// Len returns the number of explicit bindings.
func (f *CPFact) Len() int { return len(f.m) }

func (f *CPFact) String() string {
	entries := make([]string, 0, len(f.m))
	for v, val := range f.m {
		entries = append(entries, fmt.Sprintf("%s=%s", v.Name(), val))
	}
	sort.Strings(entries)
	return "{" + strings.Join(entries, ", ") + "}"
}
