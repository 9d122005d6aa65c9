package livevars

import (
	"github.com/benbjohnson/immutable"

	"github.com/takin-dev/takin/analysis/cfg"
	"github.com/takin-dev/takin/analysis/dataflow"
	"github.com/takin-dev/takin/ir"
	"github.com/takin-dev/takin/utils"
	"github.com/takin-dev/takin/utils/worklist"
)

// ID under which results of the analysis register.
const ID = "livevars"

// SetFact is a set of live variables. Backed by an immutable map, so
// facts share structure and copy for free.
type SetFact struct {
	m *immutable.Map[*ir.Var, struct{}]
}

func newSetFact() SetFact {
	return SetFact{m: immutable.NewMap[*ir.Var, struct{}](utils.PointerHasher[*ir.Var]{})}
}

// Contains reports membership of v.
func (f SetFact) Contains(v *ir.Var) bool {
	_, ok := f.m.Get(v)
	return ok
}

func (f SetFact) add(v *ir.Var) SetFact {
	return SetFact{m: f.m.Set(v, struct{}{})}
}

func (f SetFact) remove(v *ir.Var) SetFact {
	return SetFact{m: f.m.Delete(v)}
}

// Vars returns the members of the set in unspecified order.
func (f SetFact) Vars() []*ir.Var {
	vars := make([]*ir.Var, 0, f.m.Len())
	it := f.m.Iterator()
	for !it.Done() {
		v, _, _ := it.Next()
		vars = append(vars, v)
	}
	return vars
}

func (f SetFact) union(other SetFact) SetFact {
	res := f
	it := other.m.Iterator()
	for !it.Done() {
		v, _, _ := it.Next()
		res = res.add(v)
	}
	return res
}

func (f SetFact) equals(other SetFact) bool {
	if f.m.Len() != other.m.Len() {
		return false
	}
	it := f.m.Iterator()
	for !it.Done() {
		v, _, _ := it.Next()
		if _, ok := other.m.Get(v); !ok {
			return false
		}
	}
	return true
}

// Solve runs the backward live-variable analysis over a CFG to a fixed
// point: out[n] = ∪ in[succ], in[n] = (out[n] ∖ def) ∪ use.
func Solve(c *cfg.Cfg) *dataflow.Result[SetFact] {
	res := dataflow.NewResult[SetFact]()
	for _, n := range c.Nodes() {
		res.SetInFact(n, newSetFact())
		res.SetOutFact(n, newSetFact())
	}

	worklist.StartV(c.Nodes(), func(n ir.Stmt, add func(ir.Stmt)) {
		out := newSetFact()
		for _, succ := range c.SuccsOf(n) {
			out = out.union(res.InFact(succ))
		}
		res.SetOutFact(n, out)

		in := out
		if def := ir.DefVar(n); def != nil {
			in = in.remove(def)
		}
		for _, use := range ir.UseVars(n) {
			in = in.add(use)
		}
		if !in.equals(res.InFact(n)) {
			res.SetInFact(n, in)
			for _, p := range c.PredsOf(n) {
				add(p)
			}
		}
	})
	return res
}
