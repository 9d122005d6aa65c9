package dataflow

import (
	"github.com/takin-dev/takin/analysis/cfg"
	"github.com/takin-dev/takin/ir"
	"github.com/takin-dev/takin/utils/worklist"
)

// Analysis is a monotone intra-procedural dataflow problem over facts
// of type F. For backward analyses the solver flips the graph: the
// fact passed as `in` to TransferNode is then the OUT fact of the
// statement.
type Analysis[F any] interface {
	IsForward() bool
	NewBoundaryFact(c *cfg.Cfg) F
	NewInitialFact() F
	MeetInto(fact F, target F)
	TransferNode(s ir.Stmt, in F, out F) bool
}

// Result stores the in and out facts of every node.
type Result[F any] struct {
	in  map[ir.Stmt]F
	out map[ir.Stmt]F
}

func NewResult[F any]() *Result[F] {
	return &Result[F]{
		in:  make(map[ir.Stmt]F),
		out: make(map[ir.Stmt]F),
	}
}

func (r *Result[F]) InFact(s ir.Stmt) F    { return r.in[s] }
func (r *Result[F]) OutFact(s ir.Stmt) F   { return r.out[s] }
func (r *Result[F]) SetInFact(s ir.Stmt, f F)  { r.in[s] = f }
func (r *Result[F]) SetOutFact(s ir.Stmt, f F) { r.out[s] = f }

// Solve runs the worklist iteration to a fixed point.
func Solve[F any](a Analysis[F], c *cfg.Cfg) *Result[F] {
	if a.IsForward() {
		return solveForward(a, c)
	}
	return solveBackward(a, c)
}

func solveForward[F any](a Analysis[F], c *cfg.Cfg) *Result[F] {
	res := NewResult[F]()
	for _, n := range c.Nodes() {
		res.SetInFact(n, a.NewInitialFact())
		res.SetOutFact(n, a.NewInitialFact())
	}
	res.SetOutFact(c.Entry(), a.NewBoundaryFact(c))

	W := worklist.Empty[ir.Stmt]()
	for _, n := range c.Nodes() {
		if n != c.Entry() {
			W.Add(n)
		}
	}
	W.Process(func(n ir.Stmt, add func(ir.Stmt)) {
		in := res.InFact(n)
		for _, p := range c.PredsOf(n) {
			a.MeetInto(res.OutFact(p), in)
		}
		if a.TransferNode(n, in, res.OutFact(n)) {
			for _, s := range c.SuccsOf(n) {
				add(s)
			}
		}
	})
	return res
}

func solveBackward[F any](a Analysis[F], c *cfg.Cfg) *Result[F] {
	res := NewResult[F]()
	for _, n := range c.Nodes() {
		res.SetInFact(n, a.NewInitialFact())
		res.SetOutFact(n, a.NewInitialFact())
	}
	res.SetInFact(c.Exit(), a.NewBoundaryFact(c))

	W := worklist.Empty[ir.Stmt]()
	for _, n := range c.Nodes() {
		if n != c.Exit() {
			W.Add(n)
		}
	}
	W.Process(func(n ir.Stmt, add func(ir.Stmt)) {
		out := res.OutFact(n)
		for _, s := range c.SuccsOf(n) {
			a.MeetInto(res.InFact(s), out)
		}
		if a.TransferNode(n, out, res.InFact(n)) {
			for _, p := range c.PredsOf(n) {
				add(p)
			}
		}
	})
	return res
}
