package inter

import (
	log "github.com/sirupsen/logrus"

	"github.com/takin-dev/takin/analysis/cfg"
	"github.com/takin-dev/takin/analysis/dataflow"
	"github.com/takin-dev/takin/analysis/lattice"
	"github.com/takin-dev/takin/ir"
	"github.com/takin-dev/takin/utils/worklist"
)

// Solver drives the inter-procedural constant propagation over an
// ICFG with a worklist to the fixed point.
type Solver struct {
	analysis *ConstProp
	icfg     *cfg.ICFG
}

func NewSolver(analysis *ConstProp, icfg *cfg.ICFG) *Solver {
	return &Solver{analysis: analysis, icfg: icfg}
}

// Solve initializes the facts, wires the analysis to the worklist and
// drains it. Entry nodes of entry methods carry the boundary fact
// before the first poll.
func (s *Solver) Solve() *dataflow.Result[*lattice.CPFact] {
	a := s.analysis
	a.initialize(s.icfg)
	res := dataflow.NewResult[*lattice.CPFact]()

	for _, m := range s.icfg.EntryMethods() {
		entry := s.icfg.EntryOf(m)
		res.SetInFact(entry, a.NewInitialFact())
		res.SetOutFact(entry, a.NewBoundaryFact())
	}
	for _, n := range s.icfg.Nodes() {
		if res.InFact(n) != nil {
			continue
		}
		res.SetInFact(n, a.NewInitialFact())
		res.SetOutFact(n, a.NewInitialFact())
	}

	W := worklist.Empty[ir.Stmt]()
	a.enqueue = W.Add

	log.Debugf("inter-procedural constant propagation over %d nodes", len(s.icfg.Nodes()))
	for _, n := range s.icfg.Nodes() {
		W.Add(n)
	}
	W.Process(func(n ir.Stmt, add func(ir.Stmt)) {
		in := res.InFact(n)
		for _, e := range s.icfg.InEdgesOf(n) {
			a.MeetInto(a.TransferEdge(e, res.OutFact(e.Source)), in)
		}
		if a.TransferNode(n, in, res.OutFact(n)) {
			for _, succ := range s.icfg.SuccsOf(n) {
				add(succ)
			}
		}
	})
	return res
}
