package deadcode

import (
	"golang.org/x/exp/slices"

	"github.com/takin-dev/takin/analysis/cfg"
	"github.com/takin-dev/takin/analysis/constprop"
	"github.com/takin-dev/takin/analysis/dataflow"
	"github.com/takin-dev/takin/analysis/lattice"
	"github.com/takin-dev/takin/analysis/livevars"
	"github.com/takin-dev/takin/ir"
	"github.com/takin-dev/takin/utils/worklist"
)

// ID under which results of the analysis register.
const ID = "deadcode"

// Detect reports the dead statements of a method, ordered by statement
// index: statements unreachable from the entry, statements only
// reachable through branches that constant propagation decides
// against, and side-effect-free assignments to dead variables. The
// synthetic entry and exit nodes are never reported.
func Detect(c *cfg.Cfg,
	constants *dataflow.Result[*lattice.CPFact],
	live *dataflow.Result[livevars.SetFact]) []ir.Stmt {

	dead := make(map[ir.Stmt]bool)

	// Pass 1: control-flow unreachable code.
	visited := traverse(c, nil)
	markUnvisited(c, visited, dead)

	// Pass 2: unreachable branches, honoring constant conditions.
	visited = traverse(c, constants)
	markUnvisited(c, visited, dead)

	// Pass 3: dead assignments.
	for s := range visited {
		lhs := ir.DefVar(s)
		if lhs == nil || !ir.IsSideEffectFree(s) {
			continue
		}
		if !live.OutFact(s).Contains(lhs) {
			dead[s] = true
		}
	}

	delete(dead, c.Entry())
	delete(dead, c.Exit())

	res := make([]ir.Stmt, 0, len(dead))
	for s := range dead {
		res = append(res, s)
	}
	slices.SortFunc(res, func(a, b ir.Stmt) bool { return a.Index() < b.Index() })
	return res
}

// traverse walks the CFG from the entry. With a constant propagation
// result it follows only the feasible out edges of constant-valued
// branches; with nil it follows every edge.
func traverse(c *cfg.Cfg, constants *dataflow.Result[*lattice.CPFact]) map[ir.Stmt]bool {
	visited := make(map[ir.Stmt]bool)
	worklist.Start(c.Entry(), func(n ir.Stmt, add func(ir.Stmt)) {
		if visited[n] {
			return
		}
		visited[n] = true
		for _, succ := range feasibleSuccs(c, constants, n) {
			add(succ)
		}
	})
	return visited
}

func feasibleSuccs(c *cfg.Cfg, constants *dataflow.Result[*lattice.CPFact], n ir.Stmt) []ir.Stmt {
	if constants == nil {
		return c.SuccsOf(n)
	}
	switch n := n.(type) {
	case *ir.If:
		cond := constprop.Evaluate(n.Cond, constants.InFact(n))
		if !cond.IsConstant() {
			break
		}
		want := cfg.KindIfFalse
		if cond.Constant() != 0 {
			want = cfg.KindIfTrue
		}
		for _, e := range c.OutEdgesOf(n) {
			if e.Kind == want {
				return []ir.Stmt{e.Target}
			}
		}
	case *ir.Switch:
		subject := constprop.Evaluate(n.V, constants.InFact(n))
		if !subject.IsConstant() {
			break
		}
		var taken []ir.Stmt
		for _, e := range c.OutEdgesOf(n) {
			if e.Kind == cfg.KindSwitchCase && e.CaseValue == subject.Constant() {
				taken = append(taken, e.Target)
			}
		}
		if len(taken) > 0 {
			return taken
		}
		for _, e := range c.OutEdgesOf(n) {
			if e.Kind == cfg.KindSwitchDefault {
				return []ir.Stmt{e.Target}
			}
		}
	}
	return c.SuccsOf(n)
}

func markUnvisited(c *cfg.Cfg, visited map[ir.Stmt]bool, dead map[ir.Stmt]bool) {
	for _, n := range c.Nodes() {
		if !visited[n] {
			dead[n] = true
		}
	}
}
