package constprop

import (
	"math"

	"github.com/takin-dev/takin/analysis/cfg"
	"github.com/takin-dev/takin/analysis/lattice"
	"github.com/takin-dev/takin/ir"
)

// ID under which results of the intra-procedural analysis register.
const ID = "constprop"

// HeapReader supplies the alias-aware values of field and array loads
// and observes stores. The inter-procedural analysis plugs in an
// implementation backed by pointer analysis results; without one all
// heap loads evaluate to NAC.
type HeapReader interface {
	EvalLoadField(s *ir.LoadField, in *lattice.CPFact) lattice.Value
	EvalLoadArray(s *ir.LoadArray, in *lattice.CPFact) lattice.Value
	OnStoreField(s *ir.StoreField, in *lattice.CPFact)
	OnStoreArray(s *ir.StoreArray, in *lattice.CPFact)
}

// Analysis is constant propagation for integer values over the
// three-point lattice of the lattice package.
type Analysis struct {
	interprocedural bool
	heap            HeapReader
}

// New returns the intra-procedural analysis: parameters enter as NAC.
func New() *Analysis {
	return &Analysis{}
}

// NewInter returns the analysis variant used inter-procedurally:
// parameters receive values from call edges instead of NAC, and heap
// loads consult the given reader.
func NewInter(heap HeapReader) *Analysis {
	return &Analysis{interprocedural: true, heap: heap}
}

func (a *Analysis) IsForward() bool { return true }

func (a *Analysis) NewBoundaryFact(c *cfg.Cfg) *lattice.CPFact {
	fact := lattice.NewCPFact()
	if !a.interprocedural {
		for _, p := range c.Method().Params() {
			if ir.CanHoldInt(p.Type()) {
				fact.Update(p, lattice.NAC())
			}
		}
	}
	return fact
}

func (a *Analysis) NewInitialFact() *lattice.CPFact {
	return lattice.NewCPFact()
}

func (a *Analysis) MeetInto(fact, target *lattice.CPFact) {
	fact.MeetInto(target)
}

// TransferNode applies the statement transfer and reports whether the
// out fact changed.
func (a *Analysis) TransferNode(s ir.Stmt, in, out *lattice.CPFact) bool {
	if lhs := ir.DefVar(s); lhs != nil {
		newOut := in.Copy()
		if ir.CanHoldInt(lhs.Type()) {
			newOut.Update(lhs, a.evalDef(s, in))
		} else {
			newOut.Update(lhs, lattice.Undef())
		}
		if newOut.Equals(out) {
			return false
		}
		out.CopyFrom(newOut)
		return true
	}

	if a.heap != nil {
		switch s := s.(type) {
		case *ir.StoreField:
			if ir.CanHoldInt(s.R.Type()) {
				a.heap.OnStoreField(s, in)
			}
		case *ir.StoreArray:
			if ir.CanHoldInt(s.R.Type()) {
				a.heap.OnStoreArray(s, in)
			}
		}
	}
	if out.Equals(in) {
		return false
	}
	out.CopyFrom(in)
	return true
}

func (a *Analysis) evalDef(s ir.Stmt, in *lattice.CPFact) lattice.Value {
	switch s := s.(type) {
	case *ir.Copy:
		return Evaluate(s.R, in)
	case *ir.AssignLiteral:
		return Evaluate(s.V, in)
	case *ir.Binary:
		return Evaluate(s.E, in)
	case *ir.LoadField:
		if a.heap != nil {
			return a.heap.EvalLoadField(s, in)
		}
		return lattice.NAC()
	case *ir.LoadArray:
		if a.heap != nil {
			return a.heap.EvalLoadArray(s, in)
		}
		return lattice.NAC()
	default:
		// allocations, casts, call results
		return lattice.NAC()
	}
}

// Evaluate computes the abstract value of an expression in the given
// fact. Pure: depends only on e and in.
func Evaluate(e ir.Exp, in *lattice.CPFact) lattice.Value {
	switch e := e.(type) {
	case *ir.Var:
		return in.Get(e)
	case ir.IntLiteral:
		return lattice.MakeConstant(int32(e))
	case *ir.BinaryExp:
		return evalBinary(e.Op, in.Get(e.A), in.Get(e.B))
	default:
		return lattice.NAC()
	}
}

func evalBinary(op ir.BinOp, a, b lattice.Value) lattice.Value {
	// Division by a constant zero is UNDEF regardless of the dividend,
	// even a NAC one.
	if op.IsDivision() && b.IsConstant() && b.Constant() == 0 {
		return lattice.Undef()
	}
	if a.IsNAC() || b.IsNAC() {
		return lattice.NAC()
	}
	if !a.IsConstant() || !b.IsConstant() {
		return lattice.Undef()
	}
	return lattice.MakeConstant(fold(op, a.Constant(), b.Constant()))
}

// fold applies op with signed 32-bit two's-complement wrap-around.
// Shift counts are masked to five bits; division of MinInt32 by -1
// wraps instead of trapping. Division by zero never reaches here.
func fold(op ir.BinOp, x, y int32) int32 {
	switch op {
	case ir.OpAdd:
		return x + y
	case ir.OpSub:
		return x - y
	case ir.OpMul:
		return x * y
	case ir.OpDiv:
		if x == math.MinInt32 && y == -1 {
			return math.MinInt32
		}
		return x / y
	case ir.OpRem:
		if x == math.MinInt32 && y == -1 {
			return 0
		}
		return x % y
	case ir.OpEq:
		return b2i(x == y)
	case ir.OpNe:
		return b2i(x != y)
	case ir.OpLt:
		return b2i(x < y)
	case ir.OpGt:
		return b2i(x > y)
	case ir.OpLe:
		return b2i(x <= y)
	case ir.OpGe:
		return b2i(x >= y)
	case ir.OpShl:
		return x << (uint32(y) & 31)
	case ir.OpShr:
		return x >> (uint32(y) & 31)
	case ir.OpUshr:
		return int32(uint32(x) >> (uint32(y) & 31))
	case ir.OpOr:
		return x | y
	case ir.OpAnd:
		return x & y
	default:
		return x ^ y
	}
}

func b2i(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
