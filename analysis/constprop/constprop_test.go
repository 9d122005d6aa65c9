package constprop

import (
	"math"
	"testing"

	"github.com/takin-dev/takin/analysis/cfg"
	"github.com/takin-dev/takin/analysis/dataflow"
	"github.com/takin-dev/takin/analysis/lattice"
	"github.com/takin-dev/takin/ir"
)

func evalOp(op ir.BinOp, a, b lattice.Value) lattice.Value {
	return evalBinary(op, a, b)
}

func TestEvaluateDivisionByConstantZero(t *testing.T) {
	zero := lattice.MakeConstant(0)
	for _, op := range []ir.BinOp{ir.OpDiv, ir.OpRem} {
		for _, dividend := range []lattice.Value{
			lattice.NAC(), lattice.Undef(), lattice.MakeConstant(17),
		} {
			if got := evalOp(op, dividend, zero); !got.IsUndef() {
				t.Errorf("%s %s 0 = %s, want UNDEF", dividend, op, got)
			}
		}
	}
	// non-constant zero divisor keeps the usual rules
	if got := evalOp(ir.OpDiv, lattice.NAC(), lattice.NAC()); !got.IsNAC() {
		t.Errorf("NAC / NAC = %s, want NAC", got)
	}
}

func TestEvaluateOperators(t *testing.T) {
	c := lattice.MakeConstant
	cases := []struct {
		op   ir.BinOp
		a, b int32
		want int32
	}{
		{ir.OpAdd, 2, 3, 5},
		{ir.OpAdd, math.MaxInt32, 1, math.MinInt32},
		{ir.OpSub, 2, 3, -1},
		{ir.OpMul, 1 << 20, 1 << 20, 0},
		{ir.OpDiv, 7, 2, 3},
		{ir.OpDiv, math.MinInt32, -1, math.MinInt32},
		{ir.OpRem, 7, 2, 1},
		{ir.OpRem, math.MinInt32, -1, 0},
		{ir.OpEq, 3, 3, 1},
		{ir.OpNe, 3, 3, 0},
		{ir.OpLt, 1, 2, 1},
		{ir.OpGt, 1, 2, 0},
		{ir.OpLe, 2, 2, 1},
		{ir.OpGe, 1, 2, 0},
		{ir.OpShl, 1, 33, 2},
		{ir.OpShr, -8, 1, -4},
		{ir.OpUshr, -1, 28, 15},
		{ir.OpOr, 5, 2, 7},
		{ir.OpAnd, 6, 3, 2},
		{ir.OpXor, 6, 3, 5},
	}
	for _, tc := range cases {
		got := evalOp(tc.op, c(tc.a), c(tc.b))
		if !got.IsConstant() || got.Constant() != tc.want {
			t.Errorf("%d %s %d = %s, want %d", tc.a, tc.op, tc.b, got, tc.want)
		}
	}
}

func TestEvaluateAbsorption(t *testing.T) {
	one := lattice.MakeConstant(1)
	if got := evalOp(ir.OpAdd, lattice.NAC(), one); !got.IsNAC() {
		t.Errorf("NAC + 1 = %s, want NAC", got)
	}
	if got := evalOp(ir.OpAdd, lattice.Undef(), one); !got.IsUndef() {
		t.Errorf("UNDEF + 1 = %s, want UNDEF", got)
	}
	if got := evalOp(ir.OpAdd, lattice.Undef(), lattice.NAC()); !got.IsNAC() {
		t.Errorf("UNDEF + NAC = %s, want NAC", got)
	}
}

// x = read(); y = x / zero. The call result is NAC intra-procedurally,
// the division by a constant zero still evaluates to UNDEF.
func TestNACDividendConstantZeroDivisor(t *testing.T) {
	p := ir.NewProgram()
	c := p.NewClass("Main", nil)
	{
		rb := c.NewStaticMethod("read", ir.Int)
		r := rb.Local("r", ir.Int)
		rb.Lit(r, 1)
		rb.Ret(r)
	}
	b := c.NewStaticMethod("main", ir.Void)
	x := b.Local("x", ir.Int)
	zero := b.Local("zero", ir.Int)
	y := b.Local("y", ir.Int)
	b.Lit(zero, 0)
	call := b.CallStatic(x, c, "read")
	div := b.Bin(y, x, ir.OpDiv, zero)
	b.RetVoid()
	p.SetEntry(b.Method())
	p.Finish()

	res := dataflow.Solve[*lattice.CPFact](New(), cfg.Build(b.Method()))
	if got := res.OutFact(call).Get(x); !got.IsNAC() {
		t.Errorf("x = %s after call, want NAC", got)
	}
	if got := res.OutFact(div).Get(y); !got.IsUndef() {
		t.Errorf("y = %s after division, want UNDEF", got)
	}
}

// Parameters of the intra-procedural boundary fact are NAC; constants
// surviving a join stay constant, conflicting ones become NAC.
func TestIntraSolverBranchJoin(t *testing.T) {
	p := ir.NewProgram()
	c := p.NewClass("Main", nil)
	b := c.NewStaticMethod("main", ir.Void)
	cond := b.Param("cond", ir.Int)
	a := b.Local("a", ir.Int)
	k := b.Local("k", ir.Int)
	zero := b.Local("zero", ir.Int)

	b.Lit(zero, 0)
	b.Lit(k, 5)
	br := b.If(cond, ir.OpGt, zero)
	b.Lit(a, 1)
	g := b.Goto()
	br.SetTarget(b.PC())
	b.Lit(a, 2)
	g.SetTarget(b.PC())
	join := b.Bin(k, k, ir.OpAdd, k)
	b.RetVoid()
	p.SetEntry(b.Method())
	p.Finish()

	res := dataflow.Solve[*lattice.CPFact](New(), cfg.Build(b.Method()))
	in := res.InFact(join)
	if got := in.Get(cond); !got.IsNAC() {
		t.Errorf("param cond = %s, want NAC", got)
	}
	if got := in.Get(a); !got.IsNAC() {
		t.Errorf("a = %s at join, want NAC", got)
	}
	if got := in.Get(k); !got.IsConstant() || got.Constant() != 5 {
		t.Errorf("k = %s at join, want 5", got)
	}
	if got := res.OutFact(join).Get(k); !got.IsConstant() || got.Constant() != 10 {
		t.Errorf("k = %s after join, want 10", got)
	}
}

// A variable of a non-integer type is never tracked.
func TestNonIntegerDefClearsValue(t *testing.T) {
	p := ir.NewProgram()
	c := p.NewClass("Main", nil)
	a := p.NewClass("A", nil)
	b := c.NewStaticMethod("main", ir.Void)
	o := b.Local("o", a.Type())
	alloc := b.New(o, a.Type())
	b.RetVoid()
	p.SetEntry(b.Method())
	p.Finish()

	res := dataflow.Solve[*lattice.CPFact](New(), cfg.Build(b.Method()))
	if got := res.OutFact(alloc).Get(o); !got.IsUndef() {
		t.Errorf("o = %s, want UNDEF", got)
	}
}

// Running the transfer on its own output is a fixed point.
func TestTransferIdempotent(t *testing.T) {
	p := ir.NewProgram()
	c := p.NewClass("Main", nil)
	b := c.NewStaticMethod("main", ir.Void)
	x := b.Local("x", ir.Int)
	y := b.Local("y", ir.Int)
	b.Lit(x, 3)
	add := b.Bin(y, x, ir.OpAdd, x)
	b.RetVoid()
	p.SetEntry(b.Method())
	p.Finish()

	a := New()
	res := dataflow.Solve[*lattice.CPFact](a, cfg.Build(b.Method()))
	in := res.InFact(add).Copy()
	out := res.OutFact(add).Copy()
	if a.TransferNode(add, in, out) {
		t.Error("transfer changed the out fact at the fixed point")
	}
}
