package pta

import (
	"fmt"
	"sort"
	"testing"

	"github.com/takin-dev/takin/analysis/defs"
	"github.com/takin-dev/takin/analysis/heap"
	"github.com/takin-dev/takin/ir"
)

func ptsNames(res *Result, v *ir.Var) []string {
	var names []string
	for _, o := range res.PtsVar(v) {
		names = append(names, o.Obj().Type().TypeName())
	}
	sort.Strings(names)
	return names
}

func equalStrings(a, b []string) bool {
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

// Two allocations merge at a virtual call: the call site resolves to
// both overrides.
func TestVirtualCallMergesReceivers(t *testing.T) {
	p := ir.NewProgram()
	a := p.NewClass("A", nil)
	a.NewAbstractMethod("m", ir.Int)
	bClass := p.NewClass("B", a)
	{
		mb := bClass.NewMethod("m", ir.Int)
		r := mb.Local("r", ir.Int)
		mb.Lit(r, 1)
		mb.Ret(r)
	}
	cClass := p.NewClass("C", a)
	{
		mb := cClass.NewMethod("m", ir.Int)
		r := mb.Local("r", ir.Int)
		mb.Lit(r, 2)
		mb.Ret(r)
	}

	mainClass := p.NewClass("Main", nil)
	b := mainClass.NewStaticMethod("main", ir.Void)
	x := b.Local("x", a.Type())
	r := b.Local("r", ir.Int)
	b.New(x, bClass.Type())
	b.New(x, cClass.Type())
	call := b.Call(r, x, a, "m")
	b.RetVoid()
	p.SetEntry(b.Method())
	p.Finish()

	res := NewSolver(p, heap.NewModel(), defs.NewCISelector()).Solve()

	if got := ptsNames(res, x); !equalStrings(got, []string{"B", "C"}) {
		t.Fatalf("pts(x) = %v, want objects of B and C", got)
	}
	callees := map[string]bool{}
	for _, m := range res.CICallGraph().CalleesOf(call) {
		callees[m.String()] = true
	}
	if !callees["B.m"] || !callees["C.m"] || len(callees) != 2 {
		t.Fatalf("callees at the virtual site = %v, want B.m and C.m", callees)
	}

	// the receivers flow into `this` of both targets
	bThis := bClass.DeclaredMethodByName("m").This()
	if got := ptsNames(res, bThis); !equalStrings(got, []string{"B"}) {
		t.Fatalf("pts(this) in B.m = %v, want the B object", got)
	}
}

// A constant object flows through a field of an aliased base.
func TestFieldStoreLoadThroughAlias(t *testing.T) {
	p := ir.NewProgram()
	valClass := p.NewClass("V", nil)
	a := p.NewClass("A", nil)
	f := a.NewField("f", valClass.Type())

	mainClass := p.NewClass("Main", nil)
	b := mainClass.NewStaticMethod("main", ir.Void)
	a1 := b.Local("a1", a.Type())
	a2 := b.Local("a2", a.Type())
	v := b.Local("v", valClass.Type())
	z := b.Local("z", valClass.Type())
	b.New(a1, a.Type())
	b.Copy(a2, a1)
	b.New(v, valClass.Type())
	b.Store(a1, f, v)
	b.Load(z, a2, f)
	b.RetVoid()
	p.SetEntry(b.Method())
	p.Finish()

	res := NewSolver(p, heap.NewModel(), defs.NewCISelector()).Solve()

	if got := ptsNames(res, a1); !equalStrings(got, []string{"A"}) {
		t.Fatalf("pts(a1) = %v", got)
	}
	if got, want := ptsNames(res, a2), ptsNames(res, a1); !equalStrings(got, want) {
		t.Fatalf("pts(a2) = %v, want pts(a1) = %v", got, want)
	}
	if got := ptsNames(res, z); !equalStrings(got, []string{"V"}) {
		t.Fatalf("pts(z) = %v, want the V object through the field alias", got)
	}
}

// Array cells are one abstract location per object.
func TestArrayStoreLoad(t *testing.T) {
	p := ir.NewProgram()
	valClass := p.NewClass("V", nil)
	arrT := p.ArrayTypeOf(valClass.Type())

	mainClass := p.NewClass("Main", nil)
	b := mainClass.NewStaticMethod("main", ir.Void)
	arr := b.Local("arr", arrT)
	i := b.Local("i", ir.Int)
	j := b.Local("j", ir.Int)
	v := b.Local("v", valClass.Type())
	z := b.Local("z", valClass.Type())
	b.New(arr, arrT)
	b.New(v, valClass.Type())
	b.Lit(i, 0)
	b.Lit(j, 1)
	b.StoreArr(arr, i, v)
	b.LoadArr(z, arr, j)
	b.RetVoid()
	p.SetEntry(b.Method())
	p.Finish()

	res := NewSolver(p, heap.NewModel(), defs.NewCISelector()).Solve()
	if got := ptsNames(res, z); !equalStrings(got, []string{"V"}) {
		t.Fatalf("pts(z) = %v: all indices share the abstract cell", got)
	}
}

// Static fields connect stores and loads across methods.
func TestStaticFieldFlow(t *testing.T) {
	p := ir.NewProgram()
	valClass := p.NewClass("V", nil)
	holder := p.NewClass("H", nil)
	g := holder.NewStaticField("g", valClass.Type())

	mainClass := p.NewClass("Main", nil)
	{
		sb := mainClass.NewStaticMethod("setup", ir.Void)
		v := sb.Local("v", valClass.Type())
		sb.New(v, valClass.Type())
		sb.StoreStatic(g, v)
		sb.RetVoid()
	}
	b := mainClass.NewStaticMethod("main", ir.Void)
	z := b.Local("z", valClass.Type())
	b.CallStatic(nil, mainClass, "setup")
	b.LoadStatic(z, g)
	b.RetVoid()
	p.SetEntry(b.Method())
	p.Finish()

	res := NewSolver(p, heap.NewModel(), defs.NewCISelector()).Solve()
	if got := ptsNames(res, z); !equalStrings(got, []string{"V"}) {
		t.Fatalf("pts(z) = %v, want the V object through the static field", got)
	}
}

// Recursion and mutual recursion terminate with every method
// reachable exactly once.
func TestRecursionTerminates(t *testing.T) {
	p := ir.NewProgram()
	mainClass := p.NewClass("Main", nil)
	{
		fb := mainClass.NewStaticMethod("f", ir.Void)
		fb.CallStatic(nil, mainClass, "g")
		fb.CallStatic(nil, mainClass, "f")
		fb.RetVoid()
	}
	{
		gb := mainClass.NewStaticMethod("g", ir.Void)
		gb.CallStatic(nil, mainClass, "f")
		gb.RetVoid()
	}
	b := mainClass.NewStaticMethod("main", ir.Void)
	b.CallStatic(nil, mainClass, "f")
	b.RetVoid()
	p.SetEntry(b.Method())
	p.Finish()

	res := NewSolver(p, heap.NewModel(), defs.NewCISelector()).Solve()
	reachable := map[string]int{}
	for _, m := range res.CICallGraph().ReachableMethods() {
		reachable[m.String()]++
	}
	for _, name := range []string{"Main.main", "Main.f", "Main.g"} {
		if reachable[name] != 1 {
			t.Errorf("%s reachable %d times, want 1", name, reachable[name])
		}
	}
}

// A callee whose body is a single allocation, with no return, is fine.
func TestBoundaryMethods(t *testing.T) {
	p := ir.NewProgram()
	a := p.NewClass("A", nil)
	mainClass := p.NewClass("Main", nil)
	{
		ab := mainClass.NewStaticMethod("allocOnly", ir.Void)
		o := ab.Local("o", a.Type())
		ab.New(o, a.Type())
	}
	b := mainClass.NewStaticMethod("main", ir.Void)
	b.CallStatic(nil, mainClass, "allocOnly")
	p.SetEntry(b.Method())
	p.Finish()

	res := NewSolver(p, heap.NewModel(), defs.NewCISelector()).Solve()
	if !res.CICallGraph().Contains(mainClass.DeclaredMethodByName("allocOnly")) {
		t.Fatal("allocOnly must be reachable")
	}
}

// 1-call-site sensitivity separates what the insensitive analysis
// merges through an identity method.
func TestCallSiteSensitivitySeparates(t *testing.T) {
	build := func() (*ir.Program, *ir.Var, *ir.Var) {
		p := ir.NewProgram()
		base := p.NewClass("T", nil)
		aClass := p.NewClass("TA", base)
		bClass := p.NewClass("TB", base)
		mainClass := p.NewClass("Main", nil)
		{
			idb := mainClass.NewStaticMethod("id", base.Type())
			o := idb.Param("o", base.Type())
			idb.Ret(o)
		}
		b := mainClass.NewStaticMethod("main", ir.Void)
		o1 := b.Local("o1", base.Type())
		o2 := b.Local("o2", base.Type())
		r1 := b.Local("r1", base.Type())
		r2 := b.Local("r2", base.Type())
		b.New(o1, aClass.Type())
		b.New(o2, bClass.Type())
		b.CallStatic(r1, mainClass, "id", o1)
		b.CallStatic(r2, mainClass, "id", o2)
		b.RetVoid()
		p.SetEntry(b.Method())
		p.Finish()
		return p, r1, r2
	}

	p, r1, r2 := build()
	ci := NewSolver(p, heap.NewModel(), defs.NewCISelector()).Solve()
	if got := ptsNames(ci, r1); !equalStrings(got, []string{"TA", "TB"}) {
		t.Fatalf("insensitive pts(r1) = %v, want both objects", got)
	}

	p, r1, r2 = build()
	cs := NewSolver(p, heap.NewModel(), defs.NewKCallSelector(1)).Solve()
	if got := ptsNames(cs, r1); !equalStrings(got, []string{"TA"}) {
		t.Fatalf("1-call-site pts(r1) = %v, want only the first object", got)
	}
	if got := ptsNames(cs, r2); !equalStrings(got, []string{"TB"}) {
		t.Fatalf("1-call-site pts(r2) = %v, want only the second object", got)
	}
}

// At the fixed point, every PFG edge u → v satisfies pts(u) ⊆ pts(v),
// and solving twice yields identical results.
func TestFixedPointInvariants(t *testing.T) {
	mk := func() *ir.Program {
		p := ir.NewProgram()
		a := p.NewClass("A", nil)
		f := a.NewField("f", a.Type())
		mainClass := p.NewClass("Main", nil)
		b := mainClass.NewStaticMethod("main", ir.Void)
		x := b.Local("x", a.Type())
		y := b.Local("y", a.Type())
		z := b.Local("z", a.Type())
		b.New(x, a.Type())
		b.New(y, a.Type())
		b.Copy(z, x)
		b.Copy(z, y)
		b.Store(x, f, z)
		b.Load(y, x, f)
		b.RetVoid()
		p.SetEntry(b.Method())
		p.Finish()
		return p
	}

	snapshot := func(res *Result) string {
		var s string
		for _, csv := range res.CSVars() {
			s += fmt.Sprintf("%s=%s\n", csv, csv.PointsToSet())
		}
		return s
	}

	res := NewSolver(mk(), heap.NewModel(), defs.NewCISelector()).Solve()
	for _, u := range res.PFG().Nodes() {
		for _, v := range res.PFG().SuccsOf(u) {
			for _, o := range u.PointsToSet().Objects() {
				if !v.PointsToSet().Contains(o) {
					t.Fatalf("edge %s -> %s violates subset: missing %s", u, v, o)
				}
			}
		}
	}

	res2 := NewSolver(mk(), heap.NewModel(), defs.NewCISelector()).Solve()
	if snapshot(res) != snapshot(res2) {
		t.Fatal("two solves over the same input differ")
	}
}

func TestPFGVisualize(t *testing.T) {
	p := ir.NewProgram()
	a := p.NewClass("A", nil)
	mainClass := p.NewClass("Main", nil)
	b := mainClass.NewStaticMethod("main", ir.Void)
	x := b.Local("x", a.Type())
	y := b.Local("y", a.Type())
	b.New(x, a.Type())
	b.Copy(y, x)
	b.RetVoid()
	p.SetEntry(b.Method())
	p.Finish()

	res := NewSolver(p, heap.NewModel(), defs.NewCISelector()).Solve()
	g := res.PFG().Visualize()
	if len(g.Nodes) == 0 || len(g.Edges) == 0 {
		t.Fatalf("visualization has %d nodes and %d edges", len(g.Nodes), len(g.Edges))
	}
}
