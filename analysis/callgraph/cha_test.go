package callgraph

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/takin-dev/takin/ir"
)

// A hierarchy with an override, an interface, an interface without
// implementors and a static helper:
//
//	class A { m() }  class B extends A { m(), k() }  class C extends A {}
//	interface I { k() }  (B implements I)
//	interface J { z() }  (no implementors)
func chaProgram() (*ir.Program, *ir.MethodBuilder) {
	p := ir.NewProgram()

	a := p.NewClass("A", nil)
	{
		mb := a.NewMethod("m", ir.Void)
		mb.RetVoid()
	}
	i := p.NewInterface("I")
	i.NewAbstractMethod("k", ir.Void)
	j := p.NewInterface("J")
	j.NewAbstractMethod("z", ir.Void)

	bc := p.NewClass("B", a)
	bc.AddImplements(i)
	{
		mb := bc.NewMethod("m", ir.Void)
		mb.RetVoid()
	}
	{
		mb := bc.NewMethod("k", ir.Void)
		mb.RetVoid()
	}
	p.NewClass("C", a)

	mainClass := p.NewClass("Main", nil)
	{
		hb := mainClass.NewStaticMethod("helper", ir.Void)
		hb.RetVoid()
	}

	b := mainClass.NewStaticMethod("main", ir.Void)
	x := b.Local("x", bc.Type())
	b.New(x, bc.Type())
	b.Call(nil, x, a, "m")      // virtual over the A hierarchy
	b.Call(nil, x, i, "k")      // interface with one implementor
	b.CallStatic(nil, mainClass, "helper")
	b.Call(nil, x, j, "z")      // interface without implementors
	b.CallSpecial(nil, x, a, "m")
	b.RetVoid()
	p.SetEntry(b.Method())
	p.Finish()
	return p, b
}

func TestCHADump(t *testing.T) {
	p, _ := chaProgram()
	cg := BuildCHA(p.Entry())
	goldie.New(t).Assert(t, t.Name(), Dump(cg))
}

func TestCHAResolution(t *testing.T) {
	p, b := chaProgram()
	cg := BuildCHA(p.Entry())

	stmts := b.Method().Stmts()
	virtCall := stmts[1].(*ir.Invoke)
	itfCall := stmts[2].(*ir.Invoke)
	noImplCall := stmts[4].(*ir.Invoke)

	if got := cg.CalleesOf(virtCall); len(got) != 2 {
		t.Fatalf("virtual call resolves to %v, want A.m and B.m", got)
	}
	if got := cg.CalleesOf(itfCall); len(got) != 1 || got[0].String() != "B.k" {
		t.Fatalf("interface call resolves to %v, want B.k", got)
	}
	if got := cg.CalleesOf(noImplCall); len(got) != 0 {
		t.Fatalf("call on implementor-less interface resolves to %v, want nothing", got)
	}

	aClass := p.ClassByName("A")
	cClass := p.ClassByName("C")
	r := NewResolver()
	if m := r.Dispatch(cClass, "m"); m == nil || m.Class() != aClass {
		t.Errorf("dispatch on C must walk up to A.m, got %v", m)
	}
	if m := r.Dispatch(aClass, "nope"); m != nil {
		t.Errorf("dispatch miss must resolve to nil, got %v", m)
	}
}

func TestGraphIdempotence(t *testing.T) {
	p, _ := chaProgram()
	g := NewGraph[*ir.Invoke, *ir.Method]()
	m := p.Entry()
	if !g.AddReachableMethod(m) {
		t.Fatal("first AddReachableMethod must report true")
	}
	if g.AddReachableMethod(m) {
		t.Fatal("second AddReachableMethod must report false")
	}

	inv := p.Entry().Stmts()[1].(*ir.Invoke)
	e := Edge[*ir.Invoke, *ir.Method]{Kind: ir.CallVirtual, Site: inv, Callee: m}
	if !g.AddEdge(e) || g.AddEdge(e) {
		t.Fatal("AddEdge must be idempotent")
	}
	if len(g.Edges()) != 1 {
		t.Fatalf("edge stored %d times", len(g.Edges()))
	}
}
