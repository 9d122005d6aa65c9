package ir

import "testing"

func TestVarStatementIndexes(t *testing.T) {
	p := NewProgram()
	a := p.NewClass("A", nil)
	f := a.NewField("f", Int)
	sf := a.NewStaticField("sf", Int)
	{
		mb := a.NewMethod("m", Void)
		mb.RetVoid()
	}

	c := p.NewClass("Main", nil)
	b := c.NewStaticMethod("main", Void)
	x := b.Local("x", a.Type())
	y := b.Local("y", Int)
	arr := b.Local("arr", p.ArrayTypeOf(Int))
	i := b.Local("i", Int)

	b.New(x, a.Type())
	st := b.Store(x, f, y)
	ld := b.Load(y, x, f)
	b.StoreStatic(sf, y)
	sa := b.StoreArr(arr, i, y)
	la := b.LoadArr(y, arr, i)
	inv := b.Call(nil, x, a, "m")
	r1 := b.Ret(y)
	b.Ret(y)
	p.SetEntry(b.Method())
	p.Finish()

	if got := x.StoreFields(); len(got) != 1 || got[0] != st {
		t.Errorf("StoreFields(x) = %v", got)
	}
	if got := x.LoadFields(); len(got) != 1 || got[0] != ld {
		t.Errorf("LoadFields(x) = %v", got)
	}
	if got := arr.StoreArrays(); len(got) != 1 || got[0] != sa {
		t.Errorf("StoreArrays(arr) = %v", got)
	}
	if got := arr.LoadArrays(); len(got) != 1 || got[0] != la {
		t.Errorf("LoadArrays(arr) = %v", got)
	}
	if got := x.Invokes(); len(got) != 1 || got[0] != inv {
		t.Errorf("Invokes(x) = %v", got)
	}
	if got := b.Method().ReturnVars(); len(got) != 1 || got[0] != y {
		t.Errorf("ReturnVars = %v: the same variable must be collected once", got)
	}
	if r1.Index() != 7 {
		t.Errorf("statement indices must follow emission order, got %d", r1.Index())
	}
}

func TestMethodRefDeclaredWalksSupers(t *testing.T) {
	p := NewProgram()
	a := p.NewClass("A", nil)
	{
		mb := a.NewMethod("m", Void)
		mb.RetVoid()
	}
	b := p.NewClass("B", a)
	ref := MethodRef{Class: b, Subsig: "m"}
	if got := ref.Declared(); got == nil || got.Class() != a {
		t.Errorf("Declared() = %v, want A.m through the superclass walk", got)
	}
	if got := (MethodRef{Class: b, Subsig: "nope"}).Declared(); got != nil {
		t.Errorf("Declared() = %v for unknown subsignature, want nil", got)
	}
}

func TestTypeByName(t *testing.T) {
	p := NewProgram()
	a := p.NewClass("A", nil)
	if p.TypeByName("int") != Int {
		t.Error("primitive lookup failed")
	}
	if p.TypeByName("A") != Type(a.Type()) {
		t.Error("class lookup failed")
	}
	if p.TypeByName("A[]") != Type(p.ArrayTypeOf(a.Type())) {
		t.Error("array lookup failed")
	}
	if p.TypeByName("B") != nil {
		t.Error("unknown type must be nil")
	}
	if !CanHoldInt(Boolean) || CanHoldInt(Long) || CanHoldInt(a.Type()) {
		t.Error("CanHoldInt misclassifies")
	}
}
