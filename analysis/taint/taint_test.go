package taint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/takin-dev/takin/analysis/defs"
	"github.com/takin-dev/takin/analysis/heap"
	"github.com/takin-dev/takin/analysis/pta"
	"github.com/takin-dev/takin/ir"
)

// taintProgram builds:
//
//	x = getSecret(); log(x)
//	y = wrap(x);     log(y)   (arg-to-result transfer)
//	b = new Box; b.put(x); z = b.get(); log(z)
//	                         (arg-to-base, then base-to-result)
func taintProgram() (*ir.Program, *ir.Invoke, []*ir.Invoke) {
	p := ir.NewProgram()
	secret := p.NewClass("Secret", nil)

	box := p.NewClass("Box", nil)
	{
		pb := box.NewMethod("put", ir.Void)
		pb.Param("s", secret.Type())
		pb.RetVoid()
	}
	{
		gb := box.NewMethod("get", secret.Type())
		g := gb.Local("g", secret.Type())
		gb.New(g, secret.Type())
		gb.Ret(g)
	}

	mainClass := p.NewClass("Main", nil)
	{
		sb := mainClass.NewStaticMethod("getSecret", secret.Type())
		s := sb.Local("s", secret.Type())
		sb.New(s, secret.Type())
		sb.Ret(s)
	}
	{
		wb := mainClass.NewStaticMethod("wrap", secret.Type())
		wb.Param("x", secret.Type())
		w := wb.Local("w", secret.Type())
		wb.New(w, secret.Type())
		wb.Ret(w)
	}
	{
		lb := mainClass.NewStaticMethod("log", ir.Void)
		lb.Param("m", secret.Type())
		lb.RetVoid()
	}

	b := mainClass.NewStaticMethod("main", ir.Void)
	x := b.Local("x", secret.Type())
	y := b.Local("y", secret.Type())
	z := b.Local("z", secret.Type())
	bx := b.Local("bx", box.Type())

	src := b.CallStatic(x, mainClass, "getSecret")
	log1 := b.CallStatic(nil, mainClass, "log", x)
	b.CallStatic(y, mainClass, "wrap", x)
	log2 := b.CallStatic(nil, mainClass, "log", y)
	b.New(bx, box.Type())
	b.Call(nil, bx, box, "put", x)
	b.Call(z, bx, box, "get")
	log3 := b.CallStatic(nil, mainClass, "log", z)
	b.RetVoid()

	p.SetEntry(b.Method())
	p.Finish()
	return p, src, []*ir.Invoke{log1, log2, log3}
}

func runTaint(t *testing.T, p *ir.Program) []Flow {
	t.Helper()
	solver := pta.NewSolver(p, heap.NewModel(), defs.NewCISelector())
	if _, err := New(solver, filepath.Join("testdata", "taint.yml")); err != nil {
		t.Fatal(err)
	}
	res := solver.Solve()
	flowsAny, ok := res.GetResult(ID)
	if !ok {
		t.Fatal("no taint result stored")
	}
	return flowsAny.([]Flow)
}

func TestTaintFlows(t *testing.T) {
	p, src, logs := taintProgram()
	flows := runTaint(t, p)

	want := map[*ir.Invoke]bool{logs[0]: false, logs[1]: false, logs[2]: false}
	for _, f := range flows {
		if f.Source != src {
			t.Errorf("flow %s has unexpected source", f)
		}
		if f.Index != 0 {
			t.Errorf("flow %s has unexpected sink index", f)
		}
		if _, isSink := want[f.Sink]; !isSink {
			t.Errorf("flow %s reaches an unexpected sink", f)
		}
		want[f.Sink] = true
	}
	if !want[logs[0]] {
		t.Error("direct source-to-sink flow missing")
	}
	if !want[logs[1]] {
		t.Error("flow through the arg-to-result transfer missing")
	}
	if !want[logs[2]] {
		t.Error("flow through arg-to-base and base-to-result transfers missing")
	}
	if len(flows) != 3 {
		t.Errorf("got %d flows, want 3", len(flows))
	}
}

func TestFlowsAreOrderedAndDeterministic(t *testing.T) {
	p, _, _ := taintProgram()
	first := runTaint(t, p)

	p2, _, _ := taintProgram()
	second := runTaint(t, p2)
	if len(first) != len(second) {
		t.Fatal("two runs disagree on the number of flows")
	}
	for i := range first {
		if first[i].String() != second[i].String() {
			t.Fatalf("flow order differs at %d: %s vs %s", i, first[i], second[i])
		}
	}
}

func TestLoadConfigErrors(t *testing.T) {
	p, _, _ := taintProgram()

	if _, err := LoadConfig(filepath.Join("testdata", "absent.yml"), p); err == nil {
		t.Error("missing config file must be an error")
	}

	bad := filepath.Join(t.TempDir(), "bad.yml")
	os.WriteFile(bad, []byte("sources:\n  - { method: \"Nope.nope\", type: \"Secret\" }\n"), 0644)
	if _, err := LoadConfig(bad, p); err == nil {
		t.Error("unresolvable method must be an error")
	}

	malformed := filepath.Join(t.TempDir(), "malformed.yml")
	os.WriteFile(malformed, []byte("sources: ["), 0644)
	if _, err := LoadConfig(malformed, p); err == nil {
		t.Error("malformed yaml must be an error")
	}
}

func TestPosUnmarshal(t *testing.T) {
	p, _, _ := taintProgram()
	file := filepath.Join(t.TempDir(), "pos.yml")
	os.WriteFile(file, []byte(
		"transfers:\n  - { method: \"Main.wrap\", from: 0, to: \"result\", type: \"Secret\" }\n"+
			"  - { method: \"Box.get\", from: \"base\", to: \"result\", type: \"Secret\" }\n"), 0644)
	cfg, err := LoadConfig(file, p)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Transfers[0].From != 0 || cfg.Transfers[0].To != PosResult {
		t.Errorf("transfer 0 decoded as %d -> %d", cfg.Transfers[0].From, cfg.Transfers[0].To)
	}
	if cfg.Transfers[1].From != PosBase {
		t.Errorf("\"base\" decoded as %d", cfg.Transfers[1].From)
	}
}
