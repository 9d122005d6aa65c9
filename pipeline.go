package main

import (
	"fmt"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/takin-dev/takin/analysis/callgraph"
	"github.com/takin-dev/takin/analysis/cfg"
	"github.com/takin-dev/takin/analysis/constprop"
	"github.com/takin-dev/takin/analysis/dataflow"
	"github.com/takin-dev/takin/analysis/deadcode"
	"github.com/takin-dev/takin/analysis/defs"
	"github.com/takin-dev/takin/analysis/heap"
	"github.com/takin-dev/takin/analysis/inter"
	"github.com/takin-dev/takin/analysis/lattice"
	"github.com/takin-dev/takin/analysis/livevars"
	"github.com/takin-dev/takin/analysis/pta"
	"github.com/takin-dev/takin/analysis/registry"
	"github.com/takin-dev/takin/analysis/taint"
	"github.com/takin-dev/takin/ir"
	"github.com/takin-dev/takin/utils/dot"
)

// pipeline wires the analyses over a program and owns the result
// registry.
type pipeline struct {
	program *ir.Program
	reg     *registry.Registry
}

func newPipeline() *pipeline {
	return &pipeline{program: demoProgram(), reg: registry.New()}
}

func (p *pipeline) run(task string) error {
	switch task {
	case "cha":
		p.runCHA()
	case "points-to":
		return p.runPointsTo()
	case "constprop":
		p.runConstProp()
	case "inter-constprop":
		return p.runInterConstProp()
	case "deadcode":
		p.runDeadcode()
	case "taint":
		return p.runTaint()
	default:
		return fmt.Errorf("unknown task %q", task)
	}
	return nil
}

func (p *pipeline) selector() (defs.ContextSelector, error) {
	switch opts.context {
	case "insensitive":
		return defs.NewCISelector(), nil
	case "1-callsite":
		return defs.NewKCallSelector(1), nil
	case "2-callsite":
		return defs.NewKCallSelector(2), nil
	case "1-object":
		return defs.NewKObjSelector(1), nil
	default:
		return nil, fmt.Errorf("unknown context sensitivity %q", opts.context)
	}
}

func (p *pipeline) runCHA() {
	log.Info("Building call graph with CHA...")
	cg := callgraph.BuildCHA(p.program.Entry())
	p.reg.Store("cha", cg)
	fmt.Println(colorize.Heading("Call graph (CHA):"))
	fmt.Print(string(callgraph.Dump(cg)))
}

func (p *pipeline) runPointsTo() error {
	sel, err := p.selector()
	if err != nil {
		return err
	}
	log.Info("Performing pointer analysis...")
	solver := pta.NewSolver(p.program, heap.NewModel(), sel)
	res := solver.Solve()
	p.reg.Store(pta.ID, res)

	fmt.Println(colorize.Heading("Points-to sets:"))
	for _, csv := range res.CSVars() {
		if csv.PointsToSet().IsEmpty() {
			continue
		}
		fmt.Printf("  %s -> %s\n", colorize.Fact(csv), csv.PointsToSet())
	}
	if opts.visualize {
		return renderPFG(res)
	}
	return nil
}

func renderPFG(res *pta.Result) error {
	g := res.PFG().Visualize()
	img, err := dot.DotToImage(filepath.Join(opts.outputDir, "pfg"), "svg", []byte(g.String()))
	if err != nil {
		return err
	}
	log.Infof("pointer-flow graph rendered to %s", img)
	return nil
}

func (p *pipeline) runConstProp() {
	log.Info("Performing intra-procedural constant propagation...")
	cg := callgraph.BuildCHA(p.program.Entry())
	for _, m := range cg.ReachableMethods() {
		if m.IsAbstract() {
			continue
		}
		c := cfg.Build(m)
		res := dataflow.Solve[*lattice.CPFact](constprop.New(), c)
		p.reg.Store(constprop.ID+":"+m.String(), res)
		fmt.Println(colorize.Heading(m.String() + ":"))
		for _, s := range m.Stmts() {
			fmt.Printf("  %2d %-30s %s\n", s.Index(), s, colorize.Fact(res.OutFact(s)))
		}
	}
}

func (p *pipeline) runInterConstProp() error {
	log.Info("Performing inter-procedural constant propagation...")
	solver := pta.NewSolver(p.program, heap.NewModel(), defs.NewCISelector())
	p.reg.Store(pta.ID, solver.Solve())

	ci := solver.Result().CI()
	icfg := cfg.BuildICFG(ci.CallGraph)
	icp, err := inter.NewConstProp(p.reg, registry.Options{"pta": pta.ID})
	if err != nil {
		return err
	}
	res := inter.NewSolver(icp, icfg).Solve()
	p.reg.Store(inter.ID, res)

	for _, m := range ci.CallGraph.ReachableMethods() {
		if m.IsAbstract() {
			continue
		}
		fmt.Println(colorize.Heading(m.String() + ":"))
		for _, s := range m.Stmts() {
			fmt.Printf("  %2d %-30s %s\n", s.Index(), s, colorize.Fact(res.OutFact(s)))
		}
	}
	return nil
}

func (p *pipeline) runDeadcode() {
	log.Info("Detecting dead code...")
	cg := callgraph.BuildCHA(p.program.Entry())
	for _, m := range cg.ReachableMethods() {
		if m.IsAbstract() {
			continue
		}
		c := cfg.Build(m)
		constants := dataflow.Solve[*lattice.CPFact](constprop.New(), c)
		live := livevars.Solve(c)
		dead := deadcode.Detect(c, constants, live)
		p.reg.Store(deadcode.ID+":"+m.String(), dead)
		if len(dead) == 0 {
			continue
		}
		fmt.Println(colorize.Heading(m.String() + ":"))
		for _, s := range dead {
			fmt.Printf("  %2d %s\n", s.Index(), colorize.Finding(s))
		}
	}
}

func (p *pipeline) runTaint() error {
	if opts.taintConfig == "" {
		return fmt.Errorf("taint: no -taint-config given")
	}
	sel, err := p.selector()
	if err != nil {
		return err
	}
	log.Info("Performing taint analysis...")
	solver := pta.NewSolver(p.program, heap.NewModel(), sel)
	if _, err := taint.New(solver, opts.taintConfig); err != nil {
		return err
	}
	res := solver.Solve()
	p.reg.Store(pta.ID, res)

	flowsAny, _ := res.GetResult(taint.ID)
	flows, _ := flowsAny.([]taint.Flow)
	fmt.Println(colorize.Heading(fmt.Sprintf("Taint flows (%d):", len(flows))))
	for _, f := range flows {
		fmt.Printf("  %s\n", colorize.Finding(f))
	}
	return nil
}

// demoProgram assembles the sample program the driver tasks run on: a
// small shape hierarchy with a virtual call over two allocations,
// field and array constants flowing through aliases, a static field, a
// constant branch with dead code, and a secret that leaks into a log
// call.
func demoProgram() *ir.Program {
	p := ir.NewProgram()

	shape := p.NewInterface("Shape")
	shape.NewAbstractMethod("area", ir.Int)

	square := p.NewClass("Square", nil)
	square.AddImplements(shape)
	side := square.NewField("side", ir.Int)
	{
		b := square.NewMethod("area", ir.Int)
		t := b.Local("t", ir.Int)
		r := b.Local("r", ir.Int)
		b.Load(t, b.This(), side)
		b.Bin(r, t, ir.OpMul, t)
		b.Ret(r)
	}

	circle := p.NewClass("Circle", nil)
	circle.AddImplements(shape)
	radius := circle.NewField("radius", ir.Int)
	{
		b := circle.NewMethod("area", ir.Int)
		t := b.Local("t", ir.Int)
		u := b.Local("u", ir.Int)
		three := b.Local("three", ir.Int)
		r := b.Local("r", ir.Int)
		b.Load(t, b.This(), radius)
		b.Bin(u, t, ir.OpMul, t)
		b.Lit(three, 3)
		b.Bin(r, u, ir.OpMul, three)
		b.Ret(r)
	}

	secret := p.NewClass("Secret", nil)
	conf := p.NewClass("Config", nil)
	total := conf.NewStaticField("total", ir.Int)

	mainClass := p.NewClass("Main", nil)
	{
		b := mainClass.NewStaticMethod("getSecret", secret.Type())
		s := b.Local("s", secret.Type())
		b.New(s, secret.Type())
		b.Ret(s)
	}
	{
		b := mainClass.NewStaticMethod("wrap", secret.Type())
		b.Param("x", secret.Type())
		w := b.Local("w", secret.Type())
		b.New(w, secret.Type())
		b.Ret(w)
	}
	{
		b := mainClass.NewStaticMethod("log", ir.Void)
		b.Param("m", secret.Type())
		b.RetVoid()
	}
	{
		b := mainClass.NewStaticMethod("live", ir.Void)
		b.RetVoid()
	}
	{
		b := mainClass.NewStaticMethod("dead", ir.Void)
		b.RetVoid()
	}

	b := mainClass.NewStaticMethod("main", ir.Void)
	sq := b.Local("sq", square.Type())
	sq2 := b.Local("sq2", square.Type())
	ci := b.Local("ci", circle.Type())
	sh := b.Local("sh", shape.Type())
	one := b.Local("one", ir.Int)
	zero := b.Local("zero", ir.Int)
	seven := b.Local("seven", ir.Int)
	got := b.Local("got", ir.Int)
	area := b.Local("area", ir.Int)
	tot := b.Local("tot", ir.Int)
	arr := b.Local("arr", p.ArrayTypeOf(ir.Int))
	i0 := b.Local("i0", ir.Int)
	elem := b.Local("elem", ir.Int)
	q := b.Local("q", ir.Int)
	unused := b.Local("unused", ir.Int)
	sec := b.Local("sec", secret.Type())
	wr := b.Local("wr", secret.Type())

	b.Lit(one, 1)
	b.Lit(zero, 0)
	b.Lit(seven, 7)

	// two allocations merge at the virtual call below
	b.New(sq, square.Type())
	b.Copy(sq2, sq)
	b.Store(sq, side, seven)
	b.Load(got, sq2, side)
	b.New(ci, circle.Type())
	br := b.If(one, ir.OpLt, zero)
	b.Copy(sh, sq)
	g := b.Goto()
	br.SetTarget(b.PC())
	b.Copy(sh, ci)
	g.SetTarget(b.PC())
	b.Call(area, sh, shape, "area")

	// static field round trip
	b.StoreStatic(total, seven)
	b.LoadStatic(tot, total)

	// array cell shared by all indices
	b.New(arr, p.ArrayTypeOf(ir.Int))
	b.Lit(i0, 0)
	b.StoreArr(arr, i0, seven)
	b.LoadArr(elem, arr, i0)

	// constant zero divisor
	b.Bin(q, seven, ir.OpDiv, zero)

	// dead assignment; q is never read either, but carries the division
	b.Bin(unused, one, ir.OpAdd, one)

	// constant branch: dead() is unreachable
	br2 := b.If(one, ir.OpLt, zero)
	b.CallStatic(nil, mainClass, "live")
	g2 := b.Goto()
	br2.SetTarget(b.PC())
	b.CallStatic(nil, mainClass, "dead")
	g2.SetTarget(b.PC())

	// the secret flows through wrap into the log sink
	b.CallStatic(sec, mainClass, "getSecret")
	b.CallStatic(wr, mainClass, "wrap", sec)
	b.CallStatic(nil, mainClass, "log", wr)

	b.RetVoid()

	p.SetEntry(b.Method())
	p.Finish()
	return p
}
