package ir

import "fmt"

// Builder API for assembling IR programs in code. The driver demo and
// the package tests are the main clients; a front end would emit the
// same calls. Method names double as subsignatures: this IR has no
// overloading.

// NewClass declares a class with the given superclass (nil for the
// hierarchy root).
func (p *Program) NewClass(name string, super *Class) *Class {
	c := p.addClass(name, super, false)
	if super != nil {
		super.subclasses = append(super.subclasses, c)
	}
	return c
}

// NewInterface declares an interface extending the given interfaces.
func (p *Program) NewInterface(name string, supers ...*Class) *Class {
	c := p.addClass(name, nil, true)
	for _, s := range supers {
		s.subinterfaces = append(s.subinterfaces, c)
	}
	return c
}

func (p *Program) addClass(name string, super *Class, isInterface bool) *Class {
	if _, dup := p.classes[name]; dup {
		panic(fmt.Sprintf("duplicate class %s", name))
	}
	c := &Class{
		program:     p,
		name:        name,
		super:       super,
		isInterface: isInterface,
	}
	c.typ = &ClassType{class: c}
	p.classes[name] = c
	p.classList = append(p.classList, c)
	p.types[name] = c.typ
	return c
}

// AddImplements records that c implements the interface itf.
func (c *Class) AddImplements(itf *Class) {
	c.interfaces = append(c.interfaces, itf)
	itf.implementors = append(itf.implementors, c)
}

// NewField declares an instance field.
func (c *Class) NewField(name string, t Type) *Field {
	f := &Field{class: c, name: name, typ: t}
	c.fields = append(c.fields, f)
	return f
}

// NewStaticField declares a static field.
func (c *Class) NewStaticField(name string, t Type) *Field {
	f := &Field{class: c, name: name, typ: t, isStatic: true}
	c.fields = append(c.fields, f)
	return f
}

// MethodBuilder accumulates the body of a method under construction.
type MethodBuilder struct {
	m *Method
}

// NewMethod declares an instance method and returns its builder. The
// method is registered immediately so call sites may reference it
// before its body is complete (recursion, mutual recursion).
func (c *Class) NewMethod(name string, ret Type) *MethodBuilder {
	m := &Method{class: c, name: name, subsig: name, ret: ret}
	m.this = &Var{method: m, name: "this", typ: c.typ}
	c.methods = append(c.methods, m)
	return &MethodBuilder{m: m}
}

// NewStaticMethod declares a static method.
func (c *Class) NewStaticMethod(name string, ret Type) *MethodBuilder {
	m := &Method{class: c, name: name, subsig: name, ret: ret, isStatic: true}
	c.methods = append(c.methods, m)
	return &MethodBuilder{m: m}
}

// NewAbstractMethod declares an abstract method with no body.
func (c *Class) NewAbstractMethod(name string, ret Type) *Method {
	m := &Method{class: c, name: name, subsig: name, ret: ret, isAbstract: true}
	if !c.isInterface {
		m.this = &Var{method: m, name: "this", typ: c.typ}
	}
	c.methods = append(c.methods, m)
	return m
}

// Method returns the method under construction.
func (b *MethodBuilder) Method() *Method { return b.m }

// Param appends a parameter variable.
func (b *MethodBuilder) Param(name string, t Type) *Var {
	v := b.Local(name, t)
	b.m.params = append(b.m.params, v)
	return v
}

// Local introduces a fresh local variable.
func (b *MethodBuilder) Local(name string, t Type) *Var {
	v := &Var{method: b.m, name: name, typ: t}
	b.m.vars = append(b.m.vars, v)
	return v
}

// This returns the receiver variable.
func (b *MethodBuilder) This() *Var { return b.m.this }

// PC returns the index the next emitted statement will receive.
func (b *MethodBuilder) PC() int { return len(b.m.stmts) }

func (b *MethodBuilder) emit(s Stmt) {
	setIndex(s, len(b.m.stmts))
	b.m.stmts = append(b.m.stmts, s)
}

func (b *MethodBuilder) New(l *Var, t Type) *New {
	s := &New{L: l, T: t}
	b.emit(s)
	return s
}

func (b *MethodBuilder) Copy(l, r *Var) *Copy {
	s := &Copy{L: l, R: r}
	b.emit(s)
	return s
}

func (b *MethodBuilder) Lit(l *Var, v int32) *AssignLiteral {
	s := &AssignLiteral{L: l, V: IntLiteral(v)}
	b.emit(s)
	return s
}

func (b *MethodBuilder) Bin(l, a *Var, op BinOp, bb *Var) *Binary {
	s := &Binary{L: l, E: &BinaryExp{Op: op, A: a, B: bb}}
	b.emit(s)
	return s
}

func (b *MethodBuilder) Cast(l *Var, t Type, r *Var) *Cast {
	s := &Cast{L: l, T: t, R: r}
	b.emit(s)
	return s
}

func (b *MethodBuilder) Load(l, base *Var, f *Field) *LoadField {
	s := &LoadField{L: l, Base: base, Field: f}
	b.emit(s)
	return s
}

func (b *MethodBuilder) Store(base *Var, f *Field, r *Var) *StoreField {
	s := &StoreField{Base: base, Field: f, R: r}
	b.emit(s)
	return s
}

func (b *MethodBuilder) LoadStatic(l *Var, f *Field) *LoadField {
	s := &LoadField{L: l, Field: f}
	b.emit(s)
	return s
}

func (b *MethodBuilder) StoreStatic(f *Field, r *Var) *StoreField {
	s := &StoreField{Field: f, R: r}
	b.emit(s)
	return s
}

func (b *MethodBuilder) LoadArr(l, base, index *Var) *LoadArray {
	s := &LoadArray{L: l, Base: base, Idx: index}
	b.emit(s)
	return s
}

func (b *MethodBuilder) StoreArr(base, index, r *Var) *StoreArray {
	s := &StoreArray{Base: base, Idx: index, R: r}
	b.emit(s)
	return s
}

// Call emits a virtual or interface call on base, depending on the
// declaring class of the callee reference.
func (b *MethodBuilder) Call(l, base *Var, callee *Class, name string, args ...*Var) *Invoke {
	kind := CallVirtual
	if callee.isInterface {
		kind = CallInterface
	}
	return b.invoke(l, kind, MethodRef{Class: callee, Subsig: name}, base, args)
}

// CallStatic emits a static call.
func (b *MethodBuilder) CallStatic(l *Var, callee *Class, name string, args ...*Var) *Invoke {
	return b.invoke(l, CallStatic, MethodRef{Class: callee, Subsig: name}, nil, args)
}

// CallSpecial emits a special call (constructors, super calls).
func (b *MethodBuilder) CallSpecial(l, base *Var, callee *Class, name string, args ...*Var) *Invoke {
	return b.invoke(l, CallSpecial, MethodRef{Class: callee, Subsig: name}, base, args)
}

func (b *MethodBuilder) invoke(l *Var, kind CallKind, ref MethodRef, base *Var, args []*Var) *Invoke {
	s := &Invoke{method: b.m, L: l, Kind: kind, Ref: ref, Base: base, Args: args}
	b.emit(s)
	return s
}

// If emits `if (a op b) goto ...`; patch the target with SetTarget.
func (b *MethodBuilder) If(a *Var, op BinOp, bb *Var) *If {
	s := &If{Cond: &BinaryExp{Op: op, A: a, B: bb}, Target: -1}
	b.emit(s)
	return s
}

// Goto emits an unconditional jump; patch the target with SetTarget.
func (b *MethodBuilder) Goto() *Goto {
	s := &Goto{Target: -1}
	b.emit(s)
	return s
}

// Switch emits a switch on v; add arms with AddCase/SetDefault.
func (b *MethodBuilder) Switch(v *Var) *Switch {
	s := &Switch{V: v, Default: -1}
	b.emit(s)
	return s
}

// AddCase appends a `case value: goto target` arm.
func (s *Switch) AddCase(value int32, target int) {
	s.Cases = append(s.Cases, SwitchCase{Value: value, Target: target})
}

// SetDefault patches the default target.
func (s *Switch) SetDefault(target int) { s.Default = target }

func (b *MethodBuilder) Ret(v *Var) *Return {
	s := &Return{V: v}
	b.emit(s)
	return s
}

func (b *MethodBuilder) RetVoid() *Return {
	s := &Return{}
	b.emit(s)
	return s
}

func (b *MethodBuilder) Nop() *Nop {
	s := &Nop{}
	b.emit(s)
	return s
}

// Finish indexes the program after all bodies have been emitted; it
// performs no validation. Must be called exactly once before handing the program to
// the analyses.
func (p *Program) Finish() {
	for _, c := range p.classList {
		for _, m := range c.methods {
			if m.isAbstract {
				continue
			}
			m.finish()
		}
	}
}
