package ir

import (
	"fmt"
	"strings"
)

// Program is a whole IR program: a set of classes closed under the
// hierarchy relations, and a designated entry method.
type Program struct {
	classes    map[string]*Class
	classList  []*Class
	arrayTypes map[Type]*ArrayType
	types      map[string]Type
	entry      *Method
}

func NewProgram() *Program {
	p := &Program{
		classes:    make(map[string]*Class),
		arrayTypes: make(map[Type]*ArrayType),
		types:      make(map[string]Type),
	}
	for _, t := range []PrimitiveType{Byte, Short, Int, Char, Boolean, Long, Void} {
		p.types[t.TypeName()] = t
	}
	return p
}

// Entry returns the designated entry method of the program.
func (p *Program) Entry() *Method { return p.entry }

func (p *Program) SetEntry(m *Method) { p.entry = m }

// Classes returns all classes in declaration order.
func (p *Program) Classes() []*Class { return p.classList }

// ClassByName looks up a class, or nil.
func (p *Program) ClassByName(name string) *Class { return p.classes[name] }

// TypeByName resolves a type name ("int", "A", "A[]") to the canonical
// type, or nil when unknown.
func (p *Program) TypeByName(name string) Type {
	if t, ok := p.types[name]; ok {
		return t
	}
	if strings.HasSuffix(name, "[]") {
		if elem := p.TypeByName(strings.TrimSuffix(name, "[]")); elem != nil {
			return p.ArrayTypeOf(elem)
		}
	}
	return nil
}

// ArrayTypeOf returns the canonical array type over elem.
func (p *Program) ArrayTypeOf(elem Type) *ArrayType {
	if t, ok := p.arrayTypes[elem]; ok {
		return t
	}
	t := &ArrayType{elem: elem}
	p.arrayTypes[elem] = t
	p.types[t.TypeName()] = t
	return t
}

// MethodBySignature resolves a "Class.name" signature to the declared
// method, or nil.
func (p *Program) MethodBySignature(sig string) *Method {
	dot := strings.LastIndex(sig, ".")
	if dot < 0 {
		return nil
	}
	class := p.ClassByName(sig[:dot])
	if class == nil {
		return nil
	}
	return class.DeclaredMethodByName(sig[dot+1:])
}

// Class is a class or an interface of the IR program.
type Class struct {
	program     *Program
	name        string
	super       *Class
	isInterface bool
	interfaces  []*Class

	fields  []*Field
	methods []*Method

	// direct hierarchy back references
	subclasses    []*Class
	subinterfaces []*Class
	implementors  []*Class

	typ *ClassType
}

func (c *Class) Name() string       { return c.name }
func (c *Class) Program() *Program  { return c.program }
func (c *Class) Super() *Class      { return c.super }
func (c *Class) IsInterface() bool  { return c.isInterface }
func (c *Class) Type() *ClassType   { return c.typ }
func (c *Class) Fields() []*Field   { return c.fields }
func (c *Class) Methods() []*Method { return c.methods }

// DirectSubclassesOf style accessors, used by the call-graph builders.
func (c *Class) DirectSubclasses() []*Class    { return c.subclasses }
func (c *Class) DirectSubinterfaces() []*Class { return c.subinterfaces }
func (c *Class) DirectImplementors() []*Class  { return c.implementors }

// DeclaredMethod returns the method with the given subsignature
// declared directly on c, or nil.
func (c *Class) DeclaredMethod(subsig string) *Method {
	for _, m := range c.methods {
		if m.subsig == subsig {
			return m
		}
	}
	return nil
}

// DeclaredMethodByName returns the declared method with the given
// name, or nil. Names are unique per class in this IR.
func (c *Class) DeclaredMethodByName(name string) *Method {
	for _, m := range c.methods {
		if m.name == name {
			return m
		}
	}
	return nil
}

func (c *Class) String() string { return c.name }

// Field is a (possibly static) field of a class.
type Field struct {
	class    *Class
	name     string
	typ      Type
	isStatic bool
}

func (f *Field) Class() *Class  { return f.class }
func (f *Field) Name() string   { return f.name }
func (f *Field) Type() Type     { return f.typ }
func (f *Field) IsStatic() bool { return f.isStatic }

func (f *Field) String() string { return fmt.Sprintf("%s.%s", f.class.name, f.name) }

// Method is a method of a class, with its IR body.
type Method struct {
	class      *Class
	name       string
	subsig     string
	params     []*Var
	ret        Type
	this       *Var
	vars       []*Var
	stmts      []Stmt
	returnVars []*Var
	isStatic   bool
	isAbstract bool
}

func (m *Method) Class() *Class      { return m.class }
func (m *Method) Name() string       { return m.name }
func (m *Method) Subsignature() string { return m.subsig }
func (m *Method) Params() []*Var     { return m.params }
func (m *Method) ReturnType() Type   { return m.ret }
func (m *Method) This() *Var         { return m.this }
func (m *Method) Vars() []*Var       { return m.vars }
func (m *Method) Stmts() []Stmt      { return m.stmts }
func (m *Method) ReturnVars() []*Var { return m.returnVars }
func (m *Method) IsStatic() bool     { return m.isStatic }
func (m *Method) IsAbstract() bool   { return m.isAbstract }

func (m *Method) String() string { return fmt.Sprintf("%s.%s", m.class.name, m.name) }

// finish indexes the statements and precomputes the per-variable
// statement sets consumed by the pointer analysis.
func (m *Method) finish() {
	seenRet := make(map[*Var]bool)
	for i, s := range m.stmts {
		setIndex(s, i)
		switch s := s.(type) {
		case *StoreField:
			if s.Base != nil {
				s.Base.storeFields = append(s.Base.storeFields, s)
			}
		case *LoadField:
			if s.Base != nil {
				s.Base.loadFields = append(s.Base.loadFields, s)
			}
		case *StoreArray:
			s.Base.storeArrays = append(s.Base.storeArrays, s)
		case *LoadArray:
			s.Base.loadArrays = append(s.Base.loadArrays, s)
		case *Invoke:
			if s.Base != nil {
				s.Base.invokes = append(s.Base.invokes, s)
			}
		case *Return:
			if s.V != nil && !seenRet[s.V] {
				seenRet[s.V] = true
				m.returnVars = append(m.returnVars, s.V)
			}
		}
	}
}

// Var is a local variable, parameter or `this` of a method.
type Var struct {
	method *Method
	name   string
	typ    Type

	// statements with this variable as the base reference
	storeFields []*StoreField
	loadFields  []*LoadField
	storeArrays []*StoreArray
	loadArrays  []*LoadArray
	invokes     []*Invoke
}

func (v *Var) Method() *Method { return v.method }
func (v *Var) Name() string    { return v.name }
func (v *Var) Type() Type      { return v.typ }

// StoreFields returns the non-static `v.f = x` statements with v as base.
func (v *Var) StoreFields() []*StoreField { return v.storeFields }

// LoadFields returns the non-static `x = v.f` statements with v as base.
func (v *Var) LoadFields() []*LoadField { return v.loadFields }

func (v *Var) StoreArrays() []*StoreArray { return v.storeArrays }
func (v *Var) LoadArrays() []*LoadArray   { return v.loadArrays }

// Invokes returns the call sites with v as the receiver.
func (v *Var) Invokes() []*Invoke { return v.invokes }

func (v *Var) String() string { return fmt.Sprintf("%s/%s", v.method, v.name) }

func (v *Var) exp() {}

// MethodRef names a method by declaring class and subsignature, as it
// appears at a call site.
type MethodRef struct {
	Class  *Class
	Subsig string
}

// Declared resolves the reference to the declared method, walking up
// the superclass chain from the declaring class. Returns nil when no
// declaration exists.
func (r MethodRef) Declared() *Method {
	for c := r.Class; c != nil; c = c.super {
		if m := c.DeclaredMethod(r.Subsig); m != nil {
			return m
		}
	}
	return nil
}

func (r MethodRef) String() string { return fmt.Sprintf("%s.%s", r.Class.name, r.Subsig) }
