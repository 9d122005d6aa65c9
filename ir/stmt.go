package ir

import "fmt"

// Stmt is the closed sum of IR statement kinds. Analyses dispatch on
// the concrete type with exhaustive switches; no statement kinds exist
// outside this package.
type Stmt interface {
	Index() int
	String() string
	stmt()
}

type stmtBase struct {
	index int
}

func (s *stmtBase) Index() int { return s.index }
func (s *stmtBase) stmt()      {}

func setIndex(s Stmt, i int) {
	switch s := s.(type) {
	case *New:
		s.index = i
	case *Copy:
		s.index = i
	case *AssignLiteral:
		s.index = i
	case *Binary:
		s.index = i
	case *Cast:
		s.index = i
	case *LoadField:
		s.index = i
	case *StoreField:
		s.index = i
	case *LoadArray:
		s.index = i
	case *StoreArray:
		s.index = i
	case *Invoke:
		s.index = i
	case *If:
		s.index = i
	case *Goto:
		s.index = i
	case *Switch:
		s.index = i
	case *Return:
		s.index = i
	case *Nop:
		s.index = i
	default:
		panic(fmt.Sprintf("unknown statement kind %T", s))
	}
}

// Exp is the closed sum of expressions that the constant evaluator
// understands: variables, integer literals, and binary expressions.
type Exp interface {
	exp()
}

// IntLiteral is a 32-bit integer literal.
type IntLiteral int32

func (IntLiteral) exp() {}

// BinOp enumerates the binary operators.
type BinOp uint8

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpRem
	OpEq
	OpNe
	OpLt
	OpGt
	OpLe
	OpGe
	OpShl
	OpShr
	OpUshr
	OpOr
	OpAnd
	OpXor
)

var opNames = [...]string{
	"+", "-", "*", "/", "%",
	"==", "!=", "<", ">", "<=", ">=",
	"<<", ">>", ">>>",
	"|", "&", "^",
}

func (op BinOp) String() string { return opNames[op] }

// IsDivision reports whether op can raise a division error.
func (op BinOp) IsDivision() bool { return op == OpDiv || op == OpRem }

// BinaryExp is `a op b` over two variables.
type BinaryExp struct {
	Op BinOp
	A  *Var
	B  *Var
}

func (*BinaryExp) exp() {}

func (e *BinaryExp) String() string {
	return fmt.Sprintf("%s %s %s", e.A.Name(), e.Op, e.B.Name())
}

// New is `x = new T` at an allocation site.
type New struct {
	stmtBase
	L *Var
	T Type
}

func (s *New) String() string { return fmt.Sprintf("%s = new %s", s.L.Name(), s.T.TypeName()) }

// Copy is `x = y`.
type Copy struct {
	stmtBase
	L *Var
	R *Var
}

func (s *Copy) String() string { return fmt.Sprintf("%s = %s", s.L.Name(), s.R.Name()) }

// AssignLiteral is `x = c` for an integer literal c.
type AssignLiteral struct {
	stmtBase
	L *Var
	V IntLiteral
}

func (s *AssignLiteral) String() string { return fmt.Sprintf("%s = %d", s.L.Name(), int32(s.V)) }

// Binary is `x = a op b`.
type Binary struct {
	stmtBase
	L *Var
	E *BinaryExp
}

func (s *Binary) String() string { return fmt.Sprintf("%s = %s", s.L.Name(), s.E) }

// Cast is `x = (T) y`.
type Cast struct {
	stmtBase
	L *Var
	T Type
	R *Var
}

func (s *Cast) String() string {
	return fmt.Sprintf("%s = (%s) %s", s.L.Name(), s.T.TypeName(), s.R.Name())
}

// LoadField is `x = y.f`, or `x = T.f` when Base is nil.
type LoadField struct {
	stmtBase
	L     *Var
	Base  *Var
	Field *Field
}

func (s *LoadField) IsStatic() bool { return s.Base == nil }

func (s *LoadField) String() string {
	if s.IsStatic() {
		return fmt.Sprintf("%s = %s", s.L.Name(), s.Field)
	}
	return fmt.Sprintf("%s = %s.%s", s.L.Name(), s.Base.Name(), s.Field.Name())
}

// StoreField is `x.f = y`, or `T.f = y` when Base is nil.
type StoreField struct {
	stmtBase
	Base  *Var
	Field *Field
	R     *Var
}

func (s *StoreField) IsStatic() bool { return s.Base == nil }

func (s *StoreField) String() string {
	if s.IsStatic() {
		return fmt.Sprintf("%s = %s", s.Field, s.R.Name())
	}
	return fmt.Sprintf("%s.%s = %s", s.Base.Name(), s.Field.Name(), s.R.Name())
}

// LoadArray is `x = y[i]`. All indices of an object share one abstract cell.
type LoadArray struct {
	stmtBase
	L    *Var
	Base *Var
	Idx  *Var
}

func (s *LoadArray) String() string {
	return fmt.Sprintf("%s = %s[%s]", s.L.Name(), s.Base.Name(), s.Idx.Name())
}

// StoreArray is `x[i] = y`.
type StoreArray struct {
	stmtBase
	Base *Var
	Idx  *Var
	R    *Var
}

func (s *StoreArray) String() string {
	return fmt.Sprintf("%s[%s] = %s", s.Base.Name(), s.Idx.Name(), s.R.Name())
}

// CallKind classifies call sites.
type CallKind uint8

const (
	CallStatic CallKind = iota
	CallSpecial
	CallVirtual
	CallInterface
)

func (k CallKind) String() string {
	switch k {
	case CallStatic:
		return "static"
	case CallSpecial:
		return "special"
	case CallVirtual:
		return "virtual"
	default:
		return "interface"
	}
}

// Invoke is `x = y.m(a0..an)`; L may be nil (no result use), Base is
// nil for static calls.
type Invoke struct {
	stmtBase
	method *Method
	L      *Var
	Kind   CallKind
	Ref    MethodRef
	Base   *Var
	Args   []*Var
}

// Container returns the method containing the call site.
func (s *Invoke) Container() *Method { return s.method }

func (s *Invoke) String() string {
	callee := s.Ref.String()
	if s.Base != nil {
		callee = fmt.Sprintf("%s.%s", s.Base.Name(), s.Ref.Subsig)
	}
	if s.L != nil {
		return fmt.Sprintf("%s = %s(...)", s.L.Name(), callee)
	}
	return fmt.Sprintf("%s(...)", callee)
}

// SiteString identifies the call site as method/index.
func (s *Invoke) SiteString() string { return fmt.Sprintf("%s/%d", s.method, s.index) }

// If is `if (a op b) goto target`, falling through otherwise.
type If struct {
	stmtBase
	Cond   *BinaryExp
	Target int
}

func (s *If) String() string { return fmt.Sprintf("if (%s) goto %d", s.Cond, s.Target) }

// SetTarget patches the branch target; used by the IR builder.
func (s *If) SetTarget(i int) { s.Target = i }

// Goto is an unconditional jump.
type Goto struct {
	stmtBase
	Target int
}

func (s *Goto) String() string { return fmt.Sprintf("goto %d", s.Target) }

func (s *Goto) SetTarget(i int) { s.Target = i }

// SwitchCase is one `case value: goto target` arm.
type SwitchCase struct {
	Value  int32
	Target int
}

// Switch is `switch (v) { case c_i: goto t_i; default: goto d }`.
type Switch struct {
	stmtBase
	V       *Var
	Cases   []SwitchCase
	Default int
}

func (s *Switch) String() string { return fmt.Sprintf("switch (%s)", s.V.Name()) }

// Return leaves the method, optionally returning V.
type Return struct {
	stmtBase
	V *Var
}

func (s *Return) String() string {
	if s.V == nil {
		return "return"
	}
	return fmt.Sprintf("return %s", s.V.Name())
}

// Nop does nothing. Also used for the synthetic CFG entry/exit nodes.
type Nop struct {
	stmtBase
}

func (s *Nop) String() string { return "nop" }

// NewSyntheticNop creates a nop with the given index, outside any
// method statement list. The CFG uses these for entry and exit nodes.
func NewSyntheticNop(index int) *Nop {
	return &Nop{stmtBase{index: index}}
}

// DefVar returns the variable defined by s, or nil.
func DefVar(s Stmt) *Var {
	switch s := s.(type) {
	case *New:
		return s.L
	case *Copy:
		return s.L
	case *AssignLiteral:
		return s.L
	case *Binary:
		return s.L
	case *Cast:
		return s.L
	case *LoadField:
		return s.L
	case *LoadArray:
		return s.L
	case *Invoke:
		return s.L
	}
	return nil
}

// UseVars returns the variables used by s.
func UseVars(s Stmt) []*Var {
	switch s := s.(type) {
	case *Copy:
		return []*Var{s.R}
	case *Binary:
		return []*Var{s.E.A, s.E.B}
	case *Cast:
		return []*Var{s.R}
	case *LoadField:
		if s.Base != nil {
			return []*Var{s.Base}
		}
	case *StoreField:
		if s.Base != nil {
			return []*Var{s.Base, s.R}
		}
		return []*Var{s.R}
	case *LoadArray:
		return []*Var{s.Base, s.Idx}
	case *StoreArray:
		return []*Var{s.Base, s.Idx, s.R}
	case *Invoke:
		uses := make([]*Var, 0, len(s.Args)+1)
		if s.Base != nil {
			uses = append(uses, s.Base)
		}
		return append(uses, s.Args...)
	case *If:
		return []*Var{s.Cond.A, s.Cond.B}
	case *Switch:
		return []*Var{s.V}
	case *Return:
		if s.V != nil {
			return []*Var{s.V}
		}
	}
	return nil
}

// IsSideEffectFree reports whether the right-hand side of an
// assignment statement cannot raise or mutate state: allocations,
// casts, field and array accesses have effects, and so do `/` and `%`.
// Non-assignment statements report false.
func IsSideEffectFree(s Stmt) bool {
	switch s := s.(type) {
	case *Copy, *AssignLiteral:
		return true
	case *Binary:
		return !s.E.Op.IsDivision()
	}
	return false
}
