package lattice

import "strconv"

// Value is a member of the flat constant propagation lattice over
// 32-bit integers. UNDEF is ⊥ (no information), NAC is ⊤ (not a
// constant), and every i32 is a middle element. Immutable.
type Value struct {
	kind valueKind
	c    int32
}

type valueKind uint8

const (
	kindUndef valueKind = iota
	kindConst
	kindNAC
)

var (
	undef = Value{kind: kindUndef}
	nac   = Value{kind: kindNAC}
)

// Undef returns the ⊥ element.
func Undef() Value { return undef }

// NAC returns the ⊤ element.
func NAC() Value { return nac }

// MakeConstant returns the lattice member for the constant c.
func MakeConstant(c int32) Value { return Value{kind: kindConst, c: c} }

func (v Value) IsUndef() bool    { return v.kind == kindUndef }
func (v Value) IsNAC() bool      { return v.kind == kindNAC }
func (v Value) IsConstant() bool { return v.kind == kindConst }

// Constant retrieves the underlying integer. Must only be invoked on
// constant members.
func (v Value) Constant() int32 {
	if v.kind != kindConst {
		panic("Called Constant() on a non-constant Value")
	}
	return v.c
}

func (v Value) String() string {
	switch v.kind {
	case kindUndef:
		return "UNDEF"
	case kindNAC:
		return "NAC"
	default:
		return strconv.FormatInt(int64(v.c), 10)
	}
}

// Meet computes v ⊓ w:
//
//	NAC ⊓ x = NAC
//	UNDEF ⊓ x = x
//	c ⊓ c = c
//	c ⊓ c' = NAC when c ≠ c'
//
// Total, commutative, associative and idempotent.
func Meet(v, w Value) Value {
	switch {
	case v.IsNAC() || w.IsNAC():
		return nac
	case v.IsUndef():
		return w
	case w.IsUndef():
		return v
	case v.c == w.c:
		return v
	default:
		return nac
	}
}
