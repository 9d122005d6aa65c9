package ir

import "fmt"

// Type is the closed set of IR types: primitives, class types and
// array types. Class and array types are canonical per program, so
// types compare with ==.
type Type interface {
	TypeName() string
}

// PrimitiveType enumerates the primitive IR types.
type PrimitiveType uint8

const (
	Byte PrimitiveType = iota
	Short
	Int
	Char
	Boolean
	Long
	Void
)

func (t PrimitiveType) TypeName() string {
	switch t {
	case Byte:
		return "byte"
	case Short:
		return "short"
	case Int:
		return "int"
	case Char:
		return "char"
	case Boolean:
		return "boolean"
	case Long:
		return "long"
	default:
		return "void"
	}
}

// CanHoldInt reports whether a value of type t is an integer in the
// sense of the constant propagation analyses.
func CanHoldInt(t Type) bool {
	switch t {
	case Byte, Short, Int, Char, Boolean:
		return true
	}
	return false
}

// ClassType is the reference type of a class. Canonical per class.
type ClassType struct {
	class *Class
}

func (t *ClassType) TypeName() string { return t.class.Name() }

func (t *ClassType) Class() *Class { return t.class }

// ArrayType is the type of arrays with the given element type.
// Canonical per (program, element type).
type ArrayType struct {
	elem Type
}

func (t *ArrayType) TypeName() string { return fmt.Sprintf("%s[]", t.elem.TypeName()) }

func (t *ArrayType) Elem() Type { return t.elem }
