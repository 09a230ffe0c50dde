package types

import (
	"fmt"
)

type Kind int

const (
	VoidKind Kind = iota
	IntKind
	FloatKind
	StrKind
	ArrayKind
	InferKind
)

// Type is the interface for all semantic types. LLVM pointers are opaque,
// so the element type of strings and arrays is only known from here.
type Type interface {
	String() string
	Kind() Kind
}

// Common concrete types. They are value-typed singletons and are safe to
// compare with == or use as map keys.
var (
	I1     Type = Int{Width: 1}
	I8     Type = Int{Width: 8}
	I64    Type = Int{Width: 64}
	F64    Type = Float{Width: 64}
	String Type = Str{}
	None   Type = Void{}

	IntArray    Type = Array{Elem: Int{Width: 64}}
	DoubleArray Type = Array{Elem: Float{Width: 64}}
	BoolArray   Type = Array{Elem: Int{Width: 1}}

	Var Type = Infer{}
	Val Type = Infer{Final: true}
)

type Void struct{}

func (v Void) Kind() Kind     { return VoidKind }
func (v Void) String() string { return "Void" }

// Int represents an integer type with a given bit width. Width 1 is Bool
// and width 8 is Char.
type Int struct {
	Width uint32
}

func (i Int) String() string {
	switch i.Width {
	case 1:
		return "Bool"
	case 8:
		return "Char"
	case 64:
		return "Int"
	}
	return fmt.Sprintf("I%d", i.Width)
}

func (i Int) Kind() Kind {
	return IntKind
}

// Float represents a floating-point type with a given precision.
type Float struct {
	Width uint32
}

func (f Float) String() string {
	if f.Width == 64 {
		return "Double"
	}
	return fmt.Sprintf("F%d", f.Width)
}

func (f Float) Kind() Kind {
	return FloatKind
}

// Str is a pointer to a header-prefixed, NUL-terminated byte buffer.
type Str struct{}

func (s Str) String() string {
	return "String"
}

func (s Str) Kind() Kind {
	return StrKind
}

// Array is a pointer to a header-prefixed buffer of Elem.
type Array struct {
	Elem Type
}

func (a Array) String() string {
	return a.Elem.String() + "Array"
}

func (a Array) Kind() Kind { return ArrayKind }

// Infer marks a var or val declaration whose type comes from the first
// assignment.
type Infer struct {
	Final bool
}

func (i Infer) String() string {
	if i.Final {
		return "val"
	}
	return "var"
}

func (i Infer) Kind() Kind { return InferKind }

// IsBool reports whether t is the 1-bit Bool type.
func IsBool(t Type) bool {
	i, ok := t.(Int)
	return ok && i.Width == 1
}

// IsChar reports whether t is the 8-bit Char type.
func IsChar(t Type) bool {
	i, ok := t.(Int)
	return ok && i.Width == 8
}

// IsIndexable reports whether t has the header-prefixed buffer layout.
func IsIndexable(t Type) bool {
	return t.Kind() == StrKind || t.Kind() == ArrayKind
}

// ElemType returns the element type of an array or string.
func ElemType(t Type) Type {
	switch t := t.(type) {
	case Array:
		return t.Elem
	case Str:
		return I8
	}
	panic(fmt.Sprintf("ElemType: %s has no elements", t))
}

// ElemSize returns the storage size in bytes of one element of type t.
func ElemSize(t Type) uint64 {
	switch t := t.(type) {
	case Int:
		if t.Width <= 8 {
			return 1
		}
		return uint64(t.Width / 8)
	case Float:
		return uint64(t.Width / 8)
	case Str, Array:
		return 8
	}
	panic(fmt.Sprintf("ElemSize: unsized type %s", t))
}

// Checks if two type arrays are equal
func EqualTypes(left []Type, right []Type) bool {
	if len(left) != len(right) {
		return false
	}

	for i, l := range left {
		if !TypeEqual(l, right[i]) {
			return false
		}
	}

	return true
}

// TypeEqual performs structural equality on types with a dispatcher by Kind.
func TypeEqual(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() {
		return false
	}
	cmp := typeComparer(a.Kind())
	return cmp(a, b)
}

func typeComparer(k Kind) func(a, b Type) bool {
	switch k {
	case VoidKind, StrKind:
		return eqTrivial
	case IntKind:
		return eqInt
	case FloatKind:
		return eqFloat
	case ArrayKind:
		return eqArray
	case InferKind:
		return eqInfer
	default:
		return func(a, b Type) bool { panic(fmt.Sprintf("TypeEqual: unhandled kind %v", k)) }
	}
}

func eqTrivial(a, b Type) bool { return true }

func eqInt(a, b Type) bool {
	return a.(Int).Width == b.(Int).Width
}

func eqFloat(a, b Type) bool {
	return a.(Float).Width == b.(Float).Width
}

func eqArray(a, b Type) bool {
	return TypeEqual(a.(Array).Elem, b.(Array).Elem)
}

func eqInfer(a, b Type) bool {
	return a.(Infer).Final == b.(Infer).Final
}
