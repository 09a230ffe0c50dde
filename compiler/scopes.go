package compiler

import (
	"tinygo.org/x/go-llvm"
)

type ScopeKind int

const (
	GlobalScope ScopeKind = iota
	FuncScope
	BlockScope
)

func (sk ScopeKind) String() string {
	switch sk {
	case GlobalScope:
		return "global"
	case FuncScope:
		return "function"
	}
	return "block"
}

type Scope[T any] struct {
	Elems     map[string]T
	TypeNames map[string]string // declared type name, e.g. var or Int
	ScopeKind ScopeKind
	Break     llvm.BasicBlock // nil when break does not apply here
}

func NewScope[T any](sk ScopeKind) Scope[T] {
	return Scope[T]{
		Elems:     make(map[string]T),
		TypeNames: make(map[string]string),
		ScopeKind: sk,
	}
}

func PushScope[T any](scopes *[]Scope[T], sk ScopeKind, brk llvm.BasicBlock) {
	s := NewScope[T](sk)
	s.Break = brk
	*scopes = append(*scopes, s)
}

func PopScope[T any](scopes *[]Scope[T]) {
	if len(*scopes) == 1 {
		panic("cannot pop global scope")
	}
	*scopes = (*scopes)[:len(*scopes)-1]
}

// Declare adds name to the innermost scope. It fails only when name is
// already declared in that same scope; outer declarations are shadowed.
func Declare[T any](scopes []Scope[T], name, typeName string, elem T) bool {
	inner := scopes[len(scopes)-1]
	if _, ok := inner.Elems[name]; ok {
		return false
	}
	inner.Elems[name] = elem
	inner.TypeNames[name] = typeName
	return true
}

// Lookup searches from the innermost scope outward. With localsOnly only
// the innermost scope is searched.
func Lookup[T any](scopes []Scope[T], name string, localsOnly bool) (T, bool) {
	for i := len(scopes) - 1; i >= 0; i-- {
		if e, ok := scopes[i].Elems[name]; ok {
			return e, true
		}
		if localsOnly {
			break
		}
	}

	var zero T
	return zero, false
}

// Exists reports whether name is declared in any scope.
func Exists[T any](scopes []Scope[T], name string) bool {
	_, ok := Lookup(scopes, name, false)
	return ok
}

// TypeNameOf returns the type name name was declared with.
func TypeNameOf[T any](scopes []Scope[T], name string) (string, bool) {
	for i := len(scopes) - 1; i >= 0; i-- {
		if tn, ok := scopes[i].TypeNames[name]; ok {
			return tn, true
		}
	}
	return "", false
}

func CurrentKind[T any](scopes []Scope[T]) ScopeKind {
	return scopes[len(scopes)-1].ScopeKind
}

// BreakTarget returns the nearest enclosing break target.
func BreakTarget[T any](scopes []Scope[T]) (llvm.BasicBlock, bool) {
	for i := len(scopes) - 1; i >= 0; i-- {
		if !scopes[i].Break.IsNil() {
			return scopes[i].Break, true
		}
	}
	return llvm.BasicBlock{}, false
}

// withScope runs body inside a new scope of kind sk.
func (c *Compiler) withScope(sk ScopeKind, brk llvm.BasicBlock, body func()) {
	PushScope(&c.Scopes, sk, brk)
	defer PopScope(&c.Scopes)
	body()
}
