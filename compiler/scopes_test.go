package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/go-llvm"
)

func TestScopeShadowing(t *testing.T) {
	scopes := []Scope[int]{NewScope[int](GlobalScope)}
	require.True(t, Declare(scopes, "x", "Int", 1))
	require.False(t, Declare(scopes, "x", "Int", 2), "redeclaring in the same scope must fail")

	PushScope(&scopes, BlockScope, llvm.BasicBlock{})
	require.True(t, Declare(scopes, "x", "Double", 3), "an outer name may be shadowed")

	v, ok := Lookup(scopes, "x", false)
	require.True(t, ok)
	assert.Equal(t, 3, v)
	tn, _ := TypeNameOf(scopes, "x")
	assert.Equal(t, "Double", tn)

	PopScope(&scopes)
	v, ok = Lookup(scopes, "x", false)
	require.True(t, ok)
	assert.Equal(t, 1, v, "shadowing ends with the inner scope")
}

func TestScopeLookup(t *testing.T) {
	scopes := []Scope[int]{NewScope[int](GlobalScope)}
	Declare(scopes, "g", "Int", 1)
	PushScope(&scopes, FuncScope, llvm.BasicBlock{})
	Declare(scopes, "p", "Int", 2)

	_, ok := Lookup(scopes, "g", true)
	assert.False(t, ok, "locals only must not see globals")
	_, ok = Lookup(scopes, "g", false)
	assert.True(t, ok)
	assert.True(t, Exists(scopes, "p"))
	assert.False(t, Exists(scopes, "q"))
	assert.Equal(t, FuncScope, CurrentKind(scopes))
}

func TestBreakTarget(t *testing.T) {
	ctx := llvm.NewContext()
	defer ctx.Dispose()
	mod := ctx.NewModule("scopes")
	defer mod.Dispose()
	fn := llvm.AddFunction(mod, "f", llvm.FunctionType(ctx.VoidType(), nil, false))
	after := ctx.AddBasicBlock(fn, "after")

	scopes := []Scope[int]{NewScope[int](GlobalScope)}
	_, ok := BreakTarget(scopes)
	assert.False(t, ok)

	PushScope(&scopes, BlockScope, after)
	PushScope(&scopes, BlockScope, llvm.BasicBlock{})
	target, ok := BreakTarget(scopes)
	require.True(t, ok)
	assert.Equal(t, after, target)
}

func TestPopGlobalScopePanics(t *testing.T) {
	scopes := []Scope[int]{NewScope[int](GlobalScope)}
	assert.Panics(t, func() { PopScope(&scopes) })
}

func TestScopeKindString(t *testing.T) {
	assert.Equal(t, "global", GlobalScope.String())
	assert.Equal(t, "function", FuncScope.String())
	assert.Equal(t, "block", BlockScope.String())
}
