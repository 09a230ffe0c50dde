package compiler

import (
	"fmt"

	"fortio.org/safecast"
	"github.com/mlang-lang/mlang/ast"
	"github.com/mlang-lang/mlang/token"
	"github.com/mlang-lang/mlang/types"
	"tinygo.org/x/go-llvm"
)

// Symbol is the result of compiling an expression. Pointers are opaque in
// LLVM, so the semantic type travels alongside the value. A Void symbol has
// no Val.
type Symbol struct {
	Val  llvm.Value
	Type types.Type
}

type Compiler struct {
	Scopes  []Scope[*Variable]
	Funcs   map[string]*Func
	Context llvm.Context
	Module  llvm.Module
	builder llvm.Builder
	Errors  []*token.CompileError

	strCounter  int // unique string literal globals
	tmpCounter  int // unique scratch function names
	currentFunc *Func
	// variables bound while compiling unreachable code; unbound again
	// once their scratch function is erased
	deadBindings []*Variable
	dead         int
	// loop exits targeted by a live break
	broken map[llvm.BasicBlock]bool
}

func NewCompiler(ctx llvm.Context, moduleName string) *Compiler {
	module := ctx.NewModule(moduleName)
	builder := ctx.NewBuilder()

	c := &Compiler{
		Scopes:  []Scope[*Variable]{NewScope[*Variable](GlobalScope)},
		Funcs:   make(map[string]*Func),
		Context: ctx,
		Module:  module,
		builder: builder,
		Errors:  []*token.CompileError{},
		broken:  make(map[llvm.BasicBlock]bool),
	}
	c.declareBuiltins()
	return c
}

// Dispose releases the builder and the module.
func (c *Compiler) Dispose() {
	c.builder.Dispose()
	c.Module.Dispose()
}

func (c *Compiler) errorf(tok token.Token, format string, args ...any) {
	c.Errors = append(c.Errors, &token.CompileError{Token: tok, Msg: fmt.Sprintf(format, args...)})
}

func (c *Compiler) incompatible(tok token.Token, a, b types.Type) {
	c.errorf(tok, "incompatible types: %s and %s", a, b)
}

func (c *Compiler) mapToLLVMType(t types.Type) llvm.Type {
	switch t.Kind() {
	case types.IntKind:
		intType := t.(types.Int)
		switch intType.Width {
		case 1:
			return c.Context.Int1Type()
		case 8:
			return c.Context.Int8Type()
		case 32:
			return c.Context.Int32Type()
		case 64:
			return c.Context.Int64Type()
		default:
			panic(fmt.Sprintf("unsupported int width: %d", intType.Width))
		}
	case types.FloatKind:
		return c.Context.DoubleType()
	case types.StrKind, types.ArrayKind:
		return c.ptrType()
	case types.VoidKind:
		return c.Context.VoidType()
	default:
		panic("unknown type in mapToLLVMType: " + t.String())
	}
}

func (c *Compiler) ptrType() llvm.Type {
	return llvm.PointerType(c.Context.Int8Type(), 0)
}

func (c *Compiler) zeroValue(t types.Type) llvm.Value {
	switch t.Kind() {
	case types.IntKind:
		return llvm.ConstInt(c.mapToLLVMType(t), 0, false)
	case types.FloatKind:
		return c.ConstF64(0)
	case types.StrKind, types.ArrayKind:
		return llvm.ConstPointerNull(c.ptrType())
	}
	panic(fmt.Sprintf("unsupported type for zero value: %s", t))
}

func setInstAlignment(inst llvm.Value, t types.Type) {
	switch typ := t.(type) {
	case types.Int:
		// I1 is a special case
		if typ.Width == 1 {
			inst.SetAlignment(1)
			return
		}
		// divide by 8 as we want num bytes
		inst.SetAlignment(safecast.MustConv[int](typ.Width >> 3))
	case types.Float:
		inst.SetAlignment(safecast.MustConv[int](typ.Width >> 3))
	case types.Str, types.Array:
		inst.SetAlignment(8)
	default:
		panic("Unsupported type for alignment " + typ.String())
	}
}

// createStore is a simple helper that creates an LLVM store instruction and sets its alignment.
func (c *Compiler) createStore(val llvm.Value, ptr llvm.Value, valType types.Type) llvm.Value {
	storeInst := c.builder.CreateStore(val, ptr)
	setInstAlignment(storeInst, valType)
	return storeInst
}

// createLoad is a simple helper that creates an LLVM load instruction and sets its alignment.
func (c *Compiler) createLoad(ptr llvm.Value, elemType types.Type, name string) llvm.Value {
	loadInst := c.builder.CreateLoad(c.mapToLLVMType(elemType), ptr, name)
	setInstAlignment(loadInst, elemType)
	return loadInst
}

func (c *Compiler) createEntryBlockAlloca(ty llvm.Type, name string) llvm.Value {
	current := c.builder.GetInsertBlock()
	fn := current.Parent()
	entry := fn.EntryBasicBlock()
	first := entry.FirstInstruction()

	if first.IsNil() {
		c.builder.SetInsertPointAtEnd(entry)
	} else {
		c.builder.SetInsertPointBefore(first)
	}

	alloca := c.builder.CreateAlloca(ty, name)
	c.builder.SetInsertPointAtEnd(current)
	return alloca
}

// entryStore stores val into the entry-block alloca ptr right after it.
func (c *Compiler) entryStore(val, ptr llvm.Value, t types.Type) {
	current := c.builder.GetInsertBlock()
	if next := llvm.NextInstruction(ptr); next.IsNil() {
		c.builder.SetInsertPointAtEnd(ptr.InstructionParent())
	} else {
		c.builder.SetInsertPointBefore(next)
	}
	c.createStore(val, ptr, t)
	c.builder.SetInsertPointAtEnd(current)
}

func (c *Compiler) ConstI64(v uint64) llvm.Value {
	return llvm.ConstInt(c.Context.Int64Type(), v, false)
}

func (c *Compiler) ConstI32(v uint64) llvm.Value {
	return llvm.ConstInt(c.Context.Int32Type(), v, false)
}

func (c *Compiler) ConstF64(v float64) llvm.Value {
	return llvm.ConstFloat(c.Context.DoubleType(), v)
}

func (c *Compiler) ConstBool(v bool) llvm.Value {
	if v {
		return llvm.ConstInt(c.Context.Int1Type(), 1, false)
	}
	return llvm.ConstInt(c.Context.Int1Type(), 0, false)
}

func (c *Compiler) makeGlobalConst(llvmType llvm.Type, name string, val llvm.Value, linkage llvm.Linkage) llvm.Value {
	global := llvm.AddGlobal(c.Module, llvmType, name)
	global.SetInitializer(val)
	global.SetLinkage(linkage)
	global.SetUnnamedAddr(true)
	global.SetGlobalConstant(true)
	return global
}

// currentFn returns the function that owns the builder's insertion block.
func (c *Compiler) currentFn() llvm.Value {
	return c.builder.GetInsertBlock().Parent()
}

// newBlock appends a basic block to the current function.
func (c *Compiler) newBlock(name string) llvm.BasicBlock {
	return c.Context.AddBasicBlock(c.currentFn(), name)
}

// terminated reports whether the current block already ends in a
// terminator, so nothing more may be emitted into it.
func (c *Compiler) terminated() bool {
	return blockTerminated(c.builder.GetInsertBlock())
}

func blockTerminated(bb llvm.BasicBlock) bool {
	last := bb.LastInstruction()
	if last.IsNil() {
		return false
	}
	switch last.InstructionOpcode() {
	case llvm.Ret, llvm.Br, llvm.Switch, llvm.IndirectBr, llvm.Unreachable:
		return true
	}
	return false
}

func (c *Compiler) compileStatement(stmt ast.Statement) *Symbol {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		return c.compileExpression(s.Expression)
	case *ast.VariableDeclaration:
		c.compileVariableDeclaration(s)
	case *ast.Block:
		c.compileBranch(s)
	case *ast.Conditional:
		c.compileConditional(s)
	case *ast.WhileLoop:
		c.compileWhileLoop(s)
	case *ast.ForLoop:
		c.compileForLoop(s)
	case *ast.ForEach:
		c.compileForEach(s)
	case *ast.Break:
		c.compileBreak(s)
	case *ast.Return:
		c.compileReturn(s)
	case *ast.FunctionDeclaration:
		c.compileFunctionDeclaration(s)
	case *ast.FreeMemory:
		c.compileFreeMemory(s)
	default:
		panic(fmt.Sprintf("Cannot handle statement type %T", s))
	}
	return nil
}

// compileStatements compiles stmts in order and returns the value of the
// last statement, or nil when it produced none. Statements after a
// terminator are still checked, in a scratch function.
func (c *Compiler) compileStatements(stmts []ast.Statement) *Symbol {
	var last *Symbol
	for i, stmt := range stmts {
		if c.terminated() {
			c.compileUnreachable(stmts[i:])
			return nil
		}
		last = c.compileStatement(stmt)
	}
	return last
}

// compileUnreachable generates stmts into a throwaway function so that
// errors in them are reported without leaving unreferenced blocks in the
// real function.
func (c *Compiler) compileUnreachable(stmts []ast.Statement) {
	c.inScratch(func(scratch llvm.Value) {
		for _, stmt := range stmts {
			if c.terminated() {
				c.builder.SetInsertPointAtEnd(c.Context.AddBasicBlock(scratch, "dead"))
			}
			c.compileStatement(stmt)
		}
	})
}

// inScratch runs gen with the builder positioned in a fresh function that
// is erased afterwards. Inferred variables first bound inside gen are
// unbound again, since their storage went away with the function.
func (c *Compiler) inScratch(gen func(scratch llvm.Value)) {
	current := c.builder.GetInsertBlock()
	name := fmt.Sprintf("mlang.dead.%d", c.tmpCounter)
	c.tmpCounter++
	scratch := llvm.AddFunction(c.Module, name, llvm.FunctionType(c.Context.VoidType(), nil, false))
	c.builder.SetInsertPointAtEnd(c.Context.AddBasicBlock(scratch, "entry"))

	mark := len(c.deadBindings)
	c.dead++
	gen(scratch)
	c.dead--

	scratch.EraseFromParentAsFunction()
	for _, v := range c.deadBindings[mark:] {
		v.unbind()
	}
	c.deadBindings = c.deadBindings[:mark]
	c.builder.SetInsertPointAtEnd(current)
}

func (c *Compiler) compileExpression(expr ast.Expression) *Symbol {
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		return &Symbol{Val: c.ConstI64(uint64(e.Value)), Type: types.I64}
	case *ast.DoubleLiteral:
		return &Symbol{Val: c.ConstF64(e.Value), Type: types.F64}
	case *ast.BooleanLiteral:
		return &Symbol{Val: c.ConstBool(e.Value), Type: types.I1}
	case *ast.CharLiteral:
		return &Symbol{Val: llvm.ConstInt(c.Context.Int8Type(), uint64(e.Value), false), Type: types.I8}
	case *ast.StringLiteral:
		return &Symbol{Val: c.constString(e.Value), Type: types.String}
	case *ast.Identifier:
		return c.compileIdentifier(e)
	case *ast.BinaryOp:
		return c.compileBinaryOp(e)
	case *ast.Comparison:
		return c.compileComparison(e)
	case *ast.UnaryOp:
		return c.compileUnaryOp(e)
	case *ast.Assignment:
		return c.compileAssignment(e)
	case *ast.Array:
		return c.compileArray(e)
	case *ast.ArrayAccess:
		return c.compileArrayAccess(e)
	case *ast.ArrayAssignment:
		return c.compileArrayAssignment(e)
	case *ast.Cast:
		return c.compileCast(e)
	case *ast.TernaryOp:
		return c.compileTernary(e)
	case *ast.FunctionCall:
		return c.compileFunctionCall(e)
	case *ast.StringJoin:
		return c.compileStringJoin(e)
	default:
		panic(fmt.Sprintf("Cannot handle expression type %T", e))
	}
}

// compileValue compiles expr and rejects Void results.
func (c *Compiler) compileValue(expr ast.Expression) *Symbol {
	sym := c.compileExpression(expr)
	if sym == nil {
		return nil
	}
	if sym.Type.Kind() == types.VoidKind {
		c.errorf(expr.Tok(), "expression %s has no value", expr)
		return nil
	}
	return sym
}

// GenerateIR returns the textual IR of the module.
func (c *Compiler) GenerateIR() string {
	return c.Module.String()
}

// Verify runs the LLVM module verifier. A failure is a compiler bug, not a
// user error.
func (c *Compiler) Verify() error {
	if err := llvm.VerifyModule(c.Module, llvm.ReturnStatusAction); err != nil {
		return fmt.Errorf("module verification failed: %w", err)
	}
	return nil
}
