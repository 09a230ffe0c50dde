package compiler

import (
	"github.com/mlang-lang/mlang/ast"
	"github.com/mlang-lang/mlang/types"
	"tinygo.org/x/go-llvm"
)

// compileCondition compiles a branch condition. A condition that fails to
// compile is replaced by false so the guarded code is still checked.
func (c *Compiler) compileCondition(expr ast.Expression) llvm.Value {
	cond := c.compileValue(expr)
	if cond == nil {
		return c.ConstBool(false)
	}
	if !types.IsBool(cond.Type) {
		c.errorf(expr.Tok(), "condition must be Bool, got %s", cond.Type)
		return c.ConstBool(false)
	}
	return cond.Val
}

// compileBranch compiles a block in its own scope and returns the value of
// its last statement.
func (c *Compiler) compileBranch(b *ast.Block) *Symbol {
	var last *Symbol
	c.withScope(BlockScope, llvm.BasicBlock{}, func() {
		last = c.compileStatements(b.Statements)
	})
	return last
}

func (c *Compiler) compileConditional(cond *ast.Conditional) {
	val := c.compileCondition(cond.Condition)
	thenBlock := c.newBlock("then")
	elseBlock := c.newBlock("else")
	c.builder.CreateCondBr(val, thenBlock, elseBlock)

	// blocks that fall through and still need a branch to merge
	var pending []llvm.BasicBlock

	c.builder.SetInsertPointAtEnd(thenBlock)
	c.compileBranch(cond.Consequence)
	if !c.terminated() {
		pending = append(pending, c.builder.GetInsertBlock())
	}

	c.builder.SetInsertPointAtEnd(elseBlock)
	if cond.Alternative != nil {
		c.compileBranch(cond.Alternative)
	}
	if !c.terminated() {
		pending = append(pending, c.builder.GetInsertBlock())
	}

	if len(pending) == 0 {
		return
	}
	merge := c.newBlock("merge")
	for _, bb := range pending {
		c.builder.SetInsertPointAtEnd(bb)
		c.builder.CreateBr(merge)
	}
	c.builder.SetInsertPointAtEnd(merge)
}

func (c *Compiler) compileTernary(t *ast.TernaryOp) *Symbol {
	val := c.compileCondition(t.Condition)
	thenBlock := c.newBlock("tern_then")
	elseBlock := c.newBlock("tern_else")
	c.builder.CreateCondBr(val, thenBlock, elseBlock)

	c.builder.SetInsertPointAtEnd(thenBlock)
	l := c.compileValue(t.Consequence)
	thenEnd := c.builder.GetInsertBlock()

	c.builder.SetInsertPointAtEnd(elseBlock)
	r := c.compileValue(t.Alternative)
	elseEnd := c.builder.GetInsertBlock()

	if l == nil || r == nil {
		return nil
	}
	if !types.TypeEqual(l.Type, r.Type) {
		c.incompatible(t.Token, l.Type, r.Type)
		return nil
	}

	merge := c.newBlock("tern_merge")
	c.builder.SetInsertPointAtEnd(thenEnd)
	c.builder.CreateBr(merge)
	c.builder.SetInsertPointAtEnd(elseEnd)
	c.builder.CreateBr(merge)

	c.builder.SetInsertPointAtEnd(merge)
	phi := c.builder.CreatePHI(c.mapToLLVMType(l.Type), "tern")
	phi.AddIncoming([]llvm.Value{l.Val, r.Val}, []llvm.BasicBlock{thenEnd, elseEnd})
	return &Symbol{Val: phi, Type: l.Type}
}
