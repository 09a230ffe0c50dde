package compiler

import (
	"github.com/mlang-lang/mlang/ast"
	"github.com/mlang-lang/mlang/types"
	"tinygo.org/x/go-llvm"
)

func (c *Compiler) compileBreak(b *ast.Break) {
	target, ok := BreakTarget(c.Scopes)
	if !ok {
		c.errorf(b.Token, "cannot call 'break' here")
		return
	}
	// a break from erased dead code into the enclosing function does not
	// count as reaching the exit
	if target.Parent() == c.currentFn() {
		c.broken[target] = true
	}
	c.builder.CreateBr(target)
}

// enterExit makes a loop's exit block the insertion point if any branch
// reaches it. Otherwise the block is dropped and the builder stays in the
// current, already terminated block.
func (c *Compiler) enterExit(after llvm.BasicBlock, reached bool) {
	reached = reached || c.broken[after]
	delete(c.broken, after)
	if !reached {
		after.EraseFromParent()
		return
	}
	after.MoveAfter(c.currentFn().LastBasicBlock())
	c.builder.SetInsertPointAtEnd(after)
}

func (c *Compiler) compileWhileLoop(w *ast.WhileLoop) {
	cond := c.newBlock("loop_cond")
	body := c.newBlock("loop_body")
	after := c.newBlock("loop_after")

	if w.DoFirst {
		c.builder.CreateBr(body)
	} else {
		c.builder.CreateBr(cond)
		c.builder.SetInsertPointAtEnd(cond)
		c.builder.CreateCondBr(c.compileCondition(w.Condition), body, after)
	}

	c.builder.SetInsertPointAtEnd(body)
	c.withScope(BlockScope, after, func() {
		c.compileStatements(w.Body.Statements)
	})
	fallsThrough := !c.terminated()
	if fallsThrough {
		c.builder.CreateBr(cond)
	}

	if !w.DoFirst {
		c.enterExit(after, true)
		return
	}

	// do-while: the condition only runs if the body can fall through
	if !fallsThrough {
		cond.EraseFromParent()
		c.inScratch(func(llvm.Value) {
			c.compileCondition(w.Condition)
		})
		c.enterExit(after, false)
		return
	}
	cond.MoveAfter(c.currentFn().LastBasicBlock())
	c.builder.SetInsertPointAtEnd(cond)
	c.builder.CreateCondBr(c.compileCondition(w.Condition), body, after)
	c.enterExit(after, true)
}

// compileLoopBound compiles a range bound or step, which must be Int.
func (c *Compiler) compileLoopBound(expr ast.Expression) llvm.Value {
	sym := c.compileValue(expr)
	if sym == nil {
		return c.ConstI64(0)
	}
	if !types.TypeEqual(sym.Type, types.I64) {
		c.errorf(expr.Tok(), "range bound must be Int, got %s", sym.Type)
		return c.ConstI64(0)
	}
	return sym.Val
}

// declareLoopVar declares a fresh local of type t in the current scope.
func (c *Compiler) declareLoopVar(ident *ast.Identifier, t types.Type) *Variable {
	v := &Variable{Name: ident.Value}
	c.allocate(v, t)
	Declare(c.Scopes, ident.Value, t.String(), v)
	return v
}

func (c *Compiler) compileForLoop(f *ast.ForLoop) {
	lower := c.compileLoopBound(f.Range.Lower)
	upper := c.compileLoopBound(f.Range.Upper)
	step := c.ConstI64(1)
	if f.Range.Step != nil {
		step = c.compileLoopBound(f.Range.Step)
	}
	pred := llvm.IntSLT
	if f.Range.Inclusive {
		pred = llvm.IntSLE
	}

	c.withScope(BlockScope, llvm.BasicBlock{}, func() {
		v := c.declareLoopVar(f.Variable, types.I64)
		c.createStore(lower, v.Storage, types.I64)
		c.countedLoop(v.Storage, upper, step, pred, f.Body, nil)
	})
}

func (c *Compiler) compileForEach(f *ast.ForEach) {
	iter := c.compileValue(f.Iterable)
	if iter == nil {
		return
	}
	if !types.IsIndexable(iter.Type) {
		c.errorf(f.Iterable.Tok(), "cannot iterate over %s", iter.Type)
		return
	}
	elem := types.ElemType(iter.Type)
	upper := c.sizeOf(iter.Val)

	c.withScope(BlockScope, llvm.BasicBlock{}, func() {
		v := c.declareLoopVar(f.Variable, elem)
		idx := c.createEntryBlockAlloca(c.Context.Int64Type(), "each_idx")
		c.createStore(c.ConstI64(0), idx, types.I64)

		c.countedLoop(idx, upper, c.ConstI64(1), llvm.IntSLT, f.Body, func() {
			i := c.createLoad(idx, types.I64, "each_i")
			ptr := c.builder.CreateInBoundsGEP(c.mapToLLVMType(elem), iter.Val, []llvm.Value{i}, "elem_ptr")
			c.createStore(c.createLoad(ptr, elem, "item"), v.Storage, elem)
		})
	})
}

// countedLoop emits a loop driven by the Int stored at counter:
//
//	test counter; body; progress: counter += step, test again
//
// The body gets its own scope whose break target is the exit block. bind,
// if set, runs at the top of every iteration. The progress block is only
// emitted when the body can fall through.
func (c *Compiler) countedLoop(counter, upper, step llvm.Value, pred llvm.IntPredicate, body *ast.Block, bind func()) {
	loop := c.newBlock("loop_body")
	after := c.newBlock("loop_after")

	first := c.createLoad(counter, types.I64, "loop_idx")
	c.builder.CreateCondBr(c.builder.CreateICmp(pred, first, upper, "loop_test"), loop, after)

	c.builder.SetInsertPointAtEnd(loop)
	c.withScope(BlockScope, after, func() {
		if bind != nil {
			bind()
		}
		c.compileStatements(body.Statements)
	})

	if !c.terminated() {
		progress := c.newBlock("loop_progress")
		c.builder.CreateBr(progress)
		c.builder.SetInsertPointAtEnd(progress)
		cur := c.createLoad(counter, types.I64, "loop_idx")
		next := c.builder.CreateAdd(cur, step, "loop_next")
		c.createStore(next, counter, types.I64)
		c.builder.CreateCondBr(c.builder.CreateICmp(pred, next, upper, "loop_test"), loop, after)
	}
	c.enterExit(after, true)
}
