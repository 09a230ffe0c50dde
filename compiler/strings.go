package compiler

import (
	"fmt"

	"fortio.org/safecast"
	"github.com/mlang-lang/mlang/ast"
	"github.com/mlang-lang/mlang/types"
	"tinygo.org/x/go-llvm"
)

// constString emits s as a private constant laid out like a heap string,
// <{ i64 len, [len+1 x i8] }>, and returns a pointer to its first byte.
// The result is a constant expression so it is also valid in global
// initializers.
func (c *Compiler) constString(s string) llvm.Value {
	n := safecast.MustConv[uint64](len(s))
	init := c.Context.ConstStruct([]llvm.Value{
		c.ConstI64(n),
		c.Context.ConstString(s, true),
	}, true)

	name := fmt.Sprintf("mlang.str.%d", c.strCounter)
	c.strCounter++
	global := c.makeGlobalConst(init.Type(), name, init, llvm.PrivateLinkage)
	global.SetAlignment(8)

	zero := c.ConstI32(0)
	return llvm.ConstInBoundsGEP(init.Type(), global, []llvm.Value{zero, c.ConstI32(1), zero})
}

// strLen calls the runtime to get the NUL-bounded length of s.
func (c *Compiler) strLen(s llvm.Value) llvm.Value {
	fnTy, fn := c.GetCFunc(LEN)
	return c.builder.CreateCall(fnTy, fn, []llvm.Value{s}, "str_len")
}

func (c *Compiler) compileStringJoin(join *ast.StringJoin) *Symbol {
	parts := make([]llvm.Value, 0, len(join.Parts))
	for _, p := range join.Parts {
		sym := c.compileValue(p)
		if sym == nil {
			return nil
		}
		if sym.Type.Kind() != types.StrKind {
			c.errorf(p.Tok(), "invalid join operand type %s", sym.Type)
			return nil
		}
		parts = append(parts, sym.Val)
	}

	lens := make([]llvm.Value, len(parts))
	total := c.ConstI64(0)
	for i, p := range parts {
		lens[i] = c.strLen(p)
		total = c.builder.CreateAdd(total, lens[i], "join_len")
	}

	dst := c.allocBuffer(types.String, total)
	fnTy, fn := c.GetCFunc(COPY)
	offset := c.ConstI64(0)
	for i, p := range parts {
		c.builder.CreateCall(fnTy, fn, []llvm.Value{dst, p, lens[i], offset}, "")
		offset = c.builder.CreateAdd(offset, lens[i], "join_off")
	}
	return &Symbol{Val: dst, Type: types.String}
}
