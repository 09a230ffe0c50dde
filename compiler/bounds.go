package compiler

import "tinygo.org/x/go-llvm"

// boundsCheck guards an element access. Negative indices fail before the
// header is read; indices at or past the stored count fail after. Both
// paths share one arr_err block that calls mlang_fatal. The builder is
// left in arr_ok.
func (c *Compiler) boundsCheck(ptr, idx llvm.Value) {
	validate := c.newBlock("arr_validate")
	fail := c.newBlock("arr_err")
	ok := c.newBlock("arr_ok")

	negative := c.builder.CreateICmp(llvm.IntSLT, idx, c.ConstI64(0), "idx_neg")
	c.builder.CreateCondBr(negative, fail, validate)

	c.builder.SetInsertPointAtEnd(fail)
	c.fatal(INDEX_OUT_OF_RANGE)

	c.builder.SetInsertPointAtEnd(validate)
	length := c.sizeOf(ptr)
	past := c.builder.CreateICmp(llvm.IntSGE, idx, length, "idx_past")
	c.builder.CreateCondBr(past, fail, ok)

	c.builder.SetInsertPointAtEnd(ok)
}
