package compiler

import (
	"github.com/mlang-lang/mlang/ast"
	"github.com/mlang-lang/mlang/types"
	"tinygo.org/x/go-llvm"
)

// headerSize is the byte size of the element count stored in front of
// every array and string payload.
const headerSize = 8

// allocBuffer allocates a zeroed header-prefixed buffer for count elements
// of the indexable type t and returns a pointer to element 0. Strings get
// one extra byte for the NUL, which the header does not count.
func (c *Compiler) allocBuffer(t types.Type, count llvm.Value) llvm.Value {
	elemSize := types.ElemSize(types.ElemType(t))
	extra := uint64(headerSize)
	if t.Kind() == types.StrKind {
		extra++
	}

	size := c.builder.CreateMul(count, c.ConstI64(elemSize), "buf_payload")
	size = c.builder.CreateAdd(size, c.ConstI64(extra), "buf_size")

	fnTy, fn := c.GetCFunc(ALLOC)
	base := c.builder.CreateCall(fnTy, fn, []llvm.Value{size}, "buf_base")
	c.createStore(count, base, types.I64)
	return c.builder.CreateInBoundsGEP(c.Context.Int8Type(), base, []llvm.Value{c.ConstI64(headerSize)}, "buf")
}

// sizeOf returns the element count stored in the header of ptr. The
// runtime fails fatally on a null pointer.
func (c *Compiler) sizeOf(ptr llvm.Value) llvm.Value {
	fnTy, fn := c.GetCFunc(SIZE_OF)
	return c.builder.CreateCall(fnTy, fn, []llvm.Value{ptr}, "size")
}

func (c *Compiler) compileArray(arr *ast.Array) *Symbol {
	elem, ok := types.Resolve(arr.ElemType)
	if !ok {
		c.errorf(arr.Token, "undefined data type '%s'", arr.ElemType)
		return nil
	}
	t, ok := types.ArrayOf(elem)
	if !ok {
		c.errorf(arr.Token, "undefined data type '%sArray'", arr.ElemType)
		return nil
	}

	size := c.compileValue(arr.Size)
	if size == nil {
		return nil
	}
	if !types.TypeEqual(size.Type, types.I64) {
		c.errorf(arr.Size.Tok(), "invalid array size")
		return nil
	}
	return &Symbol{Val: c.allocBuffer(t, size.Val), Type: t}
}

func (c *Compiler) compileSizeOf(call *ast.FunctionCall) *Symbol {
	sym := c.compileValue(call.Arguments[0])
	if sym == nil {
		return nil
	}
	if !types.IsIndexable(sym.Type) {
		c.errorf(call.Arguments[0].Tok(), "cannot take size of %s", sym.Type)
		return nil
	}
	return &Symbol{Val: c.sizeOf(sym.Val), Type: types.I64}
}

// elementPtr compiles target[index] down to a bounds-checked element
// address. It returns the address and the element type.
func (c *Compiler) elementPtr(target, index ast.Expression) (llvm.Value, types.Type, bool) {
	arr := c.compileValue(target)
	if arr == nil {
		return llvm.Value{}, nil, false
	}
	if !types.IsIndexable(arr.Type) {
		c.errorf(target.Tok(), "variable '%s' is not array", target)
		return llvm.Value{}, nil, false
	}
	idx := c.compileValue(index)
	if idx == nil {
		return llvm.Value{}, nil, false
	}
	if !types.TypeEqual(idx.Type, types.I64) {
		c.errorf(index.Tok(), "invalid index value")
		return llvm.Value{}, nil, false
	}

	c.boundsCheck(arr.Val, idx.Val)
	elem := types.ElemType(arr.Type)
	ptr := c.builder.CreateInBoundsGEP(c.mapToLLVMType(elem), arr.Val, []llvm.Value{idx.Val}, "elem_ptr")
	return ptr, elem, true
}

func (c *Compiler) compileArrayAccess(aa *ast.ArrayAccess) *Symbol {
	ptr, elem, ok := c.elementPtr(aa.Array, aa.Index)
	if !ok {
		return nil
	}
	return &Symbol{Val: c.createLoad(ptr, elem, "elem"), Type: elem}
}

func (c *Compiler) compileArrayAssignment(aa *ast.ArrayAssignment) *Symbol {
	ptr, elem, ok := c.elementPtr(aa.Array, aa.Index)
	if !ok {
		return nil
	}
	value := c.compileValue(aa.Value)
	if value == nil {
		return nil
	}
	if !types.TypeEqual(elem, value.Type) {
		c.incompatible(aa.Token, elem, value.Type)
		return nil
	}
	c.createStore(value.Val, ptr, elem)
	return value
}

// compileFreeMemory releases an array or string. The runtime receives the
// base address of the allocation, which sits before the header.
func (c *Compiler) compileFreeMemory(fm *ast.FreeMemory) {
	sym := c.compileValue(fm.Value)
	if sym == nil {
		return
	}
	if !types.IsIndexable(sym.Type) {
		c.errorf(fm.Token, "cannot free value of type %s", sym.Type)
		return
	}
	back := -int64(headerSize)
	base := c.builder.CreateInBoundsGEP(c.Context.Int8Type(), sym.Val, []llvm.Value{c.ConstI64(uint64(back))}, "buf_base")
	fnTy, fn := c.GetCFunc(FREE)
	c.builder.CreateCall(fnTy, fn, []llvm.Value{base}, "")
}
