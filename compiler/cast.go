package compiler

import (
	"fortio.org/safecast"
	"github.com/mlang-lang/mlang/ast"
	"github.com/mlang-lang/mlang/types"
	"tinygo.org/x/go-llvm"
)

// castTag identifies a value type to the runtime conversion routines.
type castTag uint64

const (
	tagInt castTag = iota + 1
	tagDouble
	tagBool
	tagChar
	tagString
)

// castScratchSize is the worst-case result size: an i64, a double or a
// string pointer.
const castScratchSize = 8

func castTagOf(t types.Type) (tag castTag, width uint64) {
	switch t := t.(type) {
	case types.Int:
		switch t.Width {
		case 1:
			return tagBool, 1
		case 8:
			return tagChar, 8
		}
		return tagInt, safecast.MustConv[uint64](t.Width)
	case types.Float:
		return tagDouble, safecast.MustConv[uint64](t.Width)
	case types.Str:
		return tagString, 0
	}
	return 0, 0
}

func (c *Compiler) compileCast(cast *ast.Cast) *Symbol {
	dst, ok := types.Resolve(cast.Target)
	if !ok {
		c.errorf(cast.Token, "undefined data type '%s'", cast.Target)
		return nil
	}
	src := c.compileExpression(cast.Value)
	if src == nil {
		return nil
	}
	if tag, _ := castTagOf(src.Type); tag == 0 {
		c.errorf(cast.Token, "unsupported cast from %s", src.Type)
		return nil
	}
	if types.TypeEqual(src.Type, dst) {
		return src
	}

	if src.Type.Kind() == types.StrKind || dst.Kind() == types.StrKind {
		return &Symbol{Val: c.runtimeCast(src, dst), Type: dst}
	}
	return &Symbol{Val: c.primitiveCast(src, dst), Type: dst}
}

// primitiveCast converts between Int, Double, Bool and Char with a single
// instruction. Bool is treated as unsigned on either side.
func (c *Compiler) primitiveCast(src *Symbol, dst types.Type) llvm.Value {
	srcSigned := !types.IsBool(src.Type)
	dstSigned := !types.IsBool(dst)
	dstTy := c.mapToLLVMType(dst)

	var op llvm.Opcode
	switch s := src.Type.(type) {
	case types.Float:
		switch d := dst.(type) {
		case types.Float:
			if d.Width == s.Width {
				return src.Val
			}
			op = llvm.FPExt
			if d.Width < s.Width {
				op = llvm.FPTrunc
			}
		default:
			op = llvm.FPToSI
			if !dstSigned {
				op = llvm.FPToUI
			}
		}
	case types.Int:
		switch d := dst.(type) {
		case types.Float:
			op = llvm.SIToFP
			if !srcSigned {
				op = llvm.UIToFP
			}
		case types.Int:
			switch {
			case d.Width == s.Width:
				return src.Val
			case d.Width < s.Width:
				op = llvm.Trunc
			case srcSigned:
				op = llvm.SExt
			default:
				op = llvm.ZExt
			}
		}
	}
	return c.builder.CreateCast(src.Val, op, dstTy, "cast")
}

// runtimeCast converts to or from String through mlang_cast/mlang_castd.
// The runtime writes the result into an entry-block scratch slot and
// returns its address.
func (c *Compiler) runtimeCast(src *Symbol, dst types.Type) llvm.Value {
	srcTag, srcWidth := castTagOf(src.Type)
	dstTag, dstWidth := castTagOf(dst)

	scratch := c.createEntryBlockAlloca(c.Context.Int64Type(), "cast_scratch")
	scratch.SetAlignment(castScratchSize)

	name := CAST
	var val llvm.Value
	switch src.Type.Kind() {
	case types.FloatKind:
		name = CASTD
		val = src.Val
	case types.StrKind:
		val = c.builder.CreatePtrToInt(src.Val, c.Context.Int64Type(), "cast_src")
	default:
		val = src.Val
		switch {
		case types.IsBool(src.Type):
			val = c.builder.CreateZExt(src.Val, c.Context.Int64Type(), "cast_src")
		case types.IsChar(src.Type):
			val = c.builder.CreateSExt(src.Val, c.Context.Int64Type(), "cast_src")
		}
	}

	fnTy, fn := c.GetCFunc(name)
	res := c.builder.CreateCall(fnTy, fn, []llvm.Value{
		val,
		c.ConstI32(uint64(srcTag)),
		c.ConstI32(srcWidth),
		c.ConstI32(uint64(dstTag)),
		c.ConstI32(dstWidth),
		scratch,
		c.ConstI64(castScratchSize),
	}, "cast_res")
	return c.createLoad(res, dst, "cast")
}
