package compiler

import "tinygo.org/x/go-llvm"

const (
	// I/O
	PRINT     = "mlang_print"
	PRINTLN   = "mlang_println"
	READ      = "mlang_read"
	READ_LINE = "mlang_read_line"

	// Memory
	ALLOC   = "mlang_alloc"
	FREE    = "mlang_free"
	SIZE_OF = "mlang_size_of"
	LEN     = "mlang_len"
	COPY    = "mlang_copy"
	FATAL   = "mlang_fatal"

	// Strings and casts
	SCOMPARE = "mlang_scompare"
	CAST     = "mlang_cast"
	CASTD    = "mlang_castd"
)

// Fatal error codes understood by mlang_fatal. The code is also the exit
// status of the program.
const (
	INDEX_OUT_OF_RANGE = 1
	NULL_SIZEOF        = 2
	OUT_OF_MEMORY      = 3
	INVALID_CAST       = 4
)

// GetFnType returns the LLVM FunctionType for an mlang runtime helper.
func (c *Compiler) GetFnType(name string) llvm.Type {
	// Short helpers to reduce duplication
	ptr := c.ptrType()
	i8 := c.Context.Int8Type()
	i32 := c.Context.Int32Type()
	i64 := c.Context.Int64Type()
	f64 := c.Context.DoubleType()
	void := c.Context.VoidType()

	switch name {
	case PRINT, PRINTLN:
		return llvm.FunctionType(void, []llvm.Type{ptr}, true)
	case READ:
		return llvm.FunctionType(i8, nil, false)
	case READ_LINE:
		return llvm.FunctionType(ptr, nil, false)

	case ALLOC:
		return llvm.FunctionType(ptr, []llvm.Type{i64}, false)
	case FREE:
		return llvm.FunctionType(void, []llvm.Type{ptr}, false)
	case SIZE_OF, LEN:
		return llvm.FunctionType(i64, []llvm.Type{ptr}, false)
	case COPY:
		return llvm.FunctionType(void, []llvm.Type{ptr, ptr, i64, i64}, false)
	case FATAL:
		return llvm.FunctionType(void, []llvm.Type{i32}, false)

	case SCOMPARE:
		return llvm.FunctionType(i64, []llvm.Type{ptr, ptr}, false)
	case CAST:
		return llvm.FunctionType(ptr, []llvm.Type{i64, i32, i32, i32, i32, ptr, i64}, false)
	case CASTD:
		return llvm.FunctionType(ptr, []llvm.Type{f64, i32, i32, i32, i32, ptr, i64}, false)

	default:
		panic("Unknown function name " + name)
	}
}

func (c *Compiler) GetCFunc(name string) (llvm.Type, llvm.Value) {
	fnType := c.GetFnType(name)
	fn := c.Module.NamedFunction(name)
	if fn.IsNil() {
		fn = llvm.AddFunction(c.Module, name, fnType)
		if name == FATAL {
			kind := llvm.AttributeKindID("noreturn")
			fn.AddFunctionAttr(c.Context.CreateEnumAttribute(kind, 0))
		}
	}

	return fnType, fn
}

// fatal emits a call to mlang_fatal and terminates the current block.
func (c *Compiler) fatal(code uint64) {
	fnTy, fn := c.GetCFunc(FATAL)
	c.builder.CreateCall(fnTy, fn, []llvm.Value{c.ConstI32(code)}, "")
	c.builder.CreateUnreachable()
}
