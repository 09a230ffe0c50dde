package compiler

import (
	"strings"

	"github.com/mlang-lang/mlang/ast"
	"github.com/mlang-lang/mlang/token"
	"github.com/mlang-lang/mlang/types"
	"tinygo.org/x/go-llvm"
)

// reservedPrefix is kept for compiler and runtime symbols.
const reservedPrefix = "mlang"

// Func is a callable known to the compiler: a builtin backed by the
// runtime, an external declaration or a function with a body.
type Func struct {
	Name     string
	Params   []types.Type
	Return   types.Type
	Variadic bool
	Builtin  bool
	Type     llvm.Type
	Fn       llvm.Value
}

// builtins maps source names to runtime symbols.
var builtins = []struct {
	name    string
	cname   string
	params  []types.Type
	ret     types.Type
	varargs bool
}{
	{"print", PRINT, []types.Type{types.String}, types.None, true},
	{"println", PRINTLN, []types.Type{types.String}, types.None, true},
	{"read", READ, nil, types.I8, false},
	{"readLine", READ_LINE, nil, types.String, false},
	{"len", LEN, []types.Type{types.String}, types.I64, false},
}

func (c *Compiler) declareBuiltins() {
	for _, b := range builtins {
		fnTy, fn := c.GetCFunc(b.cname)
		c.Funcs[b.name] = &Func{
			Name:     b.name,
			Params:   b.params,
			Return:   b.ret,
			Variadic: b.varargs,
			Builtin:  true,
			Type:     fnTy,
			Fn:       fn,
		}
	}
}

// resolveSignature resolves the parameter and return types of fd. It
// reports every unknown or invalid type and returns false if any was found.
func (c *Compiler) resolveSignature(fd *ast.FunctionDeclaration) ([]types.Type, types.Type, bool) {
	ok := true
	params := make([]types.Type, len(fd.Parameters))
	for i, p := range fd.Parameters {
		t, found := types.Resolve(p.TypeName)
		switch {
		case !found:
			c.errorf(p.Token, "undefined data type '%s'", p.TypeName)
			ok = false
		case t.Kind() == types.VoidKind || t.Kind() == types.InferKind:
			c.errorf(p.Token, "parameter '%s' cannot have type %s", p.Name.Value, t)
			ok = false
		}
		params[i] = t
	}

	ret, found := types.Resolve(fd.ReturnType)
	switch {
	case !found:
		c.errorf(fd.Name.Token, "undefined data type '%s'", fd.ReturnType)
		ok = false
	case ret.Kind() == types.InferKind:
		c.errorf(fd.Name.Token, "function '%s' cannot return %s", fd.Name.Value, ret)
		ok = false
	}
	return params, ret, ok
}

// checkFunctionName reports names a program may not declare.
func (c *Compiler) checkFunctionName(fd *ast.FunctionDeclaration) bool {
	name := fd.Name.Value
	if types.IsKeyFunction(name) || strings.HasPrefix(name, reservedPrefix) {
		c.errorf(fd.Name.Token, "'%s' is a reserved function name", name)
		return false
	}
	if _, ok := c.Funcs[name]; ok {
		c.errorf(fd.Name.Token, "function '%s' already exists", name)
		return false
	}
	if name != "main" {
		return true
	}
	switch {
	case fd.Body == nil:
		c.errorf(fd.Name.Token, "function 'main' must have a body")
	case len(fd.Parameters) > 0 || fd.Variadic:
		c.errorf(fd.Name.Token, "function 'main' cannot take parameters")
	case fd.ReturnType != "Int" && fd.ReturnType != "Void":
		c.errorf(fd.Name.Token, "function 'main' must return Int or Void")
	default:
		return true
	}
	return false
}

// symbolName is the module-level name of a user function. User main is
// renamed so the exported main can wrap it.
func symbolName(name string) string {
	if name == "main" {
		return "mlang.main"
	}
	return name
}

func (c *Compiler) compileFunctionDeclaration(fd *ast.FunctionDeclaration) {
	if CurrentKind(c.Scopes) != GlobalScope {
		c.errorf(fd.Token, "functions can only be declared in global scope")
		return
	}
	if !c.checkFunctionName(fd) {
		return
	}
	params, ret, ok := c.resolveSignature(fd)
	if !ok {
		return
	}

	llvmParams := make([]llvm.Type, len(params))
	for i, p := range params {
		llvmParams[i] = c.mapToLLVMType(p)
	}
	fnType := llvm.FunctionType(c.mapToLLVMType(ret), llvmParams, fd.Variadic)
	function := llvm.AddFunction(c.Module, symbolName(fd.Name.Value), fnType)

	fn := &Func{
		Name:     fd.Name.Value,
		Params:   params,
		Return:   ret,
		Variadic: fd.Variadic,
		Type:     fnType,
		Fn:       function,
	}
	// registered before the body so it can call itself
	c.Funcs[fn.Name] = fn

	if fd.Body == nil {
		return
	}
	function.SetLinkage(llvm.InternalLinkage)
	c.compileFunctionBody(fd, fn)
}

func (c *Compiler) compileFunctionBody(fd *ast.FunctionDeclaration, fn *Func) {
	entry := c.Context.AddBasicBlock(fn.Fn, "entry")
	savedBlock := c.builder.GetInsertBlock()
	savedFunc := c.currentFunc
	c.builder.SetInsertPointAtEnd(entry)
	c.currentFunc = fn

	c.withScope(FuncScope, llvm.BasicBlock{}, func() {
		for i, p := range fd.Parameters {
			param := fn.Fn.Param(i)
			param.SetName(p.Name.Value)
			v := &Variable{Name: p.Name.Value}
			c.allocate(v, fn.Params[i])
			c.createStore(param, v.Storage, v.Type)
			if !Declare(c.Scopes, p.Name.Value, p.TypeName, v) {
				c.errorf(p.Name.Token, "variable '%s' already exists", p.Name.Value)
			}
		}

		last := c.compileStatements(fd.Body.Statements)
		if !c.terminated() {
			c.autoReturn(fd, fn, last)
		}
	})

	c.currentFunc = savedFunc
	// Restore the builder to where it was before compiling this function
	if !savedBlock.IsNil() {
		c.builder.SetInsertPointAtEnd(savedBlock)
	}
}

// autoReturn terminates a body that falls off its end: Void functions
// return nothing and others return the value of the last statement.
func (c *Compiler) autoReturn(fd *ast.FunctionDeclaration, fn *Func, last *Symbol) {
	if fn.Return.Kind() == types.VoidKind {
		c.builder.CreateRetVoid()
		return
	}
	if last == nil || last.Type.Kind() == types.VoidKind {
		c.errorf(fd.Name.Token, "missing return value in function '%s'", fn.Name)
		return
	}
	c.ret(fd.Body.Token, fn, last)
}

// ret returns value from fn. On a type mismatch the block is still
// terminated so the body is not auto-returned as well.
func (c *Compiler) ret(tok token.Token, fn *Func, value *Symbol) {
	if !types.TypeEqual(fn.Return, value.Type) {
		c.incompatible(tok, fn.Return, value.Type)
		c.builder.CreateUnreachable()
		return
	}
	c.builder.CreateRet(value.Val)
}

func (c *Compiler) compileReturn(r *ast.Return) {
	fn := c.currentFunc
	if fn == nil {
		c.errorf(r.Token, "cannot call 'return' here")
		return
	}
	if r.Value == nil {
		if fn.Return.Kind() != types.VoidKind {
			c.errorf(r.Token, "missing return value")
			c.builder.CreateUnreachable()
			return
		}
		c.builder.CreateRetVoid()
		return
	}
	value := c.compileValue(r.Value)
	if value == nil {
		c.builder.CreateUnreachable()
		return
	}
	c.ret(r.Token, fn, value)
}

// compileKeyFunction lowers array constructors, casts and sizeOf, which
// look like calls but never reach a function.
func (c *Compiler) compileKeyFunction(call *ast.FunctionCall) *Symbol {
	name := call.Function.Value
	if len(call.Arguments) != 1 {
		c.errorf(call.Token, "function '%s' expects 1 argument", name)
		return nil
	}
	arg := call.Arguments[0]
	switch {
	case name == "sizeOf":
		return c.compileSizeOf(call)
	case strings.HasSuffix(name, "Array"):
		return c.compileArray(&ast.Array{Token: call.Token, ElemType: types.KeyFunctionType(name), Size: arg})
	default:
		return c.compileCast(&ast.Cast{Token: call.Token, Target: types.KeyFunctionType(name), Value: arg})
	}
}

func (c *Compiler) compileFunctionCall(call *ast.FunctionCall) *Symbol {
	name := call.Function.Value
	if types.IsKeyFunction(name) {
		return c.compileKeyFunction(call)
	}
	fn, ok := c.Funcs[name]
	if !ok {
		c.errorf(call.Token, "undefined function '%s'", name)
		return nil
	}

	args := make([]*Symbol, len(call.Arguments))
	failed := false
	for i, a := range call.Arguments {
		args[i] = c.compileValue(a)
		failed = failed || args[i] == nil
	}
	if failed {
		return nil
	}

	got, want := len(args), len(fn.Params)
	if got < want || (!fn.Variadic && got != want) {
		c.errorf(call.Token, "function '%s' expects %d arguments, got %d", name, want, got)
		return nil
	}

	fixed := make([]types.Type, want)
	for i := range fixed {
		fixed[i] = args[i].Type
	}
	if !types.EqualTypes(fn.Params, fixed) {
		for i, p := range fn.Params {
			if !types.TypeEqual(p, fixed[i]) {
				c.incompatible(call.Arguments[i].Tok(), p, fixed[i])
				break
			}
		}
		return nil
	}

	vals := make([]llvm.Value, len(args))
	for i, arg := range args {
		if i >= want {
			vals[i] = c.promoteVararg(arg)
			continue
		}
		vals[i] = arg.Val
	}

	if fn.Return.Kind() == types.VoidKind {
		c.builder.CreateCall(fn.Type, fn.Fn, vals, "")
		return &Symbol{Type: types.None}
	}
	return &Symbol{
		Val:  c.builder.CreateCall(fn.Type, fn.Fn, vals, "call"),
		Type: fn.Return,
	}
}

// promoteVararg applies C default argument promotion: Bool and Char are
// zero-extended to i32.
func (c *Compiler) promoteVararg(arg *Symbol) llvm.Value {
	if types.IsBool(arg.Type) || types.IsChar(arg.Type) {
		return c.builder.CreateZExt(arg.Val, c.Context.Int32Type(), "promote")
	}
	return arg.Val
}
