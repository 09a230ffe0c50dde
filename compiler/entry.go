package compiler

import (
	"github.com/mlang-lang/mlang/ast"
	"github.com/mlang-lang/mlang/token"
	"github.com/mlang-lang/mlang/types"
	"tinygo.org/x/go-llvm"
)

const (
	initName = "mlang.init"
	mainName = "main"
)

// ProgramCompiler compiles one parsed source file into a module with an
// exported main.
type ProgramCompiler struct {
	Compiler *Compiler
	Program  *ast.Program
}

func NewProgramCompiler(ctx llvm.Context, moduleName string, program *ast.Program) *ProgramCompiler {
	return &ProgramCompiler{
		Compiler: NewCompiler(ctx, moduleName),
		Program:  program,
	}
}

// Compile generates the module and returns the semantic errors found. The
// module is only meaningful when no errors are returned.
func (pc *ProgramCompiler) Compile() []*token.CompileError {
	c := pc.Compiler

	// top-level statements run in an internal init function
	initType := llvm.FunctionType(c.Context.VoidType(), nil, false)
	initFunc := llvm.AddFunction(c.Module, initName, initType)
	initFunc.SetLinkage(llvm.InternalLinkage)
	c.builder.SetInsertPointAtEnd(c.Context.AddBasicBlock(initFunc, "entry"))

	c.compileStatements(pc.Program.Statements)
	if !c.terminated() {
		c.builder.CreateRetVoid()
	}

	// Create main function
	mainType := llvm.FunctionType(c.Context.Int32Type(), []llvm.Type{}, false)
	mainFunc := llvm.AddFunction(c.Module, mainName, mainType)
	mainBlock := c.Context.AddBasicBlock(mainFunc, "entry")
	c.builder.SetInsertPointAtEnd(mainBlock)
	c.builder.CreateCall(initType, initFunc, nil, "")

	user, ok := c.Funcs["main"]
	if !ok || user.Builtin {
		c.builder.CreateRet(c.ConstI32(0))
		return c.Errors
	}
	if user.Return.Kind() == types.VoidKind {
		c.builder.CreateCall(user.Type, user.Fn, nil, "")
		c.builder.CreateRet(c.ConstI32(0))
		return c.Errors
	}
	status := c.builder.CreateCall(user.Type, user.Fn, nil, "status")
	c.builder.CreateRet(c.builder.CreateTrunc(status, c.Context.Int32Type(), "exit_code"))
	return c.Errors
}
