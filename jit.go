package main

import (
	"fmt"

	"tinygo.org/x/go-llvm"
)

// flushName is the runtime hook that drains C stdio before the process
// exits from Go.
const flushName = "mlang_flush"

// linkRuntimeIR parses each runtime IR file into ctx and links it into mod.
func linkRuntimeIR(ctx llvm.Context, mod llvm.Module, irFiles []string) error {
	for _, path := range irFiles {
		buf, err := llvm.NewMemoryBufferFromFile(path)
		if err != nil {
			return fmt.Errorf("read runtime IR %s: %w", path, err)
		}
		rt, err := ctx.ParseIR(buf)
		if err != nil {
			return fmt.Errorf("parse runtime IR %s: %w", path, err)
		}
		if mod.Target() == "" {
			mod.SetTarget(rt.Target())
			mod.SetDataLayout(rt.DataLayout())
		}
		if err := llvm.LinkModules(mod, rt); err != nil {
			return fmt.Errorf("link runtime IR %s: %w", path, err)
		}
	}
	return nil
}

// runJIT executes main of mod in process and returns its exit status. The
// execution engine takes ownership of mod.
func runJIT(ctx llvm.Context, mod llvm.Module, irFiles []string) (int, error) {
	if err := linkRuntimeIR(ctx, mod, irFiles); err != nil {
		return 1, err
	}
	if err := llvm.VerifyModule(mod, llvm.ReturnStatusAction); err != nil {
		return 1, fmt.Errorf("linked module verification failed: %w", err)
	}

	llvm.LinkInMCJIT()
	if err := llvm.InitializeNativeTarget(); err != nil {
		return 1, fmt.Errorf("initialize native target: %w", err)
	}
	if err := llvm.InitializeNativeAsmPrinter(); err != nil {
		return 1, fmt.Errorf("initialize native asm printer: %w", err)
	}

	opts := llvm.NewMCJITCompilerOptions()
	opts.SetMCJITOptimizationLevel(2)
	ee, err := llvm.NewMCJITCompiler(mod, opts)
	if err != nil {
		return 1, fmt.Errorf("create JIT: %w", err)
	}
	defer ee.Dispose()

	mainFn := mod.NamedFunction("main")
	if mainFn.IsNil() {
		return 1, fmt.Errorf("module has no main function")
	}
	result := ee.RunFunction(mainFn, nil)
	defer result.Dispose()
	status := int(int32(result.Int(true)))

	if flush := mod.NamedFunction(flushName); !flush.IsNil() {
		ee.RunFunction(flush, nil).Dispose()
	}
	return status, nil
}
