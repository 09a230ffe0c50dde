package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mlang-lang/mlang/ast"
	"github.com/mlang-lang/mlang/compiler"
	"github.com/mlang-lang/mlang/lexer"
	"github.com/mlang-lang/mlang/parser"
	"github.com/mlang-lang/mlang/token"
	"tinygo.org/x/go-llvm"
)

// Process exit statuses of the driver itself. A program run with -r
// exits with its own status instead.
const (
	exitOK       = 0
	exitFailure  = 1
	exitInternal = 2
)

type options struct {
	debug   bool
	run     bool
	output  string
	version bool
	source  string
}

const usage = `usage: mlang [flags] <file.ml>

flags:
  -d, --debug   print the module IR and build without optimizations
  -r, --run     run the program in process instead of building it
  -o <path>     output executable (default: source name without extension)
  -v            print the version
  -h            show this help
`

// parseFlags parses args. It returns flag.ErrHelp when help was asked for.
func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("mlang", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	fs.BoolVar(&opts.debug, "d", false, "")
	fs.BoolVar(&opts.debug, "debug", false, "")
	fs.BoolVar(&opts.run, "r", false, "")
	fs.BoolVar(&opts.run, "run", false, "")
	fs.StringVar(&opts.output, "o", "", "")
	fs.BoolVar(&opts.version, "v", false, "")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.version {
		return opts, nil
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, errors.New("expected exactly one source file")
	}
	opts.source = fs.Arg(0)
	if opts.output == "" {
		opts.output = strings.TrimSuffix(filepath.Base(opts.source), filepath.Ext(opts.source))
	}
	return opts, nil
}

func printErrors(w io.Writer, errs []*token.CompileError) {
	for _, e := range errs {
		fmt.Fprintln(w, e)
	}
}

// parseSource lexes and parses one source file.
func parseSource(path, source string) (*ast.Program, []*token.CompileError) {
	p := parser.New(lexer.New(path, source))
	program := p.ParseProgram()
	return program, p.Errors()
}

// run is main without the process exit so tests can drive it.
func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		return exitFailure
	}
	if opts.version {
		printVersion(stdout)
		return exitOK
	}

	source, err := os.ReadFile(opts.source)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading %s: %v\n", opts.source, err)
		return exitFailure
	}
	program, errs := parseSource(opts.source, string(source))
	if len(errs) > 0 {
		printErrors(stderr, errs)
		return exitFailure
	}

	ctx := llvm.NewContext()
	name := strings.TrimSuffix(filepath.Base(opts.source), SRC_SUFFIX)
	pc := compiler.NewProgramCompiler(ctx, name, program)
	if errs := pc.Compile(); len(errs) > 0 {
		printErrors(stderr, errs)
		return exitFailure
	}
	if err := pc.Compiler.Verify(); err != nil {
		fmt.Fprintf(stderr, "internal compiler error: %v\n", err)
		return exitInternal
	}
	ir := pc.Compiler.GenerateIR()
	if opts.debug {
		fmt.Fprint(stdout, ir)
	}

	mlcache := defaultMLCache()
	if err := os.MkdirAll(mlcache, 0755); err != nil {
		fmt.Fprintf(stderr, "Error creating MLCACHE directory: %v\n", err)
		return exitFailure
	}

	if opts.run {
		irFiles, err := prepareRuntime(stderr, mlcache, irArtifact)
		if err != nil {
			fmt.Fprintf(stderr, "Error preparing runtime: %v\n", err)
			return exitFailure
		}
		status, err := runJIT(ctx, pc.Compiler.Module, irFiles)
		if err != nil {
			fmt.Fprintf(stderr, "Error running %s: %v\n", opts.source, err)
			return exitFailure
		}
		return status
	}

	rtObjs, err := prepareRuntime(stderr, mlcache, objArtifact)
	if err != nil {
		fmt.Fprintf(stderr, "Error preparing runtime: %v\n", err)
		return exitFailure
	}
	buildOpts := buildOptions{debug: opts.debug, output: opts.output}
	if err := buildExecutable(stderr, mlcache, name, ir, rtObjs, buildOpts); err != nil {
		fmt.Fprintf(stderr, "⚠️ Binary generation failed for %s: %v\n", opts.source, err)
		return exitFailure
	}
	fmt.Fprintf(stderr, "✅ Successfully built %s\n", opts.output)
	return exitOK
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
