package main

import (
	"bytes"
	"errors"
	"flag"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mlang-lang/mlang/testcase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/go-llvm"
)

func writeSource(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want options
	}{
		{"defaults", []string{"dir/prog.ml"}, options{source: "dir/prog.ml", output: "prog"}},
		{"short flags", []string{"-d", "-r", "prog.ml"}, options{debug: true, run: true, source: "prog.ml", output: "prog"}},
		{"long flags", []string{"--debug", "--run", "prog.ml"}, options{debug: true, run: true, source: "prog.ml", output: "prog"}},
		{"output", []string{"-o", "out/bin", "prog.ml"}, options{source: "prog.ml", output: "out/bin"}},
		{"version", []string{"-v"}, options{version: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFlags(tt.args, io.Discard)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestParseFlagsErrors(t *testing.T) {
	_, err := parseFlags([]string{"-h"}, io.Discard)
	assert.True(t, errors.Is(err, flag.ErrHelp))

	var stderr bytes.Buffer
	_, err = parseFlags([]string{"a.ml", "b.ml"}, &stderr)
	assert.Error(t, err)
	assert.Contains(t, stderr.String(), "usage: mlang")

	_, err = parseFlags([]string{"-x", "a.ml"}, io.Discard)
	assert.Error(t, err)
}

func TestRunVersionAndHelp(t *testing.T) {
	var stdout bytes.Buffer
	assert.Equal(t, exitOK, run([]string{"-v"}, &stdout, io.Discard))
	assert.True(t, strings.HasPrefix(stdout.String(), "mlang "+Version))

	assert.Equal(t, exitOK, run([]string{"-h"}, io.Discard, io.Discard))
	assert.Equal(t, exitFailure, run(nil, io.Discard, io.Discard))
}

func TestRunReportsErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		var stderr bytes.Buffer
		code := run([]string{filepath.Join(t.TempDir(), "nope.ml")}, io.Discard, &stderr)
		assert.Equal(t, exitFailure, code)
		assert.Contains(t, stderr.String(), "Error reading")
	})

	t.Run("parse error", func(t *testing.T) {
		src := writeSource(t, "bad.ml", "Int x = (1 + \n")
		var stderr bytes.Buffer
		assert.Equal(t, exitFailure, run([]string{src}, io.Discard, &stderr))
		assert.Contains(t, stderr.String(), src+":")
	})

	t.Run("semantic errors", func(t *testing.T) {
		src := writeSource(t, "sem.ml", "Int x = 1\nInt y = z\nbreak\n")
		var stdout, stderr bytes.Buffer
		assert.Equal(t, exitFailure, run([]string{"-d", src}, &stdout, &stderr))
		assert.Equal(t,
			src+":2:9: undefined variable 'z'\n"+src+":3:1: cannot call 'break' here\n",
			stderr.String())
		assert.Empty(t, stdout.String(), "no IR is printed for a program with errors")
	})
}

func TestDefaultMLCache(t *testing.T) {
	t.Setenv(cacheEnv, "/tmp/mlcache")
	assert.Equal(t, "/tmp/mlcache", defaultMLCache())

	t.Setenv(cacheEnv, "")
	assert.True(t, strings.HasSuffix(defaultMLCache(), "mlang"))
}

func requireToolchain(t *testing.T) {
	t.Helper()
	for _, tool := range []string{CC, "opt", "llc"} {
		requireTool(t, tool)
	}
}

// TestGoldenPrograms builds every runnable program of the Markdown suite
// and checks its output and exit status.
func TestGoldenPrograms(t *testing.T) {
	if testing.Short() {
		t.Skip("builds executables")
	}
	requireToolchain(t)
	t.Setenv(cacheEnv, t.TempDir())

	files, err := filepath.Glob(filepath.Join("testdata", "*.md"))
	require.NoError(t, err)
	for _, file := range files {
		t.Run(strings.TrimSuffix(filepath.Base(file), ".md"), func(t *testing.T) {
			content, err := os.ReadFile(file)
			require.NoError(t, err)
			cases, err := testcase.Extract(content)
			require.NoError(t, err)

			for _, tc := range cases {
				if !tc.Runs() {
					continue
				}
				t.Run(tc.Name, func(t *testing.T) {
					runGolden(t, tc)
				})
			}
		})
	}
}

func runGolden(t *testing.T, tc testcase.TestCase) {
	src := writeSource(t, "prog.ml", tc.Source+"\n")
	bin := filepath.Join(t.TempDir(), "prog")

	var stderr bytes.Buffer
	require.Equal(t, exitOK, run([]string{"-o", bin, src}, io.Discard, &stderr), stderr.String())

	cmd := exec.Command(bin)
	cmd.Stdin = strings.NewReader(tc.Stdin)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	code := 0
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		require.ErrorAs(t, err, &exitErr)
		code = exitErr.ExitCode()
	}
	assert.Equal(t, tc.ExitCode, code)
	if tc.HasStdout {
		assert.Equal(t, tc.Stdout, stdout.String())
	}
}

func TestRuntimeErrorMessage(t *testing.T) {
	if testing.Short() {
		t.Skip("builds executables")
	}
	requireToolchain(t)
	t.Setenv(cacheEnv, t.TempDir())

	src := writeSource(t, "oob.ml", "IntArray a = IntArray(1)\nprintln(\"%d\", a[5])\n")
	bin := filepath.Join(t.TempDir(), "oob")
	require.Equal(t, exitOK, run([]string{"-o", bin, src}, io.Discard, io.Discard))

	out, err := exec.Command(bin).CombinedOutput()
	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.ExitCode())
	assert.Equal(t, "runtime error: index out of range\n", string(out))
}

func TestDebugBuildPrintsIR(t *testing.T) {
	if testing.Short() {
		t.Skip("builds executables")
	}
	requireTool(t, CC)
	requireTool(t, "llc")
	t.Setenv(cacheEnv, t.TempDir())

	src := writeSource(t, "dbg.ml", "println(\"x\")\n")
	bin := filepath.Join(t.TempDir(), "dbg")
	var stdout bytes.Buffer
	require.Equal(t, exitOK, run([]string{"-d", "-o", bin, src}, &stdout, io.Discard))
	assert.Contains(t, stdout.String(), "define i32 @main()")
	assert.FileExists(t, bin)
}

func TestJITExitStatus(t *testing.T) {
	if testing.Short() {
		t.Skip("runs the JIT")
	}
	requireTool(t, CC)
	cache := t.TempDir()
	t.Setenv(cacheEnv, cache)

	irFiles, err := prepareRuntime(io.Discard, cache, irArtifact)
	require.NoError(t, err)
	ctx := llvm.NewContext()
	defer ctx.Dispose()
	probe := ctx.NewModule("probe")
	defer probe.Dispose()
	if err := linkRuntimeIR(ctx, probe, irFiles); err != nil {
		t.Skipf("runtime IR from %s is not readable by the linked LLVM: %v", CC, err)
	}

	src := writeSource(t, "jit.ml", "fn main(): Int {\n    return 3\n}\n")
	assert.Equal(t, 3, run([]string{"-r", src}, io.Discard, io.Discard))
}

func TestBuildDirsAreUnique(t *testing.T) {
	cache := t.TempDir()
	a, err := newBuildDir(cache)
	require.NoError(t, err)
	b, err := newBuildDir(cache)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.DirExists(t, a)
	assert.Equal(t, filepath.Join(cache, BUILD_DIR), filepath.Dir(a))
}
