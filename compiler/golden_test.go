package compiler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mlang-lang/mlang/lexer"
	"github.com/mlang-lang/mlang/parser"
	"github.com/mlang-lang/mlang/testcase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/go-llvm"
)

// TestGolden compiles every program in the shared Markdown suite. Programs
// expected to run must compile cleanly and verify. The rest must report
// exactly the listed diagnostics.
func TestGolden(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "testdata", "*.md"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		t.Run(strings.TrimSuffix(filepath.Base(file), ".md"), func(t *testing.T) {
			content, err := os.ReadFile(file)
			require.NoError(t, err)
			cases, err := testcase.Extract(content)
			require.NoError(t, err)

			for _, tc := range cases {
				t.Run(tc.Name, func(t *testing.T) {
					p := parser.New(lexer.New(file, tc.Source))
					program := p.ParseProgram()
					require.Empty(t, p.Errors())

					ctx := llvm.NewContext()
					defer ctx.Dispose()
					pc := NewProgramCompiler(ctx, tc.Name, program)
					defer pc.Compiler.Dispose()

					msgs := []string{}
					for _, e := range pc.Compile() {
						msgs = append(msgs, e.Msg)
					}
					if !tc.Runs() {
						assert.Equal(t, tc.CompileErrors, msgs)
						return
					}
					require.Empty(t, msgs)
					require.NoError(t, pc.Compiler.Verify())
				})
			}
		})
	}
}
