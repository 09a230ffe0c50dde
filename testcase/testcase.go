// Package testcase extracts mlang golden tests from Markdown documents.
//
// A test starts at a heading of the form "Test: <name>" and owns every
// fenced code block up to the next test heading:
//
//	## Test: hello
//	```mlang
//	println("hello")
//	```
//	```stdout
//	hello
//	```
package testcase

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Fence is the info string of a code block the extractor understands.
type Fence string

const (
	FenceSource       Fence = "mlang"
	FenceStdin        Fence = "stdin"
	FenceStdout       Fence = "stdout"
	FenceExitCode     Fence = "exit-code"
	FenceCompileError Fence = "compile-error"
)

const testPrefix = "Test: "

// TestCase is one program together with what it is expected to do.
type TestCase struct {
	Name   string
	Line   int    // line of the source fence in the Markdown file
	Source string // program text, without the trailing newline
	Stdin  string

	// Stdout is compared verbatim, so it keeps its trailing newline.
	Stdout    string
	HasStdout bool
	ExitCode  int

	// CompileErrors lists the expected diagnostic messages in order,
	// without positions. A test with compile errors is never run.
	CompileErrors []string
}

// Runs reports whether the test expects the program to build and run.
func (tc *TestCase) Runs() bool {
	return len(tc.CompileErrors) == 0
}

// Extract parses a Markdown document and returns its test cases in
// document order.
func Extract(markdown []byte) ([]TestCase, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(markdown))

	var cases []TestCase
	var cur *TestCase
	seen := map[Fence]bool{}

	finish := func() error {
		if cur == nil {
			return nil
		}
		if err := validate(cur, seen); err != nil {
			return err
		}
		cases = append(cases, *cur)
		return nil
	}

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *ast.Heading:
			heading := nodeText(n, markdown)
			if !strings.HasPrefix(heading, testPrefix) {
				return ast.WalkContinue, nil
			}
			if err := finish(); err != nil {
				return ast.WalkStop, err
			}
			cur = &TestCase{Name: strings.TrimPrefix(heading, testPrefix)}
			seen = map[Fence]bool{}

		case *ast.FencedCodeBlock:
			fence := Fence(n.Language(markdown))
			line := lineOf(n, markdown)
			if fence == "" {
				// plain blocks are prose
				return ast.WalkContinue, nil
			}
			if !known(fence) {
				return ast.WalkStop, fmt.Errorf("line %d: unknown fence %q", line, fence)
			}
			if cur == nil {
				return ast.WalkStop, fmt.Errorf("line %d: %s fence found outside of test case", line, fence)
			}
			if seen[fence] {
				return ast.WalkStop, fmt.Errorf("line %d: multiple %s fences in test %q", line, fence, cur.Name)
			}
			seen[fence] = true
			if err := cur.set(fence, blockContent(n, markdown), line); err != nil {
				return ast.WalkStop, fmt.Errorf("line %d: test %q: %w", line, cur.Name, err)
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking markdown AST: %w", err)
	}
	if err := finish(); err != nil {
		return nil, err
	}
	return cases, nil
}

func (tc *TestCase) set(fence Fence, content string, line int) error {
	switch fence {
	case FenceSource:
		tc.Source = strings.TrimRight(content, "\n")
		tc.Line = line
	case FenceStdin:
		tc.Stdin = content
	case FenceStdout:
		tc.Stdout = content
		tc.HasStdout = true
	case FenceExitCode:
		code, err := strconv.Atoi(strings.TrimSpace(content))
		if err != nil {
			return fmt.Errorf("invalid exit code: %w", err)
		}
		tc.ExitCode = code
	case FenceCompileError:
		for _, l := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
			if l = strings.TrimSpace(l); l != "" {
				tc.CompileErrors = append(tc.CompileErrors, l)
			}
		}
		if len(tc.CompileErrors) == 0 {
			return fmt.Errorf("empty compile-error fence")
		}
	}
	return nil
}

// validate requires a program and at least one expectation, and rejects
// run expectations on a program that must not compile.
func validate(tc *TestCase, seen map[Fence]bool) error {
	if !seen[FenceSource] {
		return fmt.Errorf("test %q has no %s fence", tc.Name, FenceSource)
	}
	runs := seen[FenceStdout] || seen[FenceExitCode] || seen[FenceStdin]
	if !runs && !seen[FenceCompileError] {
		return fmt.Errorf("test %q has no expectation fences", tc.Name)
	}
	if runs && seen[FenceCompileError] {
		return fmt.Errorf("test %q expects both compile errors and output", tc.Name)
	}
	return nil
}

func known(f Fence) bool {
	switch f {
	case FenceSource, FenceStdin, FenceStdout, FenceExitCode, FenceCompileError:
		return true
	}
	return false
}

func nodeText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			buf.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func blockContent(block *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(source))
	}
	return buf.String()
}

// lineOf returns the 1-based line of the first content line of node.
func lineOf(node ast.Node, source []byte) int {
	if node.Lines().Len() == 0 {
		return 1
	}
	start := node.Lines().At(0).Start
	return bytes.Count(source[:start], []byte("\n")) + 1
}
