package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/go-llvm"

	"github.com/mlang-lang/mlang/ast"
	"github.com/mlang-lang/mlang/lexer"
	"github.com/mlang-lang/mlang/parser"
)

// mustParse is a helper to parse source for testing.
func mustParse(t *testing.T, input string) *ast.Program {
	t.Helper()
	p := parser.New(lexer.New("test.ml", input))
	prog := p.ParseProgram()
	require.Empty(t, p.Errors(), "Parser should have no errors for input: %s", input)
	return prog
}

// compileIR compiles input, requires it to be free of errors and to pass
// the verifier, and returns the module IR.
func compileIR(t *testing.T, input string) string {
	t.Helper()
	ctx := llvm.NewContext()
	defer ctx.Dispose()

	pc := NewProgramCompiler(ctx, "test", mustParse(t, input))
	defer pc.Compiler.Dispose()

	errs := pc.Compile()
	for _, err := range errs {
		t.Errorf("compile error: %s", err)
	}
	require.Empty(t, errs)
	require.NoError(t, pc.Compiler.Verify())
	return pc.Compiler.GenerateIR()
}

func compileErrors(t *testing.T, input string) []string {
	t.Helper()
	ctx := llvm.NewContext()
	defer ctx.Dispose()

	pc := NewProgramCompiler(ctx, "test", mustParse(t, input))
	defer pc.Compiler.Dispose()

	msgs := []string{}
	for _, err := range pc.Compile() {
		msgs = append(msgs, err.Msg)
	}
	return msgs
}

func TestEntryPoint(t *testing.T) {
	ir := compileIR(t, `
Int x = 5
fn add(Int a, Int b): Int {
    return a + b
}
fn main(): Int {
    return add(x, 2)
}
`)
	assert.Contains(t, ir, "@mlang.g.x = private global i64 0, align 8")
	assert.Contains(t, ir, "define internal i64 @add(i64 %a, i64 %b)")
	assert.Contains(t, ir, "define internal i64 @mlang.main()")
	assert.Contains(t, ir, "define internal void @mlang.init()")
	assert.Contains(t, ir, "define i32 @main()")
	assert.Contains(t, ir, "call void @mlang.init()")
	assert.Contains(t, ir, "call i64 @mlang.main()")
	assert.Contains(t, ir, "trunc i64 %status to i32")
}

func TestEntryPointWithoutMain(t *testing.T) {
	ir := compileIR(t, `println("hi")`)
	assert.Contains(t, ir, "define i32 @main()")
	assert.Contains(t, ir, "ret i32 0")
	assert.NotContains(t, ir, "@mlang.main")
}

func TestExternDeclaration(t *testing.T) {
	ir := compileIR(t, `
fn puts(String s): Int
puts("x")
`)
	assert.Contains(t, ir, "declare i64 @puts(ptr)")
}

func TestStringLiteral(t *testing.T) {
	ir := compileIR(t, `String s = "hello"`)
	assert.Contains(t, ir, `<{ i64 5, [6 x i8] c"hello\00" }>`)
	assert.Contains(t, ir, "@mlang.str.0 = private unnamed_addr constant")
}

func TestOperators(t *testing.T) {
	ir := compileIR(t, `
Int n = 3
Int m = -n
Double a = 1.5
Double b = -a
Bool fc = a != b
Bool ic = n <= m
Bool sc = "a" < "b"
Char ch = 'a'
Char ch2 = ch + ch
Bool nb = not fc
`)
	assert.Contains(t, ir, "sub i64 0, %n")
	assert.Contains(t, ir, "fneg double %a")
	assert.Contains(t, ir, "fcmp one double")
	assert.Contains(t, ir, "icmp sle i64")
	assert.Contains(t, ir, "call i64 @mlang_scompare(ptr")
	assert.Contains(t, ir, "add i8")
	assert.Contains(t, ir, "xor i1")
}

func TestIncrementDecrement(t *testing.T) {
	ir := compileIR(t, `
Int i = 0
Int old = i++
Int cur = ++i
Double d = 1.0
d--
`)
	assert.Contains(t, ir, "add i64 %i, 1")
	assert.Contains(t, ir, "fsub double %d, 1.000000e+00")
}

func TestArrays(t *testing.T) {
	ir := compileIR(t, `
IntArray a = IntArray(3)
a[1] = 4
Int y = a[1]
Int n = sizeOf(a)
rm a
`)
	assert.Contains(t, ir, "call ptr @mlang_alloc(i64")
	assert.Contains(t, ir, "arr_validate")
	assert.Contains(t, ir, "arr_err")
	assert.Contains(t, ir, "arr_ok")
	assert.Contains(t, ir, "call void @mlang_fatal(i32 1)")
	assert.Contains(t, ir, "call i64 @mlang_size_of(ptr")
	assert.Contains(t, ir, "call void @mlang_free(ptr")
}

func TestBoolArrayElementsAreBytes(t *testing.T) {
	ir := compileIR(t, `
BoolArray flags = BoolArray(2)
flags[0] = true
`)
	assert.Contains(t, ir, "store i1 true")
}

func TestConditionalWithoutMerge(t *testing.T) {
	ir := compileIR(t, `
fn f(): Int {
    if true { return 1 } else { return 2 }
}
`)
	assert.NotContains(t, ir, "merge")
}

func TestConditionalMerge(t *testing.T) {
	ir := compileIR(t, `
Int x = 0
if x > 1 {
    x = 2
} else if x > 0 {
    x = 3
}
`)
	assert.Contains(t, ir, "merge")
}

func TestTernary(t *testing.T) {
	ir := compileIR(t, `
Bool c = true
Int t = c ? 1 : 2
`)
	assert.Contains(t, ir, "phi i64 [ 1, %tern_then ], [ 2, %tern_else ]")
}

func TestLoops(t *testing.T) {
	t.Run("while with break", func(t *testing.T) {
		ir := compileIR(t, `
Int i = 0
while true {
    i++
    if i > 3 { break }
}
`)
		assert.Contains(t, ir, "loop_cond")
		assert.Contains(t, ir, "loop_after")
	})

	t.Run("do while", func(t *testing.T) {
		ir := compileIR(t, `
Int i = 0
do {
    i++
} while i < 3
`)
		assert.Contains(t, ir, "loop_cond")
	})

	t.Run("do while that always returns", func(t *testing.T) {
		ir := compileIR(t, `
fn g(): Int {
    do { return 1 } while true
}
`)
		assert.NotContains(t, ir, "loop_cond")
		assert.NotContains(t, ir, "loop_after")
	})

	t.Run("for range with step", func(t *testing.T) {
		ir := compileIR(t, `
Int sum = 0
for i in 0..10 step 2 {
    sum = sum + i
}
`)
		assert.Contains(t, ir, "icmp sle i64")
		assert.Contains(t, ir, "loop_progress")
	})

	t.Run("for until", func(t *testing.T) {
		ir := compileIR(t, `
for i in 0 until 10 {
    println("%d", i)
}
`)
		assert.Contains(t, ir, "icmp slt i64")
	})

	t.Run("body that breaks has no progress block", func(t *testing.T) {
		ir := compileIR(t, `
for i in 0 until 10 {
    break
}
`)
		assert.NotContains(t, ir, "loop_progress")
	})

	t.Run("for each over string", func(t *testing.T) {
		ir := compileIR(t, `
Int count = 0
for ch in "abc" {
    if ch == 'b' { count++ }
}
`)
		assert.Contains(t, ir, "call i64 @mlang_size_of(ptr")
		assert.Contains(t, ir, "load i8")
	})

	t.Run("nested break exits inner loop only", func(t *testing.T) {
		compileIR(t, `
for i in 0 until 3 {
    for j in 0 until 3 {
        break
    }
    println("%d", i)
}
`)
	})
}

func TestUnreachableCodeIsDiscarded(t *testing.T) {
	ir := compileIR(t, `
fn h(): Int {
    return 1
    Int z = 2
    println("never")
}
`)
	assert.NotContains(t, ir, "mlang.dead")
}

func TestCasts(t *testing.T) {
	ir := compileIR(t, `
Double x = 2.5
Int i = toInt(x)
Bool t = true
Double d = toDouble(t)
Int big = 65
Char c = toChar(big)
Int w = toInt(c)
String s = toString(42)
String num = "42"
Int back = toInt(num)
Bool b = toBool(i)
Int same = toInt(w)
`)
	assert.Contains(t, ir, "fptosi double %x to i64")
	assert.Contains(t, ir, "uitofp i1 %t to double")
	assert.Contains(t, ir, "trunc i64 %big to i8")
	assert.Contains(t, ir, "sext i8 %c to i64")
	assert.Contains(t, ir, "trunc i64 %i to i1")
	assert.Contains(t, ir, "call ptr @mlang_cast(i64 42, i32 1, i32 64, i32 5, i32 0, ptr %cast_scratch, i64 8)")
	assert.Contains(t, ir, "ptrtoint ptr %num to i64")
}

func TestStringJoin(t *testing.T) {
	ir := compileIR(t, `
Int x = 1
String s = "x is ${x}!"
Int n = len(s)
`)
	assert.Contains(t, ir, "call i64 @mlang_len(ptr")
	assert.Contains(t, ir, "call void @mlang_copy(ptr")
}

func TestVarargsPromotion(t *testing.T) {
	ir := compileIR(t, `println("%c %d %f", 'a', true, 1.5)`)
	assert.Contains(t, ir, "i32 97, i32 1, double 1.500000e+00")
}

func TestInferredBinding(t *testing.T) {
	t.Run("global var bound inside a function", func(t *testing.T) {
		ir := compileIR(t, `
var g
fn setG() {
    g = 5
}
`)
		assert.Contains(t, ir, "@mlang.g.g = private global i64 0")
	})

	t.Run("val binds once", func(t *testing.T) {
		compileIR(t, `
val x = 1
Int y = x + 1
`)
	})

	t.Run("var keeps its type", func(t *testing.T) {
		compileIR(t, `
var x = 1
x = 2
`)
	})
}

func TestInferredLocalZeroedInEntry(t *testing.T) {
	ir := compileIR(t, `
fn f(Bool c): Int {
    var x
    if c { x = 1 } else { println("%d", x) }
    return x
}
`)
	fn := ir[strings.Index(ir, "define internal i64 @f("):]
	zero := strings.Index(fn, "store i64 0, ptr %x")
	branch := strings.Index(fn, "br i1 %c")
	require.NotEqual(t, -1, zero, "x must be zeroed")
	require.NotEqual(t, -1, branch)
	assert.Less(t, zero, branch, "the zero store must precede the branch")
}

func TestIncrementResults(t *testing.T) {
	ir := compileIR(t, `
Int i = 0
Int a = i++
Int b = ++i
`)
	assert.Contains(t, ir, "store i64 %i, ptr @mlang.g.a", "postfix yields the old value")
	assert.Contains(t, ir, "store i64 %op_tmp1, ptr @mlang.g.b", "prefix yields the new value")
}

func TestShadowing(t *testing.T) {
	compileIR(t, `
Int x = 1
{
    Int x = x + 1
    {
        Double x = 2.0
    }
}
fn f(Int x): Int {
    {
        Int x = 3
    }
    return x
}
`)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"redeclare in same scope", "Int x = 1\nInt x = 2", []string{"variable 'x' already exists"}},
		{"reassign val", "val x = 1\nx = 2", []string{"final val cannot be reassigned"}},
		{"var type change", "var x = 1\nx = 2.5", []string{"incompatible types: Int and Double"}},
		{"use before assignment", "var x\nInt y = x", []string{"variable 'x' is used before assignment"}},
		{"undefined variable", "y = 1", []string{"undefined variable 'y'"}},
		{"undefined type", "Foo x", []string{"undefined data type 'Foo'"}},
		{"void variable", "Void x", []string{"variable 'x' cannot have type Void"}},
		{"reserved type name", "Int Double = 1", []string{"'Double' is a reserved type name"}},
		{"break outside loop", "break", []string{"cannot call 'break' here"}},
		{"return at global scope", "return 1", []string{"cannot call 'return' here"}},
		{"mixed operands", "1 + 2.0", []string{"incompatible types: Int and Double"}},
		{"bool arithmetic", "true + false", []string{"invalid operator '+' for type Bool"}},
		{"string arithmetic", `"a" + "b"`, []string{"invalid operator '+' for type String"}},
		{"bool ordering", "true < false", []string{"invalid operator '<' for type Bool"}},
		{"not on int", "not 1", []string{"invalid operator 'not' for type Int"}},
		{"increment bool", "Bool b = true\nb++", []string{"invalid operator '++' for type Bool"}},
		{"increment literal", "1++", []string{"invalid operand for '++': 1 is not assignable"}},
		{"array size", "IntArray(2.0)", []string{"invalid array size"}},
		{"index non array", "Int a = 1\na[0]", []string{"variable 'a' is not array"}},
		{"index type", "IntArray a = IntArray(3)\na[1.0]", []string{"invalid index value"}},
		{"element type", "IntArray a = IntArray(3)\na[0] = 1.5", []string{"incompatible types: Int and Double"}},
		{"cast array", "toInt(IntArray(2))", []string{"unsupported cast from IntArray"}},
		{"key function arity", "toInt(1, 2)", []string{"function 'toInt' expects 1 argument"}},
		{"undefined function", "foo()", []string{"undefined function 'foo'"}},
		{"argument count", "fn f(Int a): Int { return a }\nf(1, 2)", []string{"function 'f' expects 1 arguments, got 2"}},
		{"argument type", "fn f(Int a): Int { return a }\nf(true)", []string{"incompatible types: Int and Bool"}},
		{"second argument type", "fn f(Int a, Double b): Int { return a }\nf(1, 2)", []string{"incompatible types: Double and Int"}},
		{"builtin argument type", "print(1)", []string{"incompatible types: String and Int"}},
		{"reserved function name", "fn toInt(Int a): Int { return a }", []string{"'toInt' is a reserved function name"}},
		{"reserved prefix", "fn mlang_x() {}", []string{"'mlang_x' is a reserved function name"}},
		{"builtin collision", "fn print(String s) {}", []string{"function 'print' already exists"}},
		{"function collision", "fn f() {}\nfn f() {}", []string{"function 'f' already exists"}},
		{"nested function", "if true { fn f() {} }", []string{"functions can only be declared in global scope"}},
		{"missing return", "fn f(): Int { }", []string{"missing return value in function 'f'"}},
		{"bare return", "fn f(): Int { return }", []string{"missing return value"}},
		{"return type", "fn f(): Int { return 1.5 }", []string{"incompatible types: Int and Double"}},
		{"main parameters", "fn main(Int a) {}", []string{"function 'main' cannot take parameters"}},
		{"range bound", "for i in 0..1.5 {}", []string{"range bound must be Int, got Double"}},
		{"iterate over int", "for c in 5 {}", []string{"cannot iterate over Int"}},
		{"condition type", "while 1 {}", []string{"condition must be Bool, got Int"}},
		{"ternary branches", "Int x = true ? 1 : 2.0", []string{"incompatible types: Int and Double"}},
		{"free int", "rm 5", []string{"cannot free value of type Int"}},
		{"interpolated undefined", `String s = "a ${x}"`, []string{"undefined variable 'x'"}},
		{"void value", "fn f() {}\nInt x = f()", []string{"expression f() has no value"}},
		{"unreachable code is checked", "fn f(): Int {\n return 1\n Int y = \"s\"\n}", []string{"incompatible types: Int and String"}},
		{"errors keep accumulating", "Int a = 1.5\nBool b = 2", []string{"incompatible types: Int and Double", "incompatible types: Bool and Int"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compileErrors(t, tt.input))
		})
	}
}

func TestErrorPosition(t *testing.T) {
	ctx := llvm.NewContext()
	defer ctx.Dispose()

	pc := NewProgramCompiler(ctx, "test", mustParse(t, "Int x = 1\nInt y = z"))
	defer pc.Compiler.Dispose()

	errs := pc.Compile()
	require.Len(t, errs, 1)
	assert.Equal(t, "test.ml:2:9: undefined variable 'z'", errs[0].Error())
}
