package lexer

import (
	"testing"

	"github.com/mlang-lang/mlang/token"
	"github.com/stretchr/testify/require"
)

type Test struct {
	expectedType    token.TokenType
	expectedLiteral string
}

func checkInput(t *testing.T, input string, tests []Test) {
	t.Helper()
	l := New("lexer_test", input)

	for i, tt := range tests {
		tok := l.NextToken()
		require.Equal(t, tt.expectedType, tok.Type, "tests[%d] - tokentype wrong, literal %q", i, tok.Literal)
		require.Equal(t, tt.expectedLiteral, tok.Literal, "tests[%d] - literal wrong", i)
	}
	require.Empty(t, l.Errors())
}

func TestNextToken(t *testing.T) {
	input := `Int five = 5
// comment line

var ten = 10.5
fn add(Int x, Int y): Int {
    return x + y
}
for i in 0..10 step 2 { i++ }
a[1] = 'c' /* block
comment */ s != "hi\n"
`

	tests := []Test{
		{token.IDENT, "Int"},
		{token.IDENT, "five"},
		{token.ASSIGN, "="},
		{token.INT, "5"},
		{token.NEWLINE, "\n"},
		{token.IDENT, "var"},
		{token.IDENT, "ten"},
		{token.ASSIGN, "="},
		{token.DOUBLE, "10.5"},
		{token.NEWLINE, "\n"},
		{token.FN, "fn"},
		{token.IDENT, "add"},
		{token.LPAREN, "("},
		{token.IDENT, "Int"},
		{token.IDENT, "x"},
		{token.COMMA, ","},
		{token.IDENT, "Int"},
		{token.IDENT, "y"},
		{token.RPAREN, ")"},
		{token.COLON, ":"},
		{token.IDENT, "Int"},
		{token.LBRACE, "{"},
		{token.NEWLINE, "\n"},
		{token.RETURN, "return"},
		{token.IDENT, "x"},
		{token.ADD, "+"},
		{token.IDENT, "y"},
		{token.NEWLINE, "\n"},
		{token.RBRACE, "}"},
		{token.NEWLINE, "\n"},
		{token.FOR, "for"},
		{token.IDENT, "i"},
		{token.IN, "in"},
		{token.INT, "0"},
		{token.RANGE, ".."},
		{token.INT, "10"},
		{token.STEP, "step"},
		{token.INT, "2"},
		{token.LBRACE, "{"},
		{token.IDENT, "i"},
		{token.INC, "++"},
		{token.RBRACE, "}"},
		{token.NEWLINE, "\n"},
		{token.IDENT, "a"},
		{token.LBRACK, "["},
		{token.INT, "1"},
		{token.RBRACK, "]"},
		{token.ASSIGN, "="},
		{token.CHAR, "c"},
		{token.IDENT, "s"},
		{token.NEQ, "!="},
		{token.STRING, "hi\n"},
		{token.NEWLINE, "\n"},
		{token.EOF, ""},
	}

	checkInput(t, input, tests)
}

func TestNewlinesInsideParens(t *testing.T) {
	input := `f(1,
  2)
x`
	checkInput(t, input, []Test{
		{token.IDENT, "f"},
		{token.LPAREN, "("},
		{token.INT, "1"},
		{token.COMMA, ","},
		{token.INT, "2"},
		{token.RPAREN, ")"},
		{token.NEWLINE, "\n"},
		{token.IDENT, "x"},
		{token.EOF, ""},
	})
}

func TestOperators(t *testing.T) {
	checkInput(t, `<= >= == < > -- - ? : ... until and or not`, []Test{
		{token.LEQ, "<="},
		{token.GEQ, ">="},
		{token.EQL, "=="},
		{token.LSS, "<"},
		{token.GTR, ">"},
		{token.DEC, "--"},
		{token.SUB, "-"},
		{token.QUESTION, "?"},
		{token.COLON, ":"},
		{token.ELLIPSIS, "..."},
		{token.UNTIL, "until"},
		{token.AND, "and"},
		{token.OR, "or"},
		{token.NOT, "not"},
		{token.EOF, ""},
	})
}

func TestPositions(t *testing.T) {
	l := New("pos.ml", "x\n  y")
	x := l.NextToken()
	require.Equal(t, 1, x.Line)
	require.Equal(t, 1, x.Column)
	l.NextToken() // newline
	y := l.NextToken()
	require.Equal(t, "pos.ml", y.FileName)
	require.Equal(t, 2, y.Line)
	require.Equal(t, 3, y.Column)
}

func TestEscapedDollar(t *testing.T) {
	l := New("esc", `"cost \$5" '\$'`)
	s := l.NextToken()
	require.Equal(t, token.STRING, s.Type)
	require.Equal(t, "cost "+string(EscapedDollar)+"5", s.Literal)
	c := l.NextToken()
	require.Equal(t, token.CHAR, c.Type)
	require.Equal(t, "$", c.Literal)
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		msg   string
	}{
		{"bang", "!x", "unexpected character"},
		{"string", "\"abc", "unterminated string literal"},
		{"wide char", "'é'", "does not fit in 8 bits"},
		{"empty char", "''", "empty character literal"},
		{"comment", "/* never closed", "unterminated block comment"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New("err", tt.input)
			for tok := l.NextToken(); tok.Type != token.EOF; tok = l.NextToken() {
			}
			require.NotEmpty(t, l.Errors())
			require.Contains(t, l.Errors()[0].Msg, tt.msg)
		})
	}
}
