package token

import (
	"fmt"
	"strconv"
)

type TokenType int

const (
	ILLEGAL TokenType = iota
	EOF
	NEWLINE

	literal_beg
	// Identifiers + literals
	IDENT  // add, foobar, x, y, ...
	INT    // 1343456
	DOUBLE // 123.45
	CHAR   // 'a'
	STRING // "abc"
	literal_end

	operator_beg
	// Operators and delimiters
	ASSIGN // =
	ADD    // +
	SUB    // -
	MUL    // *
	QUO    // /
	INC    // ++
	DEC    // --

	QUESTION  // ?
	COLON     // :
	COMMA     // ,
	SEMICOLON // ;
	RANGE     // ..
	ELLIPSIS  // ...

	LPAREN // (
	LBRACK // [
	LBRACE // {
	RPAREN // )
	RBRACK // ]
	RBRACE // }
	operator_end

	comparison_beg
	EQL // ==
	NEQ // !=
	LSS // <
	LEQ // <=
	GTR // >
	GEQ // >=
	comparison_end

	keyword_beg
	FN
	IF
	ELSE
	WHILE
	DO
	FOR
	IN
	UNTIL
	STEP
	BREAK
	RETURN
	TRUE
	FALSE
	AND
	OR
	NOT
	RM
	keyword_end
)

var tokens = [...]string{
	ILLEGAL: "ILLEGAL",
	EOF:     "EOF",
	NEWLINE: "NEWLINE",

	IDENT:  "IDENT",
	INT:    "INT",
	DOUBLE: "DOUBLE",
	CHAR:   "CHAR",
	STRING: "STRING",

	ASSIGN: "=",
	ADD:    "+",
	SUB:    "-",
	MUL:    "*",
	QUO:    "/",
	INC:    "++",
	DEC:    "--",

	QUESTION:  "?",
	COLON:     ":",
	COMMA:     ",",
	SEMICOLON: ";",
	RANGE:     "..",
	ELLIPSIS:  "...",

	LPAREN: "(",
	LBRACK: "[",
	LBRACE: "{",
	RPAREN: ")",
	RBRACK: "]",
	RBRACE: "}",

	EQL: "==",
	NEQ: "!=",
	LSS: "<",
	LEQ: "<=",
	GTR: ">",
	GEQ: ">=",

	FN:     "fn",
	IF:     "if",
	ELSE:   "else",
	WHILE:  "while",
	DO:     "do",
	FOR:    "for",
	IN:     "in",
	UNTIL:  "until",
	STEP:   "step",
	BREAK:  "break",
	RETURN: "return",
	TRUE:   "true",
	FALSE:  "false",
	AND:    "and",
	OR:     "or",
	NOT:    "not",
	RM:     "rm",
}

// Operator symbols as they appear in BinaryOp/UnaryOp/Comparison nodes.
const (
	SYM_ADD = "+"
	SYM_SUB = "-"
	SYM_MUL = "*"
	SYM_QUO = "/"
	SYM_INC = "++"
	SYM_DEC = "--"
	SYM_AND = "and"
	SYM_OR  = "or"
	SYM_NOT = "not"
	SYM_EQL = "=="
	SYM_NEQ = "!="
	SYM_LSS = "<"
	SYM_LEQ = "<="
	SYM_GTR = ">"
	SYM_GEQ = ">="
)

var keywords map[string]TokenType

func init() {
	keywords = make(map[string]TokenType, keyword_end-keyword_beg)
	for i := keyword_beg + 1; i < keyword_end; i++ {
		keywords[tokens[i]] = i
	}
}

// LookupIdent returns the keyword token type for ident, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

type Token struct {
	FileName string
	Type     TokenType
	Literal  string
	Line     int
	Column   int
}

func (t Token) IsLiteral() bool {
	return literal_beg < t.Type && t.Type < literal_end
}

func (t Token) IsOperator() bool {
	return operator_beg < t.Type && t.Type < operator_end
}

func (t Token) IsComparison() bool {
	return comparison_beg < t.Type && t.Type < comparison_end
}

func (t Token) IsKeyword() bool {
	return keyword_beg < t.Type && t.Type < keyword_end
}

// Pos formats the token position as file:line:col.
func (t Token) Pos() string {
	name := t.FileName
	if name == "" {
		name = "<input>"
	}
	return fmt.Sprintf("%s:%d:%d", name, t.Line, t.Column)
}

func (t Token) String() string {
	if t.Type == IDENT || t.IsLiteral() {
		return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
	}
	return t.Type.String()
}

func (tokenType TokenType) String() string {
	s := ""
	if 0 <= tokenType && tokenType < TokenType(len(tokens)) {
		s = tokens[tokenType]
	}

	if s == "" {
		s = "token(" + strconv.Itoa(int(tokenType)) + ")"
	}

	return s
}

// CompileError is a diagnostic tied to a source position.
type CompileError struct {
	Token Token
	Msg   string
}

func (e *CompileError) Error() string {
	return e.Token.Pos() + ": " + e.Msg
}
