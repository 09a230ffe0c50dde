package lexer

import (
	"fmt"
	"strings"

	"fortio.org/safecast"
	"github.com/mlang-lang/mlang/token"
)

// EscapedDollar stands in for a \$ escape inside string literals so that
// interpolation does not mistake it for the start of a ${name} marker.
const EscapedDollar = '\uE000'

type Lexer struct {
	fileName     string
	input        []rune
	position     int  // current position in input (points to current rune)
	readPosition int  // current reading position in input (after current rune)
	curr         rune // current rune under examination
	line         int
	column       int
	nesting      int // depth of open ( and [; newlines inside are insignificant
	lastType     token.TokenType
	errors       []*token.CompileError
}

func New(fileName, input string) *Lexer {
	l := &Lexer{
		fileName: fileName,
		input:    []rune(input),
		line:     1,
		lastType: token.NEWLINE,
	}
	l.readRune()
	return l
}

// Errors returns the lexical errors found so far.
func (l *Lexer) Errors() []*token.CompileError {
	return l.errors
}

func (l *Lexer) NextToken() token.Token {
	tok := l.nextToken()
	l.lastType = tok.Type
	return tok
}

func (l *Lexer) nextToken() token.Token {
	for {
		l.skipBlanks()
		if l.curr == '/' && l.peekRune() == '/' {
			l.skipLineComment()
			continue
		}
		if l.curr == '/' && l.peekRune() == '*' {
			l.skipBlockComment()
			continue
		}
		if l.curr == '\n' {
			if l.nesting > 0 || l.lastType == token.NEWLINE {
				l.readRune()
				continue
			}
			tok := l.newToken(token.NEWLINE, "\n")
			l.readRune()
			return tok
		}
		break
	}

	start := l.newToken(token.ILLEGAL, "")
	switch l.curr {
	case 0:
		start.Type = token.EOF
		return start
	case '=':
		return l.oneOrTwo(start, '=', token.ASSIGN, token.EQL)
	case '!':
		if l.peekRune() == '=' {
			return l.two(start, token.NEQ)
		}
		return l.illegal(start)
	case '<':
		return l.oneOrTwo(start, '=', token.LSS, token.LEQ)
	case '>':
		return l.oneOrTwo(start, '=', token.GTR, token.GEQ)
	case '+':
		return l.oneOrTwo(start, '+', token.ADD, token.INC)
	case '-':
		return l.oneOrTwo(start, '-', token.SUB, token.DEC)
	case '*':
		return l.one(start, token.MUL)
	case '/':
		return l.one(start, token.QUO)
	case '?':
		return l.one(start, token.QUESTION)
	case ':':
		return l.one(start, token.COLON)
	case ',':
		return l.one(start, token.COMMA)
	case ';':
		return l.one(start, token.SEMICOLON)
	case '(':
		l.nesting++
		return l.one(start, token.LPAREN)
	case ')':
		if l.nesting > 0 {
			l.nesting--
		}
		return l.one(start, token.RPAREN)
	case '[':
		l.nesting++
		return l.one(start, token.LBRACK)
	case ']':
		if l.nesting > 0 {
			l.nesting--
		}
		return l.one(start, token.RBRACK)
	case '{':
		return l.one(start, token.LBRACE)
	case '}':
		return l.one(start, token.RBRACE)
	case '.':
		if l.peekRune() != '.' {
			return l.illegal(start)
		}
		l.readRune()
		if l.peekRune() == '.' {
			l.readRune()
			l.readRune()
			start.Type = token.ELLIPSIS
			start.Literal = "..."
			return start
		}
		l.readRune()
		start.Type = token.RANGE
		start.Literal = ".."
		return start
	case '"':
		return l.readString(start)
	case '\'':
		return l.readChar(start)
	}

	if isLetter(l.curr) {
		start.Literal = l.readIdentifier()
		start.Type = token.LookupIdent(start.Literal)
		return start
	}
	if isDigit(l.curr) {
		start.Literal, start.Type = l.readNumber()
		return start
	}
	return l.illegal(start)
}

func (l *Lexer) newToken(tt token.TokenType, literal string) token.Token {
	return token.Token{
		FileName: l.fileName,
		Type:     tt,
		Literal:  literal,
		Line:     l.line,
		Column:   l.column,
	}
}

func (l *Lexer) one(tok token.Token, tt token.TokenType) token.Token {
	tok.Type = tt
	tok.Literal = string(l.curr)
	l.readRune()
	return tok
}

func (l *Lexer) two(tok token.Token, tt token.TokenType) token.Token {
	first := l.curr
	l.readRune()
	tok.Type = tt
	tok.Literal = string(first) + string(l.curr)
	l.readRune()
	return tok
}

func (l *Lexer) oneOrTwo(tok token.Token, next rune, single, double token.TokenType) token.Token {
	if l.peekRune() == next {
		return l.two(tok, double)
	}
	return l.one(tok, single)
}

func (l *Lexer) illegal(tok token.Token) token.Token {
	tok.Type = token.ILLEGAL
	tok.Literal = string(l.curr)
	l.errorf(tok, "unexpected character %q", l.curr)
	l.readRune()
	return tok
}

func (l *Lexer) errorf(tok token.Token, format string, args ...any) {
	l.errors = append(l.errors, &token.CompileError{Token: tok, Msg: fmt.Sprintf(format, args...)})
}

func (l *Lexer) skipBlanks() {
	for l.curr == ' ' || l.curr == '\t' || l.curr == '\r' {
		l.readRune()
	}
}

func (l *Lexer) skipLineComment() {
	for l.curr != '\n' && l.curr != 0 {
		l.readRune()
	}
}

func (l *Lexer) skipBlockComment() {
	start := l.newToken(token.ILLEGAL, "/*")
	l.readRune()
	l.readRune()
	for {
		if l.curr == 0 {
			l.errorf(start, "unterminated block comment")
			return
		}
		if l.curr == '*' && l.peekRune() == '/' {
			l.readRune()
			l.readRune()
			return
		}
		l.readRune()
	}
}

func (l *Lexer) readRune() {
	if l.curr == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.curr = 0
	} else {
		l.curr = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

func (l *Lexer) peekRune() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.curr) || isDigit(l.curr) {
		l.readRune()
	}
	return string(l.input[position:l.position])
}

// readNumber reads an integer or a double. A '.' followed by another '.'
// belongs to a range operator, not to the number.
func (l *Lexer) readNumber() (string, token.TokenType) {
	position := l.position
	for isDigit(l.curr) {
		l.readRune()
	}
	if l.curr != '.' || !isDigit(l.peekRune()) {
		return string(l.input[position:l.position]), token.INT
	}
	l.readRune()
	for isDigit(l.curr) {
		l.readRune()
	}
	return string(l.input[position:l.position]), token.DOUBLE
}

func (l *Lexer) readEscape(tok token.Token) rune {
	l.readRune()
	switch l.curr {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	case '\\', '\'', '"':
		return l.curr
	case '$':
		return EscapedDollar
	}
	l.errorf(tok, "unknown escape sequence \\%c", l.curr)
	return l.curr
}

func (l *Lexer) readString(tok token.Token) token.Token {
	var out strings.Builder
	l.readRune()
	for l.curr != '"' {
		if l.curr == 0 || l.curr == '\n' {
			l.errorf(tok, "unterminated string literal")
			tok.Type = token.ILLEGAL
			return tok
		}
		if l.curr == '\\' {
			out.WriteRune(l.readEscape(tok))
		} else {
			out.WriteRune(l.curr)
		}
		l.readRune()
	}
	l.readRune()
	tok.Type = token.STRING
	tok.Literal = out.String()
	return tok
}

func (l *Lexer) readChar(tok token.Token) token.Token {
	l.readRune()
	r := l.curr
	if r == '\\' {
		if r = l.readEscape(tok); r == EscapedDollar {
			r = '$'
		}
	} else if r == '\'' || r == 0 || r == '\n' {
		l.errorf(tok, "empty character literal")
		tok.Type = token.ILLEGAL
		return tok
	}
	l.readRune()
	if l.curr != '\'' {
		l.errorf(tok, "unterminated character literal")
		tok.Type = token.ILLEGAL
		return tok
	}
	l.readRune()

	b, err := safecast.Conv[uint8](r)
	if err != nil {
		l.errorf(tok, "character literal %q does not fit in 8 bits", r)
		tok.Type = token.ILLEGAL
		return tok
	}
	tok.Type = token.CHAR
	tok.Literal = string([]byte{b})
	return tok
}

func isLetter(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}
