package parser

import (
	"strings"

	"github.com/mlang-lang/mlang/ast"
	"github.com/mlang-lang/mlang/lexer"
	"github.com/mlang-lang/mlang/token"
)

// interpolate turns a string token into a StringLiteral, or into a
// StringJoin when the literal contains ${name} markers. Each marker becomes
// a toString(name) call.
func (p *Parser) interpolate(tok token.Token) ast.Expression {
	value := tok.Literal
	if !strings.Contains(value, "${") {
		return &ast.StringLiteral{Token: tok, Value: unescapeDollar(value)}
	}

	join := &ast.StringJoin{Token: tok}
	for {
		start := strings.Index(value, "${")
		if start < 0 {
			break
		}
		if start > 0 {
			join.Parts = append(join.Parts, &ast.StringLiteral{Token: tok, Value: unescapeDollar(value[:start])})
		}
		end := strings.IndexByte(value[start:], '}')
		if end < 0 {
			p.errorf(tok, "unterminated interpolation in string literal")
			return nil
		}
		name := value[start+2 : start+end]
		if !isIdentifier(name) {
			p.errorf(tok, "invalid interpolation %q: expected a variable name", "${"+name+"}")
			return nil
		}
		ident := &ast.Identifier{Token: tok, Value: name}
		ident.Token.Type = token.IDENT
		ident.Token.Literal = name
		join.Parts = append(join.Parts, &ast.FunctionCall{
			Token:     tok,
			Function:  &ast.Identifier{Token: tok, Value: "toString"},
			Arguments: []ast.Expression{ident},
		})
		value = value[start+end+1:]
	}
	if value != "" {
		join.Parts = append(join.Parts, &ast.StringLiteral{Token: tok, Value: unescapeDollar(value)})
	}
	return join
}

func unescapeDollar(s string) string {
	return strings.ReplaceAll(s, string(lexer.EscapedDollar), "$")
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		letter := 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || r == '_'
		if !letter && (i == 0 || r < '0' || r > '9') {
			return false
		}
	}
	return true
}
