package parser

import (
	"fmt"
	"strconv"

	"github.com/mlang-lang/mlang/ast"
	"github.com/mlang-lang/mlang/lexer"
	"github.com/mlang-lang/mlang/token"
)

const (
	_ int = iota
	LOWEST
	ASSIGN      // =
	TERNARY     // c ? a : b
	OR          // or
	AND         // and
	EQUALS      // == or !=
	LESSGREATER // > or <
	SUM         // +
	PRODUCT     // *
	PREFIX      // -X or not X
	POSTFIX     // X++ or X[i] or f(X)
)

var precedences = map[token.TokenType]int{
	token.ASSIGN:   ASSIGN,
	token.QUESTION: TERNARY,
	token.OR:       OR,
	token.AND:      AND,
	token.EQL:      EQUALS,
	token.NEQ:      EQUALS,
	token.LSS:      LESSGREATER,
	token.LEQ:      LESSGREATER,
	token.GTR:      LESSGREATER,
	token.GEQ:      LESSGREATER,
	token.ADD:      SUM,
	token.SUB:      SUM,
	token.MUL:      PRODUCT,
	token.QUO:      PRODUCT,
	token.INC:      POSTFIX,
	token.DEC:      POSTFIX,
	token.LPAREN:   POSTFIX,
	token.LBRACK:   POSTFIX,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

type Parser struct {
	l      *lexer.Lexer
	errors []*token.CompileError

	curToken  token.Token
	peekToken token.Token
	// tokens read past peekToken while looking across a newline
	pending []token.Token

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}

	p.prefixParseFns = make(map[token.TokenType]prefixParseFn)
	p.registerPrefix(token.IDENT, p.parseIdentifier)
	p.registerPrefix(token.INT, p.parseIntegerLiteral)
	p.registerPrefix(token.DOUBLE, p.parseDoubleLiteral)
	p.registerPrefix(token.CHAR, p.parseCharLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.TRUE, p.parseBooleanLiteral)
	p.registerPrefix(token.FALSE, p.parseBooleanLiteral)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(token.NOT, p.parsePrefixExpression)
	p.registerPrefix(token.SUB, p.parsePrefixExpression)
	p.registerPrefix(token.ADD, p.parsePrefixExpression)
	p.registerPrefix(token.INC, p.parsePrefixExpression)
	p.registerPrefix(token.DEC, p.parsePrefixExpression)

	p.infixParseFns = make(map[token.TokenType]infixParseFn)
	for _, tt := range []token.TokenType{token.ADD, token.SUB, token.MUL, token.QUO, token.AND, token.OR} {
		p.registerInfix(tt, p.parseInfixExpression)
	}
	for _, tt := range []token.TokenType{token.EQL, token.NEQ, token.LSS, token.LEQ, token.GTR, token.GEQ} {
		p.registerInfix(tt, p.parseComparison)
	}
	p.registerInfix(token.ASSIGN, p.parseAssignment)
	p.registerInfix(token.QUESTION, p.parseTernary)
	p.registerInfix(token.INC, p.parsePostfixExpression)
	p.registerInfix(token.DEC, p.parsePostfixExpression)
	p.registerInfix(token.LPAREN, p.parseCallExpression)
	p.registerInfix(token.LBRACK, p.parseIndexExpression)

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

// Errors returns lexical errors followed by syntax errors.
func (p *Parser) Errors() []*token.CompileError {
	errs := append([]*token.CompileError{}, p.l.Errors()...)
	return append(errs, p.errors...)
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	if len(p.pending) > 0 {
		p.peekToken = p.pending[0]
		p.pending = p.pending[1:]
		return
	}
	p.peekToken = p.l.NextToken()
}

// peekPastNewline returns the first token after peekToken when peekToken
// is a NEWLINE, without consuming anything.
func (p *Parser) peekPastNewline() token.Token {
	if !p.peekTokenIs(token.NEWLINE) {
		return p.peekToken
	}
	if len(p.pending) == 0 {
		p.pending = append(p.pending, p.l.NextToken())
	}
	return p.pending[0]
}

// acceptAcrossNewline advances onto t if it is the next token, optionally
// preceded by a single NEWLINE.
func (p *Parser) acceptAcrossNewline(t token.TokenType) bool {
	if p.peekPastNewline().Type != t {
		return false
	}
	if p.peekTokenIs(token.NEWLINE) {
		p.nextToken()
	}
	p.nextToken()
	return true
}

func (p *Parser) skipNewlines() {
	for p.curTokenIs(token.NEWLINE) {
		p.nextToken()
	}
}

func (p *Parser) curTokenIs(t token.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t token.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) errorf(tok token.Token, format string, args ...any) {
	p.errors = append(p.errors, &token.CompileError{Token: tok, Msg: fmt.Sprintf(format, args...)})
}

func (p *Parser) peekError(t token.TokenType) {
	if p.peekTokenIs(token.ILLEGAL) {
		// already reported by the lexer
		return
	}
	p.errorf(p.peekToken, "expected next token to be %s, got %s instead", t, p.peekToken)
}

func (p *Parser) noPrefixParseFnError(tok token.Token) {
	if tok.Type == token.ILLEGAL {
		return
	}
	p.errorf(tok, "unexpected %s", tok)
}

func (p *Parser) peekPrecedence() int {
	if p, ok := precedences[p.peekToken.Type]; ok {
		return p
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if p, ok := precedences[p.curToken.Type]; ok {
		return p
	}
	return LOWEST
}

func (p *Parser) registerPrefix(tokenType token.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType token.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken)
		return nil
	}
	leftExp := prefix()

	for leftExp != nil && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
	}

	return leftExp
}

// operand moves past an operator onto its right operand. Newlines after a
// binary operator do not end the statement.
func (p *Parser) operand() {
	p.nextToken()
	p.skipNewlines()
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	value, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
	if err != nil {
		p.errorf(p.curToken, "could not parse %q as integer", p.curToken.Literal)
		return nil
	}
	return &ast.IntegerLiteral{Token: p.curToken, Value: value}
}

func (p *Parser) parseDoubleLiteral() ast.Expression {
	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.errorf(p.curToken, "could not parse %q as double", p.curToken.Literal)
		return nil
	}
	return &ast.DoubleLiteral{Token: p.curToken, Value: value}
}

func (p *Parser) parseCharLiteral() ast.Expression {
	return &ast.CharLiteral{Token: p.curToken, Value: p.curToken.Literal[0]}
}

func (p *Parser) parseBooleanLiteral() ast.Expression {
	return &ast.BooleanLiteral{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return p.interpolate(p.curToken)
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if exp == nil || !p.expectPeek(token.RPAREN) {
		return nil
	}
	return exp
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expression := &ast.UnaryOp{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
	}
	p.nextToken()
	expression.Operand = p.parseExpression(PREFIX)
	if expression.Operand == nil {
		return nil
	}
	return expression
}

func (p *Parser) parsePostfixExpression(left ast.Expression) ast.Expression {
	return &ast.UnaryOp{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
		Operand:  left,
		Postfix:  true,
	}
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expression := &ast.BinaryOp{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
		Left:     left,
	}
	precedence := p.curPrecedence()
	p.operand()
	expression.Right = p.parseExpression(precedence)
	if expression.Right == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseComparison(left ast.Expression) ast.Expression {
	expression := &ast.Comparison{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
		Left:     left,
	}
	precedence := p.curPrecedence()
	p.operand()
	expression.Right = p.parseExpression(precedence)
	if expression.Right == nil {
		return nil
	}
	return expression
}

// parseAssignment is right associative: a = b = c assigns c to b first.
func (p *Parser) parseAssignment(left ast.Expression) ast.Expression {
	tok := p.curToken
	p.operand()
	value := p.parseExpression(ASSIGN - 1)
	if value == nil {
		return nil
	}

	switch target := left.(type) {
	case *ast.Identifier:
		return &ast.Assignment{Token: tok, Name: target, Value: value}
	case *ast.ArrayAccess:
		return &ast.ArrayAssignment{Token: tok, Array: target.Array, Index: target.Index, Value: value}
	}
	p.errorf(tok, "cannot assign to %s", left)
	return nil
}

func (p *Parser) parseTernary(condition ast.Expression) ast.Expression {
	expression := &ast.TernaryOp{Token: p.curToken, Condition: condition}
	p.operand()
	expression.Consequence = p.parseExpression(TERNARY)
	if expression.Consequence == nil || !p.expectPeek(token.COLON) {
		return nil
	}
	p.operand()
	expression.Alternative = p.parseExpression(TERNARY - 1)
	if expression.Alternative == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseCallExpression(function ast.Expression) ast.Expression {
	ident, ok := function.(*ast.Identifier)
	if !ok {
		p.errorf(p.curToken, "cannot call %s", function)
		return nil
	}
	args, ok := p.parseExpressionList(token.RPAREN)
	if !ok {
		return nil
	}
	return &ast.FunctionCall{Token: ident.Token, Function: ident, Arguments: args}
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	exp := &ast.ArrayAccess{Token: p.curToken, Array: left}
	p.nextToken()
	exp.Index = p.parseExpression(LOWEST)
	if exp.Index == nil || !p.expectPeek(token.RBRACK) {
		return nil
	}
	return exp
}

func (p *Parser) parseExpressionList(end token.TokenType) ([]ast.Expression, bool) {
	list := []ast.Expression{}

	if p.peekTokenIs(end) {
		p.nextToken()
		return list, true
	}

	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if exp == nil {
		return nil, false
	}
	list = append(list, exp)

	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		exp := p.parseExpression(LOWEST)
		if exp == nil {
			return nil, false
		}
		list = append(list, exp)
	}

	if !p.expectPeek(end) {
		return nil, false
	}
	return list, true
}
