package parser

import (
	"github.com/mlang-lang/mlang/ast"
	"github.com/mlang-lang/mlang/token"
)

// ParseProgram parses statements until EOF. Check Errors before using the
// result.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{Statements: []ast.Statement{}}

	for !p.curTokenIs(token.EOF) {
		if p.curTokenIs(token.NEWLINE) || p.curTokenIs(token.SEMICOLON) {
			p.nextToken()
			continue
		}
		if p.curTokenIs(token.RBRACE) {
			p.errorf(p.curToken, "unexpected }")
			p.nextToken()
			continue
		}
		if stmt := p.parseStatement(); stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		p.endStatement()
		p.nextToken()
	}

	return program
}

func (p *Parser) stmtEnded() bool {
	switch p.peekToken.Type {
	case token.NEWLINE, token.SEMICOLON, token.RBRACE, token.EOF:
		return true
	}
	return false
}

// endStatement checks that the statement just parsed is properly
// terminated. On a syntax error it skips to the end of the line.
func (p *Parser) endStatement() {
	if !p.stmtEnded() {
		if !p.peekTokenIs(token.ILLEGAL) {
			p.errorf(p.peekToken, "expected end of statement, got %s", p.peekToken)
		}
		for !p.stmtEnded() {
			p.nextToken()
		}
	}
	if p.peekTokenIs(token.NEWLINE) || p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
}

func (p *Parser) parseStatement() ast.Statement {
	var stmt ast.Statement
	switch p.curToken.Type {
	case token.FN:
		if fn := p.parseFunctionDeclaration(); fn != nil {
			stmt = fn
		}
	case token.IF:
		if cond := p.parseConditional(); cond != nil {
			stmt = cond
		}
	case token.WHILE:
		if loop := p.parseWhileLoop(); loop != nil {
			stmt = loop
		}
	case token.DO:
		if loop := p.parseDoWhileLoop(); loop != nil {
			stmt = loop
		}
	case token.FOR:
		stmt = p.parseForLoop()
	case token.BREAK:
		stmt = &ast.Break{Token: p.curToken}
	case token.RETURN:
		stmt = p.parseReturn()
	case token.RM:
		stmt = p.parseFreeMemory()
	case token.LBRACE:
		if block := p.parseBlock(); block != nil {
			stmt = block
		}
	case token.IDENT:
		if !p.peekTokenIs(token.IDENT) {
			return p.parseExpressionStatement()
		}
		if decl := p.parseVariableDeclaration(); decl != nil {
			stmt = decl
		}
	default:
		return p.parseExpressionStatement()
	}
	return stmt
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	tok := p.curToken
	exp := p.parseExpression(LOWEST)
	if exp == nil {
		return nil
	}
	return &ast.ExpressionStatement{Token: tok, Expression: exp}
}

func (p *Parser) parseVariableDeclaration() *ast.VariableDeclaration {
	stmt := &ast.VariableDeclaration{Token: p.curToken, TypeName: p.curToken.Literal}
	p.nextToken()
	stmt.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}

	if !p.peekTokenIs(token.ASSIGN) {
		return stmt
	}
	p.nextToken()
	p.operand()
	stmt.Value = p.parseExpression(LOWEST)
	if stmt.Value == nil {
		return nil
	}
	return stmt
}

// parseBlock expects curToken to be { and leaves it on the matching }.
func (p *Parser) parseBlock() *ast.Block {
	block := &ast.Block{Token: p.curToken, Statements: []ast.Statement{}}
	p.nextToken()

	for !p.curTokenIs(token.RBRACE) {
		if p.curTokenIs(token.EOF) {
			p.errorf(block.Token, "unterminated block, expected }")
			return nil
		}
		if p.curTokenIs(token.NEWLINE) || p.curTokenIs(token.SEMICOLON) {
			p.nextToken()
			continue
		}
		if stmt := p.parseStatement(); stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.endStatement()
		p.nextToken()
	}

	return block
}

func (p *Parser) expectBlock() *ast.Block {
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	return p.parseBlock()
}

func (p *Parser) parseConditional() *ast.Conditional {
	stmt := &ast.Conditional{Token: p.curToken}
	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if stmt.Condition == nil {
		return nil
	}
	if stmt.Consequence = p.expectBlock(); stmt.Consequence == nil {
		return nil
	}

	if !p.acceptAcrossNewline(token.ELSE) {
		return stmt
	}
	if p.peekTokenIs(token.IF) {
		p.nextToken()
		nested := p.parseConditional()
		if nested == nil {
			return nil
		}
		stmt.Alternative = &ast.Block{Token: nested.Token, Statements: []ast.Statement{nested}}
		return stmt
	}
	if stmt.Alternative = p.expectBlock(); stmt.Alternative == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseWhileLoop() *ast.WhileLoop {
	stmt := &ast.WhileLoop{Token: p.curToken}
	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if stmt.Condition == nil {
		return nil
	}
	if stmt.Body = p.expectBlock(); stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseDoWhileLoop() *ast.WhileLoop {
	stmt := &ast.WhileLoop{Token: p.curToken, DoFirst: true}
	if stmt.Body = p.expectBlock(); stmt.Body == nil {
		return nil
	}
	if !p.acceptAcrossNewline(token.WHILE) {
		p.errorf(p.peekToken, "expected while after do block, got %s", p.peekToken)
		return nil
	}
	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if stmt.Condition == nil {
		return nil
	}
	return stmt
}

// parseForLoop returns a ForLoop for range headers and a ForEach otherwise.
func (p *Parser) parseForLoop() ast.Statement {
	tok := p.curToken
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	variable := &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	if !p.expectPeek(token.IN) {
		return nil
	}
	p.nextToken()
	first := p.parseExpression(LOWEST)
	if first == nil {
		return nil
	}

	if !p.peekTokenIs(token.RANGE) && !p.peekTokenIs(token.UNTIL) {
		body := p.expectBlock()
		if body == nil {
			return nil
		}
		return &ast.ForEach{Token: tok, Variable: variable, Iterable: first, Body: body}
	}

	p.nextToken()
	rng := &ast.Range{Token: p.curToken, Lower: first, Inclusive: p.curTokenIs(token.RANGE)}
	p.nextToken()
	if rng.Upper = p.parseExpression(LOWEST); rng.Upper == nil {
		return nil
	}
	if p.peekTokenIs(token.STEP) {
		p.nextToken()
		p.nextToken()
		if rng.Step = p.parseExpression(LOWEST); rng.Step == nil {
			return nil
		}
	}
	body := p.expectBlock()
	if body == nil {
		return nil
	}
	return &ast.ForLoop{Token: tok, Variable: variable, Range: rng, Body: body}
}

func (p *Parser) parseReturn() ast.Statement {
	stmt := &ast.Return{Token: p.curToken}
	if p.stmtEnded() {
		return stmt
	}
	p.nextToken()
	if stmt.Value = p.parseExpression(LOWEST); stmt.Value == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseFreeMemory() ast.Statement {
	stmt := &ast.FreeMemory{Token: p.curToken}
	p.nextToken()
	if stmt.Value = p.parseExpression(LOWEST); stmt.Value == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseFunctionDeclaration() *ast.FunctionDeclaration {
	fn := &ast.FunctionDeclaration{Token: p.curToken, ReturnType: "Void"}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	fn.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	if !p.parseParameters(fn) {
		return nil
	}

	if p.peekTokenIs(token.COLON) {
		p.nextToken()
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		fn.ReturnType = p.curToken.Literal
	}

	if p.peekTokenIs(token.LBRACE) {
		p.nextToken()
		if fn.Body = p.parseBlock(); fn.Body == nil {
			return nil
		}
	}
	return fn
}

// parseParameters reads "T a, U b, ..." up to and including the closing ).
func (p *Parser) parseParameters(fn *ast.FunctionDeclaration) bool {
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return true
	}

	for {
		p.nextToken()
		if p.curTokenIs(token.ELLIPSIS) {
			fn.Variadic = true
			return p.expectPeek(token.RPAREN)
		}
		if !p.curTokenIs(token.IDENT) {
			p.errorf(p.curToken, "expected parameter type, got %s", p.curToken)
			return false
		}
		param := &ast.Parameter{Token: p.curToken, TypeName: p.curToken.Literal}
		if !p.expectPeek(token.IDENT) {
			return false
		}
		param.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
		fn.Parameters = append(fn.Parameters, param)

		if !p.peekTokenIs(token.COMMA) {
			return p.expectPeek(token.RPAREN)
		}
		p.nextToken()
	}
}
