package ast

import (
	"bytes"
	"strings"

	"github.com/mlang-lang/mlang/token"
)

// The base Node interface
type Node interface {
	Tok() token.Token
	String() string
}

// All statement nodes implement this
type Statement interface {
	Node
	statementNode()
}

// All expression nodes implement this
type Expression interface {
	Node
	expressionNode()
}

type Program struct {
	Statements []Statement
}

func (p *Program) Tok() token.Token {
	if len(p.Statements) > 0 {
		return p.Statements[0].Tok()
	}
	return token.Token{Type: token.EOF, Line: 1, Column: 1}
}

func (p *Program) String() string {
	return joinStatements(p.Statements)
}

func joinStatements(stmts []Statement) string {
	parts := make([]string, 0, len(stmts))
	for _, s := range stmts {
		parts = append(parts, s.String())
	}
	return strings.Join(parts, "\n")
}

func printVec(a []Expression) string {
	parts := make([]string, 0, len(a))
	for _, e := range a {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, ", ")
}

// Statements

type ExpressionStatement struct {
	Token      token.Token // the first token of the expression
	Expression Expression
}

func (es *ExpressionStatement) statementNode()   {}
func (es *ExpressionStatement) Tok() token.Token { return es.Token }
func (es *ExpressionStatement) String() string   { return es.Expression.String() }

type Block struct {
	Token      token.Token // the { token
	Statements []Statement
}

func (b *Block) statementNode()   {}
func (b *Block) Tok() token.Token { return b.Token }
func (b *Block) String() string {
	if len(b.Statements) == 0 {
		return "{}"
	}
	return "{\n" + joinStatements(b.Statements) + "\n}"
}

// VariableDeclaration declares Name with TypeName, which may also be one of
// the inference markers var or val. Value is nil for a bare declaration.
type VariableDeclaration struct {
	Token    token.Token // the type name token
	TypeName string
	Name     *Identifier
	Value    Expression
}

func (vd *VariableDeclaration) statementNode()   {}
func (vd *VariableDeclaration) Tok() token.Token { return vd.Token }
func (vd *VariableDeclaration) String() string {
	out := vd.TypeName + " " + vd.Name.Value
	if vd.Value != nil {
		out += " = " + vd.Value.String()
	}
	return out
}

type Conditional struct {
	Token       token.Token // the if token
	Condition   Expression
	Consequence *Block
	Alternative *Block // nil when there is no else; else-if nests a Conditional here
}

func (c *Conditional) statementNode()   {}
func (c *Conditional) Tok() token.Token { return c.Token }
func (c *Conditional) String() string {
	out := "if " + c.Condition.String() + " " + c.Consequence.String()
	if c.Alternative != nil {
		out += " else " + c.Alternative.String()
	}
	return out
}

// WhileLoop covers both while and do-while. DoFirst enters the body before
// the first condition test.
type WhileLoop struct {
	Token     token.Token
	Condition Expression
	Body      *Block
	DoFirst   bool
}

func (wl *WhileLoop) statementNode()   {}
func (wl *WhileLoop) Tok() token.Token { return wl.Token }
func (wl *WhileLoop) String() string {
	if wl.DoFirst {
		return "do " + wl.Body.String() + " while " + wl.Condition.String()
	}
	return "while " + wl.Condition.String() + " " + wl.Body.String()
}

// Range is the a..b, a until b header of a for loop. Step is nil when absent.
type Range struct {
	Token     token.Token // the .. or until token
	Lower     Expression
	Upper     Expression
	Step      Expression
	Inclusive bool
}

func (r *Range) Tok() token.Token { return r.Token }
func (r *Range) String() string {
	op := " until "
	if r.Inclusive {
		op = ".."
	}
	out := r.Lower.String() + op + r.Upper.String()
	if r.Step != nil {
		out += " step " + r.Step.String()
	}
	return out
}

type ForLoop struct {
	Token    token.Token // the for token
	Variable *Identifier
	Range    *Range
	Body     *Block
}

func (fl *ForLoop) statementNode()   {}
func (fl *ForLoop) Tok() token.Token { return fl.Token }
func (fl *ForLoop) String() string {
	return "for " + fl.Variable.Value + " in " + fl.Range.String() + " " + fl.Body.String()
}

type ForEach struct {
	Token    token.Token // the for token
	Variable *Identifier
	Iterable Expression
	Body     *Block
}

func (fe *ForEach) statementNode()   {}
func (fe *ForEach) Tok() token.Token { return fe.Token }
func (fe *ForEach) String() string {
	return "for " + fe.Variable.Value + " in " + fe.Iterable.String() + " " + fe.Body.String()
}

type Break struct {
	Token token.Token
}

func (b *Break) statementNode()   {}
func (b *Break) Tok() token.Token { return b.Token }
func (b *Break) String() string   { return "break" }

type Return struct {
	Token token.Token
	Value Expression // nil for a bare return
}

func (r *Return) statementNode()   {}
func (r *Return) Tok() token.Token { return r.Token }
func (r *Return) String() string {
	if r.Value == nil {
		return "return"
	}
	return "return " + r.Value.String()
}

type Parameter struct {
	Token    token.Token // the type token
	TypeName string
	Name     *Identifier
}

func (p *Parameter) String() string { return p.TypeName + " " + p.Name.Value }

// FunctionDeclaration with a nil Body declares an external native function.
type FunctionDeclaration struct {
	Token      token.Token // the fn token
	Name       *Identifier
	Parameters []*Parameter
	Variadic   bool
	ReturnType string // "Void" when omitted
	Body       *Block
}

func (fd *FunctionDeclaration) statementNode()   {}
func (fd *FunctionDeclaration) Tok() token.Token { return fd.Token }
func (fd *FunctionDeclaration) String() string {
	var out bytes.Buffer
	params := make([]string, 0, len(fd.Parameters)+1)
	for _, p := range fd.Parameters {
		params = append(params, p.String())
	}
	if fd.Variadic {
		params = append(params, "...")
	}
	out.WriteString("fn " + fd.Name.Value + "(" + strings.Join(params, ", ") + "): " + fd.ReturnType)
	if fd.Body != nil {
		out.WriteString(" " + fd.Body.String())
	}
	return out.String()
}

type FreeMemory struct {
	Token token.Token // the rm token
	Value Expression
}

func (fm *FreeMemory) statementNode()   {}
func (fm *FreeMemory) Tok() token.Token { return fm.Token }
func (fm *FreeMemory) String() string   { return "rm " + fm.Value.String() }

// Expressions

type Identifier struct {
	Token token.Token // the token.IDENT token
	Value string
}

func (i *Identifier) expressionNode()  {}
func (i *Identifier) Tok() token.Token { return i.Token }
func (i *Identifier) String() string   { return i.Value }

type IntegerLiteral struct {
	Token token.Token
	Value int64
}

func (il *IntegerLiteral) expressionNode()  {}
func (il *IntegerLiteral) Tok() token.Token { return il.Token }
func (il *IntegerLiteral) String() string   { return il.Token.Literal }

type DoubleLiteral struct {
	Token token.Token
	Value float64
}

func (dl *DoubleLiteral) expressionNode()  {}
func (dl *DoubleLiteral) Tok() token.Token { return dl.Token }
func (dl *DoubleLiteral) String() string   { return dl.Token.Literal }

type BooleanLiteral struct {
	Token token.Token
	Value bool
}

func (bl *BooleanLiteral) expressionNode()  {}
func (bl *BooleanLiteral) Tok() token.Token { return bl.Token }
func (bl *BooleanLiteral) String() string   { return bl.Token.Literal }

type CharLiteral struct {
	Token token.Token
	Value byte
}

func (cl *CharLiteral) expressionNode()  {}
func (cl *CharLiteral) Tok() token.Token { return cl.Token }
func (cl *CharLiteral) String() string   { return "'" + string(rune(cl.Value)) + "'" }

type StringLiteral struct {
	Token token.Token
	Value string
}

func (sl *StringLiteral) expressionNode()  {}
func (sl *StringLiteral) Tok() token.Token { return sl.Token }
func (sl *StringLiteral) String() string   { return `"` + sl.Value + `"` }

// BinaryOp is an arithmetic or logical infix operation.
type BinaryOp struct {
	Token    token.Token // the operator token, e.g. +
	Left     Expression
	Operator string
	Right    Expression
}

func (bo *BinaryOp) expressionNode()  {}
func (bo *BinaryOp) Tok() token.Token { return bo.Token }
func (bo *BinaryOp) String() string {
	return "(" + bo.Left.String() + " " + bo.Operator + " " + bo.Right.String() + ")"
}

type Comparison struct {
	Token    token.Token
	Left     Expression
	Operator string
	Right    Expression
}

func (c *Comparison) expressionNode()  {}
func (c *Comparison) Tok() token.Token { return c.Token }
func (c *Comparison) String() string {
	return "(" + c.Left.String() + " " + c.Operator + " " + c.Right.String() + ")"
}

// UnaryOp is a prefix operator, or a postfix ++/-- when Postfix is set.
type UnaryOp struct {
	Token    token.Token
	Operator string
	Operand  Expression
	Postfix  bool
}

func (uo *UnaryOp) expressionNode()  {}
func (uo *UnaryOp) Tok() token.Token { return uo.Token }
func (uo *UnaryOp) String() string {
	if uo.Postfix {
		return "(" + uo.Operand.String() + uo.Operator + ")"
	}
	if uo.Operator == token.SYM_NOT {
		return "(not " + uo.Operand.String() + ")"
	}
	return "(" + uo.Operator + uo.Operand.String() + ")"
}

type Assignment struct {
	Token token.Token // the = token
	Name  *Identifier
	Value Expression
}

func (a *Assignment) expressionNode()  {}
func (a *Assignment) Tok() token.Token { return a.Token }
func (a *Assignment) String() string   { return a.Name.Value + " = " + a.Value.String() }

// Array allocates a zeroed array of ElemType with Size elements. It is built
// from the IntArray, DoubleArray and BoolArray key functions.
type Array struct {
	Token    token.Token
	ElemType string
	Size     Expression
}

func (a *Array) expressionNode()  {}
func (a *Array) Tok() token.Token { return a.Token }
func (a *Array) String() string   { return a.ElemType + "Array(" + a.Size.String() + ")" }

type ArrayAccess struct {
	Token token.Token // the [ token
	Array Expression
	Index Expression
}

func (aa *ArrayAccess) expressionNode()  {}
func (aa *ArrayAccess) Tok() token.Token { return aa.Token }
func (aa *ArrayAccess) String() string   { return aa.Array.String() + "[" + aa.Index.String() + "]" }

type ArrayAssignment struct {
	Token token.Token // the = token
	Array Expression
	Index Expression
	Value Expression
}

func (aa *ArrayAssignment) expressionNode()  {}
func (aa *ArrayAssignment) Tok() token.Token { return aa.Token }
func (aa *ArrayAssignment) String() string {
	return aa.Array.String() + "[" + aa.Index.String() + "] = " + aa.Value.String()
}

// Cast converts Value to the named primitive type.
type Cast struct {
	Token  token.Token
	Target string
	Value  Expression
}

func (c *Cast) expressionNode()  {}
func (c *Cast) Tok() token.Token { return c.Token }
func (c *Cast) String() string   { return "to" + c.Target + "(" + c.Value.String() + ")" }

type TernaryOp struct {
	Token       token.Token // the ? token
	Condition   Expression
	Consequence Expression
	Alternative Expression
}

func (to *TernaryOp) expressionNode()  {}
func (to *TernaryOp) Tok() token.Token { return to.Token }
func (to *TernaryOp) String() string {
	return "(" + to.Condition.String() + " ? " + to.Consequence.String() + " : " + to.Alternative.String() + ")"
}

type FunctionCall struct {
	Token     token.Token // the function name token
	Function  *Identifier
	Arguments []Expression
}

func (fc *FunctionCall) expressionNode()  {}
func (fc *FunctionCall) Tok() token.Token { return fc.Token }
func (fc *FunctionCall) String() string {
	return fc.Function.Value + "(" + printVec(fc.Arguments) + ")"
}

// StringJoin concatenates its string operands into a fresh buffer.
type StringJoin struct {
	Token token.Token
	Parts []Expression
}

func (sj *StringJoin) expressionNode()  {}
func (sj *StringJoin) Tok() token.Token { return sj.Token }
func (sj *StringJoin) String() string   { return "join(" + printVec(sj.Parts) + ")" }
