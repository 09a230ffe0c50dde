package compiler

import (
	"github.com/mlang-lang/mlang/ast"
	"github.com/mlang-lang/mlang/token"
	"github.com/mlang-lang/mlang/types"
	"tinygo.org/x/go-llvm"
)

// category groups the value types operators dispatch on.
type category int

const (
	catNone category = iota
	catFloat
	catInt
	catChar
	catBool
	catString
)

func categoryOf(t types.Type) category {
	switch t := t.(type) {
	case types.Float:
		return catFloat
	case types.Int:
		switch t.Width {
		case 1:
			return catBool
		case 8:
			return catChar
		}
		return catInt
	case types.Str:
		return catString
	}
	return catNone
}

// opKey is used as the key for operator instruction lookup.
type opKey struct {
	Operator string
	Category category
}

var binaryOps = map[opKey]llvm.Opcode{
	// --- Arithmetic Operators ---
	{token.SYM_ADD, catFloat}: llvm.FAdd,
	{token.SYM_SUB, catFloat}: llvm.FSub,
	{token.SYM_MUL, catFloat}: llvm.FMul,
	{token.SYM_QUO, catFloat}: llvm.FDiv,

	{token.SYM_ADD, catInt}: llvm.Add,
	{token.SYM_SUB, catInt}: llvm.Sub,
	{token.SYM_MUL, catInt}: llvm.Mul,
	{token.SYM_QUO, catInt}: llvm.SDiv,

	{token.SYM_ADD, catChar}: llvm.Add,
	{token.SYM_SUB, catChar}: llvm.Sub,
	{token.SYM_MUL, catChar}: llvm.Mul,
	{token.SYM_QUO, catChar}: llvm.SDiv,

	// --- Logical Operators ---
	// both operands are always evaluated
	{token.SYM_AND, catBool}: llvm.And,
	{token.SYM_OR, catBool}:  llvm.Or,
}

var intPredicates = map[string]llvm.IntPredicate{
	token.SYM_EQL: llvm.IntEQ,
	token.SYM_NEQ: llvm.IntNE,
	token.SYM_LSS: llvm.IntSLT,
	token.SYM_LEQ: llvm.IntSLE,
	token.SYM_GTR: llvm.IntSGT,
	token.SYM_GEQ: llvm.IntSGE,
}

var floatPredicates = map[string]llvm.FloatPredicate{
	token.SYM_EQL: llvm.FloatOEQ,
	token.SYM_NEQ: llvm.FloatONE,
	token.SYM_LSS: llvm.FloatOLT,
	token.SYM_LEQ: llvm.FloatOLE,
	token.SYM_GTR: llvm.FloatOGT,
	token.SYM_GEQ: llvm.FloatOGE,
}

// compileOperands compiles both sides of a binary operator and requires
// their types to match exactly.
func (c *Compiler) compileOperands(tok token.Token, left, right ast.Expression) (*Symbol, *Symbol, bool) {
	l := c.compileValue(left)
	r := c.compileValue(right)
	if l == nil || r == nil {
		return nil, nil, false
	}
	if !types.TypeEqual(l.Type, r.Type) {
		c.incompatible(tok, l.Type, r.Type)
		return nil, nil, false
	}
	return l, r, true
}

func (c *Compiler) compileBinaryOp(expr *ast.BinaryOp) *Symbol {
	l, r, ok := c.compileOperands(expr.Token, expr.Left, expr.Right)
	if !ok {
		return nil
	}
	return c.binaryOp(expr.Token, expr.Operator, l, r)
}

func (c *Compiler) binaryOp(tok token.Token, op string, l, r *Symbol) *Symbol {
	opcode, ok := binaryOps[opKey{op, categoryOf(l.Type)}]
	if !ok {
		c.errorf(tok, "invalid operator '%s' for type %s", op, l.Type)
		return nil
	}
	return &Symbol{
		Val:  c.builder.CreateBinOp(opcode, l.Val, r.Val, "op_tmp"),
		Type: l.Type,
	}
}

func (c *Compiler) compileComparison(expr *ast.Comparison) *Symbol {
	l, r, ok := c.compileOperands(expr.Token, expr.Left, expr.Right)
	if !ok {
		return nil
	}

	op := expr.Operator
	var val llvm.Value
	switch categoryOf(l.Type) {
	case catFloat:
		val = c.builder.CreateFCmp(floatPredicates[op], l.Val, r.Val, "cmp_tmp")
	case catInt, catChar:
		val = c.builder.CreateICmp(intPredicates[op], l.Val, r.Val, "cmp_tmp")
	case catBool:
		if op != token.SYM_EQL && op != token.SYM_NEQ {
			c.errorf(expr.Token, "invalid operator '%s' for type %s", op, l.Type)
			return nil
		}
		val = c.builder.CreateICmp(intPredicates[op], l.Val, r.Val, "cmp_tmp")
	case catString:
		fnTy, fn := c.GetCFunc(SCOMPARE)
		ord := c.builder.CreateCall(fnTy, fn, []llvm.Value{l.Val, r.Val}, "scmp")
		val = c.builder.CreateICmp(intPredicates[op], ord, c.ConstI64(0), "cmp_tmp")
	default:
		c.errorf(expr.Token, "invalid operator '%s' for type %s", op, l.Type)
		return nil
	}
	return &Symbol{Val: val, Type: types.I1}
}

func (c *Compiler) compileUnaryOp(expr *ast.UnaryOp) *Symbol {
	switch expr.Operator {
	case token.SYM_INC, token.SYM_DEC:
		return c.compileIncDec(expr)
	}

	operand := c.compileValue(expr.Operand)
	if operand == nil {
		return nil
	}
	cat := categoryOf(operand.Type)

	switch {
	case expr.Operator == token.SYM_NOT && cat == catBool:
		return &Symbol{Val: c.builder.CreateXor(operand.Val, c.ConstBool(true), "not_tmp"), Type: operand.Type}
	case expr.Operator == token.SYM_ADD && (cat == catInt || cat == catFloat):
		return operand
	case expr.Operator == token.SYM_SUB && cat == catInt:
		return &Symbol{Val: c.builder.CreateSub(c.ConstI64(0), operand.Val, "neg_tmp"), Type: operand.Type}
	case expr.Operator == token.SYM_SUB && cat == catFloat:
		return &Symbol{Val: c.builder.CreateFNeg(operand.Val, "fneg_tmp"), Type: operand.Type}
	}
	c.errorf(expr.Token, "invalid operator '%s' for type %s", expr.Operator, operand.Type)
	return nil
}

// compileIncDec lowers ++ and -- to an assignment of x+1 or x-1. Postfix
// forms yield the value from before the assignment.
func (c *Compiler) compileIncDec(expr *ast.UnaryOp) *Symbol {
	ident, ok := expr.Operand.(*ast.Identifier)
	if !ok {
		c.errorf(expr.Token, "invalid operand for '%s': %s is not assignable", expr.Operator, expr.Operand)
		return nil
	}
	old := c.compileIdentifier(ident)
	if old == nil {
		return nil
	}

	var one llvm.Value
	switch categoryOf(old.Type) {
	case catInt:
		one = c.ConstI64(1)
	case catFloat:
		one = c.ConstF64(1)
	default:
		c.errorf(expr.Token, "invalid operator '%s' for type %s", expr.Operator, old.Type)
		return nil
	}

	op := token.SYM_ADD
	if expr.Operator == token.SYM_DEC {
		op = token.SYM_SUB
	}
	next := c.binaryOp(expr.Token, op, old, &Symbol{Val: one, Type: old.Type})

	v, _ := Lookup(c.Scopes, ident.Value, false)
	res := c.assign(expr.Token, v, next)
	if res == nil || !expr.Postfix {
		return res
	}
	return old
}
