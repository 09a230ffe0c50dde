package compiler

import (
	"github.com/mlang-lang/mlang/ast"
	"github.com/mlang-lang/mlang/token"
	"github.com/mlang-lang/mlang/types"
	"tinygo.org/x/go-llvm"
)

// Variable is a named storage slot. Storage and Type stay nil for a var or
// val declaration until its first assignment.
type Variable struct {
	Name    string
	Storage llvm.Value // alloca or module global
	Type    types.Type
	Global  bool
	Final   bool // declared with val
	Bound   bool // a val that has received its one assignment
}

func (v *Variable) unbind() {
	v.Storage = llvm.Value{}
	v.Type = nil
	v.Bound = false
}

// reserve gives v storage of type t: a private zeroed global at global
// scope and an entry-block alloca otherwise.
func (c *Compiler) reserve(v *Variable, t types.Type) {
	v.Type = t
	llvmType := c.mapToLLVMType(t)
	if v.Global {
		global := llvm.AddGlobal(c.Module, llvmType, "mlang.g."+v.Name)
		global.SetLinkage(llvm.PrivateLinkage)
		global.SetInitializer(c.zeroValue(t))
		setInstAlignment(global, t)
		v.Storage = global
		return
	}
	v.Storage = c.createEntryBlockAlloca(llvmType, v.Name)
}

// allocate reserves storage for a declared type and zeroes a local at the
// declaration, so a declaration inside a loop starts from zero each time.
func (c *Compiler) allocate(v *Variable, t types.Type) {
	c.reserve(v, t)
	if !v.Global {
		c.createStore(c.zeroValue(t), v.Storage, t)
	}
}

// bindInferred reserves storage for a var or val on its first assignment.
// The first assignment may sit on only one path, so a local is zeroed in
// the entry block where every path sees it.
func (c *Compiler) bindInferred(v *Variable, t types.Type) {
	c.reserve(v, t)
	if !v.Global {
		c.entryStore(c.zeroValue(t), v.Storage, t)
	}
}

func (c *Compiler) compileVariableDeclaration(decl *ast.VariableDeclaration) {
	name := decl.Name.Value
	t, ok := types.Resolve(decl.TypeName)
	if !ok {
		c.errorf(decl.Token, "undefined data type '%s'", decl.TypeName)
		return
	}
	if t.Kind() == types.VoidKind {
		c.errorf(decl.Token, "variable '%s' cannot have type Void", name)
		return
	}
	if types.IsReservedTypeName(name) {
		c.errorf(decl.Name.Token, "'%s' is a reserved type name", name)
		return
	}

	// The initializer is compiled before the name exists, so it can read a
	// shadowed outer variable of the same name.
	var value *Symbol
	if decl.Value != nil {
		value = c.compileValue(decl.Value)
	}

	v := &Variable{
		Name:   name,
		Global: CurrentKind(c.Scopes) == GlobalScope,
	}
	if inf, ok := t.(types.Infer); ok {
		v.Final = inf.Final
	} else {
		c.allocate(v, t)
	}
	if !Declare(c.Scopes, name, decl.TypeName, v) {
		c.errorf(decl.Name.Token, "variable '%s' already exists", name)
		return
	}

	if value != nil {
		c.assign(decl.Name.Token, v, value)
	}
}

func (c *Compiler) compileIdentifier(ident *ast.Identifier) *Symbol {
	v, ok := Lookup(c.Scopes, ident.Value, false)
	if !ok {
		c.errorf(ident.Token, "undefined variable '%s'", ident.Value)
		return nil
	}
	if v.Type == nil {
		c.errorf(ident.Token, "variable '%s' is used before assignment", ident.Value)
		return nil
	}
	return &Symbol{
		Val:  c.createLoad(v.Storage, v.Type, ident.Value),
		Type: v.Type,
	}
}

func (c *Compiler) compileAssignment(a *ast.Assignment) *Symbol {
	value := c.compileValue(a.Value)
	if value == nil {
		return nil
	}
	v, ok := Lookup(c.Scopes, a.Name.Value, false)
	if !ok {
		c.errorf(a.Name.Token, "undefined variable '%s'", a.Name.Value)
		return nil
	}
	return c.assign(a.Token, v, value)
}

// assign stores value into v, binding the storage and type of an inferred
// declaration on its first assignment.
func (c *Compiler) assign(tok token.Token, v *Variable, value *Symbol) *Symbol {
	if v.Final && v.Bound {
		c.errorf(tok, "final val cannot be reassigned")
		return nil
	}
	if v.Type == nil {
		c.bindInferred(v, value.Type)
		if c.dead > 0 {
			c.deadBindings = append(c.deadBindings, v)
		}
	} else if !types.TypeEqual(v.Type, value.Type) {
		c.incompatible(tok, v.Type, value.Type)
		return nil
	}
	if v.Final {
		v.Bound = true
	}
	c.createStore(value.Val, v.Storage, v.Type)
	return value
}
