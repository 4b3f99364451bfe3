// Package ast defines the Quill abstract syntax tree. Every node is a
// tagged variant of either Statement or Expression, following the
// marker-method idiom rather than a visitor hierarchy.
package ast

import "github.com/quillscript/compiler/pkg/compiler/token"

// Node is the root interface shared by statements and expressions.
type Node interface {
	Pos() token.Token
}

// Statement is a standalone unit of execution.
type Statement interface {
	Node
	stmtNode()
}

// Expr yields a value.
type Expr interface {
	Node
	exprNode()
}

// Program is the root node: an ordered sequence of statements.
type Program struct {
	Statements []Statement
}

func (p *Program) Pos() token.Token {
	if len(p.Statements) > 0 {
		return p.Statements[0].Pos()
	}
	return token.Token{}
}

// TypeDecl: type NAME = TypeAnn
type TypeDecl struct {
	Token token.Token
	Name  string
	Ann   TypeAnn
}

func (d *TypeDecl) Pos() token.Token { return d.Token }
func (d *TypeDecl) stmtNode()        {}

// InterfaceField is one member of an InterfaceDecl.
type InterfaceField struct {
	Name string
	Ann  TypeAnn
}

// InterfaceDecl: interface NAME { field: Ann, ... }
type InterfaceDecl struct {
	Token  token.Token
	Name   string
	Fields []InterfaceField
}

func (d *InterfaceDecl) Pos() token.Token { return d.Token }
func (d *InterfaceDecl) stmtNode()        {}

// VarDecl: (let|const) NAME (: Ann)? = Value
type VarDecl struct {
	Token    token.Token
	Name     string
	Const    bool
	Ann      TypeAnn // nil when no annotation
	Value    Expr
}

func (d *VarDecl) Pos() token.Token { return d.Token }
func (d *VarDecl) stmtNode()        {}

// Param is one function parameter. Arrow parameters are plain names
// (see Arrow.Params).
type Param struct {
	Name string
	Ann  TypeAnn // nil when unannotated
}

// FuncDecl: (async)? fn NAME(params) (-> Ann)? { body }
type FuncDecl struct {
	Token  token.Token
	Name   string
	Params []Param
	Ret    TypeAnn // nil when no declared return type
	Body   []Statement
	Async  bool
}

func (d *FuncDecl) Pos() token.Token { return d.Token }
func (d *FuncDecl) stmtNode()        {}

// Return: return (expr)?
type Return struct {
	Token token.Token
	Value Expr // nil for bare `return`
}

func (r *Return) Pos() token.Token { return r.Token }
func (r *Return) stmtNode()        {}

// If: if cond { then } (else { else })?
type If struct {
	Token     token.Token
	Condition Expr
	Then      []Statement
	Else      []Statement // nil when no else branch
}

func (s *If) Pos() token.Token { return s.Token }
func (s *If) stmtNode()        {}

// For: for (await)? VAR in iterable { body }
type For struct {
	Token    token.Token
	Var      string
	Iterable Expr
	Body     []Statement
	Await    bool
}

func (s *For) Pos() token.Token { return s.Token }
func (s *For) stmtNode()        {}

// ExprStmt wraps an expression used as a standalone statement.
type ExprStmt struct {
	Token token.Token
	Value Expr
}

func (s *ExprStmt) Pos() token.Token { return s.Token }
func (s *ExprStmt) stmtNode()        {}

// --- Expressions ---

// LitKind distinguishes the literal's payload type.
type LitKind uint8

const (
	LitNumber LitKind = iota
	LitString
	LitBool
	LitNull
)

// Literal: number | string | bool | null
type Literal struct {
	Token token.Token
	Kind  LitKind
	Num   float64
	Str   string
	Bool  bool
}

func (l *Literal) Pos() token.Token { return l.Token }
func (l *Literal) exprNode()        {}

// Identifier is a bare name reference.
type Identifier struct {
	Token token.Token
	Name  string
}

func (i *Identifier) Pos() token.Token { return i.Token }
func (i *Identifier) exprNode()        {}

// Binary: left OP right
type Binary struct {
	Token token.Token
	Op    string
	Left  Expr
	Right Expr
}

func (b *Binary) Pos() token.Token { return b.Token }
func (b *Binary) exprNode()        {}

// Unary: OP operand, for `!x` and `-x`. `await x` is a distinct Await node.
type Unary struct {
	Token   token.Token
	Op      string
	Operand Expr
}

func (u *Unary) Pos() token.Token { return u.Token }
func (u *Unary) exprNode()        {}

// Call: callee(args...)
type Call struct {
	Token  token.Token
	Callee Expr
	Args   []Expr
}

func (c *Call) Pos() token.Token { return c.Token }
func (c *Call) exprNode()        {}

// Member: object.property or object[property]. Property is always an
// expression node; Computed distinguishes bracket-style access from
// identifier-style access (spec's resolved open question).
type Member struct {
	Token    token.Token
	Object   Expr
	Property Expr
	Computed bool
}

func (m *Member) Pos() token.Token { return m.Token }
func (m *Member) exprNode()        {}

// Array: [elem, ...]
type Array struct {
	Token    token.Token
	Elements []Expr
}

func (a *Array) Pos() token.Token { return a.Token }
func (a *Array) exprNode()        {}

// ObjectField is one key/value pair of an Object literal, in source order.
type ObjectField struct {
	Key   string
	Value Expr
}

// Object: { key: value, ... }. InferredTypeName is set by the checker
// when the literal is the value of a VarDecl whose declared type
// resolves to a named object type, so the emitter can inject `_type`.
// Literals in any other position are left untagged.
type Object struct {
	Token             token.Token
	Fields            []ObjectField
	InferredTypeName  string
}

func (o *Object) Pos() token.Token { return o.Token }
func (o *Object) exprNode()        {}

// Conditional: test ? then : else
type Conditional struct {
	Token token.Token
	Test  Expr
	Then  Expr
	Else  Expr
}

func (c *Conditional) Pos() token.Token { return c.Token }
func (c *Conditional) exprNode()        {}

// Arrow: (params) => body, or async variants.
type Arrow struct {
	Token  token.Token
	Params []string
	Body   Expr
	Async  bool
}

func (a *Arrow) Pos() token.Token { return a.Token }
func (a *Arrow) exprNode()        {}

// Assignment: target = value
type Assignment struct {
	Token  token.Token
	Target Expr
	Value  Expr
}

func (a *Assignment) Pos() token.Token { return a.Token }
func (a *Assignment) exprNode()        {}

// Await: await argument
type Await struct {
	Token    token.Token
	Argument Expr
}

func (a *Await) Pos() token.Token { return a.Token }
func (a *Await) exprNode()        {}

// --- Type annotations (surface syntax of type positions) ---

// TypeAnn is the surface syntax written in a type position.
type TypeAnn interface {
	annNode()
}

// PrimitiveAnn: number | string | boolean | null
type PrimitiveAnn struct {
	Name string
}

func (PrimitiveAnn) annNode() {}

// ArrayAnn: Element[]
type ArrayAnn struct {
	Element TypeAnn
}

func (ArrayAnn) annNode() {}

// ObjectAnnField is one field of an inline object type annotation.
type ObjectAnnField struct {
	Name string
	Ann  TypeAnn
}

// ObjectAnn: { field: Ann, ... }
type ObjectAnn struct {
	Fields []ObjectAnnField
}

func (ObjectAnn) annNode() {}

// UnionAnn: A | B | ...
type UnionAnn struct {
	Alternatives []TypeAnn
}

func (UnionAnn) annNode() {}

// ReferenceAnn: a bare identifier naming a registered type.
type ReferenceAnn struct {
	Name string
}

func (ReferenceAnn) annNode() {}

// PromiseAnn: Promise<Resolve>
type PromiseAnn struct {
	Resolve TypeAnn
}

func (PromiseAnn) annNode() {}
