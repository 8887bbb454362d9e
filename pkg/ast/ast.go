package ast

import (
	"bytes"
	"fmt"
	"strings"
)

// Every node is owned by exactly one parent; the tree has no back-references
// and is never mutated after parsing.

type Node interface {
	String() string
}

// Item is a top-level declaration: a global variable, a function, or an
// anonymous enum block.
type Item interface {
	Node
	itemNode()
}

type Statement interface {
	Node
	statementNode()
}

type Expression interface {
	Node
	expressionNode()
}

type Program struct {
	Items []Item
}

func (p *Program) String() string {
	var out bytes.Buffer
	for _, it := range p.Items {
		out.WriteString(it.String())
		out.WriteString("\n")
	}
	return out.String()
}

// Types

type TypeKind int

const (
	Void TypeKind = iota
	Int
	Char
	Pointer
)

// Type is void, int, char, or pointer-to; pointer depth is unbounded via
// the recursive Elem link.
type Type struct {
	Kind TypeKind
	Elem *Type // element type when Kind == Pointer
}

var (
	VoidType = &Type{Kind: Void}
	IntType  = &Type{Kind: Int}
	CharType = &Type{Kind: Char}
)

func PointerTo(elem *Type) *Type {
	return &Type{Kind: Pointer, Elem: elem}
}

func (t *Type) String() string {
	switch t.Kind {
	case Void:
		return "void"
	case Int:
		return "int"
	case Char:
		return "char"
	case Pointer:
		return t.Elem.String() + "*"
	}
	return "?"
}

func (t *Type) IsPointer() bool { return t.Kind == Pointer }

func (t *Type) Equal(other *Type) bool {
	if t.Kind != other.Kind {
		return false
	}
	if t.Kind == Pointer {
		return t.Elem.Equal(other.Elem)
	}
	return true
}

// VarDecl is one declarator: a name bound to a type. Comma-separated
// declarator lists expand into multiple VarDecls at parse time.
type VarDecl struct {
	Name string
	Type *Type
}

func (v VarDecl) String() string {
	return v.Type.String() + " " + v.Name
}

// Items

type Global struct {
	Decl VarDecl
}

func (g *Global) itemNode() {}
func (g *Global) String() string {
	return g.Decl.String() + ";"
}

type EnumVariant struct {
	Name  string
	Value *int64 // literal initializer, nil when auto-assigned
}

type EnumDecl struct {
	Variants []EnumVariant
}

func (e *EnumDecl) itemNode() {}
func (e *EnumDecl) String() string {
	var out bytes.Buffer
	out.WriteString("enum { ")
	parts := make([]string, 0, len(e.Variants))
	for _, v := range e.Variants {
		if v.Value != nil {
			parts = append(parts, fmt.Sprintf("%s = %d", v.Name, *v.Value))
		} else {
			parts = append(parts, v.Name)
		}
	}
	out.WriteString(strings.Join(parts, ", "))
	out.WriteString(" };")
	return out.String()
}

type Function struct {
	ReturnType *Type
	Name       string
	Params     []VarDecl
	Locals     []VarDecl
	Body       *BlockStatement
}

func (f *Function) itemNode() {}
func (f *Function) String() string {
	var out bytes.Buffer
	out.WriteString(f.ReturnType.String())
	out.WriteString(" ")
	out.WriteString(f.Name)
	out.WriteString("(")
	params := make([]string, 0, len(f.Params))
	for _, p := range f.Params {
		params = append(params, p.String())
	}
	out.WriteString(strings.Join(params, ", "))
	out.WriteString(") ")
	out.WriteString(f.Body.String())
	return out.String()
}

// Statements

type BlockStatement struct {
	Statements []Statement
}

func (bs *BlockStatement) statementNode() {}
func (bs *BlockStatement) String() string {
	var out bytes.Buffer
	out.WriteString("{ ")
	for _, s := range bs.Statements {
		out.WriteString(s.String())
		out.WriteString(" ")
	}
	out.WriteString("}")
	return out.String()
}

type IfStatement struct {
	Condition Expression
	Then      Statement
	Else      Statement // nil when absent
}

func (is *IfStatement) statementNode() {}
func (is *IfStatement) String() string {
	var out bytes.Buffer
	out.WriteString("if (")
	out.WriteString(is.Condition.String())
	out.WriteString(") ")
	out.WriteString(is.Then.String())
	if is.Else != nil {
		out.WriteString(" else ")
		out.WriteString(is.Else.String())
	}
	return out.String()
}

type WhileStatement struct {
	Condition Expression
	Body      Statement
}

func (ws *WhileStatement) statementNode() {}
func (ws *WhileStatement) String() string {
	return "while (" + ws.Condition.String() + ") " + ws.Body.String()
}

type ReturnStatement struct {
	Value Expression // nil for a bare return
}

func (rs *ReturnStatement) statementNode() {}
func (rs *ReturnStatement) String() string {
	if rs.Value == nil {
		return "return;"
	}
	return "return " + rs.Value.String() + ";"
}

type ExpressionStatement struct {
	Expression Expression
}

func (es *ExpressionStatement) statementNode() {}
func (es *ExpressionStatement) String() string {
	return es.Expression.String() + ";"
}

type EmptyStatement struct{}

func (es *EmptyStatement) statementNode() {}
func (es *EmptyStatement) String() string { return ";" }

// Expressions

type IntegerLiteral struct {
	Value int64
}

func (il *IntegerLiteral) expressionNode() {}
func (il *IntegerLiteral) String() string  { return fmt.Sprintf("%d", il.Value) }

type StringLiteral struct {
	Value string
}

func (sl *StringLiteral) expressionNode() {}
func (sl *StringLiteral) String() string  { return fmt.Sprintf("%q", sl.Value) }

type Identifier struct {
	Value string
}

func (i *Identifier) expressionNode() {}
func (i *Identifier) String() string  { return i.Value }

type PrefixExpression struct {
	Operator string // ++ -- + - ! ~ * &
	Right    Expression
}

func (pe *PrefixExpression) expressionNode() {}
func (pe *PrefixExpression) String() string {
	return "(" + pe.Operator + pe.Right.String() + ")"
}

type PostfixExpression struct {
	Left     Expression
	Operator string // ++ --
}

func (pe *PostfixExpression) expressionNode() {}
func (pe *PostfixExpression) String() string {
	return "(" + pe.Left.String() + pe.Operator + ")"
}

type InfixExpression struct {
	Left     Expression
	Operator string // includes "="
	Right    Expression
}

func (ie *InfixExpression) expressionNode() {}
func (ie *InfixExpression) String() string {
	return "(" + ie.Left.String() + " " + ie.Operator + " " + ie.Right.String() + ")"
}

type TernaryExpression struct {
	Condition Expression
	Then      Expression
	Else      Expression
}

func (te *TernaryExpression) expressionNode() {}
func (te *TernaryExpression) String() string {
	return "(" + te.Condition.String() + " ? " + te.Then.String() + " : " + te.Else.String() + ")"
}

type CallExpression struct {
	Function  Expression
	Arguments []Expression
}

func (ce *CallExpression) expressionNode() {}
func (ce *CallExpression) String() string {
	args := make([]string, 0, len(ce.Arguments))
	for _, a := range ce.Arguments {
		args = append(args, a.String())
	}
	return ce.Function.String() + "(" + strings.Join(args, ", ") + ")"
}

type IndexExpression struct {
	Left  Expression
	Index Expression
}

func (ie *IndexExpression) expressionNode() {}
func (ie *IndexExpression) String() string {
	return ie.Left.String() + "[" + ie.Index.String() + "]"
}

type CastExpression struct {
	Type  *Type
	Right Expression
}

func (ce *CastExpression) expressionNode() {}
func (ce *CastExpression) String() string {
	return "((" + ce.Type.String() + ")" + ce.Right.String() + ")"
}

type SizeofExpression struct {
	Type *Type
}

func (se *SizeofExpression) expressionNode() {}
func (se *SizeofExpression) String() string {
	return "sizeof(" + se.Type.String() + ")"
}
