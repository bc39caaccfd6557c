// Package analyzer infers the static type of source expressions. A walker
// over a parsed file builds Expr trees and asks for their type while it
// fills the file's symbol model; method calls and field accesses found on
// the way are recorded in the current scope.
package analyzer

import (
	"strings"

	"github.com/dhamidi/classlens/java/source"
)

// Expr is one expression node. The set of node types is closed.
type Expr interface {
	Range() source.Range
	exprNode()
}

// Span positions a node in the file. Every node embeds it.
type Span struct {
	Pos source.Range
}

func (s Span) Range() source.Range { return s.Pos }
func (Span) exprNode()             {}

type LiteralKind int

const (
	IntLiteral LiteralKind = iota
	LongLiteral
	FloatLiteral
	DoubleLiteral
	CharLiteral
	BooleanLiteral
	StringLiteral
	NullLiteral
)

type Literal struct {
	Span
	Kind  LiteralKind
	Value string
}

type Binary struct {
	Span
	Op          string
	Left, Right Expr
}

type Conditional struct {
	Span
	Cond, Then, Else Expr
}

type Unary struct {
	Span
	Op      string
	Operand Expr
}

type Assign struct {
	Span
	Op            string
	Target, Value Expr
}

type InstanceOf struct {
	Span
	Operand Expr
	Type    string
}

type Name struct {
	Span
	Name string
}

// FieldAccess is Qualifier.Name. A nil Qualifier means this.
type FieldAccess struct {
	Span
	Qualifier Expr
	Name      string
	NameRange source.Range
}

// MethodCall is Qualifier.Name(Args). A nil Qualifier means this or a
// statically imported method.
type MethodCall struct {
	Span
	Qualifier Expr
	Name      string
	NameRange source.Range
	TypeArgs  []string
	Args      []Expr
}

// This is "this" or "Outer.this".
type This struct {
	Span
	Outer string
}

type Super struct {
	Span
}

// NewExpr is an instance creation. Type may use the diamond, "Foo<>".
type NewExpr struct {
	Span
	Type string
	Args []Expr
}

type Cast struct {
	Span
	Type    string
	Operand Expr
}

type ArrayAccess struct {
	Span
	Array, Index Expr
}

// ArrayCreation is "new T[n]..." or an initializer; Type carries the
// brackets, e.g. "int[][]".
type ArrayCreation struct {
	Span
	Type string
	Dims []Expr
}

// ClassLiteral is "Type.class".
type ClassLiteral struct {
	Span
	Type string
}

// TypeExpr is a type in expression position, such as the left side of a
// method reference.
type TypeExpr struct {
	Span
	Type string
}

// MethodRef is Qualifier::Name. Name is "new" for constructor references.
type MethodRef struct {
	Span
	Qualifier Expr
	Name      string
}

// LambdaParam is one lambda parameter. Type is empty when it is implicit.
type LambdaParam struct {
	Name  string
	Type  string
	Range source.Range
}

// Lambda is an arrow function. An expression body sets Body. A block body
// sets Block to the block's range and Returns to its return values.
type Lambda struct {
	Span
	Params  []LambdaParam
	Body    Expr
	Block   source.Range
	Returns []Expr
}

type Enclosed struct {
	Span
	Inner Expr
}

// Text renders e the way it would read in source, enough to name the
// qualifier of an access.
func Text(e Expr) string {
	var sb strings.Builder
	write(&sb, e)
	return sb.String()
}

func write(sb *strings.Builder, e Expr) {
	switch x := e.(type) {
	case nil:
	case *Literal:
		sb.WriteString(x.Value)
	case *Binary:
		write(sb, x.Left)
		sb.WriteString(" " + x.Op + " ")
		write(sb, x.Right)
	case *Conditional:
		write(sb, x.Cond)
		sb.WriteString(" ? ")
		write(sb, x.Then)
		sb.WriteString(" : ")
		write(sb, x.Else)
	case *Unary:
		if x.Op == "++post" || x.Op == "--post" {
			write(sb, x.Operand)
			sb.WriteString(x.Op[:2])
			return
		}
		sb.WriteString(x.Op)
		write(sb, x.Operand)
	case *Assign:
		write(sb, x.Target)
		op := x.Op
		if op == "" {
			op = "="
		}
		sb.WriteString(" " + op + " ")
		write(sb, x.Value)
	case *InstanceOf:
		write(sb, x.Operand)
		sb.WriteString(" instanceof " + x.Type)
	case *Name:
		sb.WriteString(x.Name)
	case *FieldAccess:
		if x.Qualifier != nil {
			write(sb, x.Qualifier)
			sb.WriteByte('.')
		}
		sb.WriteString(x.Name)
	case *MethodCall:
		if x.Qualifier != nil {
			write(sb, x.Qualifier)
			sb.WriteByte('.')
		}
		sb.WriteString(x.Name)
		writeArgs(sb, x.Args)
	case *This:
		if x.Outer != "" {
			sb.WriteString(x.Outer + ".")
		}
		sb.WriteString("this")
	case *Super:
		sb.WriteString("super")
	case *NewExpr:
		sb.WriteString("new " + x.Type)
		writeArgs(sb, x.Args)
	case *Cast:
		sb.WriteString("(" + x.Type + ") ")
		write(sb, x.Operand)
	case *ArrayAccess:
		write(sb, x.Array)
		sb.WriteByte('[')
		write(sb, x.Index)
		sb.WriteByte(']')
	case *ArrayCreation:
		sb.WriteString("new " + x.Type)
	case *ClassLiteral:
		sb.WriteString(x.Type + ".class")
	case *TypeExpr:
		sb.WriteString(x.Type)
	case *MethodRef:
		write(sb, x.Qualifier)
		sb.WriteString("::" + x.Name)
	case *Lambda:
		sb.WriteByte('(')
		for i, p := range x.Params {
			if i > 0 {
				sb.WriteString(", ")
			}
			if p.Type != "" {
				sb.WriteString(p.Type + " ")
			}
			sb.WriteString(p.Name)
		}
		sb.WriteString(") -> ")
		if x.Body != nil {
			write(sb, x.Body)
		} else {
			sb.WriteString("{...}")
		}
	case *Enclosed:
		sb.WriteByte('(')
		write(sb, x.Inner)
		sb.WriteByte(')')
	}
}

func writeArgs(sb *strings.Builder, args []Expr) {
	sb.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			sb.WriteString(", ")
		}
		write(sb, a)
	}
	sb.WriteByte(')')
}
