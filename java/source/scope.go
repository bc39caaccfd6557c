// Package source holds the symbol model of one parsed source file: a tree
// of line-bounded scopes with the variables declared in them and the
// member accesses recorded while an external walker traverses the file.
package source

import (
	"fmt"

	"github.com/dhamidi/classlens/java"
)

type Position struct {
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

type Range struct {
	Begin Position `json:"begin" yaml:"begin"`
	End   Position `json:"end" yaml:"end"`
}

func (r Range) ContainsLine(line int) bool {
	return r.Begin.Line <= line && line <= r.End.Line
}

func (r Range) ContainsColumn(column int) bool {
	return r.Begin.Column <= column && column <= r.End.Column
}

func before(a, b Position) bool {
	return a.Line < b.Line || (a.Line == b.Line && a.Column <= b.Column)
}

// Encloses reports whether o lies completely inside r.
func (r Range) Encloses(o Range) bool {
	return before(r.Begin, o.Begin) && before(o.End, r.End)
}

func (r Range) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", r.Begin.Line, r.Begin.Column, r.End.Line, r.End.Column)
}

// ScopeID is a handle into the scope arena of a File.
type ScopeID int

const NoScope ScopeID = -1

type ScopeKind int

const (
	TypeScope ScopeKind = iota
	MethodScope
	BlockScope
	ExpressionScope
)

func (k ScopeKind) String() string {
	switch k {
	case TypeScope:
		return "type"
	case MethodScope:
		return "method"
	case BlockScope:
		return "block"
	case ExpressionScope:
		return "expression"
	}
	return "unknown"
}

// Variable is a declaration of or a reference to a name.
type Variable struct {
	Name        string  `json:"name" yaml:"name"`
	Type        string  `json:"type" yaml:"type"`
	Scope       ScopeID `json:"scope" yaml:"scope"`
	Range       Range   `json:"range" yaml:"range"`
	Declaration bool    `json:"declaration,omitempty" yaml:"declaration,omitempty"`
}

type AccessKind int

const (
	MethodCall AccessKind = iota
	FieldAccess
	ConstructorCall
)

func (k AccessKind) String() string {
	switch k {
	case MethodCall:
		return "method"
	case FieldAccess:
		return "field"
	case ConstructorCall:
		return "constructor"
	}
	return "unknown"
}

// AccessRecord is one method call, field access or constructor call.
// ReturnType is filled once the access has been resolved.
type AccessRecord struct {
	Kind AccessKind `json:"kind" yaml:"kind"`
	// Qualifier is the source text left of the member name, empty for an
	// unqualified access.
	Qualifier      string `json:"qualifier,omitempty" yaml:"qualifier,omitempty"`
	Name           string `json:"name" yaml:"name"`
	Range          Range  `json:"range" yaml:"range"`
	NameRange      Range  `json:"nameRange" yaml:"nameRange"`
	DeclaringClass string `json:"declaringClass,omitempty" yaml:"declaringClass,omitempty"`
	ReturnType     string `json:"returnType,omitempty" yaml:"returnType,omitempty"`
}

// Type carries what a type scope knows about its class.
type Type struct {
	Package     string
	FQCN        string
	IsInterface bool
	Extends     []string
	Implements  []string
	// TypeParameters are the declared formals; Bounds maps each to its
	// resolved upper bound.
	TypeParameters []string
	Bounds         map[string]string
	Fields         map[string]*Variable
	Members        []*java.Member
}

// Supers returns the extends list followed by the implements list.
func (t *Type) Supers() []string {
	out := make([]string, 0, len(t.Extends)+len(t.Implements))
	out = append(out, t.Extends...)
	return append(out, t.Implements...)
}

type Scope struct {
	ID        ScopeID
	Kind      ScopeKind
	Name      string
	Range     Range
	NameRange Range
	Parent    ScopeID
	// Children are the nested type, method and block scopes in opening
	// order. Expressions are kept apart.
	Children    []ScopeID
	Expressions []ScopeID
	Variables   []*Variable
	Accesses    []*AccessRecord
	// Lambda is set on a lambda body and every scope nested in it.
	Lambda bool
	// Type is set on type scopes only.
	Type *Type

	expressionReturn *AccessRecord
}

func (s *Scope) declare(v *Variable) {
	v.Scope = s.ID
	s.Variables = append(s.Variables, v)
}

// AddAccess records a. On an expression scope, an access ending right
// before the expression does becomes its return.
func (s *Scope) AddAccess(a *AccessRecord) {
	if s.Kind == ExpressionScope {
		end := a.Range.End
		if end.Line == s.Range.End.Line && end.Column+1 == s.Range.End.Column {
			s.expressionReturn = a
		}
	}
	s.Accesses = append(s.Accesses, a)
}

// Declarations returns the variables declared in s, first declaration of
// each name only.
func (s *Scope) Declarations() []*Variable {
	var out []*Variable
	seen := map[string]bool{}
	for _, v := range s.Variables {
		if v.Declaration && !seen[v.Name] {
			seen[v.Name] = true
			out = append(out, v)
		}
	}
	return out
}

// ExpressionReturn is the access whose value the whole expression
// statement yields. Statements that declare a variable have none.
func (s *Scope) ExpressionReturn() (*AccessRecord, bool) {
	if s.Kind != ExpressionScope || s.expressionReturn == nil {
		return nil, false
	}
	for _, v := range s.Variables {
		if v.Declaration {
			return nil, false
		}
	}
	return s.expressionReturn, true
}
