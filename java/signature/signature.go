// Package signature parses the generic signature grammar embedded in class
// files, and erased descriptors as its degenerate case, into names.TypeName
// expressions.
//
// Type variables are rendered with a mark: "%%T" for a variable declared by
// the enclosing class and "##T" for one declared by a generic method. A
// Scope may bind class variables to concrete types instead.
package signature

import (
	"fmt"
	"strings"

	"github.com/dhamidi/classlens/java/names"
)

type TypeParam struct {
	Name   string
	Bounds []names.TypeName
}

// Bound returns the first bound, java.lang.Object when none was declared.
func (tp TypeParam) Bound() names.TypeName {
	if len(tp.Bounds) == 0 {
		return names.TypeName{Name: names.Object}
	}
	return tp.Bounds[0]
}

type Class struct {
	TypeParams []TypeParam
	Super      names.TypeName
	Interfaces []names.TypeName
	Vars       []string
}

// Supers returns the superclass followed by the interfaces.
func (c *Class) Supers() []names.TypeName {
	out := make([]names.TypeName, 0, len(c.Interfaces)+1)
	if c.Super.Name != "" {
		out = append(out, c.Super)
	}
	return append(out, c.Interfaces...)
}

type Method struct {
	TypeParams []TypeParam
	Params     []names.TypeName
	Return     names.TypeName
	Throws     []names.TypeName
	Vars       []string
}

type Field struct {
	Type names.TypeName
	Vars []string
}

// Scope controls how type variables are rendered.
type Scope struct {
	// ClassVars are the variables declared by the enclosing class.
	ClassVars []string
	// TypeMap binds class variables to concrete types. A variable bound to
	// itself keeps its class mark.
	TypeMap map[string]string
}

func (s *Scope) isClassVar(name string) bool {
	if s == nil {
		return false
	}
	for _, v := range s.ClassVars {
		if v == name {
			return true
		}
	}
	return false
}

func (s *Scope) variable(name string) names.TypeName {
	if s != nil {
		if v, ok := s.TypeMap[name]; ok {
			if v == name {
				return names.TypeName{Name: names.ClassTypeVariableMark + name}
			}
			if t, err := names.ParseTypeName(v); err == nil {
				return t
			}
			return names.TypeName{Name: v}
		}
	}
	if s.isClassVar(name) {
		return names.TypeName{Name: names.ClassTypeVariableMark + name}
	}
	return names.TypeName{Name: names.FormalTypeVariableMark + name}
}

// SyntaxError reports where a signature stopped making sense. Parsers
// return it together with whatever was parsed before Offset.
type SyntaxError struct {
	Signature string
	Offset    int
	Msg       string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("signature %q at %d: %s", e.Signature, e.Offset, e.Msg)
}

// RenderTypeParams renders formal type parameter names as "<T, U>".
func RenderTypeParams(tps []TypeParam) string {
	if len(tps) == 0 {
		return ""
	}
	ns := make([]string, len(tps))
	for i, tp := range tps {
		ns[i] = tp.Name
	}
	return "<" + strings.Join(ns, ", ") + ">"
}

// ParseClass parses a class signature. The class's own formals are class
// variables while parsing the supertypes.
func ParseClass(sig string, scope *Scope) (*Class, error) {
	local := &Scope{}
	if scope != nil {
		local.ClassVars = append(local.ClassVars, scope.ClassVars...)
		local.TypeMap = scope.TypeMap
	}
	// bounds may refer to any formal, so collect the names first
	if strings.HasPrefix(sig, "<") {
		for _, tp := range newParser(sig, nil).typeParams() {
			local.ClassVars = append(local.ClassVars, tp.Name)
		}
	}

	p := newParser(sig, local)
	c := &Class{}
	if p.peek() == '<' {
		c.TypeParams = p.typeParams()
	}
	if p.err == nil && !p.done() {
		c.Super = p.classType()
	}
	for p.err == nil && !p.done() {
		c.Interfaces = append(c.Interfaces, p.classType())
	}
	c.Vars = p.vars
	return c, p.error()
}

// ParseMethod parses a method signature or an erased method descriptor.
func ParseMethod(sig string, scope *Scope) (*Method, error) {
	p := newParser(sig, scope)
	m := &Method{}
	if p.peek() == '<' {
		m.TypeParams = p.typeParams()
	}
	if !p.expect('(') {
		return m, p.error()
	}
	for p.err == nil && !p.done() && p.peek() != ')' {
		t := p.javaType()
		if p.err != nil {
			break
		}
		m.Params = append(m.Params, t)
	}
	if !p.expect(')') {
		m.Vars = p.vars
		return m, p.error()
	}
	if p.peek() == 'V' {
		p.pos++
		m.Return = names.TypeName{Name: "void"}
	} else {
		m.Return = p.javaType()
	}
	for p.err == nil && p.peek() == '^' {
		p.pos++
		m.Throws = append(m.Throws, p.referenceType())
	}
	if p.err == nil && !p.done() {
		p.fail("trailing input")
	}
	m.Vars = p.vars
	return m, p.error()
}

// ParseField parses a field signature or an erased field descriptor.
func ParseField(sig string, scope *Scope) (*Field, error) {
	p := newParser(sig, scope)
	f := &Field{Type: p.javaType()}
	if p.err == nil && !p.done() {
		p.fail("trailing input")
	}
	f.Vars = p.vars
	return f, p.error()
}

type parser struct {
	s     string
	pos   int
	scope *Scope
	vars  []string
	err   *SyntaxError
}

func newParser(s string, scope *Scope) *parser {
	return &parser{s: s, scope: scope}
}

func (p *parser) error() error {
	if p.err == nil {
		return nil
	}
	return p.err
}

func (p *parser) fail(msg string) {
	if p.err == nil {
		p.err = &SyntaxError{Signature: p.s, Offset: p.pos, Msg: msg}
	}
}

func (p *parser) done() bool { return p.pos >= len(p.s) }

func (p *parser) peek() byte {
	if p.done() {
		return 0
	}
	return p.s[p.pos]
}

func (p *parser) expect(c byte) bool {
	if p.peek() != c {
		p.fail(fmt.Sprintf("expected %q", c))
		return false
	}
	p.pos++
	return true
}

func (p *parser) identifier(stop string) string {
	start := p.pos
	for !p.done() && !strings.ContainsRune(stop, rune(p.s[p.pos])) {
		p.pos++
	}
	if p.pos == start {
		p.fail("expected identifier")
	}
	return p.s[start:p.pos]
}

func (p *parser) useVar(name string) {
	for _, v := range p.vars {
		if v == name {
			return
		}
	}
	p.vars = append(p.vars, name)
}

func (p *parser) typeParams() []TypeParam {
	p.expect('<')
	var tps []TypeParam
	for p.err == nil && p.peek() != '>' {
		tp := TypeParam{Name: p.identifier(":>")}
		// class bound, possibly empty
		if !p.expect(':') {
			break
		}
		if c := p.peek(); c == 'L' || c == 'T' || c == '[' {
			tp.Bounds = append(tp.Bounds, p.referenceType())
		}
		for p.err == nil && p.peek() == ':' {
			p.pos++
			tp.Bounds = append(tp.Bounds, p.referenceType())
		}
		tps = append(tps, tp)
	}
	p.expect('>')
	return tps
}

var baseTypes = map[byte]string{
	'B': "byte",
	'C': "char",
	'D': "double",
	'F': "float",
	'I': "int",
	'J': "long",
	'S': "short",
	'Z': "boolean",
}

func (p *parser) javaType() names.TypeName {
	if name, ok := baseTypes[p.peek()]; ok {
		p.pos++
		return names.TypeName{Name: name}
	}
	return p.referenceType()
}

func (p *parser) referenceType() names.TypeName {
	switch p.peek() {
	case 'L':
		return p.classType()
	case 'T':
		p.pos++
		name := p.identifier(";")
		p.expect(';')
		p.useVar(name)
		return p.scope.variable(name)
	case '[':
		p.pos++
		t := p.javaType()
		t.Dims++
		return t
	}
	p.fail("expected reference type")
	return names.TypeName{}
}

func (p *parser) classType() names.TypeName {
	if !p.expect('L') {
		return names.TypeName{}
	}
	t := names.TypeName{Name: names.ReplaceSlash(p.identifier("<.;"))}
	if p.peek() == '<' {
		t.Args = p.typeArgs()
	}
	for p.err == nil && p.peek() == '.' {
		p.pos++
		t.Name += names.InnerMark + p.identifier("<.;")
		t.Args = nil
		if p.peek() == '<' {
			t.Args = p.typeArgs()
		}
	}
	p.expect(';')
	return t
}

func (p *parser) typeArgs() []names.TypeName {
	p.expect('<')
	var args []names.TypeName
	for p.err == nil && !p.done() && p.peek() != '>' {
		switch p.peek() {
		case '*':
			p.pos++
			args = append(args, names.TypeName{Wildcard: names.Unbounded})
		case '+':
			p.pos++
			t := p.referenceType()
			t.Wildcard = names.Extends
			args = append(args, t)
		case '-':
			p.pos++
			t := p.referenceType()
			t.Wildcard = names.Super
			args = append(args, t)
		default:
			args = append(args, p.referenceType())
		}
	}
	p.expect('>')
	return args
}
