package names

import (
	"fmt"
	"strings"
)

type Wildcard int

const (
	NoWildcard Wildcard = iota
	Unbounded
	Extends
	Super
)

// TypeName is a structured type expression. Its String form is the
// canonical text used throughout the index and reflector.
type TypeName struct {
	Capture  bool
	Wildcard Wildcard
	// Name is the base name. It is empty for an unbounded wildcard; for a
	// bounded wildcard it is the bound's name.
	Name    string
	Args    []TypeName
	Dims    int
	VarArgs bool
}

func (t TypeName) String() string {
	var sb strings.Builder
	t.write(&sb)
	return sb.String()
}

func (t TypeName) write(sb *strings.Builder) {
	if t.Capture {
		sb.WriteString(CaptureOf)
	}
	switch t.Wildcard {
	case Unbounded:
		sb.WriteString("?")
		return
	case Extends:
		sb.WriteString("? extends ")
	case Super:
		sb.WriteString("? super ")
	}
	sb.WriteString(t.Name)
	if len(t.Args) > 0 {
		sb.WriteByte('<')
		for i, a := range t.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			a.write(sb)
		}
		sb.WriteByte('>')
	}
	for i := 0; i < t.Dims; i++ {
		sb.WriteString(Array)
	}
	if t.VarArgs {
		sb.WriteString(VarArgs)
	}
}

// Erasure returns the base name with array brackets.
func (t TypeName) Erasure() string {
	return t.Name + strings.Repeat(Array, t.Dims)
}

// ArgStrings renders each type argument.
func (t TypeName) ArgStrings() []string {
	out := make([]string, len(t.Args))
	for i, a := range t.Args {
		out[i] = a.String()
	}
	return out
}

// ParseTypeName parses the canonical text form back into a TypeName.
func ParseTypeName(s string) (TypeName, error) {
	p := &typeNameParser{s: s}
	t := p.parse()
	if p.err == nil && p.pos != len(p.s) {
		p.errorf("unexpected %q", p.s[p.pos:])
	}
	return t, p.err
}

type typeNameParser struct {
	s   string
	pos int
	err error
}

func (p *typeNameParser) errorf(format string, args ...any) {
	if p.err == nil {
		p.err = fmt.Errorf("type name %q at %d: %s", p.s, p.pos, fmt.Sprintf(format, args...))
	}
}

func (p *typeNameParser) consume(prefix string) bool {
	if strings.HasPrefix(p.s[p.pos:], prefix) {
		p.pos += len(prefix)
		return true
	}
	return false
}

func (p *typeNameParser) parse() TypeName {
	var t TypeName
	t.Capture = p.consume(CaptureOf)
	if p.consume("?") {
		switch {
		case p.consume(" extends "):
			t.Wildcard = Extends
		case p.consume(" super "):
			t.Wildcard = Super
		default:
			t.Wildcard = Unbounded
			return t
		}
	}
	start := p.pos
	for p.pos < len(p.s) && !strings.ContainsRune("<>[], ", rune(p.s[p.pos])) {
		if strings.HasPrefix(p.s[p.pos:], VarArgs) {
			break
		}
		p.pos++
	}
	t.Name = p.s[start:p.pos]
	if t.Name == "" {
		p.errorf("missing name")
		return t
	}
	if p.consume("<") {
		for p.err == nil {
			t.Args = append(t.Args, p.parse())
			if p.consume(">") {
				break
			}
			if !p.consume(",") {
				p.errorf("expected ',' or '>'")
				break
			}
			p.consume(" ")
		}
	}
	for p.consume(Array) {
		t.Dims++
	}
	t.VarArgs = p.consume(VarArgs)
	return t
}
