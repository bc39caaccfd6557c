package java

import (
	"maps"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/dhamidi/classlens/java/names"
)

type MemberKind string

const (
	FieldKind       MemberKind = "FIELD"
	MethodKind      MemberKind = "METHOD"
	ConstructorKind MemberKind = "CONSTRUCTOR"
)

type Parameter struct {
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type" yaml:"type"`
	VarArgs bool   `json:"varargs,omitempty" yaml:"varargs,omitempty"`
}

// Member is a field, method or constructor as declared in a class file.
// Types may contain "%%T" and "##T" variable marks; a per-copy type map
// binds them when rendering.
type Member struct {
	DeclaringClass string      `json:"declaringClass" yaml:"declaringClass"`
	Kind           MemberKind  `json:"kind" yaml:"kind"`
	Modifier       string      `json:"modifier" yaml:"modifier"`
	Name           string      `json:"name" yaml:"name"`
	Parameters     []Parameter `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	// RawReturnType is the method return type or the field type.
	RawReturnType string   `json:"returnType" yaml:"returnType"`
	Throws        []string `json:"throws,omitempty" yaml:"throws,omitempty"`
	FormalType    string   `json:"formalType,omitempty" yaml:"formalType,omitempty"`
	// TypeParameters names every type variable the member refers to.
	TypeParameters []string `json:"typeParameters,omitempty" yaml:"typeParameters,omitempty"`
	HasDefault     bool     `json:"hasDefault,omitempty" yaml:"hasDefault,omitempty"`

	typeMap map[string]string
}

var trimTypeArgs = regexp.MustCompile(`<[\w ?,]+>`)

func (m *Member) hasModifier(mod string) bool {
	for _, f := range strings.Fields(m.Modifier) {
		if f == mod {
			return true
		}
	}
	return false
}

func (m *Member) IsStatic() bool   { return m.hasModifier("static") }
func (m *Member) IsAbstract() bool { return m.hasModifier("abstract") }
func (m *Member) IsPrivate() bool  { return m.hasModifier("private") }
func (m *Member) IsPublic() bool   { return m.hasModifier("public") }
func (m *Member) IsDefault() bool  { return m.hasModifier("default") }

func (m *Member) IsMethod() bool      { return m.Kind == MethodKind }
func (m *Member) IsField() bool       { return m.Kind == FieldKind }
func (m *Member) IsConstructor() bool { return m.Kind == ConstructorKind }

func (m *Member) HasVarArgs() bool {
	return len(m.Parameters) > 0 && m.Parameters[len(m.Parameters)-1].VarArgs
}

func (m *Member) HasTypeParameters() bool {
	return len(m.TypeParameters) > 0
}

// PutTypeParameter binds variable t to real for this copy. Variables the
// member does not refer to are ignored.
func (m *Member) PutTypeParameter(t, real string) {
	if !slices.Contains(m.TypeParameters, t) {
		return
	}
	if m.typeMap == nil {
		m.typeMap = map[string]string{}
	}
	m.typeMap[t] = real
}

func (m *Member) ClearTypeParameterMap() {
	m.typeMap = nil
}

func (m *Member) TypeParameterMap() map[string]string {
	return maps.Clone(m.typeMap)
}

// render applies the type map to s. Unbound class variables fall back to
// java.lang.Object and formal marks are dropped.
func (m *Member) render(s string) string {
	if !m.HasTypeParameters() {
		return s
	}
	formal := m.FormalType != ""
	replace := map[string]string{}
	if len(m.typeMap) > 0 {
		for k, v := range m.typeMap {
			replace[names.ClassTypeVariableMark+k] = v
			if formal {
				replace[names.FormalTypeVariableMark+k] = v
			}
		}
		s = names.ReplaceFromMap(s, replace)
	} else {
		for _, tp := range m.TypeParameters {
			replace[names.ClassTypeVariableMark+tp] = names.Object
			if formal {
				replace[names.FormalTypeVariableMark+tp] = names.Object
			}
		}
		s = names.ReplaceFromMap(s, replace)
		if !m.IsStatic() {
			s = trimTypeArgs.ReplaceAllString(s, "")
		}
	}
	return strings.TrimSpace(strings.ReplaceAll(s, names.FormalTypeVariableMark, ""))
}

// ReturnType renders the return or field type with this copy's bindings.
func (m *Member) ReturnType() string {
	return m.render(m.RawReturnType)
}

// ParameterTypes renders each parameter type with this copy's bindings.
func (m *Member) ParameterTypes() []string {
	out := make([]string, len(m.Parameters))
	for i, p := range m.Parameters {
		out[i] = m.render(p.Type)
	}
	return out
}

// RawParameterTypes returns the declared parameter types with marks.
func (m *Member) RawParameterTypes() []string {
	out := make([]string, len(m.Parameters))
	for i, p := range m.Parameters {
		out[i] = p.Type
	}
	return out
}

// Signature identifies an overload: "name::[type1, type2]" with type
// arguments removed.
func (m *Member) Signature() string {
	ps := make([]string, len(m.Parameters))
	for i, p := range m.Parameters {
		ps[i] = names.RemoveTypeParameter(p.Type)
	}
	return m.Name + "::[" + strings.Join(ps, ", ") + "]"
}

func (m *Member) parameterList() string {
	ps := make([]string, len(m.Parameters))
	for i, p := range m.Parameters {
		if p.VarArgs {
			ps[i] = strings.TrimSuffix(names.RemoveTypeAndArray(p.Type), names.VarArgs) + names.VarArgs + " " + p.Name
			continue
		}
		ps[i] = names.SimpleName(p.Type) + " " + p.Name
	}
	return strings.Join(ps, ", ")
}

// DisplayDeclaration is the short form shown in completion lists, e.g.
// "String substring(int beginIndex)".
func (m *Member) DisplayDeclaration() string {
	var s string
	switch m.Kind {
	case FieldKind:
		s = names.SimpleName(m.RawReturnType) + " " + m.Name
	case ConstructorKind:
		s = names.SimpleName(m.DeclaringClass) + "(" + m.parameterList() + ")"
	default:
		s = names.SimpleName(m.RawReturnType) + " " + m.Name + "(" + m.parameterList() + ")"
	}
	return names.ReplaceInnerMark(m.render(s))
}

// Declaration is the full form including modifiers, formal type
// parameters and thrown exceptions.
func (m *Member) Declaration() string {
	parts := []string{}
	if m.Modifier != "" {
		parts = append(parts, m.Modifier)
	}
	if m.FormalType != "" {
		parts = append(parts, m.FormalType)
	}
	parts = append(parts, m.DisplayDeclaration())
	if len(m.Throws) > 0 {
		parts = append(parts, "throws "+strings.Join(m.Throws, ", "))
	}
	return names.ReplaceInnerMark(m.render(strings.Join(parts, " ")))
}

// Clone returns a deep copy that can be bound independently.
func (m *Member) Clone() *Member {
	out := *m
	out.Parameters = slices.Clone(m.Parameters)
	out.Throws = slices.Clone(m.Throws)
	out.TypeParameters = slices.Clone(m.TypeParameters)
	out.typeMap = maps.Clone(m.typeMap)
	return &out
}

func CloneMembers(ms []*Member) []*Member {
	out := make([]*Member, len(ms))
	for i, m := range ms {
		out[i] = m.Clone()
	}
	return out
}

func kindOrder(k MemberKind) int {
	switch k {
	case FieldKind:
		return 0
	case ConstructorKind:
		return 1
	}
	return 2
}

// SortMembers orders static members first, then fields, constructors and
// methods, then by name.
func SortMembers(ms []*Member) {
	sort.SliceStable(ms, func(i, j int) bool {
		a, b := ms[i], ms[j]
		if a.IsStatic() != b.IsStatic() {
			return a.IsStatic()
		}
		if ka, kb := kindOrder(a.Kind), kindOrder(b.Kind); ka != kb {
			return ka < kb
		}
		return a.Name < b.Name
	})
}
