package names

import "strings"

// ClassName is a type name as written at a use site: possibly captured,
// parameterized, or an array.
type ClassName struct {
	raw       string
	typeIndex int
}

func NewClassName(name string) ClassName {
	raw := VarArgsToArray(name)
	return ClassName{raw: raw, typeIndex: strings.IndexByte(raw, '<')}
}

func (c ClassName) String() string { return c.raw }

func (c ClassName) HasTypeParameter() bool {
	return c.typeIndex > 0
}

// Name returns the erased base name without capture, wildcard, type
// arguments or array brackets.
func (c ClassName) Name() string {
	name := RemoveCaptureAndWildcard(c.raw)
	name = RemoveTypeParameter(name)
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

// AddTypeParameters reattaches this name's type arguments and array
// suffix to fqcn.
func (c ClassName) AddTypeParameters(fqcn string) string {
	if c.typeIndex >= 0 {
		return fqcn + c.raw[c.typeIndex:]
	}
	if i := strings.IndexByte(c.raw, '['); i >= 0 {
		return fqcn + c.raw[i:]
	}
	return fqcn
}

// TypeParameters returns the top-level type arguments.
func (c ClassName) TypeParameters() []string {
	if !c.HasTypeParameter() {
		return nil
	}
	return ParseTypeParameter(c.raw)
}

func (c ClassName) IsArray() bool {
	return IsArray(c.raw)
}
