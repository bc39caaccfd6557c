// Package java holds the data model shared by the index, reflector and
// analyzer: class descriptors built from compiled classes and the member
// descriptors reflected from them.
package java

import (
	"slices"
	"strings"

	"github.com/dhamidi/classlens/java/names"
)

// ClassDescriptor describes one compiled class as found on the class path.
type ClassDescriptor struct {
	// Declaration is the dotted name with '$' separating inner classes.
	Declaration    string   `json:"declaration" yaml:"declaration"`
	Name           string   `json:"name" yaml:"name"`
	TypeParameters []string `json:"typeParameters,omitempty" yaml:"typeParameters,omitempty"`
	// Supers lists direct supertypes. Entries may carry "%%T" class
	// variable marks.
	Supers       []string `json:"supers,omitempty" yaml:"supers,omitempty"`
	IsInterface  bool     `json:"interface,omitempty" yaml:"interface,omitempty"`
	IsAnnotation bool     `json:"annotation,omitempty" yaml:"annotation,omitempty"`
	Functional   bool     `json:"functional,omitempty" yaml:"functional,omitempty"`
	FilePath     string   `json:"filePath" yaml:"filePath"`
	// Loaded is set once the members of the class have been read from
	// its origin.
	Loaded bool `json:"-" yaml:"-"`
	// Token is an opaque identity assigned by external storage. It
	// survives rescans of the same class.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`
}

func NewClassDescriptor(declaration string, typeParameters, supers []string) *ClassDescriptor {
	return &ClassDescriptor{
		Declaration:    declaration,
		Name:           names.SimpleName(declaration),
		TypeParameters: typeParameters,
		Supers:         supers,
	}
}

func (c *ClassDescriptor) withTypeParameters(name string) string {
	if len(c.TypeParameters) == 0 {
		return name
	}
	return name + "<" + strings.Join(c.TypeParameters, ", ") + ">"
}

// DisplayDeclaration renders the dotted name with formal type parameters,
// e.g. "java.util.Map.Entry<K, V>".
func (c *ClassDescriptor) DisplayDeclaration() string {
	return names.ReplaceInnerMark(c.withTypeParameters(c.Declaration))
}

// ReturnType renders the raw name with formal type parameters, e.g.
// "java.util.Map$Entry<K, V>".
func (c *ClassDescriptor) ReturnType() string {
	return c.withTypeParameters(c.Declaration)
}

func (c *ClassDescriptor) Package() string {
	return names.Package(c.Declaration)
}

func (c *ClassDescriptor) IsInnerClass() bool {
	return strings.Contains(c.Declaration, names.InnerMark)
}

func (c *ClassDescriptor) AddSuper(name string) {
	c.Supers = append(c.Supers, name)
}

func (c *ClassDescriptor) Clone() *ClassDescriptor {
	if c == nil {
		return nil
	}
	out := *c
	out.TypeParameters = slices.Clone(c.TypeParameters)
	out.Supers = slices.Clone(c.Supers)
	return &out
}

// Equal compares everything but the identity token and load state.
func (c *ClassDescriptor) Equal(o *ClassDescriptor) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.Declaration == o.Declaration &&
		c.Name == o.Name &&
		slices.Equal(c.TypeParameters, o.TypeParameters) &&
		slices.Equal(c.Supers, o.Supers) &&
		c.IsInterface == o.IsInterface &&
		c.IsAnnotation == o.IsAnnotation &&
		c.Functional == o.Functional &&
		c.FilePath == o.FilePath
}
