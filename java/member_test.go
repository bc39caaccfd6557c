package java

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhamidi/classlens/classfile"
)

func mapGet() *Member {
	return &Member{
		DeclaringClass: "java.util.Map",
		Kind:           MethodKind,
		Modifier:       "public abstract",
		Name:           "get",
		Parameters:     []Parameter{{Name: "key", Type: "java.lang.Object"}},
		RawReturnType:  "%%V",
		TypeParameters: []string{"V"},
	}
}

func TestMemberReturnTypeBinding(t *testing.T) {
	m := mapGet()
	assert.Equal(t, "java.lang.Object", m.ReturnType())

	m.PutTypeParameter("V", "java.lang.Long")
	m.PutTypeParameter("K", "java.lang.String")
	assert.Equal(t, "java.lang.Long", m.ReturnType())
	assert.Equal(t, map[string]string{"V": "java.lang.Long"}, m.TypeParameterMap())

	m.ClearTypeParameterMap()
	assert.Equal(t, "java.lang.Object", m.ReturnType())
}

func TestFormalTypeRendering(t *testing.T) {
	m := &Member{
		DeclaringClass: "java.util.stream.Stream",
		Kind:           MethodKind,
		Modifier:       "public abstract",
		Name:           "map",
		Parameters:     []Parameter{{Name: "mapper", Type: "java.util.function.Function<? super %%T, ? extends ##R>"}},
		RawReturnType:  "java.util.stream.Stream<##R>",
		FormalType:     "<R>",
		TypeParameters: []string{"T", "R"},
	}
	m.PutTypeParameter("T", "java.lang.String")
	m.PutTypeParameter("R", "java.lang.Integer")
	assert.Equal(t, "java.util.stream.Stream<java.lang.Integer>", m.ReturnType())
	assert.Equal(t, []string{"java.util.function.Function<? super java.lang.String, ? extends java.lang.Integer>"}, m.ParameterTypes())
	assert.Equal(t, "java.util.stream.Stream<##R>", m.RawReturnType)
}

func TestUnboundStaticKeepsArgs(t *testing.T) {
	m := &Member{
		Kind:           MethodKind,
		Modifier:       "public static",
		Name:           "emptyList",
		RawReturnType:  "java.util.List<##T>",
		FormalType:     "<T>",
		TypeParameters: []string{"T"},
	}
	assert.Equal(t, "java.util.List<java.lang.Object>", m.ReturnType())
}

func TestSignatureAndDeclaration(t *testing.T) {
	m := &Member{
		DeclaringClass: "java.lang.String",
		Kind:           MethodKind,
		Modifier:       "public",
		Name:           "format",
		Parameters: []Parameter{
			{Name: "format", Type: "java.lang.String"},
			{Name: "args", Type: "java.lang.Object...", VarArgs: true},
		},
		RawReturnType: "java.lang.String",
		Throws:        []string{"java.util.IllegalFormatException"},
	}
	assert.Equal(t, "format::[java.lang.String, java.lang.Object...]", m.Signature())
	assert.Equal(t, "String format(String format, java.lang.Object... args)", m.DisplayDeclaration())
	assert.Equal(t, "public String format(String format, java.lang.Object... args) throws java.util.IllegalFormatException", m.Declaration())
	assert.True(t, m.HasVarArgs())
}

func TestCloneIsIndependent(t *testing.T) {
	orig := mapGet()
	c := orig.Clone()
	c.PutTypeParameter("V", "java.lang.Long")
	c.Parameters[0].Type = "java.lang.String"

	assert.Equal(t, "java.lang.Object", orig.ReturnType())
	assert.Equal(t, "java.lang.Object", orig.Parameters[0].Type)
	assert.Equal(t, "java.lang.Long", c.ReturnType())
}

func TestSortMembers(t *testing.T) {
	ms := []*Member{
		{Name: "size", Kind: MethodKind, Modifier: "public"},
		{Name: "of", Kind: MethodKind, Modifier: "public static"},
		{Name: "List", Kind: ConstructorKind, Modifier: "public"},
		{Name: "count", Kind: FieldKind, Modifier: "private"},
		{Name: "EMPTY", Kind: FieldKind, Modifier: "public static final"},
	}
	SortMembers(ms)
	got := make([]string, len(ms))
	for i, m := range ms {
		got[i] = m.Name
	}
	assert.Equal(t, []string{"EMPTY", "of", "count", "List", "size"}, got)
}

func TestModifierString(t *testing.T) {
	flags := classfile.AccPublic | classfile.AccStatic | classfile.AccFinal | classfile.AccSynchronized
	assert.Equal(t, "public static final synchronized", ModifierString(flags, MethodKind, false))
	assert.Equal(t, "public static final", ModifierString(flags, FieldKind, false))
	assert.Equal(t, "public default", ModifierString(classfile.AccPublic, MethodKind, true))
}

func TestClassDescriptor(t *testing.T) {
	c := NewClassDescriptor("java.util.Map$Entry", []string{"K", "V"}, nil)
	assert.Equal(t, "Map$Entry", c.Name)
	assert.Equal(t, "java.util.Map.Entry<K, V>", c.DisplayDeclaration())
	assert.Equal(t, "java.util.Map$Entry<K, V>", c.ReturnType())
	assert.Equal(t, "java.util", c.Package())
	assert.True(t, c.IsInnerClass())

	c.Token = "abc"
	clone := c.Clone()
	require.True(t, c.Equal(clone))
	clone.AddSuper("java.lang.Object")
	assert.Empty(t, c.Supers)
	assert.False(t, c.Equal(clone))
}
