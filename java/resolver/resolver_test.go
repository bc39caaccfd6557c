package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhamidi/classlens/classfile"
	"github.com/dhamidi/classlens/internal/classgen"
	"github.com/dhamidi/classlens/java/index"
	"github.com/dhamidi/classlens/java/reflector"
	"github.com/dhamidi/classlens/java/scanner"
	"github.com/dhamidi/classlens/java/source"
)

func span(begin, end int) source.Range {
	return source.Range{
		Begin: source.Position{Line: begin, Column: 1},
		End:   source.Position{Line: end, Column: 200},
	}
}

func newResolver(t *testing.T) (*Resolver, *index.Index) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, classgen.WriteDir(dir,
		&classgen.Class{Name: "java/lang/Object", NoSuper: true},
		&classgen.Class{Name: "java/lang/String"},
		&classgen.Class{Name: "java/lang/CharSequence", Access: classgen.Interface},
		&classgen.Class{Name: "java/util/Map", Access: classgen.Interface},
		&classgen.Class{Name: "java/util/Map$Entry", Access: classgen.Interface},
		&classgen.Class{Name: "java/util/List", Access: classgen.Interface},
		&classgen.Class{
			Name:   "com/acme/Base",
			Fields: []classgen.Field{{Access: classfile.AccPublic, Name: "count", Descriptor: "I"}},
		},
		&classgen.Class{Name: "com/acme/Base$Node"},
		&classgen.Class{Name: "com/acme/Sibling"},
		&classgen.Class{Name: "com/acme/Outer"},
		&classgen.Class{Name: "com/acme/Outer$Helper"},
		&classgen.Class{
			Name: "org/other/Thing",
			Fields: []classgen.Field{
				{Access: classfile.AccPublic | classfile.AccStatic, Name: "DEFAULT", Descriptor: "Lorg/other/Thing;"},
			},
		},
		&classgen.Class{Name: "org/other/Box$Nested"},
	))
	ix := index.New(scanner.New(scanner.Options{}), 2)
	require.NoError(t, ix.Build(context.Background(), []string{dir}))
	refl := reflector.New(ix, reflector.Options{})
	t.Cleanup(func() { refl.Close() })
	return New(ix, refl), ix
}

// sample models:
//
//	package com.acme;
//	import java.util.List;
//	import java.util.Map;
//	import org.other.*;
//	import org.other.Box.*;
//	import static org.other.Thing.DEFAULT;
//
//	class Foo<T extends CharSequence> extends Base {   // 1-30
//	  String name;
//	  void run(String n) {                             // 2-10
//	    {                                              // 6-8
//	      Integer n = 1;
//	    }
//	    Long tmp = 2L;                                 // 9
//	  }
//	  class Inner {}                                   // 12-20
//	}
//	class Other {}                                     // 32-40
func sample(t *testing.T) *source.File {
	t.Helper()
	f := source.NewFile("Foo.java", "com.acme")
	f.AddImport("java.util.List")
	f.AddImport("java.util.Map")
	f.AddImport("org.other.*")
	f.AddImport("org.other.Box.*")
	f.AddStaticImport("org.other.Thing", "DEFAULT")

	_, err := f.OpenType(source.TypeDecl{
		Name:           "Foo",
		Range:          span(1, 30),
		Extends:        []string{"com.acme.Base"},
		TypeParameters: []string{"T"},
		Bounds:         map[string]string{"T": "java.lang.CharSequence"},
	})
	require.NoError(t, err)
	_, err = f.AddField("name", "java.lang.String", span(1, 1))
	require.NoError(t, err)

	_, err = f.OpenMethod("run", span(2, 10), span(2, 2))
	require.NoError(t, err)
	_, err = f.Declare("n", "java.lang.String", span(2, 2))
	require.NoError(t, err)
	_, err = f.OpenBlock("", span(6, 8), false)
	require.NoError(t, err)
	_, err = f.Declare("n", "java.lang.Integer", span(7, 7))
	require.NoError(t, err)
	require.NoError(t, f.CloseBlock())
	_, err = f.OpenExpression(span(9, 9))
	require.NoError(t, err)
	_, err = f.Declare("tmp", "java.lang.Long", span(9, 9))
	require.NoError(t, err)
	require.NoError(t, f.CloseExpression())
	require.NoError(t, f.CloseBlock())

	_, err = f.OpenType(source.TypeDecl{Name: "Inner", Range: span(12, 20)})
	require.NoError(t, err)
	require.NoError(t, f.CloseType())
	require.NoError(t, f.CloseType())

	_, err = f.OpenType(source.TypeDecl{Name: "Other", Range: span(32, 40)})
	require.NoError(t, err)
	require.NoError(t, f.CloseType())
	return f
}

func TestScenarioCNestedTypeOfEnclosingClass(t *testing.T) {
	r, _ := newResolver(t)
	f := source.NewFile("Map.java", "java.util")
	_, err := f.OpenType(source.TypeDecl{Name: "Map", Range: span(1, 20), IsInterface: true})
	require.NoError(t, err)

	got, ok := r.Resolve("Entry", Context{File: f})
	require.True(t, ok)
	assert.Equal(t, "java.util.Map$Entry", got)

	got, ok = r.Resolve("Entry<K, V>", Context{File: f})
	require.True(t, ok)
	assert.Equal(t, "java.util.Map$Entry<K, V>", got)
}

func TestResolveQualifiedNameIsIdentity(t *testing.T) {
	r, ix := newResolver(t)
	f := source.NewFile("Empty.java", "")
	for _, cd := range ix.All() {
		got, ok := r.Resolve(cd.Declaration, Context{File: f})
		require.True(t, ok, cd.Declaration)
		assert.Equal(t, cd.Declaration, got)
	}
}

func TestResolve(t *testing.T) {
	r, _ := newResolver(t)
	f := sample(t)

	tests := []struct {
		name string
		line int
		want string
	}{
		{"this", 4, "com.acme.Foo"},
		{"super", 4, "com.acme.Base"},
		{"T", 4, "java.lang.CharSequence"},
		{"T[]", 4, "java.lang.CharSequence[]"},
		{"T", 15, "java.lang.CharSequence"},
		{"int", 4, "int"},
		{"int[]", 4, "int[]"},
		{"List<String>", 4, "java.util.List<String>"},
		{"Thing", 4, "org.other.Thing"},
		{"Nested", 4, "org.other.Box$Nested"},
		{"Sibling", 4, "com.acme.Sibling"},
		{"String", 4, "java.lang.String"},
		{"String...", 4, "java.lang.String..."},
		{"Other", 4, "com.acme.Other"},
		{"Inner", 4, "com.acme.Foo$Inner"},
		{"Node", 4, "com.acme.Base$Node"},
		{"Node", 15, "com.acme.Base$Node"},
		{"Map.Entry", 4, "java.util.Map$Entry"},
		{"Outer.Helper", 4, "com.acme.Outer$Helper"},
		{"capture of ? extends Number", 4, "capture of ? extends Number"},
		{"this", 35, "com.acme.Other"},
		{"super", 35, "java.lang.Object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(tt.name, At(f, tt.line))
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := r.Resolve("Missing", At(f, 4))
	assert.False(t, ok)
	_, ok = r.Resolve("com.acme.Missing", At(f, 4))
	assert.False(t, ok)
}

func TestResolveThisWithoutOpenType(t *testing.T) {
	r, _ := newResolver(t)
	f := sample(t)

	got, ok := r.Resolve("this", Context{File: f})
	require.True(t, ok)
	assert.Equal(t, "com.acme.Foo", got)

	_, ok = r.Resolve("super", Context{File: f})
	assert.False(t, ok)
}

func TestResolveInsideEnclosingClass(t *testing.T) {
	r, _ := newResolver(t)
	f := source.NewFile("Outer.java", "com.acme")
	_, err := f.OpenType(source.TypeDecl{Name: "Outer", Range: span(1, 20)})
	require.NoError(t, err)
	_, err = f.OpenType(source.TypeDecl{Name: "Inner", Range: span(2, 10)})
	require.NoError(t, err)

	got, ok := r.Resolve("Helper", Context{File: f})
	require.True(t, ok)
	assert.Equal(t, "com.acme.Outer$Helper", got)
}

func TestResolveSymbol(t *testing.T) {
	r, _ := newResolver(t)
	f := sample(t)

	tests := []struct {
		name string
		line int
		want string
	}{
		{"n", 4, "java.lang.String"},
		{"n", 7, "java.lang.Integer"},
		{"tmp", 9, "java.lang.Long"},
		{"name", 7, "java.lang.String"},
		{"this.name", 4, "java.lang.String"},
		{"name", 15, "java.lang.String"},
		{"count", 4, "int"},
		{"DEFAULT", 4, "org.other.Thing"},
		{"Sibling", 4, "com.acme.Sibling"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.ResolveSymbol(tt.name, At(f, tt.line))
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := r.ResolveSymbol("tmp", At(f, 4))
	assert.False(t, ok)
	_, ok = r.ResolveSymbol("nothing", At(f, 4))
	assert.False(t, ok)
}

func TestResolveThisScope(t *testing.T) {
	r, _ := newResolver(t)
	f := sample(t)

	got, ok := r.ResolveThisScope("name", At(f, 4))
	require.True(t, ok)
	assert.Equal(t, "java.lang.String", got)

	got, ok = r.ResolveThisScope("this.name", At(f, 4))
	require.True(t, ok)
	assert.Equal(t, "java.lang.String", got)

	got, ok = r.ResolveThisScope("T", At(f, 4))
	require.True(t, ok)
	assert.Equal(t, "java.lang.CharSequence", got)

	_, ok = r.ResolveThisScope("n", At(f, 4))
	assert.False(t, ok)
	_, ok = r.ResolveThisScope("count", At(f, 4))
	assert.False(t, ok)
}
