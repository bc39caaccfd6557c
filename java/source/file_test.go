package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhamidi/classlens/java"
)

func lines(from, to int) Range {
	return Range{Begin: Position{Line: from, Column: 1}, End: Position{Line: to, Column: 80}}
}

func span(line, from, to int) Range {
	return Range{Begin: Position{Line: line, Column: from}, End: Position{Line: line, Column: to}}
}

// sample models:
//
//	 1 package com.acme;
//	 3 class Foo {
//	 4   String name;
//	 5   void run(int n) {
//	 6     int count = 0;
//	 7     {
//	 8       long count = 1;
//	 9     }
//	10     name.trim().length();
//	11     list.forEach(x -> {
//	12       return x;
//	13     });
//	14   }
//	15   class Inner {
//	16   }
//	17 }
func sample(t *testing.T) *File {
	t.Helper()
	f := NewFile("Foo.java", "com.acme")
	f.AddImport("java.util.List")
	f.AddImport("java.util.concurrent.*")
	f.AddStaticImport("java.lang.Math", "max")
	f.AddStaticImport("java.util.Collections", "*")

	_, err := f.OpenType(TypeDecl{Name: "Foo", Range: lines(3, 17), Extends: []string{"com.acme.Base"}})
	require.NoError(t, err)
	_, err = f.AddField("name", "java.lang.String", span(4, 3, 14))
	require.NoError(t, err)
	require.NoError(t, f.AddMember(&java.Member{Kind: java.MethodKind, Name: "run", RawReturnType: "void"}))

	_, err = f.OpenMethod("run", lines(5, 14), span(5, 8, 11))
	require.NoError(t, err)
	_, err = f.Declare("n", "int", span(5, 12, 17))
	require.NoError(t, err)
	_, err = f.Declare("count", "int", span(6, 5, 18))
	require.NoError(t, err)

	_, err = f.OpenBlock("block", lines(7, 9), false)
	require.NoError(t, err)
	_, err = f.Declare("count", "long", span(8, 7, 21))
	require.NoError(t, err)
	require.NoError(t, f.CloseBlock())

	_, err = f.OpenExpression(span(10, 5, 25))
	require.NoError(t, err)
	_, err = f.Reference("name", "java.lang.String", span(10, 5, 8))
	require.NoError(t, err)
	require.NoError(t, f.AddAccess(&AccessRecord{Kind: MethodCall, Qualifier: "name", Name: "trim", Range: span(10, 5, 15), ReturnType: "java.lang.String"}))
	require.NoError(t, f.AddAccess(&AccessRecord{Kind: MethodCall, Qualifier: "name.trim()", Name: "length", Range: span(10, 5, 24), ReturnType: "int"}))
	require.NoError(t, f.CloseExpression())

	_, err = f.OpenExpression(Range{Begin: Position{Line: 11, Column: 5}, End: Position{Line: 13, Column: 8}})
	require.NoError(t, err)
	_, err = f.OpenBlock("lambda", Range{Begin: Position{Line: 11, Column: 23}, End: Position{Line: 13, Column: 5}}, true)
	require.NoError(t, err)
	_, err = f.Declare("x", "java.lang.String", span(11, 18, 18))
	require.NoError(t, err)
	assert.True(t, f.AddReturn("java.lang.String"))
	require.NoError(t, f.CloseBlock())
	require.NoError(t, f.CloseExpression())
	require.NoError(t, f.CloseBlock())

	_, err = f.OpenType(TypeDecl{Name: "Inner", Range: lines(15, 16)})
	require.NoError(t, err)
	require.NoError(t, f.CloseType())
	require.NoError(t, f.CloseType())
	return f
}

func visibleNames(vs []*Variable) map[string]string {
	out := map[string]string{}
	for _, v := range vs {
		out[v.Name] = v.Type
	}
	return out
}

func TestImports(t *testing.T) {
	f := sample(t)
	assert.Equal(t, map[string]string{"List": "java.util.List"}, f.Imports)
	assert.Equal(t, []string{"java.util.concurrent"}, f.OnDemand)
	assert.Equal(t, map[string]string{"max": "java.lang.Math"}, f.StaticImports)
	assert.Equal(t, []string{"java.util.Collections"}, f.StaticOnDemand)
	assert.True(t, f.Imported("java.util.List"))
	assert.False(t, f.Imported("java.util.Map"))
}

func TestTypes(t *testing.T) {
	f := sample(t)
	types := f.Types()
	require.Len(t, types, 2)
	assert.Equal(t, "com.acme.Foo", types[0].Type.FQCN)
	assert.Equal(t, "com.acme.Foo$Inner", types[1].Type.FQCN)
	assert.Len(t, f.TopLevel(), 1)
	assert.True(t, f.HasType("com.acme.Foo$Inner"))
	assert.False(t, f.HasType("com.acme.Inner"))
	assert.Equal(t, []string{"com.acme.Base"}, types[0].Type.Supers())
	assert.Len(t, types[0].Type.Members, 1)
}

func TestScopeAt(t *testing.T) {
	f := sample(t)
	tests := []struct {
		line int
		kind ScopeKind
		name string
		ok   bool
	}{
		{line: 1, ok: false},
		{line: 4, kind: TypeScope, name: "Foo", ok: true},
		{line: 6, kind: MethodScope, name: "run", ok: true},
		{line: 8, kind: BlockScope, name: "block", ok: true},
		{line: 12, kind: BlockScope, name: "lambda", ok: true},
		{line: 15, kind: TypeScope, name: "Inner", ok: true},
		{line: 18, ok: false},
	}
	for _, tt := range tests {
		s, ok := f.ScopeAt(tt.line)
		require.Equal(t, tt.ok, ok, "line %d", tt.line)
		if ok {
			assert.Equal(t, tt.kind, s.Kind, "line %d", tt.line)
			assert.Equal(t, tt.name, s.Name, "line %d", tt.line)
		}
	}

	typ, ok := f.TypeAt(8)
	require.True(t, ok)
	assert.Equal(t, "com.acme.Foo", typ.Type.FQCN)
	typ, ok = f.TypeAt(15)
	require.True(t, ok)
	assert.Equal(t, "com.acme.Foo$Inner", typ.Type.FQCN)
}

func TestVisibleAtShadowing(t *testing.T) {
	f := sample(t)

	assert.Equal(t, map[string]string{"count": "long", "n": "int", "name": "java.lang.String"}, visibleNames(f.VisibleAt(8)))
	assert.Equal(t, map[string]string{"count": "int", "n": "int", "name": "java.lang.String"}, visibleNames(f.VisibleAt(6)))
	assert.Equal(t, "x", f.VisibleAt(12)[0].Name, "innermost first")
	assert.Equal(t, map[string]string{"name": "java.lang.String"}, visibleNames(f.VisibleAt(4)))

	v, ok := f.FieldOf(f.Types()[0].ID, "name")
	require.True(t, ok)
	assert.True(t, v.Declaration)
	_, ok = f.FieldOf(f.Types()[1].ID, "name")
	assert.False(t, ok)
}

func TestAccessesAndExpressionReturn(t *testing.T) {
	f := sample(t)

	as := f.AccessesAt(10)
	require.Len(t, as, 2)
	assert.Equal(t, "trim", as[0].Name)

	a, ok := f.AccessAt(10, 20)
	require.True(t, ok)
	assert.Equal(t, "length", a.Name)
	a, ok = f.AccessAt(10, 10)
	require.True(t, ok)
	assert.Equal(t, "trim", a.Name)

	ret, ok := f.ExpressionReturnAt(10)
	require.True(t, ok)
	assert.Equal(t, "length", ret.Name)
	assert.Equal(t, "int", ret.ReturnType)

	_, ok = f.ExpressionReturnAt(6)
	assert.False(t, ok)
}

func TestExpressionWithDeclarationHasNoReturn(t *testing.T) {
	f := NewFile("A.java", "")
	_, err := f.OpenType(TypeDecl{Name: "A", Range: lines(1, 10)})
	require.NoError(t, err)
	_, err = f.OpenMethod("m", lines(2, 9), span(2, 1, 2))
	require.NoError(t, err)
	_, err = f.OpenExpression(span(3, 1, 30))
	require.NoError(t, err)
	_, err = f.Declare("s", "java.lang.String", span(3, 8, 9))
	require.NoError(t, err)
	require.NoError(t, f.AddAccess(&AccessRecord{Name: "trim", Range: span(3, 12, 29)}))
	require.NoError(t, f.CloseExpression())

	_, ok := f.ExpressionReturnAt(3)
	assert.False(t, ok)
	assert.Equal(t, "A", f.Types()[0].Type.FQCN)
}

func TestLambdaContext(t *testing.T) {
	f := sample(t)
	ret, ok := f.Hint.PopLambdaReturn()
	require.True(t, ok)
	assert.Equal(t, "java.lang.String", ret)
	_, ok = f.Hint.PopLambdaReturn()
	assert.False(t, ok)

	lambda, ok := f.ScopeAt(12)
	require.True(t, ok)
	assert.True(t, lambda.Lambda)
	method, ok := f.ScopeAt(6)
	require.True(t, ok)
	assert.False(t, method.Lambda)
}

func TestLambdaFlagPropagates(t *testing.T) {
	f := NewFile("A.java", "p")
	_, err := f.OpenType(TypeDecl{Name: "A", Range: lines(1, 20)})
	require.NoError(t, err)
	_, err = f.OpenMethod("m", lines(2, 19), Range{})
	require.NoError(t, err)
	assert.False(t, f.AddReturn("int"))
	_, err = f.OpenBlock("lambda", lines(3, 10), true)
	require.NoError(t, err)
	id, err := f.OpenBlock("if", lines(4, 6), false)
	require.NoError(t, err)
	s, _ := f.Scope(id)
	assert.True(t, s.Lambda)
	assert.True(t, f.AddReturn("java.lang.Integer"))

	got, ok := f.Hint.PeekLambdaReturn()
	require.True(t, ok)
	assert.Equal(t, "java.lang.Integer", got)
}

func TestInvalidNesting(t *testing.T) {
	f := NewFile("A.java", "p")
	assert.ErrorIs(t, f.CloseType(), ErrNoOpenScope)
	assert.ErrorIs(t, f.CloseBlock(), ErrNoOpenScope)
	assert.ErrorIs(t, f.CloseExpression(), ErrNoOpenScope)
	_, err := f.OpenMethod("m", lines(1, 2), Range{})
	assert.ErrorIs(t, err, ErrNoOpenScope)
	_, err = f.Declare("x", "int", span(1, 1, 2))
	assert.ErrorIs(t, err, ErrNoOpenScope)
	_, err = f.AddField("x", "int", span(1, 1, 2))
	assert.ErrorIs(t, err, ErrNoOpenScope)

	_, err = f.OpenType(TypeDecl{Name: "A", Range: lines(1, 10)})
	require.NoError(t, err)
	_, err = f.OpenMethod("m", lines(5, 12), Range{})
	assert.ErrorIs(t, err, ErrScopeRange)
	assert.ErrorIs(t, f.CloseBlock(), ErrNoOpenScope, "a type is not a block")

	_, err = f.OpenMethod("m", lines(2, 9), Range{})
	require.NoError(t, err)
	_, err = f.OpenExpression(span(3, 1, 10))
	require.NoError(t, err)
	assert.ErrorIs(t, f.CloseBlock(), ErrExpressionOpen)
	require.NoError(t, f.CloseExpression())
	require.NoError(t, f.CloseBlock())
	require.NoError(t, f.CloseType())
}

func TestTypeHint(t *testing.T) {
	var h TypeHint
	_, ok := h.Resolved()
	assert.False(t, ok)

	one := &java.Member{Name: "apply"}
	h.SetCandidates([]*java.Member{one, {Name: "apply"}})
	h.ParameterIndex = 2
	_, ok = h.Resolved()
	assert.False(t, ok)

	h.SetCandidates([]*java.Member{one})
	assert.Equal(t, 0, h.ParameterIndex)
	got, ok := h.Resolved()
	require.True(t, ok)
	assert.Same(t, one, got)

	h.ClearCandidates()
	assert.Empty(t, h.Candidates())

	_, ok = h.Target()
	assert.False(t, ok)
	h.SetTarget("java.util.List<java.lang.String>")
	target, ok := h.Target()
	require.True(t, ok)
	assert.Equal(t, "java.util.List<java.lang.String>", target)
}

func TestUnknown(t *testing.T) {
	f := NewFile("A.java", "p")
	f.MarkUnknown("Missing<String>")
	f.MarkUnknown("Other[]")
	f.MarkUnknown("Missing")
	assert.Equal(t, []string{"Missing", "Other"}, f.Unknown())
}
