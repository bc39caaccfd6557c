package reflector

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhamidi/classlens/classfile"
	"github.com/dhamidi/classlens/internal/classgen"
	"github.com/dhamidi/classlens/java"
	"github.com/dhamidi/classlens/java/index"
	"github.com/dhamidi/classlens/java/scanner"
)

const (
	public   = classfile.AccPublic
	abstract = classfile.AccPublic | classfile.AccAbstract
)

var object = &classgen.Class{
	Name:    "java/lang/Object",
	NoSuper: true,
	Methods: []classgen.Method{
		{Access: public, Name: "<init>", Descriptor: "()V", Code: true},
		{Access: public, Name: "equals", Descriptor: "(Ljava/lang/Object;)Z", Code: true},
		{Access: public, Name: "hashCode", Descriptor: "()I", Code: true},
		{Access: public, Name: "toString", Descriptor: "()Ljava/lang/String;", Code: true},
	},
}

func fixture(t *testing.T, opts Options) *Reflector {
	t.Helper()
	tmp := t.TempDir()
	dir := filepath.Join(tmp, "classes")
	jar := filepath.Join(tmp, "lib.jar")

	require.NoError(t, classgen.WriteDir(dir,
		object,
		&classgen.Class{
			Name: "com/acme/Foo",
			Methods: []classgen.Method{
				{Access: public, Name: "<init>", Descriptor: "()V", Code: true},
				{Access: public, Name: "bar", Descriptor: "()Lcom/acme/Bar;", Code: true},
				{Access: classfile.AccPrivate, Name: "secret", Descriptor: "()V", Code: true},
				{Access: classfile.AccPrivate | classfile.AccStatic | classfile.AccSynthetic, Name: "lambda$bar$0", Descriptor: "()V", Code: true},
				{Access: classfile.AccStatic, Name: "<clinit>", Descriptor: "()V", Code: true},
			},
			Fields: []classgen.Field{
				{Access: public, Name: "count", Descriptor: "I"},
				{Access: classfile.AccFinal | classfile.AccSynthetic, Name: "this$0", Descriptor: "Lcom/acme/Outer;"},
			},
		},
		&classgen.Class{
			Name:      "java/util/Map",
			Access:    classgen.Interface,
			Signature: "<K:Ljava/lang/Object;V:Ljava/lang/Object;>Ljava/lang/Object;",
			Methods: []classgen.Method{
				{Access: abstract, Name: "get", Descriptor: "(Ljava/lang/Object;)Ljava/lang/Object;", Signature: "(Ljava/lang/Object;)TV;", ParamNames: []string{"key"}},
				{Access: abstract, Name: "put", Descriptor: "(Ljava/lang/Object;Ljava/lang/Object;)Ljava/lang/Object;", Signature: "(TK;TV;)TV;"},
				{
					Access:     public | classfile.AccStatic,
					Name:       "of",
					Descriptor: "()Ljava/util/Map;",
					Signature:  "<K:Ljava/lang/Object;V:Ljava/lang/Object;>()Ljava/util/Map<TK;TV;>;",
					Code:       true,
				},
			},
		},
		&classgen.Class{
			Name:      "java/util/Map$Entry",
			Access:    classgen.Interface,
			Signature: "<K:Ljava/lang/Object;V:Ljava/lang/Object;>Ljava/lang/Object;",
			Methods: []classgen.Method{
				{Access: abstract, Name: "getKey", Descriptor: "()Ljava/lang/Object;", Signature: "()TK;"},
			},
		},
		&classgen.Class{
			Name:      "p/Base",
			Signature: "<T:Ljava/lang/Object;>Ljava/lang/Object;",
			Fields:    []classgen.Field{{Access: public, Name: "value", Descriptor: "Ljava/lang/Object;", Signature: "TT;"}},
			Methods: []classgen.Method{
				{Access: public, Name: "<init>", Descriptor: "()V", Code: true},
				{Access: public, Name: "get", Descriptor: "()Ljava/lang/Object;", Signature: "()TT;", Code: true},
				{Access: public, Name: "describe", Descriptor: "()Ljava/lang/String;", Code: true},
				{Access: public, Name: "accept", Descriptor: "(Ljava/lang/Object;)V", Signature: "(TT;)V", Code: true},
			},
		},
		&classgen.Class{
			Name:      "p/Mid",
			Super:     "p/Base",
			Signature: "<T:Ljava/lang/Object;>Lp/Base<TT;>;",
			Methods: []classgen.Method{
				{Access: public, Name: "<init>", Descriptor: "()V", Code: true},
				{Access: public, Name: "describe", Descriptor: "()Ljava/lang/String;", Code: true},
			},
		},
		&classgen.Class{
			Name:      "p/Leaf",
			Super:     "p/Mid",
			Signature: "Lp/Mid<Ljava/lang/String;>;",
			Methods: []classgen.Method{
				{Access: public, Name: "<init>", Descriptor: "(I)V", Code: true},
			},
		},
		&classgen.Class{
			Name: "p/Calc",
			Methods: []classgen.Method{
				{Access: public, Name: "foo", Descriptor: "(I)V", Code: true},
				{Access: public, Name: "foo", Descriptor: "(J)V", Code: true},
				{Access: public | classfile.AccVarargs, Name: "join", Descriptor: "(Ljava/lang/String;[Ljava/lang/String;)Ljava/lang/String;", Code: true},
				{Access: public | classfile.AccVarargs, Name: "format", Descriptor: "(Ljava/lang/String;[Ljava/lang/Object;)Ljava/lang/String;", Code: true},
				{Access: public, Name: "sum", Descriptor: "([I)I", Code: true},
				{Access: public, Name: "keep", Descriptor: "(Ljava/io/Serializable;)V", Code: true},
			},
		},
		&classgen.Class{
			Name:        "java/util/function/Function",
			Access:      classgen.Interface,
			Signature:   "<T:Ljava/lang/Object;R:Ljava/lang/Object;>Ljava/lang/Object;",
			Annotations: []string{"Ljava/lang/FunctionalInterface;"},
			Methods: []classgen.Method{
				{Access: abstract, Name: "equals", Descriptor: "(Ljava/lang/Object;)Z"},
				{Access: abstract, Name: "apply", Descriptor: "(Ljava/lang/Object;)Ljava/lang/Object;", Signature: "(TT;)TR;"},
				{Access: public, Name: "identity", Descriptor: "()Ljava/util/function/Function;", Code: true},
			},
		},
	))
	require.NoError(t, classgen.WriteJar(jar,
		&classgen.Class{Name: "java/io/Serializable", Access: classgen.Interface},
		&classgen.Class{
			Name:       "com/acme/Bar",
			Interfaces: []string{"java/io/Serializable"},
			Methods:    []classgen.Method{{Access: public, Name: "name", Descriptor: "()Ljava/lang/String;", Code: true}},
		},
	))

	ix := index.New(scanner.New(scanner.Options{}), 2)
	require.NoError(t, ix.Build(context.Background(), []string{dir, jar}))
	r := New(ix, opts)
	t.Cleanup(func() { r.Close() })
	return r
}

func find(ms []*java.Member, name string) *java.Member {
	for _, m := range ms {
		if m.Name == name {
			return m
		}
	}
	return nil
}

func namesOf(ms []*java.Member) []string {
	var out []string
	for _, m := range ms {
		out = append(out, m.Name)
	}
	return out
}

func TestReflectScenarioA(t *testing.T) {
	r := fixture(t, Options{})
	ms := r.Reflect("com.acme.Foo")

	bar := find(ms, "bar")
	require.NotNil(t, bar)
	assert.Equal(t, "com.acme.Bar", bar.ReturnType())
	assert.Equal(t, "com.acme.Foo", bar.DeclaringClass)

	got := namesOf(ms)
	assert.Contains(t, got, "com.acme.Foo")
	assert.Contains(t, got, "count")
	assert.Contains(t, got, "toString")
	assert.NotContains(t, got, "secret")
	assert.NotContains(t, got, "lambda$bar$0")
	assert.NotContains(t, got, "<clinit>")
	assert.NotContains(t, got, "this$0")
	assert.NotContains(t, got, "java.lang.Object")

	ctors := r.Constructors("com.acme.Foo")
	require.Len(t, ctors, 1)
	assert.Equal(t, "com.acme.Foo", ctors[0].ReturnType())
}

func TestFields(t *testing.T) {
	r := fixture(t, Options{})
	assert.Equal(t, []string{"count"}, namesOf(r.Fields("com.acme.Foo", "")))

	count, ok := r.Field("com.acme.Foo", "count")
	require.True(t, ok)
	assert.Equal(t, "int", count.ReturnType())

	_, ok = r.Field("com.acme.Foo", "bar")
	assert.False(t, ok)
	assert.Empty(t, r.Fields("com.acme.Missing", ""))
}

func TestReflectMarksLoaded(t *testing.T) {
	r := fixture(t, Options{})
	cd, ok := r.index.Get("com.acme.Foo")
	require.True(t, ok)
	assert.False(t, cd.Loaded)

	r.Reflect("com.acme.Foo")
	cd, _ = r.index.Get("com.acme.Foo")
	assert.True(t, cd.Loaded)
	bar, _ := r.index.Get("com.acme.Bar")
	assert.False(t, bar.Loaded)
}

func TestReflectFromArchive(t *testing.T) {
	r := fixture(t, Options{})
	ms := r.Methods("com.acme.Bar", "name")
	require.Len(t, ms, 1)
	assert.Equal(t, "java.lang.String", ms[0].ReturnType())
}

func TestIncludePrivate(t *testing.T) {
	r := fixture(t, Options{IncludePrivate: true})
	secret := r.Methods("com.acme.Foo", "secret")
	require.Len(t, secret, 1)
	assert.True(t, secret[0].IsPrivate())
}

func TestReflectScenarioD(t *testing.T) {
	r := fixture(t, Options{})
	class := "java.util.Map<java.lang.String, java.lang.Long>"

	get := r.Methods(class, "get")
	require.Len(t, get, 1)
	assert.Equal(t, "java.lang.Long", get[0].ReturnType())
	assert.Equal(t, class, get[0].DeclaringClass)
	assert.Equal(t, "key", get[0].Parameters[0].Name)
	assert.Equal(t, "public", get[0].Modifier)

	put := r.Methods(class, "put")
	require.Len(t, put, 1)
	assert.Equal(t, []string{"java.lang.String", "java.lang.Long"}, put[0].ParameterTypes())
	assert.Equal(t, "arg0", put[0].Parameters[0].Name)

	raw := r.Methods("java.util.Map", "get")
	require.Len(t, raw, 1)
	assert.Equal(t, "java.lang.Object", raw[0].ReturnType())

	of := r.Methods(class, "of")
	require.Len(t, of, 1)
	assert.Equal(t, "<K, V>", of[0].FormalType)
	assert.Equal(t, "java.util.Map<##K, ##V>", of[0].RawReturnType)
}

func TestReflectDottedInnerClass(t *testing.T) {
	r := fixture(t, Options{})
	ms := r.Methods("java.util.Map.Entry<java.lang.String, java.lang.Long>", "getKey")
	require.Len(t, ms, 1)
	assert.Equal(t, "java.lang.String", ms[0].ReturnType())
}

func TestReflectInheritedGenerics(t *testing.T) {
	r := fixture(t, Options{})
	ms := r.Reflect("p.Leaf")

	get := find(ms, "get")
	require.NotNil(t, get)
	assert.Equal(t, "java.lang.String", get.ReturnType())
	assert.Equal(t, "p.Base", get.DeclaringClass)

	value := find(ms, "value")
	require.NotNil(t, value)
	assert.Equal(t, "java.lang.String", value.ReturnType())

	accept := find(ms, "accept")
	require.NotNil(t, accept)
	assert.Equal(t, []string{"java.lang.String"}, accept.ParameterTypes())

	var describes []*java.Member
	for _, m := range ms {
		if m.Name == "describe" {
			describes = append(describes, m)
		}
	}
	require.Len(t, describes, 1)
	assert.Equal(t, "p.Mid", describes[0].DeclaringClass)

	ctors := r.Constructors("p.Leaf")
	require.Len(t, ctors, 1)
	assert.Equal(t, []string{"int"}, ctors[0].ParameterTypes())
}

func TestInheritedMembersAreVisible(t *testing.T) {
	r := fixture(t, Options{})
	leaf := r.Reflect("p.Leaf")
	for _, class := range []string{"p.Base", "p.Mid", "java.lang.Object"} {
		for _, m := range r.Reflect(class) {
			if m.IsConstructor() || m.IsPrivate() {
				continue
			}
			var found bool
			for _, l := range leaf {
				if l.Kind == m.Kind && l.Name == m.Name && len(l.Parameters) == len(m.Parameters) {
					found = true
					break
				}
			}
			assert.True(t, found, "%s.%s", class, m.Name)
		}
	}
}

func TestReflectReturnsCopies(t *testing.T) {
	r := fixture(t, Options{})
	first := r.Methods("java.util.Map", "get")
	require.Len(t, first, 1)
	first[0].Name = "mutated"
	first[0].PutTypeParameter("V", "java.lang.Integer")

	again := r.Methods("java.util.Map", "get")
	require.Len(t, again, 1)
	assert.Equal(t, "java.lang.Object", again[0].ReturnType())
}

func TestReflectUnknownClass(t *testing.T) {
	r := fixture(t, Options{})
	assert.Nil(t, r.Reflect("com.acme.Missing"))
	_, ok := r.FunctionalMethod("com.acme.Missing")
	assert.False(t, ok)
}

func TestResetKeepsResults(t *testing.T) {
	r := fixture(t, Options{})
	before := namesOf(r.Reflect("p.Leaf"))
	r.Reset()
	assert.Equal(t, before, namesOf(r.Reflect("p.Leaf")))
}

func TestFunctionalMethod(t *testing.T) {
	r := fixture(t, Options{})
	class := "java.util.function.Function<java.lang.String, java.lang.Integer>"

	assert.True(t, r.IsFunctional(class))
	assert.False(t, r.IsFunctional("java.util.Map"))

	m, ok := r.FunctionalMethod(class)
	require.True(t, ok)
	assert.Equal(t, "apply", m.Name)
	assert.Equal(t, "java.lang.Integer", m.ReturnType())
	assert.Equal(t, []string{"java.lang.String"}, m.ParameterTypes())

	_, ok = r.FunctionalMethod("java.util.Map")
	assert.False(t, ok)
}

func TestCompatible(t *testing.T) {
	r := fixture(t, Options{})
	tests := []struct {
		name    string
		args    []string
		params  []string
		varargs bool
		want    bool
	}{
		{"identical", []string{"java.lang.String"}, []string{"java.lang.String"}, false, true},
		{"boxing", []string{"int"}, []string{"java.lang.Integer"}, false, true},
		{"widening", []string{"int"}, []string{"long"}, false, true},
		{"narrowing", []string{"long"}, []string{"int"}, false, false},
		{"null matches", []string{"<null>"}, []string{"com.acme.Bar"}, false, true},
		{"ancestor", []string{"com.acme.Bar"}, []string{"java.io.Serializable"}, false, true},
		{"object accepts all", []string{"com.acme.Bar"}, []string{"java.lang.Object"}, false, true},
		{"descendant", []string{"java.io.Serializable"}, []string{"com.acme.Bar"}, false, false},
		{"array against scalar", []string{"int[]"}, []string{"int"}, false, false},
		{"arity", []string{"int", "int"}, []string{"int"}, false, false},
		{"empty", nil, nil, false, true},
		{"varargs none", []string{"java.lang.String"}, []string{"java.lang.String", "java.lang.String..."}, true, true},
		{"varargs many", []string{"java.lang.String", "java.lang.String", "java.lang.String"}, []string{"java.lang.String", "java.lang.String..."}, true, true},
		{"varargs wrong element", []string{"java.lang.String", "int"}, []string{"java.lang.String", "java.lang.String..."}, true, false},
		{"varargs array", []string{"java.lang.String", "java.lang.String[]"}, []string{"java.lang.String", "java.lang.String..."}, true, true},
		{"varargs ancestor", []string{"java.lang.String", "java.lang.Integer"}, []string{"java.lang.String", "java.lang.Object..."}, true, true},
		{"varargs widening", []string{"int", "short"}, []string{"long..."}, true, true},
		{"varargs narrowing", []string{"long"}, []string{"int..."}, true, false},
		{"varargs null element", []string{"<null>"}, []string{"java.lang.String..."}, true, true},
		{"varargs too few", nil, []string{"java.lang.String", "java.lang.String..."}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Compatible(tt.args, tt.params, tt.varargs))
		})
	}
}

func TestSelectOverload(t *testing.T) {
	r := fixture(t, Options{})
	tests := []struct {
		name   string
		method string
		args   []string
		want   []string
		ok     bool
	}{
		{"scenario E byte widens to int", "foo", []string{"byte"}, []string{"int"}, true},
		{"exact long", "foo", []string{"long"}, []string{"long"}, true},
		{"boxed int is exact", "foo", []string{"java.lang.Integer"}, []string{"int"}, true},
		{"no narrowing", "foo", []string{"double"}, nil, false},
		{"varargs", "join", []string{"java.lang.String", "java.lang.String", "java.lang.String"}, []string{"java.lang.String", "java.lang.String..."}, true},
		{"varargs elements widen to Object", "format", []string{"java.lang.String", "java.lang.Integer", "int"}, []string{"java.lang.String", "java.lang.Object..."}, true},
		{"array param", "sum", []string{"int[]"}, []string{"int[]"}, true},
		{"array param rejects scalar", "sum", []string{"int"}, nil, false},
		{"ancestor param", "keep", []string{"com.acme.Bar"}, []string{"java.io.Serializable"}, true},
		{"null argument", "keep", []string{"<null>"}, []string{"java.io.Serializable"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidates := r.Methods("p.Calc", tt.method)
			require.NotEmpty(t, candidates)
			m, ok := r.SelectOverload(candidates, tt.args)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				require.NotNil(t, m)
				assert.Equal(t, tt.want, m.ParameterTypes())
			}
		})
	}

	foo := r.Methods("p.Calc", "foo")
	assert.Len(t, foo, 2, "overloads in one class are both visible")
}

func TestDeclaredVarargs(t *testing.T) {
	r := fixture(t, Options{})
	join := r.Methods("p.Calc", "join")
	require.Len(t, join, 1)
	assert.True(t, join[0].HasVarArgs())
	assert.Equal(t, "java.lang.String...", join[0].Parameters[1].Type)
	assert.Contains(t, join[0].DisplayDeclaration(), "java.lang.String...")
	assert.NotContains(t, join[0].DisplayDeclaration(), "......")
}
