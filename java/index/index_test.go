package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhamidi/classlens/internal/classgen"
	"github.com/dhamidi/classlens/java"
	"github.com/dhamidi/classlens/java/scanner"
)

func build(t *testing.T, paths ...string) *Index {
	t.Helper()
	ix := New(scanner.New(scanner.Options{}), 2)
	require.NoError(t, ix.Build(context.Background(), paths))
	return ix
}

func decls(classes []*java.ClassDescriptor) []string {
	var out []string
	for _, c := range classes {
		out = append(out, c.Declaration)
	}
	return out
}

func utilDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, classgen.WriteDir(dir,
		&classgen.Class{Name: "java/util/Map", Access: classgen.Interface},
		&classgen.Class{Name: "java/util/Map$Entry", Access: classgen.Interface},
		&classgen.Class{Name: "java/util/Map$1"},
		&classgen.Class{Name: "java/util/List", Access: classgen.Interface},
		&classgen.Class{Name: "java/util/LinkedList", Interfaces: []string{"java/util/List"}},
		&classgen.Class{Name: "java/lang/String"},
		&classgen.Class{Name: "com/x/Entry"},
	))
	return dir
}

func TestScenarioASuperClasses(t *testing.T) {
	tmp := t.TempDir()
	dir := filepath.Join(tmp, "classes")
	jar := filepath.Join(tmp, "bar.jar")
	require.NoError(t, classgen.WriteDir(dir, &classgen.Class{
		Name:    "com/acme/Foo",
		Methods: []classgen.Method{{Name: "bar", Descriptor: "()Lcom/acme/Bar;", Code: true}},
	}))
	require.NoError(t, classgen.WriteJar(jar, &classgen.Class{Name: "com/acme/Bar", Interfaces: []string{"java/io/Serializable"}}))

	ix := build(t, dir, jar)
	assert.Equal(t, 2, ix.Len())
	assert.Equal(t, []string{"java.io.Serializable", "java.lang.Object"}, ix.SuperClasses("com.acme.Bar"))
	assert.Equal(t, []string{"java.lang.Object"}, ix.SuperClasses("com.acme.Foo"))
	assert.Equal(t, []string{"java.lang.Object"}, ix.SuperClasses("com.acme.Missing"))
}

func TestSuperClassesGenericChain(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, classgen.WriteDir(dir,
		&classgen.Class{Name: "p/Base", Signature: "<T:Ljava/lang/Object;>Ljava/lang/Object;"},
		&classgen.Class{Name: "p/Iface", Access: classgen.Interface},
		&classgen.Class{
			Name:       "p/Mid",
			Super:      "p/Base",
			Interfaces: []string{"p/Iface"},
			Signature:  "<T:Ljava/lang/Object;>Lp/Base<TT;>;Lp/Iface;",
		},
		&classgen.Class{Name: "p/Leaf", Super: "p/Mid", Signature: "Lp/Mid<Ljava/lang/String;>;"},
	))
	ix := build(t, dir)

	assert.Equal(t, []string{"p.Base<T>", "p.Iface", "java.lang.Object"}, ix.SuperClasses("p.Mid"))
	assert.Equal(t, []string{"p.Mid<java.lang.String>", "p.Base<T>", "p.Iface", "java.lang.Object"}, ix.SuperClasses("p.Leaf"))
}

func TestSuperClassesTerminatesOnCycles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, classgen.WriteDir(dir,
		&classgen.Class{Name: "p/A", Super: "p/B"},
		&classgen.Class{Name: "p/B", Super: "p/A"},
	))
	got := build(t, dir).SuperClasses("p.A")
	n := 0
	for _, s := range got {
		if s == "java.lang.Object" {
			n++
		}
	}
	assert.Equal(t, 1, n)
	assert.Equal(t, "java.lang.Object", got[len(got)-1])
}

func TestRebuildKeepsTokens(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, classgen.WriteDir(dir, &classgen.Class{Name: "p/A"}, &classgen.Class{Name: "p/B"}))
	ix := build(t, dir)

	tok, ok := ix.EnsureToken("p.A")
	require.True(t, ok)
	require.NotEmpty(t, tok)
	again, _ := ix.EnsureToken("p.A")
	assert.Equal(t, tok, again)
	_, ok = ix.EnsureToken("p.Missing")
	assert.False(t, ok)

	before := ix.Snapshot()
	require.NoError(t, ix.Build(context.Background(), []string{dir}))
	after := ix.Snapshot()

	a, ok := ix.Get("p.A")
	require.True(t, ok)
	assert.Equal(t, tok, a.Token)
	b, _ := ix.Get("p.B")
	assert.Empty(t, b.Token)

	require.Len(t, after, len(before))
	for i := range before {
		assert.True(t, before[i].Equal(after[i]), before[i].Declaration)
	}
}

func TestAddArchivesSkipsKnown(t *testing.T) {
	tmp := t.TempDir()
	one := filepath.Join(tmp, "one.jar")
	two := filepath.Join(tmp, "two.jar")
	require.NoError(t, classgen.WriteJar(one, &classgen.Class{Name: "a/One"}))
	require.NoError(t, classgen.WriteJar(two, &classgen.Class{Name: "b/Two"}))

	ix := build(t, one)
	tok, _ := ix.EnsureToken("a.One")

	require.NoError(t, ix.AddArchives(context.Background(), []string{one, two}))
	assert.Equal(t, []string{"a.One", "b.Two"}, decls(ix.All()))
	got, _ := ix.Get("a.One")
	assert.Equal(t, tok, got.Token)
}

func TestRescanDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, classgen.WriteDir(dir, &classgen.Class{Name: "p/A"}, &classgen.Class{Name: "p/B"}))
	ix := build(t, dir)
	require.NoError(t, os.Remove(filepath.Join(dir, "p", "B.class")))
	require.NoError(t, classgen.WriteDir(dir, &classgen.Class{Name: "p/C"}))

	require.NoError(t, ix.RescanDirectories(context.Background()))
	assert.Equal(t, []string{"p.A", "p.C"}, decls(ix.All()))
}

func TestBuildSkipsUnreadableEntries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, classgen.WriteDir(dir, &classgen.Class{Name: "p/A"}))
	ix := build(t, dir, filepath.Join(dir, "missing.jar"))
	assert.Equal(t, 1, ix.Len())
}

func TestGetAndContains(t *testing.T) {
	ix := build(t, utilDir(t))

	cd, ok := ix.Get("java.util.Map<K, V>")
	require.True(t, ok)
	assert.Equal(t, "java.util.Map", cd.Declaration)
	assert.True(t, cd.IsInterface)
	assert.True(t, ix.Contains("java.util.Map$Entry"))
	assert.False(t, ix.Contains("java.util.Map.Entry"))

	cd.Supers = append(cd.Supers, "x.Y")
	again, _ := ix.Get("java.util.Map")
	assert.NotContains(t, again.Supers, "x.Y")
}

func TestSearch(t *testing.T) {
	ix := build(t, utilDir(t))

	tests := []struct {
		name    string
		search  func(string) []*java.ClassDescriptor
		keyword string
		want    []string
	}{
		{"exact simple name", ix.Search, "Entry", []string{"com.x.Entry", "java.util.Map$Entry"}},
		{"exact declaration", ix.Search, "java.util.Map", []string{"java.util.Map"}},
		{"anonymous never matches", ix.Search, "1", nil},
		{"contains ignores case", ix.SearchContains, "ent", []string{"com.x.Entry", "java.util.Map$Entry"}},
		{"contains list", ix.SearchContains, "LIST", []string{"java.util.LinkedList", "java.util.List"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decls(tt.search(tt.keyword)))
		})
	}
}

func TestSearchFuzzy(t *testing.T) {
	ix := build(t, utilDir(t))

	matches := ix.SearchFuzzy("Lst")
	require.NotEmpty(t, matches)
	assert.Equal(t, "java.util.List", matches[0].Class.Declaration)
	assert.Equal(t, 1, matches[0].Distance)
	for _, m := range matches {
		assert.Less(t, m.Distance, len("Lst")+1)
		assert.NotEqual(t, "java.util.LinkedList", m.Class.Declaration)
		assert.NotEqual(t, "java.util.Map$1", m.Class.Declaration)
	}
}

func TestPackageQueries(t *testing.T) {
	ix := build(t, utilDir(t))

	assert.Equal(t, map[string]string{
		"Map":        "java.util.Map",
		"Map$Entry":  "java.util.Map$Entry",
		"Map$1":      "java.util.Map$1",
		"List":       "java.util.List",
		"LinkedList": "java.util.LinkedList",
	}, ix.PackageClasses("java.util.*"))

	std := ix.StandardClasses()
	assert.Equal(t, map[string]string{"String": "java.lang.String"}, std)
	std["Bogus"] = "x.Bogus"
	assert.NotContains(t, ix.StandardClasses(), "Bogus")

	assert.Equal(t, []string{"java.util.Map$Entry"}, decls(ix.InnerClasses("java.util.Map")))
}
