package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhamidi/classlens/config"
	"github.com/dhamidi/classlens/internal/classgen"
	"github.com/dhamidi/classlens/java/resolver"
	"github.com/dhamidi/classlens/java/source"
)

func open(t *testing.T) (*Session, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, classgen.WriteDir(dir,
		&classgen.Class{Name: "java/lang/Object", NoSuper: true},
		&classgen.Class{Name: "com/acme/Foo"},
	))
	cfg := config.Default(dir)
	cfg.Index.Classpath = []string{"."}
	cfg.Watch.Debounce = 20 * time.Millisecond

	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, dir
}

func TestOpen(t *testing.T) {
	s, _ := open(t)
	assert.True(t, s.Index.Contains("com.acme.Foo"))

	f := source.NewFile("Bar.java", "com.acme")
	got, ok := s.Resolver.Resolve("Foo", resolver.Context{File: f})
	require.True(t, ok)
	assert.Equal(t, "com.acme.Foo", got)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default(t.TempDir())
	cfg.Index.Workers = -1
	_, err := New(cfg)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestRefreshPicksUpNewClasses(t *testing.T) {
	s, dir := open(t)
	require.NoError(t, classgen.WriteDir(dir, &classgen.Class{Name: "com/acme/Bar"}))
	assert.False(t, s.Index.Contains("com.acme.Bar"))

	require.NoError(t, s.Refresh(context.Background()))
	assert.True(t, s.Index.Contains("com.acme.Bar"))
	assert.True(t, s.Index.Contains("com.acme.Foo"))
}

func TestWatchRefreshesOnChange(t *testing.T) {
	s, dir := open(t)
	refreshed := make(chan []string, 4)
	require.NoError(t, s.Watch(context.Background(), func(changed []string, err error) {
		assert.NoError(t, err)
		select {
		case refreshed <- changed:
		default:
		}
	}))

	require.NoError(t, classgen.WriteDir(dir, &classgen.Class{Name: "com/acme/Baz"}))
	select {
	case changed := <-refreshed:
		assert.NotEmpty(t, changed)
	case <-time.After(5 * time.Second):
		t.Fatal("no refresh after writing a class file")
	}
	assert.Eventually(t, func() bool {
		return s.Index.Contains("com.acme.Baz")
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatchNeedsDirectories(t *testing.T) {
	cfg := config.Default(t.TempDir())
	s, err := New(cfg)
	require.NoError(t, err)
	defer s.Close()
	assert.Error(t, s.Watch(context.Background(), nil))
}

func TestWatcherDebounces(t *testing.T) {
	dir := t.TempDir()
	got := make(chan []string, 4)
	w, err := NewWatcher(50*time.Millisecond, func(paths []string) { got <- paths })
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch([]string{dir}))

	w.schedule(dir + "/A.class")
	w.schedule(dir + "/B.class")
	select {
	case paths := <-got:
		assert.ElementsMatch(t, []string{dir + "/A.class", dir + "/B.class"}, paths)
	case <-time.After(5 * time.Second):
		t.Fatal("debounced change never delivered")
	}

	_, err = NewWatcher(time.Millisecond, nil)
	assert.Error(t, err)
}
