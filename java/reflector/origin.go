package reflector

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dhamidi/classlens/java"
	"github.com/dhamidi/classlens/java/jrt"
)

var ErrNoOrigin = errors.New("reflector: class has no readable origin")

// loader reads class bytes back from the artifact a class was indexed
// from. Archives and images stay open until Close.
type loader struct {
	mu     sync.Mutex
	zips   map[string]*zip.ReadCloser
	jmods  map[string]*jrt.Jmod
	images map[string]*jrt.Image
}

func newLoader() *loader {
	return &loader{
		zips:   map[string]*zip.ReadCloser{},
		jmods:  map[string]*jrt.Jmod{},
		images: map[string]*jrt.Image{},
	}
}

func internalName(decl string) string {
	return strings.ReplaceAll(decl, ".", "/")
}

func (l *loader) read(cd *java.ClassDescriptor) ([]byte, error) {
	path := cd.FilePath
	if path == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoOrigin, cd.Declaration)
	}
	name := internalName(cd.Declaration)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".class":
		return os.ReadFile(path)
	case ".jar", ".zip":
		return l.readZip(path, name)
	case ".jmod":
		return l.readJmod(path, name)
	}
	if st, err := os.Stat(path); err == nil && st.IsDir() {
		return os.ReadFile(filepath.Join(path, filepath.FromSlash(name)+".class"))
	}
	return l.readImage(path, name)
}

func (l *loader) readZip(path, name string) ([]byte, error) {
	l.mu.Lock()
	zr, ok := l.zips[path]
	if !ok {
		var err error
		zr, err = zip.OpenReader(path)
		if err != nil {
			l.mu.Unlock()
			return nil, fmt.Errorf("open archive: %w", err)
		}
		l.zips[path] = zr
	}
	l.mu.Unlock()

	f, err := zr.Open(name + ".class")
	if err != nil {
		return nil, fmt.Errorf("read %s from %s: %w", name, path, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (l *loader) readJmod(path, name string) ([]byte, error) {
	l.mu.Lock()
	j, ok := l.jmods[path]
	if !ok {
		var err error
		j, err = jrt.OpenJmod(path)
		if err != nil {
			l.mu.Unlock()
			return nil, err
		}
		l.jmods[path] = j
	}
	l.mu.Unlock()
	return j.ReadClass(name)
}

func (l *loader) readImage(path, name string) ([]byte, error) {
	l.mu.Lock()
	img, ok := l.images[path]
	if !ok {
		var err error
		img, err = jrt.Open(path)
		if err != nil {
			l.mu.Unlock()
			return nil, err
		}
		l.images[path] = img
	}
	l.mu.Unlock()

	e, ok := img.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("read %s from %s: %w", name, path, os.ErrNotExist)
	}
	return img.Read(e)
}

func (l *loader) close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var errs []error
	for p, z := range l.zips {
		errs = append(errs, z.Close())
		delete(l.zips, p)
	}
	for p, j := range l.jmods {
		errs = append(errs, j.Close())
		delete(l.jmods, p)
	}
	for p, img := range l.images {
		errs = append(errs, img.Close())
		delete(l.images, p)
	}
	return errors.Join(errs...)
}
