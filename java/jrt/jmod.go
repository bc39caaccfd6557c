package jrt

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var ErrNotJmod = errors.New("jrt: not a jmod file")

const jmodClassPrefix = "classes/"

// Jmod is an open .jmod file: a four byte "JM" header followed by a zip
// archive whose classes live under classes/.
type Jmod struct {
	f  *os.File
	zr *zip.Reader
}

func OpenJmod(path string) (*Jmod, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open jmod: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat jmod: %w", err)
	}
	var hdr [4]byte
	if _, err := f.ReadAt(hdr[:], 0); err != nil || !bytes.Equal(hdr[:2], []byte("JM")) {
		f.Close()
		return nil, ErrNotJmod
	}
	zr, err := zip.NewReader(io.NewSectionReader(f, 4, st.Size()-4), st.Size()-4)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrNotJmod, err)
	}
	return &Jmod{f: f, zr: zr}, nil
}

func (j *Jmod) Close() error {
	return j.f.Close()
}

// Classes returns the class entries keyed by internal class name.
func (j *Jmod) Classes() map[string]*zip.File {
	out := map[string]*zip.File{}
	for _, f := range j.zr.File {
		if !strings.HasPrefix(f.Name, jmodClassPrefix) || !strings.HasSuffix(f.Name, ".class") {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(f.Name, jmodClassPrefix), ".class")
		if name == "module-info" {
			continue
		}
		out[name] = f
	}
	return out
}

// ReadClass reads the bytes of one class by internal name.
func (j *Jmod) ReadClass(name string) ([]byte, error) {
	for _, f := range j.zr.File {
		if f.Name != jmodClassPrefix+name+".class" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("class %s: %w", name, os.ErrNotExist)
}
