// Package jrt reads classes out of a Java runtime: the jimage container
// found at lib/modules in JDK 9+ and individual .jmod files.
package jrt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	imageMagic  = 0xCAFEDADA
	headerWords = 7
	headerSize  = headerWords * 4
)

const (
	attrEnd = iota
	attrModule
	attrParent
	attrBase
	attrExtension
	attrOffset
	attrCompressed
	attrUncompressed
	attrCount
)

var (
	ErrNotImage   = errors.New("jrt: not a jimage file")
	ErrCompressed = errors.New("jrt: compressed resource")
)

// Entry locates one class resource inside an image.
type Entry struct {
	Module string
	// Name is the internal class name, e.g. "java/lang/String".
	Name   string
	offset uint64
	size   uint64
	packed uint64
}

type Image struct {
	path      string
	f         *os.File
	order     binary.ByteOrder
	index     []byte
	tableLen  uint32
	locations []byte
	strings   []byte
	indexSize uint64

	once    sync.Once
	entries []Entry
	byName  map[string]int
}

// Open reads the index of the image at path. Resource bytes are read on
// demand.
func Open(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	img := &Image{path: path, f: f}
	if err := img.readIndex(); err != nil {
		f.Close()
		return nil, err
	}
	return img, nil
}

func (img *Image) Path() string { return img.path }

func (img *Image) Close() error {
	return img.f.Close()
}

func (img *Image) readIndex() error {
	var hdr [headerSize]byte
	if _, err := img.f.ReadAt(hdr[:], 0); err != nil {
		return fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	switch {
	case binary.LittleEndian.Uint32(hdr[:]) == imageMagic:
		img.order = binary.LittleEndian
	case binary.BigEndian.Uint32(hdr[:]) == imageMagic:
		img.order = binary.BigEndian
	default:
		return ErrNotImage
	}
	word := func(i int) uint32 { return img.order.Uint32(hdr[i*4:]) }
	img.tableLen = word(4)
	locSize, strSize := word(5), word(6)
	img.indexSize = headerSize + uint64(img.tableLen)*8 + uint64(locSize) + uint64(strSize)

	img.index = make([]byte, img.indexSize)
	if _, err := img.f.ReadAt(img.index, 0); err != nil {
		return fmt.Errorf("read image index: %w", err)
	}
	locStart := headerSize + uint64(img.tableLen)*8
	img.locations = img.index[locStart : locStart+uint64(locSize)]
	img.strings = img.index[locStart+uint64(locSize):]
	return nil
}

func (img *Image) offsetAt(i uint32) uint32 {
	base := headerSize + uint64(img.tableLen)*4 + uint64(i)*4
	return img.order.Uint32(img.index[base:])
}

func (img *Image) stringAt(off uint64) string {
	if off >= uint64(len(img.strings)) {
		return ""
	}
	s := img.strings[off:]
	if end := strings.IndexByte(string(s), 0); end >= 0 {
		s = s[:end]
	}
	return string(s)
}

func (img *Image) decodeLocation(off uint32) ([attrCount]uint64, bool) {
	var attrs [attrCount]uint64
	p := int(off)
	for p < len(img.locations) {
		b := img.locations[p]
		kind := b >> 3
		if kind == attrEnd {
			return attrs, true
		}
		n := int(b&7) + 1
		if kind >= attrCount || p+1+n > len(img.locations) {
			return attrs, false
		}
		var v uint64
		for _, c := range img.locations[p+1 : p+1+n] {
			v = v<<8 | uint64(c)
		}
		attrs[kind] = v
		p += 1 + n
	}
	return attrs, false
}

func (img *Image) load() {
	img.byName = map[string]int{}
	for i := uint32(0); i < img.tableLen; i++ {
		attrs, ok := img.decodeLocation(img.offsetAt(i))
		if !ok {
			continue
		}
		module := img.stringAt(attrs[attrModule])
		if module == "" || module == "modules" || module == "packages" {
			continue
		}
		if img.stringAt(attrs[attrExtension]) != "class" {
			continue
		}
		base := img.stringAt(attrs[attrBase])
		if base == "module-info" {
			continue
		}
		name := base
		if parent := img.stringAt(attrs[attrParent]); parent != "" {
			name = parent + "/" + base
		}
		img.byName[name] = len(img.entries)
		img.entries = append(img.entries, Entry{
			Module: module,
			Name:   name,
			offset: attrs[attrOffset],
			size:   attrs[attrUncompressed],
			packed: attrs[attrCompressed],
		})
	}
}

// Classes lists every class resource in the image.
func (img *Image) Classes() []Entry {
	img.once.Do(img.load)
	return img.entries
}

// Lookup finds a class by internal name.
func (img *Image) Lookup(name string) (Entry, bool) {
	img.once.Do(img.load)
	i, ok := img.byName[name]
	if !ok {
		return Entry{}, false
	}
	return img.entries[i], true
}

// Read returns the bytes of an uncompressed resource.
func (img *Image) Read(e Entry) ([]byte, error) {
	if e.packed != 0 {
		return nil, fmt.Errorf("%w: %s", ErrCompressed, e.Name)
	}
	buf := make([]byte, e.size)
	if _, err := img.f.ReadAt(buf, int64(img.indexSize+e.offset)); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read %s: %w", e.Name, err)
	}
	return buf, nil
}

// ImagePath returns the module image of a JDK home, or "" when javaHome
// has none.
func ImagePath(javaHome string) string {
	p := filepath.Join(javaHome, "lib", "modules")
	if st, err := os.Stat(p); err == nil && !st.IsDir() {
		return p
	}
	return ""
}
