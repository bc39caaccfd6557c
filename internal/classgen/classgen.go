// Package classgen assembles minimal class files in memory so tests can
// exercise the scanner and reflector without a compiler.
package classgen

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dhamidi/classlens/classfile"
)

// Interface is the access mask javac emits for a public interface.
const Interface = classfile.AccPublic | classfile.AccInterface | classfile.AccAbstract

type Class struct {
	Name         string
	Super        string
	NoSuper      bool
	Interfaces   []string
	Access       classfile.AccessFlags
	Signature    string
	Annotations  []string
	Fields       []Field
	Methods      []Method
	InnerClasses []classfile.InnerClass
}

type Field struct {
	Access     classfile.AccessFlags
	Name       string
	Descriptor string
	Signature  string
}

type Method struct {
	Access     classfile.AccessFlags
	Name       string
	Descriptor string
	Signature  string
	Exceptions []string
	// Code adds a trivial body. It is implied by LocalVars.
	Code       bool
	ParamNames []string
	LocalVars  []classfile.LocalVariable
}

type pool struct {
	entries [][]byte
	index   map[string]uint16
}

func newPool() *pool {
	return &pool{index: map[string]uint16{}}
}

func (p *pool) add(key string, entry []byte) uint16 {
	if idx, ok := p.index[key]; ok {
		return idx
	}
	p.entries = append(p.entries, entry)
	idx := uint16(len(p.entries))
	p.index[key] = idx
	return idx
}

func (p *pool) utf8(s string) uint16 {
	b := []byte{byte(classfile.ConstantUtf8)}
	b = binary.BigEndian.AppendUint16(b, uint16(len(s)))
	b = append(b, s...)
	return p.add("u:"+s, b)
}

func (p *pool) class(name string) uint16 {
	idx := p.utf8(name)
	b := []byte{byte(classfile.ConstantClass)}
	b = binary.BigEndian.AppendUint16(b, idx)
	return p.add("c:"+name, b)
}

type buf struct{ bytes.Buffer }

func (b *buf) u1(v uint8)  { b.WriteByte(v) }
func (b *buf) u2(v uint16) { b.Write(binary.BigEndian.AppendUint16(nil, v)) }
func (b *buf) u4(v uint32) { b.Write(binary.BigEndian.AppendUint32(nil, v)) }

func (b *buf) attr(p *pool, name string, body []byte) {
	b.u2(p.utf8(name))
	b.u4(uint32(len(body)))
	b.Write(body)
}

// Bytes renders the class file.
func (c *Class) Bytes() []byte {
	p := newPool()
	var body buf

	access := c.Access
	if access == 0 {
		access = classfile.AccPublic | classfile.AccSuper
	}
	body.u2(uint16(access))
	body.u2(p.class(c.Name))
	switch {
	case c.NoSuper:
		body.u2(0)
	case c.Super != "":
		body.u2(p.class(c.Super))
	default:
		body.u2(p.class("java/lang/Object"))
	}
	body.u2(uint16(len(c.Interfaces)))
	for _, i := range c.Interfaces {
		body.u2(p.class(i))
	}

	body.u2(uint16(len(c.Fields)))
	for _, f := range c.Fields {
		body.u2(uint16(f.Access))
		body.u2(p.utf8(f.Name))
		body.u2(p.utf8(f.Descriptor))
		var attrs []func()
		if f.Signature != "" {
			attrs = append(attrs, func() { body.attr(p, classfile.AttrSignature, ref(p.utf8(f.Signature))) })
		}
		body.u2(uint16(len(attrs)))
		for _, a := range attrs {
			a()
		}
	}

	body.u2(uint16(len(c.Methods)))
	for _, m := range c.Methods {
		writeMethod(&body, p, m)
	}

	var attrs []func()
	if c.Signature != "" {
		attrs = append(attrs, func() { body.attr(p, classfile.AttrSignature, ref(p.utf8(c.Signature))) })
	}
	if len(c.Annotations) > 0 {
		attrs = append(attrs, func() { body.attr(p, classfile.AttrRuntimeVisibleAnnotations, annotations(p, c.Annotations)) })
	}
	if len(c.InnerClasses) > 0 {
		attrs = append(attrs, func() {
			var ic buf
			ic.u2(uint16(len(c.InnerClasses)))
			for _, e := range c.InnerClasses {
				ic.u2(p.class(e.Inner))
				if e.Outer != "" {
					ic.u2(p.class(e.Outer))
				} else {
					ic.u2(0)
				}
				if e.Name != "" {
					ic.u2(p.utf8(e.Name))
				} else {
					ic.u2(0)
				}
				ic.u2(uint16(e.Access))
			}
			body.attr(p, classfile.AttrInnerClasses, ic.Bytes())
		})
	}
	body.u2(uint16(len(attrs)))
	for _, a := range attrs {
		a()
	}

	var out buf
	out.u4(classfile.Magic)
	out.u2(0)
	out.u2(61)
	out.u2(uint16(len(p.entries) + 1))
	for _, e := range p.entries {
		out.Write(e)
	}
	out.Write(body.Bytes())
	return out.Bytes()
}

func writeMethod(body *buf, p *pool, m Method) {
	body.u2(uint16(m.Access))
	body.u2(p.utf8(m.Name))
	body.u2(p.utf8(m.Descriptor))

	var attrs []func()
	if m.Code || len(m.LocalVars) > 0 {
		attrs = append(attrs, func() { body.attr(p, classfile.AttrCode, code(p, m.LocalVars)) })
	}
	if m.Signature != "" {
		attrs = append(attrs, func() { body.attr(p, classfile.AttrSignature, ref(p.utf8(m.Signature))) })
	}
	if len(m.Exceptions) > 0 {
		attrs = append(attrs, func() {
			var ex buf
			ex.u2(uint16(len(m.Exceptions)))
			for _, e := range m.Exceptions {
				ex.u2(p.class(e))
			}
			body.attr(p, classfile.AttrExceptions, ex.Bytes())
		})
	}
	if len(m.ParamNames) > 0 {
		attrs = append(attrs, func() {
			var mp buf
			mp.u1(uint8(len(m.ParamNames)))
			for _, n := range m.ParamNames {
				mp.u2(p.utf8(n))
				mp.u2(0)
			}
			body.attr(p, classfile.AttrMethodParameters, mp.Bytes())
		})
	}
	body.u2(uint16(len(attrs)))
	for _, a := range attrs {
		a()
	}
}

func code(p *pool, vars []classfile.LocalVariable) []byte {
	var c buf
	c.u2(1)
	c.u2(uint16(len(vars) + 1))
	c.u4(1)
	c.u1(0xb1) // return
	c.u2(0)
	if len(vars) == 0 {
		c.u2(0)
		return c.Bytes()
	}
	c.u2(1)
	var lvt buf
	lvt.u2(uint16(len(vars)))
	for _, v := range vars {
		lvt.u2(v.StartPC)
		lvt.u2(v.Length)
		lvt.u2(p.utf8(v.Name))
		lvt.u2(p.utf8(v.Descriptor))
		lvt.u2(v.Slot)
	}
	c.attr(p, classfile.AttrLocalVariableTable, lvt.Bytes())
	return c.Bytes()
}

func annotations(p *pool, types []string) []byte {
	var a buf
	a.u2(uint16(len(types)))
	for _, t := range types {
		a.u2(p.utf8(t))
		a.u2(0)
	}
	return a.Bytes()
}

func ref(idx uint16) []byte {
	return binary.BigEndian.AppendUint16(nil, idx)
}

// WriteDir writes each class under root following its package layout.
func WriteDir(root string, classes ...*Class) error {
	for _, c := range classes {
		path := filepath.Join(root, filepath.FromSlash(c.Name)+".class")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create package dir: %w", err)
		}
		if err := os.WriteFile(path, c.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write class: %w", err)
		}
	}
	return nil
}

// WriteJar writes the classes into a new archive at path.
func WriteJar(path string, classes ...*Class) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create jar: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, c := range classes {
		w, err := zw.Create(c.Name + ".class")
		if err != nil {
			return fmt.Errorf("create jar entry: %w", err)
		}
		if _, err := w.Write(c.Bytes()); err != nil {
			return fmt.Errorf("write jar entry: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close jar: %w", err)
	}
	return nil
}
