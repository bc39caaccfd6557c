package classfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	ErrInvalidMagic = errors.New("classfile: invalid magic number")
	ErrTruncated    = errors.New("classfile: truncated input")
	ErrBadConstant  = errors.New("classfile: bad constant pool entry")
)

type reader struct {
	r   io.Reader
	err error
}

func (r *reader) fail(err error) {
	if r.err != nil {
		return
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = ErrTruncated
	}
	r.err = err
}

func (r *reader) readU1() uint8 {
	var buf [1]byte
	r.readInto(buf[:])
	return buf[0]
}

func (r *reader) readU2() uint16 {
	var buf [2]byte
	r.readInto(buf[:])
	return binary.BigEndian.Uint16(buf[:])
}

func (r *reader) readU4() uint32 {
	var buf [4]byte
	r.readInto(buf[:])
	return binary.BigEndian.Uint32(buf[:])
}

func (r *reader) readBytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	buf := make([]byte, n)
	r.readInto(buf)
	return buf
}

func (r *reader) readInto(buf []byte) {
	if r.err != nil {
		return
	}
	if _, err := io.ReadFull(r.r, buf); err != nil {
		r.fail(err)
	}
}

func ParseFile(path string) (*ClassFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open class file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func ParseBytes(data []byte) (*ClassFile, error) {
	return Parse(bytes.NewReader(data))
}

func Parse(rd io.Reader) (*ClassFile, error) {
	r := &reader{r: rd}

	magic := r.readU4()
	if r.err != nil {
		return nil, fmt.Errorf("read magic: %w", r.err)
	}
	if magic != Magic {
		return nil, fmt.Errorf("%w: 0x%X", ErrInvalidMagic, magic)
	}

	cf := &ClassFile{
		MinorVersion: r.readU2(),
		MajorVersion: r.readU2(),
	}

	count := r.readU2()
	if r.err != nil {
		return nil, fmt.Errorf("read constant pool count: %w", r.err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: empty constant pool", ErrBadConstant)
	}
	cf.ConstantPool = make(ConstantPool, count-1)
	for i := uint16(1); i < count; i++ {
		c, wide, err := readConstant(r)
		if err != nil {
			return nil, fmt.Errorf("read constant %d: %w", i, err)
		}
		cf.ConstantPool[i-1] = c
		if wide {
			i++
		}
	}

	cf.AccessFlags = AccessFlags(r.readU2())
	cf.ThisClass = r.readU2()
	cf.SuperClass = r.readU2()

	n := r.readU2()
	cf.Interfaces = make([]uint16, 0, n)
	for i := uint16(0); i < n && r.err == nil; i++ {
		cf.Interfaces = append(cf.Interfaces, r.readU2())
	}
	if r.err != nil {
		return nil, fmt.Errorf("read class header: %w", r.err)
	}

	var err error
	if cf.Fields, err = readMembers(r, cf.ConstantPool); err != nil {
		return nil, fmt.Errorf("read fields: %w", err)
	}
	if cf.Methods, err = readMembers(r, cf.ConstantPool); err != nil {
		return nil, fmt.Errorf("read methods: %w", err)
	}
	if cf.Attributes, err = readAttributes(r, cf.ConstantPool); err != nil {
		return nil, fmt.Errorf("read class attributes: %w", err)
	}
	return cf, nil
}

func readConstant(r *reader) (Constant, bool, error) {
	tag := ConstantTag(r.readU1())
	if r.err != nil {
		return Constant{}, false, r.err
	}

	c := Constant{Tag: tag}
	wide := false
	switch tag {
	case ConstantUtf8:
		length := r.readU2()
		c.Utf8 = decodeModifiedUtf8(r.readBytes(int(length)))
	case ConstantInteger, ConstantFloat:
		r.readU4()
	case ConstantLong, ConstantDouble:
		r.readU4()
		r.readU4()
		wide = true
	case ConstantClass, ConstantString, ConstantMethodType, ConstantModule, ConstantPackage:
		c.Ref1 = r.readU2()
	case ConstantFieldref, ConstantMethodref, ConstantInterfaceMethodref,
		ConstantNameAndType, ConstantDynamic, ConstantInvokeDynamic:
		c.Ref1 = r.readU2()
		c.Ref2 = r.readU2()
	case ConstantMethodHandle:
		c.Ref1 = uint16(r.readU1())
		c.Ref2 = r.readU2()
	default:
		return Constant{}, false, fmt.Errorf("%w: tag %d", ErrBadConstant, tag)
	}
	return c, wide, r.err
}

func readMembers(r *reader, cp ConstantPool) ([]Member, error) {
	n := r.readU2()
	if r.err != nil {
		return nil, r.err
	}
	members := make([]Member, 0, n)
	for i := uint16(0); i < n; i++ {
		m := Member{
			AccessFlags: AccessFlags(r.readU2()),
			Name:        cp.Utf8(r.readU2()),
			Descriptor:  cp.Utf8(r.readU2()),
		}
		attrs, err := readAttributes(r, cp)
		if err != nil {
			return nil, err
		}
		m.Attributes = attrs
		members = append(members, m)
	}
	return members, nil
}

func readAttributes(r *reader, cp ConstantPool) ([]Attribute, error) {
	n := r.readU2()
	if r.err != nil {
		return nil, r.err
	}
	attrs := make([]Attribute, 0, n)
	for i := uint16(0); i < n; i++ {
		name := cp.Utf8(r.readU2())
		length := r.readU4()
		info := r.readBytes(int(length))
		if r.err != nil {
			return nil, r.err
		}
		attrs = append(attrs, Attribute{Name: name, Info: info})
	}
	return attrs, nil
}

func decodeModifiedUtf8(b []byte) string {
	runes := make([]rune, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c&0x80 == 0:
			runes = append(runes, rune(c))
			i++
		case c&0xE0 == 0xC0 && i+1 < len(b):
			runes = append(runes, rune(c&0x1F)<<6|rune(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0 && i+2 < len(b):
			r := rune(c&0x0F)<<12 | rune(b[i+1]&0x3F)<<6 | rune(b[i+2]&0x3F)
			if r >= 0xD800 && r <= 0xDBFF && i+5 < len(b) && b[i+3] == 0xED {
				low := rune(b[i+3]&0x0F)<<12 | rune(b[i+4]&0x3F)<<6 | rune(b[i+5]&0x3F)
				if low >= 0xDC00 && low <= 0xDFFF {
					runes = append(runes, 0x10000+((r-0xD800)<<10)+(low-0xDC00))
					i += 6
					continue
				}
			}
			runes = append(runes, r)
			i += 3
		default:
			runes = append(runes, rune(c))
			i++
		}
	}
	return string(runes)
}
