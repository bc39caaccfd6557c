package classfile

import (
	"encoding/binary"
	"sort"
)

type InnerClass struct {
	Inner  string
	Outer  string
	Name   string
	Access AccessFlags
}

type LocalVariable struct {
	StartPC    uint16
	Length     uint16
	Name       string
	Descriptor string
	Slot       uint16
}

func u2(b []byte, off int) (uint16, bool) {
	if off+2 > len(b) {
		return 0, false
	}
	return binary.BigEndian.Uint16(b[off:]), true
}

func u4(b []byte, off int) (uint32, bool) {
	if off+4 > len(b) {
		return 0, false
	}
	return binary.BigEndian.Uint32(b[off:]), true
}

func signatureOf(attrs []Attribute, cp ConstantPool) string {
	a := findAttribute(attrs, AttrSignature)
	if a == nil {
		return ""
	}
	idx, ok := u2(a.Info, 0)
	if !ok {
		return ""
	}
	return cp.Utf8(idx)
}

// Exceptions returns the internal names of the checked exceptions a method
// declares.
func (m *Member) Exceptions(cp ConstantPool) []string {
	a := m.Attribute(AttrExceptions)
	if a == nil {
		return nil
	}
	n, ok := u2(a.Info, 0)
	if !ok {
		return nil
	}
	out := make([]string, 0, n)
	for i := 0; i < int(n); i++ {
		idx, ok := u2(a.Info, 2+i*2)
		if !ok {
			break
		}
		out = append(out, cp.ClassName(idx))
	}
	return out
}

// InnerClasses decodes the class's InnerClasses attribute.
func (cf *ClassFile) InnerClasses() []InnerClass {
	a := findAttribute(cf.Attributes, AttrInnerClasses)
	if a == nil {
		return nil
	}
	n, ok := u2(a.Info, 0)
	if !ok {
		return nil
	}
	cp := cf.ConstantPool
	out := make([]InnerClass, 0, n)
	for i := 0; i < int(n); i++ {
		off := 2 + i*8
		if off+8 > len(a.Info) {
			break
		}
		inner, _ := u2(a.Info, off)
		outer, _ := u2(a.Info, off+2)
		name, _ := u2(a.Info, off+4)
		flags, _ := u2(a.Info, off+6)
		out = append(out, InnerClass{
			Inner:  cp.ClassName(inner),
			Outer:  cp.ClassName(outer),
			Name:   cp.Utf8(name),
			Access: AccessFlags(flags),
		})
	}
	return out
}

// LocalVariables decodes the LocalVariableTable nested in a method's Code
// attribute.
func (m *Member) LocalVariables(cp ConstantPool) []LocalVariable {
	code := m.Attribute(AttrCode)
	if code == nil {
		return nil
	}
	b := code.Info
	codeLen, ok := u4(b, 4)
	if !ok {
		return nil
	}
	off := 8 + int(codeLen)
	excLen, ok := u2(b, off)
	if !ok {
		return nil
	}
	off += 2 + int(excLen)*8
	n, ok := u2(b, off)
	if !ok {
		return nil
	}
	off += 2
	for i := 0; i < int(n); i++ {
		nameIdx, ok1 := u2(b, off)
		length, ok2 := u4(b, off+2)
		if !ok1 || !ok2 {
			return nil
		}
		body := off + 6
		off = body + int(length)
		if off > len(b) {
			return nil
		}
		if cp.Utf8(nameIdx) != AttrLocalVariableTable {
			continue
		}
		return parseLocalVariables(b[body:off], cp)
	}
	return nil
}

func parseLocalVariables(b []byte, cp ConstantPool) []LocalVariable {
	n, ok := u2(b, 0)
	if !ok || len(b) < 2+int(n)*10 {
		return nil
	}
	out := make([]LocalVariable, n)
	for i := range out {
		off := 2 + i*10
		start, _ := u2(b, off)
		length, _ := u2(b, off+2)
		name, _ := u2(b, off+4)
		desc, _ := u2(b, off+6)
		slot, _ := u2(b, off+8)
		out[i] = LocalVariable{
			StartPC:    start,
			Length:     length,
			Name:       cp.Utf8(name),
			Descriptor: cp.Utf8(desc),
			Slot:       slot,
		}
	}
	return out
}

// ParameterNames returns the source names of a method's parameters, taken
// from MethodParameters or, failing that, from the local variable table.
// The result is nil when neither is available or the count does not match
// the descriptor.
func (m *Member) ParameterNames(cp ConstantPool) []string {
	slots := parameterSlots(m.Descriptor, m.AccessFlags.IsStatic())
	if len(slots) == 0 {
		return nil
	}
	if a := m.Attribute(AttrMethodParameters); a != nil && len(a.Info) > 0 {
		n := int(a.Info[0])
		if n == len(slots) && len(a.Info) >= 1+n*4 {
			names := make([]string, n)
			complete := true
			for i := range names {
				idx, _ := u2(a.Info, 1+i*4)
				names[i] = cp.Utf8(idx)
				if names[i] == "" {
					complete = false
				}
			}
			if complete {
				return names
			}
		}
	}

	vars := m.LocalVariables(cp)
	if len(vars) == 0 {
		return nil
	}
	sort.SliceStable(vars, func(i, j int) bool { return vars[i].StartPC < vars[j].StartPC })
	bySlot := make(map[uint16]string, len(vars))
	for _, v := range vars {
		if _, seen := bySlot[v.Slot]; !seen {
			bySlot[v.Slot] = v.Name
		}
	}
	names := make([]string, len(slots))
	for i, s := range slots {
		name, ok := bySlot[s]
		if !ok {
			return nil
		}
		names[i] = name
	}
	return names
}

// parameterSlots maps each descriptor parameter to its local variable slot.
func parameterSlots(desc string, static bool) []uint16 {
	if len(desc) == 0 || desc[0] != '(' {
		return nil
	}
	var slots []uint16
	slot := uint16(1)
	if static {
		slot = 0
	}
	for i := 1; i < len(desc) && desc[i] != ')'; {
		start := i
		for i < len(desc) && desc[i] == '[' {
			i++
		}
		if i >= len(desc) {
			return nil
		}
		array := i > start
		c := desc[i]
		if c == 'L' {
			for i < len(desc) && desc[i] != ';' {
				i++
			}
		}
		i++
		slots = append(slots, slot)
		if !array && (c == 'J' || c == 'D') {
			slot += 2
		} else {
			slot++
		}
	}
	return slots
}

func annotationTypesOf(attrs []Attribute, cp ConstantPool) []string {
	a := findAttribute(attrs, AttrRuntimeVisibleAnnotations)
	if a == nil {
		return nil
	}
	n, ok := u2(a.Info, 0)
	if !ok {
		return nil
	}
	var out []string
	off := 2
	for i := 0; i < int(n); i++ {
		typeIdx, ok := u2(a.Info, off)
		if !ok {
			break
		}
		out = append(out, cp.Utf8(typeIdx))
		if off, ok = skipAnnotation(a.Info, off); !ok {
			break
		}
	}
	return out
}

func skipAnnotation(b []byte, off int) (int, bool) {
	pairs, ok := u2(b, off+2)
	if !ok {
		return 0, false
	}
	off += 4
	for i := 0; i < int(pairs); i++ {
		off += 2
		if off, ok = skipElementValue(b, off); !ok {
			return 0, false
		}
	}
	return off, true
}

func skipElementValue(b []byte, off int) (int, bool) {
	if off >= len(b) {
		return 0, false
	}
	switch b[off] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's', 'c':
		return off + 3, off+3 <= len(b)
	case 'e':
		return off + 5, off+5 <= len(b)
	case '@':
		return skipAnnotation(b, off+1)
	case '[':
		n, ok := u2(b, off+1)
		if !ok {
			return 0, false
		}
		off += 3
		for i := 0; i < int(n); i++ {
			if off, ok = skipElementValue(b, off); !ok {
				return 0, false
			}
		}
		return off, true
	}
	return 0, false
}
