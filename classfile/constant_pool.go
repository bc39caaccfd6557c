package classfile

// Constant is one constant pool slot. Only the fields meaningful for Tag are
// set: Utf8 for ConstantUtf8, Ref1 for single-reference entries, Ref1/Ref2
// for pairs. Numeric values are skipped.
type Constant struct {
	Tag  ConstantTag
	Utf8 string
	Ref1 uint16
	Ref2 uint16
}

// ConstantPool is indexed by the 1-based constant pool index minus one.
// The slot following a long or double is left zero.
type ConstantPool []Constant

func (cp ConstantPool) at(index uint16, tag ConstantTag) (Constant, bool) {
	if index == 0 || int(index) > len(cp) {
		return Constant{}, false
	}
	c := cp[index-1]
	if c.Tag != tag {
		return Constant{}, false
	}
	return c, true
}

func (cp ConstantPool) Utf8(index uint16) string {
	c, _ := cp.at(index, ConstantUtf8)
	return c.Utf8
}

// ClassName returns the internal (slash separated) name of a Class entry.
func (cp ConstantPool) ClassName(index uint16) string {
	c, ok := cp.at(index, ConstantClass)
	if !ok {
		return ""
	}
	return cp.Utf8(c.Ref1)
}

func (cp ConstantPool) NameAndType(index uint16) (name, descriptor string) {
	c, ok := cp.at(index, ConstantNameAndType)
	if !ok {
		return "", ""
	}
	return cp.Utf8(c.Ref1), cp.Utf8(c.Ref2)
}

func (cp ConstantPool) String(index uint16) string {
	c, ok := cp.at(index, ConstantString)
	if !ok {
		return ""
	}
	return cp.Utf8(c.Ref1)
}
