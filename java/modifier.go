package java

import (
	"strings"

	"github.com/dhamidi/classlens/classfile"
)

// ModifierString renders access flags in declaration order. Flags whose
// bit is shared between members and classes are only applied to methods.
func ModifierString(flags classfile.AccessFlags, kind MemberKind, isDefault bool) string {
	var mods []string
	add := func(ok bool, s string) {
		if ok {
			mods = append(mods, s)
		}
	}
	method := kind == MethodKind || kind == ConstructorKind
	add(flags.IsPrivate(), "private")
	add(flags.IsPublic(), "public")
	add(flags.IsProtected(), "protected")
	add(flags.IsStatic(), "static")
	add(flags.IsAbstract(), "abstract")
	add(flags.IsFinal(), "final")
	add(flags.IsInterface(), "interface")
	add(method && flags.IsNative(), "native")
	add(method && flags.IsStrict(), "strict")
	add(method && flags.IsSynchronized(), "synchronized")
	add(isDefault, "default")
	return strings.Join(mods, " ")
}
