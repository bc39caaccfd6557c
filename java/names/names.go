// Package names holds the canonical string transforms applied to JVM type
// names. Every layer above compares names as strings, so these functions
// must produce exactly the forms the signature parser renders.
package names

import (
	"strings"
)

const (
	ClassTypeVariableMark  = "%%"
	FormalTypeVariableMark = "##"
	InnerMark              = "$"
	CaptureOf              = "capture of "
	Array                  = "[]"
	VarArgs                = "..."
	Object                 = "java.lang.Object"
	LangPackage            = "java.lang"
	NullArgument           = "<null>"
)

var captureReplacer = strings.NewReplacer(
	"capture of ? super ", "",
	"capture of ? extends ", "",
	"  ", " ",
)

var wildcardReplacer = strings.NewReplacer(
	"? super ", "",
	"? extends ", "",
)

var typeMarkReplacer = strings.NewReplacer(
	ClassTypeVariableMark, "",
	FormalTypeVariableMark, "",
)

// ReplaceSlash turns an internal or path-like name into a dotted one.
func ReplaceSlash(name string) string {
	return strings.NewReplacer("/", ".", "\\", ".").Replace(name)
}

func ReplaceInnerMark(name string) string {
	return strings.ReplaceAll(name, InnerMark, ".")
}

// ToInnerClassName turns the last dot into an inner mark. Names that already
// carry one are returned unchanged; names without a dot yield "".
func ToInnerClassName(name string) string {
	if strings.Contains(name, InnerMark) {
		return name
	}
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return name[:i] + InnerMark + name[i+1:]
}

func RemoveTypeMark(name string) string {
	return typeMarkReplacer.Replace(name)
}

// TypeVariable reports whether name is a marked type variable and returns
// it without the mark.
func TypeVariable(name string) (string, bool) {
	switch {
	case strings.HasPrefix(name, ClassTypeVariableMark):
		return name[len(ClassTypeVariableMark):], true
	case strings.HasPrefix(name, FormalTypeVariableMark):
		return name[len(FormalTypeVariableMark):], true
	}
	return name, false
}

func RemoveCapture(name string) string {
	if strings.Contains(name, CaptureOf) {
		return captureReplacer.Replace(name)
	}
	return name
}

func RemoveWildcard(name string) string {
	if strings.HasPrefix(name, "?") {
		return wildcardReplacer.Replace(name)
	}
	return name
}

func RemoveCaptureAndWildcard(name string) string {
	if strings.Contains(name, CaptureOf) {
		return captureReplacer.Replace(name)
	}
	return RemoveWildcard(name)
}

// RemoveWildcards drops every capture and wildcard bound inside a type,
// e.g. "Function<? super T, ? extends R>" becomes "Function<T, R>".
func RemoveWildcards(name string) string {
	name = captureReplacer.Replace(name)
	name = strings.ReplaceAll(name, CaptureOf, "")
	return wildcardReplacer.Replace(name)
}

// RemoveTypeParameter cuts everything from the first '<' to the last '>'.
func RemoveTypeParameter(name string) string {
	return cutBetween(name, '<', '>')
}

// RemoveArray cuts everything from the first '[' to the last ']'.
func RemoveArray(name string) string {
	return cutBetween(name, '[', ']')
}

func RemoveTypeAndArray(name string) string {
	return RemoveArray(RemoveTypeParameter(name))
}

func cutBetween(name string, open, close byte) string {
	i := strings.IndexByte(name, open)
	if i < 0 {
		return name
	}
	j := strings.LastIndexByte(name, close)
	if j < i {
		return name[:i]
	}
	return name[:i] + name[j+1:]
}

func VarArgsToArray(name string) string {
	if strings.HasSuffix(name, VarArgs) {
		return name[:len(name)-len(VarArgs)] + Array
	}
	return name
}

func IsArray(name string) bool {
	return strings.HasSuffix(name, Array)
}

// SimpleName returns the text after the last dot that precedes any type
// arguments or array brackets.
func SimpleName(fqcn string) string {
	head := fqcn
	if i := strings.IndexByte(head, '<'); i >= 0 {
		head = head[:i]
	}
	if i := strings.IndexByte(head, '['); i >= 0 {
		head = head[:i]
	}
	i := strings.LastIndexByte(head, '.')
	if i < 0 {
		return fqcn
	}
	return fqcn[i+1:]
}

func Package(fqcn string) string {
	name := RemoveTypeParameter(fqcn)
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return name[:i]
}

// ParentClass returns the outermost class of an inner class name.
func ParentClass(name string) string {
	n := NewClassName(name).Name()
	if i := strings.Index(n, InnerMark); i > 0 {
		return n[:i]
	}
	return n
}

// AllSimpleName shortens every qualified name inside a type expression,
// e.g. "java.util.Map<java.lang.String, java.util.List<java.lang.Long>>"
// becomes "Map<String, List<Long>>".
func AllSimpleName(name string) string {
	var sb strings.Builder
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		token := name[start:end]
		if i := strings.LastIndexByte(token, '.'); i >= 0 {
			token = token[i+1:]
		}
		sb.WriteString(token)
		start = -1
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if isNameChar(c) {
			if start < 0 {
				start = i
			}
			continue
		}
		// "..." is not part of a name
		if c == '.' && start >= 0 && !strings.HasPrefix(name[i:], VarArgs) {
			continue
		}
		flush(i)
		sb.WriteByte(c)
	}
	flush(len(name))
	return sb.String()
}

func isNameChar(c byte) bool {
	return c == '_' || c == '$' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}

// IsAnonymousClass reports whether the last inner segment is numeric.
func IsAnonymousClass(name string) bool {
	i := strings.LastIndex(name, InnerMark)
	if i < 0 || i == len(name)-1 {
		return false
	}
	for _, c := range name[i+1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
