package names

var primitives = map[string]string{
	"byte":    "java.lang.Byte",
	"char":    "java.lang.Character",
	"double":  "java.lang.Double",
	"float":   "java.lang.Float",
	"int":     "java.lang.Integer",
	"long":    "java.lang.Long",
	"short":   "java.lang.Short",
	"void":    "void",
	"boolean": "java.lang.Boolean",
}

var unboxed = func() map[string]string {
	m := make(map[string]string, len(primitives))
	for p, b := range primitives {
		m[b] = p
	}
	return m
}()

// widening lists, per boxed source type, the boxed targets a primitive
// widening conversion reaches, nearest first.
var widening = map[string][]string{
	"java.lang.Character": {"java.lang.Integer", "java.lang.Long", "java.lang.Float", "java.lang.Double"},
	"java.lang.Byte":      {"java.lang.Short", "java.lang.Integer", "java.lang.Long", "java.lang.Float", "java.lang.Double"},
	"java.lang.Short":     {"java.lang.Integer", "java.lang.Long", "java.lang.Float", "java.lang.Double"},
	"java.lang.Integer":   {"java.lang.Long", "java.lang.Float", "java.lang.Double"},
	"java.lang.Long":      {"java.lang.Float", "java.lang.Double"},
	"java.lang.Float":     {"java.lang.Double"},
}

func IsPrimitive(name string) bool {
	_, ok := primitives[name]
	return ok
}

// Box maps a primitive name to its wrapper. Other names pass through.
func Box(name string) string {
	if b, ok := primitives[name]; ok {
		return b
	}
	return name
}

// Unbox maps a wrapper name to its primitive. Other names pass through.
func Unbox(name string) string {
	if p, ok := unboxed[name]; ok && p != "void" {
		return p
	}
	return name
}

// Widening reports how many lattice steps separate from and to when a
// widening primitive conversion exists. Both names may be primitive or
// boxed.
func Widening(from, to string) (int, bool) {
	targets := widening[Box(from)]
	to = Box(to)
	for i, t := range targets {
		if t == to {
			return i + 1, true
		}
	}
	return 0, false
}
