// Package resolver turns the type names written in a source file into
// fully qualified class names, using the file's imports and scopes and the
// class index.
package resolver

import (
	"strings"

	"github.com/tliron/commonlog"

	"github.com/dhamidi/classlens/java/index"
	"github.com/dhamidi/classlens/java/names"
	"github.com/dhamidi/classlens/java/reflector"
	"github.com/dhamidi/classlens/java/source"
)

var log = commonlog.GetLogger("classlens.resolver")

const (
	This  = "this"
	Super = "super"
)

// Context places a name in a file. A nil Scope stands for the scope the
// file's walker currently has open.
type Context struct {
	File  *source.File
	Scope *source.Scope
}

// At returns the context of line in a fully built file.
func At(f *source.File, line int) Context {
	s, _ := f.InnermostAt(line)
	return Context{File: f, Scope: s}
}

func (c Context) scope() (*source.Scope, bool) {
	if c.Scope != nil {
		return c.Scope, true
	}
	return c.File.Current()
}

// Type returns the innermost type scope around the context.
func (c Context) Type() (*source.Scope, bool) {
	s, ok := c.scope()
	for ok && s.Kind != source.TypeScope {
		s, ok = c.File.Parent(s)
	}
	return s, ok
}

func (c Context) pkg() string {
	if t, ok := c.Type(); ok {
		return t.Type.Package
	}
	return c.File.Package
}

type Resolver struct {
	index     *index.Index
	reflector *reflector.Reflector
}

func New(ix *index.Index, r *reflector.Reflector) *Resolver {
	return &Resolver{index: ix, reflector: r}
}

type strategy func(r *Resolver, cn names.ClassName, base string, ctx Context) (string, bool)

var strategies = []struct {
	name string
	fn   strategy
}{
	{"this", (*Resolver).this},
	{"bound", (*Resolver).bound},
	{"primitive", (*Resolver).primitive},
	{"import", (*Resolver).imported},
	{"package", (*Resolver).samePackage},
	{"java.lang", (*Resolver).standard},
	{"file", (*Resolver).declared},
	{"inner", (*Resolver).inner},
}

// Resolve returns the fully qualified form of the type name as written
// at ctx. Type arguments and array brackets on name are kept.
func (r *Resolver) Resolve(name string, ctx Context) (string, bool) {
	if stem, ok := strings.CutSuffix(name, names.VarArgs); ok {
		fqcn, ok := r.Resolve(stem, ctx)
		if !ok {
			return "", false
		}
		return fqcn + names.VarArgs, true
	}
	if fqcn, ok := r.preCheck(name, ctx); ok {
		return fqcn, true
	}

	cn := names.NewClassName(names.RemoveCapture(name))
	base := cn.Name()
	if base == "" {
		return "", false
	}
	if strings.Contains(base, ".") {
		if fqcn, ok := r.qualified(cn, base, ctx); ok {
			return fqcn, true
		}
		log.Debugf("unresolved %s in %s", name, ctx.File.Path)
		return "", false
	}

	for _, s := range strategies {
		if fqcn, ok := s.fn(r, cn, base, ctx); ok {
			log.Debugf("resolved %s by %s: %s", name, s.name, fqcn)
			return fqcn, true
		}
	}
	log.Debugf("unresolved %s in %s", name, ctx.File.Path)
	return "", false
}

// boundOf finds the bound of a type parameter declared on the current
// type or a type enclosing it.
func boundOf(name string, ctx Context) (string, bool) {
	t, ok := ctx.Type()
	for ok {
		if t.Kind == source.TypeScope {
			if b, ok := t.Type.Bounds[name]; ok {
				return b, true
			}
		}
		t, ok = ctx.File.Parent(t)
	}
	return "", false
}

func (r *Resolver) preCheck(name string, ctx Context) (string, bool) {
	if b, ok := boundOf(name, ctx); ok {
		return b, true
	}
	if strings.HasPrefix(name, names.CaptureOf) {
		return name, true
	}
	return "", false
}

// qualified handles names that contain a dot: a class the index knows,
// or an outer class followed by nested class names.
func (r *Resolver) qualified(cn names.ClassName, base string, ctx Context) (string, bool) {
	if r.index.Contains(base) || ctx.File.HasType(base) {
		return cn.AddTypeParameters(base), true
	}
	parts := strings.Split(base, ".")
	for k := len(parts) - 1; k >= 1; k-- {
		head := strings.Join(parts[:k], ".")
		nested := names.InnerMark + strings.Join(parts[k:], names.InnerMark)
		if r.index.Contains(head + nested) {
			return cn.AddTypeParameters(head + nested), true
		}
	}
	// Outer.Inner with Outer itself resolved through the file
	head, rest, _ := strings.Cut(base, ".")
	outer, ok := r.Resolve(head, ctx)
	if !ok {
		return "", false
	}
	fqcn := names.RemoveTypeParameter(outer) + names.InnerMark + strings.ReplaceAll(rest, ".", names.InnerMark)
	if r.index.Contains(fqcn) || ctx.File.HasType(fqcn) {
		return cn.AddTypeParameters(fqcn), true
	}
	return "", false
}

func (r *Resolver) this(_ names.ClassName, base string, ctx Context) (string, bool) {
	switch base {
	case This:
		if t, ok := ctx.Type(); ok {
			return t.Type.FQCN, true
		}
		if ts := ctx.File.Types(); len(ts) > 0 {
			return ts[0].Type.FQCN, true
		}
	case Super:
		t, ok := ctx.Type()
		if !ok {
			return "", false
		}
		if supers := t.Type.Supers(); len(supers) > 0 {
			return supers[0], true
		}
		if !t.Type.IsInterface {
			return names.Object, true
		}
	}
	return "", false
}

func (r *Resolver) bound(cn names.ClassName, base string, ctx Context) (string, bool) {
	b, ok := boundOf(base, ctx)
	if !ok {
		return "", false
	}
	return cn.AddTypeParameters(b), true
}

func (r *Resolver) primitive(cn names.ClassName, base string, _ Context) (string, bool) {
	if !names.IsPrimitive(base) {
		return "", false
	}
	return cn.AddTypeParameters(base), true
}

func (r *Resolver) imported(cn names.ClassName, base string, ctx Context) (string, bool) {
	if fqcn, ok := ctx.File.Imports[base]; ok {
		return cn.AddTypeParameters(fqcn), true
	}
	for _, pkg := range ctx.File.OnDemand {
		// "import a.b.*" names a package, "import a.b.Outer.*" a class
		for _, fqcn := range []string{pkg + "." + base, pkg + names.InnerMark + base} {
			if r.index.Contains(fqcn) {
				return cn.AddTypeParameters(fqcn), true
			}
		}
	}
	return "", false
}

func (r *Resolver) samePackage(cn names.ClassName, base string, ctx Context) (string, bool) {
	fqcn := base
	if pkg := ctx.pkg(); pkg != "" {
		fqcn = pkg + "." + base
	}
	if !r.index.Contains(fqcn) {
		return "", false
	}
	return cn.AddTypeParameters(fqcn), true
}

func (r *Resolver) standard(cn names.ClassName, base string, _ Context) (string, bool) {
	fqcn, ok := r.index.StandardClasses()[base]
	if !ok {
		return "", false
	}
	return cn.AddTypeParameters(fqcn), true
}

// declared finds a type declared in the file itself, the current type
// first.
func (r *Resolver) declared(cn names.ClassName, base string, ctx Context) (string, bool) {
	if t, ok := ctx.Type(); ok && t.Name == base {
		return cn.AddTypeParameters(t.Type.FQCN), true
	}
	for _, t := range ctx.File.Types() {
		if t.Name == base {
			return cn.AddTypeParameters(t.Type.FQCN), true
		}
	}
	return "", false
}

// inner probes Enclosing$base from the current type outwards, and
// Ancestor$base for the ancestors of each enclosing class.
func (r *Resolver) inner(cn names.ClassName, base string, ctx Context) (string, bool) {
	t, ok := ctx.Type()
	if !ok {
		return "", false
	}
	parent := t.Type.FQCN
	for {
		if fqcn, ok := r.probe(parent, base, declaredSupers(ctx.File, parent)); ok {
			return cn.AddTypeParameters(fqcn), true
		}
		i := strings.LastIndex(parent, names.InnerMark)
		if i < 0 {
			return "", false
		}
		parent = parent[:i]
	}
}

func declaredSupers(f *source.File, fqcn string) []string {
	for _, t := range f.Types() {
		if t.Type.FQCN == fqcn {
			return t.Type.Supers()
		}
	}
	return nil
}

func (r *Resolver) probe(parent, base string, declared []string) (string, bool) {
	if names.SimpleName(parent) == base && r.index.Contains(parent) {
		return parent, true
	}
	if fqcn := parent + names.InnerMark + base; r.index.Contains(fqcn) {
		return fqcn, true
	}

	// a class not compiled yet only knows the supertypes it declares
	ancestors := declared
	if r.index.Contains(parent) {
		ancestors = r.index.SuperClasses(parent)
	} else {
		for _, d := range declared {
			ancestors = append(ancestors, r.index.SuperClasses(d)...)
		}
	}
	for _, a := range ancestors {
		fqcn := names.RemoveTypeParameter(a) + names.InnerMark + base
		if r.index.Contains(fqcn) {
			return fqcn, true
		}
	}
	return "", false
}

// ResolveSymbol returns the type of the variable or field name visible
// at ctx. Names that are not variables are resolved as class names.
func (r *Resolver) ResolveSymbol(name string, ctx Context) (string, bool) {
	if field, ok := strings.CutPrefix(name, This+"."); ok {
		return r.field(field, ctx)
	}

	s, ok := ctx.scope()
	for ok {
		for _, v := range s.Declarations() {
			if v.Name == name {
				return v.Type, true
			}
		}
		if s.Kind == source.TypeScope {
			if v, ok := s.Type.Fields[name]; ok {
				return v.Type, true
			}
		}
		s, ok = ctx.File.Parent(s)
	}
	if fqcn, ok := r.field(name, ctx); ok {
		return fqcn, true
	}
	if owner, ok := ctx.File.StaticImports[name]; ok {
		if m, ok := r.reflector.Field(owner, name); ok {
			return m.ReturnType(), true
		}
	}
	for _, owner := range ctx.File.StaticOnDemand {
		if m, ok := r.reflector.Field(owner, name); ok && m.IsStatic() {
			return m.ReturnType(), true
		}
	}
	return r.Resolve(name, ctx)
}

// field looks name up on the current type: its declared fields, then
// those of the other types in the file, then inherited ones.
func (r *Resolver) field(name string, ctx Context) (string, bool) {
	t, ok := ctx.Type()
	if !ok {
		for _, ts := range ctx.File.Types() {
			if v, ok := ts.Type.Fields[name]; ok {
				return v.Type, true
			}
		}
		return "", false
	}
	if v, ok := t.Type.Fields[name]; ok {
		return v.Type, true
	}
	for p, ok := ctx.File.Parent(t); ok; p, ok = ctx.File.Parent(p) {
		if p.Kind != source.TypeScope {
			continue
		}
		if v, ok := p.Type.Fields[name]; ok {
			return v.Type, true
		}
	}
	for _, class := range append([]string{t.Type.FQCN}, t.Type.Supers()...) {
		if m, ok := r.reflector.Field(class, name); ok {
			return m.ReturnType(), true
		}
	}
	return "", false
}

// ResolveThisScope returns the type of a field declared on the current
// type only.
func (r *Resolver) ResolveThisScope(name string, ctx Context) (string, bool) {
	if fqcn, ok := r.preCheck(name, ctx); ok {
		return fqcn, true
	}
	t, ok := ctx.Type()
	if !ok {
		return "", false
	}
	name = strings.TrimPrefix(names.RemoveCapture(name), This+".")
	v, ok := t.Type.Fields[name]
	if !ok {
		log.Debugf("no field %s on %s", name, t.Type.FQCN)
		return "", false
	}
	return v.Type, true
}
