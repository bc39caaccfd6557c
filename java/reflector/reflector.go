// Package reflector computes the complete, type-substituted member list of
// a class: its own members plus everything inherited along the ancestor
// chain, with generic type arguments propagated through each supertype.
package reflector

import (
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tliron/commonlog"

	"github.com/dhamidi/classlens/classfile"
	"github.com/dhamidi/classlens/java"
	"github.com/dhamidi/classlens/java/index"
	"github.com/dhamidi/classlens/java/names"
)

var log = commonlog.GetLogger("classlens.reflector")

const DefaultCacheSize = 1024

type Options struct {
	// CacheSize bounds each member cache. Zero means DefaultCacheSize.
	CacheSize      int
	IncludePrivate bool
}

// Reflector reads members back from class origins on demand and caches
// them. Cached lists are templates; callers always receive copies.
type Reflector struct {
	index          *index.Index
	includePrivate bool
	loader         *loader

	// declared holds members per class as referenced, type arguments
	// included, e.g. "java.util.AbstractList<%%E>".
	declared *lru.Cache[string, []*java.Member]
	// merged holds the inherited member set per raw class name.
	merged *lru.Cache[string, []*java.Member]
}

func New(ix *index.Index, opts Options) *Reflector {
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	declared, _ := lru.New[string, []*java.Member](size)
	merged, _ := lru.New[string, []*java.Member](size)
	return &Reflector{
		index:          ix,
		includePrivate: opts.IncludePrivate,
		loader:         newLoader(),
		declared:       declared,
		merged:         merged,
	}
}

// Reset drops every cached member list. Call it after the index changed.
func (r *Reflector) Reset() {
	r.declared.Purge()
	r.merged.Purge()
}

// Close releases the archives and images opened for reading members.
func (r *Reflector) Close() error {
	return r.loader.close()
}

// Reflect returns every member visible on name. Explicit type arguments
// on name, as in "java.util.Map<java.lang.String, java.lang.Long>", are
// bound positionally to the class's formals. Unknown classes yield nil.
func (r *Reflector) Reflect(name string) []*java.Member {
	cd, name, ok := r.lookup(name)
	if !ok {
		log.Debugf("reflect %s: not indexed", name)
		return nil
	}
	cn := names.NewClassName(name)
	raw := cd.Declaration

	tmpl, ok := r.merged.Get(raw)
	if !ok {
		tmpl = r.inherit(raw)
		r.merged.Add(raw, tmpl)
	}
	out := java.CloneMembers(tmpl)
	if !cn.HasTypeParameter() {
		return out
	}

	reals := cn.TypeParameters()
	for _, m := range out {
		if m.HasTypeParameters() {
			m.ClearTypeParameterMap()
			for i, formal := range cd.TypeParameters {
				if i < len(reals) {
					m.PutTypeParameter(formal, reals[i])
				}
			}
		}
		if names.RemoveTypeParameter(m.DeclaringClass) == raw {
			m.DeclaringClass = name
		}
	}
	return out
}

// chain lists raw and its ancestors as referenced from their subclasses,
// nearest first, with class variables carried through each supertype.
func (r *Reflector) chain(raw string) []string {
	var out []string
	seen := map[string]bool{}
	r.walk(raw, &out, seen)
	return out
}

func (r *Reflector) walk(ref string, out *[]string, seen map[string]bool) {
	cd, ref, ok := r.lookup(ref)
	if !ok {
		return
	}
	if seen[cd.Declaration] {
		return
	}
	seen[cd.Declaration] = true
	*out = append(*out, ref)

	replace := bindings(ref, cd)
	for _, s := range cd.Supers {
		if len(replace) > 0 {
			s = names.ReplaceFromMap(s, replace)
		}
		r.walk(s, out, seen)
	}
}

// lookup finds the descriptor for ref. A dotted inner class reference
// such as "java.util.Map.Entry" is retried with inner marks, innermost
// first.
func (r *Reflector) lookup(ref string) (*java.ClassDescriptor, string, bool) {
	if cd, ok := r.index.Get(ref); ok {
		return cd, ref, true
	}
	cn := names.NewClassName(ref)
	parts := strings.Split(cn.Name(), ".")
	for k := len(parts) - 1; k > 0; k-- {
		inner := strings.Join(parts[:k], ".") + names.InnerMark + strings.Join(parts[k:], names.InnerMark)
		if cd, ok := r.index.Get(inner); ok {
			return cd, cn.AddTypeParameters(inner), true
		}
	}
	return nil, ref, false
}

// bindings maps the class variables of cd to the arguments ref supplies.
func bindings(ref string, cd *java.ClassDescriptor) map[string]string {
	reals := names.ParseTypeParameter(ref)
	if len(reals) == 0 {
		return nil
	}
	replace := map[string]string{}
	for i, real := range reals {
		if i >= len(cd.TypeParameters) {
			break
		}
		key := names.ClassTypeVariableMark + cd.TypeParameters[i]
		if real != key {
			replace[key] = real
		}
	}
	return replace
}

// members returns the template members of ref. A parameterized reference
// is derived from the raw class's template by substitution.
func (r *Reflector) members(ref string) []*java.Member {
	if ms, ok := r.declared.Get(ref); ok {
		return ms
	}
	raw := names.NewClassName(ref).Name()
	cd, ok := r.index.Get(raw)
	if !ok {
		return nil
	}

	var ms []*java.Member
	if raw != ref {
		ms = rewrite(r.members(raw), bindings(ref, cd))
	} else {
		ms = r.read(cd)
	}
	r.declared.Add(ref, ms)
	return ms
}

func (r *Reflector) read(cd *java.ClassDescriptor) []*java.Member {
	data, err := r.loader.read(cd)
	if err != nil {
		log.Warningf("read members of %s: %s", cd.Declaration, err)
		return nil
	}
	cf, err := classfile.ParseBytes(data)
	if err != nil {
		log.Warningf("parse %s: %s", cd.Declaration, err)
		return nil
	}
	ms, err := Declared(cf, r.includePrivate)
	if err != nil {
		log.Warningf("%s", err)
	}
	r.index.MarkLoaded(cd.Declaration)
	return ms
}

// inherit merges the members of raw and its ancestors. A method hides an
// inherited one when their parameter lists are compatible; constructors
// come from raw alone; fields and other members keep the nearest
// declaration of a name.
func (r *Reflector) inherit(raw string) []*java.Member {
	var (
		out     []*java.Member
		byKey   = map[string]bool{}
		arities = map[string][]arity{}
	)
	add := func(key string, m *java.Member) {
		if byKey[key] {
			return
		}
		byKey[key] = true
		out = append(out, m)
	}

	for _, ref := range r.chain(raw) {
		owner := names.RemoveTypeParameter(ref)
		for _, m := range r.members(ref) {
			switch m.Kind {
			case java.MethodKind:
				params := m.RawParameterTypes()
				pKey := m.Name + "#" + strconv.Itoa(len(params))
				if r.overridden(arities[pKey], owner, params) {
					continue
				}
				arities[pKey] = append(arities[pKey], arity{owner: owner, params: params})
				add(m.Name+"::"+strings.Join(params, ","), m)
			case java.ConstructorKind:
				if names.RemoveTypeParameter(m.DeclaringClass) == raw {
					add(m.Declaration(), m)
				}
			default:
				add(string(m.Kind)+":"+m.Name, m)
			}
		}
	}
	return out
}

type arity struct {
	owner  string
	params []string
}

func (r *Reflector) overridden(nearer []arity, owner string, params []string) bool {
	for _, a := range nearer {
		if a.owner == owner {
			continue
		}
		if r.Compatible(a.params, params, false) {
			return true
		}
	}
	return false
}

// Methods returns the methods of class called name, every overload.
func (r *Reflector) Methods(class, name string) []*java.Member {
	return r.filter(class, func(m *java.Member) bool {
		return m.IsMethod() && m.Name == name
	})
}

func (r *Reflector) Constructors(class string) []*java.Member {
	return r.filter(class, (*java.Member).IsConstructor)
}

// Fields returns the fields of class called name, every field when name
// is empty. A field hides the same name further up the chain, so a named
// lookup yields at most one.
func (r *Reflector) Fields(class, name string) []*java.Member {
	return r.filter(class, func(m *java.Member) bool {
		return m.IsField() && (name == "" || m.Name == name)
	})
}

// Field returns the field of class called name.
func (r *Reflector) Field(class, name string) (*java.Member, bool) {
	fs := r.Fields(class, name)
	if len(fs) == 0 {
		return nil, false
	}
	return fs[0], true
}

func (r *Reflector) filter(class string, keep func(*java.Member) bool) []*java.Member {
	var out []*java.Member
	for _, m := range r.Reflect(class) {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

// IsFunctional reports whether class is annotated as a functional
// interface.
func (r *Reflector) IsFunctional(class string) bool {
	cd, ok := r.index.Get(class)
	return ok && cd.IsInterface && cd.Functional
}

// FunctionalMethod returns the single abstract method of a functional
// interface, bound to the arguments on class.
func (r *Reflector) FunctionalMethod(class string) (*java.Member, bool) {
	if !r.IsFunctional(class) {
		return nil, false
	}
	for _, m := range r.Reflect(class) {
		if !m.IsMethod() || m.IsStatic() || m.HasDefault || objectMethod(m) {
			continue
		}
		owner, ok := r.index.Get(m.DeclaringClass)
		if !ok || !owner.IsInterface {
			continue
		}
		return m, true
	}
	return nil, false
}

// objectMethod reports whether m redeclares a public java.lang.Object
// method, which never counts as the abstract method of an interface.
func objectMethod(m *java.Member) bool {
	switch m.Name {
	case "equals":
		return len(m.Parameters) == 1 && names.RemoveTypeMark(m.Parameters[0].Type) == names.Object
	case "hashCode", "toString":
		return len(m.Parameters) == 0
	}
	return false
}
