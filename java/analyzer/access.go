package analyzer

import (
	"strings"

	"github.com/dhamidi/classlens/java"
	"github.com/dhamidi/classlens/java/names"
	"github.com/dhamidi/classlens/java/resolver"
	"github.com/dhamidi/classlens/java/source"
)

const arrayLength = "length"

func (a *Analyzer) fieldAccess(x *FieldAccess, ctx resolver.Context) (string, bool) {
	text := Text(x)
	if x.Qualifier != nil && a.index.Contains(text) {
		return text, true
	}

	var (
		owner string
		ok    bool
	)
	if x.Qualifier == nil {
		owner, ok = a.resolver.Resolve(resolver.This, ctx)
	} else {
		owner, ok = a.infer(x.Qualifier, ctx)
	}
	if !ok {
		// a class named through its outer class, "Map.Entry"
		if x.Qualifier != nil {
			return a.resolver.Resolve(text, ctx)
		}
		return "", false
	}

	ret, found := a.fieldType(owner, x.Name, ctx)
	a.record(ctx, &source.AccessRecord{
		Kind:           source.FieldAccess,
		Qualifier:      Text(x.Qualifier),
		Name:           x.Name,
		Range:          x.Range(),
		NameRange:      x.NameRange,
		DeclaringClass: owner,
		ReturnType:     ret,
	})
	return ret, found
}

// hierarchy lists owner and, for a type only known from source, the
// supertypes it declares.
func (a *Analyzer) hierarchy(owner string, ctx resolver.Context) []string {
	out := []string{owner}
	erased := names.RemoveTypeParameter(owner)
	if t, ok := sourceType(ctx.File, erased); ok && !a.index.Contains(erased) {
		out = append(out, t.Type.Supers()...)
	}
	return out
}

func (a *Analyzer) fieldType(owner, name string, ctx resolver.Context) (string, bool) {
	if names.IsArray(owner) {
		if name == arrayLength {
			return "int", true
		}
		return "", false
	}
	erased := names.RemoveTypeParameter(owner)
	if t, ok := sourceType(ctx.File, erased); ok {
		if v, ok := t.Type.Fields[name]; ok {
			return v.Type, true
		}
	}
	for _, class := range a.hierarchy(owner, ctx) {
		if m, ok := a.reflector.Field(class, name); ok {
			return m.ReturnType(), true
		}
	}

	// fields of the enclosing classes
	for outer := erased; strings.Contains(outer, names.InnerMark); {
		outer = outer[:strings.LastIndex(outer, names.InnerMark)]
		if t, ok := sourceType(ctx.File, outer); ok {
			if v, ok := t.Type.Fields[name]; ok {
				return v.Type, true
			}
		}
		if m, ok := a.reflector.Field(outer, name); ok {
			return m.ReturnType(), true
		}
	}
	return a.nested(erased, name, ctx)
}

// nested finds a member type: owner$name or ancestor$name.
func (a *Analyzer) nested(owner, name string, ctx resolver.Context) (string, bool) {
	has := func(fqcn string) bool {
		return a.index.Contains(fqcn) || ctx.File.HasType(fqcn)
	}
	if fqcn := owner + names.InnerMark + name; has(fqcn) {
		return fqcn, true
	}
	var ancestors []string
	for _, class := range a.hierarchy(owner, ctx) {
		ancestors = append(ancestors, a.index.SuperClasses(class)...)
	}
	for _, s := range ancestors {
		if fqcn := names.RemoveTypeParameter(s) + names.InnerMark + name; has(fqcn) {
			return fqcn, true
		}
	}
	return "", false
}

// methods collects the overloads called name visible on owner, source
// declarations first.
func (a *Analyzer) methods(owner, name string, ctx resolver.Context) []*java.Member {
	var out []*java.Member
	if t, ok := sourceType(ctx.File, names.RemoveTypeParameter(owner)); ok {
		for _, m := range t.Type.Members {
			if m.IsMethod() && m.Name == name {
				out = append(out, m.Clone())
			}
		}
	}
	for _, class := range a.hierarchy(owner, ctx) {
		out = append(out, a.reflector.Methods(class, name)...)
	}
	return out
}

// callee finds the class a call is made on and its candidate overloads.
func (a *Analyzer) callee(x *MethodCall, ctx resolver.Context) (string, []*java.Member, bool) {
	if x.Qualifier != nil {
		owner, ok := a.infer(x.Qualifier, ctx)
		if !ok {
			return "", nil, false
		}
		lookup := owner
		if names.IsArray(owner) {
			lookup = names.Object
		}
		ms := a.methods(lookup, x.Name, ctx)
		// methods of the enclosing classes
		for outer := names.RemoveTypeParameter(lookup); len(ms) == 0 && strings.Contains(outer, names.InnerMark); {
			outer = outer[:strings.LastIndex(outer, names.InnerMark)]
			ms = a.methods(outer, x.Name, ctx)
		}
		return owner, ms, true
	}

	owners := a.implicitOwners(x.Name, ctx)
	for _, owner := range owners {
		if ms := a.methods(owner, x.Name, ctx); len(ms) > 0 {
			return owner, ms, true
		}
	}
	if len(owners) > 0 {
		return owners[0], nil, true
	}
	return "", nil, false
}

// implicitOwners lists where an unqualified call may land: the current
// type, the types enclosing it, then static imports.
func (a *Analyzer) implicitOwners(name string, ctx resolver.Context) []string {
	var out []string
	t, ok := ctx.Type()
	for ok {
		if t.Kind == source.TypeScope {
			out = append(out, t.Type.FQCN)
		}
		t, ok = ctx.File.Parent(t)
	}
	if owner, ok := ctx.File.StaticImports[name]; ok {
		out = append(out, owner)
	}
	return append(out, ctx.File.StaticOnDemand...)
}

func (a *Analyzer) methodCall(x *MethodCall, ctx resolver.Context) (string, bool) {
	owner, cands, ok := a.callee(x, ctx)
	if !ok {
		for _, arg := range x.Args {
			a.infer(arg, ctx)
		}
		return "", false
	}

	var ret string
	if names.IsArray(owner) && x.Name == "clone" && len(x.Args) == 0 {
		ret = owner
	} else if m, args := a.selectMethod(cands, x.Args, ctx); m != nil {
		a.bindTypeArgs(m, x.TypeArgs, ctx)
		ret = a.returnType(m, args, ctx)
	}

	a.record(ctx, &source.AccessRecord{
		Kind:           source.MethodCall,
		Qualifier:      Text(x.Qualifier),
		Name:           x.Name,
		Range:          x.Range(),
		NameRange:      x.NameRange,
		DeclaringClass: owner,
		ReturnType:     ret,
	})
	return ret, ret != ""
}

func (a *Analyzer) newInstance(x *NewExpr, ctx resolver.Context) (string, bool) {
	written, diamond := strings.CutSuffix(x.Type, "<>")
	fqcn, ok := a.typeName(written, ctx)
	if !ok {
		for _, arg := range x.Args {
			a.infer(arg, ctx)
		}
		return "", false
	}
	if diamond {
		fqcn = a.diamond(fqcn, ctx)
	}
	a.selectMethod(a.reflector.Constructors(fqcn), x.Args, ctx)

	a.record(ctx, &source.AccessRecord{
		Kind:           source.ConstructorCall,
		Name:           names.SimpleName(names.RemoveTypeParameter(fqcn)),
		Range:          x.Range(),
		DeclaringClass: names.RemoveTypeParameter(fqcn),
		ReturnType:     fqcn,
	})
	return fqcn, true
}

// diamond takes the type arguments of "new Foo<>()" from the target type
// when the target is Foo or one of its ancestors with as many arguments.
func (a *Analyzer) diamond(fqcn string, ctx resolver.Context) string {
	target, ok := ctx.File.Hint.Target()
	if !ok {
		return fqcn
	}
	tc := names.NewClassName(target)
	if !tc.HasTypeParameter() {
		return fqcn
	}
	erased := tc.Name()
	if erased == fqcn {
		return target
	}
	cd, ok := a.index.Get(fqcn)
	if !ok || len(cd.TypeParameters) != len(tc.TypeParameters()) {
		return fqcn
	}
	for _, s := range a.index.SuperClasses(fqcn) {
		if names.RemoveTypeParameter(s) == erased {
			return fqcn + target[strings.IndexByte(target, '<'):]
		}
	}
	return fqcn
}
