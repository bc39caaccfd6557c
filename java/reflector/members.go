package reflector

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dhamidi/classlens/classfile"
	"github.com/dhamidi/classlens/java"
	"github.com/dhamidi/classlens/java/names"
	"github.com/dhamidi/classlens/java/signature"
)

const (
	initName   = "<init>"
	clinitName = "<clinit>"
)

// Declared extracts the members a class file declares itself. Private
// members are dropped unless includePrivate is set. A malformed member
// signature keeps whatever parsed and is reported in the returned error.
func Declared(cf *classfile.ClassFile, includePrivate bool) ([]*java.Member, error) {
	className := names.ReplaceSlash(cf.ClassName())
	isInterface := cf.IsInterface()
	cp := cf.ConstantPool

	var classVars []string
	if sig := cf.Signature(); sig != "" {
		c, _ := signature.ParseClass(sig, nil)
		for _, tp := range c.TypeParams {
			classVars = append(classVars, tp.Name)
		}
	}
	instance := &signature.Scope{ClassVars: classVars}
	static := &signature.Scope{}

	var (
		out  []*java.Member
		errs []string
	)
	for i := range cf.Fields {
		f := &cf.Fields[i]
		if strings.HasPrefix(f.Name, "$") || strings.HasPrefix(f.Name, "this$") {
			continue
		}
		if f.AccessFlags.IsPrivate() && !includePrivate {
			continue
		}
		scope := instance
		if f.AccessFlags.IsStatic() {
			scope = static
		}
		sig := f.Signature(cp)
		if sig == "" {
			sig = f.Descriptor
		}
		ft, err := signature.ParseField(sig, scope)
		if err != nil {
			errs = append(errs, fmt.Sprintf("field %s: %v", f.Name, err))
		}
		out = append(out, &java.Member{
			DeclaringClass: className,
			Kind:           java.FieldKind,
			Modifier:       java.ModifierString(f.AccessFlags, java.FieldKind, false),
			Name:           f.Name,
			RawReturnType:  ft.Type.String(),
			TypeParameters: ft.Vars,
		})
	}

	for i := range cf.Methods {
		m := &cf.Methods[i]
		if m.Name == clinitName || strings.Contains(m.Name, "$") {
			continue
		}
		if m.AccessFlags.IsSynthetic() || m.AccessFlags.IsBridge() {
			continue
		}
		if m.AccessFlags.IsPrivate() && !includePrivate {
			continue
		}
		ctor := m.Name == initName
		if ctor && className == names.Object {
			continue
		}
		md, err := method(cf, m, className, isInterface, ctor, instance, static)
		if err != nil {
			errs = append(errs, fmt.Sprintf("method %s: %v", m.Name, err))
		}
		out = append(out, md)
	}

	if len(errs) > 0 {
		return out, fmt.Errorf("class %s: %s", className, strings.Join(errs, "; "))
	}
	return out, nil
}

func method(cf *classfile.ClassFile, m *classfile.Member, className string, isInterface, ctor bool, instance, static *signature.Scope) (*java.Member, error) {
	cp := cf.ConstantPool
	scope := instance
	if m.AccessFlags.IsStatic() {
		scope = static
	}
	sig := m.Signature(cp)
	if sig == "" {
		sig = m.Descriptor
	}
	ms, err := signature.ParseMethod(sig, scope)

	kind := java.MethodKind
	if ctor {
		kind = java.ConstructorKind
	}
	hasDefault := isInterface && m.HasCode()
	modifier := java.ModifierString(m.AccessFlags, kind, hasDefault)
	if isInterface {
		modifier = strings.Join(strings.Fields(strings.ReplaceAll(modifier, "abstract", "")), " ")
	}

	paramNames := m.ParameterNames(cp)
	if len(paramNames) != len(ms.Params) {
		paramNames = make([]string, len(ms.Params))
		for i := range paramNames {
			paramNames[i] = fmt.Sprintf("arg%d", i)
		}
	}
	params := make([]java.Parameter, len(ms.Params))
	for i, t := range ms.Params {
		varargs := i == len(ms.Params)-1 && m.AccessFlags.IsVarargs() && t.Dims > 0
		if varargs {
			t.Dims--
			t.VarArgs = true
		}
		params[i] = java.Parameter{Name: paramNames[i], Type: t.String(), VarArgs: varargs}
	}

	var throws []string
	for _, t := range ms.Throws {
		throws = append(throws, t.String())
	}
	if len(throws) == 0 {
		for _, e := range m.Exceptions(cp) {
			throws = append(throws, names.ReplaceSlash(e))
		}
	}

	md := &java.Member{
		DeclaringClass: className,
		Kind:           kind,
		Modifier:       modifier,
		Name:           m.Name,
		Parameters:     params,
		RawReturnType:  ms.Return.String(),
		Throws:         throws,
		FormalType:     signature.RenderTypeParams(ms.TypeParams),
		TypeParameters: ms.Vars,
		HasDefault:     hasDefault,
	}
	if ctor {
		md.Name = className
		md.RawReturnType = className
	}
	return md, err
}

var typeVarRef = regexp.MustCompile(`(?:%%|##)([A-Za-z_$][\w$]*)`)

// referencedVars lists the type variables named in ss, first use first.
func referencedVars(ss ...string) []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range ss {
		for _, m := range typeVarRef.FindAllStringSubmatch(s, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				out = append(out, m[1])
			}
		}
	}
	return out
}

// rewrite returns copies of ms with class variable marks replaced
// textually. The referenced variable set is recomputed.
func rewrite(ms []*java.Member, replace map[string]string) []*java.Member {
	out := java.CloneMembers(ms)
	if len(replace) == 0 {
		return out
	}
	for _, m := range out {
		m.RawReturnType = names.ReplaceFromMap(m.RawReturnType, replace)
		for i := range m.Parameters {
			m.Parameters[i].Type = names.ReplaceFromMap(m.Parameters[i].Type, replace)
		}
		for i := range m.Throws {
			m.Throws[i] = names.ReplaceFromMap(m.Throws[i], replace)
		}
		all := append([]string{m.RawReturnType}, m.Throws...)
		all = append(all, m.RawParameterTypes()...)
		m.TypeParameters = referencedVars(all...)
	}
	return out
}
