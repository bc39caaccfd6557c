package analyzer

import (
	"regexp"
	"slices"
	"strings"

	"github.com/dhamidi/classlens/java"
	"github.com/dhamidi/classlens/java/names"
	"github.com/dhamidi/classlens/java/resolver"
)

var typeVarRef = regexp.MustCompile(`(?:%%|##)([A-Za-z_$][\w$]*)`)

func acceptsArity(m *java.Member, n int) bool {
	p := len(m.Parameters)
	return p == n || (m.HasVarArgs() && n >= p-1)
}

// selectMethod infers the argument types and picks the overload that
// accepts them. Lambdas and method references are inferred against the
// remaining candidates and accept any parameter. The returned copy has
// its formals bound from the arguments.
func (a *Analyzer) selectMethod(cands []*java.Member, args []Expr, ctx resolver.Context) (*java.Member, []string) {
	var fit []*java.Member
	for _, m := range cands {
		if acceptsArity(m, len(args)) {
			fit = append(fit, m)
		}
	}

	hint := &ctx.File.Hint
	prevCands, prevIndex := hint.Candidates(), hint.ParameterIndex
	prevLambda, _ := hint.LambdaMethod()
	prevTarget, _ := hint.Target()
	hint.SetCandidates(fit)
	hint.SetTarget("")
	defer func() {
		hint.SetCandidates(prevCands)
		hint.ParameterIndex = prevIndex
		hint.SetLambdaMethod(prevLambda)
		hint.SetTarget(prevTarget)
	}()

	types := make([]string, len(args))
	lambdaReturns := map[int]string{}
	for i, arg := range args {
		hint.ParameterIndex = i
		hint.SetLambdaMethod(nil)
		switch x := arg.(type) {
		case *Lambda, *MethodRef:
			depth := hint.LambdaReturns()
			a.infer(arg, ctx)
			if hint.LambdaReturns() > depth {
				lambdaReturns[i], _ = hint.PopLambdaReturn()
			}
			types[i] = names.NullArgument
			continue
		case *Literal:
			if x.Kind == NullLiteral {
				types[i] = names.NullArgument
				continue
			}
		}
		t, ok := a.infer(arg, ctx)
		if !ok {
			t = names.NullArgument
		}
		types[i] = t
	}

	m, ok := a.reflector.SelectOverload(fit, types)
	switch {
	case ok:
	case len(fit) > 0:
		m = fit[0]
	case len(cands) > 0:
		m = cands[0]
	default:
		return nil, types
	}
	if !ok {
		log.Debugf("no overload of %s accepts %v", m.Name, types)
	}

	m = m.Clone()
	raw := m.RawParameterTypes()
	for i, t := range types {
		if p, ok := parameterAt(raw, i, m.HasVarArgs()); ok {
			a.bindFormal(m, p, t)
		}
	}
	for i, ret := range lambdaReturns {
		a.bindLambdaReturn(m, i, ret)
	}
	return m, types
}

// parameterAt returns the declared type that receives argument i. Past
// the fixed parameters of a varargs method that is the element type.
func parameterAt(params []string, i int, varargs bool) (string, bool) {
	n := len(params)
	if varargs && i >= n-1 && n > 0 {
		return strings.TrimSuffix(params[n-1], names.VarArgs), true
	}
	if i < n {
		return params[i], true
	}
	return "", false
}

func formals(m *java.Member) []string {
	if m.FormalType == "" {
		return nil
	}
	return names.ParseTypeParameter(m.FormalType)
}

func (a *Analyzer) bound(m *java.Member, v string) bool {
	_, ok := m.TypeParameterMap()[v]
	return ok
}

// bindFormal binds the method formals in raw from the matching parts of
// real: "##T" takes real whole, "List<##T>" takes the argument of real
// at the same position.
func (a *Analyzer) bindFormal(m *java.Member, raw, real string) {
	if real == "" || real == names.NullArgument {
		return
	}
	for names.IsArray(raw) && names.IsArray(real) {
		raw = strings.TrimSuffix(raw, names.Array)
		real = strings.TrimSuffix(real, names.Array)
	}
	fs := formals(m)
	put := func(mark, real string) {
		v, ok := strings.CutPrefix(mark, names.FormalTypeVariableMark)
		if !ok || !slices.Contains(fs, v) || a.bound(m, v) {
			return
		}
		m.PutTypeParameter(v, names.Box(real))
	}
	if strings.HasPrefix(raw, names.FormalTypeVariableMark) {
		put(raw, real)
		return
	}
	sig := names.ParseTypeParameter(raw)
	reals := names.ParseTypeParameter(real)
	if len(sig) == 0 || len(sig) != len(reals) {
		return
	}
	for i, s := range sig {
		put(names.RemoveCaptureAndWildcard(s), names.RemoveCaptureAndWildcard(reals[i]))
	}
}

// bindTypeArgs applies explicit type arguments, "this.<String>foo()".
func (a *Analyzer) bindTypeArgs(m *java.Member, args []string, ctx resolver.Context) {
	fs := formals(m)
	for i, arg := range args {
		if i >= len(fs) {
			return
		}
		if t, ok := a.resolver.Resolve(arg, ctx); ok {
			arg = t
		}
		m.PutTypeParameter(fs[i], arg)
	}
}

// bindLambdaReturn binds the formal that receives the result of the
// lambda passed as argument i. For map(Function<? super T, ? extends R>)
// and a lambda returning X, R becomes X.
func (a *Analyzer) bindLambdaReturn(m *java.Member, i int, ret string) {
	if ret == "" || ret == "void" {
		return
	}
	raw, ok := parameterAt(m.RawParameterTypes(), i, m.HasVarArgs())
	if !ok {
		return
	}
	rendered, _ := parameterAt(m.ParameterTypes(), i, m.HasVarArgs())
	fm, ok := a.reflector.FunctionalMethod(names.RemoveWildcards(rendered))
	if !ok {
		return
	}
	v, ok := strings.CutPrefix(fm.RawReturnType, names.ClassTypeVariableMark)
	if !ok {
		return
	}
	cd, ok := a.index.Get(raw)
	if !ok {
		return
	}
	j := slices.Index(cd.TypeParameters, v)
	slots := names.ParseTypeParameter(raw)
	if j < 0 || j >= len(slots) {
		return
	}
	slot := names.RemoveCaptureAndWildcard(slots[j])
	if f, ok := strings.CutPrefix(slot, names.FormalTypeVariableMark); ok && !a.bound(m, f) {
		m.PutTypeParameter(f, names.Box(ret))
	}
}

// unbound lists the type variables of the return type nothing bound yet.
func unbound(m *java.Member) []string {
	var out []string
	for _, sub := range typeVarRef.FindAllStringSubmatch(m.RawReturnType, -1) {
		if _, ok := m.TypeParameterMap()[sub[1]]; !ok && !slices.Contains(out, sub[1]) {
			out = append(out, sub[1])
		}
	}
	return out
}

// returnType renders the return type of the selected overload. Variables
// the arguments left open are taken from the target type, then from an
// argument declared with the very same type as the result.
func (a *Analyzer) returnType(m *java.Member, args []string, ctx resolver.Context) string {
	if len(unbound(m)) == 0 {
		return m.ReturnType()
	}
	if target, ok := ctx.File.Hint.Target(); ok {
		a.bindTarget(m, target)
	}
	if len(unbound(m)) == 0 {
		return m.ReturnType()
	}
	if !strings.Contains(m.RawReturnType, "<") {
		for i, p := range m.RawParameterTypes() {
			if p == m.RawReturnType && i < len(args) && args[i] != names.NullArgument {
				return args[i]
			}
		}
	}
	if len(m.TypeParameterMap()) > 0 {
		for _, v := range unbound(m) {
			m.PutTypeParameter(v, names.Object)
		}
	}
	return m.ReturnType()
}

// bindTarget binds open variables of the return type against target,
// "##T" whole or "List<##T>" by position.
func (a *Analyzer) bindTarget(m *java.Member, target string) {
	raw := m.RawReturnType
	put := func(mark, real string) {
		if v, ok := names.TypeVariable(mark); ok && !a.bound(m, v) {
			m.PutTypeParameter(v, real)
		}
	}
	if _, ok := names.TypeVariable(raw); ok {
		put(raw, target)
		return
	}
	if names.RemoveTypeParameter(raw) != names.RemoveTypeParameter(target) {
		return
	}
	sig, reals := names.ParseTypeParameter(raw), names.ParseTypeParameter(target)
	if len(sig) != len(reals) {
		return
	}
	for i, s := range sig {
		put(names.RemoveCaptureAndWildcard(s), names.RemoveCaptureAndWildcard(reals[i]))
	}
}
