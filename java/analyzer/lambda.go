package analyzer

import (
	"strings"

	"github.com/dhamidi/classlens/java"
	"github.com/dhamidi/classlens/java/names"
	"github.com/dhamidi/classlens/java/resolver"
)

const constructorRef = "new"

// lambdaTarget finds the functional interface expected at the argument
// being inferred: the parameter type of the pending candidates at that
// position, or the target type outside a call. arity < 0 accepts any
// number of parameters. The candidates must agree on one interface.
func (a *Analyzer) lambdaTarget(ctx resolver.Context, arity int) (string, *java.Member, bool) {
	hint := &ctx.File.Hint
	accept := func(iface string) (*java.Member, bool) {
		fm, ok := a.reflector.FunctionalMethod(iface)
		if !ok || (arity >= 0 && !acceptsArity(fm, arity)) {
			return nil, false
		}
		return fm, true
	}

	cands := hint.Candidates()
	if len(cands) == 0 {
		target, ok := hint.Target()
		if !ok {
			return "", nil, false
		}
		iface := names.RemoveWildcards(target)
		fm, ok := accept(iface)
		return iface, fm, ok
	}

	var (
		iface string
		fm    *java.Member
		seen  = map[string]bool{}
	)
	for _, m := range cands {
		p, ok := parameterAt(m.ParameterTypes(), hint.ParameterIndex, m.HasVarArgs())
		if !ok {
			continue
		}
		p = names.RemoveWildcards(p)
		if seen[p] {
			continue
		}
		if f, ok := accept(p); ok {
			seen[p] = true
			iface, fm = p, f
		}
	}
	if len(seen) != 1 {
		return "", nil, false
	}
	return iface, fm, true
}

// lambda types a lambda against the interface it implements. Its
// parameters are declared in a lambda block of the file and the boxed
// type of its body is pushed as the lambda's return.
func (a *Analyzer) lambda(x *Lambda, ctx resolver.Context) (string, bool) {
	hint := &ctx.File.Hint
	iface, fm, hinted := a.lambdaTarget(ctx, len(x.Params))
	if hinted {
		hint.SetLambdaMethod(fm)
	}

	walking := ctx.Scope == nil
	if walking {
		if _, err := ctx.File.OpenBlock("lambda", x.Range(), true); err != nil {
			log.Debugf("open lambda at %s: %s", x.Range(), err)
			walking = false
		}
	}
	if walking {
		a.declareParams(x, fm, ctx)
	}

	prevCands, prevIndex := hint.Candidates(), hint.ParameterIndex
	prevTarget, _ := hint.Target()
	hint.ClearCandidates()
	hint.SetTarget("")
	if hinted && strings.Contains(fm.ReturnType(), ".") {
		hint.SetTarget(fm.ReturnType())
	}

	ret := a.lambdaBody(x, ctx)

	hint.SetCandidates(prevCands)
	hint.ParameterIndex = prevIndex
	hint.SetTarget(prevTarget)
	if walking {
		if err := ctx.File.CloseBlock(); err != nil {
			log.Debugf("close lambda at %s: %s", x.Range(), err)
		}
	}

	if ret != "" {
		hint.PushLambdaReturn(names.Box(ret))
	}
	if !hinted {
		return "", false
	}
	return iface, true
}

func (a *Analyzer) declareParams(x *Lambda, fm *java.Member, ctx resolver.Context) {
	var implicit []string
	if fm != nil {
		implicit = fm.ParameterTypes()
	}
	for i, p := range x.Params {
		var t string
		if p.Type != "" {
			t, _ = a.typeName(p.Type, ctx)
		} else if i < len(implicit) {
			t = names.RemoveWildcards(implicit[i])
		}
		if _, err := ctx.File.Declare(p.Name, t, p.Range); err != nil {
			log.Debugf("declare %s: %s", p.Name, err)
		}
	}
}

// lambdaBody infers the value of the body. For a block body that is the
// first return whose type is known; the others are dropped from the hint.
func (a *Analyzer) lambdaBody(x *Lambda, ctx resolver.Context) string {
	if x.Body != nil {
		t, _ := a.infer(x.Body, ctx)
		return t
	}

	hint := &ctx.File.Hint
	depth := hint.LambdaReturns()
	var first string
	for _, r := range x.Returns {
		t, ok := a.infer(r, ctx)
		if !ok {
			continue
		}
		if first == "" {
			first = t
		}
		ctx.File.AddReturn(names.Box(t))
	}
	for hint.LambdaReturns() > depth {
		hint.PopLambdaReturn()
	}
	if first == "" && len(x.Returns) == 0 {
		return "void"
	}
	return first
}

// methodRef types Qualifier::Name like the lambda it stands for.
func (a *Analyzer) methodRef(x *MethodRef, ctx resolver.Context) (string, bool) {
	owner, ok := a.infer(x.Qualifier, ctx)
	if !ok {
		return "", false
	}
	iface, fm, hinted := a.lambdaTarget(ctx, -1)

	var ret string
	switch {
	case x.Name == constructorRef:
		ret = owner
	case hinted:
		ret = a.refReturn(owner, x.Name, fm, ctx)
	default:
		for _, m := range a.methods(owner, x.Name, ctx) {
			if len(m.Parameters) <= 1 {
				ret = m.ReturnType()
				break
			}
		}
	}

	if ret != "" {
		ctx.File.Hint.PushLambdaReturn(names.Box(ret))
	}
	if hinted {
		return iface, true
	}
	return ret, ret != ""
}

// refReturn finds the method a reference names for the functional method
// fm: one taking all of fm's arguments, or an instance method of the first
// argument's type taking the rest.
func (a *Analyzer) refReturn(owner, name string, fm *java.Member, ctx resolver.Context) string {
	n := len(fm.Parameters)
	for _, m := range a.methods(owner, name, ctx) {
		if acceptsArity(m, n) {
			return m.ReturnType()
		}
	}
	if n == 0 {
		return ""
	}
	receiver := names.RemoveWildcards(fm.ParameterTypes()[0])
	if !strings.Contains(receiver, ".") {
		receiver = owner
	}
	for _, m := range a.methods(receiver, name, ctx) {
		if !m.IsStatic() && acceptsArity(m, n-1) {
			return m.ReturnType()
		}
	}
	return ""
}
