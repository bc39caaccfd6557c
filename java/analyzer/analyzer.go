package analyzer

import (
	"strings"
	"unicode"

	"github.com/tliron/commonlog"

	"github.com/dhamidi/classlens/java/index"
	"github.com/dhamidi/classlens/java/names"
	"github.com/dhamidi/classlens/java/reflector"
	"github.com/dhamidi/classlens/java/resolver"
	"github.com/dhamidi/classlens/java/source"
)

var log = commonlog.GetLogger("classlens.analyzer")

const (
	booleanType = "java.lang.Boolean"
	stringType  = "java.lang.String"
	classType   = "java.lang.Class"
)

var literalTypes = map[LiteralKind]string{
	IntLiteral:     "java.lang.Integer",
	LongLiteral:    "java.lang.Long",
	FloatLiteral:   "java.lang.Float",
	DoubleLiteral:  "java.lang.Double",
	CharLiteral:    "java.lang.Character",
	BooleanLiteral: booleanType,
	StringLiteral:  stringType,
}

type Analyzer struct {
	index     *index.Index
	reflector *reflector.Reflector
	resolver  *resolver.Resolver
}

func New(ix *index.Index, refl *reflector.Reflector, res *resolver.Resolver) *Analyzer {
	return &Analyzer{index: ix, reflector: refl, resolver: res}
}

// Infer returns the fully qualified type of e evaluated at ctx. Method
// calls, field accesses and constructor calls met on the way are recorded
// as access records of the context's scope. Failure leaves a gap: the
// result is empty and false.
func (a *Analyzer) Infer(e Expr, ctx resolver.Context) (string, bool) {
	t, ok := a.infer(e, ctx)
	if !ok {
		log.Debugf("cannot infer %s at %s in %s", Text(e), e.Range(), ctx.File.Path)
	}
	return t, ok
}

func (a *Analyzer) infer(e Expr, ctx resolver.Context) (string, bool) {
	switch x := e.(type) {
	case *Literal:
		t, ok := literalTypes[x.Kind]
		return t, ok
	case *Binary:
		return a.binary(x, ctx)
	case *Conditional:
		a.infer(x.Cond, ctx)
		return a.prefer(ctx, x.Then, x.Else)
	case *Unary:
		t, ok := a.infer(x.Operand, ctx)
		if x.Op == "!" {
			return booleanType, true
		}
		return t, ok
	case *Assign:
		return a.prefer(ctx, x.Target, x.Value)
	case *InstanceOf:
		a.infer(x.Operand, ctx)
		return booleanType, true
	case *Name:
		return a.name(x, ctx)
	case *FieldAccess:
		return a.fieldAccess(x, ctx)
	case *MethodCall:
		return a.methodCall(x, ctx)
	case *This:
		if x.Outer != "" {
			return a.typeName(x.Outer, ctx)
		}
		return a.resolver.Resolve(resolver.This, ctx)
	case *Super:
		return a.resolver.Resolve(resolver.Super, ctx)
	case *NewExpr:
		return a.newInstance(x, ctx)
	case *Cast:
		a.infer(x.Operand, ctx)
		return a.typeName(x.Type, ctx)
	case *ArrayAccess:
		t, ok := a.infer(x.Array, ctx)
		a.infer(x.Index, ctx)
		if !ok || !names.IsArray(t) {
			return "", false
		}
		return strings.TrimSuffix(t, names.Array), true
	case *ArrayCreation:
		for _, d := range x.Dims {
			a.infer(d, ctx)
		}
		return a.typeName(x.Type, ctx)
	case *ClassLiteral:
		t, ok := a.typeName(x.Type, ctx)
		if !ok {
			return classType, true
		}
		return classType + "<" + names.Box(t) + ">", true
	case *TypeExpr:
		return a.typeName(x.Type, ctx)
	case *MethodRef:
		return a.methodRef(x, ctx)
	case *Lambda:
		return a.lambda(x, ctx)
	case *Enclosed:
		return a.infer(x.Inner, ctx)
	}
	return "", false
}

// prefer infers both expressions and returns the first that has a type.
func (a *Analyzer) prefer(ctx resolver.Context, first, second Expr) (string, bool) {
	t1, ok1 := a.infer(first, ctx)
	t2, ok2 := a.infer(second, ctx)
	if ok1 {
		return t1, true
	}
	return t2, ok2
}

func (a *Analyzer) binary(x *Binary, ctx resolver.Context) (string, bool) {
	switch x.Op {
	case "&&", "||", "==", "!=", "<", ">", "<=", ">=":
		a.infer(x.Left, ctx)
		a.infer(x.Right, ctx)
		return booleanType, true
	}
	l, lok := a.infer(x.Left, ctx)
	r, rok := a.infer(x.Right, ctx)
	if x.Op == "+" && (l == stringType || r == stringType) {
		return stringType, true
	}
	if lok {
		return l, true
	}
	return r, rok
}

func (a *Analyzer) name(x *Name, ctx resolver.Context) (string, bool) {
	t, ok := a.resolver.ResolveSymbol(x.Name, ctx)
	if !ok && startsUpper(x.Name) {
		ctx.File.MarkUnknown(x.Name)
	}
	return t, ok
}

// typeName resolves a type written in source and remembers the ones
// nothing knows.
func (a *Analyzer) typeName(name string, ctx resolver.Context) (string, bool) {
	t, ok := a.resolver.Resolve(name, ctx)
	if !ok {
		ctx.File.MarkUnknown(name)
	}
	return t, ok
}

func (a *Analyzer) record(ctx resolver.Context, rec *source.AccessRecord) {
	if ctx.Scope != nil {
		ctx.Scope.AddAccess(rec)
		return
	}
	if err := ctx.File.AddAccess(rec); err != nil {
		log.Debugf("record %s %s: %s", rec.Kind, rec.Name, err)
	}
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

// sourceType finds the type scope the file declares for fqcn.
func sourceType(f *source.File, fqcn string) (*source.Scope, bool) {
	for _, t := range f.Types() {
		if t.Type.FQCN == fqcn {
			return t, true
		}
	}
	return nil, false
}
