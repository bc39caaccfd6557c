package reflector

import (
	"slices"
	"strings"

	"github.com/dhamidi/classlens/java"
	"github.com/dhamidi/classlens/java/names"
)

// how an argument reached its parameter type
type conversion int

const (
	exact conversion = iota
	widening
	ancestor
	mismatch
)

type rank struct {
	worst    conversion
	distance int
}

func (a rank) less(b rank) bool {
	if a.worst != b.worst {
		return a.worst < b.worst
	}
	return a.distance < b.distance
}

// Compatible reports whether argument types args can be passed to
// parameter types params. With varargs set, the last parameter takes zero
// or more arguments of its element type.
func (r *Reflector) Compatible(args, params []string, varargs bool) bool {
	_, ok := r.match(args, params, varargs, nil)
	return ok
}

func (r *Reflector) match(args, params []string, varargs bool, vars []string) (rank, bool) {
	var rk rank
	n := len(params)
	if varargs && n > 0 && len(args) >= n-1 {
		for i := 0; i < n-1; i++ {
			if !r.accumulate(&rk, args[i], params[i], vars) {
				return rk, false
			}
		}
		rest := args[n-1:]
		last := params[n-1]
		// an array passed straight through
		if len(rest) == 1 && names.IsArray(rest[0]) {
			if r.accumulate(&rk, rest[0], last, vars) {
				return rk, true
			}
		}
		elem, ok := strings.CutSuffix(last, names.VarArgs)
		if !ok {
			elem = strings.TrimSuffix(last, names.Array)
		}
		for _, a := range rest {
			if !r.accumulate(&rk, a, elem, vars) {
				return rk, false
			}
		}
		if rk.worst < ancestor {
			rk.worst = ancestor
		}
		return rk, true
	}

	if len(args) != n {
		return rk, false
	}
	for i := range args {
		if !r.accumulate(&rk, args[i], params[i], vars) {
			return rk, false
		}
	}
	return rk, true
}

func (r *Reflector) accumulate(rk *rank, arg, param string, vars []string) bool {
	c, d := r.convert(arg, param, vars)
	if c == mismatch {
		return false
	}
	rk.worst = max(rk.worst, c)
	rk.distance += d
	return true
}

func isVar(name string, vars []string) bool {
	v, ok := names.TypeVariable(name)
	if ok {
		name = v
	}
	return slices.Contains(vars, name)
}

func (r *Reflector) convert(arg, param string, vars []string) (conversion, int) {
	if arg == names.NullArgument {
		return exact, 0
	}
	ac, pc := names.NewClassName(arg), names.NewClassName(param)
	if ac.IsArray() != pc.IsArray() {
		return mismatch, 0
	}
	a, p := names.Box(ac.Name()), names.Box(pc.Name())
	if a == p {
		return exact, 0
	}
	if isVar(pc.Name(), vars) {
		return ancestor, 0
	}
	if d, ok := names.Widening(a, p); ok {
		return widening, d
	}
	for _, s := range r.index.SuperClasses(a) {
		if names.RemoveTypeParameter(s) == p {
			return ancestor, 0
		}
	}
	return mismatch, 0
}

// SelectOverload picks the candidate that best accepts args: exact
// matches first, then the nearest primitive widening, then reference
// widening. Ties go to the earlier candidate. Parameters naming a type
// variable of the candidate accept any argument.
func (r *Reflector) SelectOverload(candidates []*java.Member, args []string) (*java.Member, bool) {
	var (
		best   *java.Member
		bestRk rank
	)
	for _, m := range candidates {
		rk, ok := r.match(args, m.ParameterTypes(), m.HasVarArgs(), m.TypeParameters)
		if !ok {
			continue
		}
		if best == nil || rk.less(bestRk) {
			best, bestRk = m, rk
		}
	}
	return best, best != nil
}
