package source

import (
	"github.com/dhamidi/classlens/java"
)

// TypeHint carries inference state between nested expressions: the
// overload candidates of the call being resolved, the functional method
// a lambda implements, and the return types its body produced.
type TypeHint struct {
	// ParameterIndex is the argument position being inferred.
	ParameterIndex int

	candidates    []*java.Member
	lambdaMethod  *java.Member
	lambdaReturns []string
	target        string
}

func (h *TypeHint) SetCandidates(ms []*java.Member) {
	h.candidates = ms
	h.ParameterIndex = 0
}

func (h *TypeHint) ClearCandidates() {
	h.candidates = nil
	h.ParameterIndex = 0
}

func (h *TypeHint) Candidates() []*java.Member {
	return h.candidates
}

// Resolved returns the pending candidate when exactly one remains.
func (h *TypeHint) Resolved() (*java.Member, bool) {
	if len(h.candidates) != 1 {
		return nil, false
	}
	return h.candidates[0], true
}

func (h *TypeHint) SetLambdaMethod(m *java.Member) { h.lambdaMethod = m }

func (h *TypeHint) LambdaMethod() (*java.Member, bool) {
	return h.lambdaMethod, h.lambdaMethod != nil
}

func (h *TypeHint) PushLambdaReturn(fqcn string) {
	h.lambdaReturns = append(h.lambdaReturns, fqcn)
}

func (h *TypeHint) PopLambdaReturn() (string, bool) {
	n := len(h.lambdaReturns)
	if n == 0 {
		return "", false
	}
	ret := h.lambdaReturns[n-1]
	h.lambdaReturns = h.lambdaReturns[:n-1]
	return ret, true
}

func (h *TypeHint) PeekLambdaReturn() (string, bool) {
	n := len(h.lambdaReturns)
	if n == 0 {
		return "", false
	}
	return h.lambdaReturns[n-1], true
}

// LambdaReturns is the depth of the lambda return stack.
func (h *TypeHint) LambdaReturns() int {
	return len(h.lambdaReturns)
}

func (h *TypeHint) ClearLambdaReturns() {
	h.lambdaReturns = nil
}

// SetTarget records the type the enclosing context expects, such as the
// declared type of an assignment's left side.
func (h *TypeHint) SetTarget(fqcn string) { h.target = fqcn }

func (h *TypeHint) Target() (string, bool) {
	return h.target, h.target != ""
}
