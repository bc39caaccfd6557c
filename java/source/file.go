package source

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/dhamidi/classlens/java"
	"github.com/dhamidi/classlens/java/names"
)

var log = commonlog.GetLogger("classlens.source")

var (
	ErrScopeRange     = errors.New("scope range outside its parent")
	ErrNoOpenScope    = errors.New("no open scope")
	ErrExpressionOpen = errors.New("expression still open")
)

// File is the symbol model of one source file. Scopes live in an arena
// and refer to their parent by ScopeID. A File is built by one walker and
// is safe for concurrent reads once built.
type File struct {
	Path    string
	Package string
	// Imports maps simple names to the classes imported explicitly.
	Imports map[string]string
	// OnDemand lists the packages imported with ".*".
	OnDemand []string
	// StaticImports maps member names to the class that declares them.
	StaticImports map[string]string
	// StaticOnDemand lists classes whose static members are all imported.
	StaticOnDemand []string
	Hint           TypeHint

	scopes []*Scope
	types  []ScopeID
	top    []ScopeID
	open   []ScopeID
	// exprs holds the open expression statements of each open scope
	exprs   map[ScopeID][]ScopeID
	unknown map[string]bool
}

func NewFile(path, pkg string) *File {
	return &File{
		Path:          path,
		Package:       pkg,
		Imports:       map[string]string{},
		StaticImports: map[string]string{},
		exprs:         map[ScopeID][]ScopeID{},
		unknown:       map[string]bool{},
	}
}

// AddImport records "import fqcn;". A trailing ".*" imports a package on
// demand.
func (f *File) AddImport(fqcn string) {
	if pkg, ok := strings.CutSuffix(fqcn, ".*"); ok {
		f.OnDemand = append(f.OnDemand, pkg)
		return
	}
	f.Imports[names.SimpleName(fqcn)] = fqcn
}

// AddStaticImport records "import static owner.member;". A member of "*"
// imports every static member of owner.
func (f *File) AddStaticImport(owner, member string) {
	if member == "*" {
		f.StaticOnDemand = append(f.StaticOnDemand, owner)
		return
	}
	f.StaticImports[member] = owner
}

// Imported reports whether fqcn is imported explicitly.
func (f *File) Imported(fqcn string) bool {
	for _, v := range f.Imports {
		if v == fqcn {
			return true
		}
	}
	return false
}

// MarkUnknown remembers a class name nothing could resolve.
func (f *File) MarkUnknown(name string) {
	f.unknown[names.NewClassName(name).Name()] = true
}

func (f *File) Unknown() []string {
	out := make([]string, 0, len(f.unknown))
	for n := range f.unknown {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (f *File) Scope(id ScopeID) (*Scope, bool) {
	if id < 0 || int(id) >= len(f.scopes) {
		return nil, false
	}
	return f.scopes[id], true
}

// Parent returns the scope enclosing s.
func (f *File) Parent(s *Scope) (*Scope, bool) {
	return f.Scope(s.Parent)
}

func (f *File) innermost() (*Scope, bool) {
	if len(f.open) == 0 {
		return nil, false
	}
	return f.scopes[f.open[len(f.open)-1]], true
}

// Current returns the scope that receives declarations and accesses: the
// open expression of the innermost scope if any, else that scope.
func (f *File) Current() (*Scope, bool) {
	s, ok := f.innermost()
	if !ok {
		return nil, false
	}
	if es := f.exprs[s.ID]; len(es) > 0 {
		return f.scopes[es[len(es)-1]], true
	}
	return s, true
}

// CurrentType returns the innermost open type scope.
func (f *File) CurrentType() (*Scope, bool) {
	for i := len(f.open) - 1; i >= 0; i-- {
		if s := f.scopes[f.open[i]]; s.Kind == TypeScope {
			return s, true
		}
	}
	return nil, false
}

func (f *File) alloc(kind ScopeKind, name string, rng, nameRange Range, parent *Scope) (*Scope, error) {
	s := &Scope{
		ID:        ScopeID(len(f.scopes)),
		Kind:      kind,
		Name:      name,
		Range:     rng,
		NameRange: nameRange,
		Parent:    NoScope,
	}
	if parent != nil {
		if !parent.Range.Encloses(rng) {
			return nil, fmt.Errorf("open %s %s at %s in %s: %w", kind, name, rng, parent.Range, ErrScopeRange)
		}
		s.Parent = parent.ID
		s.Lambda = parent.Lambda
	}
	f.scopes = append(f.scopes, s)
	return s, nil
}

func (f *File) push(kind ScopeKind, name string, rng, nameRange Range) (*Scope, error) {
	parent, _ := f.innermost()
	s, err := f.alloc(kind, name, rng, nameRange, parent)
	if err != nil {
		return nil, err
	}
	if parent != nil {
		parent.Children = append(parent.Children, s.ID)
	}
	f.open = append(f.open, s.ID)
	return s, nil
}

// TypeDecl describes a class, interface or enum being opened.
type TypeDecl struct {
	Name           string
	Range          Range
	NameRange      Range
	IsInterface    bool
	Extends        []string
	Implements     []string
	TypeParameters []string
	Bounds         map[string]string
}

// OpenType opens a type scope. Nested and local types are named after
// their enclosing type with an inner mark.
func (f *File) OpenType(decl TypeDecl) (ScopeID, error) {
	fqcn := decl.Name
	if outer, ok := f.CurrentType(); ok {
		fqcn = outer.Type.FQCN + names.InnerMark + decl.Name
	} else if f.Package != "" {
		fqcn = f.Package + "." + decl.Name
	}

	s, err := f.push(TypeScope, decl.Name, decl.Range, decl.NameRange)
	if err != nil {
		return NoScope, err
	}
	bounds := decl.Bounds
	if bounds == nil {
		bounds = map[string]string{}
	}
	s.Type = &Type{
		Package:        f.Package,
		FQCN:           fqcn,
		IsInterface:    decl.IsInterface,
		Extends:        decl.Extends,
		Implements:     decl.Implements,
		TypeParameters: decl.TypeParameters,
		Bounds:         bounds,
		Fields:         map[string]*Variable{},
	}
	f.types = append(f.types, s.ID)
	if s.Parent == NoScope {
		f.top = append(f.top, s.ID)
	}
	log.Debugf("open type %s %s", fqcn, decl.Range)
	return s.ID, nil
}

func (f *File) pop(kinds ...ScopeKind) error {
	s, ok := f.innermost()
	if !ok {
		return ErrNoOpenScope
	}
	if len(f.exprs[s.ID]) > 0 {
		return fmt.Errorf("close %s %s: %w", s.Kind, s.Name, ErrExpressionOpen)
	}
	for _, k := range kinds {
		if s.Kind == k {
			f.open = f.open[:len(f.open)-1]
			delete(f.exprs, s.ID)
			return nil
		}
	}
	return fmt.Errorf("close %s %s: %w", s.Kind, s.Name, ErrNoOpenScope)
}

func (f *File) CloseType() error {
	return f.pop(TypeScope)
}

func (f *File) OpenMethod(name string, rng, nameRange Range) (ScopeID, error) {
	if _, ok := f.innermost(); !ok {
		return NoScope, ErrNoOpenScope
	}
	s, err := f.push(MethodScope, name, rng, nameRange)
	if err != nil {
		return NoScope, err
	}
	return s.ID, nil
}

// OpenBlock opens a block. A lambda body sets lambda; blocks nested in
// one inherit the flag.
func (f *File) OpenBlock(name string, rng Range, lambda bool) (ScopeID, error) {
	if _, ok := f.innermost(); !ok {
		return NoScope, ErrNoOpenScope
	}
	s, err := f.push(BlockScope, name, rng, Range{})
	if err != nil {
		return NoScope, err
	}
	s.Lambda = s.Lambda || lambda
	return s.ID, nil
}

// CloseBlock closes the innermost method or block.
func (f *File) CloseBlock() error {
	return f.pop(MethodScope, BlockScope)
}

// OpenExpression opens an expression statement in the innermost scope.
// Declarations and accesses go to it until it is closed.
func (f *File) OpenExpression(rng Range) (ScopeID, error) {
	parent, ok := f.innermost()
	if !ok {
		return NoScope, ErrNoOpenScope
	}
	s, err := f.alloc(ExpressionScope, "", rng, Range{}, parent)
	if err != nil {
		return NoScope, err
	}
	f.exprs[parent.ID] = append(f.exprs[parent.ID], s.ID)
	return s.ID, nil
}

func (f *File) CloseExpression() error {
	parent, ok := f.innermost()
	if !ok {
		return ErrNoOpenScope
	}
	es := f.exprs[parent.ID]
	if len(es) == 0 {
		return fmt.Errorf("close expression: %w", ErrNoOpenScope)
	}
	id := es[len(es)-1]
	f.exprs[parent.ID] = es[:len(es)-1]
	parent.Expressions = append(parent.Expressions, id)
	return nil
}

func (f *File) add(v *Variable) (*Variable, error) {
	s, ok := f.Current()
	if !ok {
		return nil, ErrNoOpenScope
	}
	s.declare(v)
	log.Debugf("%s %s %s at %s", s.Kind, v.Name, v.Type, v.Range)
	return v, nil
}

// Declare records a declaration of name with type fqcn.
func (f *File) Declare(name, fqcn string, rng Range) (*Variable, error) {
	return f.add(&Variable{Name: name, Type: fqcn, Range: rng, Declaration: true})
}

// Reference records a use of name.
func (f *File) Reference(name, fqcn string, rng Range) (*Variable, error) {
	return f.add(&Variable{Name: name, Type: fqcn, Range: rng})
}

func (f *File) AddAccess(a *AccessRecord) error {
	s, ok := f.Current()
	if !ok {
		return ErrNoOpenScope
	}
	s.AddAccess(a)
	return nil
}

// AddField declares a field on the innermost open type.
func (f *File) AddField(name, fqcn string, rng Range) (*Variable, error) {
	t, ok := f.CurrentType()
	if !ok {
		return nil, ErrNoOpenScope
	}
	v := &Variable{Name: name, Type: fqcn, Scope: t.ID, Range: rng, Declaration: true}
	t.Type.Fields[name] = v
	return v, nil
}

// AddMember records a member signature of the innermost open type.
func (f *File) AddMember(m *java.Member) error {
	t, ok := f.CurrentType()
	if !ok {
		return ErrNoOpenScope
	}
	t.Type.Members = append(t.Type.Members, m)
	return nil
}

// AddReturn records the type of a return statement. Inside a lambda body
// it feeds the lambda's inferred return type and reports true.
func (f *File) AddReturn(fqcn string) bool {
	s, ok := f.innermost()
	if !ok || !s.Lambda {
		return false
	}
	f.Hint.PushLambdaReturn(fqcn)
	return true
}

// Types returns every type scope in opening order.
func (f *File) Types() []*Scope {
	return f.collect(f.types)
}

// TopLevel returns the types not nested in another scope.
func (f *File) TopLevel() []*Scope {
	return f.collect(f.top)
}

func (f *File) collect(ids []ScopeID) []*Scope {
	out := make([]*Scope, len(ids))
	for i, id := range ids {
		out[i] = f.scopes[id]
	}
	return out
}

// HasType reports whether the file declares fqcn.
func (f *File) HasType(fqcn string) bool {
	for _, id := range f.types {
		if f.scopes[id].Type.FQCN == fqcn {
			return true
		}
	}
	return false
}

// ScopeAt returns the innermost type, method or block scope whose range
// contains line.
func (f *File) ScopeAt(line int) (*Scope, bool) {
	var found *Scope
	ids := f.top
	for {
		var next *Scope
		for _, id := range ids {
			if s := f.scopes[id]; s.Range.ContainsLine(line) {
				next = s
				break
			}
		}
		if next == nil {
			break
		}
		found = next
		ids = next.Children
	}
	return found, found != nil
}

// TypeAt returns the innermost type scope containing line.
func (f *File) TypeAt(line int) (*Scope, bool) {
	s, ok := f.ScopeAt(line)
	for ok && s.Kind != TypeScope {
		s, ok = f.Parent(s)
	}
	return s, ok
}

func (f *File) expressionsAt(s *Scope, line int) []*Scope {
	var out []*Scope
	for _, id := range s.Expressions {
		if e := f.scopes[id]; e.Range.ContainsLine(line) {
			out = append(out, e)
		}
	}
	return out
}

// VisibleAt returns the declarations visible at line, innermost first.
// A name shadowed by an inner declaration appears once.
func (f *File) VisibleAt(line int) []*Variable {
	var out []*Variable
	seen := map[string]bool{}
	keep := func(vs []*Variable) {
		for _, v := range vs {
			if !seen[v.Name] {
				seen[v.Name] = true
				out = append(out, v)
			}
		}
	}

	s, ok := f.ScopeAt(line)
	for ok {
		for _, e := range f.expressionsAt(s, line) {
			keep(e.Declarations())
		}
		keep(s.Declarations())
		if s.Kind == TypeScope {
			keep(sortedFields(s.Type.Fields))
		}
		s, ok = f.Parent(s)
	}
	return out
}

func sortedFields(fields map[string]*Variable) []*Variable {
	out := make([]*Variable, 0, len(fields))
	for _, v := range fields {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AccessesAt returns the accesses recorded in the innermost scope at line
// that begin on that line.
func (f *File) AccessesAt(line int) []*AccessRecord {
	s, ok := f.ScopeAt(line)
	if !ok {
		return nil
	}
	var out []*AccessRecord
	for _, a := range s.Accesses {
		if a.Range.Begin.Line == line {
			out = append(out, a)
		}
	}
	for _, e := range f.expressionsAt(s, line) {
		for _, a := range e.Accesses {
			if a.Range.Begin.Line == line {
				out = append(out, a)
			}
		}
	}
	return out
}

// AccessAt returns the access under or nearest left of column on line.
func (f *File) AccessAt(line, column int) (*AccessRecord, bool) {
	as := f.AccessesAt(line)
	for col := column; col >= 0 && len(as) > 0; col-- {
		for _, a := range as {
			if a.Range.ContainsColumn(col) {
				return a, true
			}
		}
	}
	return nil, false
}

// ExpressionReturnAt returns the access that yields the value of the
// expression statement at line.
func (f *File) ExpressionReturnAt(line int) (*AccessRecord, bool) {
	s, ok := f.ScopeAt(line)
	if !ok {
		return nil, false
	}
	for _, e := range f.expressionsAt(s, line) {
		if a, ok := e.ExpressionReturn(); ok {
			return a, true
		}
	}
	return nil, false
}

// FieldOf returns the field name declared on the type scope id.
func (f *File) FieldOf(id ScopeID, name string) (*Variable, bool) {
	s, ok := f.Scope(id)
	if !ok || s.Type == nil {
		return nil, false
	}
	v, ok := s.Type.Fields[name]
	return v, ok
}

// InnermostAt is ScopeAt narrowed to the expression statement covering
// line, when there is one.
func (f *File) InnermostAt(line int) (*Scope, bool) {
	s, ok := f.ScopeAt(line)
	if !ok {
		return nil, false
	}
	if es := f.expressionsAt(s, line); len(es) > 0 {
		return es[len(es)-1], true
	}
	return s, true
}
