package scanner

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultDeny lists implementation packages left out of the index.
var DefaultDeny = []string{
	"sun.",
	"com.sun",
	"com.oracle",
	"oracle.jrockit",
	"jdk",
	"org.omg",
	"org.ietf.",
	"org.jcp.",
	"netscape",
	"org.jboss.forge.roaster._shade.org.eclipse.core.internal",
}

type matcher interface {
	Match(string) bool
}

type prefix string

func (p prefix) Match(s string) bool { return strings.HasPrefix(s, string(p)) }

// Filter decides which classes enter the index. Allow entries win over
// deny entries. An entry with glob metacharacters is matched against the
// whole class name with '.' as separator; anything else is a prefix.
type Filter struct {
	allow []matcher
	deny  []matcher
	// IncludePackagePrivate admits package-visible classes from archives
	// and runtime images.
	IncludePackagePrivate bool
}

func compile(patterns []string) ([]matcher, error) {
	out := make([]matcher, 0, len(patterns))
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if !strings.ContainsAny(p, "*?[{") {
			out = append(out, prefix(p))
			continue
		}
		g, err := glob.Compile(p, '.')
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// NewFilter builds a filter from the default deny list plus extra entries.
func NewFilter(allow, deny []string) (*Filter, error) {
	a, err := compile(allow)
	if err != nil {
		return nil, err
	}
	d, err := compile(append(append([]string{}, DefaultDeny...), deny...))
	if err != nil {
		return nil, err
	}
	return &Filter{allow: a, deny: d}, nil
}

// Allowed reports whether the dotted class name may be indexed.
func (f *Filter) Allowed(name string) bool {
	if strings.HasSuffix(name, "package-info") || strings.HasSuffix(name, "module-info") {
		return false
	}
	if f == nil {
		return true
	}
	for _, m := range f.allow {
		if m.Match(name) {
			return true
		}
	}
	for _, m := range f.deny {
		if m.Match(name) {
			return false
		}
	}
	return true
}
