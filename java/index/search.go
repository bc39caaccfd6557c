package index

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/dhamidi/classlens/java"
	"github.com/dhamidi/classlens/java/names"
)

// Search returns classes whose simple name or declaration equals keyword.
// Inner classes also match on their last segment.
func (ix *Index) Search(keyword string) []*java.ClassDescriptor {
	return ix.collect(func(cd *java.ClassDescriptor) bool {
		if names.IsAnonymousClass(cd.Declaration) {
			return false
		}
		return cd.Name == keyword ||
			strings.HasSuffix(cd.Name, names.InnerMark+keyword) ||
			cd.Declaration == keyword
	})
}

// SearchContains returns classes whose simple name contains keyword,
// ignoring case.
func (ix *Index) SearchContains(keyword string) []*java.ClassDescriptor {
	kw := strings.ToLower(keyword)
	return ix.collect(func(cd *java.ClassDescriptor) bool {
		return !names.IsAnonymousClass(cd.Declaration) &&
			strings.Contains(strings.ToLower(cd.Name), kw)
	})
}

// Match is one fuzzy search hit.
type Match struct {
	Class    *java.ClassDescriptor
	Distance int
}

// SearchFuzzy ranks classes by edit distance between their last name
// segment and keyword, keeping those no further away than the keyword's
// length.
func (ix *Index) SearchFuzzy(keyword string) []Match {
	kw := strings.ToLower(keyword)
	limit := len(kw) + 1

	ix.mu.RLock()
	var out []Match
	for _, cd := range ix.classes {
		if names.IsAnonymousClass(cd.Declaration) {
			continue
		}
		d := levenshtein.Distance(strings.ToLower(lastSegment(cd.Name)), kw, nil)
		if d < limit {
			out = append(out, Match{Class: cd.Clone(), Distance: d})
		}
	}
	ix.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Class.Declaration < out[j].Class.Declaration
	})
	return out
}

func lastSegment(name string) string {
	if i := strings.LastIndex(name, names.InnerMark); i >= 0 {
		return name[i+1:]
	}
	return name
}
