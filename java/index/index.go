// Package index aggregates scanned classes into a name keyed map and
// answers lookups, searches and ancestor queries over it.
package index

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"github.com/dhamidi/classlens/java"
	"github.com/dhamidi/classlens/java/names"
	"github.com/dhamidi/classlens/java/scanner"
)

var log = commonlog.GetLogger("classlens.index")

// Index maps dotted class names (with '$' for inner classes) to their
// descriptors. It is safe for concurrent use.
type Index struct {
	scanner *scanner.Scanner
	workers int

	mu       sync.RWMutex
	classes  map[string]*java.ClassDescriptor
	archives map[string]bool
	dirs     []string
	std      map[string]string
}

// New returns an empty index that scans through s. workers bounds how many
// artifacts are scanned at once; zero means no limit.
func New(s *scanner.Scanner, workers int) *Index {
	return &Index{
		scanner:  s,
		workers:  workers,
		classes:  make(map[string]*java.ClassDescriptor),
		archives: make(map[string]bool),
	}
}

func (ix *Index) scanAll(ctx context.Context, paths []string) ([]*scanner.Result, error) {
	results := make([]*scanner.Result, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	if ix.workers > 0 {
		g.SetLimit(ix.workers)
	}
	for i, p := range paths {
		g.Go(func() error {
			res, err := ix.scanner.Scan(ctx, p)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				// an unreadable artifact does not stop the others
				log.Warningf("skip %s: %s", p, err)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan class path: %w", err)
	}
	return results, nil
}

func (ix *Index) remember(res *scanner.Result) {
	switch res.Kind {
	case scanner.Directory:
		for _, d := range ix.dirs {
			if d == res.Path {
				return
			}
		}
		ix.dirs = append(ix.dirs, res.Path)
	case scanner.Archive, scanner.Jmod, scanner.Image, scanner.ClassFile:
		ix.archives[res.Path] = true
	}
}

// Build replaces the index contents with a scan of paths. Tokens of
// surviving entries carry over.
func (ix *Index) Build(ctx context.Context, paths []string) error {
	results, err := ix.scanAll(ctx, paths)
	if err != nil {
		return err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	old := ix.classes
	ix.classes = make(map[string]*java.ClassDescriptor, len(old))
	ix.archives = make(map[string]bool)
	ix.dirs = nil
	ix.std = nil
	for _, res := range results {
		if res == nil {
			continue
		}
		ix.remember(res)
		for _, cd := range res.Classes {
			ix.putLocked(cd, old)
		}
	}
	log.Infof("index built: %d classes from %d entries", len(ix.classes), len(paths))
	return nil
}

// AddArchives scans archives not seen before and merges their classes.
func (ix *Index) AddArchives(ctx context.Context, paths []string) error {
	ix.mu.RLock()
	var fresh []string
	for _, p := range paths {
		if !ix.archives[p] {
			fresh = append(fresh, p)
		}
	}
	ix.mu.RUnlock()
	if len(fresh) == 0 {
		return nil
	}

	results, err := ix.scanAll(ctx, fresh)
	if err != nil {
		return err
	}
	for _, res := range results {
		if res != nil {
			ix.Merge(res)
		}
	}
	return nil
}

// RescanDirectories rescans every known output directory. Classes whose
// class file disappeared are dropped.
func (ix *Index) RescanDirectories(ctx context.Context) error {
	ix.mu.RLock()
	dirs := append([]string(nil), ix.dirs...)
	ix.mu.RUnlock()
	if len(dirs) == 0 {
		return nil
	}

	results, err := ix.scanAll(ctx, dirs)
	if err != nil {
		return err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	for i, res := range results {
		if res == nil {
			continue
		}
		seen := make(map[string]bool, len(res.Classes))
		for _, cd := range res.Classes {
			seen[cd.Declaration] = true
			ix.putLocked(cd, ix.classes)
		}
		prefix := filepath.Clean(dirs[i]) + string(filepath.Separator)
		for name, cd := range ix.classes {
			if !seen[name] && strings.HasPrefix(cd.FilePath, prefix) {
				delete(ix.classes, name)
			}
		}
	}
	ix.std = nil
	return nil
}

// Merge adds the classes of one finished scan.
func (ix *Index) Merge(res *scanner.Result) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.remember(res)
	for _, cd := range res.Classes {
		ix.putLocked(cd, ix.classes)
	}
	ix.std = nil
}

// Put stores one descriptor, replacing any entry with the same name.
func (ix *Index) Put(cd *java.ClassDescriptor) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.putLocked(cd, ix.classes)
	ix.std = nil
}

func (ix *Index) putLocked(cd *java.ClassDescriptor, old map[string]*java.ClassDescriptor) {
	cd = cd.Clone()
	if prev, ok := old[cd.Declaration]; ok && cd.Token == "" {
		cd.Token = prev.Token
	}
	ix.classes[cd.Declaration] = cd
}

// MarkLoaded records that the members of name were read. A rebuild
// replaces the entry and clears the mark.
func (ix *Index) MarkLoaded(name string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if cd, ok := ix.classes[lookupKey(name)]; ok {
		cd.Loaded = true
	}
}

// EnsureToken returns the identity token of name, minting one if needed.
func (ix *Index) EnsureToken(name string) (string, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	cd, ok := ix.classes[name]
	if !ok {
		return "", false
	}
	if cd.Token == "" {
		cd.Token = uuid.NewString()
	}
	return cd.Token, true
}

func lookupKey(name string) string {
	return names.RemoveTypeMark(names.RemoveTypeParameter(name))
}

// Get returns a copy of the descriptor for name. Type arguments on name
// are ignored.
func (ix *Index) Get(name string) (*java.ClassDescriptor, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	cd, ok := ix.classes[lookupKey(name)]
	if !ok {
		return nil, false
	}
	return cd.Clone(), true
}

func (ix *Index) Contains(name string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.classes[lookupKey(name)]
	return ok
}

func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.classes)
}

// All returns every descriptor sorted by declaration.
func (ix *Index) All() []*java.ClassDescriptor {
	return ix.collect(func(*java.ClassDescriptor) bool { return true })
}

// Snapshot returns independent copies of every descriptor for external
// storage.
func (ix *Index) Snapshot() []*java.ClassDescriptor {
	return ix.All()
}

func (ix *Index) collect(keep func(*java.ClassDescriptor) bool) []*java.ClassDescriptor {
	ix.mu.RLock()
	var out []*java.ClassDescriptor
	for _, cd := range ix.classes {
		if keep(cd) {
			out = append(out, cd.Clone())
		}
	}
	ix.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Declaration < out[j].Declaration })
	return out
}

// SuperClasses returns the ancestor closure of name, most specific first,
// ending with java.lang.Object. Type marks are removed from the entries.
func (ix *Index) SuperClasses(name string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var out []string
	added := map[string]bool{}
	visited := map[string]bool{}
	ix.collectSupers(name, &out, added, visited)
	return append(out, names.Object)
}

func (ix *Index) collectSupers(name string, out *[]string, added, visited map[string]bool) {
	key := lookupKey(name)
	if visited[key] {
		return
	}
	visited[key] = true

	cd, ok := ix.classes[key]
	if !ok {
		return
	}
	supers := cd.Supers
	if len(supers) == 0 || (len(supers) == 1 && supers[0] == names.Object) {
		return
	}
	for _, s := range supers {
		if names.RemoveTypeParameter(s) == names.Object {
			continue
		}
		clean := names.RemoveTypeMark(s)
		if !added[clean] {
			added[clean] = true
			*out = append(*out, clean)
		}
		ix.collectSupers(s, out, added, visited)
	}
}

// PackageClasses maps simple names to full names for the classes of pkg.
// A trailing ".*" on pkg is accepted.
func (ix *Index) PackageClasses(pkg string) map[string]string {
	pkg = strings.TrimSuffix(pkg, ".*")
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.packageClassesLocked(pkg)
}

func (ix *Index) packageClassesLocked(pkg string) map[string]string {
	out := map[string]string{}
	for name, cd := range ix.classes {
		if cd.Package() == pkg {
			out[cd.Name] = name
		}
	}
	return out
}

// StandardClasses is the java.lang table consulted for unqualified names.
func (ix *Index) StandardClasses() map[string]string {
	ix.mu.RLock()
	std := ix.std
	ix.mu.RUnlock()
	if std != nil {
		return maps.Clone(std)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.std == nil {
		ix.std = ix.packageClassesLocked(names.LangPackage)
	}
	return maps.Clone(ix.std)
}

// InnerClasses returns the named member classes directly or transitively
// nested in parent.
func (ix *Index) InnerClasses(parent string) []*java.ClassDescriptor {
	prefix := lookupKey(parent) + names.InnerMark
	return ix.collect(func(cd *java.ClassDescriptor) bool {
		return strings.HasPrefix(cd.Declaration, prefix) && !names.IsAnonymousClass(cd.Declaration)
	})
}
