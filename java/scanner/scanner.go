// Package scanner reads class path artifacts (output directories, jars,
// single class files, jmods and runtime images) and turns every usable
// class into a descriptor for the index.
package scanner

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"github.com/dhamidi/classlens/classfile"
	"github.com/dhamidi/classlens/java"
	"github.com/dhamidi/classlens/java/jrt"
	"github.com/dhamidi/classlens/java/names"
)

var log = commonlog.GetLogger("classlens.scanner")

var ErrUnsupported = errors.New("scanner: unsupported class path entry")

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

type Kind int

const (
	Unknown Kind = iota
	Directory
	Archive
	ClassFile
	Jmod
	Image
)

func (k Kind) String() string {
	switch k {
	case Directory:
		return "directory"
	case Archive:
		return "archive"
	case ClassFile:
		return "class"
	case Jmod:
		return "jmod"
	case Image:
		return "image"
	}
	return "unknown"
}

// KindOf classifies a class path entry. A JDK home resolves to its
// module image.
func KindOf(path string) (Kind, string) {
	st, err := os.Stat(path)
	if err != nil {
		return Unknown, path
	}
	if st.IsDir() {
		if img := jrt.ImagePath(path); img != "" {
			return Image, img
		}
		return Directory, path
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".class":
		return ClassFile, path
	case ".jar", ".zip":
		return Archive, path
	case ".jmod":
		return Jmod, path
	}
	if filepath.Base(path) == "modules" {
		return Image, path
	}
	return Unknown, path
}

type Result struct {
	ID        string
	Status    Status
	Path      string
	Kind      Kind
	Classes   []*java.ClassDescriptor
	Error     string
	Errors    []string
	StartedAt time.Time
	EndedAt   time.Time
	Progress  int
	Total     int
}

func (r *Result) ProgressPercent() int {
	if r.Total == 0 {
		return 0
	}
	return (r.Progress * 100) / r.Total
}

type Options struct {
	Filter *Filter
	// Workers bounds concurrent class decoding. Zero means one per CPU.
	Workers int
	// OnComplete receives every finished submitted scan.
	OnComplete func(*Result)
}

// Scanner runs scans synchronously through Scan or in the background
// through Submit.
type Scanner struct {
	opts Options

	mu     sync.RWMutex
	scans  map[string]*Result
	nextID int

	start    sync.Once
	sendMu   sync.Mutex
	requests chan *Result
	closed   bool
}

func New(opts Options) *Scanner {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Scanner{
		opts:     opts,
		scans:    make(map[string]*Result),
		requests: make(chan *Result, 100),
	}
}

func (s *Scanner) run() {
	for r := range s.requests {
		s.process(context.Background(), r)
		if s.opts.OnComplete != nil {
			s.opts.OnComplete(s.snapshot(r))
		}
	}
}

// Scan reads one class path entry and waits for the result. Unreadable
// entries inside the artifact are reported in Result.Errors; the returned
// error covers an unreadable artifact or cancellation.
func (s *Scanner) Scan(ctx context.Context, path string) (*Result, error) {
	r := &Result{Path: path, Status: StatusPending}
	err := s.process(ctx, r)
	return r, err
}

// Submit queues a background scan of path and returns its id.
func (s *Scanner) Submit(path string) string {
	s.start.Do(func() { go s.run() })

	s.mu.Lock()
	s.nextID++
	id := fmt.Sprintf("%d", s.nextID)
	r := &Result{ID: id, Status: StatusPending, Path: path}
	s.scans[id] = r
	s.mu.Unlock()

	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.closed {
		s.mu.Lock()
		r.Status, r.Error = StatusFailed, "scanner closed"
		s.mu.Unlock()
		return id
	}
	s.requests <- r
	return id
}

// Close stops the background worker once queued scans finish.
func (s *Scanner) Close() {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.requests)
	}
}

func (s *Scanner) snapshot(r *Result) *Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := *r
	return &cp
}

func (s *Scanner) Get(id string) (*Result, bool) {
	s.mu.RLock()
	r, ok := s.scans[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return s.snapshot(r), true
}

func (s *Scanner) List() []*Result {
	s.mu.RLock()
	ids := make([]string, 0, len(s.scans))
	for id := range s.scans {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	out := make([]*Result, 0, len(ids))
	for _, id := range ids {
		if r, ok := s.Get(id); ok {
			out = append(out, r)
		}
	}
	return out
}

// unit is one class waiting to be decoded.
type unit struct {
	name   string
	origin string
	read   func() ([]byte, error)
}

func (s *Scanner) process(ctx context.Context, r *Result) error {
	s.mu.Lock()
	r.Status = StatusInProgress
	r.StartedAt = time.Now()
	s.mu.Unlock()

	kind, path := KindOf(r.Path)
	units, cleanup, err := s.collect(kind, path)
	if cleanup != nil {
		defer cleanup()
	}
	if err == nil {
		err = s.decode(ctx, r, kind, units)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r.Kind = kind
	r.EndedAt = time.Now()
	if err != nil {
		r.Status = StatusFailed
		r.Error = err.Error()
		log.Warningf("scan %s: %s", r.Path, err)
		return err
	}
	r.Status = StatusCompleted
	log.Infof("scanned %s (%s): %d classes, %d errors", r.Path, kind, len(r.Classes), len(r.Errors))
	return nil
}

func (s *Scanner) collect(kind Kind, path string) ([]unit, func(), error) {
	switch kind {
	case Directory:
		units, err := collectDirectory(path)
		return units, nil, err
	case ClassFile:
		return []unit{{name: path, origin: path, read: func() ([]byte, error) { return os.ReadFile(path) }}}, nil, nil
	case Archive:
		zr, err := zip.OpenReader(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open archive: %w", err)
		}
		var units []unit
		for _, f := range zr.File {
			if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, ".class") {
				continue
			}
			units = append(units, unit{name: strings.TrimSuffix(f.Name, ".class"), origin: path, read: zipReader(f)})
		}
		return units, func() { zr.Close() }, nil
	case Jmod:
		j, err := jrt.OpenJmod(path)
		if err != nil {
			return nil, nil, err
		}
		var units []unit
		for name, f := range j.Classes() {
			units = append(units, unit{name: name, origin: path, read: zipReader(f)})
		}
		return units, func() { j.Close() }, nil
	case Image:
		img, err := jrt.Open(path)
		if err != nil {
			return nil, nil, err
		}
		var units []unit
		for _, e := range img.Classes() {
			units = append(units, unit{name: e.Name, origin: path, read: func() ([]byte, error) { return img.Read(e) }})
		}
		return units, func() { img.Close() }, nil
	}
	return nil, nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
}

func collectDirectory(root string) ([]unit, error) {
	var units []unit
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			log.Warningf("walk %s: %s", p, err)
			return nil
		}
		if d.IsDir() || filepath.Ext(p) != ".class" {
			return nil
		}
		units = append(units, unit{name: p, origin: p, read: func() ([]byte, error) { return os.ReadFile(p) }})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return units, nil
}

func zipReader(f *zip.File) func() ([]byte, error) {
	return func() ([]byte, error) {
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
}

func (s *Scanner) decode(ctx context.Context, r *Result, kind Kind, units []unit) error {
	// Archive entry names are internal class names, so denied packages can
	// be dropped before reading them.
	if kind != Directory && kind != ClassFile {
		kept := units[:0]
		for _, u := range units {
			if s.opts.Filter.Allowed(names.ReplaceSlash(u.name)) {
				kept = append(kept, u)
			}
		}
		units = kept
	}

	s.mu.Lock()
	r.Total = len(units)
	s.mu.Unlock()

	var (
		mu      sync.Mutex
		classes []*java.ClassDescriptor
		errs    []string
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for _, u := range units {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			cd, err := s.describe(u, kind)

			mu.Lock()
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", u.name, err))
			}
			if cd != nil {
				classes = append(classes, cd)
			}
			mu.Unlock()

			s.mu.Lock()
			r.Progress++
			s.mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sort.Slice(classes, func(i, j int) bool { return classes[i].Declaration < classes[j].Declaration })
	sort.Strings(errs)
	for _, e := range errs {
		log.Warningf("%s", e)
	}

	s.mu.Lock()
	r.Classes = classes
	r.Errors = errs
	s.mu.Unlock()
	return nil
}

func (s *Scanner) describe(u unit, kind Kind) (*java.ClassDescriptor, error) {
	data, err := u.read()
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	cf, err := classfile.ParseBytes(data)
	if err != nil {
		return nil, err
	}
	if cf.IsModule() {
		return nil, nil
	}
	name := names.ReplaceSlash(cf.ClassName())
	if !s.opts.Filter.Allowed(name) || !visible(cf, kind, s.opts.Filter) {
		return nil, nil
	}
	cd, err := Describe(cf)
	cd.FilePath = u.origin
	return cd, err
}
