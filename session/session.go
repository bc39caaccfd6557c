// Package session owns everything one analysis needs: the class index,
// the member reflector and the resolvers built on them. Callers create a
// Session and pass it down instead of reaching for globals.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/dhamidi/classlens/config"
	"github.com/dhamidi/classlens/java/analyzer"
	"github.com/dhamidi/classlens/java/index"
	"github.com/dhamidi/classlens/java/reflector"
	"github.com/dhamidi/classlens/java/resolver"
	"github.com/dhamidi/classlens/java/scanner"
)

var log = commonlog.GetLogger("classlens.session")

type Session struct {
	Config    *config.Config
	Scanner   *scanner.Scanner
	Index     *index.Index
	Reflector *reflector.Reflector
	Resolver  *resolver.Resolver
	Analyzer  *analyzer.Analyzer

	mu      sync.Mutex
	watcher *Watcher
}

// New wires an empty session from cfg. Nothing is scanned yet.
func New(cfg *config.Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	filter, err := cfg.Filter()
	if err != nil {
		return nil, err
	}
	s := &Session{Config: cfg}
	s.Scanner = scanner.New(scanner.Options{Filter: filter, Workers: cfg.Index.Workers})
	s.Index = index.New(s.Scanner, cfg.Index.Workers)
	s.Reflector = reflector.New(s.Index, cfg.ReflectorOptions())
	s.Resolver = resolver.New(s.Index, s.Reflector)
	s.Analyzer = analyzer.New(s.Index, s.Reflector, s.Resolver)
	return s, nil
}

// Open creates a session and indexes the configured paths.
func Open(ctx context.Context, cfg *config.Config) (*Session, error) {
	s, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if err := s.Build(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Build rescans every configured path from scratch.
func (s *Session) Build(ctx context.Context) error {
	paths := s.Config.Paths()
	if err := s.Index.Build(ctx, paths); err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	s.Reflector.Reset()
	return nil
}

// Refresh rescans the output directories, keeping archives as they are,
// and drops cached members.
func (s *Session) Refresh(ctx context.Context) error {
	if err := s.Index.RescanDirectories(ctx); err != nil {
		return fmt.Errorf("rescan directories: %w", err)
	}
	s.Reflector.Reset()
	return nil
}

// Watch refreshes the session whenever a class file under one of the
// configured directories changes. onRefresh, when set, runs after each
// refresh.
func (s *Session) Watch(ctx context.Context, onRefresh func(changed []string, err error)) error {
	var dirs []string
	for _, p := range s.Config.Paths() {
		if kind, _ := scanner.KindOf(p); kind == scanner.Directory {
			dirs = append(dirs, p)
		}
	}
	if len(dirs) == 0 {
		return errors.New("watch: no class directories configured")
	}

	w, err := NewWatcher(s.Config.Watch.Debounce, func(changed []string) {
		err := s.Refresh(ctx)
		if err != nil {
			log.Warningf("refresh after %d changes: %s", len(changed), err)
		} else {
			log.Infof("refreshed after %d changes, %d classes", len(changed), s.Index.Len())
		}
		if onRefresh != nil {
			onRefresh(changed, err)
		}
	})
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if err := w.Watch(dirs); err != nil {
		w.Close()
		return fmt.Errorf("watch: %w", err)
	}

	s.mu.Lock()
	if s.watcher != nil {
		s.watcher.Close()
	}
	s.watcher = w
	s.mu.Unlock()
	return nil
}

// Close stops watching and releases open archives.
func (s *Session) Close() error {
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	var errs []error
	if w != nil {
		errs = append(errs, w.Close())
	}
	s.Scanner.Close()
	errs = append(errs, s.Reflector.Close())
	return errors.Join(errs...)
}
