// Package lsp serves class search over the Language Server Protocol.
// Clients find indexed classes with workspace/symbol.
package lsp

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/dhamidi/classlens/config"
	"github.com/dhamidi/classlens/java"
	"github.com/dhamidi/classlens/session"
)

const lsName = "classlens"

// MaxSymbols caps one workspace/symbol answer.
const MaxSymbols = 200

var log = commonlog.GetLogger("classlens.lsp")

var errNotReady = errors.New("index not built yet")

type Server struct {
	handler protocol.Handler
	server  *server.Server
	version string
	watch   bool

	mu      sync.RWMutex
	session *session.Session
}

// NewServer returns a server that builds its session on initialize.
// With watch set, class directories are rescanned when they change.
func NewServer(version string, watch bool) *Server {
	ls := &Server{version: version, watch: watch}
	ls.handler = protocol.Handler{
		Initialize:                     ls.initialize,
		Initialized:                    ls.initialized,
		Shutdown:                       ls.shutdown,
		SetTrace:                       ls.setTrace,
		WorkspaceSymbol:                ls.workspaceSymbol,
		WorkspaceDidChangeWatchedFiles: ls.didChangeWatchedFiles,
	}
	ls.server = server.NewServer(&ls.handler, lsName, false)
	return ls
}

func (ls *Server) RunStdio() error {
	return ls.server.RunStdio()
}

// Session returns the session once initialize built it.
func (ls *Server) Session() (*session.Session, bool) {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return ls.session, ls.session != nil
}

func (ls *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	root := "."
	if params.RootPath != nil && *params.RootPath != "" {
		root = *params.RootPath
	} else if params.RootURI != nil && *params.RootURI != "" {
		if path, err := uriToPath(*params.RootURI); err == nil {
			root = path
		}
	}

	cfg, err := config.Find(root)
	if err != nil {
		return nil, err
	}
	s, err := session.New(cfg)
	if err != nil {
		return nil, err
	}
	ls.mu.Lock()
	if ls.session != nil {
		ls.session.Close()
	}
	ls.session = s
	ls.mu.Unlock()

	capabilities := ls.handler.CreateServerCapabilities()
	capabilities.WorkspaceSymbolProvider = true
	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &ls.version,
		},
	}, nil
}

// initialized indexes in the background so the client is not held up.
func (ls *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	s, ok := ls.Session()
	if !ok {
		return errNotReady
	}
	go func() {
		if err := s.Build(context.Background()); err != nil {
			log.Warningf("%s", err)
			return
		}
		log.Infof("indexed %d classes", s.Index.Len())
		if ls.watch {
			if err := s.Watch(context.Background(), nil); err != nil {
				log.Warningf("%s", err)
			}
		}
	}()
	return nil
}

func (ls *Server) shutdown(ctx *glsp.Context) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.session == nil {
		return nil
	}
	err := ls.session.Close()
	ls.session = nil
	return err
}

func (ls *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (ls *Server) workspaceSymbol(ctx *glsp.Context, params *protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error) {
	s, ok := ls.Session()
	if !ok {
		return nil, errNotReady
	}
	return Symbols(s, params.Query), nil
}

// didChangeWatchedFiles rescans when the client reports class files
// changed.
func (ls *Server) didChangeWatchedFiles(ctx *glsp.Context, params *protocol.DidChangeWatchedFilesParams) error {
	s, ok := ls.Session()
	if !ok {
		return nil
	}
	for _, change := range params.Changes {
		if strings.HasSuffix(change.URI, ".class") {
			return s.Refresh(context.Background())
		}
	}
	return nil
}

// Symbols answers a workspace/symbol query with the classes whose simple
// name is closest to query.
func Symbols(s *session.Session, query string) []protocol.SymbolInformation {
	query = strings.TrimSpace(query)
	if query == "" {
		return []protocol.SymbolInformation{}
	}
	matches := s.Index.SearchFuzzy(query)
	if len(matches) > MaxSymbols {
		matches = matches[:MaxSymbols]
	}
	out := make([]protocol.SymbolInformation, 0, len(matches))
	for _, m := range matches {
		out = append(out, symbol(m.Class))
	}
	return out
}

func symbol(cd *java.ClassDescriptor) protocol.SymbolInformation {
	kind := protocol.SymbolKindClass
	if cd.IsInterface {
		kind = protocol.SymbolKindInterface
	}
	container := cd.Package()
	return protocol.SymbolInformation{
		Name:          cd.Name,
		Kind:          kind,
		ContainerName: &container,
		Location: protocol.Location{
			URI: pathToURI(cd.FilePath),
		},
	}
}

func uriToPath(uri string) (string, error) {
	if strings.HasPrefix(uri, "file://") {
		parsed, err := url.Parse(uri)
		if err != nil {
			return "", err
		}
		return filepath.Clean(parsed.Path), nil
	}
	return uri, nil
}

func pathToURI(path string) string {
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}
