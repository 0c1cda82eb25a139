package mcp

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mamaar/merak/pkg/build"
	"github.com/mamaar/merak/pkg/refactor"
)

// DefaultSessions is the number of packages kept in memory.
const DefaultSessions = 16

// MCPServer holds the shared state for the MCP tool handlers: one
// restructuring session per package, kept in an LRU cache so repeated
// queries against the same package skip re-indexing.
type MCPServer struct {
	mu       sync.Mutex
	opts     build.Options
	sessions *lru.Cache[string, *Session]
	logger   *slog.Logger
}

// Session is a flattened, in-memory view of one package.
type Session struct {
	Builder      *build.Builder
	Restructurer *refactor.Restructurer
}

// NewMCPServer creates a new MCPServer. opts seeds every builder the
// server creates; size bounds the number of cached sessions.
func NewMCPServer(opts build.Options, size int, logger *slog.Logger) (*MCPServer, error) {
	if size <= 0 {
		size = DefaultSessions
	}
	opts.Logger = logger
	cache, err := lru.NewWithEvict(size, func(path string, _ *Session) {
		logger.Debug("session evicted", "path", path)
	})
	if err != nil {
		return nil, err
	}
	return &MCPServer{opts: opts, sessions: cache, logger: logger}, nil
}

// Session returns the session of the package at path, opening it when it
// is not cached or reload is set.
func (s *MCPServer) Session(path string, reload bool) (*Session, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !reload {
		if sess, ok := s.sessions.Get(abs); ok {
			return sess, nil
		}
	}

	s.logger.Info("opening session", "path", abs)
	b, err := s.builder(abs, s.opts.Force)
	if err != nil {
		return nil, err
	}
	r, err := b.Session()
	if err != nil {
		return nil, err
	}
	sess := &Session{Builder: b, Restructurer: r}
	s.sessions.Add(abs, sess)
	return sess, nil
}

// Invalidate drops the cached session of the package at path.
func (s *MCPServer) Invalidate(path string) {
	if abs, err := filepath.Abs(path); err == nil {
		s.sessions.Remove(abs)
	}
}

// Len returns the number of cached sessions.
func (s *MCPServer) Len() int { return s.sessions.Len() }

func (s *MCPServer) builder(path string, force bool) (*build.Builder, error) {
	opts := s.opts
	opts.Force = force
	return build.NewBuilder(path, opts)
}

// NewServer creates the mcp-go server with every merak tool registered.
func NewServer(state *MCPServer, version string) *server.MCPServer {
	srv := server.NewMCPServer(
		"merak-mcp",
		version,
		server.WithToolCapabilities(true),
		server.WithLogging(),
		server.WithRecovery(),
	)
	RegisterAllTools(srv, state)
	return srv
}
