// Package rpc exposes an engine over HTTP: JSON-RPC 2.0 on /rpc for the page
// collector and query clients, and change notifications on /events (SSE) and
// /ws (WebSocket).
package rpc

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dusk-indust/modgraph/internal/engine"
	"github.com/dusk-indust/modgraph/internal/ingest"
)

const (
	// DefaultHeartbeat is the interval between SSE keep-alive comments.
	DefaultHeartbeat = 30 * time.Second

	maxBodyBytes = 64 << 20
)

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAllowedOrigins sets the browser origins allowed to call the server.
// "*" allows any origin. With no origins configured only same-host requests
// and requests without an Origin header are accepted.
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithHeartbeat sets the SSE keep-alive interval.
func WithHeartbeat(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.heartbeat = d
		}
	}
}

// Server is the HTTP server in front of an engine.
type Server struct {
	engine    *engine.Engine
	collector *ingest.Collector
	origins   []string
	heartbeat time.Duration
	http      *http.Server

	closing   chan struct{}
	closeOnce sync.Once
}

// NewServer creates a server for e. Page and network observations are fed
// through c.
func NewServer(e *engine.Engine, c *ingest.Collector, opts ...ServerOption) *Server {
	s := &Server{
		engine:    e,
		collector: c,
		heartbeat: DefaultHeartbeat,
		closing:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /rpc", s.handleJSONRPC)
	mux.HandleFunc("OPTIONS /rpc", s.handlePreflight)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /ws", s.handleWS)

	return s.cors(mux)
}

// Start binds addr and begins serving in a background goroutine. It returns
// the bound address, which differs from addr when addr uses port 0.
func (s *Server) Start(ctx context.Context, addr string) (string, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("rpc: listen %s: %w", addr, err)
	}

	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("rpc: serve: %v", err)
		}
	}()

	log.Printf("rpc: listening on %s", ln.Addr())
	return ln.Addr().String(), nil
}

// Stop gracefully shuts down the HTTP server. Open event streams are ended
// first so Shutdown does not wait on them.
func (s *Server) Stop(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.closing) })
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	if _, err := s.Start(ctx, addr); err != nil {
		return err
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Stop(shutdownCtx)
}

// allowOrigin reports whether a browser at origin may talk to this server.
func (s *Server) allowOrigin(r *http.Request, origin string) bool {
	if origin == "" {
		return true
	}
	if len(s.origins) == 0 {
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
	for _, o := range s.origins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if !s.allowOrigin(r, origin) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handlePreflight(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.WriteHeader(http.StatusNoContent)
}
