// Package server implements the bizcache HTTP surface: operator routes for
// inspecting and invalidating the cache, Prometheus metrics, and an optional
// caching gateway in front of an upstream API.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Server timeouts. WriteTimeout is taken from server.timeout_ms.
const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 10 * time.Second
	idleTimeout       = 120 * time.Second
)

// Server wraps http.Server with bizcache defaults.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	addr       string
}

// NewServer creates a Server for handler. A zero writeTimeout disables the
// write deadline. If enableHTTP2 is true, HTTP/2 cleartext (h2c) is accepted
// on the same port.
func NewServer(addr string, handler http.Handler, writeTimeout time.Duration, enableHTTP2 bool) *Server {
	if enableHTTP2 {
		handler = h2c.NewHandler(handler, &http2.Server{})
	}

	return &Server{
		addr: addr,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
			ReadTimeout:       readTimeout,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       idleTimeout,
		},
	}
}

// Listen binds the listening socket without serving. It lets callers learn
// the bound address (for ":0") before Serve starts.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address once Listen has run, else the configured one.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ListenAndServe serves until Shutdown (blocks). It returns nil after a
// graceful shutdown.
func (s *Server) ListenAndServe() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	err := s.httpServer.Serve(s.listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
