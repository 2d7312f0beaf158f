// Package api registers the dev server's own routes: the forwarded backend
// prefix and the health/metrics endpoint.
package api

import (
	"context"
	"net/http"

	"github.com/iloveyushi/ainaojin/internal/adapters/http/proxy"
)

// Forwarder is the proxy as seen by the route layer.
type Forwarder interface {
	http.Handler
	Prefix() string
}

var _ Forwarder = (*proxy.Proxy)(nil)

// Server wires HTTP routes of the dev server.
type Server struct {
	healthHandler *HealthHandler
	forwarder     Forwarder
	cors          bool
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithCORS wraps forwarded routes in the permissive CORS middleware.
func WithCORS(enabled bool) Option {
	return func(s *Server) { s.cors = enabled }
}

// NewServer creates the route set around forwarder.
func NewServer(forwarder Forwarder, opts ...Option) *Server {
	s := &Server{
		healthHandler: NewHealthHandler(),
		forwarder:     forwarder,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))

	if s.forwarder == nil {
		return
	}
	var h http.Handler = s.forwarder
	if s.cors {
		h = proxy.CORS(h)
	}
	forward := MetricsMiddleware(h.ServeHTTP, "proxy")
	prefix := s.forwarder.Prefix()
	mux.HandleFunc(prefix, forward)
	mux.HandleFunc(prefix+"/", forward)
}
