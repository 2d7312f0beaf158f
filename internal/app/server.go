// Package app assembles the development server: the frontend, the API
// reference, the health endpoint and the backend proxy behind one listener.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iloveyushi/ainaojin/internal/adapters/http/api"
	"github.com/iloveyushi/ainaojin/internal/adapters/http/proxy"
	"github.com/iloveyushi/ainaojin/internal/adapters/http/site"
	"github.com/iloveyushi/ainaojin/internal/adapters/http/swagger"
	"github.com/iloveyushi/ainaojin/pkg/logger"
	"github.com/iloveyushi/ainaojin/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

// Errors returned by the server lifecycle.
var (
	ErrAlreadyStarted = errors.New("dev server already started")
	ErrNotStarted     = errors.New("dev server not started")
)

// Server is the development server.
type Server struct {
	mu sync.Mutex

	addr        string
	proxyCfg    proxy.Config
	transport   http.RoundTripper
	cors        bool
	openBrowser bool
	staticDir   string
	opener      func(url string) error
	logger      logger.Logger

	handler http.Handler
	srv     *http.Server
	ln      net.Listener
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithProxy sets the forwarding rule.
func WithProxy(cfg proxy.Config) Option {
	return func(s *Server) { s.proxyCfg = cfg }
}

// WithUpstreamTransport sets the RoundTripper the proxy uses to reach the backend.
func WithUpstreamTransport(rt http.RoundTripper) Option {
	return func(s *Server) { s.transport = rt }
}

// WithCORS toggles permissive CORS on proxied routes.
func WithCORS(enabled bool) Option {
	return func(s *Server) { s.cors = enabled }
}

// WithOpenBrowser opens the frontend in a browser once the server listens.
func WithOpenBrowser(enabled bool) Option {
	return func(s *Server) { s.openBrowser = enabled }
}

// WithBrowserOpener replaces the platform browser launcher.
func WithBrowserOpener(fn func(url string) error) Option {
	return func(s *Server) {
		if fn != nil {
			s.opener = fn
		}
	}
}

// WithStaticDir serves the frontend from dir instead of the embedded page.
func WithStaticDir(dir string) Option {
	return func(s *Server) { s.staticDir = dir }
}

// WithLogger sets a custom logger for the server.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New builds the server and its routes. The listener is not opened until Start.
func New(ctx context.Context, opts ...Option) (*Server, error) {
	s := &Server{
		addr:     ":3000",
		proxyCfg: proxy.DefaultConfig(),
		cors:     true,
		opener:   openBrowser,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	p, err := proxy.New(s.proxyCfg,
		proxy.WithLogger(s.logger),
		proxy.WithTransport(s.transport),
	)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	api.NewServer(p, api.WithCORS(s.cors)).Register(ctx, mux)
	swagger.Register(ctx, mux)
	site.Register(ctx, mux, site.WithDir(s.staticDir))
	s.handler = mux

	return s, nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Start opens the listener.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln != nil {
		return ErrAlreadyStarted
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.ln = ln
	s.srv = &http.Server{
		Handler:           s.handler,
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return nil
}

// URL returns the browser address of the running server.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln == nil {
		return ""
	}
	return browserURL(s.ln.Addr())
}

// Serve handles requests until ctx is canceled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	srv, ln := s.srv, s.ln
	s.mu.Unlock()
	if srv == nil {
		return ErrNotStarted
	}

	url := browserURL(ln.Addr())
	s.logger.Info(ctx, "dev server listening",
		logger.String("url", url),
		logger.String("proxy_prefix", s.proxyCfg.Prefix),
		logger.String("proxy_target", s.proxyCfg.Target),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info(ctx, "shutting down dev server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		runSystemMetrics(gctx)
		return nil
	})

	if s.openBrowser {
		g.Go(func() error {
			if err := s.opener(url); err != nil {
				s.logger.Warn(gctx, "failed to open browser", logger.String("url", url), logger.Error(err))
			}
			return nil
		})
	}

	err := g.Wait()
	s.logger.Info(ctx, "dev server stopped")
	return err
}

// Run starts the server and serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// browserURL maps a listen address to something a browser can open.
func browserURL(addr net.Addr) string {
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return "http://" + addr.String() + "/"
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/"
}

func runSystemMetrics(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	updateSystemMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if m.NumGC > 0 {
		metrics.RecordSystemGCPauseTime(float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond)
	}
}
