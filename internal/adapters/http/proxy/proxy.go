// Package proxy forwards prefixed browser requests to a backend origin during
// local development.
package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iloveyushi/ainaojin/pkg/logger"
	"github.com/iloveyushi/ainaojin/pkg/metrics"
)

// Defaults of the dev setup.
const (
	DefaultPrefix = "/api"
	DefaultTarget = "http://localhost:8080"
)

// Config describes one forwarding rule.
type Config struct {
	// Prefix selects requests to forward and is removed before forwarding.
	Prefix string
	// Target is the backend origin, e.g. http://localhost:8080.
	Target string
	// ChangeOrigin sends the target host as the Host header.
	ChangeOrigin bool
}

// DefaultConfig returns /api -> http://localhost:8080 with changeOrigin.
func DefaultConfig() Config {
	return Config{Prefix: DefaultPrefix, Target: DefaultTarget, ChangeOrigin: true}
}

// Proxy is an http.Handler forwarding matching requests to Config.Target.
type Proxy struct {
	prefix          string
	target          *url.URL
	changeOrigin    bool
	requestIDHeader string
	logger          logger.Logger
	rp              *httputil.ReverseProxy
}

// Option applies a configuration option to the Proxy.
type Option func(*Proxy)

// WithLogger sets the proxy logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Proxy) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithRequestIDHeader stamps forwarded requests missing the header with a UUID.
// Empty disables it.
func WithRequestIDHeader(header string) Option {
	return func(p *Proxy) { p.requestIDHeader = header }
}

// WithTransport sets the RoundTripper used to reach the target.
func WithTransport(rt http.RoundTripper) Option {
	return func(p *Proxy) {
		if rt != nil {
			p.rp.Transport = rt
		}
	}
}

type startKey struct{}

// New validates cfg and builds the forwarding handler.
func New(cfg Config, opts ...Option) (*Proxy, error) {
	if !strings.HasPrefix(cfg.Prefix, "/") {
		return nil, fmt.Errorf("%w: prefix %q must start with /", ErrInvalidConfig, cfg.Prefix)
	}
	if strings.TrimSuffix(cfg.Prefix, "/") == "" {
		return nil, fmt.Errorf("%w: prefix must not be the root path", ErrInvalidConfig)
	}
	target, err := url.Parse(cfg.Target)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("%w: %q must be absolute", ErrInvalidTarget, cfg.Target)
	}

	p := &Proxy{
		prefix:          strings.TrimSuffix(cfg.Prefix, "/"),
		target:          target,
		changeOrigin:    cfg.ChangeOrigin,
		requestIDHeader: "X-Request-ID",
		logger:          logger.Nop(),
	}
	p.rp = &httputil.ReverseProxy{
		Rewrite:        p.rewrite,
		ModifyResponse: p.modifyResponse,
		ErrorHandler:   p.errorHandler,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("proxy")
	return p, nil
}

// Prefix returns the normalized path prefix.
func (p *Proxy) Prefix() string { return p.prefix }

// Target returns a copy of the backend origin.
func (p *Proxy) Target() *url.URL {
	u := *p.target
	return &u
}

// Matches reports whether path falls under the prefix.
func (p *Proxy) Matches(path string) bool {
	_, ok := StripPrefix(p.prefix, path)
	return ok
}

// StripPrefix removes prefix from path on a segment boundary: "/api/rooms"
// becomes "/rooms" and "/api" becomes "/". "/apix" does not match.
func StripPrefix(prefix, path string) (string, bool) {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return path, true
	}
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	rest := path[len(prefix):]
	switch {
	case rest == "":
		return "/", true
	case rest[0] == '/':
		return rest, true
	default:
		return "", false
	}
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !p.Matches(r.URL.Path) {
		http.NotFound(w, r)
		return
	}
	ctx := context.WithValue(r.Context(), startKey{}, time.Now())
	p.rp.ServeHTTP(w, r.WithContext(ctx))
}

func (p *Proxy) rewrite(pr *httputil.ProxyRequest) {
	path, _ := StripPrefix(p.prefix, pr.In.URL.Path)
	rawPath := ""
	if pr.In.URL.RawPath != "" {
		rawPath, _ = StripPrefix(p.prefix, pr.In.URL.RawPath)
	}
	pr.Out.URL.Path = path
	pr.Out.URL.RawPath = rawPath

	pr.SetURL(p.target)
	pr.SetXForwarded()
	if !p.changeOrigin {
		pr.Out.Host = pr.In.Host
	}
	if p.requestIDHeader != "" && pr.Out.Header.Get(p.requestIDHeader) == "" {
		pr.Out.Header.Set(p.requestIDHeader, uuid.NewString())
	}

	p.logger.Debug(pr.In.Context(), "forward",
		logger.String("method", pr.In.Method),
		logger.String("from", pr.In.URL.RequestURI()),
		logger.String("to", pr.Out.URL.String()),
	)
}

func (p *Proxy) modifyResponse(resp *http.Response) error {
	metrics.RecordProxyRequest(resp.Request.Method, strconv.Itoa(resp.StatusCode), elapsedMs(resp.Request.Context()))
	return nil
}

func (p *Proxy) errorHandler(w http.ResponseWriter, r *http.Request, err error) {
	p.logger.Error(r.Context(), "upstream unreachable",
		logger.String("method", r.Method),
		logger.String("path", r.URL.Path),
		logger.String("target", p.target.String()),
		logger.Error(err),
	)
	metrics.RecordProxyUpstreamError()
	metrics.RecordProxyRequest(r.Method, strconv.Itoa(http.StatusBadGateway), elapsedMs(r.Context()))
	writeError(w, http.StatusBadGateway, "bad_gateway", fmt.Errorf("%w: %w", ErrUpstream, err))
}

func elapsedMs(ctx context.Context) float64 {
	start, ok := ctx.Value(startKey{}).(time.Time)
	if !ok {
		return 0
	}
	return float64(time.Since(start).Milliseconds())
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Code: code, Message: msg})
}
