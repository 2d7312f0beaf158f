// Package client is the chat backend API client: a fixed base URL, timeout
// and content type around two calls, GetRooms and SendChat.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iloveyushi/ainaojin/pkg/logger"
	"github.com/iloveyushi/ainaojin/pkg/metrics"
)

// Defaults applied by New.
const (
	DefaultBaseURL         = "http://localhost:3000/api"
	DefaultTimeout         = 5000 * time.Millisecond
	DefaultContentType     = "application/x-www-form-urlencoded;charset=utf-8"
	DefaultRequestIDHeader = "X-Request-ID"
)

// Payload is a response body returned verbatim.
type Payload []byte

func (p Payload) String() string { return string(p) }

// Config configures a Client. Use DefaultConfig() as a baseline.
type Config struct {
	// BaseURL must be absolute; its path is a prefix of every call.
	BaseURL string

	// Timeout bounds a whole call. An earlier deadline on ctx wins.
	Timeout time.Duration

	ContentType string

	// Transport is the underlying RoundTripper. If nil, http.DefaultTransport is cloned.
	Transport http.RoundTripper

	Logger logger.Logger

	// RequestIDHeader carries a per-call UUID. Empty disables it.
	RequestIDHeader string

	// Metrics receives per-call counters. Nil means the process-wide manager.
	Metrics *metrics.Manager

	// Extra stages run after the built-in ones.
	RequestStages  []RequestStage
	ResponseStages []ResponseStage
}

// DefaultConfig returns the settings of the dev frontend.
func DefaultConfig() Config {
	return Config{
		BaseURL:         DefaultBaseURL,
		Timeout:         DefaultTimeout,
		ContentType:     DefaultContentType,
		Logger:          logger.Nop(),
		RequestIDHeader: DefaultRequestIDHeader,
	}
}

// Client issues calls against the backend. It is immutable after New and
// safe for concurrent use.
type Client struct {
	httpClient  *http.Client
	baseURL     *url.URL
	contentType string
	logger      logger.Logger
	metrics     *metrics.Manager

	before []RequestStage
	after  []ResponseStage
}

// New constructs a Client from DefaultConfig() plus the provided options.
func New(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	return NewWithConfig(cfg)
}

// NewWithConfig constructs a Client from cfg.
func NewWithConfig(cfg Config) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, &url.Error{Op: "parse", URL: cfg.BaseURL, Err: errors.New("base url must be absolute")}
	}

	rt := cfg.Transport
	if rt == nil {
		rt = http.DefaultTransport.(*http.Transport).Clone()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	l := cfg.Logger
	if l == nil {
		l = logger.Nop()
	}
	l = l.Named("client")
	m := cfg.Metrics
	if m == nil {
		m = metrics.Default()
	}

	before := []RequestStage{RequestIDStage(cfg.RequestIDHeader), LogRequestStage(l)}
	before = append(before, cfg.RequestStages...)
	after := []ResponseStage{LogResponseStage(l)}
	after = append(after, cfg.ResponseStages...)

	return &Client{
		httpClient:  &http.Client{Transport: rt, Timeout: timeout},
		baseURL:     u,
		contentType: cfg.ContentType,
		logger:      l,
		metrics:     m,
		before:      before,
		after:       after,
	}, nil
}

// BaseURL returns a copy of the configured base URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Timeout returns the per-call bound.
func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}

// resolve appends escaped path segments and q to the base URL.
func (c *Client) resolve(call *Call) *url.URL {
	u := *c.baseURL
	raw := strings.TrimSuffix(c.baseURL.EscapedPath(), "/") + call.Path
	u.RawPath = raw
	if p, err := url.PathUnescape(raw); err == nil {
		u.Path = p
	}
	u.RawQuery = call.Query.Encode()
	u.Fragment = ""
	return &u
}

// do runs the pipeline for call: request stages, dispatch, then either the
// response stages and the unwrapped body, or exactly one normalized *Error.
func (c *Client) do(ctx context.Context, call *Call) (Payload, error) {
	if call.Query == nil {
		call.Query = url.Values{}
	}
	if call.Header == nil {
		call.Header = make(http.Header)
	}
	if c.contentType != "" {
		call.Header.Set("Content-Type", c.contentType)
	}

	for _, stage := range c.before {
		stage(ctx, call)
	}

	start := time.Now()
	body, resp, err := c.dispatch(ctx, call)
	latencyMs := float64(time.Since(start).Milliseconds())

	if err != nil {
		var ce *Error
		if !errors.As(err, &ce) {
			ce = networkError(err)
		}
		c.logger.Warn(ctx, "response error",
			logger.String("operation", call.Operation),
			logger.String("kind", ce.Kind.String()),
			logger.String("error", ce.Error()),
		)
		c.metrics.RecordClientRequest(call.Operation, outcome(ce), latencyMs)
		return nil, ce
	}

	for _, stage := range c.after {
		stage(ctx, call, resp)
	}
	c.metrics.RecordClientRequest(call.Operation, metrics.OutcomeOK, latencyMs)
	return body, nil
}

func (c *Client) dispatch(ctx context.Context, call *Call) (Payload, *Response, error) {
	req, err := http.NewRequestWithContext(ctx, call.Method, c.resolve(call).String(), nil)
	if err != nil {
		return nil, nil, err
	}
	for k, vv := range call.Header {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, nil, interfaceError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	return body, &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

func outcome(e *Error) string {
	if e.Kind == KindInterface {
		return metrics.OutcomeInterfaceError
	}
	return metrics.OutcomeNetworkError
}
