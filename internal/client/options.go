package client

import (
	"net/http"
	"time"

	"github.com/iloveyushi/ainaojin/pkg/logger"
	"github.com/iloveyushi/ainaojin/pkg/metrics"
)

// Option applies a configuration option to the Config.
type Option func(*Config)

// WithBaseURL sets the absolute URL every call path is appended to.
func WithBaseURL(baseURL string) Option {
	return func(c *Config) { c.BaseURL = baseURL }
}

// WithTimeout bounds every call.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

// WithContentType overrides the default Content-Type header.
func WithContentType(contentType string) Option {
	return func(c *Config) {
		if contentType != "" {
			c.ContentType = contentType
		}
	}
}

// WithMetrics records calls on m instead of the process-wide manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(c *Config) { c.Metrics = m }
}

// WithTransport sets the underlying RoundTripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Config) { c.Transport = rt }
}

// WithLogger sets the logger used by the default stages.
func WithLogger(l logger.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithRequestIDHeader sets the correlation header; empty disables it.
func WithRequestIDHeader(header string) Option {
	return func(c *Config) { c.RequestIDHeader = header }
}

// WithRequestStage appends a stage run before every dispatch.
func WithRequestStage(s RequestStage) Option {
	return func(c *Config) {
		if s != nil {
			c.RequestStages = append(c.RequestStages, s)
		}
	}
}

// WithResponseStage appends a stage run after every successful response.
func WithResponseStage(s ResponseStage) Option {
	return func(c *Config) {
		if s != nil {
			c.ResponseStages = append(c.ResponseStages, s)
		}
	}
}
