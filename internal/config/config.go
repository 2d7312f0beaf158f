// Package config defines process configuration for the chat client and the
// development proxy server.
//
// Conventions:
// - New returns a Config populated with defaults.
// - Load layers defaults, an optional YAML file and AINAOJIN_ environment
//   variables, in that order. An optional .env file seeds the environment
//   without overriding variables that are already set.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls dev server verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// CLILogLevel controls the chat CLI's stderr logging. The default, error,
	// leaves reporting a failed call to the CLI itself.
	CLILogLevel string `koanf:"cli_log_level"`

	// Addr is the dev server listen address.
	Addr string `koanf:"addr"`

	// BaseURL is the prefix prepended to every client call.
	BaseURL string `koanf:"base_url"`

	// TimeoutMS bounds each client call.
	TimeoutMS int `koanf:"timeout_ms"`

	// ContentType is the default Content-Type header of client calls.
	ContentType string `koanf:"content_type"`

	// ProxyPrefix is stripped from matching paths before forwarding.
	ProxyPrefix string `koanf:"proxy_prefix"`

	// ProxyTarget is the backend origin requests are forwarded to.
	ProxyTarget string `koanf:"proxy_target"`

	// ChangeOrigin rewrites the outbound Host header to the target host.
	ChangeOrigin bool `koanf:"change_origin"`

	// CORS enables permissive cross-origin responses on proxied routes.
	CORS bool `koanf:"cors"`

	// OpenBrowser launches a browser tab on the dev server once it listens.
	OpenBrowser bool `koanf:"open_browser"`

	// StaticDir, when set, replaces the embedded frontend page.
	StaticDir string `koanf:"static_dir"`
}

// Defaults.
const (
	DefaultAddr        = ":3000"
	DefaultBaseURL     = "http://localhost:3000/api"
	DefaultTimeoutMS   = 5000
	DefaultContentType = "application/x-www-form-urlencoded;charset=utf-8"
	DefaultProxyPrefix = "/api"
	DefaultProxyTarget = "http://localhost:8080"
)

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:     "info",
		CLILogLevel:  "error",
		Addr:         DefaultAddr,
		BaseURL:      DefaultBaseURL,
		TimeoutMS:    DefaultTimeoutMS,
		ContentType:  DefaultContentType,
		ProxyPrefix:  DefaultProxyPrefix,
		ProxyTarget:  DefaultProxyTarget,
		ChangeOrigin: true,
		CORS:         true,
		OpenBrowser:  true,
	}
}

// Timeout returns TimeoutMS as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}
