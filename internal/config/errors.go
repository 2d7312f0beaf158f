package config

import (
	"errors"
)

// Read failures wrap ErrLoadConfig. Validation failures wrap ErrInvalidConfig,
// and a proxy_target the dev proxy cannot dial also wraps ErrInvalidProxyTarget.
var (
	ErrLoadConfig         = errors.New("load config failed")
	ErrInvalidConfig      = errors.New("invalid config")
	ErrInvalidProxyTarget = errors.New("proxy_target must be an absolute http(s) URL")
)
