package proxy

import "errors"

// Sentinel kinds for proxy errors.
var (
	ErrInvalidConfig = errors.New("invalid proxy config")
	ErrInvalidTarget = errors.New("invalid proxy target")
	ErrUpstream      = errors.New("upstream unreachable")
)
