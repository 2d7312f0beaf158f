package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variables consulted by Load.
const (
	EnvPrefix         = "AINAOJIN_"
	EnvConfig         = EnvPrefix + "CONFIG"
	EnvDotenv         = EnvPrefix + "DOTENV"
	defaultDotenvFile = ".env"
)

// Load builds a Config by layering sources.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. YAML file if AINAOJIN_CONFIG is set
//  3. env (prefix AINAOJIN_), including values read from a .env file
//
// The .env file is AINAOJIN_DOTENV when set, otherwise ./.env if present.
// Variables already set in the process environment win over the .env file.
func Load(_ context.Context) (*Config, error) {
	if err := loadDotenv(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	base := New()
	k := koanf.New(".")

	if path := os.Getenv(EnvConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// AINAOJIN_PROXY_TARGET -> proxy_target (flat keys matching the koanf tags).
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, strings.ToLower(EnvPrefix))
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotenv() error {
	path := os.Getenv(EnvDotenv)
	if path == "" {
		if _, err := os.Stat(defaultDotenvFile); err != nil {
			return nil
		}
		path = defaultDotenvFile
	}
	return godotenv.Load(path)
}

// Validate reports the first invalid field, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.BaseURL) == "":
		return fmt.Errorf("%w: base_url must not be empty", ErrInvalidConfig)
	case c.TimeoutMS <= 0:
		return fmt.Errorf("%w: timeout_ms must be positive", ErrInvalidConfig)
	case !strings.HasPrefix(c.ProxyPrefix, "/"):
		return fmt.Errorf("%w: proxy_prefix must start with /", ErrInvalidConfig)
	case strings.TrimSuffix(c.ProxyPrefix, "/") == "":
		return fmt.Errorf("%w: proxy_prefix must not be the root path", ErrInvalidConfig)
	}
	u, err := url.Parse(c.ProxyTarget)
	if err != nil {
		return fmt.Errorf("%w: %w: %w", ErrInvalidConfig, ErrInvalidProxyTarget, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %w: got %q", ErrInvalidConfig, ErrInvalidProxyTarget, c.ProxyTarget)
	}
	return nil
}
