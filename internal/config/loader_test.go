package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/iloveyushi/ainaojin/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":3000")
				convey.So(cfg.TimeoutMS, convey.ShouldEqual, 5000)
				convey.So(cfg.ProxyTarget, convey.ShouldEqual, "http://localhost:8080")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("AINAOJIN_ADDR", ":3001")
			_ = os.Setenv("AINAOJIN_TIMEOUT_MS", "1500")
			_ = os.Setenv("AINAOJIN_PROXY_TARGET", "http://backend:9000")
			_ = os.Setenv("AINAOJIN_OPEN_BROWSER", "false")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":3001")
				convey.So(cfg.TimeoutMS, convey.ShouldEqual, 1500)
				convey.So(cfg.ProxyTarget, convey.ShouldEqual, "http://backend:9000")
				convey.So(cfg.OpenBrowser, convey.ShouldBeFalse)
				convey.So(cfg.CORS, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			tmpFile := createTempFile("ainaojin-config-*.yaml", `
addr: ":4000"
base_url: "http://localhost:4000/api"
proxy_prefix: "/backend"
cors: false
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("AINAOJIN_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should merge the file over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":4000")
				convey.So(cfg.BaseURL, convey.ShouldEqual, "http://localhost:4000/api")
				convey.So(cfg.ProxyPrefix, convey.ShouldEqual, "/backend")
				convey.So(cfg.CORS, convey.ShouldBeFalse)
				convey.So(cfg.TimeoutMS, convey.ShouldEqual, 5000) // From defaults
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempFile("ainaojin-config-*.yaml", `
addr: ":4000"
timeout_ms: 2000
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("AINAOJIN_CONFIG", tmpFile)
			_ = os.Setenv("AINAOJIN_ADDR", ":5000")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":5000")     // Overridden by env
				convey.So(cfg.TimeoutMS, convey.ShouldEqual, 2000) // From file
			})
		})

		convey.Convey("When a .env file is given", func() {
			tmpFile := createTempFile("ainaojin-*.env", "AINAOJIN_PROXY_TARGET=http://dotenv:7000\nAINAOJIN_LOG_LEVEL=debug\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("AINAOJIN_DOTENV", tmpFile)
			_ = os.Setenv("AINAOJIN_LOG_LEVEL", "warn")

			cfg, err := config.Load(ctx)

			convey.Convey("Then its values apply unless already set in the environment", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.ProxyTarget, convey.ShouldEqual, "http://dotenv:7000")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "warn")
			})
		})

		convey.Convey("When the .env file does not exist", func() {
			_ = os.Setenv("AINAOJIN_DOTENV", "/non/existent/.env")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempFile("ainaojin-config-*.yaml", `invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("AINAOJIN_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("AINAOJIN_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("AINAOJIN_TIMEOUT_MS", "soon")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestConfigValidation(t *testing.T) {
	convey.Convey("Given config validation", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		cases := []struct {
			env, value, msg string
		}{
			{"AINAOJIN_ADDR", "", "addr must not be empty"},
			{"AINAOJIN_BASE_URL", " ", "base_url must not be empty"},
			{"AINAOJIN_TIMEOUT_MS", "0", "timeout_ms must be positive"},
			{"AINAOJIN_PROXY_PREFIX", "api", "proxy_prefix must start with /"},
			{"AINAOJIN_PROXY_TARGET", "localhost", "proxy_target must be an absolute http(s) URL"},
			{"AINAOJIN_PROXY_TARGET", "ftp://backend:21", "proxy_target must be an absolute http(s) URL"},
		}

		for _, tc := range cases {
			convey.Convey("When "+tc.env+" is "+tc.value, func() {
				_ = os.Setenv(tc.env, tc.value)

				cfg, err := config.Load(ctx)

				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, tc.msg)
			})
		}
	})
}

func TestConfigValidation_ProxyTarget(t *testing.T) {
	convey.Convey("Given a proxy target without a scheme", t, func() {
		cfg := config.New()
		cfg.ProxyTarget = "localhost:8080"

		err := cfg.Validate()

		convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		convey.So(errors.Is(err, config.ErrInvalidProxyTarget), convey.ShouldBeTrue)
	})

	convey.Convey("Given an https proxy target", t, func() {
		cfg := config.New()
		cfg.ProxyTarget = "https://backend.internal"

		convey.So(cfg.Validate(), convey.ShouldBeNil)
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"AINAOJIN_CONFIG",
		"AINAOJIN_DOTENV",
		"AINAOJIN_LOG_LEVEL",
		"AINAOJIN_CLI_LOG_LEVEL",
		"AINAOJIN_ADDR",
		"AINAOJIN_BASE_URL",
		"AINAOJIN_TIMEOUT_MS",
		"AINAOJIN_PROXY_PREFIX",
		"AINAOJIN_PROXY_TARGET",
		"AINAOJIN_OPEN_BROWSER",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempFile(pattern, content string) string {
	tmpFile, err := os.CreateTemp("", pattern)
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
