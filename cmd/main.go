// Command ainaojin runs the development server: the chat frontend on :3000
// with /api forwarded to the backend.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/iloveyushi/ainaojin/internal/adapters/http/proxy"
	"github.com/iloveyushi/ainaojin/internal/app"
	"github.com/iloveyushi/ainaojin/internal/config"
	"github.com/iloveyushi/ainaojin/pkg/logger"
)

func main() {
	// System metrics are collected by pkg/metrics on its own registry.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	loggerInstance := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	srv, err := app.New(ctx, serverOptions(cfg, loggerInstance)...)
	if err != nil {
		loggerInstance.Error(ctx, "failed to build dev server", logger.Error(err))
		stop()
		os.Exit(1)
	}

	if err := srv.Run(ctx); err != nil {
		loggerInstance.Error(ctx, "dev server failed", logger.Error(err))
		stop()
		_ = logger.Sync()
		os.Exit(1)
	}
	stop()
	_ = logger.Sync()
}

func serverOptions(cfg *config.Config, l logger.Logger) []app.Option {
	return []app.Option{
		app.WithLogger(l),
		app.WithAddr(cfg.Addr),
		app.WithProxy(proxy.Config{
			Prefix:       cfg.ProxyPrefix,
			Target:       cfg.ProxyTarget,
			ChangeOrigin: cfg.ChangeOrigin,
		}),
		app.WithCORS(cfg.CORS),
		app.WithOpenBrowser(cfg.OpenBrowser),
		app.WithStaticDir(cfg.StaticDir),
	}
}
