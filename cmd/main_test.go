package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/iloveyushi/ainaojin/internal/app"
	"github.com/iloveyushi/ainaojin/internal/config"
	"github.com/iloveyushi/ainaojin/pkg/logger"
)

func TestServerFromConfig(t *testing.T) {
	convey.Convey("Given a backend and an environment pointing at it", t, func() {
		backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, r.Host+" "+r.URL.Path)
		}))
		defer backend.Close()

		_ = os.Setenv("AINAOJIN_PROXY_TARGET", backend.URL)
		_ = os.Setenv("AINAOJIN_PROXY_PREFIX", "/backend")
		_ = os.Setenv("AINAOJIN_OPEN_BROWSER", "false")
		defer func() {
			_ = os.Unsetenv("AINAOJIN_PROXY_TARGET")
			_ = os.Unsetenv("AINAOJIN_PROXY_PREFIX")
			_ = os.Unsetenv("AINAOJIN_OPEN_BROWSER")
		}()

		ctx := context.Background()
		cfg, err := config.Load(ctx)
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.OpenBrowser, convey.ShouldBeFalse)

		convey.Convey("When the dev server is built from it", func() {
			srv, err := app.New(ctx, serverOptions(cfg, logger.Nop())...)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the configured prefix is forwarded to the target", func() {
				req := httptest.NewRequest(http.MethodGet, "/backend/rooms", nil)
				w := httptest.NewRecorder()
				srv.Handler().ServeHTTP(w, req)

				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Body.String(), convey.ShouldEqual, backend.Listener.Addr().String()+" /rooms")
			})
		})
	})
}
