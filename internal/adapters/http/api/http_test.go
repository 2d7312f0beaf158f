package api_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/iloveyushi/ainaojin/internal/adapters/http/api"
	"github.com/iloveyushi/ainaojin/internal/adapters/http/proxy"
)

func newBackend() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, r.Method+" "+r.URL.RequestURI())
	}))
}

func TestServer_Register(t *testing.T) {
	Convey("Given a new API server around a proxy", t, func() {
		backend := newBackend()
		defer backend.Close()

		p, err := proxy.New(proxy.Config{Prefix: "/api", Target: backend.URL, ChangeOrigin: true})
		So(err, ShouldBeNil)

		server := api.NewServer(p, api.WithCORS(true))
		mux := http.NewServeMux()
		server.Register(context.Background(), mux)

		Convey("Then the health endpoint serves metrics", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "ainaojin_")
		})

		Convey("And the health endpoint rejects writes", func() {
			req := httptest.NewRequest(http.MethodPost, "/healthz", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(w.Header().Get("Allow"), ShouldEqual, "GET, HEAD")
		})

		Convey("And /api/rooms is forwarded as /rooms", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldEqual, "GET /rooms")
			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
		})

		Convey("And a chat post keeps its query", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/room1/chat?userPrompt=hello", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			So(w.Body.String(), ShouldEqual, "POST /room1/chat?userPrompt=hello")
		})

		Convey("And the bare prefix is forwarded as /", func() {
			req := httptest.NewRequest(http.MethodGet, "/api", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			So(w.Body.String(), ShouldEqual, "GET /")
		})

		Convey("And backend status codes pass through", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/missing", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("And preflight requests are answered without the backend", func() {
			req := httptest.NewRequest(http.MethodOptions, "/api/room1/chat", nil)
			req.Header.Set("Origin", "http://localhost:3000")
			req.Header.Set("Access-Control-Request-Method", "POST")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusNoContent)
		})
	})

	Convey("Given a backend that sets its own allow-origin header", t, func() {
		backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "http://localhost:3000")
			_, _ = io.WriteString(w, "[]")
		}))
		defer backend.Close()

		p, err := proxy.New(proxy.Config{Prefix: "/api", Target: backend.URL, ChangeOrigin: true})
		So(err, ShouldBeNil)

		mux := http.NewServeMux()
		api.NewServer(p, api.WithCORS(true)).Register(context.Background(), mux)

		req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		So(w.Code, ShouldEqual, http.StatusOK)
		So(w.Body.String(), ShouldEqual, "[]")
		So(w.Header().Values("Access-Control-Allow-Origin"), ShouldResemble, []string{"*"})
	})

	Convey("Given a server without CORS", t, func() {
		backend := newBackend()
		defer backend.Close()

		p, err := proxy.New(proxy.Config{Prefix: "/api", Target: backend.URL})
		So(err, ShouldBeNil)

		mux := http.NewServeMux()
		api.NewServer(p).Register(context.Background(), mux)

		req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		So(w.Code, ShouldEqual, http.StatusOK)
		So(w.Header().Get("Access-Control-Allow-Origin"), ShouldBeEmpty)
	})

	Convey("Given a nil mux", t, func() {
		So(func() { api.NewServer(nil).Register(context.Background(), nil) }, ShouldPanic)
	})

	Convey("Given no forwarder", t, func() {
		mux := http.NewServeMux()
		api.NewServer(nil).Register(context.Background(), mux)

		req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		So(w.Code, ShouldEqual, http.StatusNotFound)
	})
}
