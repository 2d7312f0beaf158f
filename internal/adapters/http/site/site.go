// Package site serves the chat frontend from the dev server root.
package site

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

const indexFile = "/index.html"

type config struct {
	dir string
}

// Option configures Register.
type Option func(*config)

// WithDir serves assets from dir instead of the embedded bundle.
func WithDir(dir string) Option {
	return func(c *config) { c.dir = dir }
}

// Register attaches the frontend at / on mux. Unknown extensionless paths
// fall back to index.html so client-side routes survive a reload.
func Register(_ context.Context, mux *http.ServeMux, opts ...Option) {
	if mux == nil {
		panic("mux is nil")
	}
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	mux.Handle("/", Handler(FS(cfg.dir)))
}

// Handler serves root with history fallback.
func Handler(root http.FileSystem) http.Handler {
	files := http.FileServer(root)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		name := path.Clean("/" + r.URL.Path)
		if name != "/" && path.Ext(name) == "" && !exists(root, name) {
			r2 := r.Clone(r.Context())
			r2.URL.Path = "/"
			r2.URL.RawPath = ""
			files.ServeHTTP(w, r2)
			return
		}
		files.ServeHTTP(w, r)
	})
}

func exists(root http.FileSystem, name string) bool {
	f, err := root.Open(strings.TrimSuffix(name, "/"))
	if err != nil {
		return !errors.Is(err, fs.ErrNotExist)
	}
	_ = f.Close()
	return true
}
