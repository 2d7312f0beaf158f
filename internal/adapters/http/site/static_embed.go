package site

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static/**
var staticFS embed.FS

// FS returns the frontend assets: dir on disk when set, the embedded bundle otherwise.
func FS(dir string) http.FileSystem {
	if dir != "" {
		return http.Dir(dir)
	}
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return http.FS(staticFS)
	}
	return http.FS(sub)
}
