package proxy

import (
	"net/http"
)

// Permissive CORS defaults: any origin, the usual methods, requested headers echoed.
const (
	corsAllowOrigin  = "*"
	corsAllowMethods = "GET,HEAD,PUT,PATCH,POST,DELETE"
)

// CORS allows cross-origin calls and answers preflight requests itself.
// The allow-origin value replaces whatever the wrapped handler set, so a
// backend sending its own never produces a second header value.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", corsAllowOrigin)

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
				h.Set("Access-Control-Allow-Headers", reqHeaders)
				h.Add("Vary", "Access-Control-Request-Headers")
			}
			h.Set("Content-Length", "0")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(&corsWriter{ResponseWriter: w}, r)
	})
}

// corsWriter pins Access-Control-Allow-Origin right before headers go out.
type corsWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (cw *corsWriter) WriteHeader(code int) {
	if !cw.wroteHeader {
		cw.wroteHeader = true
		cw.Header().Set("Access-Control-Allow-Origin", corsAllowOrigin)
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *corsWriter) Write(b []byte) (int, error) {
	if !cw.wroteHeader {
		cw.WriteHeader(http.StatusOK)
	}
	return cw.ResponseWriter.Write(b)
}

// Flush lets streamed upstream responses through the wrapper.
func (cw *corsWriter) Flush() {
	if !cw.wroteHeader {
		cw.WriteHeader(http.StatusOK)
	}
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (cw *corsWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}
