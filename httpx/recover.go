package httpx

import (
	"net/http"
	"runtime/debug"

	"github.com/charmbracelet/log"
)

// Recover returns a middleware that recovers panics from downstream handlers.
//
// http.ErrAbortHandler is re-panicked to preserve net/http semantics. If the response
// has not started, it writes 500 Internal Server Error. A nil logger means log.Default().
func Recover(l *log.Logger) Middleware {
	if l == nil {
		l = log.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &startedWriter{ResponseWriter: w}
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if p == http.ErrAbortHandler {
					panic(p)
				}
				l.Error("handler panicked", "method", r.Method, "url", r.URL.String(), "panic", p, "stack", string(debug.Stack()))
				if !sw.started {
					http.Error(sw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(sw, r)
		})
	}
}

// startedWriter tracks whether the response has started.
type startedWriter struct {
	http.ResponseWriter
	started bool
}

func (w *startedWriter) WriteHeader(code int) {
	w.started = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *startedWriter) Write(p []byte) (int, error) {
	w.started = true
	return w.ResponseWriter.Write(p)
}

func (w *startedWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func (w *startedWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		w.started = true
		f.Flush()
	}
}
