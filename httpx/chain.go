package httpx

import "net/http"

// Middleware is a standard net/http middleware.
type Middleware func(http.Handler) http.Handler

// Middlewares is a middleware chain.
type Middlewares []Middleware

// Chain creates a middleware chain. Nil middlewares are ignored.
func Chain(mws ...Middleware) Middlewares {
	return appendNonNil(nil, mws)
}

// With returns a new chain with more appended. It never mutates the receiver.
func (mws Middlewares) With(more ...Middleware) Middlewares {
	out := appendNonNil(make([]Middleware, 0, len(mws)+len(more)), mws)
	return appendNonNil(out, more)
}

// Handler wraps h with the chain. It panics if h is nil.
func (mws Middlewares) Handler(h http.Handler) http.Handler {
	if h == nil {
		panic("httpx: nil endpoint handler")
	}
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Wrap applies mws to h.
func Wrap(h http.Handler, mws ...Middleware) http.Handler {
	return Chain(mws...).Handler(h)
}

func appendNonNil(dst, src []Middleware) []Middleware {
	for _, mw := range src {
		if mw != nil {
			dst = append(dst, mw)
		}
	}
	return dst
}
