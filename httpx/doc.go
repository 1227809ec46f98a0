// Package httpx provides net/http middlewares for the admin surface.
//
//   - Chain / Wrap compose middlewares: Chain(a, b, c).Handler(h) returns a(b(c(h))).
//   - Recover keeps the server alive when a handler panics and logs the stack.
//   - RequireToken admits requests carrying a token from a hot-swappable TokenSet.
package httpx
