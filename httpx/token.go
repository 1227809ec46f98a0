package httpx

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync/atomic"
)

// DefaultTokenHeader is the header checked in addition to "Authorization: Bearer".
const DefaultTokenHeader = "X-Access-Token"

// TokenSet is an updateable set of accepted tokens. The zero value denies everything.
//
// Contains is lock-free; Update swaps the whole set atomically.
type TokenSet struct {
	tokens atomic.Pointer[[]string]
}

// NewTokenSet returns a set holding tokens. Blank tokens are ignored.
func NewTokenSet(tokens ...string) *TokenSet {
	s := &TokenSet{}
	s.Update(tokens)
	return s
}

// Update replaces the accepted tokens.
func (s *TokenSet) Update(tokens []string) {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	s.tokens.Store(&out)
}

// Len returns the number of accepted tokens.
func (s *TokenSet) Len() int {
	if p := s.tokens.Load(); p != nil {
		return len(*p)
	}
	return 0
}

// Contains reports whether token is accepted. It scans every entry.
func (s *TokenSet) Contains(token string) bool {
	p := s.tokens.Load()
	if p == nil || token == "" {
		return false
	}
	ok := false
	for _, t := range *p {
		if subtle.ConstantTimeCompare([]byte(token), []byte(t)) == 1 {
			ok = true
		}
	}
	return ok
}

// RequireToken returns a middleware that admits requests carrying a token from set,
// either as "Authorization: Bearer <token>" or in DefaultTokenHeader.
// Missing tokens get 401, unknown tokens 403.
func RequireToken(set *TokenSet) Middleware {
	if set == nil {
		panic("httpx: nil TokenSet")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := requestToken(r)
			switch {
			case token == "":
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "missing token", http.StatusUnauthorized)
			case !set.Contains(token):
				http.Error(w, "token not allowed", http.StatusForbidden)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func requestToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if rest, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(rest)
		}
	}
	return strings.TrimSpace(r.Header.Get(DefaultTokenHeader))
}
