// Package route reports the ServeMux pattern that served a request to
// middleware running outside the mux. Middleware that derives a new request
// with WithContext hides r.Pattern from the layers above it, so the pattern
// travels through the context instead.
package route

import (
	"context"
	"net/http"
)

type holderKey struct{}

type holder struct{ pattern string }

// Track returns r with a pattern slot in its context, reusing an existing
// slot, and a func that reads the slot once the request has been served.
func Track(r *http.Request) (*http.Request, func() string) {
	if h, ok := r.Context().Value(holderKey{}).(*holder); ok {
		return r, func() string { return h.pattern }
	}
	h := &holder{}
	return r.WithContext(context.WithValue(r.Context(), holderKey{}, h)), func() string { return h.pattern }
}

// Mux wraps mux so the pattern matching each request is stored in the slot
// created by Track. Unmatched requests leave the slot empty.
func Mux(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := r.Context().Value(holderKey{}).(*holder); ok {
			if _, pattern := mux.Handler(r); pattern != "" {
				h.pattern = pattern
			}
		}
		mux.ServeHTTP(w, r)
	})
}
