package http

import (
	"net/http"

	"paper-trail/internal/handler/http/respond"
)

const (
	maxPathLength  = 2048
	maxQueryLength = 4096
	maxBodyBytes   = 1 << 20
)

// InputValidation rejects oversized request lines and caps request bodies.
// The query API is read-only, so any body is unexpected and kept small.
func InputValidation() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(r.URL.Path) > maxPathLength || len(r.URL.RawQuery) > maxQueryLength {
				respond.JSON(w, http.StatusRequestURITooLong, respond.ErrorBody{Error: "URI too long"})
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
			next.ServeHTTP(w, r)
		})
	}
}
