package middleware

import (
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Compress compresses responses at level, except for paths under one of
// skip. Prometheus scrapers negotiate their own encoding on /metrics.
func Compress(level int, skip ...string) func(http.Handler) http.Handler {
	compress := chimiddleware.Compress(level)

	return func(next http.Handler) http.Handler {
		compressed := compress(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range skip {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}
			compressed.ServeHTTP(w, r)
		})
	}
}
