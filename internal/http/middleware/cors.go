package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// CORS headers sent to browsers. The API is read-mostly; POST is only used
// to trigger a refresh.
var (
	corsMethods = strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodOptions}, ", ")
	corsHeaders = strings.Join([]string{"Accept", "Content-Type", RequestIDHeader}, ", ")
	corsMaxAge  = strconv.Itoa(24 * 60 * 60)
)

// CORS lets browser front ends on origins read the API. An empty list allows
// any origin with a wildcard; otherwise the matching origin is echoed back.
// OPTIONS preflights are answered here with 204.
func CORS(origins []string) func(http.Handler) http.Handler {
	wildcard := len(origins) == 0 || slices.Contains(origins, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if origin := r.Header.Get("Origin"); origin != "" {
				switch {
				case wildcard:
					h.Set("Access-Control-Allow-Origin", "*")
				case slices.Contains(origins, origin):
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
				h.Set("Access-Control-Expose-Headers", RequestIDHeader)
			}

			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", corsHeaders)
			h.Set("Access-Control-Max-Age", corsMaxAge)
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
