package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/jmylchreest/miraview/internal/observability"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen bounds client supplied ids before they reach the logs.
const maxRequestIDLen = 64

// RequestID tags every request with an id, echoed in the response header and
// stored in the context for logging. A client id is kept when it is short
// printable ASCII; anything else is replaced by a fresh UUID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(observability.ContextWithRequestID(r.Context(), id)))
	})
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

// GetRequestID returns the id RequestID stored in ctx.
func GetRequestID(ctx context.Context) string {
	return observability.RequestIDFromContext(ctx)
}
