package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/miraview/internal/observability"
)

func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
}

func TestRequestID_ReusesIncomingHeader(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = observability.RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	h := RequestID(RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotSame(t, slog.Default(), observability.LoggerFromContext(r.Context()))
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/guide/refresh", nil))

	out := buf.String()
	assert.Contains(t, out, `"level":"ERROR"`)
	assert.Contains(t, out, `"status":502`)
	assert.Contains(t, out, `"size":13`)
	assert.Contains(t, out, `"path":"/api/v1/guide/refresh"`)
}

func TestRequestLogger_ProbesAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Contains(t, buf.String(), `"level":"DEBUG"`)
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := Recovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Contains(t, buf.String(), "panic recovered")
	assert.Contains(t, buf.String(), "boom")

	var problem huma.ErrorModel
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&problem))
	assert.Equal(t, http.StatusInternalServerError, problem.Status)
	assert.Equal(t, "Internal Server Error", problem.Title)
}

func TestRecovery_AbortHandlerPropagates(t *testing.T) {
	h := Recovery(slog.New(slog.DiscardHandler))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestCORS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name       string
		origins    []string
		origin     string
		method     string
		wantOrigin string
		wantStatus int
	}{
		{"wildcard", nil, "http://tv.local", http.MethodGet, "*", http.StatusOK},
		{"listed origin", []string{"http://tv.local"}, "http://tv.local", http.MethodGet, "http://tv.local", http.StatusOK},
		{"unlisted origin", []string{"http://tv.local"}, "http://evil.example", http.MethodGet, "", http.StatusOK},
		{"preflight", nil, "http://tv.local", http.MethodOptions, "*", http.StatusNoContent},
		{"explicit wildcard", []string{"*"}, "http://tv.local", http.MethodGet, "*", http.StatusOK},
		{"no origin header", nil, "", http.MethodGet, "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := CORS(tt.origins)(ok)
			req := httptest.NewRequest(tt.method, "/api/v1/guide/days", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCompress_SkipsPrefixes(t *testing.T) {
	body := strings.Repeat("miraview_guide_programs 1200\n", 200)
	h := Compress(5, "/metrics")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(body))
	}))

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Accept-Encoding", "gzip")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	metrics := get("/metrics")
	assert.Empty(t, metrics.Header().Get("Content-Encoding"))
	assert.Equal(t, body, metrics.Body.String())

	api := get("/api/v1/guide/days")
	assert.Equal(t, "gzip", api.Header().Get("Content-Encoding"))
	assert.Less(t, api.Body.Len(), len(body))
}

func TestRequestID_RejectsUnsafeHeader(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{"too long", strings.Repeat("a", maxRequestIDLen+1)},
		{"contains space", "abc 123"},
		{"contains newline", "abc\ninjected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header[RequestIDHeader] = []string{tt.id}
			h.ServeHTTP(httptest.NewRecorder(), req)

			assert.NotEqual(t, tt.id, seen)
			_, err := uuid.Parse(seen)
			assert.NoError(t, err)
		})
	}
}

func TestRequestLogger_RoutePattern(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(RequestLogger(logger))
	r.Get("/api/v1/guide/days/{day}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/guide/days/2024-05-15", nil))

	assert.Contains(t, buf.String(), `"route":"/api/v1/guide/days/{day}"`)
	assert.Contains(t, buf.String(), `"status":200`)
}
