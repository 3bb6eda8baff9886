package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/miraview/internal/http/handlers"
	"github.com/jmylchreest/miraview/internal/service"
	"github.com/jmylchreest/miraview/pkg/mirakc"
)

const tunersJSON = `[
	{"index": 0, "name": "PX-Q3PE4 T0", "types": ["GR"], "command": "recpt1 27 - -",
	 "users": [{"id": "192.168.1.20:40112", "priority": 0, "agent": "EPGStation"}],
	 "isAvailable": true, "isRemote": false, "isFree": false, "isUsing": true, "isFault": false},
	{"index": 1, "name": "PX-Q3PE4 T1", "types": ["GR"],
	 "isAvailable": true, "isRemote": false, "isFree": true, "isUsing": false, "isFault": false},
	{"index": 2, "name": "PX-Q3PE4 S0", "types": ["BS", "CS"],
	 "isAvailable": false, "isRemote": false, "isFree": false, "isUsing": false, "isFault": true}
]`

// newMirakcServer serves /api/tuners and /api/version. A zero status for
// tunersStatus answers 200 with tunersJSON.
func newMirakcServer(t *testing.T, tunersStatus int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tuners":
			if tunersStatus != 0 {
				http.Error(w, "tuner manager stopped", tunersStatus)
				return
			}
			w.Write([]byte(tunersJSON))
		case "/api/version":
			w.Write([]byte(`{"current": "3.1.0", "latest": "3.2.0"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func setupTunerRouter(t *testing.T, server *httptest.Server) *chi.Mux {
	t.Helper()

	client := mirakc.NewClient(server.URL, mirakc.WithHTTPClient(server.Client()))
	svc := service.NewGuideService(client, server.URL, "vlc")

	router := chi.NewRouter()
	api := humachi.New(router, huma.DefaultConfig("Test API", "1.0.0"))
	handlers.NewTunerHandler(svc).Register(api)
	return router
}

func TestTunerHandler_ListTuners(t *testing.T) {
	router := setupTunerRouter(t, newMirakcServer(t, 0))

	rec := serve(router, http.MethodGet, "/api/v1/tuners")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.TunerListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	require.Len(t, resp.Tuners, 3)
	assert.Equal(t, "preemptible", resp.Tuners[0].State)
	assert.Equal(t, "EPGStation", resp.Tuners[0].Tuner.Users[0].Agent)
	assert.Equal(t, "free", resp.Tuners[1].State)
	assert.Equal(t, "fault", resp.Tuners[2].State)
	assert.Equal(t, []string{"BS", "CS"}, resp.Tuners[2].Tuner.Types)

	assert.Equal(t, "3.1.0", resp.MirakcVersion)
	assert.Equal(t, "3.2.0", resp.LatestVersion)
	assert.True(t, resp.UpdateAvailable)
}

func TestTunerHandler_ListTuners_MirakcDown(t *testing.T) {
	router := setupTunerRouter(t, newMirakcServer(t, http.StatusServiceUnavailable))

	rec := serve(router, http.MethodGet, "/api/v1/tuners")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestTunerHandler_ListTuners_Empty(t *testing.T) {
	svc := service.NewGuideService(&fakeSource{}, "http://mirakc.local:40772", "vlc")
	router := chi.NewRouter()
	handlers.NewTunerHandler(svc).Register(humachi.New(router, huma.DefaultConfig("Test API", "1.0.0")))

	rec := serve(router, http.MethodGet, "/api/v1/tuners")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, mustField(t, rec.Body.Bytes(), "tuners"))
	assert.JSONEq(t, `false`, mustField(t, rec.Body.Bytes(), "update_available"))
}

func mustField(t *testing.T, body []byte, name string) string {
	t.Helper()
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &fields))
	raw, ok := fields[name]
	require.True(t, ok, "missing field %q in %s", name, body)
	return string(raw)
}
