package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/miraview/internal/http/handlers"
	"github.com/jmylchreest/miraview/internal/service"
	"github.com/jmylchreest/miraview/pkg/mirakc"
)

// fakeSource serves fixed lists, or err when set.
type fakeSource struct {
	programs []mirakc.Program
	services []mirakc.Service
	tuners   []mirakc.Tuner
	version  *mirakc.Version
	err      error
}

func (f *fakeSource) Programs(context.Context) ([]mirakc.Program, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.programs, nil
}

func (f *fakeSource) Services(context.Context) ([]mirakc.Service, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.services, nil
}

func (f *fakeSource) Tuners(context.Context) ([]mirakc.Tuner, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tuners, nil
}

func (f *fakeSource) Version(context.Context) (*mirakc.Version, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.version, nil
}

func (f *fakeSource) StreamURL(s *mirakc.Service, protocol string) string {
	return protocol + "://mirakc.local:40772/api/services/" + strconv.FormatInt(s.ID, 10) + "/stream"
}

func localMillis(day, hour int) int64 {
	return time.Date(2024, time.May, day, hour, 0, 0, 0, time.Local).UnixMilli()
}

func newTestSource() *fakeSource {
	hour := time.Hour.Milliseconds()
	return &fakeSource{
		programs: []mirakc.Program{
			{ID: 1, NetworkID: 32736, ServiceID: 1024, Name: "Morning News", StartAt: localMillis(15, 6), Duration: hour},
			{ID: 2, NetworkID: 32736, ServiceID: 1024, Name: "Drama", StartAt: localMillis(15, 8), Duration: hour},
			{ID: 3, NetworkID: 32737, ServiceID: 1032, Name: "Late Movie", StartAt: localMillis(16, 1), Duration: 2 * hour},
		},
		services: []mirakc.Service{
			{ID: 3273601024, NetworkID: 32736, ServiceID: 1024, Name: "NHK G"},
			{ID: 3273701032, NetworkID: 32737, ServiceID: 1032, Name: "NHK E"},
		},
	}
}

func setupGuideRouter(t *testing.T, src *fakeSource) (*chi.Mux, *service.GuideService) {
	t.Helper()

	now := time.Date(2024, time.May, 15, 10, 0, 0, 0, time.Local)
	svc := service.NewGuideService(src, "http://mirakc.local:40772", "vlc").
		WithClock(func() time.Time { return now })
	if src.err == nil {
		require.NoError(t, svc.Refresh(context.Background()))
	}

	router := chi.NewRouter()
	api := humachi.New(router, huma.DefaultConfig("Test API", "1.0.0"))
	handlers.NewGuideHandler(svc).Register(api)
	return router, svc
}

func serve(router http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestGuideHandler_ListDays(t *testing.T) {
	router, _ := setupGuideRouter(t, newTestSource())

	rec := serve(router, http.MethodGet, "/api/v1/guide/days")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.ListDaysOutput
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp.Body))

	// The 01:00 program on the 16th belongs to the 15th.
	require.Len(t, resp.Body.Days, 1)
	day := resp.Body.Days[0]
	assert.Equal(t, "2024-05-15", day.Label)
	assert.True(t, day.Today)
	assert.Equal(t, resp.Body.Today, day.Key)
	assert.True(t, day.Start.Equal(time.Date(2024, time.May, 15, 5, 0, 0, 0, time.Local)))
	assert.True(t, day.End.Equal(time.Date(2024, time.May, 16, 5, 0, 0, 0, time.Local)))
}

func TestGuideHandler_ListDays_Empty(t *testing.T) {
	router, _ := setupGuideRouter(t, &fakeSource{})

	rec := serve(router, http.MethodGet, "/api/v1/guide/days")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.ListDaysOutput
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp.Body))
	assert.Empty(t, resp.Body.Days)
}

func TestGuideHandler_GetDay(t *testing.T) {
	router, _ := setupGuideRouter(t, newTestSource())

	for _, path := range []string{
		"/api/v1/guide/days/2024-05-15",
		"/api/v1/guide/days/" + strconv.FormatInt(time.Date(2024, time.May, 15, 0, 0, 0, 0, time.Local).UnixMilli(), 10),
	} {
		t.Run(path, func(t *testing.T) {
			rec := serve(router, http.MethodGet, path)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var resp handlers.DayScheduleResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

			assert.Equal(t, "2024-05-15", resp.Label)
			require.Len(t, resp.Channels, 2)

			g := resp.Channels[0]
			assert.Equal(t, 1024, g.ServiceID)
			require.NotNil(t, g.Service)
			assert.Equal(t, "NHK G", g.Service.Name)

			// filler 05-06, news, filler 07-08, drama
			require.Len(t, g.Slots, 4)
			assert.Nil(t, g.Slots[0].Program)
			assert.Equal(t, localMillis(15, 5), g.Slots[0].StartAt)
			assert.Equal(t, time.Hour.Milliseconds(), g.Slots[0].Duration)
			require.NotNil(t, g.Slots[1].Program)
			assert.Equal(t, "Morning News", g.Slots[1].Program.Name)
			assert.Nil(t, g.Slots[2].Program)
			assert.Equal(t, "Drama", g.Slots[3].Program.Name)

			e := resp.Channels[1]
			assert.Equal(t, 1032, e.ServiceID)
			require.Len(t, e.Slots, 2)
			assert.Equal(t, localMillis(15, 5), e.Slots[0].StartAt)
			assert.Equal(t, localMillis(16, 1)-localMillis(15, 5), e.Slots[0].Duration)
		})
	}
}

func TestGuideHandler_GetDay_Errors(t *testing.T) {
	router, _ := setupGuideRouter(t, newTestSource())

	tests := []struct {
		name string
		day  string
		want int
	}{
		{"unknown day", "2024-05-20", http.StatusNotFound},
		{"past day", "2024-05-14", http.StatusNotFound},
		{"not a date", "tomorrow", http.StatusBadRequest},
		{"millis off midnight", "1715745600001", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, http.MethodGet, "/api/v1/guide/days/"+tt.day)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestGuideHandler_GetProgram(t *testing.T) {
	router, _ := setupGuideRouter(t, newTestSource())

	rec := serve(router, http.MethodGet, "/api/v1/guide/programs/2")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp service.ProgramPair
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Drama", resp.Program.Name)
	require.NotNil(t, resp.Service)
	assert.Equal(t, "NHK G", resp.Service.Name)
	assert.Equal(t, "vlc://mirakc.local:40772/api/services/3273601024/stream", resp.StreamURL)

	rec = serve(router, http.MethodGet, "/api/v1/guide/programs/99")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGuideHandler_Refresh(t *testing.T) {
	src := newTestSource()
	router, svc := setupGuideRouter(t, src)

	rec := serve(router, http.MethodPost, "/api/v1/guide/refresh")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.RefreshResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 3, resp.ProgramCount)
	assert.Equal(t, 2, resp.ServiceCount)
	assert.Equal(t, 1, resp.Days)

	src.err = errors.New("connection refused")
	rec = serve(router, http.MethodPost, "/api/v1/guide/refresh")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	// The previous guide is still served.
	assert.Equal(t, 3, svc.Status().ProgramCount)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/v1/guide/days/2024-05-15").Code)
}
