package handlers

import (
	"time"

	"github.com/jmylchreest/miraview/internal/broadcastday"
	"github.com/jmylchreest/miraview/internal/service"
	"github.com/jmylchreest/miraview/pkg/httpclient"
	"github.com/jmylchreest/miraview/pkg/mirakc"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status        string            `json:"status" doc:"Overall health status" enum:"healthy,degraded"`
	Timestamp     string            `json:"timestamp" doc:"Current server time (RFC3339)"`
	Version       string            `json:"version" doc:"Application version"`
	Uptime        string            `json:"uptime" doc:"Human-readable uptime"`
	UptimeSeconds float64           `json:"uptime_seconds" doc:"Uptime in seconds"`
	Guide         GuideHealth       `json:"guide"`
	Memory        MemoryInfo        `json:"memory"`
	Components    HealthComponents  `json:"components"`
	Checks        map[string]string `json:"checks"`
}

// GuideHealth summarises the held guide data.
type GuideHealth struct {
	LoadedFrom   string    `json:"loaded_from,omitempty" doc:"Where the held lists came from" enum:"mirakc,snapshot"`
	LastRefresh  time.Time `json:"last_refresh,omitzero" doc:"When the held lists were fetched"`
	LastError    string    `json:"last_error,omitempty" doc:"Error of the most recent failed refresh"`
	ProgramCount int       `json:"program_count"`
	ServiceCount int       `json:"service_count"`
	NextRefresh  time.Time `json:"next_refresh,omitzero" doc:"Next scheduled refresh"`

	MirakcVersion   string `json:"mirakc_version,omitempty" doc:"mirakc version seen on the last refresh"`
	LatestVersion   string `json:"latest_version,omitempty" doc:"Latest release known to mirakc"`
	UpdateAvailable bool   `json:"update_available" doc:"Whether mirakc reports a newer release"`
}

// MemoryInfo holds memory usage of the system and this process.
type MemoryInfo struct {
	TotalMemoryMB      float64 `json:"total_memory_mb"`
	AvailableMemoryMB  float64 `json:"available_memory_mb"`
	ProcessMemoryMB    float64 `json:"process_memory_mb"`
	PercentageOfSystem float64 `json:"percentage_of_system"`
}

// HealthComponents holds the status of backing components.
type HealthComponents struct {
	Database DatabaseHealth                  `json:"database"`
	Mirakc   *httpclient.CircuitBreakerStats `json:"mirakc,omitempty"`
}

// DatabaseHealth holds snapshot store health information.
type DatabaseHealth struct {
	Status         string  `json:"status" enum:"ok,error,not_configured"`
	Driver         string  `json:"driver,omitempty"`
	ResponseTimeMS float64 `json:"response_time_ms"`
}

// DayResponse describes one broadcast day present in the guide.
type DayResponse struct {
	Key   broadcastday.Key `json:"key" doc:"Epoch milliseconds of local midnight of the day's date"`
	Label string           `json:"label" doc:"Local date, YYYY-MM-DD" example:"2024-05-15"`
	Start time.Time        `json:"start" doc:"05:00 local on the day's date"`
	End   time.Time        `json:"end" doc:"05:00 local on the following date"`
	Today bool             `json:"today"`
}

// NewDayResponse converts a key into a DayResponse.
func NewDayResponse(key, today broadcastday.Key) DayResponse {
	return DayResponse{
		Key:   key,
		Label: key.String(),
		Start: key.Start(),
		End:   key.End(),
		Today: key == today,
	}
}

// DayScheduleResponse is the guide for one broadcast day.
type DayScheduleResponse struct {
	DayResponse
	Channels []service.ChannelView `json:"channels"`
}

// RefreshResponse reports the outcome of a manual refresh.
type RefreshResponse struct {
	ProgramCount int       `json:"program_count"`
	ServiceCount int       `json:"service_count"`
	LastRefresh  time.Time `json:"last_refresh"`
	Days         int       `json:"days" doc:"Broadcast days present after the refresh"`
}

// TunerResponse is one tuner with its derived state.
type TunerResponse struct {
	State string       `json:"state" enum:"fault,free,preemptible,using,unknown"`
	Tuner mirakc.Tuner `json:"tuner"`
}

// TunerListResponse lists tuners with the mirakc version.
type TunerListResponse struct {
	Tuners          []TunerResponse `json:"tuners"`
	MirakcVersion   string          `json:"mirakc_version,omitempty"`
	LatestVersion   string          `json:"latest_version,omitempty"`
	UpdateAvailable bool            `json:"update_available"`
}

// NewTunerListResponse converts a tuner status for the API.
func NewTunerListResponse(st *service.TunerStatus) TunerListResponse {
	resp := TunerListResponse{Tuners: make([]TunerResponse, 0, len(st.Tuners))}
	for _, t := range st.Tuners {
		resp.Tuners = append(resp.Tuners, TunerResponse{State: string(t.State()), Tuner: t})
	}
	if st.Version != nil {
		resp.MirakcVersion = st.Version.Current
		resp.LatestVersion = st.Version.Latest
		resp.UpdateAvailable = st.Version.UpdateAvailable()
	}
	return resp
}
