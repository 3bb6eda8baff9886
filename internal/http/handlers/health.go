// Package handlers provides HTTP API handlers for miraview.
package handlers

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/jmylchreest/miraview/internal/service"
	"github.com/jmylchreest/miraview/pkg/httpclient"
)

// StatusProvider reports the state of the held guide.
type StatusProvider interface {
	Status() service.Status
}

// Pinger checks the snapshot store.
type Pinger interface {
	Ping(ctx context.Context) error
	Driver() string
}

// Scheduler reports the next scheduled refresh.
type Scheduler interface {
	NextRun(after time.Time) time.Time
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	version   string
	startTime time.Time
	guide     StatusProvider
	db        Pinger
	scheduler Scheduler
	breaker   *httpclient.CircuitBreaker
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(version string, guide StatusProvider) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startTime: time.Now(),
		guide:     guide,
	}
}

// WithDB sets the snapshot store for health checks.
func (h *HealthHandler) WithDB(db Pinger) *HealthHandler {
	h.db = db
	return h
}

// WithScheduler sets the refresh scheduler.
func (h *HealthHandler) WithScheduler(s Scheduler) *HealthHandler {
	h.scheduler = s
	return h
}

// WithCircuitBreaker sets the mirakc client's circuit breaker.
func (h *HealthHandler) WithCircuitBreaker(cb *httpclient.CircuitBreaker) *HealthHandler {
	h.breaker = cb
	return h
}

// HealthInput is the input for the health check endpoint.
type HealthInput struct{}

// HealthOutput is the output for the health check endpoint.
type HealthOutput struct {
	Body HealthResponse
}

// LivezInput is the input for the liveness check.
type LivezInput struct{}

// LivezOutput is the output for the liveness check.
type LivezOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

// ReadyzInput is the input for the readiness check.
type ReadyzInput struct{}

// ReadyzOutput is the output for the readiness check.
type ReadyzOutput struct {
	Status int
	Body   struct {
		Status     string            `json:"status" enum:"ready,not_ready"`
		Components map[string]string `json:"components"`
	}
}

// Register registers the health routes with the API.
func (h *HealthHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getHealth",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns service health including guide freshness and process memory",
		Tags:        []string{"System"},
	}, h.GetHealth)

	huma.Register(api, huma.Operation{
		OperationID: "getLivez",
		Method:      http.MethodGet,
		Path:        "/livez",
		Summary:     "Liveness check",
		Tags:        []string{"System"},
	}, h.GetLivez)

	huma.Register(api, huma.Operation{
		OperationID: "getReadyz",
		Method:      http.MethodGet,
		Path:        "/readyz",
		Summary:     "Readiness check",
		Description: "Ready once a guide has been loaded and the snapshot store answers",
		Tags:        []string{"System"},
	}, h.GetReadyz)
}

// GetHealth returns the health status of the service.
func (h *HealthHandler) GetHealth(ctx context.Context, _ *HealthInput) (*HealthOutput, error) {
	now := time.Now()
	uptime := now.Sub(h.startTime)

	st := h.guide.Status()
	guideHealth := GuideHealth{
		LoadedFrom:   st.LoadedFrom,
		LastRefresh:  st.LastRefresh,
		LastError:    st.LastError,
		ProgramCount: st.ProgramCount,
		ServiceCount: st.ServiceCount,

		MirakcVersion:   st.MirakcVersion,
		LatestVersion:   st.LatestVersion,
		UpdateAvailable: st.UpdateAvailable,
	}
	if h.scheduler != nil {
		guideHealth.NextRefresh = h.scheduler.NextRun(now)
	}

	dbHealth := h.getDatabaseHealth(ctx)

	components := HealthComponents{Database: dbHealth}
	checks := map[string]string{
		"database": dbHealth.Status,
		"guide":    "ok",
	}
	if h.breaker != nil {
		stats := h.breaker.Stats()
		components.Mirakc = &stats
		checks["mirakc"] = stats.State
	}

	status := "healthy"
	if st.LastError != "" {
		checks["guide"] = "stale"
		status = "degraded"
	}
	if dbHealth.Status == "error" {
		status = "degraded"
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:        status,
			Timestamp:     now.UTC().Format(time.RFC3339),
			Version:       h.version,
			Uptime:        uptime.Round(time.Second).String(),
			UptimeSeconds: uptime.Seconds(),
			Guide:         guideHealth,
			Memory:        getMemoryInfo(),
			Components:    components,
			Checks:        checks,
		},
	}, nil
}

// GetLivez reports that the process is serving requests.
func (h *HealthHandler) GetLivez(_ context.Context, _ *LivezInput) (*LivezOutput, error) {
	out := &LivezOutput{}
	out.Body.Status = "ok"
	return out, nil
}

// GetReadyz reports whether the service has guide data to serve.
func (h *HealthHandler) GetReadyz(ctx context.Context, _ *ReadyzInput) (*ReadyzOutput, error) {
	out := &ReadyzOutput{Status: http.StatusOK}
	out.Body.Status = "ready"
	out.Body.Components = map[string]string{}

	if h.guide.Status().LoadedFrom == "" {
		out.Body.Components["guide"] = "not_loaded"
		out.Body.Status = "not_ready"
	} else {
		out.Body.Components["guide"] = "ok"
	}

	db := h.getDatabaseHealth(ctx)
	out.Body.Components["database"] = db.Status
	if db.Status == "error" {
		out.Body.Status = "not_ready"
	}

	if out.Body.Status != "ready" {
		out.Status = http.StatusServiceUnavailable
	}
	return out, nil
}

func (h *HealthHandler) getDatabaseHealth(ctx context.Context) DatabaseHealth {
	if h.db == nil {
		return DatabaseHealth{Status: "not_configured"}
	}

	health := DatabaseHealth{Status: "ok", Driver: h.db.Driver()}
	start := time.Now()
	err := h.db.Ping(ctx)
	health.ResponseTimeMS = float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		health.Status = "error"
	}
	return health
}

// getMemoryInfo returns system and process memory usage. Values are zero
// where the platform does not report them.
func getMemoryInfo() MemoryInfo {
	info := MemoryInfo{}

	if vmStat, err := mem.VirtualMemory(); err == nil && vmStat != nil {
		info.TotalMemoryMB = float64(vmStat.Total) / 1024 / 1024
		info.AvailableMemoryMB = float64(vmStat.Available) / 1024 / 1024
	}

	proc, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // pid fits in int32
	if err != nil {
		return info
	}
	if memInfo, err := proc.MemoryInfo(); err == nil && memInfo != nil {
		info.ProcessMemoryMB = float64(memInfo.RSS) / 1024 / 1024
		if info.TotalMemoryMB > 0 {
			info.PercentageOfSystem = info.ProcessMemoryMB / info.TotalMemoryMB * 100
		}
	}
	return info
}
