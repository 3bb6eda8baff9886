// Package metrics provides Prometheus instrumentation for miraview.
//
// Metrics are registered with the default registerer at init and exposed by
// Handler at GET /metrics:
//
//	miraview_mirakc_fetches_total           counter: mirakc fetches by resource and result
//	miraview_mirakc_fetch_duration_seconds  histogram: mirakc fetch latency by resource
//	miraview_guide_programs                 gauge: programs held by the guide service
//	miraview_guide_services                 gauge: services held by the guide service
//	miraview_guide_last_refresh_timestamp   gauge: unix time of the last successful refresh
//	miraview_grid_build_duration_seconds    histogram: engine run time
//	miraview_http_requests_total            counter: API requests by method, route and status
//	miraview_http_request_duration_seconds  histogram: API latency by method and route
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch results.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// MirakcFetches counts mirakc fetches by resource (programs, services, tuners,
// version) and result.
var MirakcFetches = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "miraview_mirakc_fetches_total",
	Help: "mirakc API fetches by resource and result.",
}, []string{"resource", "result"})

// MirakcFetchDuration tracks mirakc fetch latency.
var MirakcFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "miraview_mirakc_fetch_duration_seconds",
	Help:    "mirakc API fetch latency in seconds.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
}, []string{"resource"})

// GuidePrograms is the number of programs currently held.
var GuidePrograms = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "miraview_guide_programs",
	Help: "Programs currently held by the guide service.",
})

// GuideServices is the number of services currently held.
var GuideServices = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "miraview_guide_services",
	Help: "Services currently held by the guide service.",
})

// LastRefresh is the unix time of the last successful refresh.
var LastRefresh = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "miraview_guide_last_refresh_timestamp_seconds",
	Help: "Unix time of the last successful mirakc refresh.",
})

// GridBuildDuration tracks how long grouping and gap filling takes.
var GridBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "miraview_grid_build_duration_seconds",
	Help:    "Time to build the schedule grid from the program list.",
	Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5},
})

// HTTPRequests counts API requests by method, route pattern and status.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "miraview_http_requests_total",
	Help: "Total HTTP requests handled.",
}, []string{"method", "route", "status"})

// HTTPDuration tracks API request latency.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "miraview_http_request_duration_seconds",
	Help:    "HTTP request latency in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "route"})

// ObserveFetch records one mirakc fetch.
func ObserveFetch(resource string, elapsed time.Duration, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	MirakcFetches.WithLabelValues(resource, result).Inc()
	MirakcFetchDuration.WithLabelValues(resource).Observe(elapsed.Seconds())
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency. Routes are labelled with the
// chi route pattern so path parameters do not explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).Inc()
		HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
