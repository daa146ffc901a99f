package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nft_platform",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nft_platform",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nft_platform",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	quoteLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nft_platform",
			Subsystem: "quotes",
			Name:      "lookups_total",
			Help:      "USD quote lookups by source and result.",
		},
		[]string{"source", "result"},
	)

	aggregationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nft_platform",
			Subsystem: "stats",
			Name:      "aggregation_duration_seconds",
			Help:      "Duration of statistics aggregations.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"aggregation"},
	)

	refreshRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nft_platform",
			Subsystem: "quotes",
			Name:      "refresh_runs_total",
			Help:      "Quote refresher runs by outcome.",
		},
		[]string{"success"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		quoteLookups,
		aggregationDuration,
		refreshRuns,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		done := TrackInFlight()
		defer done()

		next.ServeHTTP(rec, r)
		ObserveRequest(r.Method, canonicalPath(r.URL.Path), rec.status, time.Since(start))
	})
}

// TrackInFlight increments the in-flight gauge until the returned func runs.
func TrackInFlight() func() {
	httpInFlight.Inc()
	return httpInFlight.Dec
}

// ObserveRequest records one finished request. path should be a route
// template or an already canonical path.
func ObserveRequest(method, path string, status int, duration time.Duration) {
	method = strings.ToUpper(method)
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// CanonicalPath collapses ids and addresses in raw for use as a label.
func CanonicalPath(raw string) string { return canonicalPath(raw) }

// RecordQuoteLookup counts a USD quote resolution. source is one of
// store, cache or provider.
func RecordQuoteLookup(source string, ok bool) {
	result := "miss"
	if ok {
		result = "hit"
	}
	quoteLookups.WithLabelValues(source, result).Inc()
}

// ObserveAggregation records how long a named aggregation took.
func ObserveAggregation(name string, started time.Time) {
	aggregationDuration.WithLabelValues(name).Observe(time.Since(started).Seconds())
}

// RecordRefresh counts one quote refresher run.
func RecordRefresh(success bool) {
	refreshRuns.WithLabelValues(strconv.FormatBool(success)).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses ids and addresses so label cardinality stays
// bounded: /v1/collections/0xabc/holders becomes /v1/collections/:id/holders.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	start := 0
	if parts[0] == "v1" {
		start = 1
	}
	for i := start + 1; i < len(parts); i++ {
		if isIdentifier(parts[i]) {
			parts[i] = ":id"
		}
	}
	return "/" + strings.Join(parts, "/")
}

func isIdentifier(segment string) bool {
	if strings.HasPrefix(segment, "0x") || strings.HasPrefix(segment, "0X") {
		return true
	}
	if _, err := strconv.ParseInt(segment, 10, 64); err == nil {
		return true
	}
	// uuid shaped
	return len(segment) == 36 && strings.Count(segment, "-") == 4
}
