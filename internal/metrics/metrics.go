// Package metrics holds the Prometheus collectors of the service.
//
// Collectors are package-level so any component can record without
// plumbing; Init registers them once with the default registry.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SourceFetchTotal counts adapter calls by outcome (ok|error).
	SourceFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_fetch_total",
			Help: "Upstream adapter calls by source and result",
		},
		[]string{"source", "result"},
	)

	SourceFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "source_fetch_duration_seconds",
			Help:    "Latency of upstream adapter calls",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"source"},
	)

	AggregationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aggregation_duration_seconds",
			Help:    "Duration of a full fan-out and merge",
			Buckets: prometheus.DefBuckets,
		},
	)

	// CacheRequestsTotal counts cache lookups by result (hit|miss|error).
	CacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Snapshot cache lookups",
		},
		[]string{"result"},
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5},
		},
		[]string{"route"},
	)

	HistoryTicksStored = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "history_ticks_stored_total",
			Help: "Ticks persisted to the history store",
		},
	)
)

var once sync.Once

// Init registers all collectors plus the Go and process collectors.
// Safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			SourceFetchTotal,
			SourceFetchDuration,
			AggregationDuration,
			CacheRequestsTotal,
			HTTPRequestsTotal,
			HTTPRequestDuration,
			HistoryTicksStored,
		)
		_ = prometheus.Register(collectors.NewGoCollector())
		_ = prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Handler serves the default registry. Compression is left to the HTTP
// middleware.
func Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{DisableCompression: true}),
	)
}

// RecordFetch records one adapter call.
func RecordFetch(source string, ok bool, d time.Duration) {
	result := "ok"
	if !ok {
		result = "error"
	}
	SourceFetchTotal.WithLabelValues(source, result).Inc()
	SourceFetchDuration.WithLabelValues(source).Observe(d.Seconds())
}

func RecordAggregation(d time.Duration) { AggregationDuration.Observe(d.Seconds()) }

func RecordCache(result string) { CacheRequestsTotal.WithLabelValues(result).Inc() }

func RecordHTTPRequest(route string, status int, d time.Duration) {
	HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func RecordStored(n int) { HistoryTicksStored.Add(float64(n)) }
