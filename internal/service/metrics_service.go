package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-roster-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry           *prometheus.Registry
	handler            http.Handler
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	rosterSize         prometheus.Gauge
	rosterMutations    *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	exportDuration     *prometheus.HistogramVec
	cacheLatency       prometheus.Observer
	cacheWrite         prometheus.Observer
	cacheHitRatio      prometheus.Gauge
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter

	rosterSizeValue      int64
	createdCount         uint64
	updatedCount         uint64
	deletedCount         uint64
	rejectedCount        uint64
	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	rosterSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "roster_records",
		Help: "Number of student records currently held",
	})

	rosterMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_mutations_total",
		Help: "Roster mutations by operation",
	}, []string{"op"})

	validationFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_validation_failures_total",
		Help: "Rejected saves by offending field",
	}, []string{"field"})

	exportDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "roster_export_duration_seconds",
		Help:    "Time spent producing roster exports",
		Buckets: prometheus.DefBuckets,
	}, []string{"format"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, rosterSize, rosterMutations, validationFailures,
		exportDuration, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		rosterSize:         rosterSize,
		rosterMutations:    rosterMutations,
		validationFailures: validationFailures,
		exportDuration:     exportDuration,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheHitRatio:      cacheHitRatio,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveRosterEvent tracks roster size and mutation counts. It is meant to be
// subscribed to the roster store.
func (m *MetricsService) ObserveRosterEvent(event models.RosterEvent) {
	if m == nil {
		return
	}
	m.rosterSize.Set(float64(event.Size))
	atomic.StoreInt64(&m.rosterSizeValue, int64(event.Size))
	m.rosterMutations.WithLabelValues(string(event.Type)).Inc()
	switch event.Type {
	case models.RosterCreated:
		atomic.AddUint64(&m.createdCount, 1)
	case models.RosterUpdated:
		atomic.AddUint64(&m.updatedCount, 1)
	case models.RosterDeleted:
		atomic.AddUint64(&m.deletedCount, 1)
	}
}

// RecordValidationFailure counts a rejected save once per offending field.
func (m *MetricsService) RecordValidationFailure(fields models.FieldErrors) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.rejectedCount, 1)
	for field := range fields {
		m.validationFailures.WithLabelValues(field).Inc()
	}
}

// ObserveExport records the time taken to produce an export.
func (m *MetricsService) ObserveExport(format string, duration time.Duration) {
	if m == nil {
		return
	}
	m.exportDuration.WithLabelValues(format).Observe(duration.Seconds())
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// Snapshot returns aggregated metrics suitable for the JSON metrics endpoint.
func (m *MetricsService) Snapshot() models.RosterMetrics {
	if m == nil {
		return models.RosterMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.RosterMetrics{
		RosterSize: int(atomic.LoadInt64(&m.rosterSizeValue)),
		Mutations: map[string]uint64{
			string(models.RosterCreated): atomic.LoadUint64(&m.createdCount),
			string(models.RosterUpdated): atomic.LoadUint64(&m.updatedCount),
			string(models.RosterDeleted): atomic.LoadUint64(&m.deletedCount),
		},
		ValidationFailures:       atomic.LoadUint64(&m.rejectedCount),
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
