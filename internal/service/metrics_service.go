package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsSnapshot aggregates counters for the health endpoint.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	CacheHitRatio            float64   `json:"cacheHitRatio"`
	Submissions              uint64    `json:"submissions"`
	Decisions                uint64    `json:"decisions"`
	RejectedOutOfTurn        uint64    `json:"rejectedOutOfTurn"`
	EnrichmentFallbacks      uint64    `json:"enrichmentFallbacks"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}

// MetricsService encapsulates Prometheus instrumentation for the leave API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	submissions     *prometheus.CounterVec
	decisions       *prometheus.CounterVec
	outOfTurn       prometheus.Counter
	enrichment      *prometheus.HistogramVec
	fallbacks       *prometheus.CounterVec
	auditFailures   prometheus.Counter

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	submissionCount      uint64
	decisionCount        uint64
	outOfTurnCount       uint64
	fallbackCount        uint64
}

// NewMetricsService registers the Prometheus collectors.
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
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

	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "leave_submissions_total",
		Help: "Leave applications accepted, by pipeline",
	}, []string{"pipeline"})

	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "leave_decisions_total",
		Help: "Reviewer decisions recorded, by stage and outcome",
	}, []string{"stage", "decision"})

	outOfTurn := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "leave_decisions_out_of_turn_total",
		Help: "Decisions refused because the reviewer was not the current stage owner",
	})

	enrichment := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "leave_enrichment_duration_seconds",
		Help:    "Duration of text generation calls",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
	}, []string{"kind"})

	fallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "leave_enrichment_fallbacks_total",
		Help: "Text generation calls replaced by a fallback string",
	}, []string{"kind"})

	auditFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_dispatch_failures_total",
		Help: "Audit entries that could not be queued",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		submissions, decisions, outOfTurn, enrichment, fallbacks, auditFailures, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		submissions:     submissions,
		decisions:       decisions,
		outOfTurn:       outOfTurn,
		enrichment:      enrichment,
		fallbacks:       fallbacks,
		auditFailures:   auditFailures,
	}
}

// Registry exposes the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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
	m.cacheHitRatio.Set(m.hitRatio())
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordSubmission counts an accepted application.
func (m *MetricsService) RecordSubmission(pipeline string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(pipeline).Inc()
	atomic.AddUint64(&m.submissionCount, 1)
}

// RecordDecision counts a recorded stage decision.
func (m *MetricsService) RecordDecision(stage, decision string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(stage, decision).Inc()
	atomic.AddUint64(&m.decisionCount, 1)
}

// RecordOutOfTurn counts a refused decision.
func (m *MetricsService) RecordOutOfTurn() {
	if m == nil {
		return
	}
	m.outOfTurn.Inc()
	atomic.AddUint64(&m.outOfTurnCount, 1)
}

// ObserveEnrichment records one text generation call and whether it fell back.
func (m *MetricsService) ObserveEnrichment(kind string, duration time.Duration, fellBack bool) {
	if m == nil {
		return
	}
	m.enrichment.WithLabelValues(kind).Observe(duration.Seconds())
	if fellBack {
		m.fallbacks.WithLabelValues(kind).Inc()
		atomic.AddUint64(&m.fallbackCount, 1)
	}
}

// RecordAuditFailure counts an audit entry that was dropped.
func (m *MetricsService) RecordAuditFailure() {
	if m == nil {
		return
	}
	m.auditFailures.Inc()
}

func (m *MetricsService) hitRatio() float64 {
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return MetricsSnapshot{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		CacheHitRatio:            m.hitRatio(),
		Submissions:              atomic.LoadUint64(&m.submissionCount),
		Decisions:                atomic.LoadUint64(&m.decisionCount),
		RejectedOutOfTurn:        atomic.LoadUint64(&m.outOfTurnCount),
		EnrichmentFallbacks:      atomic.LoadUint64(&m.fallbackCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
