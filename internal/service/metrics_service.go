package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// scheduling engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	generationDuration prometheus.Observer
	generationTotal    *prometheus.CounterVec
	slotsPlaced        prometheus.Counter
	conflictsDetected  *prometheus.CounterVec
	conflictsResolved  prometheus.Counter
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	generationDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_generation_duration_seconds",
		Help:    "Duration of timetable generation runs",
		Buckets: prometheus.DefBuckets,
	})

	generationTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_generation_total",
		Help: "Total timetable generation runs by outcome",
	}, []string{"outcome"})

	slotsPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_slots_placed_total",
		Help: "Total timetable slots placed by the allocator",
	})

	conflictsDetected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_conflicts_detected_total",
		Help: "Total conflicts reported by the detector, by type",
	}, []string{"type"})

	conflictsResolved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_conflicts_resolved_total",
		Help: "Total conflicts repaired by the resolver",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheHits, cacheMisses,
		generationDuration, generationTotal, slotsPlaced, conflictsDetected, conflictsResolved, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		generationDuration: generationDuration,
		generationTotal:    generationTotal,
		slotsPlaced:        slotsPlaced,
		conflictsDetected:  conflictsDetected,
		conflictsResolved:  conflictsResolved,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveGeneration records one generation run.
func (m *MetricsService) ObserveGeneration(success bool, slots int, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.generationDuration.Observe(duration.Seconds())
	m.generationTotal.WithLabelValues(outcome).Inc()
	m.slotsPlaced.Add(float64(slots))
}

// RecordConflicts tallies detector output by type.
func (m *MetricsService) RecordConflicts(byType map[string]int) {
	if m == nil {
		return
	}
	for conflictType, count := range byType {
		m.conflictsDetected.WithLabelValues(conflictType).Add(float64(count))
	}
}

// RecordResolved tallies successful resolver repairs.
func (m *MetricsService) RecordResolved(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.conflictsResolved.Add(float64(count))
}
