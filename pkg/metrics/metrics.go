// Package metrics provides Prometheus metrics for the resolution engine.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all engine metrics.
type Manager struct {
	namespace string
	registry  prometheus.Registerer

	providerRequests *prometheus.CounterVec
	circuitOpen      *prometheus.CounterVec
	fetchLatency     prometheus.Histogram
	pipelineLatency  *prometheus.HistogramVec
	resolutions      *prometheus.CounterVec
	confidence       prometheus.Histogram
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	advisorMismatch  prometheus.Counter
	inFlightFetches  prometheus.Gauge
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithRegistry sets a custom Prometheus registry.
func WithRegistry(r prometheus.Registerer) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}

var (
	global   *Manager
	initOnce sync.Once
)

// Init builds and registers the global metrics manager. Repeated
// calls are no-ops so tests can initialize freely.
func Init(opts ...Option) {
	initOnce.Do(func() {
		m := &Manager{
			namespace: "arbiter",
			registry:  prometheus.DefaultRegisterer,
		}
		for _, opt := range opts {
			opt(m)
		}

		factory := promauto.With(m.registry)
		m.providerRequests = factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      "provider_requests_total",
			Help:      "Provider fan-out calls by terminal status.",
		}, []string{"provider", "status"})
		m.circuitOpen = factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      "circuit_open_rejections_total",
			Help:      "Calls rejected because the host breaker was open.",
		}, []string{"host"})
		m.fetchLatency = factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: m.namespace,
			Name:      "fetch_latency_seconds",
			Help:      "Wire latency of individual provider requests.",
			Buckets:   prometheus.DefBuckets,
		})
		m.pipelineLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: m.namespace,
			Name:      "resolution_latency_seconds",
			Help:      "End-to-end resolution latency by pipeline.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 45},
		}, []string{"pipeline"})
		m.resolutions = factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      "resolutions_total",
			Help:      "Resolutions by pipeline and outcome kind.",
		}, []string{"pipeline", "kind"})
		m.confidence = factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: m.namespace,
			Name:      "resolution_confidence",
			Help:      "Distribution of final confidence scores.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		})
		m.cacheHits = factory.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      "cache_hits_total",
			Help:      "Resolution cache hits.",
		})
		m.cacheMisses = factory.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      "cache_misses_total",
			Help:      "Resolution cache misses.",
		})
		m.advisorMismatch = factory.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      "advisor_mismatch_total",
			Help:      "Advisor resolutions that disagreed with the deterministic answer.",
		})
		m.inFlightFetches = factory.NewGauge(prometheus.GaugeOpts{
			Namespace: m.namespace,
			Name:      "in_flight_fetches",
			Help:      "Provider requests currently outstanding.",
		})

		global = m
	})
}

// Package-level helpers; all are safe no-ops before Init.

// RecordProviderRequest counts one terminal provider call status.
func RecordProviderRequest(provider, status string) {
	if global != nil {
		global.providerRequests.WithLabelValues(provider, status).Inc()
	}
}

// RecordCircuitOpen counts a breaker rejection for host.
func RecordCircuitOpen(host string) {
	if global != nil {
		global.circuitOpen.WithLabelValues(host).Inc()
	}
}

// ObserveFetchLatency records one provider request's wire latency.
func ObserveFetchLatency(seconds float64) {
	if global != nil {
		global.fetchLatency.Observe(seconds)
	}
}

// ObservePipelineLatency records one resolution's duration.
func ObservePipelineLatency(pipeline string, seconds float64) {
	if global != nil {
		global.pipelineLatency.WithLabelValues(pipeline).Observe(seconds)
	}
}

// RecordResolution counts a finished resolution.
func RecordResolution(pipeline, kind string) {
	if global != nil {
		global.resolutions.WithLabelValues(pipeline, kind).Inc()
	}
}

// ObserveConfidence records a final confidence score.
func ObserveConfidence(score float64) {
	if global != nil {
		global.confidence.Observe(score)
	}
}

// RecordCacheHit counts a resolution served from cache.
func RecordCacheHit() {
	if global != nil {
		global.cacheHits.Inc()
	}
}

// RecordCacheMiss counts a cache lookup that missed.
func RecordCacheMiss() {
	if global != nil {
		global.cacheMisses.Inc()
	}
}

// RecordAdvisorMismatch counts an advisor disagreement.
func RecordAdvisorMismatch() {
	if global != nil {
		global.advisorMismatch.Inc()
	}
}

// FetchStarted marks a provider request in flight.
func FetchStarted() {
	if global != nil {
		global.inFlightFetches.Inc()
	}
}

// FetchFinished marks a provider request done.
func FetchFinished() {
	if global != nil {
		global.inFlightFetches.Dec()
	}
}
