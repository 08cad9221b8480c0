package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// analyzer calls are slow network round trips
var defaultBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60}

// Manager owns every collector of the service.
type Manager struct {
	namespace string
	subsystem string
	buckets   []float64
	registry  *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInFlight        prometheus.Gauge

	analysisOutcomes *prometheus.CounterVec
	analyzerLatency  prometheus.Histogram
	topicVerdicts    *prometheus.CounterVec
	riskProfiles     *prometheus.CounterVec
	chatReplies      *prometheus.CounterVec
	clinicalReplies  *prometheus.CounterVec
}

// NewManager registers all collectors. Each Manager gets its own registry
// unless WithRegistry is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "radiology",
		subsystem: "ai",
		buckets:   defaultBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
		m.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	f := promauto.With(m.registry)

	m.httpRequests = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	m.httpRequestDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	m.httpInFlight = f.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "Requests currently being served.",
	})

	m.analysisOutcomes = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "analysis_items_total",
		Help:      "Per-item analysis outcomes (analyzed, skipped, failed, deferred).",
	}, []string{"status"})

	m.analyzerLatency = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "analyzer_duration_seconds",
		Help:      "Latency of analyzer calls, including failures.",
		Buckets:   m.buckets,
	})

	m.topicVerdicts = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "topic",
		Name:      "verdicts_total",
		Help:      "Topic gate verdicts by outcome and rule.",
	}, []string{"in_domain", "reason"})

	m.riskProfiles = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "risk",
		Name:      "profiles_total",
		Help:      "Risk profiles generated by overall tier.",
	}, []string{"level"})

	m.chatReplies = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "chat",
		Name:      "replies_total",
		Help:      "Chat replies by kind (answer, redirect, apology).",
	}, []string{"kind"})

	m.clinicalReplies = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "clinical",
		Name:      "replies_total",
		Help:      "Clinical assistant replies by feature and shape (structured, fallback, degraded).",
	}, []string{"feature", "shape"})
}

func (m *Manager) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Manager) InFlight(delta float64) { m.httpInFlight.Add(delta) }

func (m *Manager) AnalysisOutcome(status string) {
	m.analysisOutcomes.WithLabelValues(status).Inc()
}

func (m *Manager) AnalyzerLatency(d time.Duration) {
	m.analyzerLatency.Observe(d.Seconds())
}

func (m *Manager) TopicVerdict(inDomain bool, reason string) {
	m.topicVerdicts.WithLabelValues(strconv.FormatBool(inDomain), reason).Inc()
}

func (m *Manager) RiskProfile(level string) {
	m.riskProfiles.WithLabelValues(level).Inc()
}

func (m *Manager) ChatReply(kind string) {
	m.chatReplies.WithLabelValues(kind).Inc()
}

func (m *Manager) ClinicalReply(feature, shape string) {
	m.clinicalReplies.WithLabelValues(feature, shape).Inc()
}

// Registry is exposed for tests.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
