package metrics

import (
	"fmt"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mattdot/issueagent/internal/interfaces"
)

// PrometheusCollector implements the MetricsCollector interface using
// Prometheus. The process is single-shot and serves no /metrics endpoint, so
// the collector owns a private registry and exposes LogSummary for a
// one-line-per-family dump at exit.
type PrometheusCollector struct {
	registry   *prometheus.Registry
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	gauges     map[string]*prometheus.GaugeVec
}

// NewPrometheusCollector creates a new Prometheus metrics collector
func NewPrometheusCollector() *PrometheusCollector {
	collector := &PrometheusCollector{
		registry:   prometheus.NewRegistry(),
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}

	collector.initializeMetrics()

	return collector
}

func (p *PrometheusCollector) initializeMetrics() {
	factory := promauto.With(p.registry)

	// Context retrieval metrics
	p.counters["context_requests_total"] = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "issueagent_context_requests_total",
			Help: "Total number of issue context retrievals",
		},
		[]string{"status", "event_type"},
	)

	p.histograms["context_fetch_duration_seconds"] = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "issueagent_context_fetch_duration_seconds",
			Help:    "Issue context retrieval duration in seconds",
			Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		},
		[]string{"event_type"},
	)

	// Decision engine metrics
	p.counters["decisions_total"] = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "issueagent_decisions_total",
			Help: "Total number of response decisions by verdict",
		},
		[]string{"verdict"},
	)

	// Backend bootstrap metrics
	p.counters["backend_connect_total"] = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "issueagent_backend_connect_total",
			Help: "Total number of backend bootstrap attempts",
		},
		[]string{"status", "category"},
	)

	p.histograms["backend_connect_duration_seconds"] = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "issueagent_backend_connect_duration_seconds",
			Help:    "Backend bootstrap duration in seconds",
			Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		},
		[]string{"status"},
	)

	p.counters["completion_requests_total"] = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "issueagent_completion_requests_total",
			Help: "Total number of completion requests to the AI backend",
		},
		[]string{"status"},
	)

	// Publication metrics
	p.counters["comments_published_total"] = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "issueagent_comments_published_total",
			Help: "Total number of comments published to the issue thread",
		},
		[]string{"status"},
	)

	// Pipeline metrics
	p.histograms["pipeline_duration_seconds"] = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "issueagent_pipeline_duration_seconds",
			Help:    "End-to-end pipeline duration in seconds",
			Buckets: []float64{0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
		},
		[]string{"outcome"},
	)

	p.gauges["conversation_messages"] = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "issueagent_conversation_messages",
			Help: "Number of messages in the built conversation history",
		},
		[]string{"event_type"},
	)
}

// IncrementCounter increments a counter metric
func (p *PrometheusCollector) IncrementCounter(name string, labels map[string]string) {
	counter, exists := p.counters[name]
	if !exists {
		return
	}

	counter.With(labels).Inc()
}

// RecordDuration records a duration in a histogram
func (p *PrometheusCollector) RecordDuration(name string, duration float64, labels map[string]string) {
	histogram, exists := p.histograms[name]
	if !exists {
		return
	}

	histogram.With(labels).Observe(duration)
}

// SetGauge sets a gauge value
func (p *PrometheusCollector) SetGauge(name string, value float64, labels map[string]string) {
	gauge, exists := p.gauges[name]
	if !exists {
		return
	}

	gauge.With(labels).Set(value)
}

// LogSummary gathers the registry and writes one line per metric sample.
// This is the one-shot replacement for a scrape endpoint.
func (p *PrometheusCollector) LogSummary(log interfaces.Logger) {
	families, err := p.registry.Gather()
	if err != nil {
		log.Warn("failed to gather metrics", "error", err.Error())
		return
	}

	sort.Slice(families, func(i, j int) bool {
		return families[i].GetName() < families[j].GetName()
	})

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make(map[string]string, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}

			var value string
			switch {
			case m.GetCounter() != nil:
				value = fmt.Sprintf("%g", m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				value = fmt.Sprintf("%g", m.GetGauge().GetValue())
			case m.GetHistogram() != nil:
				value = fmt.Sprintf("count=%d sum=%gs", m.GetHistogram().GetSampleCount(), m.GetHistogram().GetSampleSum())
			default:
				continue
			}

			log.Debug("metric", "name", mf.GetName(), "labels", labels, "value", value)
		}
	}
}

var _ interfaces.MetricsCollector = (*PrometheusCollector)(nil)
