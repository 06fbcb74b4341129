// Package metrics exposes Prometheus collectors for routing, tools, the LLM gateway and retrieval.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cr_agent"

// Metrics holds the collectors and the registry they are registered on.
type Metrics struct {
	registry *prometheus.Registry

	routes       *prometheus.CounterVec
	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
	llmCalls     *prometheus.CounterVec
	llmLatency   *prometheus.HistogramVec
	ragScores    *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry together with the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		routes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "routes_total",
				Help:      "Requests routed to each agent",
			},
			[]string{"agent"},
		),
		toolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Tool executions by tool name",
			},
			[]string{"tool"},
		),
		toolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_duration_seconds",
				Help:      "Tool execution time",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		llmCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_calls_total",
				Help:      "LLM gateway calls by provider and status",
			},
			[]string{"provider", "status"},
		),
		llmLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "llm_latency_milliseconds",
				Help:      "LLM gateway call latency in milliseconds",
				Buckets:   []float64{50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000},
			},
			[]string{"provider"},
		),
		ragScores: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rag_best_similarity",
				Help:      "Best similarity score of each document search",
				Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
			},
			[]string{"scope"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.routes,
		m.toolCalls,
		m.toolDuration,
		m.llmCalls,
		m.llmLatency,
		m.ragScores,
	)
	return m
}

// ObserveRoute counts a routing decision.
func (m *Metrics) ObserveRoute(agent string) {
	m.routes.WithLabelValues(agent).Inc()
}

// ObserveToolCall records one tool execution.
func (m *Metrics) ObserveToolCall(tool string, d time.Duration) {
	m.toolCalls.WithLabelValues(tool).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// ObserveLLMCall records one gateway call. It matches llm.Observer.
func (m *Metrics) ObserveLLMCall(provider string, latencyMs int64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.llmCalls.WithLabelValues(provider, status).Inc()
	if err == nil {
		m.llmLatency.WithLabelValues(provider).Observe(float64(latencyMs))
	}
}

// ObserveRAGScore records the best similarity of a search in scope (temporary or persistent).
func (m *Metrics) ObserveRAGScore(scope string, score float64) {
	m.ragScores.WithLabelValues(scope).Observe(score)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
