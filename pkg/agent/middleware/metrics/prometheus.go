// Package metrics provides Prometheus-based metrics recording for LLM operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements the Recorder interface using Prometheus metrics.
type PrometheusRecorder struct {
	requestsTotal   *prometheus.CounterVec
	tokensTotal     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	iterationsTotal *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
	sleepSeconds    *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a new Prometheus-based metrics recorder.
func NewPrometheusRecorder() *PrometheusRecorder {
	return &PrometheusRecorder{
		requestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_requests_total",
				Help: "Total number of LLM requests by model, run, state, and status",
			},
			[]string{"model", "run_id", "agent_id", "state", "status", "error_type"},
		),
		tokensTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_tokens_total",
				Help: "Total number of tokens used in LLM requests",
			},
			[]string{"model", "run_id", "agent_id", "state", "type"},
		),
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_request_duration_seconds",
				Help:    "Duration of LLM requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model", "run_id", "agent_id", "state"},
		),
		iterationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_iterations_total",
				Help: "Total number of agent loop iterations by run, state, and status",
			},
			[]string{"run_id", "agent_id", "state", "status"},
		),
		transitionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_transitions_total",
				Help: "Total number of agent state transitions by run",
			},
			[]string{"run_id", "agent_id", "from", "to"},
		),
		sleepSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agent_sleep_duration_seconds",
				Help:    "Time spent in the sleep state per pause",
				Buckets: []float64{0.5, 1, 2, 4, 8, 10, 15},
			},
			[]string{"run_id", "agent_id"},
		),
	}
}

// ObserveRequest records metrics for a completed LLM request.
func (p *PrometheusRecorder) ObserveRequest(
	model, runID, agentID, state string,
	promptTokens, completionTokens int,
	success bool,
	errorType string,
	duration time.Duration,
) {
	status := statusSuccess
	if !success {
		status = statusError
	}

	p.requestsTotal.WithLabelValues(model, runID, agentID, state, status, errorType).Inc()

	// Token counts are only meaningful on success.
	if success {
		p.tokensTotal.WithLabelValues(model, runID, agentID, state, "prompt").Add(float64(promptTokens))
		p.tokensTotal.WithLabelValues(model, runID, agentID, state, "completion").Add(float64(completionTokens))
	}

	p.requestDuration.WithLabelValues(model, runID, agentID, state).Observe(duration.Seconds())
}

// ObserveIteration records one completed loop iteration for a run.
func (p *PrometheusRecorder) ObserveIteration(runID, agentID, state string, success bool) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	p.iterationsTotal.WithLabelValues(runID, agentID, state, status).Inc()
}

// ObserveTransition records a state transition chosen by the decision engine.
func (p *PrometheusRecorder) ObserveTransition(runID, agentID, from, to string) {
	p.transitionsTotal.WithLabelValues(runID, agentID, from, to).Inc()
}

// ObserveSleep records time spent in the sleep state.
func (p *PrometheusRecorder) ObserveSleep(runID, agentID string, duration time.Duration) {
	p.sleepSeconds.WithLabelValues(runID, agentID).Observe(duration.Seconds())
}
