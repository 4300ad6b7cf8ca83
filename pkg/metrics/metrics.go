// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// StreamDuration tracks streamed reply duration end to end.
	StreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reply_stream_duration_seconds",
			Help:    "Streamed assistant reply duration",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"provider", "status"},
	)

	// StreamTokensTotal counts tokens emitted to clients.
	StreamTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reply_stream_tokens_total",
			Help: "Total tokens emitted on reply streams",
		},
		[]string{"provider"},
	)

	// SSEConnectionsActive tracks active SSE connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	// ToolInvocationsTotal counts tool registry invocations by outcome.
	ToolInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tool_invocations_total",
			Help: "Total tool invocations",
		},
		[]string{"tool", "ok"},
	)

	// ToolDuration tracks tool execution duration.
	ToolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tool_duration_seconds",
			Help:    "Tool execution duration",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		},
		[]string{"tool"},
	)

	// PlannerDecisionsTotal counts planner decisions by action.
	PlannerDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_decisions_total",
			Help: "Planner decisions by resulting action",
		},
		[]string{"action"},
	)

	// MessagesTotal tracks messages persisted by role.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages persisted",
		},
		[]string{"role"},
	)

	// ConversationsTotal tracks conversations created.
	ConversationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversations_total",
			Help: "Total conversations created",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordTool records one tool registry invocation.
func RecordTool(tool string, ok bool, duration float64) {
	okLabel := "false"
	if ok {
		okLabel = "true"
	}
	ToolInvocationsTotal.WithLabelValues(tool, okLabel).Inc()
	ToolDuration.WithLabelValues(tool).Observe(duration)
}

// RecordStream records one streamed reply.
func RecordStream(provider, status string, duration float64, tokens int) {
	StreamDuration.WithLabelValues(provider, status).Observe(duration)
	StreamTokensTotal.WithLabelValues(provider).Add(float64(tokens))
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
