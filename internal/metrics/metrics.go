package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "maintlog"

var (
	// Completed analysis runs by outcome
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Total number of maintenance log analyses",
		},
		[]string{"status"}, // success, error
	)

	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Wall-clock duration of an analysis run",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~8.5m
		},
	)

	AgentTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_turns_total",
			Help:      "Total number of agent turns that produced a message",
		},
		[]string{"agent"},
	)

	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Total number of tool invocations requested by agents",
		},
		[]string{"tool", "status"}, // status: success, error
	)

	EmailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_total",
			Help:      "Total number of notification emails attempted",
		},
		[]string{"status"},
	)
)

// RecordAnalysis records the outcome and duration of one run
func RecordAnalysis(status string, duration time.Duration) {
	AnalysesTotal.WithLabelValues(status).Inc()
	AnalysisDuration.Observe(duration.Seconds())
}

// RecordAgentTurn counts one finished turn
func RecordAgentTurn(agent string) {
	AgentTurnsTotal.WithLabelValues(agent).Inc()
}

// RecordToolCall counts one tool invocation
func RecordToolCall(tool string, failed bool) {
	status := "success"
	if failed {
		status = "error"
	}
	ToolCallsTotal.WithLabelValues(tool, status).Inc()
}

// RecordEmail counts one send attempt
func RecordEmail(status string) {
	EmailsTotal.WithLabelValues(status).Inc()
}
