// Package metrics exposes Prometheus instrumentation for the engine, wired
// in through the runtime's lifecycle hooks.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/avelhao/parley/pkg/domain"
)

// Recorder holds the engine metric collectors.
type Recorder struct {
	nodeExecutions     *prometheus.CounterVec
	nodeDuration       *prometheus.HistogramVec
	completionCalls    *prometheus.CounterVec
	completionDuration prometheus.Histogram
}

// NewRecorder registers the collectors with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		nodeExecutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parley",
			Name:      "node_executions_total",
			Help:      "Node executions by node type and outcome.",
		}, []string{"node_type", "status"}),
		nodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "parley",
			Name:      "node_duration_seconds",
			Help:      "Node execution latency by node type.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"node_type"}),
		completionCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parley",
			Name:      "completion_calls_total",
			Help:      "Completion backend calls by outcome.",
		}, []string{"status"}),
		completionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "parley",
			Name:      "completion_duration_seconds",
			Help:      "Completion backend latency.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// Hooks returns lifecycle hooks that feed the collectors.
func (r *Recorder) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) {
			r.nodeExecutions.WithLabelValues(string(e.NodeType), outcome(e.IsError)).Inc()
			r.nodeDuration.WithLabelValues(string(e.NodeType)).Observe(e.Duration.Seconds())
		},
		OnCompletionReturn: func(_ context.Context, e *domain.CompletionEvent) {
			r.completionCalls.WithLabelValues(outcome(e.IsError)).Inc()
			r.completionDuration.Observe(e.Duration.Seconds())
		},
	}
}

// NodeExecutions exposes the execution counter, mainly for tests.
func (r *Recorder) NodeExecutions() *prometheus.CounterVec {
	return r.nodeExecutions
}

// CompletionCalls exposes the completion counter, mainly for tests.
func (r *Recorder) CompletionCalls() *prometheus.CounterVec {
	return r.completionCalls
}

func outcome(isError bool) string {
	if isError {
		return "error"
	}
	return "ok"
}
