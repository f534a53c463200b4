package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	generationAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querydeck_generation_attempts_total",
			Help: "Total SQL generation attempts by outcome status.",
		},
		[]string{"status"},
	)
	workflowRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querydeck_workflow_runs_total",
			Help: "Total SQL workflow runs by terminal status.",
		},
		[]string{"status"},
	)
	routerStepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querydeck_router_steps_total",
			Help: "Total orchestrator router decisions by action.",
		},
		[]string{"action"},
	)
	memoryConsolidationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "querydeck_memory_consolidations_total",
			Help: "Total conversation memory consolidations.",
		},
	)
	queryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "querydeck_query_duration_seconds",
			Help:    "SQL execution latency.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)
	generationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "querydeck_generation_duration_seconds",
			Help:    "LLM generation call latency.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		},
	)
)

func init() {
	prometheus.MustRegister(
		generationAttemptsTotal,
		workflowRunsTotal,
		routerStepsTotal,
		memoryConsolidationsTotal,
		queryDurationSeconds,
		generationDurationSeconds,
	)
}

func ObserveGenerationAttempt(status string, elapsed time.Duration) {
	generationAttemptsTotal.WithLabelValues(status).Inc()
	generationDurationSeconds.Observe(elapsed.Seconds())
}

func ObserveWorkflowRun(status string) {
	workflowRunsTotal.WithLabelValues(status).Inc()
}

func ObserveRouterStep(action string) {
	routerStepsTotal.WithLabelValues(action).Inc()
}

func ObserveMemoryConsolidation() {
	memoryConsolidationsTotal.Inc()
}

func ObserveQueryDuration(elapsed time.Duration) {
	queryDurationSeconds.Observe(elapsed.Seconds())
}
