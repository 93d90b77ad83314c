package observability

import "github.com/prometheus/client_golang/prometheus"

// Domain counters. HTTP traffic is measured separately by middleware.Metrics.
var (
	// ShareOps counts share operations by op (create, read, delete) and outcome.
	ShareOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeagentix_share_operations_total",
			Help: "Share store operations by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	// Executions counts program runs by backend language and outcome.
	Executions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeagentix_executions_total",
			Help: "Program executions by language and outcome.",
		},
		[]string{"language", "outcome"},
	)

	// AssistRuns counts assistant pipelines by task and terminal state.
	AssistRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeagentix_assist_runs_total",
			Help: "Assistant pipelines by task and final state.",
		},
		[]string{"task", "state"},
	)

	// RefinerFallbacks counts how often the fallback refiner was tried.
	RefinerFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "codeagentix_refiner_fallbacks_total",
			Help: "Refinement attempts that fell back to the secondary model.",
		},
	)
)

func init() {
	prometheus.MustRegister(ShareOps, Executions, AssistRuns, RefinerFallbacks)
}

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Outcome maps an error to an outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
