package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		reconcileRunsTotal,
		reconcileCandidatesTotal,
		gatewayStatusRequestsTotal,
	)
}

var (
	// One increment per completed run, labeled by entry point.
	// source: sweep|ingest
	reconcileRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_runs_total",
			Help: "Completed reconciliation runs by source.",
		},
		[]string{"source"},
	)

	// Per-candidate decisions by reason code (granted, already_granted,
	// not_paid, user_not_found, gateway_missing, ...).
	reconcileCandidatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_candidates_total",
			Help: "Candidate decisions by outcome.",
		},
		[]string{"outcome"},
	)

	// Gateway status API calls by result.
	// result: ok|missing|unavailable
	gatewayStatusRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_status_requests_total",
			Help: "Gateway status lookups by result.",
		},
		[]string{"result"},
	)
)

func IncReconcileRun(source string) {
	reconcileRunsTotal.WithLabelValues(norm(source)).Inc()
}

func AddCandidateOutcome(outcome string, n int) {
	reconcileCandidatesTotal.WithLabelValues(norm(outcome)).Add(float64(n))
}

func IncGatewayStatusRequest(result string) {
	gatewayStatusRequestsTotal.WithLabelValues(norm(result)).Inc()
}
