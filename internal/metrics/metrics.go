package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ClaimDuration tracks the latency of reward claims by outcome.
	ClaimDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rewards_claim_duration_seconds",
			Help:    "Duration of reward claim requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		},
		[]string{"result"}, // claimed, already_claimed, budget_exhausted, not_eligible, task_inactive, error
	)

	// EventsIngested counts ingested progress events by source and outcome.
	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewards_events_ingested_total",
			Help: "Number of progress events ingested",
		},
		[]string{"source", "result"}, // applied, duplicate, error
	)

	// ProgressExpired counts progress records expired by the sweeper.
	ProgressExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rewards_progress_expired_total",
			Help: "Number of progress records expired by the lifecycle sweeper",
		},
	)

	// PayoutFailures counts wallet credit dispatches that failed and
	// were left for out-of-band retry.
	PayoutFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rewards_payout_failures_total",
			Help: "Number of wallet credit dispatches that failed after a committed claim",
		},
	)
)

// RecordClaimDuration records the duration of a claim request.
func RecordClaimDuration(result string, seconds float64) {
	ClaimDuration.WithLabelValues(result).Observe(seconds)
}

// RecordEventIngested records one ingested event.
func RecordEventIngested(source, result string) {
	EventsIngested.WithLabelValues(source, result).Inc()
}
