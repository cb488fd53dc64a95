package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SubmissionsTotal counts phase-1 submissions by operation kind and outcome.
	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipledger_submissions_total",
		Help: "Ledger operation submissions",
	}, []string{"kind", "result"})

	// ConfirmationDuration observes the time between submission and
	// phase-2 block inclusion.
	ConfirmationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shipledger_confirmation_duration_seconds",
		Help:    "Time from submission to block confirmation",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 15, 30},
	})

	// EventsTotal counts ledger events received by kind.
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipledger_events_total",
		Help: "Contract events received",
	}, []string{"kind"})

	// EventsDeduplicated counts redelivered events skipped by hash dedup.
	EventsDeduplicated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shipledger_events_deduplicated_total",
		Help: "Contract events skipped as already applied",
	})
)
