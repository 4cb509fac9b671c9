package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kharcha_ledger_mutations_total",
		Help: "Ledger mutations by operation and outcome.",
	}, []string{"operation", "status"})

	commitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kharcha_ledger_commit_duration_seconds",
		Help:    "Duration of committed ledger mutations.",
		Buckets: prometheus.DefBuckets,
	})
)
