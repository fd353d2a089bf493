package storage

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StatementsTotal counts executed statements by operation, table and outcome.
	StatementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entorm_statements_total",
			Help: "Total number of SQL statements executed",
		},
		[]string{"operation", "table", "status"},
	)
	// StatementDuration is the latency of executed statements.
	StatementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "entorm_statement_duration_seconds",
			Help:    "SQL statement latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

func observeStatement(op, table string, err error, elapsed time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	StatementsTotal.WithLabelValues(op, table, status).Inc()
	StatementDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}
