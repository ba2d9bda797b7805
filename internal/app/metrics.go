package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// statementsTotal counts statements run through the service, by outcome
	// ("ok" or the error kind).
	statementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbdash_statements_total",
			Help: "Total number of statements run, by backend, kind and outcome",
		},
		[]string{"backend", "kind", "outcome"},
	)

	statementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dbdash_statement_duration_seconds",
			Help:    "Statement latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "kind"},
	)
)
