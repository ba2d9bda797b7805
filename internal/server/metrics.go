package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// loginsTotal counts login attempts by outcome (ok, rejected, error).
var loginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dbdash_logins_total",
		Help: "Total number of API login attempts by outcome",
	},
	[]string{"outcome"},
)
