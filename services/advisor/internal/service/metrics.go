package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var recommendationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "advisor_recommendations_total",
		Help: "Recommendations served, by whether a stored one was reused",
	},
	[]string{"cached"},
)
