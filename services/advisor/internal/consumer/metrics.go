package consumer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "advisor_user_events_total",
		Help: "User lifecycle events consumed, by topic and outcome",
	},
	[]string{"topic", "result"},
)
