package provider

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var providerRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "weather_provider_requests_total",
		Help: "Requests sent to the weather provider by response status",
	},
	[]string{"status"},
)
