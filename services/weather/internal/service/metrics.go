package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var cacheLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "weather_cache_lookups_total",
		Help: "Forecast lookups by the layer that answered (redis, db, miss)",
	},
	[]string{"result"},
)
