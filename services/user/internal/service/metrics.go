package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var loginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "user_logins_total",
		Help: "Login attempts by outcome",
	},
	[]string{"result"},
)
