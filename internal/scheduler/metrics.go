package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var jobRunsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "scheduled_job_runs_total",
		Help: "Scheduled job runs by job and result",
	},
	[]string{"job", "result"},
)
