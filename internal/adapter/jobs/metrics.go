package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var jobsHandled = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "order_jobs_handled_total",
		Help: "Order jobs run by consumers, by outcome",
	},
	[]string{"job", "outcome"},
)
