package tasks

import "github.com/prometheus/client_golang/prometheus"

// ProcessedTotal counts handled tasks by type and outcome.
var ProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tasks_processed_total",
		Help: "Total background tasks processed grouped by status",
	},
	[]string{"type", "status"},
)

func init() {
	prometheus.MustRegister(ProcessedTotal)
}
