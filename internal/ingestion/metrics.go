package ingestion

import "github.com/prometheus/client_golang/prometheus"

const (
	MetricFilesTotal   = "files_total"
	MetricRowsAppended = "rows_appended_total"
	MetricRunsTotal    = "runs_total"
)

var CounterFiles = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "salesingest",
		Name:      MetricFilesTotal,
		Help:      "Source files seen by ingestion runs, by outcome.",
	},
	[]string{"status"},
)

var CounterRowsAppended = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "salesingest",
		Name:      MetricRowsAppended,
		Help:      "Rows appended to the warehouse.",
	},
)

var CounterRuns = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "salesingest",
		Name:      MetricRunsTotal,
		Help:      "Ingestion runs, by result.",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(CounterFiles)
	prometheus.MustRegister(CounterRowsAppended)
	prometheus.MustRegister(CounterRuns)
}
