package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hvac_scheduler_cycles_total",
		Help: "Total number of prediction cycles started.",
	})
	cyclesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hvac_scheduler_cycles_failed_total",
		Help: "Total number of prediction cycles that failed in the pipeline.",
	})
	rowsPredicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hvac_scheduler_rows_predicted_total",
		Help: "Total number of cabin rows produced by the pipeline.",
	})
	rowsAppended = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hvac_scheduler_rows_appended_total",
		Help: "Total number of rows appended to the result table.",
	})
	appendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hvac_scheduler_append_failures_total",
		Help: "Total number of failed append attempts.",
	})
	pendingRows = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hvac_scheduler_pending_rows",
		Help: "Rows computed but not yet appended to the result table.",
	})
	sinkFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hvac_scheduler_sink_failures_total",
		Help: "Total number of failed publishes per sink.",
	}, []string{"sink"})
	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hvac_scheduler_cycle_duration_seconds",
		Help:    "Duration of a full prediction cycle.",
		Buckets: []float64{0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0},
	})
)
