package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var rowsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "hvac_api_rows_submitted_total",
	Help: "Rows appended to the result table through the API.",
})
