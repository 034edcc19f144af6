// Package metrics holds the Prometheus collectors for calculations and sky
// lookups. A CLI run is short-lived, so the registry is dumped to a
// node_exporter textfile instead of being scraped.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	calculationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hawkietc_calculations_total",
			Help: "Total number of ETC calculations by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	skyLookupDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hawkietc_sky_lookup_duration_seconds",
			Help:    "Sky background lookup duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source", "outcome"},
	)

	skyRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hawkietc_sky_retries_total",
			Help: "Total number of retried sky background lookups.",
		},
	)

	limitingMagnitude = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hawkietc_limiting_magnitude",
			Help: "Last computed limiting magnitude per filter.",
		},
		[]string{"filter"},
	)
)

func init() {
	prometheus.MustRegister(calculationsTotal)
	prometheus.MustRegister(skyLookupDurationSeconds)
	prometheus.MustRegister(skyRetriesTotal)
	prometheus.MustRegister(limitingMagnitude)
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

// RecordCalculation counts one calculation of the given operation.
func RecordCalculation(operation string, err error) {
	calculationsTotal.WithLabelValues(operation, outcome(err)).Inc()
}

// ObserveSkyLookup records the duration of one sky lookup against source.
func ObserveSkyLookup(source string, d time.Duration, err error) {
	skyLookupDurationSeconds.WithLabelValues(source, outcome(err)).Observe(d.Seconds())
}

// IncSkyRetries counts one retried sky lookup.
func IncSkyRetries() {
	skyRetriesTotal.Inc()
}

// SetLimitingMagnitude records the last limiting magnitude for filter.
func SetLimitingMagnitude(filter string, mag float64) {
	limitingMagnitude.WithLabelValues(filter).Set(mag)
}

// WriteTextfile writes the default registry in text exposition format to
// path, for the node_exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
