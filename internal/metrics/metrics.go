package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

var (
	reportRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "store_monitor",
			Name:      "report_runs_total",
			Help:      "Report runs handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	reportRunSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "store_monitor",
			Name:      "report_run_seconds",
			Help:      "Duration of a full report run in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		},
	)

	locationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "store_monitor",
			Name:      "report_locations_total",
			Help:      "Locations processed by report runs, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	lowConfidenceNowTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "store_monitor",
			Name:      "reference_time_fallback_total",
			Help:      "Report runs whose reference time fell back to the wall clock.",
		},
	)
)

// Register attaches the collectors to the supplied Prometheus registerer
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		reportRunsTotal,
		reportRunSeconds,
		locationsTotal,
		lowConfidenceNowTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveRun records a report run duration and outcome
func ObserveRun(duration time.Duration, outcome string) {
	if outcome != OutcomeError {
		outcome = OutcomeSuccess
	}
	reportRunsTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	reportRunSeconds.Observe(duration.Seconds())
}

// ObserveLocations records how many locations succeeded and failed in a run
func ObserveLocations(succeeded, failed int) {
	locationsTotal.WithLabelValues(OutcomeSuccess).Add(float64(succeeded))
	locationsTotal.WithLabelValues(OutcomeError).Add(float64(failed))
}

// ObserveReferenceFallback counts a run that had no observations to anchor "now"
func ObserveReferenceFallback() {
	lowConfidenceNowTotal.Inc()
}
