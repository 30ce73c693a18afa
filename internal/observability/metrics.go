package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	workoutLoggedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "progress_service",
		Subsystem: "persistence",
		Name:      "last_workout_logged_timestamp_seconds",
		Help:      "Unix timestamp of the most recent workout log written to Postgres.",
	})
	metricRecordedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "progress_service",
		Subsystem: "persistence",
		Name:      "last_metric_recorded_timestamp_seconds",
		Help:      "Unix timestamp of the most recent body metric written to Postgres.",
	})
)

func init() {
	prometheus.MustRegister(workoutLoggedGauge, metricRecordedGauge)
}

// RecordWorkoutLogged updates the workout persistence watermark gauge.
func RecordWorkoutLogged(ts time.Time) {
	if ts.IsZero() {
		return
	}
	workoutLoggedGauge.Set(float64(ts.Unix()))
}

// RecordMetricRecorded updates the metric persistence watermark gauge.
func RecordMetricRecorded(ts time.Time) {
	if ts.IsZero() {
		return
	}
	metricRecordedGauge.Set(float64(ts.Unix()))
}
