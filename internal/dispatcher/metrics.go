package dispatcher

import "github.com/prometheus/client_golang/prometheus"

var (
	processedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "progress_service",
		Subsystem: "dispatcher",
		Name:      "events_processed_total",
		Help:      "Number of inbound events fully processed, by event type.",
	}, []string{"event_type"})

	skippedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "progress_service",
		Subsystem: "dispatcher",
		Name:      "events_skipped_total",
		Help:      "Number of inbound events skipped as duplicates, by event type.",
	}, []string{"event_type"})

	failedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "progress_service",
		Subsystem: "dispatcher",
		Name:      "events_failed_total",
		Help:      "Number of inbound events whose handler returned an error.",
	}, []string{"event_type"})

	achievementCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "progress_service",
		Subsystem: "dispatcher",
		Name:      "achievements_earned_total",
		Help:      "Number of achievements created by the rule engine, by kind.",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(processedCounter, skippedCounter, failedCounter, achievementCounter)
}
