package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	riskAnalysis = "risk_analysis_client"

	// Channel metrics
	channelEventsTotal     = "channel_events_total"
	channelReconnectsTotal = "channel_reconnects_total"

	// Job metrics
	heartbeatFailuresTotal = "heartbeat_failures_total"
	finalizeAttemptsTotal  = "finalize_attempts_total"
	JobStatusCount         = "job_status_count"

	// Labels
	eventTypeLabel = "type"
	jobStatusLabel = "status"
)

var channelEventsTotalLabels = []string{
	eventTypeLabel,
}

var jobStatusCountLabels = []string{
	jobStatusLabel,
}

/**
* Metrics definition
**/
var channelEventsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: riskAnalysis,
		Name:      channelEventsTotal,
		Help:      "number of live channel events applied, by event type",
	},
	channelEventsTotalLabels,
)

var channelReconnectsTotalMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: riskAnalysis,
		Name:      channelReconnectsTotal,
		Help:      "number of live channel reconnect attempts",
	},
)

var heartbeatFailuresTotalMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: riskAnalysis,
		Name:      heartbeatFailuresTotal,
		Help:      "number of heartbeat sends that failed",
	},
)

var finalizeAttemptsTotalMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: riskAnalysis,
		Name:      finalizeAttemptsTotal,
		Help:      "number of result fetch attempts made by finalize",
	},
)

var jobStatusCountMetric = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Subsystem: riskAnalysis,
		Name:      JobStatusCount,
		Help:      "metrics to record the number of observed jobs in each status",
	},
	jobStatusCountLabels,
)

func IncreaseChannelEventsTotalMetric(eventType string) {
	labels := prometheus.Labels{
		eventTypeLabel: eventType,
	}
	channelEventsTotalMetric.With(labels).Inc()
}

func IncreaseChannelReconnectsTotalMetric() {
	channelReconnectsTotalMetric.Inc()
}

func IncreaseHeartbeatFailuresTotalMetric() {
	heartbeatFailuresTotalMetric.Inc()
}

func IncreaseFinalizeAttemptsTotalMetric() {
	finalizeAttemptsTotalMetric.Inc()
}

func UpdateJobStatusCountMetric(status string, count int) {
	labels := prometheus.Labels{
		jobStatusLabel: status,
	}
	jobStatusCountMetric.With(labels).Set(float64(count))
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(channelEventsTotalMetric)
	prometheus.MustRegister(channelReconnectsTotalMetric)
	prometheus.MustRegister(heartbeatFailuresTotalMetric)
	prometheus.MustRegister(finalizeAttemptsTotalMetric)
	prometheus.MustRegister(jobStatusCountMetric)
}
