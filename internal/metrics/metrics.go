package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	emailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cadence_emails_sent_total",
			Help: "Total number of emails dispatched successfully",
		},
		[]string{"type"},
	)

	emailFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cadence_email_failures_total",
			Help: "Total number of failed dispatch attempts",
		},
		[]string{"type"},
	)

	generationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cadence_generation_total",
			Help: "Total number of content generation attempts by outcome",
		},
		[]string{"outcome"},
	)

	sweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cadence_sweep_duration_seconds",
			Help:    "Duration of processor and generator sweeps",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sweep"},
	)

	leadsReplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cadence_leads_replied_total",
			Help: "Total number of leads marked as replied",
		},
	)

	leadsBounced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cadence_leads_bounced_total",
			Help: "Total number of leads marked as bounced",
		},
	)
)

func RecordEmailSent(actionType string) { emailsSent.WithLabelValues(actionType).Inc() }

func RecordEmailFailure(actionType string) { emailFailures.WithLabelValues(actionType).Inc() }

func RecordGeneration(outcome string) { generationOutcomes.WithLabelValues(outcome).Inc() }

func RecordLeadReplied() { leadsReplied.Inc() }

func RecordLeadBounced() { leadsBounced.Inc() }

func ObserveSweep(sweep string, start time.Time) {
	sweepDuration.WithLabelValues(sweep).Observe(time.Since(start).Seconds())
}
