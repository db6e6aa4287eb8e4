package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	AlertsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optica_alerts_generated_total",
			Help: "Alerts inserted by the generators, by kind",
		},
		[]string{"kind"}, // ReminderAppointment|WarrantyExpiry|CampaignAnnouncement
	)

	AlertsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optica_alerts_dispatch_total",
			Help: "Dispatch attempts by channel and outcome",
		},
		[]string{"channel", "outcome"}, // Email|SMS , sent|already_sent|failed|store_error
	)

	JobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optica_jobs_total",
			Help: "Pipeline job runs by job and status",
		},
		[]string{"job", "status"}, // ok|error|skipped
	)

	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "optica_job_duration_seconds",
			Help:    "Pipeline job run duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)
)

var registerOnce sync.Once

// MustRegister registers the collectors once; serve --with-scheduler reaches it twice.
func MustRegister(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(
			AlertsGenerated,
			AlertsDispatched,
			JobsTotal,
			JobDuration,
		)
	})
}
