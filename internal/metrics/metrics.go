// Package metrics exposes the Prometheus collectors shared by the API and the
// stream consumers.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EntriesPublished  *prometheus.CounterVec
	EntriesProcessed  *prometheus.CounterVec
	DeadLettered      *prometheus.CounterVec
	BatchDuration     *prometheus.HistogramVec
	ReceiptsApplied   *prometheus.CounterVec
	VendorSends       *prometheus.CounterVec
	CampaignsFinished prometheus.Counter
	HTTPRequests      *prometheus.CounterVec
}

// Get returns the process-wide collectors, registering them on first use
var Get = sync.OnceValue(func() *Metrics {
	return &Metrics{
		EntriesPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xeno",
			Subsystem: "stream",
			Name:      "entries_published_total",
			Help:      "Entries appended to a stream, by stream and event.",
		}, []string{"stream", "event"}),
		EntriesProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xeno",
			Subsystem: "stream",
			Name:      "entries_processed_total",
			Help:      "Entries handled by a consumer group, by stream, group and outcome.",
		}, []string{"stream", "group", "outcome"}),
		DeadLettered: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xeno",
			Subsystem: "stream",
			Name:      "entries_dead_lettered_total",
			Help:      "Entries moved to the dead-letter sink after exhausting deliveries.",
		}, []string{"stream", "group"}),
		BatchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "xeno",
			Subsystem: "stream",
			Name:      "batch_duration_seconds",
			Help:      "Time spent processing one batch read from a stream.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stream"}),
		ReceiptsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xeno",
			Subsystem: "delivery",
			Name:      "receipts_applied_total",
			Help:      "Delivery receipts reconciled into communication logs, by status.",
		}, []string{"status"}),
		VendorSends: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xeno",
			Subsystem: "vendor",
			Name:      "sends_total",
			Help:      "Simulated vendor sends, by reported outcome.",
		}, []string{"outcome"}),
		CampaignsFinished: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "xeno",
			Subsystem: "delivery",
			Name:      "campaigns_finished_total",
			Help:      "Campaigns transitioned to DONE.",
		}),
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xeno",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by route, method and status code.",
		}, []string{"route", "method", "code"}),
	}
})
