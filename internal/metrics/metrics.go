// Package metrics exposes Prometheus counters for publishing and scheduling.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder is what the dispatcher and scheduler report into.
type Recorder interface {
	RecordPublish(platform, outcome string, duration time.Duration)
	RecordSkipped(platform string)
	RecordDispatch(status string, duration time.Duration)
	RecordClaimed(count int)
}

type Collector struct {
	publishTotal    *prometheus.CounterVec
	publishLatency  *prometheus.HistogramVec
	skippedTotal    *prometheus.CounterVec
	dispatchTotal   *prometheus.CounterVec
	dispatchLatency prometheus.Histogram
	claimedTotal    prometheus.Counter
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		publishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crosspost_publish_attempts_total",
			Help: "Publish calls per platform and outcome.",
		}, []string{"platform", "outcome"}),
		publishLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crosspost_publish_latency_seconds",
			Help:    "Latency of a single platform publish call.",
			Buckets: prometheus.DefBuckets,
		}, []string{"platform"}),
		skippedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crosspost_accounts_skipped_total",
			Help: "Target accounts left out of a dispatch.",
		}, []string{"platform"}),
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crosspost_dispatches_total",
			Help: "Completed dispatches by terminal status.",
		}, []string{"status"}),
		dispatchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "crosspost_dispatch_latency_seconds",
			Help:    "Time from claim to terminal status for a post.",
			Buckets: prometheus.DefBuckets,
		}),
		claimedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crosspost_scheduler_claimed_total",
			Help: "Scheduled posts claimed by the scheduler.",
		}),
	}

	reg.MustRegister(
		c.publishTotal,
		c.publishLatency,
		c.skippedTotal,
		c.dispatchTotal,
		c.dispatchLatency,
		c.claimedTotal,
	)
	return c
}

func (c *Collector) RecordPublish(platform, outcome string, duration time.Duration) {
	c.publishTotal.WithLabelValues(platform, outcome).Inc()
	c.publishLatency.WithLabelValues(platform).Observe(duration.Seconds())
}

func (c *Collector) RecordSkipped(platform string) {
	c.skippedTotal.WithLabelValues(platform).Inc()
}

func (c *Collector) RecordDispatch(status string, duration time.Duration) {
	c.dispatchTotal.WithLabelValues(status).Inc()
	c.dispatchLatency.Observe(duration.Seconds())
}

func (c *Collector) RecordClaimed(count int) {
	c.claimedTotal.Add(float64(count))
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordPublish(string, string, time.Duration) {}
func (Nop) RecordSkipped(string) {}
func (Nop) RecordDispatch(string, time.Duration) {}
func (Nop) RecordClaimed(int) {}

// Handler serves the registry in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
