// Package metrics exposes scheduling counters and latencies to prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for scheduling attempts.
const (
	OutcomeSucceeded   = "succeeded"
	OutcomeInvalid     = "invalid"
	OutcomeProvision   = "provision_failed"
	OutcomePersistence = "persist_failed"
	OutcomeDirectory   = "directory_unavailable"
	OutcomeInFlight    = "in_flight"
)

// Recorder is what the scheduler reports to.
type Recorder interface {
	RecordAttempt(outcome string)
	RecordProvisionLatency(d time.Duration)
	RecordPersistLatency(d time.Duration)
	RecordOrphanedCall()
}

type Collector struct {
	attempts         *prometheus.CounterVec
	provisionLatency prometheus.Histogram
	persistLatency   prometheus.Histogram
	orphaned         prometheus.Counter
}

// NewCollector registers the scheduling metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mentormeet_schedule_attempts_total",
			Help: "Scheduling attempts by outcome.",
		}, []string{"outcome"}),
		provisionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mentormeet_call_provision_seconds",
			Help:    "Latency of call provisioning.",
			Buckets: prometheus.DefBuckets,
		}),
		persistLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mentormeet_session_persist_seconds",
			Help:    "Latency of session persistence.",
			Buckets: prometheus.DefBuckets,
		}),
		orphaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mentormeet_orphaned_calls_total",
			Help: "Calls provisioned without a saved session.",
		}),
	}
	reg.MustRegister(c.attempts, c.provisionLatency, c.persistLatency, c.orphaned)
	return c
}

func (c *Collector) RecordAttempt(outcome string) {
	c.attempts.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordProvisionLatency(d time.Duration) {
	c.provisionLatency.Observe(d.Seconds())
}

func (c *Collector) RecordPersistLatency(d time.Duration) {
	c.persistLatency.Observe(d.Seconds())
}

func (c *Collector) RecordOrphanedCall() {
	c.orphaned.Inc()
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordAttempt(string)                 {}
func (Nop) RecordProvisionLatency(time.Duration) {}
func (Nop) RecordPersistLatency(time.Duration)   {}
func (Nop) RecordOrphanedCall()                  {}

// Handler serves the scrape endpoint for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
