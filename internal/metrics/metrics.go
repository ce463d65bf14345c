// Package metrics wraps the Prometheus collectors for sync, matching and
// HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Match outcomes
const (
	OutcomeMatched   = "matched"
	OutcomeUnchanged = "unchanged"
	OutcomeSkipped   = "skipped" // flagged or no track
	OutcomeFailed    = "failed"
)

// Collector holds the service metrics on a private registry
type Collector struct {
	registry *prometheus.Registry

	syncRuns        *prometheus.CounterVec
	syncDuration    prometheus.Histogram
	activityResults *prometheus.CounterVec
	matchDuration   prometheus.Histogram
	deletions       prometheus.Counter

	graphEdges   prometheus.Gauge
	graphLengthM prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

// NewCollector creates and registers all collectors
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "streetscore"
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.syncRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Sync runs by result",
		},
		[]string{"result"},
	)
	c.syncDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "duration_seconds",
		Help:      "Wall time of a sync run",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
	})
	c.activityResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "activities_total",
			Help:      "Activities processed by outcome",
		},
		[]string{"outcome"},
	)
	c.matchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "matcher",
		Name:      "duration_seconds",
		Help:      "Time to match one track against the street graph",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})
	c.deletions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "deletions_total",
		Help:      "Activities soft-deleted because they left the source snapshot",
	})

	c.graphEdges = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "graph",
		Name:      "edges",
		Help:      "Street segments in the loaded graph",
	})
	c.graphLengthM = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "graph",
		Name:      "length_meters",
		Help:      "Total length of the loaded graph",
	})

	c.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)
	c.httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	c.registry.MustRegister(
		c.syncRuns, c.syncDuration, c.activityResults, c.matchDuration, c.deletions,
		c.graphEdges, c.graphLengthM,
		c.httpRequests, c.httpLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the Prometheus registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordSync records the end of a sync run
func (c *Collector) RecordSync(duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	c.syncRuns.WithLabelValues(result).Inc()
	c.syncDuration.Observe(duration.Seconds())
}

// RecordActivity counts one activity outcome
func (c *Collector) RecordActivity(outcome string) {
	c.activityResults.WithLabelValues(outcome).Inc()
}

// RecordMatch observes the time spent matching one track
func (c *Collector) RecordMatch(duration time.Duration) {
	c.matchDuration.Observe(duration.Seconds())
}

// RecordDeletions counts soft-deleted activities
func (c *Collector) RecordDeletions(n int) {
	c.deletions.Add(float64(n))
}

// SetGraph publishes the size of the loaded graph
func (c *Collector) SetGraph(edges int, lengthM float64) {
	c.graphEdges.Set(float64(edges))
	c.graphLengthM.Set(lengthM)
}

// RecordRequest records one served HTTP request
func (c *Collector) RecordRequest(method, route string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}
