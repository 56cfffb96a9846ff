// Package metrics collects and exposes Prometheus metrics for the story
// board.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector registers and records the board's metrics against a single
// registry.
type Collector struct {
	registry *prometheus.Registry

	requests         *prometheus.CounterVec
	requestLatency   prometheus.Histogram
	storiesSubmitted prometheus.Counter
	votes            prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics on the given
// registry.
func NewCollector(registry *prometheus.Registry) *Collector {
	c := &Collector{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storywall_http_requests_total",
			Help: "HTTP requests served, by path and status code.",
		}, []string{"path", "status"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "storywall_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		storiesSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storywall_stories_submitted_total",
			Help: "Stories accepted and stored.",
		}),
		votes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storywall_votes_total",
			Help: "Votes recorded.",
		}),
	}

	registry.MustRegister(c.requests, c.requestLatency, c.storiesSubmitted, c.votes)

	return c
}

func (c *Collector) RecordRequest(path string, status int) {
	c.requests.WithLabelValues(path, strconv.Itoa(status)).Inc()
}

func (c *Collector) RecordLatency(d time.Duration) {
	c.requestLatency.Observe(d.Seconds())
}

func (c *Collector) RecordStorySubmitted() {
	c.storiesSubmitted.Inc()
}

func (c *Collector) RecordVote() {
	c.votes.Inc()
}

// Handler exposes the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
