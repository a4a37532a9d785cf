// Package metrics exposes Prometheus counters for the vote ledger and the
// HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stackit"

// Vote outcomes recorded in stackit_votes_total
const (
	ResultApplied   = "applied"
	ResultConflict  = "conflict"
	ResultNotFound  = "not_found"
	ResultDenied    = "denied"
	ResultTransient = "transient"
	ResultError     = "error"
)

// Metrics owns its registry so tests and multiple servers never collide on
// the global one.
type Metrics struct {
	registry *prometheus.Registry

	votesTotal      *prometheus.CounterVec
	voteRetries     prometheus.Counter
	voteDuration    prometheus.Histogram
	acceptsTotal    *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	liveSubscribers prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		votesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_total",
			Help:      "Vote operations by result.",
		}, []string{"result"}),
		voteRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vote_retries_total",
			Help:      "Vote transactions restarted after a conflict.",
		}),
		voteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vote_duration_seconds",
			Help:      "Latency of vote operations including retries.",
			Buckets:   prometheus.DefBuckets,
		}),
		acceptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accepts_total",
			Help:      "Accept answer operations by result.",
		}, []string{"result"}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		liveSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_subscribers",
			Help:      "Open live query subscriptions.",
		}),
	}

	m.registry.MustRegister(
		m.votesTotal,
		m.voteRetries,
		m.voteDuration,
		m.acceptsTotal,
		m.requestsTotal,
		m.requestDuration,
		m.liveSubscribers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry all collectors are registered with
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveVote records one finished vote operation
func (m *Metrics) ObserveVote(result string, started time.Time) {
	if m == nil {
		return
	}
	m.votesTotal.WithLabelValues(result).Inc()
	m.voteDuration.Observe(time.Since(started).Seconds())
}

// VoteRetried counts one restarted vote transaction
func (m *Metrics) VoteRetried() {
	if m == nil {
		return
	}
	m.voteRetries.Inc()
}

// ObserveAccept records one finished accept operation
func (m *Metrics) ObserveAccept(result string) {
	if m == nil {
		return
	}
	m.acceptsTotal.WithLabelValues(result).Inc()
}

// SubscriberAdded and SubscriberRemoved track open live subscriptions
func (m *Metrics) SubscriberAdded() {
	if m == nil {
		return
	}
	m.liveSubscribers.Inc()
}

func (m *Metrics) SubscriberRemoved() {
	if m == nil {
		return
	}
	m.liveSubscribers.Dec()
}

// GinMiddleware records request counts and latency by route template
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
