package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Access decision metrics
	AccessDecisions *prometheus.CounterVec

	// Messaging metrics
	MessagesSent        prometheus.Counter
	ReadReceiptsStamped prometheus.Counter
	ConversationsOpened prometheus.Counter

	// Subscription metrics
	SubscriptionsWritten *prometheus.CounterVec

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
}

var metrics *Metrics

// Init initializes all Prometheus metrics
func Init() *Metrics {
	if metrics != nil {
		return metrics
	}

	metrics = &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being served",
			},
		),
		AccessDecisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "access_decisions_total",
				Help: "Access evaluator decisions by rule and outcome",
			},
			[]string{"rule", "outcome"},
		),
		MessagesSent: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "direct_messages_sent_total",
				Help: "Total number of direct messages sent",
			},
		),
		ReadReceiptsStamped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "read_receipts_stamped_total",
				Help: "Total number of messages transitioned to read",
			},
		),
		ConversationsOpened: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "conversations_opened_total",
				Help: "Total number of conversations created",
			},
		),
		SubscriptionsWritten: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subscriptions_written_total",
				Help: "Subscription ledger writes by action",
			},
			[]string{"action"},
		),
		CacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Cache hits by cache name",
			},
			[]string{"cache"},
		),
		CacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Cache misses by cache name",
			},
			[]string{"cache"},
		),
		DBConnectionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
	}

	return metrics
}

// Get returns the initialized metrics, or nil before Init
func Get() *Metrics {
	return metrics
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordDBPoolStats sets the database pool gauges
func RecordDBPoolStats(active, idle int32) {
	if metrics == nil {
		return
	}
	metrics.DBConnectionsActive.Set(float64(active))
	metrics.DBConnectionsIdle.Set(float64(idle))
}

// RecordAccessDecision counts an evaluator decision. Safe to call before
// Init (tests exercise the evaluator without metrics).
func RecordAccessDecision(rule string, allowed bool) {
	if metrics == nil {
		return
	}
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	metrics.AccessDecisions.WithLabelValues(rule, outcome).Inc()
}

// RecordMessageSent counts a delivered direct message
func RecordMessageSent() {
	if metrics == nil {
		return
	}
	metrics.MessagesSent.Inc()
}

// RecordReadReceipts counts messages stamped read
func RecordReadReceipts(n int64) {
	if metrics == nil || n <= 0 {
		return
	}
	metrics.ReadReceiptsStamped.Add(float64(n))
}

// RecordConversationOpened counts a newly created conversation
func RecordConversationOpened() {
	if metrics == nil {
		return
	}
	metrics.ConversationsOpened.Inc()
}

// RecordSubscriptionWrite counts a ledger write by action
func RecordSubscriptionWrite(action string) {
	if metrics == nil {
		return
	}
	metrics.SubscriptionsWritten.WithLabelValues(action).Inc()
}

// RecordCacheHit counts a cache hit
func RecordCacheHit(cache string) {
	if metrics == nil {
		return
	}
	metrics.CacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss counts a cache miss
func RecordCacheMiss(cache string) {
	if metrics == nil {
		return
	}
	metrics.CacheMisses.WithLabelValues(cache).Inc()
}

// MetricsMiddleware records HTTP metrics for each request
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}

		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		metrics.HTTPRequestsInFlight.Inc()
		c.Next()
		metrics.HTTPRequestsInFlight.Dec()

		status := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
