package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clay_http_requests_total",
		Help: "Total HTTP requests by method, route and response status.",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clay_http_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	webhookDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clay_webhook_deliveries_total",
		Help: "Webhook delivery attempts by result.",
	}, []string{"status"})

	healthChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clay_health_checks_total",
		Help: "Dependency health probes by dependency and result.",
	}, []string{"dependency", "status"})

	rateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clay_rate_limited_total",
		Help: "Requests rejected by the per-client rate limiter.",
	})
)

// PrometheusMiddleware records per-request metrics keyed by route template.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// MetricsHandler serves the Prometheus registry.
func MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// RecordWebhookDelivery is a webhooks.MetricsRecorder.
func RecordWebhookDelivery(success bool) {
	if success {
		webhookDeliveriesTotal.WithLabelValues("success").Inc()
	} else {
		webhookDeliveriesTotal.WithLabelValues("failure").Inc()
	}
}

// RecordHealthCheck is a health.MetricsRecordFunc.
func RecordHealthCheck(dependency string, success bool) {
	status := "failure"
	if success {
		status = "success"
	}
	healthChecksTotal.WithLabelValues(dependency, status).Inc()
}
