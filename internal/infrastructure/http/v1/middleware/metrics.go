package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pharmapos",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method, route, and status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pharmapos",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route, and status.",
		},
		[]string{"method", "route", "status"},
	)

	salesPosted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pharmapos",
		Name:      "sales_posted_total",
		Help:      "Total sales posted successfully.",
	})

	refundsPosted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pharmapos",
		Name:      "refunds_posted_total",
		Help:      "Total refunds posted successfully.",
	})
)

// Metrics records request latency and counts per route template.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		requestDuration.WithLabelValues(c.Request.Method, route, status).
			Observe(time.Since(start).Seconds())
		requestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
	}
}

// CountSalePosted increments the sale counter. Called by the sales handler
// after a successful post.
func CountSalePosted() { salesPosted.Inc() }

// CountRefundPosted increments the refund counter.
func CountRefundPosted() { refundsPosted.Inc() }
