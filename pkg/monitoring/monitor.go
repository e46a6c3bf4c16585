package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// 评分流程
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coding_steps_submissions_total",
			Help: "Submissions by task type and outcome",
		},
		[]string{"type", "outcome"},
	)

	GradingDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coding_steps_grading_decisions_total",
			Help: "Administrator grading decisions",
		},
		[]string{"passed"},
	)

	GradingLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "coding_steps_grading_latency_seconds",
			Help:    "Time between a submission and its grading decision",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 1800, 3600},
		},
	)

	PendingSubmissions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "coding_steps_pending_submissions",
			Help: "Records waiting for an administrator decision, as of the last queue listing",
		},
	)

	VersionConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "coding_steps_version_conflicts_total",
			Help: "Optimistic concurrency conflicts on user task records",
		},
	)

	registerOnce sync.Once
)

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			SubmissionsTotal,
			GradingDecisionsTotal,
			GradingLatency,
			PendingSubmissions,
			VersionConflictsTotal,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
