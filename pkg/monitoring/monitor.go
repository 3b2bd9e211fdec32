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
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	AttemptsIngested = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_attempts_ingested_total",
			Help: "Quiz attempts folded into learning progress",
		},
	)

	// ProgressConflicts outcome: retried / exhausted
	ProgressConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_update_conflicts_total",
			Help: "Optimistic concurrency conflicts on learning progress writes",
		},
		[]string{"outcome"},
	)

	// RecommendationRequests source: generated / cache / fallback / empty / error
	RecommendationRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_requests_total",
			Help: "Study recommendation requests by result source",
		},
		[]string{"source"},
	)

	DailyGoalsClosed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "daily_goals_closed_total",
			Help: "Daily goals marked completed by the nightly job",
		},
	)

	// AssistantRequests operation: chat / flashcards / summarize / explain / concepts
	AssistantRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_requests_total",
			Help: "Study assistant requests by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			AttemptsIngested,
			ProgressConflicts,
			RecommendationRequests,
			DailyGoalsClosed,
			AssistantRequests,
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
