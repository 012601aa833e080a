package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AssignmentTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "locum",
		Name:      "assignment_transitions_total",
		Help:      "Assignment state transitions by origin and target status.",
	}, []string{"from", "to"})

	OffersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "locum",
		Name:      "offers_created_total",
		Help:      "PENDING assignments created for staff.",
	})

	SelectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "locum",
		Name:      "selection_rejected_total",
		Help:      "selectCandidate calls that lost against the job state.",
	}, []string{"reason"})

	ShiftEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "locum",
		Name:      "shift_events_total",
		Help:      "Check-in and check-out records written.",
	}, []string{"kind"})

	EventsBroadcast = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "locum",
		Name:      "events_broadcast_total",
		Help:      "Outbox events delivered to the live feed.",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "locum",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status code.",
	}, []string{"method", "route", "code"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "locum",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

func Transition(from, to string) {
	AssignmentTransitions.WithLabelValues(from, to).Inc()
}

// HTTPMiddleware records request counts and latency keyed by the matched route template.
func HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
