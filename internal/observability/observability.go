// Package observability defines the Prometheus metrics exported by Archivist.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archivist_webhook_deliveries_total",
			Help: "Webhook delivery attempts by event and outcome.",
		},
		[]string{"event", "outcome"},
	)

	WebhookDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archivist_webhook_delivery_seconds",
			Help:    "Webhook delivery latency by event.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"event"},
	)

	WorkflowActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archivist_workflow_actions_total",
			Help: "Workflow actions executed by action type and status.",
		},
		[]string{"action", "status"},
	)

	Classifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archivist_classifications_total",
			Help: "Classification requests by method used and review outcome.",
		},
		[]string{"method", "review"},
	)

	HTTPRequests = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archivist_http_request_seconds",
			Help:    "API request latency by route pattern and status.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	ScheduledRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archivist_scheduled_runs_total",
			Help: "Scheduled trigger evaluations by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		WebhookDeliveries,
		WebhookDuration,
		WorkflowActions,
		Classifications,
		ScheduledRuns,
		HTTPRequests,
	)
}

// ObserveRequest records one API request. Requests that matched no route
// share the "unmatched" label.
func ObserveRequest(method, pattern string, status int, elapsed time.Duration) {
	route := pattern
	if route == "" {
		route = "unmatched"
	}
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
