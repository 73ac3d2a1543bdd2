// Package metrics exposes Prometheus instrumentation for mutations, the
// event stream and notifications.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultDropped = "dropped"
)

type metrics struct {
	mutationTotal   *prometheus.CounterVec
	mutationLatency *prometheus.HistogramVec
	notifications   *prometheus.CounterVec
	chatMessages    *prometheus.CounterVec
	streams         prometheus.Gauge
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		mutationTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studio",
			Name:      "mutations_total",
			Help:      "Total number of assistant mutations by operation and result.",
		}, []string{"op", "result"}),
		mutationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "studio",
			Name:      "mutation_latency_seconds",
			Help:      "Time from starting a mutation to applying its result.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"op", "result"}),
		notifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studio",
			Name:      "notifications_total",
			Help:      "Total number of notifications shown by kind.",
		}, []string{"kind"}),
		chatMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studio",
			Name:      "chat_messages_total",
			Help:      "Total number of chat messages by sender.",
		}, []string{"sender"}),
		streams: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "studio",
			Name:      "event_streams",
			Help:      "Current number of connected event streams.",
		}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}

// ObserveMutation records a finished mutation.
func ObserveMutation(op, result string, elapsed time.Duration) {
	m := getMetrics()
	m.mutationTotal.WithLabelValues(op, result).Inc()
	m.mutationLatency.WithLabelValues(op, result).Observe(elapsed.Seconds())
}

// NotificationShown records a notification.
func NotificationShown(kind string) {
	getMetrics().notifications.WithLabelValues(kind).Inc()
}

// ChatMessage records a chat message.
func ChatMessage(sender string) {
	getMetrics().chatMessages.WithLabelValues(sender).Inc()
}

// StreamOpened records a new event stream connection.
func StreamOpened() { getMetrics().streams.Inc() }

// StreamClosed records a closed event stream connection.
func StreamClosed() { getMetrics().streams.Dec() }

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
