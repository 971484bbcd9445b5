package handler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type RelayMetrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewRelayMetrics creates the relay collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notify_relay_requests_total",
			Help: "Webhook requests handled, by source and outcome.",
		}, []string{"source", "status"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "notify_relay_request_duration_seconds",
			Help:    "Time from receiving a webhook to answering it, including delivery to Gotify.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.Duration)
	}
	return m
}

func (m *RelayMetrics) Observe(source, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if m.Requests != nil {
		m.Requests.WithLabelValues(source, status).Inc()
	}
	if m.Duration != nil {
		m.Duration.WithLabelValues(source).Observe(elapsed.Seconds())
	}
}
