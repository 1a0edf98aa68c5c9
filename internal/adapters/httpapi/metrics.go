package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry         *prometheus.Registry
	signRequests     *prometheus.CounterVec
	signDuration     prometheus.Histogram
	challengesIssued *prometheus.CounterVec
	sessionsOpened   *prometheus.CounterVec
	handler          http.Handler
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		signRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "walletd_sign_requests_total",
			Help: "Sign requests by result.",
		}, []string{"result"}),
		signDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "walletd_sign_duration_seconds",
			Help:    "Time to decode the session, derive the key and sign.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		challengesIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "walletd_challenges_issued_total",
			Help: "Challenges issued by kind.",
		}, []string{"kind"}),
		sessionsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "walletd_sessions_opened_total",
			Help: "Session cookies issued by ceremony.",
		}, []string{"ceremony"}),
	}
	m.registry.MustRegister(
		m.signRequests,
		m.signDuration,
		m.challengesIssued,
		m.sessionsOpened,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
	return m
}
