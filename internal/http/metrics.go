package http

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records request counts and latencies.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the request metrics and registers them with reg.
// Registering twice with the same registry reuses the existing collectors, so
// several clients can share one registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "idm_client_requests_total",
		Help: "Total number of requests sent to the identity service.",
	}, []string{"method", "status"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "idm_client_request_duration_seconds",
		Help:    "Latency of requests sent to the identity service.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	if reg == nil {
		return &Metrics{requests: requests, duration: duration}, nil
	}

	existing, err := registerCollector(reg, requests)
	if err != nil {
		return nil, err
	}

	if c, ok := existing.(*prometheus.CounterVec); ok {
		requests = c
	}

	existing, err = registerCollector(reg, duration)
	if err != nil {
		return nil, err
	}

	if h, ok := existing.(*prometheus.HistogramVec); ok {
		duration = h
	}

	return &Metrics{requests: requests, duration: duration}, nil
}

func registerCollector(reg prometheus.Registerer, collector prometheus.Collector) (prometheus.Collector, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		return are.ExistingCollector, nil
	}

	return nil, fmt.Errorf("registering metrics: %w", err)
}

// observe records one round trip. A zero status means no response arrived.
func (m *Metrics) observe(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.requests.WithLabelValues(method, statusClass(status)).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func statusClass(status int) string {
	if status <= 0 {
		return "error"
	}

	return strconv.Itoa(status/100) + "xx"
}
