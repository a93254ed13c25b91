// Package metrics records management API calls as Prometheus metrics
package metrics

import (
	"context"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/wrale/devicecode/pkg/rest"
)

// Recorder implements rest.Observer
type Recorder struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ rest.Observer = (*Recorder)(nil)

// NewRecorder creates a recorder with its own registry
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devicecode_requests_total",
				Help: "Management API calls by path and HTTP status (0 when no response was received)",
			},
			[]string{"path", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "devicecode_request_duration_seconds",
				Help:    "Duration of management API calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path"},
		),
	}
	r.registry.MustRegister(r.requests, r.duration)
	return r
}

// ObserveRequest implements rest.Observer
func (r *Recorder) ObserveRequest(info rest.RequestInfo) {
	r.requests.WithLabelValues(info.Path, strconv.Itoa(info.StatusCode)).Inc()
	r.duration.WithLabelValues(info.Path).Observe(info.Duration.Seconds())
}

// Registry exposes the collectors, e.g. for tests or an HTTP handler
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Push sends the collected metrics to a Pushgateway under job
func (r *Recorder) Push(ctx context.Context, gatewayURL, job string) error {
	if err := push.New(gatewayURL, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics: %w", err)
	}
	return nil
}
