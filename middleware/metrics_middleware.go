package middleware

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"

	"host-bridge/message"
)

// Metrics holds the collectors updated by MetricsMiddleware.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the call collectors and registers them with reg.
// Collectors already registered under the same names are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hostbridge",
		Name:      "calls_total",
		Help:      "Method calls by channel, method and outcome.",
	}, []string{"channel", "method", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hostbridge",
		Name:      "call_duration_seconds",
		Help:      "Method call latency.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
	}, []string{"channel", "method"})

	var err error
	if calls, err = register(reg, calls); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	return &Metrics{calls: calls, duration: duration}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, errors.Wrap(err, "register metrics collector")
	}
	return c, nil
}

// MetricsMiddleware counts calls and observes their latency.
func MetricsMiddleware(m *Metrics) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, call *message.MethodCall) *message.MethodResult {
			start := time.Now()
			res := next(ctx, call)
			m.duration.WithLabelValues(call.Channel, call.Method).Observe(time.Since(start).Seconds())
			m.calls.WithLabelValues(call.Channel, call.Method, res.Status.String()).Inc()
			return res
		}
	}
}
