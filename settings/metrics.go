package settings

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics instruments the settings pipeline. A nil *Metrics records nothing.
type Metrics struct {
	loadsTotal         metric.Int64Counter     // Initialize outcomes
	validationFailures metric.Int64Counter     // failed constraints
	workerRequests     metric.Int64Counter     // requests served by the primary
	repliesDropped     metric.Int64Counter     // replies not delivered
	handshakeDuration  metric.Float64Histogram // worker wait time
}

// NewMetrics registers the instruments on meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.loadsTotal, err = meter.Int64Counter(
		"settings_loads_total",
		metric.WithDescription("Total number of settings initializations"),
		metric.WithUnit("{load}"),
	)
	if err != nil {
		return nil, err
	}

	m.validationFailures, err = meter.Int64Counter(
		"settings_validation_failures_total",
		metric.WithDescription("Total number of failed settings constraints"),
		metric.WithUnit("{constraint}"),
	)
	if err != nil {
		return nil, err
	}

	m.workerRequests, err = meter.Int64Counter(
		"settings_worker_requests_total",
		metric.WithDescription("Total number of settings requests received from workers"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.repliesDropped, err = meter.Int64Counter(
		"settings_replies_dropped_total",
		metric.WithDescription("Total number of settings replies that could not be delivered"),
		metric.WithUnit("{reply}"),
	)
	if err != nil {
		return nil, err
	}

	m.handshakeDuration, err = meter.Float64Histogram(
		"settings_handshake_duration_seconds",
		metric.WithDescription("Worker settings handshake duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) recordLoad(ctx context.Context, role Role, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.loadsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("result", result),
		attribute.String("role", role.String()),
	))
}

func (m *Metrics) recordValidationFailures(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.validationFailures.Add(ctx, int64(n))
}

func (m *Metrics) recordWorkerRequest(ctx context.Context) {
	if m == nil {
		return
	}
	m.workerRequests.Add(ctx, 1)
}

func (m *Metrics) recordReplyDropped(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.repliesDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) recordHandshake(ctx context.Context, d time.Duration, state HandshakeState) {
	if m == nil {
		return
	}
	m.handshakeDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("state", state.String())))
}
