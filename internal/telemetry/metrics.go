// Package telemetry wires OpenTelemetry metrics and tracing for the
// conversion pipeline.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"pdfgate/internal/domain"
)

// Metrics records entitlement and conversion outcomes. The zero value and a
// nil *Metrics are both safe to use and record nothing.
type Metrics struct {
	decisions      metric.Int64Counter
	rejections     metric.Int64Counter
	completions    metric.Int64Counter
	ledgerFailures metric.Int64Counter
	execDuration   metric.Float64Histogram
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	decisions, err := meter.Int64Counter("pdfgate.entitlement.decisions",
		metric.WithDescription("Number of entitlement decisions"),
	)
	if err != nil {
		return nil, err
	}
	rejections, err := meter.Int64Counter("pdfgate.conversion.rejections",
		metric.WithDescription("Number of rejected conversions by kind"),
	)
	if err != nil {
		return nil, err
	}
	completions, err := meter.Int64Counter("pdfgate.conversion.completions",
		metric.WithDescription("Number of completed conversions"),
	)
	if err != nil {
		return nil, err
	}
	ledgerFailures, err := meter.Int64Counter("pdfgate.ledger.failures",
		metric.WithDescription("Usage or credit writes that failed without aborting the conversion"),
	)
	if err != nil {
		return nil, err
	}
	execDuration, err := meter.Float64Histogram("pdfgate.conversion.execution.duration",
		metric.WithDescription("Duration of backend conversion calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	return &Metrics{
		decisions:      decisions,
		rejections:     rejections,
		completions:    completions,
		ledgerFailures: ledgerFailures,
		execDuration:   execDuration,
	}, nil
}

// NopMetrics returns Metrics backed by a no-op meter.
func NopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter("pdfgate"))
	return m
}

// Decision counts one entitlement decision.
func (m *Metrics) Decision(ctx context.Context, tool string, d domain.AccessDecision) {
	if m == nil || m.decisions == nil {
		return
	}
	reason := string(d.Reason)
	if !d.Allowed && reason == "" {
		reason = string(domain.KindAccessDenied)
	}
	m.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.Bool("allowed", d.Allowed),
		attribute.String("reason", reason),
		attribute.String("plan", string(d.Plan)),
	))
}

// Rejection counts one rejected conversion.
func (m *Metrics) Rejection(ctx context.Context, tool string, kind domain.ErrorKind) {
	if m == nil || m.rejections == nil {
		return
	}
	m.rejections.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("kind", string(kind)),
	))
}

// Completion counts one completed conversion.
func (m *Metrics) Completion(ctx context.Context, tool string) {
	if m == nil || m.completions == nil {
		return
	}
	m.completions.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", tool)))
}

// LedgerFailure counts a non-fatal usage or credit write failure.
func (m *Metrics) LedgerFailure(ctx context.Context, op string) {
	if m == nil || m.ledgerFailures == nil {
		return
	}
	m.ledgerFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

// Execution records the duration of one backend call.
func (m *Metrics) Execution(ctx context.Context, tool string, elapsed time.Duration, ok bool) {
	if m == nil || m.execDuration == nil {
		return
	}
	m.execDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.Bool("ok", ok),
	))
}
