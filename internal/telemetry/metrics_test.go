package telemetry

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"pdfgate/internal/domain"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s is %T, want Sum[int64]", name, m.Data)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestMetricsCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.Decision(ctx, "dwg_to_pdf", domain.Deny(domain.PlanFree, domain.ReasonPlanRequired))
	m.Decision(ctx, "compress", domain.Allow(domain.PlanPro))
	m.Rejection(ctx, "dwg_to_pdf", domain.KindPlanRequired)
	m.Completion(ctx, "compress")
	m.LedgerFailure(ctx, "record_usage")
	m.Execution(ctx, "compress", 1500*time.Millisecond, true)

	if got := sumOf(t, reader, "pdfgate.entitlement.decisions"); got != 2 {
		t.Fatalf("decisions = %d, want 2", got)
	}
	if got := sumOf(t, reader, "pdfgate.conversion.rejections"); got != 1 {
		t.Fatalf("rejections = %d, want 1", got)
	}
	if got := sumOf(t, reader, "pdfgate.conversion.completions"); got != 1 {
		t.Fatalf("completions = %d, want 1", got)
	}
	if got := sumOf(t, reader, "pdfgate.ledger.failures"); got != 1 {
		t.Fatalf("ledger failures = %d, want 1", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.Decision(ctx, "x", domain.Allow(domain.PlanFree))
	m.Rejection(ctx, "x", domain.KindNoCredits)
	m.Completion(ctx, "x")
	m.LedgerFailure(ctx, "x")
	m.Execution(ctx, "x", time.Second, false)
	NopMetrics().Completion(ctx, "x")
}

func TestSetupWithoutEndpoint(t *testing.T) {
	p, err := Setup(context.Background(), "")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if p.Tracer() == nil {
		t.Fatalf("expected tracer")
	}
	if _, err := p.Metrics(); err != nil {
		t.Fatalf("Metrics: %v", err)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
