package observe

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestCommandFinished(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.CommandFinished(ctx, "fee", "success")
	m.CommandFinished(ctx, "fee", "success")
	m.CommandFinished(ctx, "hr", "failed")

	rm := collect(t, reader)
	met := findMetric(rm, "steward.commands.total")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}

	for _, dp := range sum.DataPoints {
		agent, _ := dp.Attributes.Value(attribute.Key("agent"))
		status, _ := dp.Attributes.Value(attribute.Key("status"))
		switch agent.AsString() + "/" + status.AsString() {
		case "fee/success":
			if dp.Value != 2 {
				t.Errorf("fee/success = %d, want 2", dp.Value)
			}
		case "hr/failed":
			if dp.Value != 1 {
				t.Errorf("hr/failed = %d, want 1", dp.Value)
			}
		default:
			t.Errorf("unexpected data point %s/%s", agent.AsString(), status.AsString())
		}
	}
}

func TestProviderCall(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ProviderCall(ctx, "openai", true, 120*time.Millisecond)
	m.ProviderCall(ctx, "", false, 50*time.Millisecond)

	rm := collect(t, reader)

	counts := findMetric(rm, "steward.provider.requests")
	if counts == nil {
		t.Fatal("request counter not found")
	}
	sum := counts.Data.(metricdata.Sum[int64])
	if len(sum.DataPoints) != 2 {
		t.Fatalf("got %d data points, want 2 (ok and error)", len(sum.DataPoints))
	}
	for _, dp := range sum.DataPoints {
		provider, _ := dp.Attributes.Value(attribute.Key("provider"))
		if provider.AsString() == "" {
			t.Error("empty provider not normalized to \"none\"")
		}
	}

	dur := findMetric(rm, "steward.provider.duration")
	if dur == nil {
		t.Fatal("duration histogram not found")
	}
	hist := dur.Data.(metricdata.Histogram[float64])
	if len(hist.DataPoints) == 0 {
		t.Fatal("no duration data points")
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	// Must not panic.
	m.CommandFinished(ctx, "fee", "success")
	m.ClarificationAsked(ctx, "fee")
	m.ConfirmationProposed(ctx, "fee")
	m.ProviderCall(ctx, "openai", false, time.Second)
}
