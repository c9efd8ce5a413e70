package otel

import (
	"context"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	eduAuth "github.com/MrEthical07/eduAuth"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot eduAuth.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() eduAuth.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := eduAuth.MetricsSnapshot{
		Counters:   make(map[eduAuth.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[eduAuth.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		out.Histograms[k] = append([]uint64(nil), buckets...)
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func newReaderMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func TestExporterCollectsCountersAndBuckets(t *testing.T) {
	reader, provider := newReaderMeter()
	src := &fakeSource{
		snapshot: eduAuth.MetricsSnapshot{
			Counters: map[eduAuth.MetricID]uint64{eduAuth.MetricOTPVerifySuccess: 3},
			Histograms: map[eduAuth.MetricID][]uint64{
				eduAuth.MetricAuthenticateLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewExporterFromSource(provider.Meter("eduauth-test"), src)
	if err != nil {
		t.Fatalf("new exporter: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	m, ok := findMetric(rm, "eduauth_otp_verify_success_total")
	if !ok {
		t.Fatal("expected otp verify counter")
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 3 {
		t.Fatalf("unexpected counter data %+v", m.Data)
	}

	m, ok = findMetric(rm, "eduauth_authenticate_latency_seconds_bucket")
	if !ok {
		t.Fatal("expected bucket gauge")
	}
	gauge, ok := m.Data.(metricdata.Gauge[int64])
	if !ok || len(gauge.DataPoints) != 8 {
		t.Fatalf("expected eight bucket points, got %+v", m.Data)
	}
	for _, dp := range gauge.DataPoints {
		if le, _ := dp.Attributes.Value(attribute.Key("le")); le.AsString() == "+Inf" && dp.Value != 8 {
			t.Fatalf("expected +Inf bucket 8, got %d", dp.Value)
		}
	}

	if _, ok := findMetric(rm, "eduauth_audit_dropped_total"); !ok {
		t.Fatal("expected audit dropped counter")
	}
}

func TestExporterRejectsNilInputs(t *testing.T) {
	_, provider := newReaderMeter()

	if _, err := NewExporterFromSource(provider.Meter("eduauth-test"), nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewExporterFromSource(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
	if _, err := NewExporter(provider.Meter("eduauth-test"), nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource for nil engine, got %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newReaderMeter()
	src := &fakeSource{
		snapshot: eduAuth.MetricsSnapshot{
			Counters:   map[eduAuth.MetricID]uint64{eduAuth.MetricLoginOTPSent: 1},
			Histograms: map[eduAuth.MetricID][]uint64{},
		},
	}

	exp, err := NewExporterFromSource(provider.Meter("eduauth-test"), src)
	if err != nil {
		t.Fatalf("new exporter: %v", err)
	}
	defer exp.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[eduAuth.MetricLoginOTPSent] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
