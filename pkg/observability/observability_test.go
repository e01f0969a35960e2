package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type harness struct {
	provider *Provider
	reader   *sdkmetric.ManualReader
	spans    *tracetest.SpanRecorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	p, err := NewFromProviders(tp, mp)
	require.NoError(t, err)
	return &harness{provider: p, reader: reader, spans: spans}
}

func (h *harness) metric(t *testing.T, name string) metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, h.reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m
			}
		}
	}
	t.Fatalf("metric %s not recorded", name)
	return metricdata.Metrics{}
}

func sumByAttr(t *testing.T, m metricdata.Metrics, key attribute.Key) map[string]int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is %T", m.Name, m.Data)
	out := map[string]int64{}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(key)
		out[v.Emit()] += dp.Value
	}
	return out
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.Equal(t, "recaudit", config.ServiceName)
	require.Equal(t, "localhost:4317", config.OTLPEndpoint)
	require.Equal(t, 1.0, config.SampleRate)
	require.False(t, config.Enabled)
}

func TestNewProviderDisabled(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, p.Tracer())
	require.NotNil(t, p.Meter())

	ctx, done := p.TrackOperation(context.Background(), "noop")
	require.NotNil(t, ctx)
	done(errors.New("boom"))
	p.RecordEvaluation(ctx, true, false, time.Millisecond)
	p.RecordAudit(ctx, "COMPLIANT", "NONE")

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProviderNilConfigIsDisabled(t *testing.T) {
	p, err := New(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, p)
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestTrackOperation(t *testing.T) {
	h := newHarness(t)

	_, done := h.provider.TrackOperation(context.Background(), "audit", AttrAuditID.String("a-1"))
	done(nil)

	ended := h.spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "audit", ended[0].Name())
	assert.NotEqual(t, codes.Error, ended[0].Status().Code)

	ops := sumByAttr(t, h.metric(t, "recaudit.operations.total"), AttrOperation)
	assert.Equal(t, int64(1), ops["audit"])

	active := sumByAttr(t, h.metric(t, "recaudit.operations.active"), AttrOperation)
	assert.Equal(t, int64(0), active["audit"])
}

func TestTrackOperationWithError(t *testing.T) {
	h := newHarness(t)

	_, done := h.provider.TrackOperation(context.Background(), "evaluate")
	done(errors.New("malformed"))

	ended := h.spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "malformed", ended[0].Status().Description)

	errs := sumByAttr(t, h.metric(t, "recaudit.errors.total"), AttrOperation)
	assert.Equal(t, int64(1), errs["evaluate"])
}

func TestRecordAuditByResult(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.provider.RecordAudit(ctx, "COMPLIANT", "NONE")
	h.provider.RecordAudit(ctx, "SUBOPTIMAL", "WARNING")
	h.provider.RecordAudit(ctx, "SUBOPTIMAL", "FINE")

	byResult := sumByAttr(t, h.metric(t, "recaudit.audits.total"), AttrResult)
	assert.Equal(t, int64(1), byResult["COMPLIANT"])
	assert.Equal(t, int64(2), byResult["SUBOPTIMAL"])
}

func TestRecordEvaluation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.provider.RecordEvaluation(ctx, true, false, 2*time.Millisecond)
	h.provider.RecordEvaluation(ctx, false, true, time.Millisecond)

	byOutcome := sumByAttr(t, h.metric(t, "recaudit.evaluations.total"), AttrCompliant)
	assert.Equal(t, int64(1), byOutcome["true"])
	assert.Equal(t, int64(1), byOutcome["false"])

	hist, ok := h.metric(t, "recaudit.evaluation.duration").Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(2), count)
}

func TestAttributes(t *testing.T) {
	attrs := AuditAttributes("audit-1", "platform-shopbot")
	require.Len(t, attrs, 2)
	require.Equal(t, "recaudit.audit.id", string(attrs[0].Key))
	require.Equal(t, "platform-shopbot", attrs[1].Value.AsString())

	attrs = RecommendationAttributes("laptop-1", 1)
	require.Equal(t, int64(1), attrs[1].Value.AsInt64())

	// No span in context: must not panic.
	AddSpanEvent(context.Background(), "cache.miss", AttrCached.Bool(false))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "warn", "json")
	logger.Info("dropped")
	logger.Warn("kept", "audit_id", "a-1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "a-1", line["audit_id"])

	buf.Reset()
	NewLoggerTo(&buf, "DEBUG", "TEXT").Debug("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
