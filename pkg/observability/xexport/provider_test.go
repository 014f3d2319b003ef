package xexport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/omeyang/xautometrics/pkg/observability/xmetrics"
)

func TestParseExporter(t *testing.T) {
	cases := map[string]Exporter{
		"":           ExporterPrometheus,
		"prometheus": ExporterPrometheus,
		" Stdout ":   ExporterStdout,
		"NONE":       ExporterNone,
	}
	for in, want := range cases {
		got, err := ParseExporter(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseExporter("otlp")
	assert.ErrorIs(t, err, ErrUnknownExporter)
}

func TestNew_Errors(t *testing.T) {
	//nolint:staticcheck // nil ctx 是被测行为
	_, err := New(nil, Config{})
	assert.ErrorIs(t, err, ErrNilContext)

	_, err = New(t.Context(), Config{Exporter: "zipkin"})
	assert.ErrorIs(t, err, ErrUnknownExporter)

	_, err = New(t.Context(), Config{Exporter: "stdout", Interval: -time.Second})
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func recordSample(t *testing.T, p *Provider) {
	t.Helper()
	tracker, err := p.Tracker()
	require.NoError(t, err)
	site := xmetrics.MustSite("Checkout", xmetrics.WithModule("shop"))
	require.NoError(t, xmetrics.Run(t.Context(), tracker, site, func(context.Context) error { return nil }))
}

func TestNone_Collect(t *testing.T) {
	p, err := New(t.Context(), Config{ServiceName: "shop", ServiceVersion: "1.2.3", Exporter: "none"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	assert.Equal(t, ExporterNone, p.Exporter())
	assert.Nil(t, p.Handler)

	recordSample(t, p)

	rm, err := p.Collect(t.Context())
	require.NoError(t, err)
	name, ok := rm.Resource.Set().Value("service.name")
	require.True(t, ok)
	assert.Equal(t, "shop", name.AsString())
	version, ok := rm.Resource.Set().Value("service.version")
	require.True(t, ok)
	assert.Equal(t, "1.2.3", version.AsString())

	require.Len(t, rm.ScopeMetrics, 1)
	names := make([]string, 0, 2)
	for _, m := range rm.ScopeMetrics[0].Metrics {
		names = append(names, m.Name)
	}
	assert.ElementsMatch(t, []string{xmetrics.MetricCallsCount, xmetrics.MetricCallsDuration}, names)
}

func TestBucketView_OverridesInstrumentBounds(t *testing.T) {
	p, err := New(t.Context(), Config{Exporter: "none"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	h, err := p.MeterProvider.Meter("test").Float64Histogram(xmetrics.MetricCallsDuration,
		metric.WithExplicitBucketBoundaries(1, 2, 3))
	require.NoError(t, err)
	h.Record(t.Context(), 0.2)

	rm, err := p.Collect(t.Context())
	require.NoError(t, err)
	require.Len(t, rm.ScopeMetrics, 1)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)
	data, ok := rm.ScopeMetrics[0].Metrics[0].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, data.DataPoints, 1)
	assert.Equal(t, xmetrics.HistogramBuckets(), data.DataPoints[0].Bounds)
}

func TestCollect_RequiresNone(t *testing.T) {
	p, err := New(t.Context(), Config{Exporter: "prometheus"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	_, err = p.Collect(t.Context())
	assert.ErrorIs(t, err, ErrNotManual)
}

func TestPrometheus_Handler(t *testing.T) {
	p, err := New(t.Context(), Config{ServiceName: "shop"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	require.NotNil(t, p.Handler)
	require.NotNil(t, p.Registry)

	recordSample(t, p)

	srv := httptest.NewServer(p.Handler)
	t.Cleanup(srv.Close)
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, text, "function_calls_count")
	assert.Contains(t, text, "function_calls_duration")
	assert.Contains(t, text, `function="Checkout"`)
	assert.Contains(t, text, `le="0.25"`)
	assert.Contains(t, text, "go_goroutines")
}

func TestStdout_FlushOnShutdown(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(t.Context(), Config{Exporter: "stdout", Interval: time.Hour, Writer: &buf})
	require.NoError(t, err)

	recordSample(t, p)

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), xmetrics.MetricCallsCount)
	assert.NoError(t, p.Shutdown(context.Background()))
}
