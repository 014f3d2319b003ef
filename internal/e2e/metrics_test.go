//go:build e2e

package e2e

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/omeyang/xautometrics/pkg/context/xctx"
	"github.com/omeyang/xautometrics/pkg/lifecycle/xrun"
	"github.com/omeyang/xautometrics/pkg/observability/xexport"
	"github.com/omeyang/xautometrics/pkg/observability/xlog"
	"github.com/omeyang/xautometrics/pkg/observability/xmetrics"
	"github.com/omeyang/xautometrics/pkg/observability/xmiddleware"
	"github.com/omeyang/xautometrics/pkg/observability/xslo"
)

// pipeline 是一条完整的 tracker -> MeterProvider -> ManualReader 链路。
type pipeline struct {
	provider *xexport.Provider
	tracker  *xmetrics.OTelTracker
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	p, err := xexport.New(t.Context(), xexport.Config{ServiceName: "e2e", Exporter: "none"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	tracker, err := p.Tracker()
	require.NoError(t, err)
	return &pipeline{provider: p, tracker: tracker}
}

func (p *pipeline) collect(t *testing.T) metricdata.ResourceMetrics {
	t.Helper()
	rm, err := p.provider.Collect(t.Context())
	require.NoError(t, err)
	return rm
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

func attrMap(set attribute.Set) map[string]string {
	out := make(map[string]string, set.Len())
	for _, kv := range set.ToSlice() {
		out[string(kv.Key)] = kv.Value.AsString()
	}
	return out
}

// sumPoints 返回 name 指标中 function 等于 fn 的所有数据点属性及其值。
func sumPoints(t *testing.T, rm metricdata.ResourceMetrics, name, fn string) []sumPoint {
	t.Helper()
	m, ok := findMetric(rm, name)
	require.True(t, ok, "metric %s not exported", name)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is %T", name, m.Data)

	var out []sumPoint
	for _, dp := range sum.DataPoints {
		attrs := attrMap(dp.Attributes)
		if attrs[xmetrics.KeyFunction] == fn {
			out = append(out, sumPoint{attrs: attrs, value: dp.Value})
		}
	}
	return out
}

type sumPoint struct {
	attrs map[string]string
	value int64
}

func histogramPoint(t *testing.T, rm metricdata.ResourceMetrics, fn string) metricdata.HistogramDataPoint[float64] {
	t.Helper()
	m, ok := findMetric(rm, xmetrics.MetricCallsDuration)
	require.True(t, ok)
	h, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "duration is %T", m.Data)
	for _, dp := range h.DataPoints {
		if attrMap(dp.Attributes)[xmetrics.KeyFunction] == fn {
			return dp
		}
	}
	t.Fatalf("no histogram point for %s", fn)
	return metricdata.HistogramDataPoint[float64]{}
}

func TestNestedCallerChain_E2E(t *testing.T) {
	p := newPipeline(t)
	outer := xmetrics.MustSite("outer", xmetrics.WithModule("e2e"))
	inner := xmetrics.MustSite("inner", xmetrics.WithModule("e2e"))
	third := xmetrics.MustSite("third", xmetrics.WithModule("e2e"))

	var seen string
	err := xmetrics.Run(t.Context(), p.tracker, outer, func(ctx context.Context) error {
		return xmetrics.Run(ctx, p.tracker, inner, func(ctx context.Context) error {
			seen = xctx.Caller(ctx)
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, "inner", seen, "帧在 inner 内部是 inner 自己")

	require.NoError(t, xmetrics.Run(t.Context(), p.tracker, third, func(context.Context) error { return nil }))

	rm := p.collect(t)
	innerPts := sumPoints(t, rm, xmetrics.MetricCallsCount, "inner")
	require.Len(t, innerPts, 1)
	assert.Equal(t, "outer", innerPts[0].attrs[xmetrics.KeyCaller])
	assert.Equal(t, "ok", innerPts[0].attrs[xmetrics.KeyResult])
	assert.Equal(t, "e2e", innerPts[0].attrs[xmetrics.KeyModule])

	outerPts := sumPoints(t, rm, xmetrics.MetricCallsCount, "outer")
	require.Len(t, outerPts, 1)
	assert.Equal(t, "", outerPts[0].attrs[xmetrics.KeyCaller])

	thirdPts := sumPoints(t, rm, xmetrics.MetricCallsCount, "third")
	require.Len(t, thirdPts, 1)
	assert.Equal(t, "", thirdPts[0].attrs[xmetrics.KeyCaller])
}

func TestCallerRestoredAfterErrorAndPanic_E2E(t *testing.T) {
	p := newPipeline(t)
	outer := xmetrics.MustSite("outer", xmetrics.WithModule("e2e"))
	failing := xmetrics.MustSite("failing", xmetrics.WithModule("e2e"))
	panicking := xmetrics.MustSite("panicking", xmetrics.WithModule("e2e"))
	after := xmetrics.MustSite("after", xmetrics.WithModule("e2e"))
	boom := errors.New("boom")

	err := xmetrics.Run(t.Context(), p.tracker, outer, func(ctx context.Context) error {
		return xmetrics.Run(ctx, p.tracker, failing, func(context.Context) error { return boom })
	})
	require.ErrorIs(t, err, boom)

	assert.Panics(t, func() {
		_ = xmetrics.Run(t.Context(), p.tracker, outer, func(ctx context.Context) error {
			return xmetrics.Run(ctx, p.tracker, panicking, func(context.Context) error { panic("kaboom") })
		})
	})

	require.NoError(t, xmetrics.Run(t.Context(), p.tracker, after, func(context.Context) error { return nil }))

	rm := p.collect(t)
	failPts := sumPoints(t, rm, xmetrics.MetricCallsCount, "failing")
	require.Len(t, failPts, 1)
	assert.Equal(t, "outer", failPts[0].attrs[xmetrics.KeyCaller])
	assert.Equal(t, "error", failPts[0].attrs[xmetrics.KeyResult])

	panicPts := sumPoints(t, rm, xmetrics.MetricCallsCount, "panicking")
	require.Len(t, panicPts, 1)
	assert.Equal(t, "error", panicPts[0].attrs[xmetrics.KeyResult])

	afterPts := sumPoints(t, rm, xmetrics.MetricCallsCount, "after")
	require.Len(t, afterPts, 1)
	assert.Equal(t, "", afterPts[0].attrs[xmetrics.KeyCaller])
}

func TestHistogramBucketsAndObjectiveLabels_E2E(t *testing.T) {
	p := newPipeline(t)
	obj := xslo.Must(xslo.New("api").SuccessRate(xslo.P99).Latency(xslo.Ms250, xslo.P95))
	site := xmetrics.MustSite("checkout", xmetrics.WithModule("shop/api"), xmetrics.WithObjective(obj))

	for range 3 {
		require.NoError(t, xmetrics.Run(t.Context(), p.tracker, site, func(context.Context) error { return nil }))
	}

	rm := p.collect(t)
	dp := histogramPoint(t, rm, "checkout")
	assert.Equal(t, xmetrics.HistogramBuckets(), dp.Bounds)
	assert.Equal(t, uint64(3), dp.Count)
	assert.Equal(t, map[string]string{
		xmetrics.KeyFunction:                  "checkout",
		xmetrics.KeyModule:                    "shop.api",
		xmetrics.KeyObjectiveName:             "api",
		xmetrics.KeyObjectivePercentile:       "95",
		xmetrics.KeyObjectiveLatencyThreshold: "0.25",
	}, attrMap(dp.Attributes))

	pts := sumPoints(t, rm, xmetrics.MetricCallsCount, "checkout")
	require.Len(t, pts, 1)
	assert.Equal(t, int64(3), pts[0].value)
	assert.Equal(t, "api", pts[0].attrs[xmetrics.KeyObjectiveName])
	assert.Equal(t, "99", pts[0].attrs[xmetrics.KeyObjectivePercentile])
	_, hasThreshold := pts[0].attrs[xmetrics.KeyObjectiveLatencyThreshold]
	assert.False(t, hasThreshold)
}

func TestConcurrencyGaugeReturnsToZero_E2E(t *testing.T) {
	p := newPipeline(t)
	site := xmetrics.MustSite("slow", xmetrics.WithModule("e2e"), xmetrics.WithConcurrencyTracking())

	const workers = 8
	entered := make(chan struct{}, workers)
	release := make(chan struct{})
	var wg sync.WaitGroup
	for range workers {
		wg.Go(func() {
			_ = xmetrics.Run(context.Background(), p.tracker, site, func(context.Context) error {
				entered <- struct{}{}
				<-release
				return nil
			})
		})
	}
	for range workers {
		<-entered
	}

	during := sumPoints(t, p.collect(t), xmetrics.MetricCallsConcurrent, "slow")
	require.Len(t, during, 1)
	assert.Equal(t, int64(workers), during[0].value)
	assert.NotContains(t, during[0].attrs, xmetrics.KeyResult)

	close(release)
	wg.Wait()

	after := sumPoints(t, p.collect(t), xmetrics.MetricCallsConcurrent, "slow")
	require.Len(t, after, 1)
	assert.Equal(t, int64(0), after[0].value)
}

func TestConcurrentCallersAreIsolated_E2E(t *testing.T) {
	p := newPipeline(t)
	inner := xmetrics.MustSite("inner", xmetrics.WithModule("e2e"))

	const n = 32
	var wg sync.WaitGroup
	for i := range n {
		outer := xmetrics.MustSite(fmt.Sprintf("outer-%d", i), xmetrics.WithModule("e2e"))
		wg.Go(func() {
			_ = xmetrics.Run(context.Background(), p.tracker, outer, func(ctx context.Context) error {
				return xmetrics.Run(ctx, p.tracker, inner, func(context.Context) error { return nil })
			})
		})
	}
	wg.Wait()

	pts := sumPoints(t, p.collect(t), xmetrics.MetricCallsCount, "inner")
	require.Len(t, pts, n)
	callers := make(map[string]int64, n)
	for _, pt := range pts {
		callers[pt.attrs[xmetrics.KeyCaller]] += pt.value
	}
	for i := range n {
		assert.Equal(t, int64(1), callers[fmt.Sprintf("outer-%d", i)])
	}
}

// captureHandler 记录最后一条日志的属性。
type captureHandler struct {
	mu    sync.Mutex
	attrs map[string]string
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]string)
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Resolve().String()
		return true
	})
	h.mu.Lock()
	h.attrs = attrs
	h.mu.Unlock()
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

func (h *captureHandler) snapshot() map[string]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]string, len(h.attrs))
	for k, v := range h.attrs {
		out[k] = v
	}
	return out
}

func TestHTTPMiddlewareCallerChain_E2E(t *testing.T) {
	p := newPipeline(t)
	capture := &captureHandler{}
	enrich, err := xlog.NewEnrichHandler(capture)
	require.NoError(t, err)
	logger := slog.New(enrich)

	mw, err := xmiddleware.HTTP(p.tracker, xmiddleware.WithConcurrencyTracking())
	require.NoError(t, err)
	lookup := xmetrics.MustSite("lookup", xmetrics.WithModule("store"))

	mux := http.NewServeMux()
	mux.Handle("GET /items/{id}", mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.InfoContext(r.Context(), "handled")
		err := xmetrics.Run(r.Context(), p.tracker, lookup, func(context.Context) error {
			if r.PathValue("id") == "missing" {
				return errors.New("not found")
			}
			return nil
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	})))

	for _, id := range []string{"1", "2", "missing"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
		_ = rec.Result().Body.Close()
	}

	assert.Equal(t, "GET /items/{id}", capture.snapshot()[xctx.KeyCaller])

	rm := p.collect(t)
	lookups := sumPoints(t, rm, xmetrics.MetricCallsCount, "lookup")
	require.Len(t, lookups, 2)
	byResult := map[string]int64{}
	for _, pt := range lookups {
		assert.Equal(t, "GET /items/{id}", pt.attrs[xmetrics.KeyCaller])
		byResult[pt.attrs[xmetrics.KeyResult]] += pt.value
	}
	assert.Equal(t, map[string]int64{"ok": 2, "error": 1}, byResult)

	routes := sumPoints(t, rm, xmetrics.MetricCallsCount, "GET /items/{id}")
	byValue := map[string]int64{}
	for _, pt := range routes {
		assert.Equal(t, xmiddleware.DefaultHTTPModule, pt.attrs[xmetrics.KeyModule])
		byValue[pt.attrs[xmetrics.KeyResult]+"/"+pt.attrs[pt.attrs[xmetrics.KeyResult]]] += pt.value
	}
	assert.Equal(t, map[string]int64{"ok/2xx": 2, "ok/4xx": 1}, byValue)

	gauge := sumPoints(t, rm, xmetrics.MetricCallsConcurrent, "GET /items/{id}")
	require.Len(t, gauge, 1)
	assert.Equal(t, int64(0), gauge[0].value)
}

func TestGRPCInterceptorCallerChain_E2E(t *testing.T) {
	p := newPipeline(t)
	interceptor, err := xmiddleware.UnaryServerInterceptor(p.tracker)
	require.NoError(t, err)
	fetch := xmetrics.MustSite("fetch", xmetrics.WithModule("store"))

	info := &grpc.UnaryServerInfo{FullMethod: "/shop.v1.Catalog/GetItem"}
	handler := func(ctx context.Context, req any) (any, error) {
		err := xmetrics.Run(ctx, p.tracker, fetch, func(context.Context) error { return nil })
		if err != nil {
			return nil, err
		}
		if req == "missing" {
			return nil, status.Error(codes.NotFound, "no such item")
		}
		return "item", nil
	}

	_, err = interceptor(t.Context(), "1", info, handler)
	require.NoError(t, err)
	_, err = interceptor(t.Context(), "missing", info, handler)
	require.Equal(t, codes.NotFound, status.Code(err))

	rm := p.collect(t)
	fetches := sumPoints(t, rm, xmetrics.MetricCallsCount, "fetch")
	require.Len(t, fetches, 1)
	assert.Equal(t, "GetItem", fetches[0].attrs[xmetrics.KeyCaller])
	assert.Equal(t, int64(2), fetches[0].value)

	methods := sumPoints(t, rm, xmetrics.MetricCallsCount, "GetItem")
	byValue := map[string]int64{}
	for _, pt := range methods {
		assert.Equal(t, "shop.v1.Catalog", pt.attrs[xmetrics.KeyModule])
		result := pt.attrs[xmetrics.KeyResult]
		byValue[result+"/"+pt.attrs[result]] += pt.value
	}
	assert.Equal(t, map[string]int64{"ok/": 1, "ok/NotFound": 1}, byValue)
}

func TestServiceGroupCallerChain_E2E(t *testing.T) {
	p := newPipeline(t)
	job := xmetrics.MustSite("job", xmetrics.WithModule("billing"))

	worker := xrun.Named("sweeper", func(ctx context.Context) error {
		for range 2 {
			if err := xmetrics.Run(ctx, p.tracker, job, func(context.Context) error { return nil }); err != nil {
				return err
			}
		}
		return nil
	})

	err := xrun.RunServicesWithOptions(t.Context(), []xrun.Option{
		xrun.WithName("billing"),
		xrun.WithTracker(p.tracker),
		xrun.WithoutSignalHandler(),
	}, worker)
	require.NoError(t, err)

	rm := p.collect(t)
	jobs := sumPoints(t, rm, xmetrics.MetricCallsCount, "job")
	require.Len(t, jobs, 1)
	assert.Equal(t, "sweeper", jobs[0].attrs[xmetrics.KeyCaller])
	assert.Equal(t, int64(2), jobs[0].value)

	services := sumPoints(t, rm, xmetrics.MetricCallsCount, "sweeper")
	require.Len(t, services, 1)
	assert.Equal(t, "billing", services[0].attrs[xmetrics.KeyModule])
	assert.Equal(t, "ok", services[0].attrs[xmetrics.KeyResult])

	gauge := sumPoints(t, rm, xmetrics.MetricCallsConcurrent, "sweeper")
	require.Len(t, gauge, 1)
	assert.Equal(t, int64(0), gauge[0].value)
}
