package xexport

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/omeyang/xautometrics/pkg/observability/xmetrics"
)

// Provider 持有构建好的 MeterProvider 及其导出端。
type Provider struct {
	// MeterProvider 供 xmetrics.NewOTelTracker 使用。
	MeterProvider *sdkmetric.MeterProvider
	// Handler 是 Prometheus 抓取端点，仅 prometheus exporter 非 nil。
	Handler http.Handler
	// Registry 是 prometheus exporter 专用的注册表，其它 exporter 为 nil。
	Registry *prometheus.Registry

	exporter Exporter
	manual   *sdkmetric.ManualReader
	once     sync.Once
	err      error
}

// New 按 cfg 构建 Provider。
//
// 所有 exporter 都注册一个 View，把 function.calls.duration 的桶边界固定为
// xmetrics.HistogramBuckets，即使调用方自行创建了同名直方图也保持一致。
// prometheus exporter 使用独立的 prometheus.Registry，不污染全局 DefaultRegisterer。
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	exporter, err := ParseExporter(cfg.Exporter)
	if err != nil {
		return nil, err
	}
	if cfg.Interval < 0 {
		return nil, ErrInvalidInterval
	}

	p := &Provider{exporter: exporter}
	opts := []sdkmetric.Option{
		sdkmetric.WithResource(newResource(cfg)),
		sdkmetric.WithView(BucketView()),
	}

	switch exporter {
	case ExporterPrometheus:
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		exp, err := promexporter.New(promexporter.WithRegisterer(reg))
		if err != nil {
			return nil, fmt.Errorf("%w: prometheus: %w", ErrCreateExporter, err)
		}
		p.Registry = reg
		p.Handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
		opts = append(opts, sdkmetric.WithReader(exp))

	case ExporterStdout:
		w := cfg.Writer
		if w == nil {
			w = os.Stdout
		}
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("%w: stdout: %w", ErrCreateExporter, err)
		}
		interval := cfg.Interval
		if interval == 0 {
			interval = DefaultInterval
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval))))

	case ExporterNone:
		p.manual = sdkmetric.NewManualReader()
		opts = append(opts, sdkmetric.WithReader(p.manual))
	}

	p.MeterProvider = sdkmetric.NewMeterProvider(opts...)
	return p, nil
}

// BucketView 返回把 function.calls.duration 固定为 xmetrics.HistogramBuckets 的 View。
func BucketView() sdkmetric.View {
	return sdkmetric.NewView(
		sdkmetric.Instrument{Name: xmetrics.MetricCallsDuration},
		sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
			Boundaries: xmetrics.HistogramBuckets(),
		}},
	)
}

func newResource(cfg Config) *resource.Resource {
	attrs := make([]attribute.KeyValue, 0, 2)
	if cfg.ServiceName != "" {
		attrs = append(attrs, attribute.String("service.name", cfg.ServiceName))
	}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, attribute.String("service.version", cfg.ServiceVersion))
	}
	return resource.NewWithAttributes("", attrs...)
}

// Exporter 返回生效的 exporter。
func (p *Provider) Exporter() Exporter { return p.exporter }

// Tracker 返回绑定到本 Provider 的 OTel Tracker。
func (p *Provider) Tracker(opts ...xmetrics.Option) (*xmetrics.OTelTracker, error) {
	return xmetrics.NewOTelTracker(append([]xmetrics.Option{xmetrics.WithMeterProvider(p.MeterProvider)}, opts...)...)
}

// Collect 从手动 Reader 读取当前指标，仅 none exporter 可用。
func (p *Provider) Collect(ctx context.Context) (metricdata.ResourceMetrics, error) {
	var rm metricdata.ResourceMetrics
	if p.manual == nil {
		return rm, ErrNotManual
	}
	err := p.manual.Collect(ctx, &rm)
	return rm, err
}

// Shutdown 刷新并关闭 MeterProvider，重复调用返回第一次的结果。
func (p *Provider) Shutdown(ctx context.Context) error {
	p.once.Do(func() {
		p.err = p.MeterProvider.Shutdown(ctx)
	})
	return p.err
}
