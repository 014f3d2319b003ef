package xmetrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	defaultInstrumentationName = "github.com/omeyang/xautometrics/xmetrics"

	// MetricCallsCount 调用计数器名称。
	MetricCallsCount = "function.calls.count"
	// MetricCallsDuration 调用延迟直方图名称（秒）。
	MetricCallsDuration = "function.calls.duration"
	// MetricCallsConcurrent 并发调用 gauge 名称。
	MetricCallsConcurrent = "function.calls.concurrent"
)

type otelConfig struct {
	instrumentationName string
	meterProvider       metric.MeterProvider
}

// Option 定义 OTel Tracker 的配置选项。
type Option func(*otelConfig)

// WithInstrumentationName 设置 OTel instrumentation 名称。
func WithInstrumentationName(name string) Option {
	return func(cfg *otelConfig) {
		if name != "" {
			cfg.instrumentationName = name
		}
	}
}

// WithMeterProvider 设置 MeterProvider，默认使用全局 MeterProvider。
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.meterProvider = provider
		}
	}
}

// OTelTracker 是基于 OpenTelemetry Metrics API 的 Tracker。
//
// 计数器、直方图和 UpDownCounter 在构造时一次性创建；
// 直方图以 HistogramBuckets 作为显式桶边界。
type OTelTracker struct {
	calls       metric.Int64Counter
	duration    metric.Float64Histogram
	concurrency metric.Int64UpDownCounter
}

var _ Tracker = (*OTelTracker)(nil)

// NewOTelTracker 创建基于 OpenTelemetry 的 Tracker。
func NewOTelTracker(opts ...Option) (*OTelTracker, error) {
	cfg := &otelConfig{
		instrumentationName: defaultInstrumentationName,
		meterProvider:       otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		if opt == nil {
			return nil, ErrNilOption
		}
		opt(cfg)
	}

	meter := cfg.meterProvider.Meter(cfg.instrumentationName)

	calls, err := meter.Int64Counter(
		MetricCallsCount,
		metric.WithDescription("Autometrics counter for tracking function calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateCounter, err)
	}

	duration, err := meter.Float64Histogram(
		MetricCallsDuration,
		metric.WithDescription("Autometrics histogram for tracking function call duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(HistogramBuckets()...),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateHistogram, err)
	}

	concurrency, err := meter.Int64UpDownCounter(
		MetricCallsConcurrent,
		metric.WithDescription("Autometrics gauge for tracking function call concurrency"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateGauge, err)
	}

	return &OTelTracker{
		calls:       calls,
		duration:    duration,
		concurrency: concurrency,
	}, nil
}

// 设计决策: 使用不可取消的 context 记录指标，确保即使请求 context 已取消/超时，
// 指标仍能正确记录。这对于失败/超时场景的可观测性至关重要。

// RecordCall 实现 Tracker。
func (t *OTelTracker) RecordCall(ctx context.Context, labels LabelSet) {
	t.calls.Add(metricsContext(ctx), 1, metric.WithAttributeSet(labels.Attributes()))
}

// ObserveLatency 实现 Tracker。
func (t *OTelTracker) ObserveLatency(ctx context.Context, d time.Duration, labels LabelSet) {
	t.duration.Record(metricsContext(ctx), d.Seconds(), metric.WithAttributeSet(labels.Attributes()))
}

// SetConcurrency 实现 Tracker。
func (t *OTelTracker) SetConcurrency(ctx context.Context, delta int64, labels LabelSet) {
	t.concurrency.Add(metricsContext(ctx), delta, metric.WithAttributeSet(labels.Attributes()))
}

func metricsContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}
