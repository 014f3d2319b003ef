package xmetrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/omeyang/xautometrics/pkg/observability/xlog"
)

//go:generate mockgen -source=backend.go -destination=backend_mock_test.go -package=xmetrics

// Backend 是可能失败的指标后端，例如推送网关或自定义存储。
//
// 与 Tracker 不同，Backend 的操作返回 error；通过 NewBackendTracker
// 适配为 Tracker 后，这些错误被吸收，不会传播到被观测函数。
type Backend interface {
	RecordCall(ctx context.Context, labels LabelSet) error
	ObserveLatency(ctx context.Context, d time.Duration, labels LabelSet) error
	SetConcurrency(ctx context.Context, delta int64, labels LabelSet) error
}

// 后端操作名称，用于日志和 OnError 回调。
const (
	OpRecordCall     = "record_call"
	OpObserveLatency = "observe_latency"
	OpSetConcurrency = "set_concurrency"
)

const (
	defaultBackendName      = "xmetrics-backend"
	defaultBreakerFailures  = 5
	defaultBreakerTimeout   = 30 * time.Second
	defaultBreakerHalfOpens = 1
)

type backendConfig struct {
	name     string
	logger   xlog.Logger
	onError  func(op string, err error)
	failures uint32
	timeout  time.Duration
}

// BackendOption 配置 BackendTracker。
type BackendOption func(*backendConfig)

// WithBackendName 设置熔断器和日志中使用的后端名称。
func WithBackendName(name string) BackendOption {
	return func(c *backendConfig) {
		if name != "" {
			c.name = name
		}
	}
}

// WithBackendLogger 设置记录后端故障的 logger，默认使用 xlog.Default()。
func WithBackendLogger(l xlog.Logger) BackendOption {
	return func(c *backendConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithOnError 设置后端失败回调。回调在记录路径上同步执行，应当轻量。
func WithOnError(fn func(op string, err error)) BackendOption {
	return func(c *backendConfig) {
		c.onError = fn
	}
}

// WithBreakerFailures 设置触发熔断的连续失败次数，默认 5。
func WithBreakerFailures(n uint32) BackendOption {
	return func(c *backendConfig) {
		if n > 0 {
			c.failures = n
		}
	}
}

// WithBreakerTimeout 设置熔断打开后进入半开状态前的等待时间，默认 30s。
func WithBreakerTimeout(d time.Duration) BackendOption {
	return func(c *backendConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// BackendTracker 把 Backend 适配为 Tracker。
//
// 后端返回的错误和 panic 都被吸收：计入 Failures，以 Debug 级别记录，
// 并调用 OnError 回调。连续失败达到阈值后熔断器打开，
// 此后的 RecordCall/ObserveLatency 直接丢弃（计入 Dropped），
// 避免在后端不可用期间反复付出超时代价。
//
// 设计决策: SetConcurrency 不经过熔断器。gauge 的 +1/-1 必须成对到达后端，
// 如果熔断状态在一次调用的进入与退出之间切换，只丢一半会让 gauge 永久漂移。
type BackendTracker struct {
	backend  Backend
	cb       *gobreaker.CircuitBreaker[struct{}]
	logger   xlog.Logger
	onError  func(op string, err error)
	name     string
	dropped  atomic.Uint64
	failures atomic.Uint64
}

var _ Tracker = (*BackendTracker)(nil)

// NewBackendTracker 创建吸收后端故障的 Tracker。
func NewBackendTracker(b Backend, opts ...BackendOption) (*BackendTracker, error) {
	if b == nil {
		return nil, ErrNilBackend
	}
	cfg := &backendConfig{
		name:     defaultBackendName,
		failures: defaultBreakerFailures,
		timeout:  defaultBreakerTimeout,
	}
	for _, opt := range opts {
		if opt == nil {
			return nil, ErrNilOption
		}
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = xlog.Default()
	}

	t := &BackendTracker{
		backend: b,
		logger:  cfg.logger.With(xlog.Component(cfg.name)),
		onError: cfg.onError,
		name:    cfg.name,
	}
	threshold := cfg.failures
	t.cb = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        cfg.name,
		MaxRequests: defaultBreakerHalfOpens,
		Timeout:     cfg.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			t.logger.Warn(context.Background(), "metrics backend breaker state changed",
				slog.String("backend", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})
	return t, nil
}

// RecordCall 实现 Tracker。
func (t *BackendTracker) RecordCall(ctx context.Context, labels LabelSet) {
	ctx = metricsContext(ctx)
	t.guarded(ctx, OpRecordCall, func() error { return t.backend.RecordCall(ctx, labels) })
}

// ObserveLatency 实现 Tracker。
func (t *BackendTracker) ObserveLatency(ctx context.Context, d time.Duration, labels LabelSet) {
	ctx = metricsContext(ctx)
	t.guarded(ctx, OpObserveLatency, func() error { return t.backend.ObserveLatency(ctx, d, labels) })
}

// SetConcurrency 实现 Tracker。
func (t *BackendTracker) SetConcurrency(ctx context.Context, delta int64, labels LabelSet) {
	ctx = metricsContext(ctx)
	if err := t.invoke(func() error { return t.backend.SetConcurrency(ctx, delta, labels) }); err != nil {
		t.fail(ctx, OpSetConcurrency, err)
	}
}

// Dropped 返回因熔断而丢弃的记录数。
func (t *BackendTracker) Dropped() uint64 { return t.dropped.Load() }

// Failures 返回后端返回错误或 panic 的次数。
func (t *BackendTracker) Failures() uint64 { return t.failures.Load() }

// State 返回熔断器当前状态。
func (t *BackendTracker) State() gobreaker.State { return t.cb.State() }

func (t *BackendTracker) guarded(ctx context.Context, op string, fn func() error) {
	_, err := t.cb.Execute(func() (struct{}, error) {
		return struct{}{}, t.invoke(fn)
	})
	if err == nil {
		return
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		t.dropped.Add(1)
		return
	}
	t.fail(ctx, op, err)
}

// invoke 执行一次后端调用，把 panic 转换为 ErrBackendPanic。
func (t *BackendTracker) invoke(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrBackendPanic, r)
		}
	}()
	return fn()
}

func (t *BackendTracker) fail(ctx context.Context, op string, err error) {
	t.failures.Add(1)
	t.logger.Debug(ctx, "metrics backend failed",
		slog.String("op", op),
		xlog.Err(err),
	)
	if t.onError != nil {
		safeRecord(func() { t.onError(op, err) })
	}
}
