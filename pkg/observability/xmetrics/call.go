package xmetrics

import (
	"context"
	"sync"
	"time"

	"github.com/omeyang/xautometrics/pkg/context/xctx"
)

// Call 是一次进行中的被观测调用，由 Start 创建，End 结束。
//
// Call 的生命周期与一次函数执行对应：Start 在入口处压入调用方帧、
// 增加并发 gauge 并开始计时；End 在出口处记录计数器和直方图、减少 gauge。
// End 通常放在 defer 中，从而覆盖正常返回、提前返回、错误、panic 和取消。
type Call struct {
	ctx     context.Context
	tracker Tracker
	site    Site
	caller  string
	start   time.Time
	once    sync.Once
}

// Start 开始一次被观测调用。
//
// 返回的 context 以 site 的函数名作为当前调用方帧，被调函数内部的
// 嵌套调用会把它记为 caller。调用方自己的 ctx 不被修改，
// 因此函数以任何方式退出后，调用方看到的帧自然恢复。
// tracker 为 nil 时使用 NoopTracker，ctx 为 nil 时使用 context.Background()。
func Start(ctx context.Context, tracker Tracker, site Site) (context.Context, *Call) {
	if tracker == nil {
		tracker = NoopTracker{}
	}
	child, previous := xctx.PushCaller(ctx, site.function)
	c := &Call{
		ctx:     child,
		tracker: tracker,
		site:    site,
		caller:  previous,
	}
	if site.concurrency {
		labels := ConcurrencyLabels(site.input(previous, Outcome{}))
		safeRecord(func() { tracker.SetConcurrency(metricsContext(child), 1, labels) })
	}
	c.start = time.Now()
	return child, c
}

// End 结束调用并记录指标。重复调用只有第一次生效。
//
// Tracker 的 panic 在这里被吸收，不会影响被观测函数的返回值或 panic。
func (c *Call) End(out Outcome) {
	if c == nil {
		return
	}
	c.once.Do(func() {
		elapsed := time.Since(c.start)
		ctx := metricsContext(c.ctx)
		in := c.site.input(c.caller, out)

		counter := BuildLabels(in)
		histogram := HistogramLabels(in)
		safeRecord(func() { c.tracker.RecordCall(ctx, counter) })
		safeRecord(func() { c.tracker.ObserveLatency(ctx, elapsed, histogram) })
		if c.site.concurrency {
			gauge := ConcurrencyLabels(in)
			safeRecord(func() { c.tracker.SetConcurrency(ctx, -1, gauge) })
		}
	})
}

// EndErr 以 OutcomeOf(err) 结束调用。
func (c *Call) EndErr(err error) {
	c.End(OutcomeOf(err))
}

// Context 返回以本调用为当前帧的 context。
func (c *Call) Context() context.Context { return c.ctx }

// Caller 返回调用方帧，没有调用方时为空字符串。
func (c *Call) Caller() string { return c.caller }

// Site 返回调用点。
func (c *Call) Site() Site { return c.site }
