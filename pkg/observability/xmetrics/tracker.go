package xmetrics

import (
	"context"
	"time"
)

// Tracker 记录被观测调用的结果。
//
// 三个操作都是 fire-and-forget：不返回错误，实现方必须自行吸收后端故障，
// 保证指标记录失败不会影响业务函数本身的成功与失败。
// 实现必须并发安全，且不应在不相关的标签集之间共享全局锁。
type Tracker interface {
	// RecordCall 对 labels 对应的计数器加一。
	RecordCall(ctx context.Context, labels LabelSet)
	// ObserveLatency 将 d 记入 labels 对应的直方图，桶边界见 HistogramBuckets。
	ObserveLatency(ctx context.Context, d time.Duration, labels LabelSet)
	// SetConcurrency 以 delta 调整 labels 对应的并发 gauge。
	SetConcurrency(ctx context.Context, delta int64, labels LabelSet)
}

// NoopTracker 是空实现。
type NoopTracker struct{}

// RecordCall 空实现。
func (NoopTracker) RecordCall(context.Context, LabelSet) {}

// ObserveLatency 空实现。
func (NoopTracker) ObserveLatency(context.Context, time.Duration, LabelSet) {}

// SetConcurrency 空实现。
func (NoopTracker) SetConcurrency(context.Context, int64, LabelSet) {}

type multiTracker []Tracker

// Multi 返回把每次记录分发给所有 trackers 的 Tracker，nil 元素被忽略。
func Multi(trackers ...Tracker) Tracker {
	out := make(multiTracker, 0, len(trackers))
	for _, t := range trackers {
		if t != nil {
			out = append(out, t)
		}
	}
	switch len(out) {
	case 0:
		return NoopTracker{}
	case 1:
		return out[0]
	default:
		return out
	}
}

func (m multiTracker) RecordCall(ctx context.Context, labels LabelSet) {
	for _, t := range m {
		safeRecord(func() { t.RecordCall(ctx, labels) })
	}
}

func (m multiTracker) ObserveLatency(ctx context.Context, d time.Duration, labels LabelSet) {
	for _, t := range m {
		safeRecord(func() { t.ObserveLatency(ctx, d, labels) })
	}
}

func (m multiTracker) SetConcurrency(ctx context.Context, delta int64, labels LabelSet) {
	for _, t := range m {
		safeRecord(func() { t.SetConcurrency(ctx, delta, labels) })
	}
}

// safeRecord 执行一次记录并吞掉 panic。
//
// 设计决策: 指标子系统遵循"失败不扩散"，第三方 Tracker 的 panic
// 不能中断业务调用链。
func safeRecord(fn func()) {
	defer func() { _ = recover() }()
	fn()
}
