package xctx

import "context"

// =============================================================================
// Caller 常量
// =============================================================================

const (
	// KeyCaller 调用方日志属性 key，与指标标签 caller 同名。
	KeyCaller = "caller"

	keyCaller = contextKey("xctx:caller")
)

// =============================================================================
// Caller 操作
//
// 每个逻辑执行上下文（一条 context 链）只有一个"当前被观测函数"。
// 被观测函数入口处派生子 context 写入自己的名字，它调用的下游函数从
// context 读到的就是 caller。
//
// 设计决策: 使用 context.Context 而非 goroutine-local 存储：
//   - Go 没有 goroutine-local，context 是官方的显式传播机制
//   - context 值不可变，父 context 永远保留进入前的值，
//     返回、提前返回、panic、取消等任何退出路径都无需手动恢复
//   - 以派生 context 启动的 goroutine 天然继承调用链，
//     持有其他 context 的并发调用彼此隔离
// =============================================================================

// WithCaller 将当前被观测函数名注入 context。
//
// 如果 ctx 为 nil，返回 ErrNilContext。
func WithCaller(ctx context.Context, name string) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	return context.WithValue(ctx, keyCaller, name), nil
}

// Caller 从 context 读取当前被观测函数名，不存在返回空字符串。
//
// 空字符串即"没有调用方"，读取永远不会失败。
func Caller(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(keyCaller).(string); ok {
		return v
	}
	return ""
}

// RequireCaller 从 context 获取当前被观测函数名，不存在则返回错误。
//
// 如果 ctx 为 nil，返回 ErrNilContext。
func RequireCaller(ctx context.Context) (string, error) {
	if ctx == nil {
		return "", ErrNilContext
	}
	v := Caller(ctx)
	if v == "" {
		return "", ErrMissingCaller
	}
	return v, nil
}

// PushCaller 进入被观测函数：返回以 name 为当前帧的子 context，
// 以及进入前的帧（即 name 的 caller）。
//
// nil ctx 视为 context.Background()。
func PushCaller(ctx context.Context, name string) (context.Context, string) {
	if ctx == nil {
		ctx = context.Background()
	}
	previous := Caller(ctx)
	return context.WithValue(ctx, keyCaller, name), previous
}

// RestoreCaller 返回当前帧被重置为 previous 的子 context。
//
// 仅在包装代码无法继续持有父 context、必须显式交还恢复后的 context 时使用；
// 正常情况下直接丢弃 PushCaller 返回的子 context 即完成恢复。
func RestoreCaller(ctx context.Context, previous string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if Caller(ctx) == previous {
		return ctx
	}
	return context.WithValue(ctx, keyCaller, previous)
}
