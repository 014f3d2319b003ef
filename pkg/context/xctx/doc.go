// Package xctx 提供基于 context 的调用方（caller）传播。
//
// 被观测函数在入口处把自己的名字写入 context，下游被观测函数读取该值
// 作为 caller 标签，不需要在业务参数里显式传递。
//
// # 核心功能
//
//   - PushCaller(ctx, name)    : 进入被观测函数，返回子 context 和进入前的帧
//   - Caller(ctx)              : 读取当前帧，缺失时返回空字符串
//   - RestoreCaller(ctx, prev) : 显式交还恢复后的 context
//
// # 命名约定
//
//	WithXxx(ctx, value)    - 注入：将 value 写入 context
//	Xxx(ctx)               - 读取：从 context 读取值，缺失时返回零值
//	RequireXxx(ctx)        - 强制读取：值必须存在，缺失时返回错误
//
// # 隔离与传播
//
// 帧是 context 链的属性，而不是 OS 线程的属性：
//
//   - 以派生 context 启动的 goroutine 继承当前帧
//   - 兄弟 goroutine 各自持有自己的 context，互不可见
//   - goroutine 在被观测函数中阻塞后被调度到其他线程继续执行，帧保持不变
//
// # 哨兵错误
//
//	ErrNilContext    - context 为 nil
//	ErrMissingCaller - caller 缺失
package xctx
