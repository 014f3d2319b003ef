// Package xrun 基于 errgroup 管理进程内的一组长期运行服务。
//
// # 概述
//
// 任一服务出错、收到终止信号或调用 Cancel 时，所有服务共享的 ctx 被取消，
// 各服务监听 ctx.Done() 后退出，Wait 返回退出原因。
//
//	err := xrun.RunServicesWithOptions(ctx, []xrun.Option{
//	    xrun.WithName("api"),
//	    xrun.WithLogger(logger),
//	    xrun.WithTracker(tracker),
//	},
//	    xrun.Named("http", xrun.HTTPServer(srv, 10*time.Second)),
//	    xrun.Named("config-watch", watcher.Run),
//	)
//	if errors.Is(err, xrun.ErrSignal) {
//	    // 正常退出
//	}
//
// # 服务指标
//
// WithTracker 让每个具名服务的运行成为一次被观测调用（xmetrics）：
// function 是服务名，module 是 Group 名称，始终记录并发 gauge。
// 服务 ctx 以服务名为当前调用方帧，服务内部被观测函数的 caller 标签即为服务名。
// 关闭阶段的 context.Canceled 记为 ok，其它错误按 xmetrics.OutcomeOf 判定。
//
// # 退出原因
//
//   - 服务返回的第一个非 context.Canceled 错误
//   - Group 被取消时的 cause，例如 *SignalError；没有 cause 时为 nil
//   - Group 未取消而服务自己返回的 context.Canceled 原样返回，便于发现
//     下游调用被意外取消的问题
//
// # 设计决策
//
// 不提供 OnShutdown 之类的全局钩子：关闭逻辑写在各服务的 ctx.Done() 分支里。
// errgroup 只保留第一个错误，其余服务的错误通过日志观察。
//
// 直接使用 NewGroup 时不注册信号监听。
//
// [errgroup]: https://pkg.go.dev/golang.org/x/sync/errgroup
package xrun
