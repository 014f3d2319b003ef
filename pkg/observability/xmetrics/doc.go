// Package xmetrics 为单次函数调用生成标准化指标（自动指标）。
//
// # 设计理念
//
// 每次被观测调用产生三类指标：
//   - function.calls.count：调用计数，标签 function/module/caller/result/ok|error/objective
//   - function.calls.duration：调用延迟直方图（秒），桶边界固定，见 HistogramBuckets
//   - function.calls.concurrent：并发 gauge（可选），标签 function/module/caller
//
// 业务代码只依赖 Tracker 接口；OTelTracker 对接 OpenTelemetry，
// MemoryTracker 用于测试和命令行展示，BackendTracker 把可能失败的自定义后端
// 适配为不会失败的 Tracker。
//
// # 调用方传播
//
// 当前调用方帧保存在 context.Context 中（见 xctx）。Start 返回以当前函数为帧的
// 子 context，嵌套调用据此记录 caller 标签；调用方自己的 context 不被修改，
// 因此无论被调函数如何退出，帧都会恢复。
//
// # 使用示例
//
//	var getUser = xmetrics.NewFunc[*User](tracker, xmetrics.MustSite("GetUser",
//		xmetrics.WithObjective(apiSLO),
//		xmetrics.WithConcurrencyTracking(),
//	))
//
//	u, err := getUser.Call(ctx, func(ctx context.Context) (*User, error) {
//		return repo.Load(ctx, id)
//	})
//
// 也可以直接使用 Start / End：
//
//	ctx, call := xmetrics.Start(ctx, tracker, site)
//	defer func() { call.EndErr(err) }()
//
// # 结果判定
//
// 返回 error 的函数按 ResultClassifier 判定：错误链中实现 ResultLabeler 的错误
// 可以把结果改判为 ok（例如"成功拒绝了非法请求"），实现 LabelValuer 的值
// 提供 ok/error 标签值。不返回 error 的函数通过 OkIf / ErrorIf 判定。
package xmetrics
