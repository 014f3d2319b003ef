// Package xlog 基于 log/slog 的结构化日志。
//
// # 创建 Logger
//
//	logger, cleanup, err := xlog.New().
//		SetLevelString("debug").
//		SetFormat("json").
//		SetRotation("/var/log/app.log", xlog.Rotation{MaxSizeMB: 100, MaxBackups: 3}).
//		Build()
//	defer cleanup()
//
// 也可以从配置文件的 Config 段创建：xlog.FromConfig(cfg).Build()。
//
// # 调用方注入
//
// EnrichHandler（默认启用）从 context 读取 xctx 中的当前调用方帧，
// 以 caller 属性写入日志。被观测函数内部的日志因此可以与
// function.calls.* 指标按 caller 关联。
//
// # 动态级别
//
// Build 返回的 LoggerWithLevel 支持 SetLevel，派生 logger 共享级别，
// 配置热更新时只需调用一次。
package xlog
