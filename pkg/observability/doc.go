// Package observability 提供函数级可观测性相关的子包。
//
// 子包列表：
//   - xmetrics: 调用点、调用方帧、结果分类与 Tracker 抽象，记录计数器、延迟直方图和并发 gauge
//   - xslo: 服务等级目标（成功率与延迟百分位）的定义与注册表
//   - xexport: 基于 OTel SDK 的 MeterProvider 构建，支持 prometheus、stdout 和手动读取
//   - xmiddleware: HTTP 与 gRPC 服务端入口的调用观测
//   - xlog: 结构化日志，基于 log/slog 扩展，自动注入当前调用方
//
// 设计原则：
//   - 指标名称与标签遵循 OpenTelemetry 语义规范
//   - 记录失败不影响被观测函数的返回值
//   - 配置错误在构建阶段返回，调用路径上不再校验
package observability
