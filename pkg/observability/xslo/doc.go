// Package xslo 定义服务等级目标（Objective）。
//
// Objective 由名称加上可选的成功率百分位、可选的延迟阈值与百分位组成。
// 它被附加到被观测函数的调用点上，xmetrics 会把目标名称、百分位和阈值
// 作为额外标签写入同一条计数器/直方图序列，下游告警查询据此计算错误预算。
//
// # 使用示例
//
//	var apiSLO = xslo.Must(xslo.New("api").
//		SuccessRate(xslo.P99_9).
//		Latency(xslo.Ms250, xslo.P99))
//
// # 取值集合
//
// 百分位：90 / 95 / 99 / 99.9。
// 延迟阈值：10ms ~ 10s，与直方图桶边界对齐。
//
// # 配置声明
//
// Definition 支持从 YAML/JSON 配置声明目标，RegistryFromDefinitions
// 在加载期完成校验，配置错误不会延迟到调用期才暴露。
package xslo
