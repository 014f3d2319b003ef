// Package xexport 构建承载 xmetrics 指标的 OpenTelemetry MeterProvider。
//
// 三种导出方式：
//
//	prometheus  otel prometheus exporter + 独立 Registry，Provider.Handler 挂到 /metrics
//	stdout      stdoutmetric + PeriodicReader，适合本地调试
//	none        ManualReader，测试中用 Provider.Collect 读取
//
// 典型用法：
//
//	p, err := xexport.New(ctx, xexport.Config{ServiceName: "api", Exporter: "prometheus"})
//	if err != nil {
//	    return err
//	}
//	defer p.Shutdown(context.Background())
//	tracker, err := p.Tracker()
//	mux.Handle("/metrics", p.Handler)
//
// 设计决策: 延迟直方图的桶边界通过 View 固定，而不是依赖各 instrument 的 hint，
// 保证 objective.latency_threshold 总能落在某个桶边界上。
package xexport
