// Package e2e 存放跨包端到端测试：被观测函数、HTTP/gRPC 中间件、xrun 服务组
// 通过 OTel SDK 的 ManualReader 输出指标，测试直接断言导出的数据点。
//
// 测试带有 e2e 构建标签：
//
//	go test -tags e2e ./internal/e2e/...
package e2e
