// Package context 提供上下文相关的子包。
//
// 子包列表：
//   - xctx: 在 context.Context 中保存当前被观测函数（调用方帧）
//
// 设计原则：
//   - 调用方帧随 context 传递，不使用 goroutine 局部状态或全局变量
//   - 读取永不失败，缺省值为空字符串
package context
