// xlog.go 定义核心接口：Logger、Leveler、LoggerWithLevel
//
// 约定：
//   - 每个方法都接收 context，EnrichHandler 从中读取当前调用方帧
//   - 只接受 slog.Attr，不做隐式 key-value 转换
//   - 级别可在运行时修改（配置热更新）
package xlog

import (
	"context"
	"log/slog"
)

// Logger 日志接口
type Logger interface {
	Debug(ctx context.Context, msg string, attrs ...slog.Attr)
	Info(ctx context.Context, msg string, attrs ...slog.Attr)
	Warn(ctx context.Context, msg string, attrs ...slog.Attr)
	Error(ctx context.Context, msg string, attrs ...slog.Attr)

	// Stack 记录 Error 级别日志并附带当前 goroutine 的调用栈。
	Stack(ctx context.Context, msg string, attrs ...slog.Attr)

	// With 返回带固定属性的派生 Logger，派生 Logger 与父级共享级别。
	With(attrs ...slog.Attr) Logger

	// WithGroup 返回带分组的派生 Logger。
	WithGroup(name string) Logger
}

// Leveler 级别控制接口
type Leveler interface {
	SetLevel(level Level)
	GetLevel() Level
	Enabled(ctx context.Context, level Level) bool
}

// LoggerWithLevel 是 Build 的返回类型：Logger + Leveler。
type LoggerWithLevel interface {
	Logger
	Leveler
}
