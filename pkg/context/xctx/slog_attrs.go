package xctx

import (
	"context"
	"log/slog"
)

// =============================================================================
// Caller slog 集成
// =============================================================================

// AppendCallerAttrs 将 context 中的当前被观测函数名追加到现有切片。
// 零分配热路径优化：传入预分配的切片，值为空时不追加。
func AppendCallerAttrs(attrs []slog.Attr, ctx context.Context) []slog.Attr {
	if v := Caller(ctx); v != "" {
		attrs = append(attrs, slog.String(KeyCaller, v))
	}
	return attrs
}

// CallerAttrs 从 context 提取当前被观测函数名，转换为 slog.Attr 切片
//
// 值为空时返回 nil。
// 注意：每次调用会分配新切片。热路径建议使用 AppendCallerAttrs。
func CallerAttrs(ctx context.Context) []slog.Attr {
	attrs := AppendCallerAttrs(nil, ctx)
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}
