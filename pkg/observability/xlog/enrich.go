package xlog

import (
	"context"
	"log/slog"

	"github.com/omeyang/xautometrics/pkg/context/xctx"
)

// EnrichHandler 从 context 读取当前调用方帧，以 caller 属性注入日志。
//
// 被观测函数内部打印的日志因此可以和 function.calls.* 指标按 caller 关联。
// context 中没有调用方帧时不注入任何属性。
type EnrichHandler struct {
	base slog.Handler
}

// NewEnrichHandler 创建 EnrichHandler
func NewEnrichHandler(base slog.Handler) (*EnrichHandler, error) {
	if base == nil {
		return nil, ErrNilHandler
	}
	return &EnrichHandler{base: base}, nil
}

// Enabled 委托给底层 handler
func (h *EnrichHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle 注入 caller 后交给底层 handler。
// 按 slog 约定，修改前先 Clone record。
func (h *EnrichHandler) Handle(ctx context.Context, r slog.Record) error {
	var buf [1]slog.Attr
	if attrs := xctx.AppendCallerAttrs(buf[:0], ctx); len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.base.Handle(ctx, r)
}

// WithAttrs 返回带额外属性的新 handler
func (h *EnrichHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &EnrichHandler{base: h.base.WithAttrs(attrs)}
}

// WithGroup 返回带分组的新 handler
//
// 分组之后 caller 也会落在分组内，这是 slog handler 链的固有行为。
func (h *EnrichHandler) WithGroup(name string) slog.Handler {
	return &EnrichHandler{base: h.base.WithGroup(name)}
}
