package xctx

import "errors"

// =============================================================================
// Context Key 类型定义
// =============================================================================

// 设计决策: contextKey 使用 string 而非 int+iota：
//   - 作为包私有类型，不会与其他包的 context key 冲突（Go context 比较包含类型信息）
//   - 字符串值在调试时可读性高，便于排查 context 传播问题
type contextKey string

// =============================================================================
// 通用错误
// =============================================================================

var (
	// ErrNilContext 表示传入的 context 为 nil。
	ErrNilContext = errors.New("xctx: nil context")
)

// =============================================================================
// Caller 相关错误
// =============================================================================

var (
	// ErrMissingCaller caller 缺失（当前不在任何被观测函数内）
	ErrMissingCaller = errors.New("xctx: missing caller")
)
