package xmetrics

import "errors"

// 构造期错误。所有配置错误都在定义调用点/创建 Tracker 时返回，
// 不会出现在被观测函数的调用路径上。
var (
	// ErrCreateCounter 表示创建 OTel Counter 失败。
	ErrCreateCounter = errors.New("xmetrics: create counter failed")
	// ErrCreateHistogram 表示创建 OTel Histogram 失败。
	ErrCreateHistogram = errors.New("xmetrics: create histogram failed")
	// ErrCreateGauge 表示创建 OTel UpDownCounter 失败。
	ErrCreateGauge = errors.New("xmetrics: create gauge failed")
	// ErrNilOption 表示传入了 nil 的 Option 函数。
	ErrNilOption = errors.New("xmetrics: nil option")
	// ErrEmptyFunction 表示调用点缺少函数名。
	ErrEmptyFunction = errors.New("xmetrics: empty function name")
	// ErrNilBackend 表示 NewBackendTracker 传入了 nil Backend。
	ErrNilBackend = errors.New("xmetrics: nil backend")
	// ErrNilPredicate 表示 OkIf/ErrorIf 传入了 nil 判定函数。
	ErrNilPredicate = errors.New("xmetrics: nil predicate")
	// ErrConflictingPredicates 表示同一调用点同时配置了 OkIf 和 ErrorIf。
	ErrConflictingPredicates = errors.New("xmetrics: ok_if and error_if are mutually exclusive")
	// ErrInvalidStatus 表示错误标注使用了 ok/error 以外的值。
	ErrInvalidStatus = errors.New("xmetrics: invalid result status")
)

// ErrBackendPanic 表示 Backend 在记录时发生 panic，已被 BackendTracker 吸收。
var ErrBackendPanic = errors.New("xmetrics: backend panicked")
