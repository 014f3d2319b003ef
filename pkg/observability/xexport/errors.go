package xexport

import "errors"

var (
	// ErrNilContext 表示 New 收到 nil context。
	ErrNilContext = errors.New("xexport: nil context")
	// ErrUnknownExporter 表示 Config.Exporter 不是受支持的取值。
	ErrUnknownExporter = errors.New("xexport: unknown exporter")
	// ErrCreateExporter 表示底层 exporter 创建失败。
	ErrCreateExporter = errors.New("xexport: create exporter failed")
	// ErrInvalidInterval 表示 stdout 导出周期为负数。
	ErrInvalidInterval = errors.New("xexport: interval must not be negative")
	// ErrNotManual 表示在非 none exporter 的 Provider 上调用 Collect。
	ErrNotManual = errors.New("xexport: collect requires the none exporter")
)
