package xlog

import "errors"

var (
	// ErrNilHandler 表示 NewEnrichHandler 的 base handler 为 nil。
	ErrNilHandler = errors.New("xlog: base handler is nil")
	// ErrUnknownLevel 表示无法解析的日志级别。
	ErrUnknownLevel = errors.New("xlog: unknown level")
	// ErrUnknownFormat 表示 text/json 以外的输出格式。
	ErrUnknownFormat = errors.New("xlog: unknown format")
	// ErrEmptyFilename 表示启用文件轮转但未指定文件名。
	ErrEmptyFilename = errors.New("xlog: rotation filename is empty")
)
