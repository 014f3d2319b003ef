package xconf

import "errors"

var (
	// ErrEmptyPath 表示配置文件路径为空。
	ErrEmptyPath = errors.New("xconf: empty config path")
	// ErrUnsupportedFormat 表示不支持的配置格式。
	ErrUnsupportedFormat = errors.New("xconf: unsupported config format")
	// ErrLoadFailed 表示读取配置文件失败。
	ErrLoadFailed = errors.New("xconf: failed to load config")
	// ErrParseFailed 表示配置内容解析失败。
	ErrParseFailed = errors.New("xconf: failed to parse config")
	// ErrUnmarshalFailed 表示配置反序列化失败。
	ErrUnmarshalFailed = errors.New("xconf: failed to unmarshal config")
	// ErrNotReloadable 表示从字节数据创建的配置不支持重载和监视。
	ErrNotReloadable = errors.New("xconf: config created from bytes cannot be reloaded")
	// ErrNilOption 表示传入了 nil 的 Option。
	ErrNilOption = errors.New("xconf: nil option")
	// ErrWatchFailed 表示创建文件监视失败。
	ErrWatchFailed = errors.New("xconf: failed to watch config")
)
