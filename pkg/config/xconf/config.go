package xconf

import "github.com/knadh/koanf/v2"

// Format 配置文件格式。
type Format string

// 支持的配置格式。
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Config 配置接口。
//
// 基础读取直接使用 Client() 返回的 koanf 实例；
// Config 只补充反序列化、重载和监视。
type Config interface {
	// Client 返回当前的 koanf 实例。Reload 后旧实例仍可读，但内容是旧快照。
	Client() *koanf.Koanf

	// Unmarshal 将 path 下的配置反序列化到 target，path 为空时反序列化整个配置。
	Unmarshal(path string, target any) error

	// Reload 重新读取配置文件。解析失败时保留旧配置。
	Reload() error

	// Path 返回配置文件路径，从字节数据创建时为空。
	Path() string

	// Format 返回配置格式。
	Format() Format
}

// Load 反序列化 path 下的配置为 T。
func Load[T any](cfg Config, path string) (T, error) {
	var out T
	err := cfg.Unmarshal(path, &out)
	return out, err
}

// MustUnmarshal 同 Config.Unmarshal，失败时 panic。用于启动阶段的必要配置。
func MustUnmarshal(cfg Config, path string, target any) {
	if err := cfg.Unmarshal(path, target); err != nil {
		panic(err)
	}
}
