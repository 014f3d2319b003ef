package xconf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// koanfConfig 是 Config 的 koanf 实现。
//
// 当前实例保存在 atomic.Pointer 中，读路径无锁；
// reloadMu 串行化 Reload，避免并发重载把较新的内容覆盖为较旧的内容。
type koanfConfig struct {
	k        atomic.Pointer[koanf.Koanf]
	reloadMu sync.Mutex
	path     string
	format   Format
	opts     *Options
}

// New 从文件创建配置，按扩展名识别格式（.yaml/.yml/.json）。
func New(path string, opts ...Option) (Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	format, err := detectFormat(path)
	if err != nil {
		return nil, err
	}
	options, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	k, err := parse(data, format, options)
	if err != nil {
		return nil, err
	}
	c := &koanfConfig{path: path, format: format, opts: options}
	c.k.Store(k)
	return c, nil
}

// NewFromBytes 从字节数据创建配置，需显式指定格式。空数据得到空配置。
func NewFromBytes(data []byte, format Format, opts ...Option) (Config, error) {
	if !isValidFormat(format) {
		return nil, ErrUnsupportedFormat
	}
	options, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	k, err := parse(data, format, options)
	if err != nil {
		return nil, err
	}
	c := &koanfConfig{format: format, opts: options}
	c.k.Store(k)
	return c, nil
}

func (c *koanfConfig) Client() *koanf.Koanf { return c.k.Load() }

func (c *koanfConfig) Unmarshal(path string, target any) error {
	if err := c.k.Load().UnmarshalWithConf(path, target, koanf.UnmarshalConf{Tag: c.opts.Tag}); err != nil {
		return fmt.Errorf("%w: %w", ErrUnmarshalFailed, err)
	}
	return nil
}

func (c *koanfConfig) Reload() error {
	if c.path == "" {
		return ErrNotReloadable
	}
	c.reloadMu.Lock()
	defer c.reloadMu.Unlock()

	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	k, err := parse(data, c.format, c.opts)
	if err != nil {
		return err
	}
	c.k.Store(k)
	return nil
}

func (c *koanfConfig) Path() string { return c.path }

func (c *koanfConfig) Format() Format { return c.format }

// =============================================================================
// 内部辅助函数
// =============================================================================

func detectFormat(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown extension %q", ErrUnsupportedFormat, ext)
	}
}

func isValidFormat(format Format) bool {
	return format == FormatYAML || format == FormatJSON
}

// parse 创建新的 koanf 实例：先写入默认值，再加载数据。
func parse(data []byte, format Format, opts *Options) (*koanf.Koanf, error) {
	k := koanf.New(opts.Delim)
	for key, v := range opts.Defaults {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("%w: default %q: %w", ErrParseFailed, key, err)
		}
	}
	if len(data) == 0 {
		return k, nil
	}

	var parser koanf.Parser
	switch format {
	case FormatYAML:
		parser = yaml.Parser()
	case FormatJSON:
		parser = json.Parser()
	default:
		return nil, ErrUnsupportedFormat
	}
	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	return k, nil
}
