package xconf

// Options 配置加载选项。
type Options struct {
	// Delim 配置键分隔符，默认 "."。
	Delim string
	// Tag 结构体标签名，默认 "koanf"。
	Tag string
	// Defaults 在文件内容之前写入的默认值，键使用 Delim 分隔。
	Defaults map[string]any
}

// Option 配置选项函数。
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{Delim: ".", Tag: "koanf"}
}

// WithDelim 设置配置键分隔符。
func WithDelim(delim string) Option {
	return func(o *Options) {
		if delim != "" {
			o.Delim = delim
		}
	}
}

// WithTag 设置结构体标签名。
func WithTag(tag string) Option {
	return func(o *Options) {
		if tag != "" {
			o.Tag = tag
		}
	}
}

// WithDefaults 设置默认值，配置文件中出现的键覆盖默认值。
// 每次 Reload 都会重新应用默认值。
func WithDefaults(defaults map[string]any) Option {
	return func(o *Options) {
		o.Defaults = defaults
	}
}

func applyOptions(opts []Option) (*Options, error) {
	options := defaultOptions()
	for _, opt := range opts {
		if opt == nil {
			return nil, ErrNilOption
		}
		opt(options)
	}
	return options, nil
}
