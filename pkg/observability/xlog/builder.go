package xlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ReplaceAttrFunc 属性替换函数，用于字段重命名、脱敏或过滤。
// 返回空 Key 的 Attr 表示移除该属性。
type ReplaceAttrFunc func(groups []string, a slog.Attr) slog.Attr

// Rotation 文件轮转配置，零值字段使用 lumberjack 的默认行为。
type Rotation struct {
	// MaxSizeMB 单个文件最大尺寸（MB），默认 100。
	MaxSizeMB int `koanf:"max_size_mb" json:"max_size_mb"`
	// MaxBackups 保留的旧文件数量，0 表示全部保留。
	MaxBackups int `koanf:"max_backups" json:"max_backups"`
	// MaxAgeDays 旧文件保留天数，0 表示不按时间清理。
	MaxAgeDays int `koanf:"max_age_days" json:"max_age_days"`
	// Compress 是否 gzip 压缩旧文件。
	Compress bool `koanf:"compress" json:"compress"`
}

// Builder 日志配置构建器
//
// first-error-wins：第一个配置错误被记录，Build 时返回。
type Builder struct {
	output      io.Writer
	levelVar    *slog.LevelVar
	format      string
	addSource   bool
	enrich      bool
	attrs       []slog.Attr
	replaceAttr ReplaceAttrFunc
	rotator     *lumberjack.Logger
	onError     func(error)
	err         error
}

// New 创建构建器。默认输出 stderr、Info 级别、text 格式、启用 enrich。
func New() *Builder {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)
	return &Builder{
		output:   os.Stderr,
		levelVar: levelVar,
		format:   "text",
		enrich:   true,
	}
}

// SetOutput 设置日志输出目标
func (b *Builder) SetOutput(w io.Writer) *Builder {
	if w != nil {
		b.output = w
	}
	return b
}

// SetLevel 设置日志级别
func (b *Builder) SetLevel(level Level) *Builder {
	b.levelVar.Set(slog.Level(level))
	return b
}

// SetLevelString 通过字符串设置日志级别
func (b *Builder) SetLevelString(s string) *Builder {
	level, err := ParseLevel(s)
	if err != nil {
		b.setErr(err)
		return b
	}
	return b.SetLevel(level)
}

// SetFormat 设置输出格式：text 或 json，空值视为 text。
func (b *Builder) SetFormat(format string) *Builder {
	switch normalized := strings.ToLower(strings.TrimSpace(format)); normalized {
	case "":
		b.format = "text"
	case "text", "json":
		b.format = normalized
	default:
		b.setErr(fmt.Errorf("%w: %q", ErrUnknownFormat, format))
	}
	return b
}

// SetAddSource 是否在日志中添加源码位置
func (b *Builder) SetAddSource(enable bool) *Builder {
	b.addSource = enable
	return b
}

// SetEnrich 是否从 context 注入当前调用方帧（caller），默认启用。
func (b *Builder) SetEnrich(enable bool) *Builder {
	b.enrich = enable
	return b
}

// SetAttrs 设置每条日志都携带的固定属性，例如服务名。
func (b *Builder) SetAttrs(attrs ...slog.Attr) *Builder {
	b.attrs = append(b.attrs, attrs...)
	return b
}

// SetRotation 输出到 filename 并按 r 轮转。
//
// 设计决策: 直接使用 lumberjack.Logger 作为 io.Writer，
// cleanup 负责关闭文件；lumberjack 的 mill goroutine 在 Close 后仍会驻留，
// 测试中需要在 goleak 里忽略。
func (b *Builder) SetRotation(filename string, r Rotation) *Builder {
	if strings.TrimSpace(filename) == "" {
		b.setErr(ErrEmptyFilename)
		return b
	}
	b.rotator = &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    r.MaxSizeMB,
		MaxBackups: r.MaxBackups,
		MaxAge:     r.MaxAgeDays,
		Compress:   r.Compress,
		LocalTime:  true,
	}
	b.output = b.rotator
	return b
}

// SetOnError 设置内部错误回调（Handler.Handle 失败时调用）。
// 回调在写日志的路径上同步执行，应保持轻量。
func (b *Builder) SetOnError(fn func(error)) *Builder {
	b.onError = fn
	return b
}

// SetReplaceAttr 设置属性替换函数
func (b *Builder) SetReplaceAttr(fn ReplaceAttrFunc) *Builder {
	b.replaceAttr = fn
	return b
}

func (b *Builder) setErr(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Build 构建 Logger。
//
// 返回值：
//   - LoggerWithLevel: 日志实例，支持动态级别
//   - func() error: 清理函数（关闭轮转文件），可重复调用
//   - error: 配置错误
func (b *Builder) Build() (LoggerWithLevel, func() error, error) {
	if b.err != nil {
		return nil, nil, b.err
	}

	opts := &slog.HandlerOptions{
		Level:       b.levelVar,
		AddSource:   b.addSource,
		ReplaceAttr: b.replaceAttr,
	}

	var handler slog.Handler
	if b.format == "json" {
		handler = slog.NewJSONHandler(b.output, opts)
	} else {
		handler = slog.NewTextHandler(b.output, opts)
	}
	if len(b.attrs) > 0 {
		handler = handler.WithAttrs(b.attrs)
	}
	if b.enrich {
		handler = &EnrichHandler{base: handler}
	}

	logger := &xlogger{
		handler:    handler,
		levelVar:   b.levelVar,
		onError:    b.onError,
		errorCount: new(atomic.Uint64),
		addSource:  b.addSource,
	}

	var once sync.Once
	rotator := b.rotator
	cleanup := func() error {
		var err error
		once.Do(func() {
			if rotator != nil {
				err = rotator.Close()
			}
		})
		return err
	}
	return logger, cleanup, nil
}

// Config 是日志的声明式配置，字段带 koanf 标签，可直接从配置文件加载。
type Config struct {
	Level     string    `koanf:"level" json:"level"`
	Format    string    `koanf:"format" json:"format"`
	AddSource bool      `koanf:"add_source" json:"add_source"`
	File      string    `koanf:"file" json:"file"`
	Rotation  *Rotation `koanf:"rotation" json:"rotation"`
}

// FromConfig 按 cfg 创建 Builder。File 为空时输出到 stderr。
func FromConfig(cfg Config) *Builder {
	b := New().SetLevelString(cfg.Level).SetFormat(cfg.Format).SetAddSource(cfg.AddSource)
	if cfg.File != "" {
		var r Rotation
		if cfg.Rotation != nil {
			r = *cfg.Rotation
		}
		b.SetRotation(cfg.File, r)
	}
	return b
}
