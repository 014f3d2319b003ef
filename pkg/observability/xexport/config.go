package xexport

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Exporter 选择指标导出方式。
type Exporter string

const (
	// ExporterPrometheus 通过 Provider.Handler 暴露 Prometheus 抓取端点。
	ExporterPrometheus Exporter = "prometheus"
	// ExporterStdout 周期性地把指标以 JSON 写到 Config.Writer。
	ExporterStdout Exporter = "stdout"
	// ExporterNone 使用手动 Reader，只有显式 Collect 时才产出数据。
	ExporterNone Exporter = "none"
)

// ParseExporter 解析 exporter 名称，大小写不敏感，空字符串视为 prometheus。
func ParseExporter(s string) (Exporter, error) {
	switch e := Exporter(strings.ToLower(strings.TrimSpace(s))); e {
	case "":
		return ExporterPrometheus, nil
	case ExporterPrometheus, ExporterStdout, ExporterNone:
		return e, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownExporter, s)
	}
}

// DefaultInterval 是 stdout exporter 的默认导出周期。
const DefaultInterval = 10 * time.Second

// Config 描述 MeterProvider 的构建方式。字段可直接由 xconf 从配置文件解码。
type Config struct {
	ServiceName    string `koanf:"service_name" json:"service_name"`
	ServiceVersion string `koanf:"service_version" json:"service_version"`
	// Exporter 取值 prometheus、stdout、none，空值为 prometheus。
	Exporter string `koanf:"exporter" json:"exporter"`
	// Interval 是 stdout exporter 的导出周期，0 使用 DefaultInterval。
	Interval time.Duration `koanf:"interval" json:"interval"`

	// Writer 是 stdout exporter 的输出目标，nil 为 os.Stdout。
	Writer io.Writer `koanf:"-" json:"-"`
}
