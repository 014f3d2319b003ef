package main

import (
	"fmt"
	"time"

	"github.com/omeyang/xautometrics/pkg/config/xconf"
	"github.com/omeyang/xautometrics/pkg/observability/xexport"
	"github.com/omeyang/xautometrics/pkg/observability/xlog"
	"github.com/omeyang/xautometrics/pkg/observability/xslo"
)

// appConfig 是 xamctl 的配置文件结构。
//
//	service:
//	  name: shop
//	  version: 1.0.0
//	metrics:
//	  exporter: prometheus
//	listen: ":9464"
//	log:
//	  level: info
//	  format: json
//	objectives:
//	  - name: api
//	    success_rate: "99.9"
//	    latency: {threshold: 250ms, percentile: "99"}
//	demo:
//	  objective: api
//	  traffic_interval: 1s
type appConfig struct {
	Service         serviceConfig     `koanf:"service"`
	Metrics         metricsConfig     `koanf:"metrics"`
	Listen          string            `koanf:"listen"`
	ShutdownTimeout time.Duration     `koanf:"shutdown_timeout"`
	Log             xlog.Config       `koanf:"log"`
	Objectives      []xslo.Definition `koanf:"objectives"`
	Demo            demoConfig        `koanf:"demo"`
}

type serviceConfig struct {
	Name    string `koanf:"name"`
	Version string `koanf:"version"`
}

type metricsConfig struct {
	Exporter string        `koanf:"exporter"`
	Interval time.Duration `koanf:"interval"`
	// DebugLog 额外把每条记录以 Debug 级别写入日志。
	DebugLog bool `koanf:"debug_log"`
}

type demoConfig struct {
	// Objective 是演示端点引用的目标名称，为空时不声明目标。
	Objective string `koanf:"objective"`
	// TrafficInterval 大于 0 时周期性地自调用演示端点。
	TrafficInterval time.Duration `koanf:"traffic_interval"`
}

func configDefaults() map[string]any {
	return map[string]any{
		"service.name":     "xamctl",
		"service.version":  Version,
		"metrics.exporter": string(xexport.ExporterPrometheus),
		"metrics.interval": xexport.DefaultInterval.String(),
		"listen":           ":9464",
		"shutdown_timeout": "10s",
		"log.level":        "info",
		"log.format":       "text",
	}
}

// loadConfig 读取配置文件，path 为空时只使用默认值。
// 返回的 xconf.Config 在 path 非空时可被 Watch。
func loadConfig(path string) (xconf.Config, appConfig, error) {
	var (
		cfg xconf.Config
		err error
	)
	if path == "" {
		cfg, err = xconf.NewFromBytes([]byte("{}\n"), xconf.FormatYAML, xconf.WithDefaults(configDefaults()))
	} else {
		cfg, err = xconf.New(path, xconf.WithDefaults(configDefaults()))
	}
	if err != nil {
		return nil, appConfig{}, err
	}
	app, err := xconf.Load[appConfig](cfg, "")
	if err != nil {
		return nil, appConfig{}, err
	}
	return cfg, app, nil
}

// exportConfig 转换为 xexport.Config。
func (c appConfig) exportConfig() xexport.Config {
	return xexport.Config{
		ServiceName:    c.Service.Name,
		ServiceVersion: c.Service.Version,
		Exporter:       c.Metrics.Exporter,
		Interval:       c.Metrics.Interval,
	}
}

// registry 校验并构建目标注册表。
func (c appConfig) registry() (*xslo.Registry, error) {
	reg, err := xslo.RegistryFromDefinitions(c.Objectives)
	if err != nil {
		return nil, fmt.Errorf("objectives: %w", err)
	}
	return reg, nil
}
