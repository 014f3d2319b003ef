package xmetrics

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/omeyang/xautometrics/pkg/observability/xslo"
)

// Site 描述一个被观测的调用点：函数名、模块、可选的目标以及是否跟踪并发。
//
// Site 是值类型，在包级变量或初始化阶段构建一次，之后只读共享。
// 所有配置错误都在 NewSite 时返回，调用路径上不会再出现配置错误。
type Site struct {
	function    string
	module      string
	objective   xslo.Objective
	concurrency bool
}

type siteConfig struct {
	module      string
	moduleSet   bool
	objective   xslo.Objective
	concurrency bool
}

// SiteOption 配置 Site。
type SiteOption func(*siteConfig)

// WithModule 设置模块路径，会经过 NormalizeModule 规范化。
func WithModule(module string) SiteOption {
	return func(c *siteConfig) {
		c.module = module
		c.moduleSet = true
	}
}

// WithObjective 关联服务等级目标。
func WithObjective(o xslo.Objective) SiteOption {
	return func(c *siteConfig) {
		c.objective = o
	}
}

// WithConcurrencyTracking 启用并发 gauge。
func WithConcurrencyTracking() SiteOption {
	return func(c *siteConfig) {
		c.concurrency = true
	}
}

// NewSite 创建调用点。未指定 WithModule 时，模块取调用 NewSite 的包路径。
func NewSite(function string, opts ...SiteOption) (Site, error) {
	function = strings.TrimSpace(function)
	if function == "" {
		return Site{}, ErrEmptyFunction
	}
	cfg := &siteConfig{}
	for _, opt := range opts {
		if opt == nil {
			return Site{}, ErrNilOption
		}
		opt(cfg)
	}
	if !cfg.moduleSet {
		cfg.module = callerPackage(2)
	}
	return newSite(function, cfg)
}

// MustSite 同 NewSite，出错时 panic，用于包级变量声明。
func MustSite(function string, opts ...SiteOption) Site {
	cfg := &siteConfig{}
	for _, opt := range opts {
		if opt == nil {
			panic(ErrNilOption)
		}
		opt(cfg)
	}
	if !cfg.moduleSet {
		opts = append(opts, WithModule(callerPackage(2)))
	}
	s, err := NewSite(function, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// SiteHere 以调用方函数自身作为调用点：函数名和模块由程序计数器推导。
// 方法渲染为 "T.Method"，闭包渲染为 "outer.func1"。
func SiteHere(opts ...SiteOption) (Site, error) {
	cfg := &siteConfig{}
	for _, opt := range opts {
		if opt == nil {
			return Site{}, ErrNilOption
		}
		opt(cfg)
	}
	pkg, fn := callerFunc(2)
	if fn == "" {
		return Site{}, ErrEmptyFunction
	}
	if !cfg.moduleSet {
		cfg.module = pkg
	}
	return newSite(fn, cfg)
}

func newSite(function string, cfg *siteConfig) (Site, error) {
	if !cfg.objective.IsZero() {
		if err := cfg.objective.Validate(); err != nil {
			return Site{}, fmt.Errorf("xmetrics: site %q: %w", function, err)
		}
	}
	return Site{
		function:    function,
		module:      NormalizeModule(cfg.module),
		objective:   cfg.objective,
		concurrency: cfg.concurrency,
	}, nil
}

// Function 返回函数名。
func (s Site) Function() string { return s.function }

// Module 返回规范化后的模块路径。
func (s Site) Module() string { return s.module }

// Objective 返回关联的目标，未设置时为零值。
func (s Site) Objective() xslo.Objective { return s.objective }

// TracksConcurrency 报告是否启用并发 gauge。
func (s Site) TracksConcurrency() bool { return s.concurrency }

// IsZero 报告 s 是否为未初始化的零值。
func (s Site) IsZero() bool { return s.function == "" }

func (s Site) input(caller string, out Outcome) LabelInput {
	return LabelInput{
		Function:  s.function,
		Module:    s.module,
		Caller:    caller,
		Outcome:   out,
		Objective: s.objective,
	}
}

// callerPackage 返回调用栈上第 skip 层函数所在的包路径。
func callerPackage(skip int) string {
	pkg, _ := callerFunc(skip + 1)
	return pkg
}

// callerFunc 返回调用栈上第 skip 层函数的包路径和函数名。
// 使用 CallersFrames 以正确处理内联帧。
func callerFunc(skip int) (pkg, fn string) {
	var pcs [1]uintptr
	if runtime.Callers(skip+1, pcs[:]) == 0 {
		return "", ""
	}
	frame, _ := runtime.CallersFrames(pcs[:]).Next()
	if frame.Function == "" {
		return "", ""
	}
	return splitFuncName(frame.Function)
}

// splitFuncName 把运行时函数全名拆分为包路径和函数名。
//
//	"github.com/acme/api.(*Server).Handle"  -> "github.com/acme/api", "Server.Handle"
//	"github.com/acme/api.list[...]"         -> "github.com/acme/api", "list"
//	"github.com/acme/api.Handle.func1"      -> "github.com/acme/api", "Handle.func1"
func splitFuncName(full string) (pkg, fn string) {
	// 包路径中最后一个 "/" 之后的第一个 "." 分隔包名与函数名。
	slash := strings.LastIndex(full, "/")
	dot := strings.Index(full[slash+1:], ".")
	if dot < 0 {
		return "", full
	}
	dot += slash + 1
	pkg, fn = full[:dot], full[dot+1:]

	fn = strings.TrimSuffix(fn, "-fm")
	fn = strings.ReplaceAll(fn, "[...]", "")
	fn = strings.ReplaceAll(fn, "(*", "")
	fn = strings.ReplaceAll(fn, "(", "")
	fn = strings.ReplaceAll(fn, ")", "")
	return pkg, fn
}
