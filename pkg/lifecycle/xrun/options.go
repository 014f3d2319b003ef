package xrun

import (
	"os"

	"github.com/omeyang/xautometrics/pkg/observability/xlog"
	"github.com/omeyang/xautometrics/pkg/observability/xmetrics"
	"github.com/omeyang/xautometrics/pkg/observability/xslo"
)

// DefaultGroupName 是未设置 WithName 时的 Group 名称，也是服务指标的 module 标签。
const DefaultGroupName = "xrun"

// Option 配置 Group。
type Option func(*groupOptions)

type groupOptions struct {
	logger          xlog.Logger
	name            string
	signals         []os.Signal
	noSignalHandler bool
	tracker         xmetrics.Tracker
	objectives      map[string]xslo.Objective
}

func defaultOptions() *groupOptions {
	return &groupOptions{
		logger: xlog.Default(),
		name:   DefaultGroupName,
	}
}

// WithLogger 设置记录服务启停的 Logger，默认 xlog.Default()。nil 被忽略。
func WithLogger(logger xlog.Logger) Option {
	return func(o *groupOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithName 设置 Group 名称，空字符串被忽略。
//
// 名称出现在日志的 component 属性中；启用 WithTracker 时它也是
// 服务指标的 module 标签。
func WithName(name string) Option {
	return func(o *groupOptions) {
		if name != "" {
			o.name = name
		}
	}
}

// WithSignals 覆盖 Run 系列函数监听的信号，默认 DefaultSignals()。
// 传入空列表等价于使用默认值，要关闭信号处理请用 WithoutSignalHandler。
func WithSignals(signals []os.Signal) Option {
	copied := append([]os.Signal(nil), signals...)
	return func(o *groupOptions) {
		o.signals = copied
	}
}

// WithoutSignalHandler 关闭 Run 系列函数的自动信号监听。
func WithoutSignalHandler() Option {
	return func(o *groupOptions) {
		o.noSignalHandler = true
	}
}

// WithTracker 把每个具名服务的运行作为一次被观测调用记录。
//
// function 标签是服务名，module 标签是 Group 名称，并发 gauge 始终开启，
// 因此 function.calls.concurrent 反映当前存活的服务实例数。
// Group 被取消导致的 context.Canceled 记为 ok。
// 匿名服务（Go）不被观测。
func WithTracker(tracker xmetrics.Tracker) Option {
	return func(o *groupOptions) {
		o.tracker = tracker
	}
}

// WithServiceObjective 为指定服务声明目标，仅在 WithTracker 生效时使用。
// 可多次调用，同名服务以最后一次为准。
func WithServiceObjective(service string, objective xslo.Objective) Option {
	return func(o *groupOptions) {
		if o.objectives == nil {
			o.objectives = make(map[string]xslo.Objective)
		}
		o.objectives[service] = objective
	}
}
