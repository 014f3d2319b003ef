package xslo

import (
	"fmt"
	"strings"
)

// Objective 描述一个具名的服务等级目标（SLO）。
//
// Objective 是值类型，所有构建方法返回新值、不修改接收者，
// 因此可以定义为包级变量并被任意多个调用点、任意多个 goroutine 共享读取。
// 百分位本身由下游查询引擎计算，Objective 只提供需要附加到指标上的元数据。
//
// 示例：
//
//	var apiSLO = xslo.Must(xslo.New("api").
//		SuccessRate(xslo.P99_9).
//		Latency(xslo.Ms250, xslo.P99))
type Objective struct {
	name string

	successRate Percentile

	latencyThreshold  Latency
	latencyPercentile Percentile
}

// New 创建名为 name 的目标，尚未附加任何要求。
func New(name string) Objective {
	return Objective{name: strings.TrimSpace(name)}
}

// SuccessRate 返回附加了成功率要求的新目标：
// 在 p 百分位上调用应当成功（result=ok）。
func (o Objective) SuccessRate(p Percentile) Objective {
	o.successRate = p
	return o
}

// Latency 返回附加了延迟要求的新目标：
// p 百分位的调用应在 threshold 内完成。
func (o Objective) Latency(threshold Latency, p Percentile) Objective {
	o.latencyThreshold = threshold
	o.latencyPercentile = p
	return o
}

// Name 返回目标名称。
func (o Objective) Name() string { return o.name }

// SuccessRateTarget 返回成功率百分位，未设置时 ok 为 false。
func (o Objective) SuccessRateTarget() (Percentile, bool) {
	return o.successRate, o.successRate != ""
}

// LatencyTarget 返回延迟阈值与百分位，未设置时 ok 为 false。
func (o Objective) LatencyTarget() (Latency, Percentile, bool) {
	if o.latencyThreshold == "" && o.latencyPercentile == "" {
		return "", "", false
	}
	return o.latencyThreshold, o.latencyPercentile, true
}

// IsZero 判断是否为零值（未通过 New 创建）。
func (o Objective) IsZero() bool {
	return o == Objective{}
}

// Validate 校验目标定义。
//
// 设计决策: 校验放在定义期（Must/NewRegistry/调用点配置构造）执行，
// 调用热路径只读取已校验的值，不会因为配置错误而影响业务延迟。
func (o Objective) Validate() error {
	if o.name == "" {
		return ErrEmptyName
	}
	_, hasSuccess := o.SuccessRateTarget()
	threshold, latencyP, hasLatency := o.LatencyTarget()
	if !hasSuccess && !hasLatency {
		return fmt.Errorf("%w: %s", ErrNoTarget, o.name)
	}
	if hasSuccess && !o.successRate.IsValid() {
		return fmt.Errorf("%w: %s: success rate %q", ErrInvalidPercentile, o.name, o.successRate)
	}
	if hasLatency {
		if !threshold.IsValid() {
			return fmt.Errorf("%w: %s: %q", ErrInvalidLatency, o.name, threshold)
		}
		if !latencyP.IsValid() {
			return fmt.Errorf("%w: %s: latency %q", ErrInvalidPercentile, o.name, latencyP)
		}
	}
	return nil
}

// Must 校验 o 并返回，非法时 panic。用于包级变量声明。
func Must(o Objective) Objective {
	if err := o.Validate(); err != nil {
		panic(err)
	}
	return o
}

// String 返回便于日志阅读的描述。
func (o Objective) String() string {
	var b strings.Builder
	b.WriteString(o.name)
	if p, ok := o.SuccessRateTarget(); ok {
		b.WriteString(" success_rate=p")
		b.WriteString(p.String())
	}
	if l, p, ok := o.LatencyTarget(); ok {
		b.WriteString(" latency<")
		b.WriteString(l.String())
		b.WriteString("s@p")
		b.WriteString(p.String())
	}
	return b.String()
}
