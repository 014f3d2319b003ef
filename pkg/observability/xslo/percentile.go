package xslo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Percentile 表示目标百分位，取值为固定枚举集合。
//
// 字符串值即写入 objective.percentile 标签的文本。
type Percentile string

// 支持的百分位。
const (
	P90   Percentile = "90"
	P95   Percentile = "95"
	P99   Percentile = "99"
	P99_9 Percentile = "99.9"
)

var percentiles = [...]Percentile{P90, P95, P99, P99_9}

// String 返回标签文本。
func (p Percentile) String() string { return string(p) }

// IsValid 判断是否为支持的百分位。
func (p Percentile) IsValid() bool {
	for _, v := range percentiles {
		if p == v {
			return true
		}
	}
	return false
}

// ParsePercentile 解析百分位文本，接受 "99.9"、"99.9%"、"p99.9" 等写法。
func ParsePercentile(s string) (Percentile, error) {
	v := strings.TrimSpace(s)
	v = strings.TrimPrefix(strings.TrimPrefix(v, "p"), "P")
	v = strings.TrimSuffix(v, "%")
	v = strings.ReplaceAll(v, "_", ".")
	p := Percentile(v)
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPercentile, s)
	}
	return p, nil
}

// Latency 表示延迟阈值。
//
// 阈值与直方图桶边界一一对应，这样下游查询可以直接用某个桶的累计计数
// 计算"低于阈值的比例"。字符串值为以秒为单位的标签文本。
type Latency string

// 支持的延迟阈值。
const (
	Ms10    Latency = "0.01"
	Ms25    Latency = "0.025"
	Ms50    Latency = "0.05"
	Ms75    Latency = "0.075"
	Ms100   Latency = "0.1"
	Ms250   Latency = "0.25"
	Ms500   Latency = "0.5"
	Ms750   Latency = "0.75"
	Ms1000  Latency = "1"
	Ms2500  Latency = "2.5"
	Ms5000  Latency = "5"
	Ms7500  Latency = "7.5"
	Ms10000 Latency = "10"
)

var latencies = [...]Latency{
	Ms10, Ms25, Ms50, Ms75, Ms100, Ms250, Ms500, Ms750,
	Ms1000, Ms2500, Ms5000, Ms7500, Ms10000,
}

// String 返回标签文本。
func (l Latency) String() string { return string(l) }

// IsValid 判断是否为支持的延迟阈值。
func (l Latency) IsValid() bool {
	for _, v := range latencies {
		if l == v {
			return true
		}
	}
	return false
}

// Seconds 返回阈值秒数；非法阈值返回 0。
func (l Latency) Seconds() float64 {
	if !l.IsValid() {
		return 0
	}
	f, err := strconv.ParseFloat(string(l), 64)
	if err != nil {
		return 0
	}
	return f
}

// Duration 返回阈值对应的 time.Duration。
func (l Latency) Duration() time.Duration {
	return time.Duration(math.Round(l.Seconds() * float64(time.Second)))
}

// ParseLatency 解析延迟阈值，接受 Go duration 写法（"250ms"）或秒数（"0.25"）。
func ParseLatency(s string) (Latency, error) {
	v := strings.TrimSpace(s)
	if d, err := time.ParseDuration(v); err == nil {
		return LatencyOf(d)
	}
	if l := Latency(v); l.IsValid() {
		return l, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidLatency, s)
	}
	return LatencyOf(time.Duration(math.Round(f * float64(time.Second))))
}

// LatencyOf 将 duration 映射为支持的阈值，不在集合内时返回错误。
func LatencyOf(d time.Duration) (Latency, error) {
	for _, l := range latencies {
		if l.Duration() == d {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidLatency, d)
}

// Percentiles 返回支持的百分位，从低到高。
func Percentiles() []Percentile {
	return append([]Percentile(nil), percentiles[:]...)
}

// Latencies 返回支持的延迟阈值，从小到大。
func Latencies() []Latency {
	return append([]Latency(nil), latencies[:]...)
}
