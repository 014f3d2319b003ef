package xmetrics

import (
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/omeyang/xautometrics/pkg/observability/xslo"
)

// 标签名称。
const (
	KeyFunction                  = "function"
	KeyModule                    = "module"
	KeyCaller                    = "caller"
	KeyResult                    = "result"
	KeyObjectiveName             = "objective.name"
	KeyObjectivePercentile       = "objective.percentile"
	KeyObjectiveLatencyThreshold = "objective.latency_threshold"
)

// Label 是一个标签键值对。
type Label struct {
	Key   string
	Value string
}

// LabelSet 是一次记录所携带的有序标签集合。
//
// LabelSet 由 BuildLabels 等构建函数生成，构建后不可修改。
// 键的顺序由构建函数固定，相同输入总是得到逐字节相同的集合，
// 后端据此对序列做正确聚合。
type LabelSet struct {
	labels []Label
}

// NewLabelSet 按给定顺序创建 LabelSet，拷贝入参。
func NewLabelSet(labels ...Label) LabelSet {
	if len(labels) == 0 {
		return LabelSet{}
	}
	out := make([]Label, len(labels))
	copy(out, labels)
	return LabelSet{labels: out}
}

// Len 返回标签数量。
func (s LabelSet) Len() int { return len(s.labels) }

// Get 返回 key 对应的值。
func (s LabelSet) Get(key string) (string, bool) {
	for _, l := range s.labels {
		if l.Key == key {
			return l.Value, true
		}
	}
	return "", false
}

// Has 判断是否包含 key。
func (s LabelSet) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Labels 返回标签副本。
func (s LabelSet) Labels() []Label {
	out := make([]Label, len(s.labels))
	copy(out, s.labels)
	return out
}

// Keys 按顺序返回所有键。
func (s LabelSet) Keys() []string {
	keys := make([]string, len(s.labels))
	for i, l := range s.labels {
		keys[i] = l.Key
	}
	return keys
}

// Equal 判断两个集合是否逐项相同（含顺序）。
func (s LabelSet) Equal(other LabelSet) bool {
	if len(s.labels) != len(other.labels) {
		return false
	}
	for i := range s.labels {
		if s.labels[i] != other.labels[i] {
			return false
		}
	}
	return true
}

// String 返回 {k="v",...} 形式的文本，用于日志和快照排序。
func (s LabelSet) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, l := range s.labels {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(l.Key)
		b.WriteString(`="`)
		b.WriteString(l.Value)
		b.WriteByte('"')
	}
	b.WriteByte('}')
	return b.String()
}

// Fingerprint 返回集合的 64 位指纹，相同集合指纹相同。
func (s LabelSet) Fingerprint() uint64 {
	d := xxhash.New()
	for _, l := range s.labels {
		_, _ = d.WriteString(l.Key)
		_, _ = d.Write([]byte{0xff})
		_, _ = d.WriteString(l.Value)
		_, _ = d.Write([]byte{0xfe})
	}
	return d.Sum64()
}

// Attributes 转换为 OTel 属性集。
func (s LabelSet) Attributes() attribute.Set {
	kvs := make([]attribute.KeyValue, len(s.labels))
	for i, l := range s.labels {
		kvs[i] = attribute.String(l.Key, l.Value)
	}
	return attribute.NewSet(kvs...)
}

// NormalizeModule 将层级命名空间路径的分隔符统一为 "."。
//
// Go 包路径的 "/" 与其他语言常见的 "::" 都会被替换，
// 例如 "github.com/acme/api" -> "github.com.acme.api"，"crate::api" -> "crate.api"。
func NormalizeModule(path string) string {
	path = strings.ReplaceAll(path, "::", ".")
	path = strings.ReplaceAll(path, "/", ".")
	return strings.Trim(path, ".")
}

// LabelInput 是构建标签所需的全部输入：调用点静态配置加上本次调用的结果。
type LabelInput struct {
	Function  string
	Module    string
	Caller    string
	Outcome   Outcome
	Objective xslo.Objective
}

// BuildLabels 构建计数器标签。
//
// 顺序：function, module, caller, [result], [ok|error], [objective.name, objective.percentile]。
// caller 总是存在（没有调用方时为空字符串）；result 仅在 Outcome 有状态时存在；
// 结果值标签的键即状态本身（ok 或 error），仅在 Outcome.Value 非空时存在；
// 目标标签仅在目标设置了成功率时存在。
func BuildLabels(in LabelInput) LabelSet {
	labels := make([]Label, 0, 7)
	labels = append(labels,
		Label{KeyFunction, in.Function},
		Label{KeyModule, NormalizeModule(in.Module)},
		Label{KeyCaller, in.Caller},
	)
	if in.Outcome.Status.IsValid() {
		labels = append(labels, Label{KeyResult, string(in.Outcome.Status)})
		if in.Outcome.Value != "" {
			labels = append(labels, Label{string(in.Outcome.Status), in.Outcome.Value})
		}
	}
	if p, ok := in.Objective.SuccessRateTarget(); ok {
		labels = append(labels,
			Label{KeyObjectiveName, in.Objective.Name()},
			Label{KeyObjectivePercentile, p.String()},
		)
	}
	return LabelSet{labels: labels}
}

// HistogramLabels 构建延迟直方图标签。
//
// 顺序：function, module, [objective.name, objective.percentile, objective.latency_threshold]。
// 目标标签仅在目标设置了延迟要求时存在。
func HistogramLabels(in LabelInput) LabelSet {
	labels := make([]Label, 0, 5)
	labels = append(labels,
		Label{KeyFunction, in.Function},
		Label{KeyModule, NormalizeModule(in.Module)},
	)
	if threshold, p, ok := in.Objective.LatencyTarget(); ok {
		labels = append(labels,
			Label{KeyObjectiveName, in.Objective.Name()},
			Label{KeyObjectivePercentile, p.String()},
			Label{KeyObjectiveLatencyThreshold, threshold.String()},
		)
	}
	return LabelSet{labels: labels}
}

// ConcurrencyLabels 构建并发 gauge 标签：function, module, caller（不含 result）。
func ConcurrencyLabels(in LabelInput) LabelSet {
	return LabelSet{labels: []Label{
		{KeyFunction, in.Function},
		{KeyModule, NormalizeModule(in.Module)},
		{KeyCaller, in.Caller},
	}}
}
