package xmetrics

import (
	"fmt"
	"maps"
)

// ErrorLabels 是枚举型错误的声明式结果标注：每个取值被标注为 ok 或 error，
// 未标注的取值默认为 error。
//
// 示例：
//
//	type ServiceError int
//
//	const (
//		Database ServiceError = iota
//		Network
//		Authentication
//		Authorization
//	)
//
//	var serviceErrorLabels = xmetrics.MustErrorLabels(map[ServiceError]xmetrics.Status{
//		Authentication: xmetrics.StatusOK,
//		Authorization:  xmetrics.StatusOK,
//	})
//
//	func (e ServiceError) ResultLabel() xmetrics.Status { return serviceErrorLabels.Lookup(e) }
//
// 这样返回 Authentication 的调用在指标上记为 result=ok，不消耗错误预算。
type ErrorLabels[E comparable] struct {
	tags map[E]Status
}

// NewErrorLabels 创建标注表。标注值只能是 StatusOK 或 StatusError，
// 否则返回 ErrInvalidStatus。入参被拷贝，之后对其修改不影响标注表。
func NewErrorLabels[E comparable](tags map[E]Status) (ErrorLabels[E], error) {
	for k, s := range tags {
		if !s.IsValid() {
			return ErrorLabels[E]{}, fmt.Errorf("%w: %v => %q", ErrInvalidStatus, k, s)
		}
	}
	return ErrorLabels[E]{tags: maps.Clone(tags)}, nil
}

// MustErrorLabels 与 NewErrorLabels 相同，非法时 panic。用于包级变量声明。
func MustErrorLabels[E comparable](tags map[E]Status) ErrorLabels[E] {
	l, err := NewErrorLabels(tags)
	if err != nil {
		panic(err)
	}
	return l
}

// Lookup 返回 e 的标注，未标注时返回 StatusError。
func (l ErrorLabels[E]) Lookup(e E) Status {
	if s, ok := l.tags[e]; ok {
		return s
	}
	return StatusError
}
