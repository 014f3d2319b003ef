package xmetrics

// Status 表示调用结果状态。空值表示不输出 result 标签。
type Status string

const (
	// StatusOK 表示成功。
	StatusOK Status = "ok"
	// StatusError 表示失败。
	StatusError Status = "error"
)

// IsValid 判断是否为 ok 或 error。
func (s Status) IsValid() bool {
	return s == StatusOK || s == StatusError
}

// Outcome 是一次调用的分类结果。
type Outcome struct {
	// Status 为空时不输出 result 标签。
	Status Status
	// Value 非空时作为 ok/error 标签的值（键与 Status 相同）。
	Value string
}

// ResultLabeler 由错误类型或返回值类型实现，声明这次结果在指标上算作 ok 还是 error。
//
// 典型用法是"成功地拒绝了非法请求"这类业务错误：函数返回了 error，
// 但不应消耗服务的错误预算。见 ErrorLabels。返回值实现时同样生效，
// 例如携带失败状态的响应体。谓词分类器（OkIf/ErrorIf）以谓词为准，不读取此接口。
type ResultLabeler interface {
	ResultLabel() Status
}

// LabelValuer 由返回值或错误类型实现，提供稳定的字符串作为 ok/error 标签值，
// 例如 HTTP 状态码区间或错误种类名称。返回空字符串表示不输出该标签。
//
// 设计决策: 不复用 fmt.Stringer / error.Error()：这两者的输出通常包含
// 请求相关的动态内容，直接作为标签会造成序列基数爆炸。
type LabelValuer interface {
	LabelValue() string
}

// Classifier 根据返回值和错误判定调用结果。
type Classifier[T any] interface {
	Classify(v T, err error) Outcome
}

// ClassifierFunc 将函数适配为 Classifier。
type ClassifierFunc[T any] func(v T, err error) Outcome

// Classify 实现 Classifier。
func (f ClassifierFunc[T]) Classify(v T, err error) Outcome { return f(v, err) }

// NoResult 返回不输出 result 标签的分类器。
func NoResult[T any]() Classifier[T] {
	return ClassifierFunc[T](func(T, error) Outcome { return Outcome{} })
}

// =============================================================================
// Result 分类
// =============================================================================

type resultClassifier[T any] struct{}

// ResultClassifier 返回按 (T, error) 判定的分类器：
//   - err == nil 默认为 ok；v 实现 ResultLabeler 时可以改判为 error；
//     v 实现 LabelValuer 时其值作为结果值标签
//   - err != nil 默认为 error；错误链中实现 ResultLabeler 的错误可以改判为 ok；
//     错误链中实现 LabelValuer 的错误提供 error/ok 标签值
//
// 错误链可能多层包装（fmt.Errorf %w、errors.Join），多个错误同时声明时
// 以最内层（包装深度最大）的声明为准，同一深度取遍历顺序中的第一个。
func ResultClassifier[T any]() Classifier[T] {
	return resultClassifier[T]{}
}

func (resultClassifier[T]) Classify(v T, err error) Outcome {
	if err == nil {
		out := Outcome{Status: StatusOK}
		if rl, ok := any(v).(ResultLabeler); ok {
			if s := rl.ResultLabel(); s.IsValid() {
				out.Status = s
			}
		}
		out.Value = labelValue(v)
		return out
	}
	return OutcomeOf(err)
}

// labelValue 返回 v 的 LabelValue，未实现 LabelValuer 时为空。
func labelValue[T any](v T) string {
	if lv, ok := any(v).(LabelValuer); ok {
		return lv.LabelValue()
	}
	return ""
}

// OutcomeOf 按错误判定结果，规则同 ResultClassifier。
func OutcomeOf(err error) Outcome {
	if err == nil {
		return Outcome{Status: StatusOK}
	}
	out := Outcome{Status: StatusError}
	if rl, ok := innermost[ResultLabeler](err); ok {
		if s := rl.ResultLabel(); s.IsValid() {
			out.Status = s
		}
	}
	if lv, ok := innermost[LabelValuer](err); ok {
		out.Value = lv.LabelValue()
	}
	return out
}

// innermost 在错误树中查找包装深度最大的 I 实现。
func innermost[I any](err error) (I, bool) {
	var (
		found I
		ok    bool
		best  = -1
	)
	var walk func(e error, depth int)
	walk = func(e error, depth int) {
		for e != nil {
			if v, is := any(e).(I); is && depth > best {
				found, ok, best = v, true, depth
			}
			switch u := e.(type) {
			case interface{ Unwrap() []error }:
				for _, inner := range u.Unwrap() {
					walk(inner, depth+1)
				}
				return
			case interface{ Unwrap() error }:
				e = u.Unwrap()
				depth++
			default:
				return
			}
		}
	}
	walk(err, 0)
	return found, ok
}

// =============================================================================
// 判定函数分类（ok_if / error_if）
// =============================================================================

// PredicateOption 配置判定函数分类器。
type PredicateOption[T any] func(*predicateConfig[T])

type predicateConfig[T any] struct {
	okIf    func(T) bool
	errorIf func(T) bool
	nilSet  bool
	count   int
}

// OkIf 设置成功判定：返回 true 记为 ok，否则记为 error。
func OkIf[T any](p func(T) bool) PredicateOption[T] {
	return func(c *predicateConfig[T]) {
		c.count++
		if p == nil {
			c.nilSet = true
			return
		}
		c.okIf = p
	}
}

// ErrorIf 设置失败判定：返回 true 记为 error，否则记为 ok。
func ErrorIf[T any](p func(T) bool) PredicateOption[T] {
	return func(c *predicateConfig[T]) {
		c.count++
		if p == nil {
			c.nilSet = true
			return
		}
		c.errorIf = p
	}
}

type predicateClassifier[T any] struct {
	okIf    func(T) bool
	errorIf func(T) bool
}

// NewPredicateClassifier 创建基于判定函数的分类器，用于不返回 error 的函数。
//
// 至多配置一个 OkIf 或 ErrorIf；同时配置返回 ErrConflictingPredicates。
// 都不配置时分类器不输出 result 标签。
func NewPredicateClassifier[T any](opts ...PredicateOption[T]) (Classifier[T], error) {
	cfg := &predicateConfig[T]{}
	for _, opt := range opts {
		if opt == nil {
			return nil, ErrNilOption
		}
		opt(cfg)
	}
	if cfg.nilSet {
		return nil, ErrNilPredicate
	}
	if cfg.count > 1 {
		return nil, ErrConflictingPredicates
	}
	if cfg.count == 0 {
		return NoResult[T](), nil
	}
	return predicateClassifier[T]{okIf: cfg.okIf, errorIf: cfg.errorIf}, nil
}

func (c predicateClassifier[T]) Classify(v T, _ error) Outcome {
	out := Outcome{Status: StatusOK, Value: labelValue(v)}
	switch {
	case c.okIf != nil && !c.okIf(v):
		out.Status = StatusError
	case c.errorIf != nil && c.errorIf(v):
		out.Status = StatusError
	}
	return out
}
