package xmetrics

import "context"

// Func 是返回 (T, error) 的函数的观测包装器，结果按 ResultClassifier 判定。
//
// Func 在初始化阶段构建一次，可被任意多个 goroutine 并发使用。
type Func[T any] struct {
	tracker    Tracker
	site       Site
	classifier Classifier[T]
}

// NewFunc 创建 Func。tracker 为 nil 时使用 NoopTracker。
func NewFunc[T any](tracker Tracker, site Site) *Func[T] {
	if tracker == nil {
		tracker = NoopTracker{}
	}
	return &Func[T]{tracker: tracker, site: site, classifier: ResultClassifier[T]()}
}

// Call 执行 fn 并记录指标。fn 收到的 ctx 以本调用点为当前调用方帧。
//
// fn 发生 panic 时记为 error，然后原样重新抛出；
// fn 调用 runtime.Goexit 未正常返回时同样记为 error。
func (f *Func[T]) Call(ctx context.Context, fn func(context.Context) (T, error)) (v T, err error) {
	ctx, call := Start(ctx, f.tracker, f.site)
	completed := false
	defer func() {
		if r := recover(); r != nil {
			call.End(Outcome{Status: StatusError})
			panic(r)
		}
		if !completed {
			call.End(Outcome{Status: StatusError})
			return
		}
		call.End(safeClassify(f.classifier, v, err))
	}()
	v, err = fn(ctx)
	completed = true
	return v, err
}

// Site 返回调用点。
func (f *Func[T]) Site() Site { return f.site }

// ValueFunc 是不返回 error 的函数的观测包装器，结果由 OkIf / ErrorIf 判定。
// 未配置判定函数时不输出 result 标签。
type ValueFunc[T any] struct {
	tracker    Tracker
	site       Site
	classifier Classifier[T]
}

// NewValueFunc 创建 ValueFunc。判定函数配置错误在此返回。
func NewValueFunc[T any](tracker Tracker, site Site, opts ...PredicateOption[T]) (*ValueFunc[T], error) {
	classifier, err := NewPredicateClassifier(opts...)
	if err != nil {
		return nil, err
	}
	if tracker == nil {
		tracker = NoopTracker{}
	}
	return &ValueFunc[T]{tracker: tracker, site: site, classifier: classifier}, nil
}

// MustValueFunc 同 NewValueFunc，出错时 panic。
func MustValueFunc[T any](tracker Tracker, site Site, opts ...PredicateOption[T]) *ValueFunc[T] {
	f, err := NewValueFunc(tracker, site, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

// Call 执行 fn 并记录指标。panic 时记为 error 并重新抛出。
func (f *ValueFunc[T]) Call(ctx context.Context, fn func(context.Context) T) (v T) {
	ctx, call := Start(ctx, f.tracker, f.site)
	completed := false
	defer func() {
		if r := recover(); r != nil {
			call.End(Outcome{Status: StatusError})
			panic(r)
		}
		if !completed {
			call.End(Outcome{Status: StatusError})
			return
		}
		call.End(safeClassify(f.classifier, v, nil))
	}()
	v = fn(ctx)
	completed = true
	return v
}

// Site 返回调用点。
func (f *ValueFunc[T]) Site() Site { return f.site }

// Run 以 site 观测一次只返回 error 的调用。
func Run(ctx context.Context, tracker Tracker, site Site, fn func(context.Context) error) (err error) {
	ctx, call := Start(ctx, tracker, site)
	completed := false
	defer func() {
		if r := recover(); r != nil {
			call.End(Outcome{Status: StatusError})
			panic(r)
		}
		if !completed {
			call.End(Outcome{Status: StatusError})
			return
		}
		call.EndErr(err)
	}()
	err = fn(ctx)
	completed = true
	return err
}

// safeClassify 调用分类器，分类器自身 panic 时按 error 处理。
func safeClassify[T any](c Classifier[T], v T, err error) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Status: StatusError}
		}
	}()
	return c.Classify(v, err)
}
