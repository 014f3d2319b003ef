package xmiddleware

import (
	"net/http"
	"strconv"

	"github.com/omeyang/xautometrics/pkg/observability/xmetrics"
)

// HTTP 返回记录每个请求的中间件。
//
// function 标签是路由名（见 WithRouteName），module 默认 "http"。
// 状态码满足 WithErrorStatus（默认 >= 500）时 result=error，否则 result=ok；
// ok/error 标签的值是状态码区间，如 "2xx"、"4xx"。
// handler 的 ctx 以路由名为当前调用方帧，内部被观测函数的 caller 即路由名。
//
// handler panic 时记为 error 并重新抛出，交给 net/http 处理。
func HTTP(tracker xmetrics.Tracker, opts ...Option) (func(http.Handler) http.Handler, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	classifier, err := xmetrics.NewPredicateClassifier(xmetrics.ErrorIf(func(s httpStatus) bool {
		return cfg.errorIf(int(s))
	}))
	if err != nil {
		return nil, err
	}
	module := DefaultHTTPModule
	if cfg.moduleSet {
		module = cfg.module
	}
	cache, err := newSiteCache(cfg)
	if err != nil {
		return nil, err
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			site := cache.site(cfg.route(r), module)
			ctx, call := xmetrics.Start(r.Context(), tracker, site)
			rec := &statusRecorder{ResponseWriter: w}
			defer func() {
				if p := recover(); p != nil {
					call.End(xmetrics.Outcome{Status: xmetrics.StatusError, Value: StatusClass(http.StatusInternalServerError)})
					panic(p)
				}
				call.End(classifier.Classify(httpStatus(rec.statusCode()), nil))
			}()
			next.ServeHTTP(rec, r.WithContext(ctx))
		})
	}, nil
}

// MustHTTP 同 HTTP，配置错误时 panic。
func MustHTTP(tracker xmetrics.Tracker, opts ...Option) func(http.Handler) http.Handler {
	mw, err := HTTP(tracker, opts...)
	if err != nil {
		panic(err)
	}
	return mw
}

// StatusClass 返回状态码区间，如 204 -> "2xx"。100-599 以外返回 "other"。
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "other"
	}
	return strconv.Itoa(status/100) + "xx"
}

// httpStatus 以状态码区间作为结果值标签。
type httpStatus int

func (s httpStatus) LabelValue() string { return StatusClass(int(s)) }

// statusRecorder 记录第一个最终状态码；1xx 信息响应不计。
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 && code >= http.StatusOK {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Unwrap 供 http.ResponseController 访问底层 ResponseWriter。
func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// statusCode 返回记录的状态码，handler 什么都没写时 net/http 会回 200。
func (r *statusRecorder) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}
