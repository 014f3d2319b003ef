package xmiddleware

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/omeyang/xautometrics/pkg/observability/xmetrics"
)

// GRPCCodeLabels 是 gRPC 状态码的默认标注：调用方造成的失败记为 ok，
// 不消耗服务端的错误预算。未列出的状态码记为 error。
var GRPCCodeLabels = xmetrics.MustErrorLabels(map[codes.Code]xmetrics.Status{
	codes.OK:                 xmetrics.StatusOK,
	codes.Canceled:           xmetrics.StatusOK,
	codes.InvalidArgument:    xmetrics.StatusOK,
	codes.NotFound:           xmetrics.StatusOK,
	codes.AlreadyExists:      xmetrics.StatusOK,
	codes.PermissionDenied:   xmetrics.StatusOK,
	codes.FailedPrecondition: xmetrics.StatusOK,
	codes.OutOfRange:         xmetrics.StatusOK,
	codes.Unauthenticated:    xmetrics.StatusOK,
})

// codeError 给 handler 返回的错误附加状态码标注，仅用于分类，不返回给 gRPC。
//
// 它位于错误链最外层，handler 自己的错误若实现了 ResultLabeler 或 LabelValuer，
// 因包装更深而优先。
type codeError struct {
	err    error
	code   codes.Code
	labels xmetrics.ErrorLabels[codes.Code]
}

func (e codeError) Error() string                { return e.err.Error() }
func (e codeError) Unwrap() error                { return e.err }
func (e codeError) ResultLabel() xmetrics.Status { return e.labels.Lookup(e.code) }
func (e codeError) LabelValue() string           { return e.code.String() }

func (c *config) outcome(err error) xmetrics.Outcome {
	if err == nil {
		return xmetrics.Outcome{Status: xmetrics.StatusOK}
	}
	return xmetrics.OutcomeOf(codeError{err: err, code: status.Code(err), labels: c.codeLabels})
}

// SplitMethod 把 "/acme.user.v1.UserService/GetUser" 拆成服务路径和方法名。
func SplitMethod(fullMethod string) (service, method string) {
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	if i := strings.LastIndex(fullMethod, "/"); i >= 0 {
		return fullMethod[:i], fullMethod[i+1:]
	}
	return "", fullMethod
}

func (c *siteCache) grpcSite(fullMethod string) xmetrics.Site {
	service, method := SplitMethod(fullMethod)
	module := service
	if c.cfg.moduleSet {
		module = c.cfg.module
	}
	return c.site(method, module)
}

// UnaryServerInterceptor 返回记录每次一元调用的拦截器。
//
// function 是方法名，module 是服务路径；错误按 status.Code 经 GRPCCodeLabels
// （或 WithCodeLabels）判定 ok/error，error/ok 标签的值是状态码名，如 "NotFound"。
func UnaryServerInterceptor(tracker xmetrics.Tracker, opts ...Option) (grpc.UnaryServerInterceptor, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	cache, err := newSiteCache(cfg)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		ctx, call := xmetrics.Start(ctx, tracker, cache.grpcSite(info.FullMethod))
		defer func() {
			if p := recover(); p != nil {
				call.End(xmetrics.Outcome{Status: xmetrics.StatusError, Value: codes.Internal.String()})
				panic(p)
			}
			call.End(cfg.outcome(err))
		}()
		return handler(ctx, req)
	}, nil
}

// StreamServerInterceptor 返回记录每个流的拦截器，整个流算一次调用。
func StreamServerInterceptor(tracker xmetrics.Tracker, opts ...Option) (grpc.StreamServerInterceptor, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	cache, err := newSiteCache(cfg)
	if err != nil {
		return nil, err
	}
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		ctx, call := xmetrics.Start(ss.Context(), tracker, cache.grpcSite(info.FullMethod))
		defer func() {
			if p := recover(); p != nil {
				call.End(xmetrics.Outcome{Status: xmetrics.StatusError, Value: codes.Internal.String()})
				panic(p)
			}
			call.End(cfg.outcome(err))
		}()
		return handler(srv, &contextStream{ServerStream: ss, ctx: ctx})
	}, nil
}

// contextStream 用带调用方帧的 ctx 替换 ServerStream.Context。
type contextStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *contextStream) Context() context.Context { return s.ctx }
