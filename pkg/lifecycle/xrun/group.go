package xrun

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xautometrics/pkg/observability/xlog"
	"github.com/omeyang/xautometrics/pkg/observability/xmetrics"
)

// Group 并发运行一组服务并协调关闭。
//
// 任一服务返回错误、调用 Cancel 或父 context 取消时，所有服务的 ctx 都被取消。
// Go、GoWithName、Cancel 可并发调用；Wait 只应调用一次。
//
//	g, ctx := xrun.NewGroup(ctx, xrun.WithName("api"), xrun.WithTracker(tracker))
//	g.GoWithName("http", xrun.HTTPServer(srv, 10*time.Second))
//	g.GoWithName("refresher", xrun.Ticker(time.Minute, true, refresh))
//	err := g.Wait()
type Group struct {
	eg       *errgroup.Group
	ctx      context.Context
	causeCtx context.Context
	cancel   context.CancelCauseFunc
	opts     *groupOptions
	log      xlog.Logger
}

// NewGroup 创建 Group，返回的 context 在任一服务失败时被取消。
//
// ctx 为 nil 时使用 context.Background()，nil Option 被跳过，
// 以保持与 errgroup.WithContext 相同的无错误签名。
func NewGroup(ctx context.Context, opts ...Option) (*Group, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	options := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	causeCtx, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(causeCtx)
	return &Group{
		eg:       eg,
		ctx:      egCtx,
		causeCtx: causeCtx,
		cancel:   cancel,
		opts:     options,
		log:      options.logger.With(xlog.Component(options.name)),
	}, egCtx
}

// Name 返回 Group 名称。
func (g *Group) Name() string { return g.opts.name }

// Go 启动匿名服务。fn 返回非 nil 错误时取消整个 Group。
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		return fn(g.ctx)
	})
}

// GoWithName 启动具名服务，记录启停日志；配置了 WithTracker 时同时记录指标。
//
// 服务 ctx 的当前调用方帧是服务名，服务内部被观测的函数因此以服务名为 caller。
func (g *Group) GoWithName(name string, fn func(ctx context.Context) error) {
	site, tracked := g.serviceSite(name)
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		log := g.log.With(xlog.Service(name))
		log.Debug(g.ctx, "service starting")

		var err error
		if tracked {
			err = g.runTracked(site, fn)
		} else {
			err = fn(g.ctx)
		}

		if err != nil && !errors.Is(err, context.Canceled) {
			log.Warn(g.ctx, "service exited with error", xlog.Err(err))
		} else {
			log.Debug(g.ctx, "service stopped")
		}
		return err
	})
}

// serviceSite 为服务构造调用点。名称非法时降级为不观测并记录告警。
func (g *Group) serviceSite(name string) (xmetrics.Site, bool) {
	if g.opts.tracker == nil {
		return xmetrics.Site{}, false
	}
	opts := []xmetrics.SiteOption{
		xmetrics.WithModule(g.opts.name),
		xmetrics.WithConcurrencyTracking(),
	}
	if o, ok := g.opts.objectives[name]; ok {
		opts = append(opts, xmetrics.WithObjective(o))
	}
	site, err := xmetrics.NewSite(name, opts...)
	if err != nil {
		g.log.Warn(g.ctx, "service not instrumented", xlog.Service(name), xlog.Err(err))
		return xmetrics.Site{}, false
	}
	return site, true
}

func (g *Group) runTracked(site xmetrics.Site, fn func(ctx context.Context) error) (err error) {
	ctx, call := xmetrics.Start(g.ctx, g.opts.tracker, site)
	defer func() {
		if r := recover(); r != nil {
			call.End(xmetrics.Outcome{Status: xmetrics.StatusError})
			panic(r)
		}
		call.End(g.serviceOutcome(err))
	}()
	return fn(ctx)
}

// serviceOutcome 把 Group 关闭引起的 context.Canceled 视为正常退出。
func (g *Group) serviceOutcome(err error) xmetrics.Outcome {
	if errors.Is(err, context.Canceled) && g.causeCtx.Err() != nil {
		return xmetrics.Outcome{Status: xmetrics.StatusOK}
	}
	return xmetrics.OutcomeOf(err)
}

// Wait 等待所有服务退出并返回退出原因。
//
//   - 服务返回的第一个非 context.Canceled 错误原样返回
//   - Group 被取消时返回 Cancel 设置的 cause（如 *SignalError），没有 cause 返回 nil
//   - Group 未被取消而服务自己返回 context.Canceled 时原样返回
func (g *Group) Wait() error {
	defer g.cancel(nil)

	g.log.Debug(g.ctx, "waiting for services")
	err := g.eg.Wait()
	g.log.Debug(g.ctx, "all services stopped")

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if g.causeCtx.Err() == nil {
		return err
	}
	if cause := context.Cause(g.causeCtx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return nil
}

// Cancel 取消所有服务，cause 由 Wait 返回。
//
// cause 不应包装 context.Canceled，否则 Wait 会把它当作普通取消过滤掉。
func (g *Group) Cancel(cause error) {
	g.cancel(cause)
}

// Context 返回服务共享的 context。
func (g *Group) Context() context.Context {
	return g.ctx
}
