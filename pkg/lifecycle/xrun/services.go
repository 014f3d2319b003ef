package xrun

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"
)

// Service 是可被 Group 管理的长期运行服务。
type Service interface {
	// Run 阻塞直到 ctx 取消或出错，ctx 取消后应尽快返回。
	Run(ctx context.Context) error
}

// NamedService 是带名称的 Service。RunServices 用名称记录日志和指标。
type NamedService interface {
	Service
	Name() string
}

// ServiceFunc 把函数适配为 Service。
type ServiceFunc func(ctx context.Context) error

// Run 实现 Service。
func (f ServiceFunc) Run(ctx context.Context) error {
	return f(ctx)
}

type namedService struct {
	name string
	fn   func(ctx context.Context) error
}

func (s namedService) Name() string { return s.name }

func (s namedService) Run(ctx context.Context) error {
	if s.fn == nil {
		return ErrNilFunc
	}
	return s.fn(ctx)
}

// Named 给服务函数命名。
//
//	xrun.RunServices(ctx, xrun.Named("http", xrun.HTTPServer(srv, 0)))
func Named(name string, fn func(ctx context.Context) error) NamedService {
	return namedService{name: name, fn: fn}
}

// Run 监听 DefaultSignals 并运行匿名服务，收到信号时返回 *SignalError。
func Run(ctx context.Context, services ...func(ctx context.Context) error) error {
	return RunWithOptions(ctx, nil, services...)
}

// RunWithOptions 同 Run，支持 Option。
func RunWithOptions(ctx context.Context, opts []Option, services ...func(ctx context.Context) error) error {
	return runGroup(ctx, opts, func(g *Group) {
		for _, svc := range services {
			g.Go(svc)
		}
	})
}

// RunServices 运行 Service，NamedService 以其名称运行。
func RunServices(ctx context.Context, services ...Service) error {
	return RunServicesWithOptions(ctx, nil, services...)
}

// RunServicesWithOptions 同 RunServices，支持 Option。
//
//	err := xrun.RunServicesWithOptions(ctx, []xrun.Option{
//	    xrun.WithName("api"),
//	    xrun.WithTracker(tracker),
//	}, xrun.Named("http", xrun.HTTPServer(srv, 10*time.Second)))
func RunServicesWithOptions(ctx context.Context, opts []Option, services ...Service) error {
	return runGroup(ctx, opts, func(g *Group) {
		for _, svc := range services {
			switch s := svc.(type) {
			case nil:
				g.Go(func(context.Context) error { return ErrNilService })
			case NamedService:
				g.GoWithName(s.Name(), s.Run)
			default:
				g.Go(s.Run)
			}
		}
	})
}

// runGroup 创建 Group、按需注册信号监听，然后运行 setup 注册的服务。
func runGroup(ctx context.Context, opts []Option, setup func(g *Group)) error {
	g, _ := NewGroup(ctx, opts...)
	if !g.opts.noSignalHandler {
		signals := g.opts.signals
		// signal.Notify 不带信号会订阅全部信号。
		if len(signals) == 0 {
			signals = DefaultSignals()
		}
		g.Go(func(ctx context.Context) error {
			return g.watchSignals(ctx, signals)
		})
	}
	setup(g)
	return g.Wait()
}

func (g *Group) watchSignals(ctx context.Context, signals []os.Signal) error {
	injected := testSigChan(ctx)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, signals...)
	defer signal.Stop(sigCh)

	var sig os.Signal
	select {
	case sig = <-injected:
	case sig = <-sigCh:
	case <-ctx.Done():
		return ctx.Err()
	}
	g.log.Info(ctx, "received signal", slog.String("signal", sig.String()))
	g.cancel(&SignalError{Signal: sig})
	return nil
}

// HTTPServerInterface 是 HTTPServer 需要的服务器能力，*http.Server 满足它。
type HTTPServerInterface interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServer 把 HTTP 服务器包装为服务函数：ctx 取消时调用 Shutdown，
// 并返回 Shutdown 的错误。shutdownTimeout <= 0 表示等待所有在途请求结束。
//
// 服务器被外部直接关闭（ctx 未取消）时返回 nil。
func HTTPServer(server HTTPServerInterface, shutdownTimeout time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if server == nil {
			return ErrNilServer
		}
		shutdownErr := make(chan error, 1)
		listenDone := make(chan struct{})

		go func() {
			select {
			case <-ctx.Done():
				sctx := context.WithoutCancel(ctx)
				if shutdownTimeout > 0 {
					var cancel context.CancelFunc
					sctx, cancel = context.WithTimeout(sctx, shutdownTimeout)
					defer cancel()
				}
				shutdownErr <- server.Shutdown(sctx)
			case <-listenDone:
			}
		}()

		err := server.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			close(listenDone)
			return err
		}
		select {
		case err := <-shutdownErr:
			return err
		case <-ctx.Done():
			return <-shutdownErr
		default:
			// 外部调用了 Shutdown/Close。
			close(listenDone)
			return nil
		}
	}
}
