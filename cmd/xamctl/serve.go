package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xautometrics/pkg/config/xconf"
	"github.com/omeyang/xautometrics/pkg/lifecycle/xrun"
	"github.com/omeyang/xautometrics/pkg/observability/xexport"
	"github.com/omeyang/xautometrics/pkg/observability/xlog"
	"github.com/omeyang/xautometrics/pkg/observability/xmetrics"
	"github.com/omeyang/xautometrics/pkg/observability/xmiddleware"
	"github.com/omeyang/xautometrics/pkg/observability/xslo"
)

func createServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "启动带指标的演示服务",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen",
				Aliases: []string{"l"},
				Usage:   "监听地址，覆盖配置文件",
			},
			&cli.StringFlag{
				Name:    "exporter",
				Aliases: []string{"e"},
				Usage:   "指标导出方式 (prometheus/stdout/none)，覆盖配置文件",
			},
			&cli.Uint64Flag{
				Name:  "fail-every",
				Usage: "每 N 次读取模拟一次存储故障，0 表示不模拟",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			conf, app, err := loadConfig(cmd.String("config"))
			if err != nil {
				return err
			}
			if v := cmd.String("listen"); v != "" {
				app.Listen = v
			}
			if v := cmd.String("exporter"); v != "" {
				app.Metrics.Exporter = v
			}
			return cmdServe(ctx, conf, app, cmd.Uint64("fail-every"))
		},
	}
}

// server 装配 serve 命令的全部组件。
type server struct {
	cfg      appConfig
	log      xlog.LoggerWithLevel
	provider *xexport.Provider
	tracker  xmetrics.Tracker
	registry *xslo.Registry
	catalog  *catalog
	handler  http.Handler
}

func newServer(ctx context.Context, cfg appConfig, logger xlog.LoggerWithLevel, failEvery uint64) (*server, error) {
	registry, err := cfg.registry()
	if err != nil {
		return nil, err
	}
	var objective xslo.Objective
	if name := cfg.Demo.Objective; name != "" {
		o, ok := registry.Lookup(name)
		if !ok {
			return nil, &usageError{msg: fmt.Sprintf("demo.objective %q is not declared in objectives", name)}
		}
		objective = o
	}

	provider, err := xexport.New(ctx, cfg.exportConfig())
	if err != nil {
		return nil, err
	}
	otelTracker, err := provider.Tracker()
	if err != nil {
		return nil, errors.Join(err, provider.Shutdown(ctx))
	}
	var tracker xmetrics.Tracker = otelTracker
	if cfg.Metrics.DebugLog {
		bt, err := xmetrics.NewBackendTracker(logBackend{log: logger},
			xmetrics.WithBackendName("debug-log"),
			xmetrics.WithBackendLogger(logger))
		if err != nil {
			return nil, errors.Join(err, provider.Shutdown(ctx))
		}
		tracker = xmetrics.Multi(otelTracker, bt)
	}

	cat, err := newCatalog(tracker, objective, failEvery)
	if err != nil {
		return nil, errors.Join(err, provider.Shutdown(ctx))
	}
	mwOpts := []xmiddleware.Option{xmiddleware.WithModule(cfg.Service.Name), xmiddleware.WithConcurrencyTracking()}
	if !objective.IsZero() {
		mwOpts = append(mwOpts, xmiddleware.WithObjective(objective))
	}
	mw, err := xmiddleware.HTTP(tracker, mwOpts...)
	if err != nil {
		return nil, errors.Join(err, provider.Shutdown(ctx))
	}

	mux := http.NewServeMux()
	mux.Handle("GET /products", mw(http.HandlerFunc(cat.handleList)))
	mux.Handle("GET /products/{id}", mw(http.HandlerFunc(cat.handleGet)))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	if provider.Handler != nil {
		mux.Handle("GET /metrics", provider.Handler)
	}

	return &server{
		cfg:      cfg,
		log:      logger,
		provider: provider,
		tracker:  tracker,
		registry: registry,
		catalog:  cat,
		handler:  mux,
	}, nil
}

// services 返回要在 xrun 中运行的服务。conf 可 Watch 时附带配置热更新。
func (s *server) services(conf xconf.Config) ([]xrun.Service, error) {
	httpServer := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	out := []xrun.Service{
		xrun.Named("http", xrun.HTTPServer(httpServer, s.cfg.ShutdownTimeout)),
	}
	if conf != nil && conf.Path() != "" {
		w, err := xconf.Watch(conf, s.onConfigChange)
		if err != nil {
			return nil, err
		}
		out = append(out, xrun.Named("config-watch", w.Run))
	}
	if d := s.cfg.Demo.TrafficInterval; d > 0 {
		out = append(out, xrun.Named("traffic", xrun.Ticker(d, true, s.generateTraffic)))
	}
	return out, nil
}

// onConfigChange 只热更新日志级别，其它字段需要重启生效。
func (s *server) onConfigChange(conf xconf.Config, err error) {
	ctx := context.Background()
	if err != nil {
		s.log.Warn(ctx, "config reload failed", xlog.Err(err))
		return
	}
	logCfg, err := xconf.Load[xlog.Config](conf, "log")
	if err != nil {
		s.log.Warn(ctx, "config decode failed", xlog.Err(err))
		return
	}
	level, err := xlog.ParseLevel(logCfg.Level)
	if err != nil {
		s.log.Warn(ctx, "invalid log level", xlog.Err(err))
		return
	}
	if level != s.log.GetLevel() {
		s.log.Info(ctx, "log level changed", slog.String("from", s.log.GetLevel().String()), slog.String("to", level.String()))
		s.log.SetLevel(level)
	}
}

// generateTraffic 读取每个商品一次；ctx 的调用方帧是 "traffic"。
func (s *server) generateTraffic(ctx context.Context) error {
	for id := 0; id <= len(s.catalog.products)+1; id++ {
		if _, err := s.catalog.product(ctx, id); err != nil {
			s.log.Debug(ctx, "demo read failed", slog.Int("id", id), xlog.Err(err))
		}
	}
	return nil
}

func (s *server) shutdown(ctx context.Context) error {
	return s.provider.Shutdown(ctx)
}

func cmdServe(ctx context.Context, conf xconf.Config, cfg appConfig, failEvery uint64) (err error) {
	logger, closeLog, err := xlog.FromConfig(cfg.Log).Build()
	if err != nil {
		return &usageError{msg: err.Error()}
	}
	defer func() { err = errors.Join(err, closeLog()) }()
	xlog.SetDefault(logger)

	srv, err := newServer(ctx, cfg, logger, failEvery)
	if err != nil {
		return err
	}
	defer func() {
		timeout := cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = defaultShutdownTimeout
		}
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		err = errors.Join(err, srv.shutdown(sctx))
	}()

	services, err := srv.services(conf)
	if err != nil {
		return err
	}
	logger.Info(ctx, "serving",
		xlog.Service(cfg.Service.Name),
		xlog.Addr(cfg.Listen),
		slog.String("exporter", string(srv.provider.Exporter())),
		slog.Int("objectives", srv.registry.Len()),
	)

	err = xrun.RunServicesWithOptions(ctx, []xrun.Option{
		xrun.WithName(cfg.Service.Name),
		xrun.WithLogger(logger),
		xrun.WithTracker(srv.tracker),
	}, services...)
	if errors.Is(err, xrun.ErrSignal) {
		logger.Info(ctx, "shutdown", xlog.Err(err))
		return nil
	}
	return err
}

// logBackend 把每条记录写到 Debug 日志，用于排查标签是否符合预期。
type logBackend struct {
	log xlog.Logger
}

func (b logBackend) RecordCall(ctx context.Context, labels xmetrics.LabelSet) error {
	b.log.Debug(ctx, "metric call", slog.String("labels", labels.String()))
	return nil
}

func (b logBackend) ObserveLatency(ctx context.Context, d time.Duration, labels xmetrics.LabelSet) error {
	b.log.Debug(ctx, "metric latency", slog.String("labels", labels.String()), xlog.Duration(d))
	return nil
}

func (b logBackend) SetConcurrency(ctx context.Context, delta int64, labels xmetrics.LabelSet) error {
	b.log.Debug(ctx, "metric concurrency", slog.String("labels", labels.String()), slog.Int64("delta", delta))
	return nil
}
