package xrun

import (
	"context"
	"os"
	"syscall"
	"time"
)

// DefaultSignals 返回默认监听的信号：SIGHUP、SIGINT、SIGTERM、SIGQUIT。
// 每次调用返回新切片。
func DefaultSignals() []os.Signal {
	return []os.Signal{syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT}
}

// 测试通过 context 注入信号，避免向进程发送真实信号。
type testSigChanKey struct{}

func testSigChan(ctx context.Context) <-chan os.Signal {
	c, _ := ctx.Value(testSigChanKey{}).(<-chan os.Signal)
	return c
}

func withTestSigChan(ctx context.Context, c <-chan os.Signal) context.Context {
	return context.WithValue(ctx, testSigChanKey{}, c)
}

// Ticker 返回周期执行 fn 的服务函数，fn 出错即退出。
//
// immediate 为 true 时启动后先执行一次（ctx 已取消则不执行）。
// interval 必须为正数，否则服务返回 ErrInvalidInterval。
func Ticker(interval time.Duration, immediate bool, fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if interval <= 0 {
			return ErrInvalidInterval
		}
		if fn == nil {
			return ErrNilFunc
		}
		if immediate {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx); err != nil {
				return err
			}
		}
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				if err := fn(ctx); err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Timer 返回延迟 delay 后执行一次 fn 的服务函数。delay 为 0 时立即执行，为负数返回 ErrInvalidDelay。
func Timer(delay time.Duration, fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if delay < 0 {
			return ErrInvalidDelay
		}
		if fn == nil {
			return ErrNilFunc
		}
		if delay == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(ctx)
		}
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
			return fn(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// WaitForDone 返回阻塞到 ctx 取消的占位服务。
func WaitForDone() func(ctx context.Context) error {
	return func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
}
