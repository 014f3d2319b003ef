package xconf

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrWatcherStarted 表示 Watcher.Run 被重复调用。
var ErrWatcherStarted = errors.New("xconf: watcher already started")

const defaultDebounce = 100 * time.Millisecond

// WatchCallback 配置文件变更回调。err 非 nil 表示重载或监视失败，此时配置保持旧值。
type WatchCallback func(cfg Config, err error)

// WatchOption 监视器选项
type WatchOption func(*Watcher)

// WithDebounce 设置防抖时间：窗口内的多次变更只触发一次重载，默认 100ms。
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// Watcher 监视配置文件并自动重载。
//
// 监视的是文件所在目录而不是文件本身：编辑器和 ConfigMap 常以
// "写临时文件再 rename" 的方式更新，直接监视文件会丢失事件。
// 重载和回调都在 Run 所在的 goroutine 中执行，Run 返回后不会再有回调。
type Watcher struct {
	cfg       *koanfConfig
	fs        *fsnotify.Watcher
	callback  WatchCallback
	debounce  time.Duration
	started   atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Watch 为从文件创建的 cfg 创建监视器。调用 Run 开始监视。
func Watch(cfg Config, callback WatchCallback, opts ...WatchOption) (*Watcher, error) {
	kc, ok := cfg.(*koanfConfig)
	if !ok || kc.path == "" {
		return nil, ErrNotReloadable
	}
	w := &Watcher{cfg: kc, callback: callback, debounce: defaultDebounce}
	for _, opt := range opts {
		if opt == nil {
			return nil, ErrNilOption
		}
		opt(w)
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWatchFailed, err)
	}
	dir := filepath.Dir(kc.path)
	if err := fs.Add(dir); err != nil {
		return nil, errors.Join(fmt.Errorf("%w: %s: %w", ErrWatchFailed, dir, err), fs.Close())
	}
	w.fs = fs
	return w, nil
}

// Run 阻塞监视，直到 ctx 结束。返回时关闭底层监视器。
// 签名与 xrun 的服务函数一致，可以直接注册为进程内服务。
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrWatcherStarted
	}
	defer func() { _ = w.Close() }()

	filename := filepath.Base(w.cfg.path)
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !isConfigChange(event, filename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.notify(fmt.Errorf("%w: %w", ErrWatchFailed, err))

		case <-fire:
			fire = nil
			w.notify(w.cfg.Reload())
		}
	}
}

// Close 关闭底层监视器，可重复调用。
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		w.closeErr = w.fs.Close()
	})
	return w.closeErr
}

func (w *Watcher) notify(err error) {
	if w.callback != nil {
		w.callback(w.cfg, err)
	}
}

// isConfigChange 判断事件是否可能表示目标文件内容变化：
// 直接写入、新建（部分编辑器）或 rename（原子写入）。
func isConfigChange(event fsnotify.Event, filename string) bool {
	if filepath.Base(event.Name) != filename {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
