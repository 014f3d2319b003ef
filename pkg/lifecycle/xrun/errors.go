package xrun

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrSignal 表示因收到系统信号而终止，使用 errors.Is 判断。
	ErrSignal = errors.New("received signal")

	// ErrNilFunc 表示注册了 nil 服务函数。
	ErrNilFunc = errors.New("xrun: nil service func")

	// ErrNilService 表示 RunServices 收到了 nil Service。
	ErrNilService = errors.New("xrun: nil service")

	// ErrNilServer 表示 HTTPServer 收到了 nil server。
	ErrNilServer = errors.New("xrun: nil http server")

	// ErrInvalidInterval 表示 Ticker 的间隔不是正数。
	ErrInvalidInterval = errors.New("xrun: interval must be positive")

	// ErrInvalidDelay 表示 Timer 的延迟为负数。
	ErrInvalidDelay = errors.New("xrun: delay must not be negative")
)

// SignalError 携带触发退出的信号。
//
// Run 系列函数收到信号时返回 *SignalError：
//
//	var sigErr *xrun.SignalError
//	if errors.As(err, &sigErr) {
//	    fmt.Println("signal:", sigErr.Signal)
//	}
type SignalError struct {
	Signal os.Signal
}

// Error 实现 error 接口。
func (e *SignalError) Error() string {
	if e.Signal == nil {
		return "received signal <nil>"
	}
	return fmt.Sprintf("received signal %s", e.Signal)
}

// Is 使 errors.Is(err, ErrSignal) 成立。
func (e *SignalError) Is(target error) bool {
	return target == ErrSignal
}

// Unwrap 返回 ErrSignal。
func (e *SignalError) Unwrap() error {
	return ErrSignal
}
