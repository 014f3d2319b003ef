package xlog

import (
	"log/slog"
	"time"
)

// 常用属性 key。
const (
	KeyError     = "error"
	KeyStack     = "stack"
	KeyDuration  = "duration"
	KeyComponent = "component"
	KeyService   = "service"
	KeyAddr      = "addr"
	KeyMethod    = "method"
	KeyPath      = "path"
)

// Err 创建错误属性，err 为 nil 时返回空属性（被 slog 忽略）。
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 创建耗时属性，输出人类可读格式（如 "1.5s"）。
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

// Component 创建组件名属性
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Service 创建服务名属性
func Service(name string) slog.Attr {
	return slog.String(KeyService, name)
}

// Addr 创建监听地址属性
func Addr(addr string) slog.Attr {
	return slog.String(KeyAddr, addr)
}

// Method 创建 HTTP/RPC 方法属性
func Method(m string) slog.Attr {
	return slog.String(KeyMethod, m)
}

// Path 创建请求路径属性
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}
