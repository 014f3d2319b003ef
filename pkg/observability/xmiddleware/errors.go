package xmiddleware

import "errors"

var (
	// ErrNilOption 表示传入了 nil Option。
	ErrNilOption = errors.New("xmiddleware: nil option")
	// ErrNilRouteFunc 表示 WithRouteName 传入了 nil。
	ErrNilRouteFunc = errors.New("xmiddleware: nil route func")
	// ErrNilStatusFunc 表示 WithErrorStatus 传入了 nil。
	ErrNilStatusFunc = errors.New("xmiddleware: nil status predicate")
	// ErrInvalidCacheSize 表示 WithSiteCacheSize 的值不是正数。
	ErrInvalidCacheSize = errors.New("xmiddleware: site cache size must be positive")
)
