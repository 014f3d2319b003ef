package xmiddleware

import (
	"fmt"
	"net/http"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"google.golang.org/grpc/codes"

	"github.com/omeyang/xautometrics/pkg/observability/xmetrics"
	"github.com/omeyang/xautometrics/pkg/observability/xslo"
)

// 默认 module 标签。
const (
	DefaultHTTPModule = "http"
	// DefaultSiteCacheSize 每个中间件缓存的调用点上限。
	DefaultSiteCacheSize = 512
	// unknownFunction 用于无法确定路由或方法名的请求。
	unknownFunction = "unknown"
)

// Option 配置 HTTP 中间件和 gRPC 拦截器。
type Option func(*config)

type config struct {
	module      string
	moduleSet   bool
	objective   xslo.Objective
	concurrency bool
	route       func(*http.Request) string
	errorIf     func(status int) bool
	codeLabels  xmetrics.ErrorLabels[codes.Code]
	cacheSize   int
	err         error
}

// WithModule 覆盖 module 标签。
// HTTP 默认 "http"；gRPC 默认取完整方法名中的服务路径，如 "acme.user.v1.UserService"。
func WithModule(module string) Option {
	return func(c *config) {
		c.module = module
		c.moduleSet = true
	}
}

// WithObjective 为所有经过的请求声明目标。
func WithObjective(o xslo.Objective) Option {
	return func(c *config) { c.objective = o }
}

// WithConcurrencyTracking 记录在途请求数。
func WithConcurrencyTracking() Option {
	return func(c *config) { c.concurrency = true }
}

// WithRouteName 自定义 HTTP function 标签的取值。
//
// 默认使用 r.Pattern（由 http.ServeMux 路由后设置），为空时记为 "unknown"，
// 原始路径不会进入标签。需要按路径区分时由此函数把路径归并为有限集合。
func WithRouteName(fn func(*http.Request) string) Option {
	return func(c *config) {
		if fn == nil {
			c.err = ErrNilRouteFunc
			return
		}
		c.route = fn
	}
}

// WithErrorStatus 自定义哪些 HTTP 状态码记为 error，默认 status >= 500。
func WithErrorStatus(fn func(status int) bool) Option {
	return func(c *config) {
		if fn == nil {
			c.err = ErrNilStatusFunc
			return
		}
		c.errorIf = fn
	}
}

// WithSiteCacheSize 设置调用点缓存上限，默认 DefaultSiteCacheSize。
// 超出上限时淘汰最久未使用的调用点，下次命中时重新构建。
func WithSiteCacheSize(n int) Option {
	return func(c *config) {
		if n <= 0 {
			c.err = ErrInvalidCacheSize
			return
		}
		c.cacheSize = n
	}
}

// WithCodeLabels 覆盖 gRPC 状态码的 ok/error 标注，默认 GRPCCodeLabels。
func WithCodeLabels(labels xmetrics.ErrorLabels[codes.Code]) Option {
	return func(c *config) { c.codeLabels = labels }
}

func newConfig(opts []Option) (*config, error) {
	c := &config{
		route:      defaultRoute,
		errorIf:    func(status int) bool { return status >= http.StatusInternalServerError },
		codeLabels: GRPCCodeLabels,
		cacheSize:  DefaultSiteCacheSize,
	}
	for _, opt := range opts {
		if opt == nil {
			return nil, ErrNilOption
		}
		opt(c)
	}
	if c.err != nil {
		return nil, c.err
	}
	if !c.objective.IsZero() {
		if err := c.objective.Validate(); err != nil {
			return nil, fmt.Errorf("xmiddleware: %w", err)
		}
	}
	return c, nil
}

func defaultRoute(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return unknownFunction
}

// siteCache 按 function/module 缓存调用点，避免每个请求重复校验。
//
// 设计决策: 自定义路由函数或 gRPC 未知方法可能产生任意多的名字，
// 缓存用定长 LRU 保证内存有界；被淘汰的调用点只是重建，不影响计数。
type siteCache struct {
	cfg   *config
	sites *lru.Cache[siteKey, xmetrics.Site]
}

func newSiteCache(cfg *config) (*siteCache, error) {
	sites, err := lru.New[siteKey, xmetrics.Site](cfg.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("xmiddleware: site cache: %w", err)
	}
	return &siteCache{cfg: cfg, sites: sites}, nil
}

type siteKey struct {
	function string
	module   string
}

func (c *siteCache) site(function, module string) xmetrics.Site {
	function = strings.TrimSpace(function)
	if function == "" {
		function = unknownFunction
	}
	key := siteKey{function, module}
	if s, ok := c.sites.Get(key); ok {
		return s
	}
	opts := []xmetrics.SiteOption{xmetrics.WithModule(module)}
	if !c.cfg.objective.IsZero() {
		opts = append(opts, xmetrics.WithObjective(c.cfg.objective))
	}
	if c.cfg.concurrency {
		opts = append(opts, xmetrics.WithConcurrencyTracking())
	}
	// function 非空且 objective 已在构造时校验，NewSite 不会失败。
	s, _ := xmetrics.NewSite(function, opts...)
	c.sites.Add(key, s)
	return s
}
