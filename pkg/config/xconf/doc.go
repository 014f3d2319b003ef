// Package xconf 基于 koanf 的配置加载、重载与文件监视。
//
// # 支持的格式
//
//   - YAML：.yaml, .yml
//   - JSON：.json
//
// # 用法
//
//	cfg, err := xconf.New("/etc/xamctl/config.yaml", xconf.WithDefaults(map[string]any{
//		"server.addr": ":9464",
//	}))
//	app, err := xconf.Load[AppConfig](cfg, "")
//
// # 热重载
//
// Watch 监视配置文件所在目录，变更经过防抖后调用 Reload 并回调通知。
// Watcher.Run 阻塞直到 context 结束，可直接作为 xrun 的一个服务运行。
//
// # 并发
//
// 当前 koanf 实例通过 atomic.Pointer 发布，Client/Unmarshal 无锁；
// Reload 串行执行，解析失败时保留旧配置。Client() 返回的是快照，
// 不要长期缓存。
package xconf
