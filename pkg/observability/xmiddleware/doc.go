// Package xmiddleware 把 xmetrics 接到 net/http 和 gRPC 服务端。
//
// 每个请求是一次被观测调用：请求 ctx 以路由名或方法名为当前调用方帧，
// handler 内部用 xmetrics 包装的函数自动得到 caller 标签。
//
//	mw := xmiddleware.MustHTTP(tracker, xmiddleware.WithObjective(apiSLO))
//	mux.Handle("GET /users/{id}", mw(usersHandler))
//
//	unary, err := xmiddleware.UnaryServerInterceptor(tracker)
//	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(unary))
//
// 结果判定遵循 ok_if/error_if 语义：HTTP 以状态码判定，gRPC 以状态码标注表判定，
// 客户端造成的失败（4xx、InvalidArgument、NotFound 等）默认不计入错误预算。
package xmiddleware
