// xamctl 是 xautometrics 的演示与运维命令行。
//
// 用法:
//
//	xamctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config   配置文件路径 (YAML/JSON)，为空时使用内置默认值
//
// 命令:
//
//	serve          启动演示服务：/products 端点、/metrics 抓取端点、配置热更新
//	objectives     校验并列出配置文件中声明的目标
//	buckets        列出延迟直方图桶边界与可用的目标取值
//
// 退出码:
//
//	0: 成功（serve 收到终止信号后正常退出也返回 0）
//	1: 运行失败
//	2: 参数或配置错误
//
// 示例:
//
//	xamctl serve -c xamctl.yaml
//	xamctl serve --exporter stdout --fail-every 5
//	xamctl objectives -c xamctl.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xautometrics/pkg/observability/xslo"
)

const defaultShutdownTimeout = 10 * time.Second

// 版本信息，可通过 -ldflags "-X main.Version=..." 注入。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdout, os.Stderr))
}

func createApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "xamctl",
		Usage:     "函数级调用指标的演示与运维工具",
		Version:   fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径 (YAML/JSON)",
				Sources: cli.EnvVars("XAMCTL_CONFIG"),
			},
		},
		Commands: createCommands(),
		// 退出码由 run 统一映射，不让 urfave/cli 直接 os.Exit。
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := createApp(stdout, stderr)
	err := app.Run(ctx, args)
	if err == nil {
		return 0
	}
	fmt.Fprintf(stderr, "xamctl: %v\n", err)
	if isUsageError(err) {
		return 2
	}
	return 1
}

// isUsageError 判断是否为参数或配置错误。
func isUsageError(err error) bool {
	var ue *usageError
	if errors.As(err, &ue) {
		return true
	}
	for _, target := range []error{
		xslo.ErrEmptyName, xslo.ErrInvalidPercentile, xslo.ErrInvalidLatency,
		xslo.ErrNoTarget, xslo.ErrDuplicateName,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	// urfave/cli 的 flag 解析错误没有导出类型。
	msg := err.Error()
	return strings.Contains(msg, "flag provided but not defined") ||
		strings.Contains(msg, "No help topic for")
}
