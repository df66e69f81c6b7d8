// xalogctl 是 xalog 日志目录的运维命令行工具。
//
// 用法:
//
//	xalogctl [全局选项] <命令> [命令参数]
//
// 命令:
//
//	status <目录>       查看日志目录状态（当前文件、轮转序列、.fatal 文件）
//	tail <文件>         输出日志文件尾部，-F 持续跟踪并感知轮转
//	check <配置文件>    校验引擎配置并打印生效值，--watch 持续监视
//	prune <目录>        清理多余的轮转文件，--keep 指定保留个数
//	help                显示帮助信息
//
// 退出码:
//
//	0: 命令执行成功
//	1: 命令执行失败（目录不存在、配置非法等）
//	2: 参数错误（缺少必需参数、未知命令等）
//
// 示例:
//
//	xalogctl status /var/log/myapp                 # 查看目录状态
//	xalogctl status -f worker /var/log/myapp       # 只看 worker 前缀的文件
//	xalogctl tail /var/log/myapp/myapp.log         # 输出最后 10 行
//	xalogctl tail -F -n 50 /var/log/myapp/myapp.log
//	xalogctl check ./xalog.yaml                    # 校验配置
//	xalogctl check --watch ./xalog.yaml            # 配置变更时重新校验
//	xalogctl prune --keep 4 /var/log/myapp         # 只保留 4 个轮转文件
//	xalogctl prune --keep 4 --dry-run /var/log/myapp
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

// 版本信息（可通过 -ldflags 注入，例如:
//
//	go build -ldflags "-X main.Version=1.0.0 -X main.GitCommit=$(git rev-parse --short HEAD)"
//
// ）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

func createApp() *cli.Command {
	return &cli.Command{
		Name:    "xalogctl",
		Usage:   "xalog 日志目录运维工具",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Commands: []*cli.Command{
			createStatusCommand(),
			createTailCommand(),
			createCheckCommand(),
			createPruneCommand(),
		},
		DefaultCommand: "help",
		// 设计决策: 禁止 urfave/cli 直接调用 os.Exit，
		// 由 run() 统一处理退出码映射。
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(os.Stderr, err)
			}
		},
	}
}

func run() int {
	app := createApp()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandler(cancel)

	if err := app.Run(ctx, os.Args); err != nil {
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(os.Stderr, "参数错误: %v\n", usageErr)
			return 2
		}
		if isCLIUsageError(err) {
			return 2
		}
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "错误: %v\n", err)
			return 1
		}
	}
	return 0
}
