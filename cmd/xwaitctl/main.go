// xwaitctl 是 xwait 信号对象与事件循环的命令行工具。
//
// 用法:
//
//	xwaitctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	--log-level    日志级别 debug/info/warn/error (默认: info)
//	--log-format   日志格式 text/json (默认: text)
//	--log-file     日志文件路径，设置后按大小轮转（默认输出到 stderr）
//
// 命令:
//
//	probe          创建/Set/Set/Clear/销毁信号对象并打印每一步的状态
//	limits         查看（--ensure N 提升）可同时存在的信号对象上限
//	bench          测量 Set 到事件循环处理函数执行的唤醒延迟
//	loop           运行带命令邮箱与配置热加载的事件循环
//
// 退出码:
//
//	0: 命令执行成功
//	1: 命令执行失败
//	2: 参数错误（无效参数、未知命令等）
//
// 示例:
//
//	xwaitctl probe
//	xwaitctl bench --iterations 10000
//	xwaitctl --log-level debug loop --config loop.yaml --duration 30s
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

// 版本信息（可通过 -ldflags 注入）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdout, os.Stderr))
}

// createApp 创建 CLI 应用。
func createApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "xwaitctl",
		Usage:     "xwait 信号对象与事件循环命令行工具",
		Version:   fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "日志级别 (debug/info/warn/error)",
				Value: "info",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "日志格式 (text/json)",
				Value: "text",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "日志文件路径（按大小轮转）",
			},
		},
		Commands: createCommands(),
		// 由 run() 统一处理退出码映射。
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(stderr, err)
			}
		},
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := createApp(stdout, stderr)
	if err := app.Run(ctx, args); err != nil {
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(stderr, "参数错误: %v\n", usageErr)
			return 2
		}
		if isCLIUsageError(err) {
			fmt.Fprintf(stderr, "参数错误: %v\n", err)
			return 2
		}
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}
