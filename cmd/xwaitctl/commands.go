package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/urfave/cli/v3"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xwait/pkg/event/xloop"
	"github.com/omeyang/xwait/pkg/event/xmailbox"
	"github.com/omeyang/xwait/pkg/sync/xwaitobj"
)

const (
	defaultIterations   = 1000
	maxIterations       = 10_000_000
	defaultPushInterval = 100 * time.Millisecond
	// benchAckTimeout 单次往返等待上限，超过视为事件循环卡死。
	benchAckTimeout = 5 * time.Second
)

// usageError 表示参数错误，退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

// cliUsagePrefixes 是 urfave/cli 参数解析错误的消息前缀。
var cliUsagePrefixes = []string{
	"flag provided but not defined",
	"invalid value",
	"no help topic for",
	"command not found",
	"required flag",
	"flag needs an argument",
}

// isCLIUsageError 判断 err 是否为 CLI 框架产生的参数错误。
func isCLIUsageError(err error) bool {
	msg := strings.ToLower(err.Error())
	return slices.ContainsFunc(cliUsagePrefixes, func(p string) bool {
		return strings.Contains(msg, p)
	})
}

// 创建所有子命令。
func createCommands() []*cli.Command {
	return []*cli.Command{
		createProbeCommand(),
		createLimitsCommand(),
		createBenchCommand(),
		createLoopCommand(),
	}
}

// withLogger 为命令创建日志记录器并在命令返回后关闭日志输出。
func withLogger(cmd *cli.Command, fn func(logger *slog.Logger) error) error {
	logger, closer, err := newLogger(
		cmd.String("log-level"),
		cmd.String("log-format"),
		cmd.String("log-file"),
		cmd.Root().ErrWriter,
	)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()
	return fn(logger)
}

func createProbeCommand() *cli.Command {
	return &cli.Command{
		Name:  "probe",
		Usage: "运行创建/Set/Set/Clear/销毁流程并打印状态",
		Action: func(_ context.Context, cmd *cli.Command) error {
			return withLogger(cmd, func(logger *slog.Logger) error {
				return cmdProbe(cmd.Root().Writer, logger)
			})
		},
	}
}

func createLimitsCommand() *cli.Command {
	return &cli.Command{
		Name:  "limits",
		Usage: "查看（或提升）可同时存在的信号对象上限",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "ensure",
				Usage: "提升 RLIMIT_NOFILE soft limit 以容纳指定数量的对象",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			n := cmd.Int("ensure")
			if n < 0 {
				return &usageError{msg: "ensure 不能为负数"}
			}
			return cmdLimits(cmd.Root().Writer, n)
		},
	}
}

func createBenchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "测量 Set 到事件循环处理函数执行的唤醒延迟",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "iterations",
				Aliases: []string{"n"},
				Usage:   "往返次数",
				Value:   defaultIterations,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			n := cmd.Int("iterations")
			if n <= 0 || n > maxIterations {
				return &usageError{msg: fmt.Sprintf("iterations 必须在 1 到 %d 之间，实际 %d", maxIterations, n)}
			}
			return withLogger(cmd, func(logger *slog.Logger) error {
				return cmdBench(ctx, cmd.Root().Writer, logger, n)
			})
		},
	}
}

func createLoopCommand() *cli.Command {
	return &cli.Command{
		Name:  "loop",
		Usage: "运行带命令邮箱与配置热加载的事件循环",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "循环配置文件（.yaml/.yml/.json），修改后自动重新加载",
			},
			&cli.DurationFlag{
				Name:    "duration",
				Aliases: []string{"d"},
				Usage:   "运行时长，0 表示直到收到中断信号",
			},
			&cli.DurationFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "生产者投递命令的间隔",
				Value:   defaultPushInterval,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts := loopOptions{
				configPath: cmd.String("config"),
				duration:   cmd.Duration("duration"),
				interval:   cmd.Duration("interval"),
			}
			if opts.duration < 0 {
				return &usageError{msg: "duration 不能为负数"}
			}
			if opts.interval <= 0 {
				return &usageError{msg: "interval 必须为正数"}
			}
			return withLogger(cmd, func(logger *slog.Logger) error {
				return cmdLoop(ctx, cmd.Root().Writer, logger, opts)
			})
		},
	}
}

// cmdProbe 依次执行 New → Set → Set → Clear → Close 并打印每一步的 IsSet。
func cmdProbe(w io.Writer, logger *slog.Logger) error {
	obj, err := xwaitobj.New(xwaitobj.WithName("probe"), xwaitobj.WithLogger(logger))
	if err != nil {
		return err
	}
	defer obj.Close()

	steps := []struct {
		name string
		fn   func() error
	}{
		{"new", func() error { return nil }},
		{"set", obj.Set},
		{"set", obj.Set},
		{"clear", obj.Clear},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
		fmt.Fprintf(w, "%-6s signaled=%t\n", s.name, obj.IsSet())
	}

	if err := obj.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	fmt.Fprintf(w, "%-6s signaled=%t\n", "close", obj.IsSet())
	return nil
}

// cmdLimits 打印对象上限；ensure > 0 时先尝试提升 soft limit。
func cmdLimits(w io.Writer, ensure int) error {
	if ensure > 0 {
		if err := xwaitobj.EnsureObjects(ensure); err != nil && !errors.Is(err, xwaitobj.ErrUnsupportedPlatform) {
			return err
		}
	}
	n, err := xwaitobj.MaxObjects()
	if errors.Is(err, xwaitobj.ErrUnsupportedPlatform) {
		fmt.Fprintln(w, "max_objects=unlimited")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "max_objects=%d\n", n)
	return nil
}

// benchStats 延迟统计。
type benchStats struct {
	count         int
	minimum, mean time.Duration
	maximum       time.Duration
}

func summarize(samples []time.Duration) benchStats {
	if len(samples) == 0 {
		return benchStats{}
	}
	s := benchStats{count: len(samples), minimum: samples[0], maximum: samples[0]}
	var total time.Duration
	for _, d := range samples {
		total += d
		s.minimum = min(s.minimum, d)
		s.maximum = max(s.maximum, d)
	}
	s.mean = total / time.Duration(len(samples))
	return s
}

// cmdBench 生产者 goroutine Set ping 对象，事件循环处理函数记录唤醒延迟后
// Set pong 对象作为应答，生产者等到应答后开始下一轮。
func cmdBench(ctx context.Context, w io.Writer, logger *slog.Logger, iterations int) error {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	cfg := xloop.DefaultConfig()
	cfg.Name = "bench"
	cfg.PollInterval = xwaitobj.Infinite
	loop, err := xloop.New(
		xloop.WithConfig(cfg),
		xloop.WithLogger(logger),
		xloop.WithMeterProvider(provider),
	)
	if err != nil {
		return err
	}
	defer loop.Close()

	pong, err := xwaitobj.New(xwaitobj.WithName("pong"), xwaitobj.WithLogger(logger))
	if err != nil {
		return err
	}
	defer pong.Close()

	var sentAt atomic.Int64
	samples := make([]time.Duration, 0, iterations)
	ping, err := loop.AddSignal("ping", func(context.Context, *xwaitobj.Object) error {
		samples = append(samples, time.Since(time.Unix(0, sentAt.Load())))
		return pong.Set()
	})
	if err != nil {
		return err
	}

	cancelled, err := xwaitobj.New(xwaitobj.WithName("cancelled"), xwaitobj.WithLogger(logger))
	if err != nil {
		return err
	}
	defer cancelled.Close()

	g, gctx := errgroup.WithContext(ctx)
	// 循环失败或 ctx 取消时唤醒等待应答的生产者。
	stopCancel := context.AfterFunc(gctx, func() { _ = cancelled.Set() })
	defer stopCancel()

	g.Go(func() error {
		return loop.Run(gctx)
	})
	g.Go(func() error {
		defer loop.Stop()
		for i := range iterations {
			if err := gctx.Err(); err != nil {
				return err
			}
			sentAt.Store(time.Now().UnixNano())
			if err := ping.Set(); err != nil {
				return err
			}
			acked, err := awaitAck(gctx, pong, cancelled)
			if err != nil {
				return err
			}
			if !acked {
				return fmt.Errorf("iteration %d: no ack within %s", i, benchAckTimeout)
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	s := summarize(samples)
	fmt.Fprintf(w, "iterations=%d min=%s avg=%s max=%s\n", s.count, s.minimum, s.mean, s.maximum)
	return printMetrics(w, reader)
}

// awaitAck 等待 pong 应答并复位；cancelled 被 Set 时返回 ctx.Err()。
func awaitAck(ctx context.Context, pong, cancelled *xwaitobj.Object) (bool, error) {
	n, err := xwaitobj.Wait([]*xwaitobj.Object{pong, cancelled}, nil, benchAckTimeout)
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	return true, pong.Clear()
}

// printMetrics 打印 ManualReader 收集到的计数器。
func printMetrics(w io.Writer, reader *sdkmetric.ManualReader) error {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		return fmt.Errorf("collect metrics: %w", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				var attrs []string
				for _, kv := range dp.Attributes.ToSlice() {
					attrs = append(attrs, fmt.Sprintf("%s=%s", kv.Key, kv.Value.Emit()))
				}
				fmt.Fprintf(w, "%s{%s} %d\n", m.Name, strings.Join(attrs, ","), dp.Value)
			}
		}
	}
	return nil
}

type loopOptions struct {
	configPath string
	duration   time.Duration
	interval   time.Duration
}

// cmdLoop 运行事件循环：生产者定时向邮箱投递命令，循环批量取出；
// 配置文件变化时在循环 goroutine 上重新加载。
func cmdLoop(ctx context.Context, w io.Writer, logger *slog.Logger, opts loopOptions) error {
	cfg := xloop.DefaultConfig()
	if opts.configPath != "" {
		var err error
		if cfg, err = xloop.LoadConfig(opts.configPath); err != nil {
			return err
		}
	}

	var ticks atomic.Int64
	loop, err := xloop.New(
		xloop.WithConfig(cfg),
		xloop.WithLogger(logger),
		xloop.WithTickHandler(func(context.Context) error {
			ticks.Add(1)
			return nil
		}),
	)
	if err != nil {
		return err
	}
	defer loop.Close()

	var (
		mb        *xmailbox.Mailbox[string]
		processed int
	)
	commands, err := loop.AddSignal("commands", func(context.Context, *xwaitobj.Object) error {
		batch := mb.Drain()
		processed += len(batch)
		logger.Debug("commands drained", slog.Int("batch", len(batch)), slog.Int("processed", processed))
		return nil
	})
	if err != nil {
		return err
	}
	if mb, err = xmailbox.New[string](commands); err != nil {
		return err
	}
	defer mb.Close()

	var reloads int
	if opts.configPath != "" {
		reload, err := loop.AddSignal("reload", func(context.Context, *xwaitobj.Object) error {
			next, err := xloop.LoadConfig(opts.configPath)
			if err != nil {
				// 无效配置不终止循环，保留当前配置。
				logger.Warn("config reload failed", slog.String("path", opts.configPath), slog.Any("error", err))
				return nil
			}
			reloads++
			return loop.Reconfigure(next)
		})
		if err != nil {
			return err
		}
		watcher, err := xloop.WatchConfig(opts.configPath, reload, xloop.WithWatchLogger(logger))
		if err != nil {
			return err
		}
		defer watcher.Stop()
	}

	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	var pushed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(gctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(opts.interval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				n := pushed.Add(1)
				if err := mb.Push(fmt.Sprintf("cmd-%d", n)); err != nil {
					return err
				}
			}
		}
	})

	err = g.Wait()
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		return err
	}

	// 循环已退出，取出最后一批未处理的命令。
	processed += len(mb.Drain())
	fmt.Fprintf(w, "loop=%s pushed=%d processed=%d reloads=%d ticks=%d\n",
		loop.Config().Name, pushed.Load(), processed, reloads, ticks.Load())
	return nil
}
