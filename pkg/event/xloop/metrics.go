package xloop

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	instrumentationName = "github.com/omeyang/xwait/xloop"

	metricNameWakeups          = "xwait.loop.wakeups"
	metricNameDispatchDuration = "xwait.loop.dispatch.duration"
	metricNameErrors           = "xwait.loop.errors"
)

// 唤醒来源。
const (
	sourceControl    = "control"
	sourceSignal     = "signal"
	sourceDescriptor = "descriptor"
	sourceTimeout    = "timeout"
)

// 错误阶段。
const (
	stageWait    = "wait"
	stageClear   = "clear"
	stageHandler = "handler"
	stageProbe   = "probe"
)

// metrics 循环指标。nil 接收者上的记录方法为空操作。
type metrics struct {
	wakeups  metric.Int64Counter
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

func newMetrics(provider metric.MeterProvider) (*metrics, error) {
	if provider == nil {
		return nil, nil
	}
	meter := provider.Meter(instrumentationName)

	wakeups, err := meter.Int64Counter(
		metricNameWakeups,
		metric.WithDescription("事件循环唤醒次数"),
		metric.WithUnit("{wakeup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("xloop: create counter failed: %w", err)
	}

	duration, err := meter.Float64Histogram(
		metricNameDispatchDuration,
		metric.WithDescription("处理函数耗时"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.00001, 0.0001, 0.001, 0.01, 0.1, 1.0,
		),
	)
	if err != nil {
		return nil, fmt.Errorf("xloop: create histogram failed: %w", err)
	}

	errs, err := meter.Int64Counter(
		metricNameErrors,
		metric.WithDescription("事件循环错误次数"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("xloop: create counter failed: %w", err)
	}

	return &metrics{wakeups: wakeups, duration: duration, errors: errs}, nil
}

func (m *metrics) recordWakeup(ctx context.Context, loop, source string) {
	if m == nil {
		return
	}
	m.wakeups.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(
		attribute.String("loop", loop),
		attribute.String("source", source),
	))
}

func (m *metrics) recordDispatch(ctx context.Context, loop, source string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.Record(context.WithoutCancel(ctx), elapsed.Seconds(), metric.WithAttributes(
		attribute.String("loop", loop),
		attribute.String("source", source),
	))
}

func (m *metrics) recordError(ctx context.Context, loop, stage string) {
	if m == nil {
		return
	}
	m.errors.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(
		attribute.String("loop", loop),
		attribute.String("stage", stage),
	))
}
