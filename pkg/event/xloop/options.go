package xloop

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// TickHandler 在等待超时且无任何就绪时调用。
type TickHandler func(ctx context.Context) error

// Option 配置 Loop 的选项函数。
type Option func(*loopOptions)

type loopOptions struct {
	config        Config
	logger        *slog.Logger
	meterProvider metric.MeterProvider
	tick          TickHandler
}

func defaultOptions() *loopOptions {
	return &loopOptions{
		config:        DefaultConfig(),
		logger:        slog.Default(),
		meterProvider: otel.GetMeterProvider(),
	}
}

// WithConfig 设置循环配置，New 时校验。
func WithConfig(cfg Config) Option {
	return func(o *loopOptions) {
		o.config = cfg
	}
}

// WithLogger 设置日志记录器，默认 slog.Default()。
// 循环创建的信号对象使用同一个记录器。
func WithLogger(logger *slog.Logger) Option {
	return func(o *loopOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMeterProvider 设置 MeterProvider，默认 otel.GetMeterProvider()。
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(o *loopOptions) {
		if provider != nil {
			o.meterProvider = provider
		}
	}
}

// WithTickHandler 设置超时处理函数。
func WithTickHandler(h TickHandler) Option {
	return func(o *loopOptions) {
		o.tick = h
	}
}
