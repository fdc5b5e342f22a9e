package xwaitobj

import "log/slog"

// defaultName 未指定名称时使用的对象名。
const defaultName = "waitobj"

// Option 配置 Object 的选项函数。
type Option func(*objectOptions)

type objectOptions struct {
	name   string
	logger *slog.Logger
}

func defaultOptions() *objectOptions {
	return &objectOptions{
		name:   defaultName,
		logger: slog.Default(),
	}
}

// WithName 设置对象名称。
//
// 名称只用于日志记录中标识对象，不影响行为。
// 默认值为 "waitobj"，空字符串会被忽略。
func WithName(name string) Option {
	return func(o *objectOptions) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger 设置日志记录器。
//
// 用于记录 Close 时的部分释放失败。
// 默认使用 slog.Default()，传入 nil 将被忽略。
func WithLogger(logger *slog.Logger) Option {
	return func(o *objectOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
