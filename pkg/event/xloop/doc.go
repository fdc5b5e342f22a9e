// Package xloop 提供基于 xwaitobj 的单 goroutine 事件循环。
//
// # 功能概览
//
// Loop 在一次 [xwaitobj.Wait] 中同时等待所有已注册的信号对象与描述符，
// 被唤醒后按注册顺序逐个探测：
//
//   - 信号对象：IsSet 为真时先 Clear 再调用处理函数（先复位后分发，
//     处理期间的新 Set 不会丢失）
//   - 描述符：可读时调用处理函数，由处理函数负责读取
//   - 超时：调用 WithTickHandler 设置的处理函数
//
// 所有处理函数都在 Run 所在的 goroutine 上串行执行。
//
// # 控制
//
// Loop 内部持有一个控制对象。Stop、注册变更、Reconfigure 以及 ctx 取消
// 都通过 Set 控制对象唤醒正在阻塞的 Wait，因此可在任意 goroutine 调用。
//
// 被信号中断的等待（EINTR）按配置的 max_retries 重试，其余等待失败与
// 处理函数返回的错误都会终止 Run。
//
// # 配置
//
// [Config] 支持 YAML/JSON（基于 koanf），可通过 [ParseConfig] 或
// [LoadConfig] 加载，[ConfigWatcher] 监听配置文件变化并 Set 指定的信号对象：
//
//	name: outbound
//	poll_interval: 500ms
//	max_retries: 3
//	metrics: true
//
// # 指标
//
// 默认使用 otel.GetMeterProvider()，通过 WithMeterProvider 替换：
//
//   - xwait.loop.wakeups：唤醒次数，属性 source=control|signal|descriptor|timeout
//   - xwait.loop.dispatch.duration：处理函数耗时（秒）
//   - xwait.loop.errors：错误次数，属性 stage=wait|clear|handler|probe
package xloop
