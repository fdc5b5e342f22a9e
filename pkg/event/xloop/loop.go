package xloop

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/google/uuid"

	"github.com/omeyang/xwait/pkg/sync/xwaitobj"
)

// SignalHandler 在信号对象被复位后调用。
type SignalHandler func(ctx context.Context, obj *xwaitobj.Object) error

// DescriptorHandler 在描述符可读时调用，由处理函数负责读取。
type DescriptorHandler func(ctx context.Context, fd xwaitobj.Descriptor) error

type signalEntry struct {
	obj     *xwaitobj.Object
	handler SignalHandler
	owned   bool // 由 AddSignal 创建，Close/RemoveSignal 时释放
}

type descriptorEntry struct {
	fd      xwaitobj.Descriptor
	handler DescriptorHandler
}

// Loop 是单 goroutine 的 select 风格事件循环。
//
// 注册方法、Stop、Reconfigure 可在任意 goroutine 调用；
// 处理函数只在 Run 所在 goroutine 上执行。
type Loop struct {
	id      string
	control *xwaitobj.Object
	logger  *slog.Logger
	metrics *metrics
	tick    TickHandler

	mu          sync.Mutex
	cfg         Config
	signals     []signalEntry
	descriptors []descriptorEntry
	gen         uint64 // 注册表版本，每次变更递增
	closed      bool

	running  atomic.Bool
	stopping atomic.Bool
}

// New 创建事件循环及其内部控制对象。
func New(opts ...Option) (*Loop, error) {
	options := defaultOptions()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(options)
	}
	if err := options.config.Validate(); err != nil {
		return nil, err
	}

	var m *metrics
	if options.config.Metrics {
		var err error
		if m, err = newMetrics(options.meterProvider); err != nil {
			return nil, err
		}
	}

	id := uuid.NewString()
	logger := options.logger.With(slog.String("loop_id", id))

	control, err := xwaitobj.New(
		xwaitobj.WithName(options.config.Name+".control"),
		xwaitobj.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("xloop: create control object: %w", err)
	}

	return &Loop{
		id:      id,
		control: control,
		logger:  logger,
		metrics: m,
		tick:    options.tick,
		cfg:     options.config,
	}, nil
}

// ID 返回循环的唯一标识，日志中记录为 loop_id。
func (l *Loop) ID() string {
	return l.id
}

// Config 返回当前配置。
func (l *Loop) Config() Config {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cfg
}

// AddSignal 创建并注册一个由循环持有的信号对象。
//
// 返回的对象交给生产者 Set；循环负责 Clear 与 Close。
func (l *Loop) AddSignal(name string, h SignalHandler) (*xwaitobj.Object, error) {
	if h == nil {
		return nil, ErrNilHandler
	}
	obj, err := xwaitobj.New(xwaitobj.WithName(name), xwaitobj.WithLogger(l.logger))
	if err != nil {
		return nil, err
	}
	if err := l.addSignal(signalEntry{obj: obj, handler: h, owned: true}); err != nil {
		_ = obj.Close()
		return nil, err
	}
	return obj, nil
}

// WatchSignal 注册一个由调用方持有的信号对象，循环不会关闭它。
//
// 调用方必须先 RemoveSignal 再关闭对象；仍处于注册状态的对象被关闭后，
// 下一次等待会失败并终止 Run。
func (l *Loop) WatchSignal(obj *xwaitobj.Object, h SignalHandler) error {
	if obj == nil {
		return ErrNilObject
	}
	if h == nil {
		return ErrNilHandler
	}
	return l.addSignal(signalEntry{obj: obj, handler: h})
}

func (l *Loop) addSignal(e signalEntry) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	if slices.ContainsFunc(l.signals, func(s signalEntry) bool { return s.obj == e.obj }) {
		l.mu.Unlock()
		return fmt.Errorf("%w: signal %q", ErrAlreadyRegistered, e.obj.Name())
	}
	l.signals = append(l.signals, e)
	l.gen++
	l.mu.Unlock()

	l.wake()
	return nil
}

// RemoveSignal 取消注册信号对象；由 AddSignal 创建的对象同时被关闭。
func (l *Loop) RemoveSignal(obj *xwaitobj.Object) error {
	l.mu.Lock()
	i := slices.IndexFunc(l.signals, func(s signalEntry) bool { return s.obj == obj })
	if i < 0 {
		l.mu.Unlock()
		return ErrNotRegistered
	}
	e := l.signals[i]
	// 不原地修改：Run 持有的快照可能仍引用旧切片。
	l.signals = slices.Delete(slices.Clone(l.signals), i, i+1)
	l.gen++
	l.mu.Unlock()

	l.wake()
	if e.owned {
		return obj.Close()
	}
	return nil
}

// AddDescriptor 注册额外的描述符，可读时调用 h。
// 描述符仍归调用方所有。
func (l *Loop) AddDescriptor(fd xwaitobj.Descriptor, h DescriptorHandler) error {
	if h == nil {
		return ErrNilHandler
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	if slices.ContainsFunc(l.descriptors, func(d descriptorEntry) bool { return d.fd == fd }) {
		l.mu.Unlock()
		return fmt.Errorf("%w: descriptor %d", ErrAlreadyRegistered, fd)
	}
	l.descriptors = append(l.descriptors, descriptorEntry{fd: fd, handler: h})
	l.gen++
	l.mu.Unlock()

	l.wake()
	return nil
}

// RemoveDescriptor 取消注册描述符。
func (l *Loop) RemoveDescriptor(fd xwaitobj.Descriptor) error {
	l.mu.Lock()
	i := slices.IndexFunc(l.descriptors, func(d descriptorEntry) bool { return d.fd == fd })
	if i < 0 {
		l.mu.Unlock()
		return ErrNotRegistered
	}
	l.descriptors = slices.Delete(slices.Clone(l.descriptors), i, i+1)
	l.gen++
	l.mu.Unlock()

	l.wake()
	return nil
}

// Reconfigure 替换配置，从下一次等待开始生效。
func (l *Loop) Reconfigure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	old := l.cfg
	l.cfg = cfg
	l.mu.Unlock()

	l.logger.Info("xloop: reconfigured",
		slog.String("name", cfg.Name),
		slog.Duration("old_poll_interval", old.PollInterval),
		slog.Duration("poll_interval", cfg.PollInterval),
		slog.Int("max_retries", cfg.MaxRetries),
	)
	l.wake()
	return nil
}

// Stop 请求当前（或下一次）Run 返回 nil。可在任意 goroutine 调用。
func (l *Loop) Stop() {
	l.stopping.Store(true)
	l.wake()
}

// wake 唤醒阻塞中的等待。
func (l *Loop) wake() {
	if err := l.control.Set(); err != nil {
		l.logger.Debug("xloop: wake failed", slog.Any("error", err))
	}
}

// Close 释放控制对象与所有由循环持有的信号对象。
//
// 幂等。运行期间调用返回 [ErrRunning]，应先 Stop 并等待 Run 返回。
// 释放采用尽力而为策略，返回第一个失败。
func (l *Loop) Close() error {
	if l.running.Load() {
		return ErrRunning
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	signals := l.signals
	l.signals = nil
	l.descriptors = nil
	l.mu.Unlock()

	var first error
	for _, e := range signals {
		if !e.owned {
			continue
		}
		if err := e.obj.Close(); err != nil && first == nil {
			first = err
		}
	}
	if err := l.control.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

// registry 是一轮迭代使用的注册表快照。
type registry struct {
	cfg         Config
	signals     []signalEntry
	descriptors []descriptorEntry
	gen         uint64
	closed      bool
}

// snapshot 复制当前配置与注册表，等待期间不持锁。
// 注册表切片只会被整体替换，不会被原地修改。
func (l *Loop) snapshot() registry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return registry{
		cfg:         l.cfg,
		signals:     l.signals,
		descriptors: l.descriptors,
		gen:         l.gen,
		closed:      l.closed,
	}
}

// stale 报告快照之后注册表是否发生过变更。
func (l *Loop) stale(r registry) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen != r.gen
}

// Run 在当前 goroutine 上运行事件循环，直到 Stop、ctx 取消或出错。
//
// Stop 时返回 nil；ctx 取消时返回 ctx.Err()；处理函数失败时返回包装了
// [ErrHandler] 的错误；等待失败时返回包装了 [xwaitobj.ErrWaitFailed] 的错误。
func (l *Loop) Run(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	if !l.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer l.running.Store(false)

	if l.snapshot().closed {
		return ErrClosed
	}

	stopWake := context.AfterFunc(ctx, l.wake)
	defer stopWake()

	l.logger.Info("xloop: started", slog.String("name", l.Config().Name))
	err := l.loop(ctx)
	l.logger.Info("xloop: stopped", slog.String("name", l.Config().Name), slog.Any("error", err))
	return err
}

func (l *Loop) loop(ctx context.Context) error {
	objs := make([]*xwaitobj.Object, 0, 8)
	fds := make([]xwaitobj.Descriptor, 0, 8)
	for {
		reg := l.snapshot()
		if reg.closed {
			return ErrClosed
		}
		cfg := reg.cfg

		// 控制对象固定在首位。
		objs = append(objs[:0], l.control)
		for _, e := range reg.signals {
			objs = append(objs, e.obj)
		}
		fds = fds[:0]
		for _, e := range reg.descriptors {
			fds = append(fds, e.fd)
		}

		n, err := l.wait(cfg, objs, fds)
		if err != nil {
			// 快照中的对象或描述符可能已被移除并关闭，用新快照重新等待。
			if l.stale(reg) {
				l.logger.Debug("xloop: registry changed during wait", slog.Any("error", err))
				continue
			}
			l.metrics.recordError(ctx, cfg.Name, stageWait)
			return err
		}

		if n == 0 {
			l.metrics.recordWakeup(ctx, cfg.Name, sourceTimeout)
			if l.tick != nil {
				if err := l.dispatch(ctx, cfg.Name, sourceTimeout, func() error { return l.tick(ctx) }); err != nil {
					return fmt.Errorf("%w: tick: %w", ErrHandler, err)
				}
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			continue
		}

		if l.control.IsSet() {
			l.metrics.recordWakeup(ctx, cfg.Name, sourceControl)
			if err := l.control.Clear(); err != nil {
				l.metrics.recordError(ctx, cfg.Name, stageClear)
				return fmt.Errorf("xloop: clear control: %w", err)
			}
			if l.stopping.CompareAndSwap(true, false) {
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		if err := l.dispatchSignals(ctx, cfg.Name, reg); err != nil {
			return err
		}
		if err := l.dispatchDescriptors(ctx, cfg.Name, reg); err != nil {
			return err
		}
	}
}

// wait 发起一次等待，被信号中断时按 MaxRetries 重试。
func (l *Loop) wait(cfg Config, objs []*xwaitobj.Object, fds []xwaitobj.Descriptor) (int, error) {
	return retry.NewWithData[int](
		retry.Attempts(uint(cfg.MaxRetries)+1),
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(xwaitobj.IsInterrupted),
		retry.OnRetry(func(n uint, err error) {
			l.logger.Debug("xloop: wait interrupted, retrying",
				slog.Uint64("attempt", uint64(n)+1),
				slog.Any("error", err),
			)
		}),
	).Do(func() (int, error) {
		return xwaitobj.Wait(objs, fds, cfg.waitTimeout())
	})
}

func (l *Loop) dispatchSignals(ctx context.Context, name string, reg registry) error {
	for _, e := range reg.signals {
		// 前面的处理函数可能已移除该对象，以当前注册表为准。
		e, ok := l.currentSignal(reg, e)
		if !ok || !e.obj.IsSet() {
			continue
		}
		l.metrics.recordWakeup(ctx, name, sourceSignal)
		// 先复位后分发：处理期间到达的 Set 会在下一轮被观察到。
		if err := e.obj.Clear(); err != nil {
			if !l.signalRegistered(e.obj) {
				continue
			}
			l.metrics.recordError(ctx, name, stageClear)
			return fmt.Errorf("xloop: clear signal %q: %w", e.obj.Name(), err)
		}
		if err := l.dispatch(ctx, name, sourceSignal, func() error { return e.handler(ctx, e.obj) }); err != nil {
			return fmt.Errorf("%w: signal %q: %w", ErrHandler, e.obj.Name(), err)
		}
	}
	return nil
}

func (l *Loop) dispatchDescriptors(ctx context.Context, name string, reg registry) error {
	for _, e := range reg.descriptors {
		e, ok := l.currentDescriptor(reg, e)
		if !ok {
			continue
		}
		ready, err := xwaitobj.Readable(e.fd)
		if err != nil {
			// 探测期间被其他 goroutine 移除并关闭。
			if !l.descriptorRegistered(e.fd) {
				continue
			}
			l.metrics.recordError(ctx, name, stageProbe)
			return fmt.Errorf("xloop: probe descriptor %d: %w", e.fd, err)
		}
		if !ready {
			continue
		}
		l.metrics.recordWakeup(ctx, name, sourceDescriptor)
		if err := l.dispatch(ctx, name, sourceDescriptor, func() error { return e.handler(ctx, e.fd) }); err != nil {
			return fmt.Errorf("%w: descriptor %d: %w", ErrHandler, e.fd, err)
		}
	}
	return nil
}

// currentSignal 返回 e 在当前注册表中的注册项。
// 快照未过期时直接返回 e；对象已被移除时返回 false。
func (l *Loop) currentSignal(reg registry, e signalEntry) (signalEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen == reg.gen {
		return e, true
	}
	i := slices.IndexFunc(l.signals, func(s signalEntry) bool { return s.obj == e.obj })
	if i < 0 {
		return signalEntry{}, false
	}
	return l.signals[i], true
}

// currentDescriptor 同 currentSignal。描述符号被复用并重新注册时返回新的注册项。
func (l *Loop) currentDescriptor(reg registry, e descriptorEntry) (descriptorEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen == reg.gen {
		return e, true
	}
	i := slices.IndexFunc(l.descriptors, func(d descriptorEntry) bool { return d.fd == e.fd })
	if i < 0 {
		return descriptorEntry{}, false
	}
	return l.descriptors[i], true
}

func (l *Loop) signalRegistered(obj *xwaitobj.Object) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.ContainsFunc(l.signals, func(s signalEntry) bool { return s.obj == obj })
}

func (l *Loop) descriptorRegistered(fd xwaitobj.Descriptor) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.ContainsFunc(l.descriptors, func(d descriptorEntry) bool { return d.fd == fd })
}

func (l *Loop) dispatch(ctx context.Context, name, source string, fn func() error) error {
	start := time.Now()
	err := fn()
	l.metrics.recordDispatch(ctx, name, source, time.Since(start))
	if err != nil {
		l.metrics.recordError(ctx, name, stageHandler)
		l.logger.Warn("xloop: handler failed",
			slog.String("name", name),
			slog.String("source", source),
			slog.Any("error", err),
		)
	}
	return err
}
