package xwaitobj

import (
	"log/slog"
	"sync"
)

// Descriptor 表示可参与等待的操作系统描述符。
// Unix 上为文件描述符，Windows 上为 SOCKET 或内核对象句柄。
type Descriptor uintptr

// Object 是跨 goroutine 的电平触发信号对象。
//
// 任意时刻对象处于"未触发"或"已触发"之一，除 Set/Clear 外不会自行变化。
// 对象独占其 OS 通道，由创建者负责调用 Close。
type Object struct {
	// mu 保护 closed 与 ch 的生命周期：Set/Clear/IsSet 持读锁，Close 持写锁。
	// 通道本身提供跨线程可见性，读锁只用于防止与 Close 并发访问已释放的描述符。
	mu     sync.RWMutex
	ch     channel
	closed bool
	name   string
	logger *slog.Logger
}

// New 创建一个未触发的信号对象。
//
// OS 无法分配通道时返回包装了 [ErrResourceExhausted] 的错误。
func New(opts ...Option) (*Object, error) {
	options := defaultOptions()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(options)
	}

	ch, err := openChannel()
	if err != nil {
		return nil, err
	}
	return &Object{
		ch:     ch,
		name:   options.name,
		logger: options.logger,
	}, nil
}

// Name 返回对象名称。
func (o *Object) Name() string {
	if o == nil {
		return ""
	}
	return o.name
}

// Fd 返回对象用于等待的描述符（pipe 读端或事件句柄）。
// 对象为 nil 或已关闭时返回 false。
//
// 供需要接入自有 poller 的调用方使用；不要对返回的描述符直接读写或关闭。
func (o *Object) Fd() (Descriptor, bool) {
	if o == nil {
		return 0, false
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return 0, false
	}
	return o.ch.descriptor(), true
}

// IsSet 非阻塞地查询对象是否处于已触发状态。
// 对象为 nil、已关闭或查询失败时返回 false。
func (o *Object) IsSet() bool {
	if o == nil {
		return false
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return false
	}
	set, err := o.ch.isSet()
	if err != nil {
		o.logger.Debug("xwaitobj: state query failed",
			slog.String("name", o.name),
			slog.Any("error", err),
		)
		return false
	}
	return set
}

// Set 将对象置为已触发。
//
// 已触发时为空操作并返回 nil：多次 Set 合并为一次待处理的唤醒。
// 返回包装了 [ErrIO] 的错误表示通道已损坏，对象应被关闭。
func (o *Object) Set() error {
	if o == nil {
		return ErrClosed
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return ErrClosed
	}
	return o.ch.set()
}

// Clear 将对象置为未触发，返回前保证状态已完全复位。
//
// 从未 Set 过的对象调用 Clear 为空操作。
// 返回包装了 [ErrIO] 的错误表示通道被非法写入者破坏，对象应被关闭。
func (o *Object) Clear() error {
	if o == nil {
		return ErrClosed
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return ErrClosed
	}
	return o.ch.clear()
}

// Close 释放对象持有的所有 OS 资源。
//
// 幂等：对 nil 或已关闭的对象调用返回 nil。
// 释放采用尽力而为策略：某一步失败不会阻止其余资源的释放，
// 每个失败都会被记录日志，返回第一个失败。
func (o *Object) Close() error {
	if o == nil {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true

	errs := o.ch.close()
	for _, err := range errs {
		o.logger.Warn("xwaitobj: release failed",
			slog.String("name", o.name),
			slog.Any("error", err),
		)
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
