package xwaitobj

import "errors"

var (
	// ErrResourceExhausted 表示操作系统无法分配信号通道（例如文件描述符耗尽）。
	ErrResourceExhausted = errors.New("xwaitobj: cannot allocate signal channel")

	// ErrIO 表示 Set/Clear 观察到短读、短写或底层 I/O 失败。
	// 通道状态已不可信，对象应被关闭且不再使用。
	ErrIO = errors.New("xwaitobj: signal channel i/o failed")

	// ErrWaitFailed 表示多路等待调用本身失败（被信号中断、描述符无效等）。
	ErrWaitFailed = errors.New("xwaitobj: wait failed")

	// ErrClosed 表示对象为 nil 或已关闭。
	ErrClosed = errors.New("xwaitobj: object is closed")

	// ErrInvalidLimit 表示期望的对象数量无效。
	ErrInvalidLimit = errors.New("xwaitobj: invalid object limit")

	// ErrUnsupportedPlatform 表示当前平台不支持此操作。
	ErrUnsupportedPlatform = errors.New("xwaitobj: unsupported platform")
)
