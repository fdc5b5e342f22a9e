package xloop

import "errors"

var (
	// ErrRunning 表示 Loop 已在另一个 goroutine 上运行，或在运行期间调用了 Close。
	ErrRunning = errors.New("xloop: loop is running")

	// ErrClosed 表示 Loop 已关闭。
	ErrClosed = errors.New("xloop: loop is closed")

	// ErrNilContext 表示传入的 context 为 nil。
	ErrNilContext = errors.New("xloop: nil context")

	// ErrNilObject 表示注册的信号对象为 nil。
	ErrNilObject = errors.New("xloop: nil object")

	// ErrNilHandler 表示注册的处理函数为 nil。
	ErrNilHandler = errors.New("xloop: nil handler")

	// ErrAlreadyRegistered 表示信号对象或描述符已注册。
	ErrAlreadyRegistered = errors.New("xloop: already registered")

	// ErrNotRegistered 表示要移除的信号对象或描述符未注册。
	ErrNotRegistered = errors.New("xloop: not registered")

	// ErrHandler 包装处理函数返回的错误。
	ErrHandler = errors.New("xloop: handler failed")

	// ErrInvalidConfig 表示配置无效。
	ErrInvalidConfig = errors.New("xloop: invalid config")
)
