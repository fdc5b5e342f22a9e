package xmailbox

import "errors"

var (
	// ErrNilObject 表示未提供信号对象。
	ErrNilObject = errors.New("xmailbox: nil object")

	// ErrFull 表示队列已达到 WithCapacity 设置的上限。
	ErrFull = errors.New("xmailbox: mailbox is full")

	// ErrClosed 表示邮箱已关闭。
	ErrClosed = errors.New("xmailbox: mailbox is closed")
)
