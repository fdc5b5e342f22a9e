//go:build windows

package xwaitobj

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// 系统调用函数变量，支持测试中 mock 替换以覆盖失败路径。
var (
	createEvent = windows.CreateEvent
	closeHandle = windows.CloseHandle
)

// channel 是内核事件后端：一个手动复位的事件句柄。
type channel struct {
	h windows.Handle
}

// openChannel 创建手动复位、初始未触发的匿名事件。
func openChannel() (channel, error) {
	h, err := createEvent(nil, 1, 0, nil)
	if err != nil {
		return channel{}, fmt.Errorf("%w: CreateEvent: %w", ErrResourceExhausted, err)
	}
	return channel{h: h}, nil
}

func (c *channel) descriptor() Descriptor {
	return Descriptor(c.h)
}

// isSet 对事件做零超时等待。
func (c *channel) isSet() (bool, error) {
	ev, err := windows.WaitForSingleObject(c.h, 0)
	if err != nil {
		return false, fmt.Errorf("%w: WaitForSingleObject: %w", ErrIO, err)
	}
	return ev == windows.WAIT_OBJECT_0, nil
}

// set 由 OS 保证幂等。
func (c *channel) set() error {
	if err := windows.SetEvent(c.h); err != nil {
		return fmt.Errorf("%w: SetEvent: %w", ErrIO, err)
	}
	return nil
}

func (c *channel) clear() error {
	if err := windows.ResetEvent(c.h); err != nil {
		return fmt.Errorf("%w: ResetEvent: %w", ErrIO, err)
	}
	return nil
}

func (c *channel) close() []error {
	if c.h == 0 {
		return nil
	}
	h := c.h
	c.h = 0
	if err := closeHandle(h); err != nil {
		return []error{fmt.Errorf("xwaitobj: close event handle: %w", err)}
	}
	return nil
}
