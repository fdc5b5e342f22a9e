//go:build windows

package xwaitobj

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
)

// maximumWaitObjects 是 WaitForMultipleObjects 支持的句柄上限（MAXIMUM_WAIT_OBJECTS）。
const maximumWaitObjects = 64

// WSAEventSelect 网络事件掩码。
const (
	fdRead   = 0x01
	fdAccept = 0x08
	fdClose  = 0x20
)

var (
	ws2dll             = windows.NewLazySystemDLL("ws2_32.dll")
	procWSAEventSelect = ws2dll.NewProc("WSAEventSelect")
)

// wsaEventSelect 将 socket 的网络事件关联到 ev；ev 为 0、mask 为 0 时解除关联。
func wsaEventSelect(s, ev windows.Handle, mask uint32) error {
	r1, _, e := procWSAEventSelect.Call(uintptr(s), uintptr(ev), uintptr(mask))
	// SOCKET_ERROR
	if int32(r1) == -1 {
		var errno windows.Errno
		if errors.As(e, &errno) && errno != 0 {
			return e
		}
		return windows.WSAEINVAL
	}
	return nil
}

// waitReady 在对象事件与 socket 临时事件上发起一次 WaitForMultipleObjects。
//
// 就绪数量在等待返回后通过逐个零超时探测得到；socket 在返回前解除关联。
// 注意：WSAEventSelect 会把 socket 置为非阻塞模式，解除关联后不会恢复。
func waitReady(objs, fds []Descriptor, timeoutMs int) (int, error) {
	timeout := uint32(windows.INFINITE)
	if timeoutMs >= 0 {
		timeout = uint32(timeoutMs)
	}

	total := len(objs) + len(fds)
	if total == 0 {
		windows.SleepEx(timeout, false)
		return 0, nil
	}
	if total > maximumWaitObjects {
		return -1, fmt.Errorf("too many handles: %d > %d", total, maximumWaitObjects)
	}

	handles := make([]windows.Handle, 0, total)
	for _, d := range objs {
		handles = append(handles, windows.Handle(d))
	}

	sockEvents := make([]windows.Handle, 0, len(fds))
	defer func() {
		for i, ev := range sockEvents {
			_ = wsaEventSelect(windows.Handle(fds[i]), 0, 0)
			_ = windows.CloseHandle(ev)
		}
	}()
	for _, d := range fds {
		ev, err := windows.CreateEvent(nil, 1, 0, nil)
		if err != nil {
			return -1, fmt.Errorf("CreateEvent: %w", err)
		}
		if err := wsaEventSelect(windows.Handle(d), ev, fdRead|fdAccept|fdClose); err != nil {
			_ = windows.CloseHandle(ev)
			return -1, fmt.Errorf("WSAEventSelect: %w", err)
		}
		sockEvents = append(sockEvents, ev)
		handles = append(handles, ev)
	}

	ev, err := windows.WaitForMultipleObjects(handles, false, timeout)
	if err != nil {
		return -1, fmt.Errorf("WaitForMultipleObjects: %w", err)
	}
	if ev == uint32(windows.WAIT_TIMEOUT) {
		return 0, nil
	}

	ready := 0
	for _, h := range handles {
		if r, err := windows.WaitForSingleObject(h, 0); err == nil && r == windows.WAIT_OBJECT_0 {
			ready++
		}
	}
	// 探测与等待之间对象可能已被复位，至少报告触发返回的那一个。
	if ready == 0 {
		ready = 1
	}
	return ready, nil
}
