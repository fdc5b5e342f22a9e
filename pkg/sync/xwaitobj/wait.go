package xwaitobj

import (
	"errors"
	"fmt"
	"math"
	"syscall"
	"time"
)

// Infinite 作为 [Wait] 的超时参数表示无限期阻塞。任意负值等价。
const Infinite time.Duration = -1

// Wait 阻塞直到 objs 中任一对象已触发、fds 中任一描述符可读，或超时。
//
// timeout 为负值时无限期阻塞，为 0 时只轮询不阻塞，正值按整毫秒截断
// （不足 1ms 的部分被舍去，超出 OS 上限的值被钳制）。
//
// 返回值：0 表示超时且无就绪；正数表示就绪描述符数量；
// 失败时返回 -1 与包装了 [ErrWaitFailed] 的错误。objs 中包含 nil
// 或已关闭的对象同样视为失败。
//
// Wait 不报告具体是哪个条件触发。objs 与 fds 都为空且无限期阻塞时的行为
// 由平台决定，调用方不应依赖。
func Wait(objs []*Object, fds []Descriptor, timeout time.Duration) (int, error) {
	watched := make([]Descriptor, 0, len(objs))
	for i, o := range objs {
		// 只在读取描述符时持有对象锁，阻塞等待期间不持锁。
		d, ok := o.Fd()
		if !ok {
			return -1, fmt.Errorf("%w: object %d: %w", ErrWaitFailed, i, ErrClosed)
		}
		watched = append(watched, d)
	}

	n, err := waitReady(watched, fds, timeoutMillis(timeout))
	if err != nil {
		return -1, fmt.Errorf("%w: %w", ErrWaitFailed, err)
	}
	return n, nil
}

// Readable 对单个描述符做零超时可读探测。
func Readable(fd Descriptor) (bool, error) {
	n, err := Wait(nil, []Descriptor{fd}, 0)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// IsInterrupted 报告 err 是否为被信号中断的等待（EINTR），调用方通常应重试。
func IsInterrupted(err error) bool {
	return errors.Is(err, ErrWaitFailed) && errors.Is(err, syscall.EINTR)
}

// DescriptorOf 通过 SyscallConn 取出 conn 的底层描述符。
// 适用于 *net.TCPConn、*net.TCPListener、*net.UnixConn、*os.File 等。
//
// 返回的描述符仍归 conn 所有，conn 关闭后不可再用于 [Wait]。
func DescriptorOf(conn syscall.Conn) (Descriptor, error) {
	if conn == nil {
		return 0, errors.New("xwaitobj: nil conn")
	}
	rc, err := conn.SyscallConn()
	if err != nil {
		return 0, fmt.Errorf("xwaitobj: syscall conn: %w", err)
	}
	var fd uintptr
	if err := rc.Control(func(f uintptr) { fd = f }); err != nil {
		return 0, fmt.Errorf("xwaitobj: control: %w", err)
	}
	return Descriptor(fd), nil
}

// timeoutMillis 将超时转换为毫秒：负值为 -1（无限），正值向下截断并钳制到 int32 上限。
func timeoutMillis(d time.Duration) int {
	if d < 0 {
		return -1
	}
	ms := d / time.Millisecond
	if ms > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(ms)
}
