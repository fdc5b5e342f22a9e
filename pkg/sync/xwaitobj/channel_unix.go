//go:build unix

package xwaitobj

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// sentinelSize 哨兵消息长度，Set 写入与 Clear 读出必须严格一致。
const sentinelSize = 4

// sentinel 哨兵内容不被解释，只用于让读端产生可读字节。
var sentinel = [sentinelSize]byte{'s', 'i', 'g', 0}

// 系统调用函数变量，支持测试中 mock 替换以覆盖短读写与释放失败路径。
// 注意：mock 测试不可使用 t.Parallel()，因为替换包级变量会引发竞态。
var (
	pipe    = newPipe
	write   = unix.Write
	read    = unix.Read
	poll    = unix.Poll
	closeFD = unix.Close
)

// channel 是 self-pipe 后端：读端存在未读字节即为已触发。
type channel struct {
	r int // 读端
	w int // 写端
}

// openChannel 创建 pipe 对，两端为 close-on-exec 与非阻塞。
// 任何创建阶段的失败都归为 ErrResourceExhausted。
func openChannel() (channel, error) {
	var fds [2]int
	if err := pipe(fds[:]); err != nil {
		return channel{r: -1, w: -1}, fmt.Errorf("%w: pipe: %w", ErrResourceExhausted, err)
	}
	return channel{r: fds[0], w: fds[1]}, nil
}

func (c *channel) descriptor() Descriptor {
	return Descriptor(c.r)
}

// isSet 对读端做零超时 poll，读端可读即为已触发。
func (c *channel) isSet() (bool, error) {
	fds := []unix.PollFd{{Fd: int32(c.r), Events: unix.POLLIN}}
	for {
		n, err := poll(fds, 0)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("%w: poll: %w", ErrIO, err)
		}
		if fds[0].Revents&unix.POLLNVAL != 0 {
			return false, fmt.Errorf("%w: poll: %w", ErrIO, unix.EBADF)
		}
		return n > 0, nil
	}
}

// set 已触发时为空操作，避免重复 Set 无限增长 pipe 缓冲区。
func (c *channel) set() error {
	set, err := c.isSet()
	if err != nil {
		return err
	}
	if set {
		return nil
	}
	for {
		n, err := write(c.w, sentinel[:])
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			// 缓冲区已满，说明读端必然可读。
			return nil
		case err != nil:
			return fmt.Errorf("%w: write: %w", ErrIO, err)
		case n != sentinelSize:
			return fmt.Errorf("%w: short write %d/%d bytes", ErrIO, n, sentinelSize)
		}
		return nil
	}
}

// clear 逐次读出哨兵直到读端不可读。
// 每次读取使用独立的临时缓冲区，长度必须等于哨兵长度。
func (c *channel) clear() error {
	var scratch [sentinelSize]byte
	for {
		set, err := c.isSet()
		if err != nil {
			return err
		}
		if !set {
			return nil
		}
		n, err := read(c.r, scratch[:])
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return nil
		case err != nil:
			return fmt.Errorf("%w: read: %w", ErrIO, err)
		case n != sentinelSize:
			return fmt.Errorf("%w: short read %d/%d bytes", ErrIO, n, sentinelSize)
		}
	}
}

// close 依次关闭读端与写端；前一步失败不影响后一步。
func (c *channel) close() []error {
	var errs []error
	if c.r != -1 {
		if err := closeFD(c.r); err != nil {
			errs = append(errs, fmt.Errorf("xwaitobj: close read end %d: %w", c.r, err))
		}
		c.r = -1
	}
	if c.w != -1 {
		if err := closeFD(c.w); err != nil {
			errs = append(errs, fmt.Errorf("xwaitobj: close write end %d: %w", c.w, err))
		}
		c.w = -1
	}
	return errs
}
