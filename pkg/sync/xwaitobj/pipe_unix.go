//go:build unix && !linux

package xwaitobj

import (
	"fmt"

	"golang.org/x/sys/unix"
)

var setNonblock = unix.SetNonblock

// newPipe 创建 pipe 后逐端设置 close-on-exec 与非阻塞，失败时关闭两端。
func newPipe(fds []int) error {
	if err := unix.Pipe(fds); err != nil {
		return err
	}
	for _, fd := range fds {
		unix.CloseOnExec(fd)
		if err := setNonblock(fd, true); err != nil {
			_ = unix.Close(fds[0])
			_ = unix.Close(fds[1])
			return fmt.Errorf("set nonblock: %w", err)
		}
	}
	return nil
}
