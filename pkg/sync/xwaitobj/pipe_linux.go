//go:build linux

package xwaitobj

import "golang.org/x/sys/unix"

// newPipe 用 pipe2 原子地设置 close-on-exec 与非阻塞。
func newPipe(fds []int) error {
	return unix.Pipe2(fds, unix.O_CLOEXEC|unix.O_NONBLOCK)
}
