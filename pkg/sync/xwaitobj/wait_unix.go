//go:build unix

package xwaitobj

import "golang.org/x/sys/unix"

// readyEvents 计为就绪的 revents，与 select(2) 把错误与挂断视为可读的语义一致。
const readyEvents = unix.POLLIN | unix.POLLHUP | unix.POLLERR

// waitReady 对所有读端与额外描述符发起一次 poll(2)。
func waitReady(objs, fds []Descriptor, timeoutMs int) (int, error) {
	pfds := make([]unix.PollFd, 0, len(objs)+len(fds))
	for _, d := range objs {
		pfds = append(pfds, unix.PollFd{Fd: int32(d), Events: unix.POLLIN})
	}
	for _, d := range fds {
		pfds = append(pfds, unix.PollFd{Fd: int32(d), Events: unix.POLLIN})
	}

	if _, err := poll(pfds, timeoutMs); err != nil {
		return -1, err
	}
	ready := 0
	for i := range pfds {
		// poll 对无效描述符只报告 POLLNVAL 而不失败，这里按 select 的约定转为 EBADF。
		if pfds[i].Revents&unix.POLLNVAL != 0 {
			return -1, unix.EBADF
		}
		if pfds[i].Revents&readyEvents != 0 {
			ready++
		}
	}
	return ready, nil
}
