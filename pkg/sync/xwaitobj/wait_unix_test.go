//go:build unix

package xwaitobj

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// newTestPipe 创建普通 pipe 作为额外的可读描述符。
func newTestPipe(t *testing.T) (*os.File, *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = r.Close()
		_ = w.Close()
	})
	return r, w
}

func TestWait_ExtraDescriptor(t *testing.T) {
	r, w := newTestPipe(t)
	fd, err := DescriptorOf(r)
	require.NoError(t, err)

	n, err := Wait(nil, []Descriptor{fd}, 0)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = w.Write([]byte("x"))
	require.NoError(t, err)

	n, err = Wait(nil, []Descriptor{fd}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWait_CountsEveryReadyDescriptor(t *testing.T) {
	o1 := newTestObject(t)
	o2 := newTestObject(t)
	r, w := newTestPipe(t)
	fd, err := DescriptorOf(r)
	require.NoError(t, err)

	require.NoError(t, o1.Set())
	require.NoError(t, o2.Set())
	_, err = w.Write([]byte("x"))
	require.NoError(t, err)

	n, err := Wait([]*Object{o1, o2}, []Descriptor{fd}, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

// TestWait_HangupCountsAsReady 与 select(2) 一致，写端关闭后读端视为就绪。
func TestWait_HangupCountsAsReady(t *testing.T) {
	r, w := newTestPipe(t)
	fd, err := DescriptorOf(r)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	n, err := Wait(nil, []Descriptor{fd}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWait_InvalidDescriptor(t *testing.T) {
	n, err := Wait(nil, []Descriptor{1 << 20}, 0)
	assert.Equal(t, -1, n)
	require.ErrorIs(t, err, ErrWaitFailed)
	assert.ErrorIs(t, err, unix.EBADF)
}

// 不可 t.Parallel()：替换包级变量 poll。
func TestWait_Interrupted(t *testing.T) {
	origPoll := poll
	defer func() { poll = origPoll }()

	poll = func(_ []unix.PollFd, _ int) (int, error) {
		return -1, unix.EINTR
	}

	n, err := Wait(nil, nil, Infinite)
	assert.Equal(t, -1, n)
	require.ErrorIs(t, err, ErrWaitFailed)
	assert.True(t, IsInterrupted(err))
}

// 不可 t.Parallel()：替换包级变量 poll。
func TestWait_PassesTimeoutInMilliseconds(t *testing.T) {
	origPoll := poll
	defer func() { poll = origPoll }()

	var got []int
	poll = func(_ []unix.PollFd, timeout int) (int, error) {
		got = append(got, timeout)
		return 0, nil
	}

	for _, d := range []time.Duration{Infinite, 0, 1500 * time.Microsecond, 2 * time.Second} {
		_, err := Wait(nil, nil, d)
		require.NoError(t, err)
	}
	assert.Equal(t, []int{-1, 0, 1, 2000}, got)
}

// 不可 t.Parallel()：替换包级变量 poll。
func TestWait_CountsOnlyReadyEvents(t *testing.T) {
	origPoll := poll
	defer func() { poll = origPoll }()

	// 就绪数量只由 revents 决定，不取 poll 的返回值。
	poll = func(fds []unix.PollFd, _ int) (int, error) {
		fds[0].Revents = unix.POLLPRI
		fds[1].Revents = unix.POLLHUP
		return len(fds), nil
	}

	n, err := Wait(nil, []Descriptor{3, 4}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
