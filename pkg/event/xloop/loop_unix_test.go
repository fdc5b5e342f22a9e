//go:build unix

package xloop

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/omeyang/xwait/pkg/sync/xwaitobj"
)

// readablePipe 返回已写入一个字节的管道读端，写端在测试结束时关闭。
func readablePipe(t *testing.T) int {
	t.Helper()
	var p [2]int
	require.NoError(t, unix.Pipe(p[:]))
	t.Cleanup(func() { _ = unix.Close(p[1]) })
	_, err := unix.Write(p[1], []byte{1})
	require.NoError(t, err)
	return p[0]
}

// TestRemoveDescriptor_CloseFromSiblingHandler 处理函数移除并关闭同轮就绪的
// 另一个描述符后，循环不再探测它。
func TestRemoveDescriptor_CloseFromSiblingHandler(t *testing.T) {
	l := newTestLoop(t)

	a := readablePipe(t)
	t.Cleanup(func() { _ = unix.Close(a) })
	b := readablePipe(t)

	var bCalls atomic.Int32
	require.NoError(t, l.AddDescriptor(xwaitobj.Descriptor(a), func(context.Context, xwaitobj.Descriptor) error {
		if err := l.RemoveDescriptor(xwaitobj.Descriptor(b)); err != nil {
			return err
		}
		if err := unix.Close(b); err != nil {
			return err
		}
		l.Stop()
		return nil
	}))
	require.NoError(t, l.AddDescriptor(xwaitobj.Descriptor(b), func(context.Context, xwaitobj.Descriptor) error {
		bCalls.Add(1)
		return nil
	}))

	require.NoError(t, l.Run(context.Background()))
	assert.Zero(t, bCalls.Load())
}

// TestRemoveDescriptor_ReaddedUsesNewHandler 同一描述符号移除后重新注册，
// 本轮分发调用新的处理函数。
func TestRemoveDescriptor_ReaddedUsesNewHandler(t *testing.T) {
	l := newTestLoop(t)

	a := readablePipe(t)
	t.Cleanup(func() { _ = unix.Close(a) })
	b := readablePipe(t)
	t.Cleanup(func() { _ = unix.Close(b) })

	var oldCalls, newCalls atomic.Int32
	require.NoError(t, l.AddDescriptor(xwaitobj.Descriptor(a), func(context.Context, xwaitobj.Descriptor) error {
		if err := l.RemoveDescriptor(xwaitobj.Descriptor(b)); err != nil {
			return err
		}
		return l.AddDescriptor(xwaitobj.Descriptor(b), func(context.Context, xwaitobj.Descriptor) error {
			newCalls.Add(1)
			l.Stop()
			return nil
		})
	}))
	require.NoError(t, l.AddDescriptor(xwaitobj.Descriptor(b), func(context.Context, xwaitobj.Descriptor) error {
		oldCalls.Add(1)
		return nil
	}))

	require.NoError(t, l.Run(context.Background()))
	assert.Zero(t, oldCalls.Load())
	assert.Equal(t, int32(1), newCalls.Load())
}
