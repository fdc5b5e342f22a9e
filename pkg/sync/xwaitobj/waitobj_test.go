//go:build unix || windows

package xwaitobj

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestObject 创建对象并在测试结束时关闭。
func newTestObject(t *testing.T, opts ...Option) *Object {
	t.Helper()
	o, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, o.Close())
	})
	return o
}

func TestNew_StartsClear(t *testing.T) {
	o := newTestObject(t)
	assert.False(t, o.IsSet())
	assert.Equal(t, defaultName, o.Name())
}

func TestNew_Options(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	o := newTestObject(t, WithName("commands"), WithLogger(logger), nil, WithName(""), WithLogger(nil))
	assert.Equal(t, "commands", o.Name())
	assert.Same(t, logger, o.logger)
}

func TestSet_Idempotent(t *testing.T) {
	o := newTestObject(t)

	require.NoError(t, o.Set())
	assert.True(t, o.IsSet())

	for range 100 {
		require.NoError(t, o.Set())
		assert.True(t, o.IsSet())
	}

	// 多次 Set 合并为一次唤醒，一次 Clear 即完全复位。
	require.NoError(t, o.Clear())
	assert.False(t, o.IsSet())
}

func TestClear_NeverSet(t *testing.T) {
	o := newTestObject(t)
	require.NoError(t, o.Clear())
	assert.False(t, o.IsSet())
}

func TestRoundTrip(t *testing.T) {
	o := newTestObject(t)

	require.NoError(t, o.Set())
	assert.True(t, o.IsSet())

	require.NoError(t, o.Clear())
	assert.False(t, o.IsSet())

	// 清除后可再次触发。
	require.NoError(t, o.Set())
	assert.True(t, o.IsSet())
}

func TestLifecycleScenario(t *testing.T) {
	o, err := New(WithName("scenario"))
	require.NoError(t, err)

	assert.False(t, o.IsSet())
	require.NoError(t, o.Set())
	assert.True(t, o.IsSet())
	require.NoError(t, o.Set())
	assert.True(t, o.IsSet())
	require.NoError(t, o.Clear())
	assert.False(t, o.IsSet())
	require.NoError(t, o.Close())
}

func TestClose_Idempotent(t *testing.T) {
	o, err := New()
	require.NoError(t, err)

	require.NoError(t, o.Close())
	require.NoError(t, o.Close())
}

func TestClose_Nil(t *testing.T) {
	var o *Object
	assert.NoError(t, o.Close())
	assert.False(t, o.IsSet())
	assert.ErrorIs(t, o.Set(), ErrClosed)
	assert.ErrorIs(t, o.Clear(), ErrClosed)
	assert.Empty(t, o.Name())
	_, ok := o.Fd()
	assert.False(t, ok)
}

func TestUseAfterClose(t *testing.T) {
	o, err := New()
	require.NoError(t, err)
	require.NoError(t, o.Set())
	require.NoError(t, o.Close())

	assert.False(t, o.IsSet())
	assert.ErrorIs(t, o.Set(), ErrClosed)
	assert.ErrorIs(t, o.Clear(), ErrClosed)
	_, ok := o.Fd()
	assert.False(t, ok)
}

func TestFd(t *testing.T) {
	o := newTestObject(t)
	fd, ok := o.Fd()
	require.True(t, ok)
	assert.NotZero(t, fd)
}

// TestSet_Concurrent 多个生产者并发 Set，配合 -race 运行。
func TestSet_Concurrent(t *testing.T) {
	o := newTestObject(t)

	const producers = 16
	var wg sync.WaitGroup
	wg.Add(producers)
	for range producers {
		go func() {
			defer wg.Done()
			for range 100 {
				if err := o.Set(); err != nil {
					t.Errorf("concurrent Set: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	assert.True(t, o.IsSet())
	require.NoError(t, o.Clear())
	assert.False(t, o.IsSet())
}

// TestSet_ConcurrentWithClose Close 与 Set 并发时不应访问已释放的描述符。
func TestSet_ConcurrentWithClose(t *testing.T) {
	o, err := New()
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 1000 {
			if err := o.Set(); err != nil {
				assert.ErrorIs(t, err, ErrClosed)
				return
			}
		}
	}()
	time.Sleep(time.Millisecond)
	require.NoError(t, o.Close())
	wg.Wait()
}
