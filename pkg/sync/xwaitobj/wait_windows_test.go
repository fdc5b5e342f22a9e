//go:build windows

package xwaitobj

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/windows"
)

func TestWait_TooManyHandles(t *testing.T) {
	objs := make([]*Object, 0, maximumWaitObjects+1)
	for range maximumWaitObjects + 1 {
		objs = append(objs, newTestObject(t))
	}

	n, err := Wait(objs, nil, 0)
	assert.Equal(t, -1, n)
	assert.ErrorIs(t, err, ErrWaitFailed)
}

// 不可 t.Parallel()：替换包级变量 createEvent。
func TestNew_CreateEventFailure(t *testing.T) {
	origCreate := createEvent
	defer func() { createEvent = origCreate }()

	createEvent = func(_ *windows.SecurityAttributes, _, _ uint32, _ *uint16) (windows.Handle, error) {
		return 0, windows.ERROR_NOT_ENOUGH_MEMORY
	}

	o, err := New()
	assert.Nil(t, o)
	require.ErrorIs(t, err, ErrResourceExhausted)
	assert.ErrorIs(t, err, windows.ERROR_NOT_ENOUGH_MEMORY)
}

// 不可 t.Parallel()：替换包级变量 closeHandle。
func TestClose_HandleFailure(t *testing.T) {
	origClose := closeHandle
	defer func() { closeHandle = origClose }()

	mockErr := errors.New("mock close error")
	closeHandle = func(h windows.Handle) error {
		_ = origClose(h)
		return mockErr
	}

	o, err := New()
	require.NoError(t, err)
	require.ErrorIs(t, o.Close(), mockErr)
	require.NoError(t, o.Close())
}
