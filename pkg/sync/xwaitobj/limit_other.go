//go:build !linux && !darwin

package xwaitobj

// MaxObjects 在 Linux/macOS 以外的平台上返回 [ErrUnsupportedPlatform]。
// Windows 的事件句柄不受 RLIMIT_NOFILE 这类进程限制约束。
func MaxObjects() (int, error) {
	return 0, ErrUnsupportedPlatform
}

// EnsureObjects 在 Linux/macOS 以外的平台上返回 [ErrUnsupportedPlatform]。
// 参数校验仍然执行，以保持跨平台行为一致。
func EnsureObjects(n int) error {
	if err := validateObjectCount(n); err != nil {
		return err
	}
	return ErrUnsupportedPlatform
}
