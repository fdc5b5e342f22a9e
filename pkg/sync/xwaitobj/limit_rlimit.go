//go:build linux || darwin

package xwaitobj

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// descriptorsPerObject 每个 self-pipe 对象占用读端与写端两个描述符。
const descriptorsPerObject = 2

// 注意：mock 测试不可使用 t.Parallel()。
var (
	getrlimit = unix.Getrlimit
	setrlimit = unix.Setrlimit
)

// limitMu 保护 EnsureObjects 的 getrlimit→setrlimit 读改写序列。
var limitMu sync.Mutex

// MaxObjects 返回按当前 RLIMIT_NOFILE soft limit 计算的可同时存在的对象上限
// （扣除预留描述符后）。
func MaxObjects() (int, error) {
	var rlimit unix.Rlimit
	if err := getrlimit(unix.RLIMIT_NOFILE, &rlimit); err != nil {
		return 0, fmt.Errorf("xwaitobj: getrlimit RLIMIT_NOFILE: %w", err)
	}
	return objectsFor(rlimit.Cur), nil
}

// EnsureObjects 确保 soft limit 足以容纳 n 个对象。
//
// 只提升 soft limit，不超过 hard limit；hard limit 不足时返回包装了
// [ErrResourceExhausted] 的错误且不修改任何限制。
func EnsureObjects(n int) error {
	if err := validateObjectCount(n); err != nil {
		return err
	}
	need := uint64(n)*descriptorsPerObject + reservedDescriptors

	limitMu.Lock()
	defer limitMu.Unlock()

	var rlimit unix.Rlimit
	if err := getrlimit(unix.RLIMIT_NOFILE, &rlimit); err != nil {
		return fmt.Errorf("xwaitobj: getrlimit RLIMIT_NOFILE: %w", err)
	}
	if rlimit.Cur >= need {
		return nil
	}
	if rlimit.Max < need {
		return fmt.Errorf("%w: %d objects need %d descriptors, hard limit is %d",
			ErrResourceExhausted, n, need, rlimit.Max)
	}

	rlimit.Cur = need
	if err := setrlimit(unix.RLIMIT_NOFILE, &rlimit); err != nil {
		return fmt.Errorf("xwaitobj: setrlimit RLIMIT_NOFILE: %w", err)
	}
	return nil
}

func objectsFor(soft uint64) int {
	if soft <= reservedDescriptors {
		return 0
	}
	n := (soft - reservedDescriptors) / descriptorsPerObject
	// RLIM_INFINITY 等极大值钳制到 int 上限。
	if n > uint64(maxInt) {
		return maxInt
	}
	return int(n)
}

const maxInt = int(^uint(0) >> 1)
