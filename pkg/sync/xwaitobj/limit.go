package xwaitobj

import "fmt"

// reservedDescriptors 为非信号对象用途（标准输入输出、监听 socket、日志文件等）预留的描述符数。
const reservedDescriptors = 64

// validateObjectCount 校验期望的对象数量。
func validateObjectCount(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: object count must not be negative, got %d", ErrInvalidLimit, n)
	}
	return nil
}
