package xmailbox

// Option 配置 Mailbox 的选项函数。
type Option func(*mailboxOptions)

type mailboxOptions struct {
	capacity int
}

// WithCapacity 设置队列上限，超过时 Push 返回 [ErrFull]。
// 默认 0 表示不限制；负值被忽略。
func WithCapacity(n int) Option {
	return func(o *mailboxOptions) {
		if n >= 0 {
			o.capacity = n
		}
	}
}
