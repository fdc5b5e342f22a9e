package xmailbox

import (
	"fmt"
	"sync"

	"github.com/eapache/queue"

	"github.com/omeyang/xwait/pkg/sync/xwaitobj"
)

// Mailbox 是多生产者、单消费者的 FIFO 队列，入队时 Set 关联的信号对象。
type Mailbox[T any] struct {
	obj      *xwaitobj.Object
	capacity int

	mu     sync.Mutex
	q      *queue.Queue
	closed bool
}

// New 创建与 obj 配对的邮箱。邮箱不持有 obj，Close 不会关闭它。
func New[T any](obj *xwaitobj.Object, opts ...Option) (*Mailbox[T], error) {
	if obj == nil {
		return nil, ErrNilObject
	}
	options := &mailboxOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}
	return &Mailbox[T]{
		obj:      obj,
		capacity: options.capacity,
		q:        queue.New(),
	}, nil
}

// Push 入队 v 并唤醒消费者。可在任意 goroutine 调用。
//
// Set 失败时 v 仍在队列中，返回的错误包装了信号对象的错误。
func (m *Mailbox[T]) Push(v T) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.capacity > 0 && m.q.Length() >= m.capacity {
		m.mu.Unlock()
		return ErrFull
	}
	m.q.Add(v)
	m.mu.Unlock()

	// Set 在锁外执行，避免与 Drain 互相阻塞。
	if err := m.obj.Set(); err != nil {
		return fmt.Errorf("xmailbox: wake consumer: %w", err)
	}
	return nil
}

// Drain 按入队顺序取出全部元素，队列为空时返回 nil。
func (m *Mailbox[T]) Drain() []T {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.q.Length()
	if n == 0 {
		return nil
	}
	out := make([]T, 0, n)
	for m.q.Length() > 0 {
		v, _ := m.q.Remove().(T)
		out = append(out, v)
	}
	return out
}

// Len 返回当前排队的元素数量。
func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.q.Length()
}

// Close 拒绝后续 Push。已入队的元素仍可 Drain。幂等。
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}
