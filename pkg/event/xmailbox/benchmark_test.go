//go:build unix || windows

package xmailbox

import (
	"testing"

	"github.com/omeyang/xwait/pkg/sync/xwaitobj"
)

func BenchmarkPushDrain(b *testing.B) {
	obj, err := xwaitobj.New()
	if err != nil {
		b.Fatalf("New: %v", err)
	}
	defer obj.Close()
	mb, err := New[int](obj)
	if err != nil {
		b.Fatalf("New: %v", err)
	}

	for b.Loop() {
		for i := range 16 {
			if err := mb.Push(i); err != nil {
				b.Fatalf("Push: %v", err)
			}
		}
		mb.Drain()
		if err := obj.Clear(); err != nil {
			b.Fatalf("Clear: %v", err)
		}
	}
}
