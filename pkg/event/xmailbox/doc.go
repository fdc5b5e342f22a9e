// Package xmailbox 提供与信号对象配对的命令队列。
//
// 生产者在任意 goroutine 调用 Push：元素入队后 Set 信号对象；
// 事件循环在该对象的处理函数中调用 Drain 一次取出全部元素。
// 由于信号对象是电平触发且多次 Set 会合并，Drain 必须取空队列，
// 不能假设"一次唤醒对应一个元素"。
//
// 入队先于 Set，处理函数运行前对象已被复位，因此 Drain 之后入队的元素
// 总会触发下一次唤醒，不会丢失。
//
//	loop, _ := xloop.New()
//	var mb *xmailbox.Mailbox[Command]
//	obj, _ := loop.AddSignal("commands", func(ctx context.Context, _ *xwaitobj.Object) error {
//	    for _, cmd := range mb.Drain() {
//	        handle(cmd)
//	    }
//	    return nil
//	})
//	mb, _ = xmailbox.New[Command](obj)
package xmailbox
