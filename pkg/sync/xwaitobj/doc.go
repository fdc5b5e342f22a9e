// Package xwaitobj 提供跨平台的信号等待对象（wait object）与多路等待函数。
//
// 信号对象是一个不透明句柄：生产者在任意 goroutine 中将其置为"已触发"，
// 事件循环在同一次阻塞等待中同时观察若干信号对象与 socket 可读事件。
// 适用于单线程 select() 风格的事件循环被带外事件（例如"有新的出站命令入队"）唤醒。
//
// # 功能概览
//
//   - [New]: 创建信号对象（初始为未触发）
//   - [Object.Close]: 释放 OS 资源（幂等，nil 安全）
//   - [Object.Set]: 置为已触发（电平语义，重复调用合并为一次）
//   - [Object.Clear]: 清除触发状态（排空直到未触发）
//   - [Object.IsSet]: 非阻塞查询当前状态
//   - [Wait]: 在信号对象与额外描述符上阻塞等待，支持超时
//   - [Readable]: 对单个描述符做零超时可读探测
//   - [DescriptorOf]: 从 net.Conn、net.Listener、*os.File 中取出描述符
//
// # 平台实现
//
// 两种后端通过构建标签选择，对外契约完全一致：
//
//   - unix（Linux、macOS、BSD 等）：self-pipe。读端存在未读字节即为已触发，
//     Set 写入 4 字节哨兵，Clear 按哨兵长度逐次读出直到不可读。
//     [Wait] 使用一次 poll(2) 覆盖所有读端与额外描述符。
//   - windows：手动复位的内核事件（CreateEvent）。[Wait] 使用
//     WaitForMultipleObjects，socket 通过 WSAEventSelect 临时关联到事件，
//     返回前解除关联。句柄总数上限为 64。
//
// 其他平台上 [New] 与 [Wait] 返回 [ErrUnsupportedPlatform]。
//
// # 返回值约定
//
// [Wait] 返回 0 表示超时且无就绪；返回正数表示就绪描述符数量；
// 失败时返回 -1 与包装了 [ErrWaitFailed] 的错误（被信号中断时可用 [IsInterrupted] 判断）。
// Wait 不报告具体是哪个条件触发，调用方需在返回后逐个调用 [Object.IsSet]
// 并检查自己的描述符。
//
// # 描述符上限
//
// Unix 上每个对象占用两个文件描述符，大量对象可能触发 EMFILE。
// [MaxObjects] 按 RLIMIT_NOFILE soft limit 估算可同时存在的对象数，
// [EnsureObjects] 在 hard limit 允许的范围内提升 soft limit（仅 Linux/macOS）。
//
// # 并发约定
//
// Set、IsSet 可在任意 goroutine 中调用；Clear 与 Wait 应由唯一的消费者
// （事件循环）调用，以保证"先清除、再分发"协议无竞态。
package xwaitobj
