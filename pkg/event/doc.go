// Package event 提供基于信号对象的事件处理相关子包。
//
// 子包列表：
//   - xloop: 单 goroutine 的 select 风格事件循环，分发信号对象与描述符就绪事件
//   - xmailbox: 与信号对象配对的命令队列，任意 goroutine 投递、循环 goroutine 批量取出
//
// 设计原则：
//   - 唤醒只依赖 xwaitobj 的电平触发语义
//   - 处理函数只在循环 goroutine 上执行
package event
