// Package sync 提供跨 goroutine 同步原语相关的子包。
//
// 子包列表：
//   - xwaitobj: 电平触发的信号对象与多路等待（Unix self-pipe / Windows 手动复位事件）
package sync
